package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"messaging/internal/domain"
	"messaging/internal/observability/metrics"
	"messaging/internal/store"

	"github.com/google/uuid"
)

// Registry is the device-token registry: the durable mapping from a user to
// the push-capable endpoints that may be targeted when the user is offline.
type Registry struct {
	store *store.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewRegistry(st *store.Store, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{store: st, log: log, now: time.Now}
}

// Register upserts the (user, token) mapping. Registering the same pair
// twice leaves one row and refreshes its updated timestamp; registering an
// existing token under a different user re-homes it. Storage faults are
// propagated to the caller.
func (r *Registry) Register(ctx context.Context, userID domain.UserID, token, platform string) (*domain.DeviceToken, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidRequest
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrEmptyToken
	}
	p, err := domain.ParsePlatform(platform)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	tok := &domain.DeviceToken{
		UserID:    userID,
		Token:     token,
		Platform:  p,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Tokens().Upsert(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Unregister deletes the pair if present. Deleting an absent pair is not an
// error; the bool distinguishes "removed" from "already gone".
func (r *Registry) Unregister(ctx context.Context, userID domain.UserID, token string) (bool, error) {
	if userID == uuid.Nil {
		return false, ErrInvalidRequest
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return false, domain.ErrEmptyToken
	}
	return r.store.Tokens().Delete(ctx, userID, token)
}

// ListTokens returns the user's registered token values. Storage faults are
// recorded and downgraded to an empty result so push dispatch degrades to
// "no targets" instead of failing the surrounding request.
func (r *Registry) ListTokens(ctx context.Context, userID domain.UserID) []string {
	rows, err := r.store.Tokens().ListByUser(ctx, userID)
	if err != nil {
		metrics.RegistryListFailuresTotal.Inc()
		r.log.Warn("registry: token listing degraded to empty", "user_id", userID, "error", err)
		return nil
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Token)
	}
	return out
}

// ListDevices returns the full token rows, platform included, for dispatch.
// Same degradation discipline as ListTokens.
func (r *Registry) ListDevices(ctx context.Context, userID domain.UserID) []domain.DeviceToken {
	rows, err := r.store.Tokens().ListByUser(ctx, userID)
	if err != nil {
		metrics.RegistryListFailuresTotal.Inc()
		r.log.Warn("registry: device listing degraded to empty", "user_id", userID, "error", err)
		return nil
	}
	return rows
}

// Evict drops a token reported permanently invalid by a push gateway.
func (r *Registry) Evict(ctx context.Context, token string) {
	n, err := r.store.Tokens().DeleteByToken(ctx, token)
	if err != nil {
		r.log.Warn("registry: evict failed", "error", err)
		return
	}
	if n > 0 {
		r.log.Info("registry: evicted invalid token")
	}
}
