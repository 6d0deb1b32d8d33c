package authz

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	obsmw "messaging/internal/observability/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// HMACValidator verifies HS256 bearer tokens issued by the (external) auth
// service and hands the channel a trusted user identity. Tokens arrive in
// the Authorization header or, for browser websocket dials that cannot set
// headers, in the access_token query parameter.
type HMACValidator struct {
	secret []byte
	issuer string
}

func NewHMACValidator(secret, issuer string) *HMACValidator {
	return &HMACValidator{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// VerifyRequest extracts and verifies the request's token, returning the
// subject user id.
func (h *HMACValidator) VerifyRequest(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("Authorization")
	var tokStr string
	switch {
	case strings.HasPrefix(strings.ToLower(raw), "bearer "):
		tokStr = strings.TrimSpace(raw[len("Bearer "):])
	default:
		tokStr = strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	if tokStr == "" {
		return uuid.Nil, fmt.Errorf("missing bearer token")
	}
	return h.verify(tokStr)
}

func (h *HMACValidator) verify(tokStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokStr, func(token *jwt.Token) (interface{}, error) {
		// Ensure HS* (HMAC) only
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %T", token.Method)
		}
		return h.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}
	if iss, _ := claims["iss"].(string); iss != "" && h.issuer != "" && iss != h.issuer {
		return uuid.Nil, fmt.Errorf("issuer mismatch")
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject: %w", err)
	}
	return userID, nil
}

// Middleware rejects unauthenticated requests and stores the subject in the
// request context.
func (h *HMACValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.VerifyRequest(r)
		if err != nil {
			slog.Warn("auth rejected",
				"error", err,
				"request_id", obsmw.RequestIDFromContext(r.Context()),
				"path", r.URL.Path,
			)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithSubject(r.Context(), userID)))
	})
}

// Small local helpers so we don't import another package
type subjectKey struct{}

func contextWithSubject(ctx context.Context, sub uuid.UUID) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

func SubjectFrom(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(subjectKey{}).(uuid.UUID)
	return v, ok
}
