package store

import (
	"context"

	"messaging/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenStore struct{ db *gorm.DB }

func (s *Store) Tokens() *TokenStore { return &TokenStore{db: s.DB} }

// Upsert inserts the token or, when the token value already exists, re-homes
// it to the given user and refreshes platform and updated_at. Requires the
// unique index on device_tokens.token (see domain tag).
func (t *TokenStore) Upsert(ctx context.Context, tok *domain.DeviceToken) error {
	if tok.ID == uuid.Nil {
		tok.ID = uuid.New()
	}
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token"}},
		DoUpdates: clause.Assignments(map[string]any{
			"user_id":    tok.UserID,
			"platform":   tok.Platform,
			"updated_at": tok.UpdatedAt,
		}),
	}).Create(tok).Error
}

// Delete removes the (user, token) pair and reports whether a row existed.
func (t *TokenStore) Delete(ctx context.Context, userID domain.UserID, token string) (bool, error) {
	tx := t.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&domain.DeviceToken{})
	return tx.RowsAffected > 0, tx.Error
}

// DeleteByToken removes a token regardless of owner, used when a push
// gateway reports it permanently invalid.
func (t *TokenStore) DeleteByToken(ctx context.Context, token string) (int64, error) {
	tx := t.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&domain.DeviceToken{})
	return tx.RowsAffected, tx.Error
}

func (t *TokenStore) ListByUser(ctx context.Context, userID domain.UserID) ([]domain.DeviceToken, error) {
	var tokens []domain.DeviceToken
	if err := t.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}
