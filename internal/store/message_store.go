package store

import (
	"context"
	"errors"
	"time"

	"messaging/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageStore struct{ db *gorm.DB }

func (s *Store) Messages() *MessageStore { return &MessageStore{db: s.DB} }

func (m *MessageStore) Create(ctx context.Context, msg *domain.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	return m.db.WithContext(ctx).Create(msg).Error
}

// History returns a conversation's messages ascending by creation time.
// A limit <= 0 means unbounded.
func (m *MessageStore) History(ctx context.Context, convID domain.ConversationID, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	tx := m.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at asc, id asc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (m *MessageStore) Get(ctx context.Context, id domain.MessageID) (*domain.Message, error) {
	var msg domain.Message
	if err := m.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// MarkRead stamps read_at once; a second stamp keeps the earliest time.
func (m *MessageStore) MarkRead(ctx context.Context, id domain.MessageID, at time.Time) (*domain.Message, error) {
	if err := m.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", at).Error; err != nil {
		return nil, err
	}
	return m.Get(ctx, id)
}
