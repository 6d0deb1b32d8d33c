package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"messaging/internal/domain"
	"messaging/internal/observability/metrics"
	"messaging/internal/store"

	"github.com/google/uuid"
)

var ErrInvalidRequest = errors.New("service: invalid request")

// Service owns the durable read and write paths for conversation messages.
type Service struct {
	store *store.Store
	limit int
	now   func() time.Time
}

type SendInput struct {
	ConversationID domain.ConversationID
	SenderID       domain.UserID
	RecipientID    domain.UserID
	Body           string
}

func New(st *store.Store, historyLimit int) *Service {
	return &Service{store: st, limit: historyLimit, now: time.Now}
}

// Append validates and persists a newly sent message. The returned message
// carries the store-assigned id and creation timestamp.
func (s *Service) Append(ctx context.Context, in SendInput) (domain.Message, error) {
	if in.ConversationID == uuid.Nil || in.SenderID == uuid.Nil || in.RecipientID == uuid.Nil {
		return domain.Message{}, ErrInvalidRequest
	}
	if in.SenderID == in.RecipientID {
		return domain.Message{}, domain.ErrSameParticipants
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return domain.Message{}, domain.ErrEmptyBody
	}
	msg := domain.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		RecipientID:    in.RecipientID,
		Body:           body,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.Messages().Create(ctx, &msg); err != nil {
		return domain.Message{}, err
	}
	metrics.MessagesStoredTotal.Inc()
	return msg, nil
}

// History returns the conversation's messages ascending by creation time.
// The upstream ordering is not trusted; the result is re-sorted here.
func (s *Service) History(ctx context.Context, convID domain.ConversationID) ([]domain.Message, error) {
	if convID == uuid.Nil {
		return nil, ErrInvalidRequest
	}
	msgs, err := s.store.Messages().History(ctx, convID, s.limit)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	metrics.MessageHistoryFetchedTotal.Inc()
	return msgs, nil
}

// MarkRead stamps a message's read timestamp on behalf of its recipient.
// Stamping an already-read message is a no-op that keeps the earlier
// timestamp. Only the recipient may mark a message read.
func (s *Service) MarkRead(ctx context.Context, id domain.MessageID, readerID domain.UserID) (domain.Message, error) {
	if id == uuid.Nil || readerID == uuid.Nil {
		return domain.Message{}, ErrInvalidRequest
	}
	current, err := s.store.Messages().Get(ctx, id)
	if err != nil {
		return domain.Message{}, err
	}
	if current.RecipientID != readerID {
		return domain.Message{}, ErrInvalidRequest
	}
	if current.ReadAt != nil {
		return *current, nil
	}
	msg, err := s.store.Messages().MarkRead(ctx, id, s.now().UTC())
	if err != nil {
		return domain.Message{}, err
	}
	return *msg, nil
}
