package service_test

import (
	"context"
	"errors"
	"testing"

	"messaging/internal/domain"
	"messaging/internal/service"
	"messaging/internal/store"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*service.Service, *store.Store) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return service.New(st, 100), st
}

func TestAppendAndHistory(t *testing.T) {
	svc, _ := setupService(t)
	convID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	first, err := svc.Append(context.Background(), service.SendInput{
		ConversationID: convID,
		SenderID:       alice,
		RecipientID:    bob,
		Body:           "  hello  ",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first.ID == uuid.Nil {
		t.Fatalf("expected assigned message id")
	}
	if first.Body != "hello" {
		t.Fatalf("expected trimmed body, got %q", first.Body)
	}

	second, err := svc.Append(context.Background(), service.SendInput{
		ConversationID: convID,
		SenderID:       bob,
		RecipientID:    alice,
		Body:           "hi back",
	})
	if err != nil {
		t.Fatalf("append second: %v", err)
	}

	got, err := svc.History(context.Background(), convID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatalf("expected chronological order, got %v then %v", got[0].ID, got[1].ID)
	}
}

func TestAppendValidation(t *testing.T) {
	svc, _ := setupService(t)
	convID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	cases := []struct {
		name string
		in   service.SendInput
		want error
	}{
		{
			name: "empty body",
			in:   service.SendInput{ConversationID: convID, SenderID: alice, RecipientID: bob, Body: "   "},
			want: domain.ErrEmptyBody,
		},
		{
			name: "sender is recipient",
			in:   service.SendInput{ConversationID: convID, SenderID: alice, RecipientID: alice, Body: "hi"},
			want: domain.ErrSameParticipants,
		},
		{
			name: "missing conversation",
			in:   service.SendInput{SenderID: alice, RecipientID: bob, Body: "hi"},
			want: service.ErrInvalidRequest,
		},
		{
			name: "missing recipient",
			in:   service.SendInput{ConversationID: convID, SenderID: alice, Body: "hi"},
			want: service.ErrInvalidRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Append(context.Background(), tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestMarkReadOnlyRecipient(t *testing.T) {
	svc, _ := setupService(t)
	alice := uuid.New()
	bob := uuid.New()

	msg, err := svc.Append(context.Background(), service.SendInput{
		ConversationID: uuid.New(),
		SenderID:       alice,
		RecipientID:    bob,
		Body:           "hello",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	// The sender must not be able to stamp their own message read.
	if _, err := svc.MarkRead(context.Background(), msg.ID, alice); !errors.Is(err, service.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for non-recipient, got %v", err)
	}

	read, err := svc.MarkRead(context.Background(), msg.ID, bob)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if read.ReadAt == nil {
		t.Fatalf("expected read timestamp")
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	svc, _ := setupService(t)
	bob := uuid.New()

	msg, err := svc.Append(context.Background(), service.SendInput{
		ConversationID: uuid.New(),
		SenderID:       uuid.New(),
		RecipientID:    bob,
		Body:           "hello",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	first, err := svc.MarkRead(context.Background(), msg.ID, bob)
	if err != nil {
		t.Fatalf("first mark read: %v", err)
	}
	second, err := svc.MarkRead(context.Background(), msg.ID, bob)
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if !second.ReadAt.Equal(*first.ReadAt) {
		t.Fatalf("expected read timestamp to stay %v, got %v", first.ReadAt, second.ReadAt)
	}
}

func TestMarkReadUnknownMessage(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, domain.ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}
