package store_test

import (
	"context"
	"testing"
	"time"

	"messaging/internal/domain"

	"github.com/google/uuid"
)

func TestTokenUpsertRehomesToken(t *testing.T) {
	st := setupStore(t)
	firstOwner := uuid.New()
	secondOwner := uuid.New()
	token := "device-token-" + uuid.NewString()

	now := time.Now().UTC()
	err := st.Tokens().Upsert(context.Background(), &domain.DeviceToken{
		UserID:    firstOwner,
		Token:     token,
		Platform:  domain.PlatformIOS,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	err = st.Tokens().Upsert(context.Background(), &domain.DeviceToken{
		UserID:    secondOwner,
		Token:     token,
		Platform:  domain.PlatformAndroid,
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	old, err := st.Tokens().ListByUser(context.Background(), firstOwner)
	if err != nil {
		t.Fatalf("list first owner: %v", err)
	}
	if len(old) != 0 {
		t.Fatalf("expected token to leave first owner, still has %d", len(old))
	}
	rows, err := st.Tokens().ListByUser(context.Background(), secondOwner)
	if err != nil {
		t.Fatalf("list second owner: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 token for new owner, got %d", len(rows))
	}
	if rows[0].Platform != domain.PlatformAndroid {
		t.Fatalf("expected platform to follow re-registration, got %s", rows[0].Platform)
	}
}

func TestTokenUpsertIsIdempotentPerUser(t *testing.T) {
	st := setupStore(t)
	owner := uuid.New()
	token := "device-token-" + uuid.NewString()

	now := time.Now().UTC()
	for i := 0; i < 2; i++ {
		err := st.Tokens().Upsert(context.Background(), &domain.DeviceToken{
			UserID:    owner,
			Token:     token,
			Platform:  domain.PlatformWeb,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	rows, err := st.Tokens().ListByUser(context.Background(), owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single row after re-registration, got %d", len(rows))
	}
}

func TestTokenDelete(t *testing.T) {
	st := setupStore(t)
	owner := uuid.New()
	token := "device-token-" + uuid.NewString()

	now := time.Now().UTC()
	err := st.Tokens().Upsert(context.Background(), &domain.DeviceToken{
		UserID:    owner,
		Token:     token,
		Platform:  domain.PlatformIOS,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	removed, err := st.Tokens().Delete(context.Background(), owner, token)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed {
		t.Fatalf("expected delete to report removal")
	}

	removed, err = st.Tokens().Delete(context.Background(), owner, token)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if removed {
		t.Fatalf("expected absent token to report no removal")
	}
}

func TestTokenDeleteByToken(t *testing.T) {
	st := setupStore(t)
	token := "device-token-" + uuid.NewString()

	now := time.Now().UTC()
	err := st.Tokens().Upsert(context.Background(), &domain.DeviceToken{
		UserID:    uuid.New(),
		Token:     token,
		Platform:  domain.PlatformAndroid,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	n, err := st.Tokens().DeleteByToken(context.Background(), token)
	if err != nil {
		t.Fatalf("delete by token: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row removed, got %d", n)
	}
}
