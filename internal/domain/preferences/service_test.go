package preferences

import (
	"context"
	"errors"
	"testing"
	"time"
)

type testRepo struct {
	byUser map[string]Preferences
}

func (r *testRepo) Get(ctx context.Context, userID string) (Preferences, error) {
	p, ok := r.byUser[userID]
	if !ok {
		return Preferences{}, ErrNotFound
	}
	return p, nil
}

func (r *testRepo) Upsert(ctx context.Context, p Preferences) error {
	r.byUser[p.UserID] = p
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestService_GetDefaults(t *testing.T) {
	svc := NewService(&testRepo{byUser: map[string]Preferences{}})

	p, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !p.NotificationsEnabled || !p.AdvanceReminder || p.TelegramReady() {
		t.Fatalf("unexpected defaults: %+v", p)
	}

	if _, err := svc.Get(context.Background(), " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_Update(t *testing.T) {
	repo := &testRepo{byUser: map[string]Preferences{}}
	svc := NewService(repo)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	p, err := svc.Update(ctx, "u1", UpdateInput{AdvanceReminder: ptr(false)})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.AllowsAdvance() || !p.NotificationsEnabled || !p.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected prefs: %+v", p)
	}

	// Telegram sin chat id
	if _, err := svc.Update(ctx, "u1", UpdateInput{TelegramEnabled: ptr(true)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Update(ctx, "u1", UpdateInput{TelegramChatID: ptr("@bob")}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad chat id, got %v", err)
	}

	p, err = svc.Update(ctx, "u1", UpdateInput{TelegramChatID: ptr("123456"), TelegramEnabled: ptr(true)})
	if err != nil || !p.TelegramReady() {
		t.Fatalf("expected telegram ready, got %+v err=%v", p, err)
	}
	if p.AdvanceReminder {
		t.Fatalf("previous fields must be kept")
	}

	// limpiar el chat apaga el canal
	p, err = svc.Update(ctx, "u1", UpdateInput{TelegramChatID: ptr("")})
	if err != nil || p.TelegramEnabled {
		t.Fatalf("expected telegram disabled, got %+v err=%v", p, err)
	}
	if stored := repo.byUser["u1"]; stored.TelegramChatID != "" {
		t.Fatalf("stored prefs not updated: %+v", stored)
	}
}
