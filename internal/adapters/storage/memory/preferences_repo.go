package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"doseclock/internal/domain/preferences"
)

type preferencesRepo struct {
	mu     sync.RWMutex
	byUser map[string]preferences.Preferences
}

func NewPreferencesRepo() preferences.Repository {
	return &preferencesRepo{
		byUser: make(map[string]preferences.Preferences),
	}
}

func (r *preferencesRepo) Get(ctx context.Context, userID string) (preferences.Preferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byUser[userID]
	if !ok {
		return preferences.Preferences{}, preferences.ErrNotFound
	}
	return p, nil
}

func (r *preferencesRepo) Upsert(ctx context.Context, p preferences.Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.UserID) == "" {
		return errors.New("user id required")
	}
	r.byUser[p.UserID] = p
	return nil
}
