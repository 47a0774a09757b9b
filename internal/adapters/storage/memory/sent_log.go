package memory

import (
	"context"
	"sync"

	"doseclock/internal/domain/notifications"
)

type sentKey struct {
	doseID string
	kind   notifications.Kind
}

type sentLog struct {
	mu    sync.RWMutex
	byKey map[sentKey]notifications.Sent
}

func NewSentLog() notifications.SentLog {
	return &sentLog{
		byKey: make(map[sentKey]notifications.Sent),
	}
}

func (l *sentLog) SentFor(ctx context.Context, doseIDs []string) ([]notifications.Sent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	want := make(map[string]struct{}, len(doseIDs))
	for _, id := range doseIDs {
		want[id] = struct{}{}
	}

	out := make([]notifications.Sent, 0)
	for k, s := range l.byKey {
		if _, ok := want[k.doseID]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// MarkSent conserva el primer SentAt.
func (l *sentLog) MarkSent(ctx context.Context, s notifications.Sent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := sentKey{doseID: s.DoseID, kind: s.Kind}
	if _, ok := l.byKey[k]; ok {
		return nil
	}
	l.byKey[k] = s
	return nil
}
