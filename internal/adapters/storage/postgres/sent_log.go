package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"doseclock/internal/domain/notifications"
)

type SentLog struct {
	db *sql.DB
}

func NewSentLog(db *sql.DB) *SentLog {
	return &SentLog{db: db}
}

func (l *SentLog) SentFor(ctx context.Context, doseIDs []string) ([]notifications.Sent, error) {
	if len(doseIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(doseIDs))
	args := make([]any, 0, len(doseIDs))
	for i, id := range doseIDs {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, id)
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT dose_id, kind, sent_at
		FROM sent_notifications
		WHERE dose_id IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]notifications.Sent, 0)
	for rows.Next() {
		var (
			s    notifications.Sent
			kind string
		)
		if err := rows.Scan(&s.DoseID, &kind, &s.SentAt); err != nil {
			return nil, err
		}
		s.Kind = notifications.Kind(kind)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (l *SentLog) MarkSent(ctx context.Context, s notifications.Sent) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sent_notifications (dose_id, kind, sent_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (dose_id, kind) DO NOTHING
	`, s.DoseID, string(s.Kind), s.SentAt)
	return err
}
