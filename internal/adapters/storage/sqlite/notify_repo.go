package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"doseclock/internal/domain/notifications"
	"doseclock/internal/domain/preferences"

	"github.com/jmoiron/sqlx"
)

type PreferencesRepo struct {
	db *sqlx.DB
}

func NewPreferencesRepo(db *sqlx.DB) *PreferencesRepo {
	return &PreferencesRepo{db: db}
}

type preferencesRow struct {
	UserID               string    `db:"user_id"`
	NotificationsEnabled bool      `db:"notifications_enabled"`
	AdvanceReminder      bool      `db:"advance_reminder"`
	TelegramChatID       string    `db:"telegram_chat_id"`
	TelegramEnabled      bool      `db:"telegram_enabled"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (r *PreferencesRepo) Get(ctx context.Context, userID string) (preferences.Preferences, error) {
	var row preferencesRow
	err := r.db.GetContext(ctx, &row, `
		SELECT user_id, notifications_enabled, advance_reminder, telegram_chat_id, telegram_enabled, updated_at
		FROM notification_preferences WHERE user_id = ?
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return preferences.Preferences{}, preferences.ErrNotFound
		}
		return preferences.Preferences{}, err
	}
	return preferences.Preferences(row), nil
}

func (r *PreferencesRepo) Upsert(ctx context.Context, p preferences.Preferences) error {
	row := preferencesRow(p)
	row.UpdatedAt = p.UpdatedAt.UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO notification_preferences
			(user_id, notifications_enabled, advance_reminder, telegram_chat_id, telegram_enabled, updated_at)
		VALUES (:user_id, :notifications_enabled, :advance_reminder, :telegram_chat_id, :telegram_enabled, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET
			notifications_enabled = excluded.notifications_enabled,
			advance_reminder = excluded.advance_reminder,
			telegram_chat_id = excluded.telegram_chat_id,
			telegram_enabled = excluded.telegram_enabled,
			updated_at = excluded.updated_at
	`, row)
	return err
}

type SentLog struct {
	db *sqlx.DB
}

func NewSentLog(db *sqlx.DB) *SentLog {
	return &SentLog{db: db}
}

type sentRow struct {
	DoseID string    `db:"dose_id"`
	Kind   string    `db:"kind"`
	SentAt time.Time `db:"sent_at"`
}

func (l *SentLog) SentFor(ctx context.Context, doseIDs []string) ([]notifications.Sent, error) {
	if len(doseIDs) == 0 {
		return nil, nil
	}

	q, args, err := sqlx.In(`SELECT dose_id, kind, sent_at FROM sent_notifications WHERE dose_id IN (?)`, doseIDs)
	if err != nil {
		return nil, err
	}

	var rows []sentRow
	if err := l.db.SelectContext(ctx, &rows, l.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	out := make([]notifications.Sent, 0, len(rows))
	for _, row := range rows {
		out = append(out, notifications.Sent{
			DoseID: row.DoseID,
			Kind:   notifications.Kind(row.Kind),
			SentAt: row.SentAt,
		})
	}
	return out, nil
}

func (l *SentLog) MarkSent(ctx context.Context, s notifications.Sent) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sent_notifications (dose_id, kind, sent_at) VALUES (?, ?, ?)
		ON CONFLICT (dose_id, kind) DO NOTHING
	`, s.DoseID, string(s.Kind), s.SentAt.UTC())
	return err
}
