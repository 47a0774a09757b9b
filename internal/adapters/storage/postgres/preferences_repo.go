package postgres

import (
	"context"
	"database/sql"
	"errors"

	"doseclock/internal/domain/preferences"
)

type PreferencesRepo struct {
	db *sql.DB
}

func NewPreferencesRepo(db *sql.DB) *PreferencesRepo {
	return &PreferencesRepo{db: db}
}

func (r *PreferencesRepo) Get(ctx context.Context, userID string) (preferences.Preferences, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			user_id,
			notifications_enabled, advance_reminder,
			telegram_chat_id, telegram_enabled,
			updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`, userID)

	var p preferences.Preferences
	if err := row.Scan(
		&p.UserID,
		&p.NotificationsEnabled,
		&p.AdvanceReminder,
		&p.TelegramChatID,
		&p.TelegramEnabled,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return preferences.Preferences{}, preferences.ErrNotFound
		}
		return preferences.Preferences{}, err
	}
	return p, nil
}

func (r *PreferencesRepo) Upsert(ctx context.Context, p preferences.Preferences) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (
			user_id,
			notifications_enabled, advance_reminder,
			telegram_chat_id, telegram_enabled,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id) DO UPDATE SET
			notifications_enabled = EXCLUDED.notifications_enabled,
			advance_reminder = EXCLUDED.advance_reminder,
			telegram_chat_id = EXCLUDED.telegram_chat_id,
			telegram_enabled = EXCLUDED.telegram_enabled,
			updated_at = EXCLUDED.updated_at
	`,
		p.UserID,
		p.NotificationsEnabled,
		p.AdvanceReminder,
		p.TelegramChatID,
		p.TelegramEnabled,
		p.UpdatedAt,
	)
	return err
}
