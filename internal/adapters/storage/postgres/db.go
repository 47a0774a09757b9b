package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open abre una conexión pool a Postgres usando pgx (database/sql).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate crea las tablas si no existen. Es idempotente.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS medications (
	id            TEXT PRIMARY KEY,
	owner_user_id TEXT NOT NULL,
	name          TEXT NOT NULL,
	color         TEXT NOT NULL DEFAULT '',
	notes         TEXT NOT NULL DEFAULT '',
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS medications_owner_idx ON medications (owner_user_id);

CREATE TABLE IF NOT EXISTS treatments (
	id               TEXT PRIMARY KEY,
	owner_user_id    TEXT NOT NULL,
	medication_id    TEXT NOT NULL REFERENCES medications (id),
	medication_name  TEXT NOT NULL,
	start_at         TIMESTAMPTZ NOT NULL,
	interval_seconds BIGINT NOT NULL CHECK (interval_seconds > 0),
	anchor           TEXT NOT NULL,
	status           TEXT NOT NULL,
	deactivated_at   TIMESTAMPTZ NULL,
	ends_at          TIMESTAMPTZ NULL,
	max_occurrences  INTEGER NOT NULL DEFAULT 0,
	notes            TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS treatments_owner_idx ON treatments (owner_user_id);
CREATE INDEX IF NOT EXISTS treatments_status_idx ON treatments (status);

CREATE TABLE IF NOT EXISTS doses (
	id              TEXT PRIMARY KEY,
	treatment_id    TEXT NOT NULL REFERENCES treatments (id),
	owner_user_id   TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	medication_name TEXT NOT NULL,
	scheduled_at    TIMESTAMPTZ NOT NULL,
	confirmed_at    TIMESTAMPTZ NULL,
	status          TEXT NOT NULL,
	version         BIGINT NOT NULL DEFAULT 0,
	notes           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	UNIQUE (treatment_id, seq)
);
CREATE INDEX IF NOT EXISTS doses_scheduled_idx ON doses (scheduled_at);
CREATE INDEX IF NOT EXISTS doses_owner_scheduled_idx ON doses (owner_user_id, scheduled_at);

CREATE TABLE IF NOT EXISTS notification_preferences (
	user_id               TEXT PRIMARY KEY,
	notifications_enabled BOOLEAN NOT NULL,
	advance_reminder      BOOLEAN NOT NULL,
	telegram_chat_id      TEXT NOT NULL DEFAULT '',
	telegram_enabled      BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at            TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sent_notifications (
	dose_id TEXT NOT NULL,
	kind    TEXT NOT NULL,
	sent_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (dose_id, kind)
);
`

// unique_violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
