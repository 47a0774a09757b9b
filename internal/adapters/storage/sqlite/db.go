package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// Open abre (o crea) el archivo SQLite. ":memory:" sirve para tests.
// Una sola conexión: SQLite serializa escrituras igual, y así ":memory:"
// no se parte en varias bases.
func Open(path string) (*sqlx.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path
	}
	dsn += sep(dsn) + "_foreign_keys=on&_busy_timeout=5000&_loc=UTC"

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func sep(dsn string) string {
	if strings.Contains(dsn, "?") {
		return "&"
	}
	return "?"
}

func Migrate(ctx context.Context, db *sqlx.DB) error {
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
	active        BOOLEAN NOT NULL DEFAULT 1,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS medications_owner_idx ON medications (owner_user_id);

CREATE TABLE IF NOT EXISTS treatments (
	id               TEXT PRIMARY KEY,
	owner_user_id    TEXT NOT NULL,
	medication_id    TEXT NOT NULL REFERENCES medications (id),
	medication_name  TEXT NOT NULL,
	start_at         TIMESTAMP NOT NULL,
	interval_seconds INTEGER NOT NULL CHECK (interval_seconds > 0),
	anchor           TEXT NOT NULL,
	status           TEXT NOT NULL,
	deactivated_at   TIMESTAMP NULL,
	ends_at          TIMESTAMP NULL,
	max_occurrences  INTEGER NOT NULL DEFAULT 0,
	notes            TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS treatments_owner_idx ON treatments (owner_user_id);

CREATE TABLE IF NOT EXISTS doses (
	id              TEXT PRIMARY KEY,
	treatment_id    TEXT NOT NULL,
	owner_user_id   TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	medication_name TEXT NOT NULL,
	scheduled_at    TIMESTAMP NOT NULL,
	confirmed_at    TIMESTAMP NULL,
	status          TEXT NOT NULL,
	version         INTEGER NOT NULL DEFAULT 0,
	notes           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL,
	UNIQUE (treatment_id, seq)
);
CREATE INDEX IF NOT EXISTS doses_scheduled_idx ON doses (scheduled_at);

CREATE TABLE IF NOT EXISTS notification_preferences (
	user_id               TEXT PRIMARY KEY,
	notifications_enabled BOOLEAN NOT NULL,
	advance_reminder      BOOLEAN NOT NULL,
	telegram_chat_id      TEXT NOT NULL DEFAULT '',
	telegram_enabled      BOOLEAN NOT NULL DEFAULT 0,
	updated_at            TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sent_notifications (
	dose_id TEXT NOT NULL,
	kind    TEXT NOT NULL,
	sent_at TIMESTAMP NOT NULL,
	PRIMARY KEY (dose_id, kind)
);
`

func isConstraintViolation(err error) bool {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	return sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
