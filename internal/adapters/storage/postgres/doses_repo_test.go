package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"doseclock/internal/domain/doses"
)

// driver mínimo: cada Exec devuelve un resultado cuyo RowsAffected falla.
type brokenResultConnector struct{}

func (brokenResultConnector) Connect(context.Context) (driver.Conn, error) { return brokenConn{}, nil }
func (brokenResultConnector) Driver() driver.Driver                        { return brokenDriver{} }

type brokenDriver struct{}

func (brokenDriver) Open(string) (driver.Conn, error) { return brokenConn{}, nil }

type brokenConn struct{}

func (brokenConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (brokenConn) Close() error                        { return nil }
func (brokenConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

func (brokenConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return brokenResult{}, nil
}

var errRowsAffected = errors.New("rows affected unavailable")

type brokenResult struct{}

func (brokenResult) LastInsertId() (int64, error) { return 0, nil }
func (brokenResult) RowsAffected() (int64, error) { return 0, errRowsAffected }

func TestDosesRepo_UpdateIfVersionPropagatesRowsAffectedError(t *testing.T) {
	db := sql.OpenDB(brokenResultConnector{})
	t.Cleanup(func() { _ = db.Close() })

	repo := NewDosesRepo(db)
	d := doses.Dose{
		ID:          "d1",
		Status:      doses.StatusConfirmed,
		Version:     2,
		ScheduledAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 3, 1, 8, 3, 0, 0, time.UTC),
	}

	err := repo.UpdateIfVersion(context.Background(), d, 1)
	if !errors.Is(err, errRowsAffected) {
		t.Fatalf("expected rows affected error, got %v", err)
	}
	var stale *doses.StaleWriteError
	if errors.As(err, &stale) || errors.Is(err, doses.ErrNotFound) {
		t.Fatalf("driver error must not look like a lost race, got %v", err)
	}
}
