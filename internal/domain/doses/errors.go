package doses

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("dose not found")
	ErrDuplicate    = errors.New("dose already exists")

	// ErrNotYetConfirmable: confirmación antes de ScheduledAt - Advance.
	ErrNotYetConfirmable = errors.New("dose not yet confirmable")
)

// AlreadyConfirmedError: la dosis ya está confirmed/late. No se reintenta.
type AlreadyConfirmedError struct {
	DoseID      string
	Status      Status
	ConfirmedAt time.Time
}

func (e *AlreadyConfirmedError) Error() string {
	return fmt.Sprintf("dose %s already %s at %s", e.DoseID, e.Status, e.ConfirmedAt.Format(time.RFC3339))
}

// StaleWriteError: se perdió el compare-and-set sobre Version.
type StaleWriteError struct {
	DoseID   string
	Expected int64
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write on dose %s (expected version %d)", e.DoseID, e.Expected)
}

func isStale(err error) bool {
	var stale *StaleWriteError
	return errors.As(err, &stale)
}
