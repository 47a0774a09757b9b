package timesync

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"doseclock/internal/platform/clock"
	"doseclock/internal/platform/logger"
)

// ClockUnavailableError: no llegó una referencia utilizable. El reconciliador
// sigue funcionando con offset cero.
type ClockUnavailableError struct {
	Reference string
	Err       error
}

func (e *ClockUnavailableError) Error() string {
	if strings.TrimSpace(e.Reference) == "" {
		return "clock unavailable: no reference instant"
	}
	return fmt.Sprintf("clock unavailable: bad reference %q: %v", e.Reference, e.Err)
}

func (e *ClockUnavailableError) Unwrap() error { return e.Err }

// Reconciler corrige el reloj local con el offset medido contra una referencia
// confiable. Implementa clock.Clock.
type Reconciler struct {
	mu       sync.RWMutex
	local    clock.Clock
	offset   time.Duration
	degraded bool
	log      logger.Logger
}

func NewReconciler(local clock.Clock, log logger.Logger) *Reconciler {
	if local == nil {
		local = clock.System()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{
		local:    local,
		degraded: true,
		log:      log.With(map[string]any{"component": "timesync"}),
	}
}

// Calibrate fija offset = referencia - reloj local. Acepta RFC3339 con o sin
// fracción de segundos. Se puede llamar de nuevo; las cuentas regresivas en
// curso toman el nuevo offset en el siguiente tick.
func (r *Reconciler) Calibrate(reference string) (time.Duration, error) {
	ref, err := parseReference(reference)
	if err != nil {
		r.mu.Lock()
		r.offset = 0
		r.degraded = true
		r.mu.Unlock()

		r.log.Warn("time reference unavailable, using local clock", map[string]any{"reference": reference, "err": err})
		return 0, err
	}
	return r.CalibrateAt(ref), nil
}

func (r *Reconciler) CalibrateAt(ref time.Time) time.Duration {
	offset := ref.Sub(r.local.Now())

	r.mu.Lock()
	r.offset = offset
	r.degraded = false
	r.mu.Unlock()

	r.log.Debug("clock calibrated", map[string]any{"offset": offset.String()})
	return offset
}

func parseReference(reference string) (time.Time, error) {
	raw := strings.TrimSpace(reference)
	if raw == "" {
		return time.Time{}, &ClockUnavailableError{Reference: reference}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, &ClockUnavailableError{Reference: reference, Err: err}
	}
	return t, nil
}

// Now = reloj local + offset.
func (r *Reconciler) Now() time.Time {
	r.mu.RLock()
	offset := r.offset
	r.mu.RUnlock()
	return r.local.Now().Add(offset)
}

func (r *Reconciler) Offset() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.offset
}

// Degraded es true mientras no haya una calibración válida.
func (r *Reconciler) Degraded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.degraded
}
