package notifications

import (
	"time"

	"doseclock/internal/domain/doses"
)

// Seen responde si (dose, kind) ya fue notificado. Lo mantiene el llamador.
type Seen interface {
	Seen(doseID string, kind Kind) bool
}

// DueNotifications es sin estado por llamada: devuelve los eventos que caen
// en la ventana actual y no están en seen. Las dosis resueltas se excluyen.
func DueNotifications(items []doses.Dose, now time.Time, seen Seen, cfg Config) []Event {
	out := make([]Event, 0)
	for _, d := range items {
		if d.ConfirmedAt != nil || d.Status.Resolved() {
			continue
		}

		advanceAt := d.ScheduledAt.Add(-cfg.Advance)
		if inWindow(now, advanceAt, cfg.Window) && now.Before(d.ScheduledAt) && !isSeen(seen, d.ID, KindAdvance) {
			out = append(out, newEvent(d, KindAdvance, advanceAt))
		}
		if inWindow(now, d.ScheduledAt, cfg.Window) && !isSeen(seen, d.ID, KindDue) {
			out = append(out, newEvent(d, KindDue, d.ScheduledAt))
		}
	}
	return out
}

// inWindow: now en [at, at+width).
func inWindow(now, at time.Time, width time.Duration) bool {
	return !now.Before(at) && now.Before(at.Add(width))
}

func isSeen(seen Seen, doseID string, kind Kind) bool {
	return seen != nil && seen.Seen(doseID, kind)
}

func newEvent(d doses.Dose, kind Kind, fireAt time.Time) Event {
	return Event{
		DoseID:         d.ID,
		TreatmentID:    d.TreatmentID,
		OwnerUserID:    d.OwnerUserID,
		Kind:           kind,
		MedicationName: d.MedicationName,
		ScheduledAt:    d.ScheduledAt,
		FireAt:         fireAt,
	}
}

// MissedEvents arma las alertas de dosis missed cuyo vencimiento cae en
// [now-window, now] y que todavía no se enviaron. Lo más viejo se descarta.
func MissedEvents(items []doses.Dose, now time.Time, seen Seen, grace, window time.Duration) []Event {
	out := make([]Event, 0)
	for _, d := range items {
		if d.Status != doses.StatusMissed || d.ConfirmedAt != nil {
			continue
		}
		expiry := d.ScheduledAt.Add(grace)
		if expiry.After(now) || expiry.Before(now.Add(-window)) || isSeen(seen, d.ID, KindMissed) {
			continue
		}
		out = append(out, newEvent(d, KindMissed, expiry))
	}
	return out
}
