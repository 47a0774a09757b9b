package doses

import (
	"time"

	"doseclock/internal/domain/schedule"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmable Status = "confirmable"
	StatusConfirmed   Status = "confirmed"
	StatusLate        Status = "late"
	StatusMissed      Status = "missed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmable, StatusConfirmed, StatusLate, StatusMissed:
		return true
	}
	return false
}

// Resolved: confirmed, late o missed. Missed sigue aceptando una confirmación tardía.
func (s Status) Resolved() bool {
	return s == StatusConfirmed || s == StatusLate || s == StatusMissed
}

// Dose es una toma concreta. Los timestamps son la fuente de verdad;
// Status es una proyección cacheada que se recalcula al leer.
type Dose struct {
	ID          string
	TreatmentID string
	OwnerUserID string
	Seq         int

	// snapshot del nombre, sobrevive a cambios del medicamento
	MedicationName string

	ScheduledAt time.Time
	ConfirmedAt *time.Time

	Status  Status
	Version int64

	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Windows son las ventanas de tiempo alrededor de ScheduledAt.
type Windows struct {
	Advance time.Duration
	Grace   time.Duration
}

func DefaultWindows() Windows {
	return Windows{Advance: 5 * time.Minute, Grace: 20 * time.Minute}
}

func (d Dose) ConfirmableFrom(w Windows) time.Time { return d.ScheduledAt.Add(-w.Advance) }
func (d Dose) ExpiresAt(w Windows) time.Time       { return d.ScheduledAt.Add(w.Grace) }

func (d Dose) occurrence() schedule.Occurrence {
	return schedule.Occurrence{
		DoseID:    d.ID,
		Seq:       d.Seq,
		Scheduled: d.ScheduledAt,
		Confirmed: d.ConfirmedAt,
	}
}
