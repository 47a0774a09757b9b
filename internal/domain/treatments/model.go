package treatments

import (
	"time"

	"doseclock/internal/domain/schedule"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusPaused || s == StatusFinished
}

// Treatment define la recurrencia de un medicamento para un usuario.
type Treatment struct {
	ID          string
	OwnerUserID string

	MedicationID   string
	MedicationName string // snapshot al crear

	StartAt  time.Time
	Interval time.Duration
	Anchor   schedule.AnchorMode

	Status        Status
	DeactivatedAt *time.Time // seteado en paused/finished

	EndsAt         *time.Time
	MaxOccurrences int

	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plan proyecta el tratamiento al generador.
func (t Treatment) Plan() schedule.Plan {
	return schedule.Plan{
		TreatmentID:    t.ID,
		OwnerUserID:    t.OwnerUserID,
		MedicationName: t.MedicationName,
		Start:          t.StartAt,
		Interval:       t.Interval,
		Anchor:         t.Anchor,
		Active:         t.Status == StatusActive,
		DeactivatedAt:  t.DeactivatedAt,
		EndsAt:         t.EndsAt,
		MaxOccurrences: t.MaxOccurrences,
	}
}
