package schedule

import (
	"fmt"
	"strings"
	"time"
)

// AnchorMode decide desde qué instante se calcula la siguiente dosis.
type AnchorMode string

const (
	// AnchorFromScheduled: cadencia fija desde la hora programada original.
	AnchorFromScheduled AnchorMode = "from_scheduled"
	// AnchorFromConfirmation: la siguiente dosis parte de la hora real de confirmación.
	AnchorFromConfirmation AnchorMode = "from_confirmation"
)

func (m AnchorMode) Valid() bool {
	return m == AnchorFromScheduled || m == AnchorFromConfirmation
}

// ParseAnchorMode acepta los valores canónicos; vacío => from_scheduled.
func ParseAnchorMode(s string) (AnchorMode, error) {
	m := AnchorMode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return AnchorFromScheduled, nil
	}
	if !m.Valid() {
		return "", &InvalidScheduleError{Field: "anchor", Reason: fmt.Sprintf("unknown anchor mode %q", s)}
	}
	return m, nil
}

// Plan son los parámetros de recurrencia de un tratamiento.
type Plan struct {
	TreatmentID    string
	OwnerUserID    string
	MedicationName string

	Start    time.Time
	Interval time.Duration
	Anchor   AnchorMode

	Active        bool
	DeactivatedAt *time.Time

	// Condición de fin opcional; gana la que ocurra primero.
	EndsAt         *time.Time // inclusivo
	MaxOccurrences int        // 0 = sin límite
}

// Occurrence es una dosis concreta, materializada o proyectada.
type Occurrence struct {
	DoseID    string
	Seq       int // 1-based
	Scheduled time.Time
	Confirmed *time.Time
}

// InvalidScheduleError se devuelve al definir el tratamiento, nunca a mitad de la secuencia.
type InvalidScheduleError struct {
	Field  string
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule: %s: %s", e.Field, e.Reason)
}

func Validate(p Plan) error {
	if strings.TrimSpace(p.TreatmentID) == "" {
		return &InvalidScheduleError{Field: "treatment_id", Reason: "required"}
	}
	if p.Start.IsZero() {
		return &InvalidScheduleError{Field: "start", Reason: "required"}
	}
	if p.Interval <= 0 {
		return &InvalidScheduleError{Field: "interval", Reason: fmt.Sprintf("must be positive, got %s", p.Interval)}
	}
	if !p.Anchor.Valid() {
		return &InvalidScheduleError{Field: "anchor", Reason: fmt.Sprintf("unknown anchor mode %q", p.Anchor)}
	}
	if p.EndsAt != nil && p.EndsAt.Before(p.Start) {
		return &InvalidScheduleError{Field: "ends_at", Reason: "before start"}
	}
	if p.MaxOccurrences < 0 {
		return &InvalidScheduleError{Field: "max_occurrences", Reason: "must not be negative"}
	}
	return nil
}
