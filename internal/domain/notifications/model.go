package notifications

import (
	"errors"
	"time"
)

type Kind string

const (
	KindAdvance Kind = "advance"
	KindDue     Kind = "due"
	// KindMissed sale de MissedEvents, no de DueNotifications.
	KindMissed Kind = "missed"
)

func (k Kind) Valid() bool {
	return k == KindAdvance || k == KindDue || k == KindMissed
}

var ErrInvalidInput = errors.New("invalid input")

// Event es un hecho derivado, no se persiste. Lo que se persiste es Sent.
type Event struct {
	DoseID         string
	TreatmentID    string
	OwnerUserID    string
	Kind           Kind
	MedicationName string
	ScheduledAt    time.Time
	FireAt         time.Time
}

// Sent registra que (DoseID, Kind) ya se entregó.
type Sent struct {
	DoseID string
	Kind   Kind
	SentAt time.Time
}

// Config: Window debe ser mayor que el período de evaluación para que
// cada umbral caiga en al menos una pasada.
// MissedWindow acota el reintento de alertas de dosis perdidas.
type Config struct {
	Advance      time.Duration
	Window       time.Duration
	MissedWindow time.Duration
}

func DefaultConfig() Config {
	return Config{Advance: 5 * time.Minute, Window: time.Minute, MissedWindow: time.Hour}
}
