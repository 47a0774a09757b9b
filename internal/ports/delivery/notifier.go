package delivery

import (
	"context"
	"errors"
	"time"
)

// Message es lo que un canal de entrega necesita para avisar de una dosis.
type Message struct {
	UserID string
	ChatID string // destino propio del canal (p.ej. Telegram), puede estar vacío

	Kind           string // advance | due | missed
	DoseID         string
	MedicationName string
	ScheduledAt    time.Time
	MinutesUntil   int
}

// Notifier entrega un mensaje. Debe tolerar entregas repetidas.
type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

// Fanout entrega a todos los canales; junta los errores.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, m Message) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
