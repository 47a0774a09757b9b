package logsink

import (
	"context"
	"time"

	"doseclock/internal/platform/logger"
	"doseclock/internal/ports/delivery"
)

// Notifier escribe cada aviso en el log. Canal por defecto sin integraciones.
type Notifier struct {
	log logger.Logger
}

func New(log logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Notifier{log: log.With(map[string]any{"channel": "log"})}
}

func (n *Notifier) Notify(ctx context.Context, m delivery.Message) error {
	n.log.Info("dose notification", map[string]any{
		"user_id":         m.UserID,
		"dose_id":         m.DoseID,
		"kind":            m.Kind,
		"medication_name": m.MedicationName,
		"scheduled_at":    m.ScheduledAt.Format(time.RFC3339),
	})
	return nil
}
