package notifications

import "context"

// SentLog persiste el seen-set entre reinicios.
type SentLog interface {
	// SentFor devuelve lo ya enviado para esas dosis.
	SentFor(ctx context.Context, doseIDs []string) ([]Sent, error)
	// MarkSent es idempotente: repetir (dose, kind) no es error.
	MarkSent(ctx context.Context, s Sent) error
}
