package preferences

import "context"

type Repository interface {
	// Get devuelve ErrNotFound si el usuario nunca guardó preferencias.
	Get(ctx context.Context, userID string) (Preferences, error)
	Upsert(ctx context.Context, p Preferences) error
}
