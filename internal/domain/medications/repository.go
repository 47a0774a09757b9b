package medications

import "context"

type Repository interface {
	Create(ctx context.Context, m Medication) error
	Update(ctx context.Context, m Medication) error
	GetByID(ctx context.Context, id string) (Medication, error)
	// ListByOwner ordena por nombre.
	ListByOwner(ctx context.Context, ownerUserID string) ([]Medication, error)
}
