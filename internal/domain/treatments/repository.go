package treatments

import "context"

type Repository interface {
	Create(ctx context.Context, t Treatment) error
	Update(ctx context.Context, t Treatment) error
	GetByID(ctx context.Context, id string) (Treatment, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Treatment, error)
	// ListActive: todos los usuarios, para el evaluador.
	ListActive(ctx context.Context) ([]Treatment, error)
}
