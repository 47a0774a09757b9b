package doses

import (
	"context"
	"time"
)

type Repository interface {
	// Create devuelve ErrDuplicate si el id ya existe.
	Create(ctx context.Context, d Dose) error
	GetByID(ctx context.Context, id string) (Dose, error)

	// UpdateIfVersion escribe solo si la versión guardada es expected;
	// si no, devuelve *StaleWriteError.
	UpdateIfVersion(ctx context.Context, d Dose, expected int64) error

	// LastByTreatment devuelve la dosis de mayor Seq (ErrNotFound si no hay).
	LastByTreatment(ctx context.Context, treatmentID string) (Dose, error)

	List(ctx context.Context, filter ListFilter) ([]Dose, error)

	// ListUnresolved: sin confirmación, no marcadas missed y ScheduledAt <= before.
	ListUnresolved(ctx context.Context, before time.Time) ([]Dose, error)
}

type ListFilter struct {
	TreatmentID string
	OwnerUserID string

	// sobre ScheduledAt, ambos inclusivos
	From *time.Time
	To   *time.Time

	Limit int  // 0 = sin límite
	Desc  bool // más reciente primero
}
