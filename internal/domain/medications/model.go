package medications

import "time"

// Medication es el catálogo propio de cada usuario.
// Los tratamientos guardan una copia del nombre, así que desactivar
// un medicamento no cambia el historial.
type Medication struct {
	ID          string
	OwnerUserID string

	Name  string
	Color string // #RRGGBB, opcional
	Notes string

	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
