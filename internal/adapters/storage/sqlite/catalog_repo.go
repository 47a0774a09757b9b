package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"doseclock/internal/domain/medications"
	"doseclock/internal/domain/schedule"
	"doseclock/internal/domain/treatments"

	"github.com/jmoiron/sqlx"
)

// ---- medications ----

type medicationRow struct {
	ID          string    `db:"id"`
	OwnerUserID string    `db:"owner_user_id"`
	Name        string    `db:"name"`
	Color       string    `db:"color"`
	Notes       string    `db:"notes"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r medicationRow) medication() medications.Medication {
	return medications.Medication(r)
}

type MedicationsRepo struct {
	db *sqlx.DB
}

func NewMedicationsRepo(db *sqlx.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

const medicationColumns = `id, owner_user_id, name, color, notes, active, created_at, updated_at`

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	row := medicationRow(m)
	row.CreatedAt, row.UpdatedAt = m.CreatedAt.UTC(), m.UpdatedAt.UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO medications (`+medicationColumns+`)
		VALUES (:id, :owner_user_id, :name, :color, :notes, :active, :created_at, :updated_at)
	`, row)
	return err
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Medication) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medications SET name = ?, color = ?, notes = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, m.Name, m.Color, m.Notes, m.Active, m.UpdatedAt.UTC(), m.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	var row medicationRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+medicationColumns+` FROM medications WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return medications.Medication{}, medications.ErrNotFound
		}
		return medications.Medication{}, err
	}
	return row.medication(), nil
}

func (r *MedicationsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]medications.Medication, error) {
	var rows []medicationRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT `+medicationColumns+` FROM medications
		WHERE owner_user_id = ?
		ORDER BY lower(name) ASC, created_at ASC
	`, ownerUserID); err != nil {
		return nil, err
	}
	out := make([]medications.Medication, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.medication())
	}
	return out, nil
}

// ---- treatments ----

type treatmentRow struct {
	ID              string       `db:"id"`
	OwnerUserID     string       `db:"owner_user_id"`
	MedicationID    string       `db:"medication_id"`
	MedicationName  string       `db:"medication_name"`
	StartAt         time.Time    `db:"start_at"`
	IntervalSeconds int64        `db:"interval_seconds"`
	Anchor          string       `db:"anchor"`
	Status          string       `db:"status"`
	DeactivatedAt   sql.NullTime `db:"deactivated_at"`
	EndsAt          sql.NullTime `db:"ends_at"`
	MaxOccurrences  int          `db:"max_occurrences"`
	Notes           string       `db:"notes"`
	CreatedAt       time.Time    `db:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

func toTreatmentRow(t treatments.Treatment) treatmentRow {
	return treatmentRow{
		ID:              t.ID,
		OwnerUserID:     t.OwnerUserID,
		MedicationID:    t.MedicationID,
		MedicationName:  t.MedicationName,
		StartAt:         t.StartAt.UTC(),
		IntervalSeconds: int64(t.Interval / time.Second),
		Anchor:          string(t.Anchor),
		Status:          string(t.Status),
		DeactivatedAt:   nullTime(t.DeactivatedAt),
		EndsAt:          nullTime(t.EndsAt),
		MaxOccurrences:  t.MaxOccurrences,
		Notes:           t.Notes,
		CreatedAt:       t.CreatedAt.UTC(),
		UpdatedAt:       t.UpdatedAt.UTC(),
	}
}

func (r treatmentRow) treatment() treatments.Treatment {
	return treatments.Treatment{
		ID:             r.ID,
		OwnerUserID:    r.OwnerUserID,
		MedicationID:   r.MedicationID,
		MedicationName: r.MedicationName,
		StartAt:        r.StartAt,
		Interval:       time.Duration(r.IntervalSeconds) * time.Second,
		Anchor:         schedule.AnchorMode(r.Anchor),
		Status:         treatments.Status(r.Status),
		DeactivatedAt:  timePtr(r.DeactivatedAt),
		EndsAt:         timePtr(r.EndsAt),
		MaxOccurrences: r.MaxOccurrences,
		Notes:          r.Notes,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type TreatmentsRepo struct {
	db *sqlx.DB
}

func NewTreatmentsRepo(db *sqlx.DB) *TreatmentsRepo {
	return &TreatmentsRepo{db: db}
}

const treatmentColumns = `id, owner_user_id, medication_id, medication_name, start_at, interval_seconds,
	anchor, status, deactivated_at, ends_at, max_occurrences, notes, created_at, updated_at`

func (r *TreatmentsRepo) Create(ctx context.Context, t treatments.Treatment) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO treatments (`+treatmentColumns+`)
		VALUES (:id, :owner_user_id, :medication_id, :medication_name, :start_at, :interval_seconds,
			:anchor, :status, :deactivated_at, :ends_at, :max_occurrences, :notes, :created_at, :updated_at)
	`, toTreatmentRow(t))
	return err
}

func (r *TreatmentsRepo) Update(ctx context.Context, t treatments.Treatment) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE treatments
		SET anchor = :anchor, status = :status, deactivated_at = :deactivated_at,
			notes = :notes, updated_at = :updated_at
		WHERE id = :id
	`, toTreatmentRow(t))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return treatments.ErrNotFound
	}
	return nil
}

func (r *TreatmentsRepo) GetByID(ctx context.Context, id string) (treatments.Treatment, error) {
	var row treatmentRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+treatmentColumns+` FROM treatments WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return treatments.Treatment{}, treatments.ErrNotFound
		}
		return treatments.Treatment{}, err
	}
	return row.treatment(), nil
}

func (r *TreatmentsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]treatments.Treatment, error) {
	return r.selectTreatments(ctx, `
		SELECT `+treatmentColumns+` FROM treatments WHERE owner_user_id = ? ORDER BY created_at ASC
	`, ownerUserID)
}

func (r *TreatmentsRepo) ListActive(ctx context.Context) ([]treatments.Treatment, error) {
	return r.selectTreatments(ctx, `
		SELECT `+treatmentColumns+` FROM treatments WHERE status = ? ORDER BY created_at ASC
	`, string(treatments.StatusActive))
}

func (r *TreatmentsRepo) selectTreatments(ctx context.Context, q string, args ...any) ([]treatments.Treatment, error) {
	var rows []treatmentRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]treatments.Treatment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.treatment())
	}
	return out, nil
}
