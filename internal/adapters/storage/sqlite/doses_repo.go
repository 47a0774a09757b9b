package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"doseclock/internal/domain/doses"

	"github.com/jmoiron/sqlx"
)

type doseRow struct {
	ID             string       `db:"id"`
	TreatmentID    string       `db:"treatment_id"`
	OwnerUserID    string       `db:"owner_user_id"`
	Seq            int          `db:"seq"`
	MedicationName string       `db:"medication_name"`
	ScheduledAt    time.Time    `db:"scheduled_at"`
	ConfirmedAt    sql.NullTime `db:"confirmed_at"`
	Status         string       `db:"status"`
	Version        int64        `db:"version"`
	Notes          string       `db:"notes"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

func toDoseRow(d doses.Dose) doseRow {
	return doseRow{
		ID:             d.ID,
		TreatmentID:    d.TreatmentID,
		OwnerUserID:    d.OwnerUserID,
		Seq:            d.Seq,
		MedicationName: d.MedicationName,
		ScheduledAt:    d.ScheduledAt.UTC(),
		ConfirmedAt:    nullTime(d.ConfirmedAt),
		Status:         string(d.Status),
		Version:        d.Version,
		Notes:          d.Notes,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

func (r doseRow) dose() doses.Dose {
	return doses.Dose{
		ID:             r.ID,
		TreatmentID:    r.TreatmentID,
		OwnerUserID:    r.OwnerUserID,
		Seq:            r.Seq,
		MedicationName: r.MedicationName,
		ScheduledAt:    r.ScheduledAt,
		ConfirmedAt:    timePtr(r.ConfirmedAt),
		Status:         doses.Status(r.Status),
		Version:        r.Version,
		Notes:          r.Notes,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

const doseColumns = `id, treatment_id, owner_user_id, seq, medication_name,
	scheduled_at, confirmed_at, status, version, notes, created_at, updated_at`

type DosesRepo struct {
	db *sqlx.DB
}

func NewDosesRepo(db *sqlx.DB) *DosesRepo {
	return &DosesRepo{db: db}
}

func (r *DosesRepo) Create(ctx context.Context, d doses.Dose) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO doses (`+doseColumns+`)
		VALUES (:id, :treatment_id, :owner_user_id, :seq, :medication_name,
			:scheduled_at, :confirmed_at, :status, :version, :notes, :created_at, :updated_at)
	`, toDoseRow(d))
	if isConstraintViolation(err) {
		return doses.ErrDuplicate
	}
	return err
}

func (r *DosesRepo) GetByID(ctx context.Context, id string) (doses.Dose, error) {
	var row doseRow
	err := r.db.GetContext(ctx, &row, `SELECT `+doseColumns+` FROM doses WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return doses.Dose{}, doses.ErrNotFound
		}
		return doses.Dose{}, err
	}
	return row.dose(), nil
}

func (r *DosesRepo) UpdateIfVersion(ctx context.Context, d doses.Dose, expected int64) error {
	row := toDoseRow(d)
	res, err := r.db.ExecContext(ctx, `
		UPDATE doses
		SET confirmed_at = ?, status = ?, version = ?, notes = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`, row.ConfirmedAt, row.Status, row.Version, row.Notes, row.UpdatedAt, row.ID, expected)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM doses WHERE id = ?`, d.ID); err != nil {
		return err
	}
	if count == 0 {
		return doses.ErrNotFound
	}
	return &doses.StaleWriteError{DoseID: d.ID, Expected: expected}
}

func (r *DosesRepo) LastByTreatment(ctx context.Context, treatmentID string) (doses.Dose, error) {
	var row doseRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+doseColumns+` FROM doses
		WHERE treatment_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, treatmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return doses.Dose{}, doses.ErrNotFound
		}
		return doses.Dose{}, err
	}
	return row.dose(), nil
}

func (r *DosesRepo) List(ctx context.Context, filter doses.ListFilter) ([]doses.Dose, error) {
	q := `SELECT ` + doseColumns + ` FROM doses WHERE 1 = 1`
	args := []any{}

	if filter.TreatmentID != "" {
		q += ` AND treatment_id = ?`
		args = append(args, filter.TreatmentID)
	}
	if filter.OwnerUserID != "" {
		q += ` AND owner_user_id = ?`
		args = append(args, filter.OwnerUserID)
	}
	if filter.From != nil {
		q += ` AND scheduled_at >= ?`
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		q += ` AND scheduled_at <= ?`
		args = append(args, filter.To.UTC())
	}
	if filter.Desc {
		q += ` ORDER BY scheduled_at DESC, id DESC`
	} else {
		q += ` ORDER BY scheduled_at ASC, id ASC`
	}
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	return r.selectDoses(ctx, q, args...)
}

func (r *DosesRepo) ListUnresolved(ctx context.Context, before time.Time) ([]doses.Dose, error) {
	return r.selectDoses(ctx, `
		SELECT `+doseColumns+` FROM doses
		WHERE confirmed_at IS NULL AND status <> ? AND scheduled_at <= ?
		ORDER BY scheduled_at ASC, id ASC
	`, string(doses.StatusMissed), before.UTC())
}

func (r *DosesRepo) selectDoses(ctx context.Context, q string, args ...any) ([]doses.Dose, error) {
	var rows []doseRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]doses.Dose, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.dose())
	}
	return out, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
