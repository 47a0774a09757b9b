package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"doseclock/internal/domain/doses"
)

type DosesRepo struct {
	db *sql.DB
}

func NewDosesRepo(db *sql.DB) *DosesRepo {
	return &DosesRepo{db: db}
}

const doseColumns = `
	id, treatment_id, owner_user_id, seq,
	medication_name,
	scheduled_at, confirmed_at,
	status, version, notes,
	created_at, updated_at`

func (r *DosesRepo) Create(ctx context.Context, d doses.Dose) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO doses (`+doseColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		d.ID,
		d.TreatmentID,
		d.OwnerUserID,
		d.Seq,
		d.MedicationName,
		d.ScheduledAt,
		toNullTime(d.ConfirmedAt),
		string(d.Status),
		d.Version,
		d.Notes,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return doses.ErrDuplicate
	}
	return err
}

func (r *DosesRepo) GetByID(ctx context.Context, id string) (doses.Dose, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return doses.Dose{}, doses.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+doseColumns+` FROM doses WHERE id = $1`, id)

	d, err := scanDose(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return doses.Dose{}, doses.ErrNotFound
		}
		return doses.Dose{}, err
	}
	return d, nil
}

// UpdateIfVersion: compare-and-set en el WHERE. Si no afectó filas hay que
// distinguir entre "no existe" y "otra escritura ganó".
func (r *DosesRepo) UpdateIfVersion(ctx context.Context, d doses.Dose, expected int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE doses
		SET
			confirmed_at = $3,
			status = $4,
			version = $5,
			notes = $6,
			updated_at = $7
		WHERE id = $1 AND version = $2
	`,
		d.ID,
		expected,
		toNullTime(d.ConfirmedAt),
		string(d.Status),
		d.Version,
		d.Notes,
		d.UpdatedAt,
	)
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

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM doses WHERE id = $1)`, d.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return doses.ErrNotFound
	}
	return &doses.StaleWriteError{DoseID: d.ID, Expected: expected}
}

func (r *DosesRepo) LastByTreatment(ctx context.Context, treatmentID string) (doses.Dose, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+doseColumns+`
		FROM doses
		WHERE treatment_id = $1
		ORDER BY seq DESC
		LIMIT 1
	`, treatmentID)

	d, err := scanDose(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return doses.Dose{}, doses.ErrNotFound
		}
		return doses.Dose{}, err
	}
	return d, nil
}

func (r *DosesRepo) List(ctx context.Context, filter doses.ListFilter) ([]doses.Dose, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + doseColumns + ` FROM doses WHERE TRUE`)

	args := []any{}
	argN := 1

	if filter.TreatmentID != "" {
		sb.WriteString(fmt.Sprintf(" AND treatment_id = $%d", argN))
		args = append(args, filter.TreatmentID)
		argN++
	}
	if filter.OwnerUserID != "" {
		sb.WriteString(fmt.Sprintf(" AND owner_user_id = $%d", argN))
		args = append(args, filter.OwnerUserID)
		argN++
	}
	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND scheduled_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND scheduled_at <= $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	if filter.Desc {
		sb.WriteString(" ORDER BY scheduled_at DESC, id DESC")
	} else {
		sb.WriteString(" ORDER BY scheduled_at ASC, id ASC")
	}
	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
		args = append(args, filter.Limit)
	}

	return r.query(ctx, sb.String(), args...)
}

func (r *DosesRepo) ListUnresolved(ctx context.Context, before time.Time) ([]doses.Dose, error) {
	return r.query(ctx, `
		SELECT `+doseColumns+`
		FROM doses
		WHERE confirmed_at IS NULL
		  AND status <> $1
		  AND scheduled_at <= $2
		ORDER BY scheduled_at ASC, id ASC
	`, string(doses.StatusMissed), before)
}

func (r *DosesRepo) query(ctx context.Context, q string, args ...any) ([]doses.Dose, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]doses.Dose, 0)
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDose(s rowScanner) (doses.Dose, error) {
	var (
		d           doses.Dose
		confirmedAt sql.NullTime
		status      string
	)
	if err := s.Scan(
		&d.ID,
		&d.TreatmentID,
		&d.OwnerUserID,
		&d.Seq,
		&d.MedicationName,
		&d.ScheduledAt,
		&confirmedAt,
		&status,
		&d.Version,
		&d.Notes,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return doses.Dose{}, err
	}
	d.ConfirmedAt = fromNullTime(confirmedAt)
	d.Status = doses.Status(status)
	return d, nil
}
