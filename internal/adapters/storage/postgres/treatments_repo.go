package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"doseclock/internal/domain/schedule"
	"doseclock/internal/domain/treatments"
)

type TreatmentsRepo struct {
	db *sql.DB
}

func NewTreatmentsRepo(db *sql.DB) *TreatmentsRepo {
	return &TreatmentsRepo{db: db}
}

const treatmentColumns = `
	id, owner_user_id,
	medication_id, medication_name,
	start_at, interval_seconds, anchor,
	status, deactivated_at,
	ends_at, max_occurrences,
	notes, created_at, updated_at`

func (r *TreatmentsRepo) Create(ctx context.Context, t treatments.Treatment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO treatments (`+treatmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		t.ID,
		t.OwnerUserID,
		t.MedicationID,
		t.MedicationName,
		t.StartAt,
		int64(t.Interval/time.Second),
		string(t.Anchor),
		string(t.Status),
		toNullTime(t.DeactivatedAt),
		toNullTime(t.EndsAt),
		t.MaxOccurrences,
		t.Notes,
		t.CreatedAt,
		t.UpdatedAt,
	)
	return err
}

// Update solo toca lo que puede cambiar después de crear.
func (r *TreatmentsRepo) Update(ctx context.Context, t treatments.Treatment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE treatments
		SET
			anchor = $2,
			status = $3,
			deactivated_at = $4,
			notes = $5,
			updated_at = $6
		WHERE id = $1
	`,
		t.ID,
		string(t.Anchor),
		string(t.Status),
		toNullTime(t.DeactivatedAt),
		t.Notes,
		t.UpdatedAt,
	)
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
	id = strings.TrimSpace(id)
	if id == "" {
		return treatments.Treatment{}, treatments.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+treatmentColumns+` FROM treatments WHERE id = $1`, id)

	t, err := scanTreatment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return treatments.Treatment{}, treatments.ErrNotFound
		}
		return treatments.Treatment{}, err
	}
	return t, nil
}

func (r *TreatmentsRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]treatments.Treatment, error) {
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return nil, nil
	}
	return r.query(ctx, `
		SELECT `+treatmentColumns+`
		FROM treatments
		WHERE owner_user_id = $1
		ORDER BY created_at ASC
	`, ownerUserID)
}

func (r *TreatmentsRepo) ListActive(ctx context.Context) ([]treatments.Treatment, error) {
	return r.query(ctx, `
		SELECT `+treatmentColumns+`
		FROM treatments
		WHERE status = $1
		ORDER BY created_at ASC
	`, string(treatments.StatusActive))
}

func (r *TreatmentsRepo) query(ctx context.Context, q string, args ...any) ([]treatments.Treatment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]treatments.Treatment, 0)
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTreatment(s rowScanner) (treatments.Treatment, error) {
	var (
		t                    treatments.Treatment
		intervalSeconds      int64
		anchor, status       string
		deactivatedAt, endAt sql.NullTime
	)
	if err := s.Scan(
		&t.ID,
		&t.OwnerUserID,
		&t.MedicationID,
		&t.MedicationName,
		&t.StartAt,
		&intervalSeconds,
		&anchor,
		&status,
		&deactivatedAt,
		&endAt,
		&t.MaxOccurrences,
		&t.Notes,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return treatments.Treatment{}, err
	}

	t.Interval = time.Duration(intervalSeconds) * time.Second
	t.Anchor = schedule.AnchorMode(anchor)
	t.Status = treatments.Status(status)
	t.DeactivatedAt = fromNullTime(deactivatedAt)
	t.EndsAt = fromNullTime(endAt)
	return t, nil
}
