package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"doseclock/internal/domain/doses"
)

type doseRepo struct {
	mu   sync.RWMutex
	byID map[string]doses.Dose
}

func NewDoseRepo() doses.Repository {
	return &doseRepo{
		byID: make(map[string]doses.Dose),
	}
}

func (r *doseRepo) Create(ctx context.Context, d doses.Dose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == "" {
		return errors.New("dose id required")
	}
	if _, exists := r.byID[d.ID]; exists {
		return doses.ErrDuplicate
	}

	r.byID[d.ID] = d
	return nil
}

func (r *doseRepo) GetByID(ctx context.Context, id string) (doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return doses.Dose{}, doses.ErrNotFound
	}
	return d, nil
}

func (r *doseRepo) UpdateIfVersion(ctx context.Context, d doses.Dose, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[d.ID]
	if !ok {
		return doses.ErrNotFound
	}
	if cur.Version != expected {
		return &doses.StaleWriteError{DoseID: d.ID, Expected: expected}
	}
	r.byID[d.ID] = d
	return nil
}

func (r *doseRepo) LastByTreatment(ctx context.Context, treatmentID string) (doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		last  doses.Dose
		found bool
	)
	for _, d := range r.byID {
		if d.TreatmentID != treatmentID {
			continue
		}
		if !found || d.Seq > last.Seq {
			last, found = d, true
		}
	}
	if !found {
		return doses.Dose{}, doses.ErrNotFound
	}
	return last, nil
}

func (r *doseRepo) List(ctx context.Context, filter doses.ListFilter) ([]doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]doses.Dose, 0)
	for _, d := range r.byID {
		if filter.TreatmentID != "" && d.TreatmentID != filter.TreatmentID {
			continue
		}
		if filter.OwnerUserID != "" && d.OwnerUserID != filter.OwnerUserID {
			continue
		}
		if !inRange(d.ScheduledAt, filter.From, filter.To) {
			continue
		}
		out = append(out, d)
	}

	sortDoses(out, filter.Desc)

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *doseRepo) ListUnresolved(ctx context.Context, before time.Time) ([]doses.Dose, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]doses.Dose, 0)
	for _, d := range r.byID {
		if d.ConfirmedAt != nil || d.Status == doses.StatusMissed {
			continue
		}
		if d.ScheduledAt.After(before) {
			continue
		}
		out = append(out, d)
	}
	sortDoses(out, false)
	return out, nil
}

func inRange(at time.Time, from, to *time.Time) bool {
	if from != nil && at.Before(*from) {
		return false
	}
	if to != nil && at.After(*to) {
		return false
	}
	return true
}

// Orden por scheduled_at y, en empate, por id; igual que el ORDER BY de postgres.
func sortDoses(items []doses.Dose, desc bool) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if desc {
			a, b = b, a
		}
		if a.ScheduledAt.Equal(b.ScheduledAt) {
			return a.ID < b.ID
		}
		return a.ScheduledAt.Before(b.ScheduledAt)
	})
}
