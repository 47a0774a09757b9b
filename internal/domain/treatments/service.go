package treatments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"doseclock/internal/domain/medications"
	"doseclock/internal/domain/schedule"
	"doseclock/internal/platform/clock"
	"doseclock/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("treatment not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMedicationUnavailable: el medicamento no existe, es de otro usuario o está inactivo.
	ErrMedicationUnavailable = errors.New("medication unavailable")
)

const (
	MinInterval     = 30 * time.Minute
	MaxInterval     = 168 * time.Hour
	MaxDurationDays = 5 * 365
	maxStartAge     = 365 * 24 * time.Hour
)

// MedicationLookup resuelve el nombre de un medicamento activo del usuario.
type MedicationLookup interface {
	NameFor(ctx context.Context, medicationID, ownerUserID string) (string, error)
}

// Seeder materializa las próximas dosis de un plan (lo implementa doses).
type Seeder interface {
	EnsureUpcoming(ctx context.Context, plan schedule.Plan, now time.Time) (int, error)
}

type Service struct {
	repo   Repository
	meds   MedicationLookup
	seeder Seeder
	now    func() time.Time
	log    logger.Logger
}

func NewService(repo Repository, meds MedicationLookup, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo: repo,
		meds: meds,
		now:  time.Now,
		log:  log,
	}
}

// UseSeeder se llama después de construir doses.Service (dependencia circular).
func (s *Service) UseSeeder(seeder Seeder) { s.seeder = seeder }

// UseClock reemplaza el reloj del sistema (reloj manual, offset calibrado).
func (s *Service) UseClock(c clock.Clock) {
	if c != nil {
		s.now = c.Now
	}
}

type CreateInput struct {
	MedicationID   string
	StartAt        time.Time
	Interval       time.Duration
	Anchor         string
	DurationDays   *int
	MaxOccurrences int
	Notes          string
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Treatment, error) {
	if strings.TrimSpace(ownerUserID) == "" || strings.TrimSpace(in.MedicationID) == "" {
		return Treatment{}, ErrInvalidInput
	}

	name, err := s.meds.NameFor(ctx, strings.TrimSpace(in.MedicationID), ownerUserID)
	if err != nil {
		if errors.Is(err, medications.ErrNotFound) || errors.Is(err, medications.ErrForbidden) || errors.Is(err, medications.ErrInactive) {
			return Treatment{}, ErrMedicationUnavailable
		}
		return Treatment{}, fmt.Errorf("medication: %w", err)
	}

	anchor, err := schedule.ParseAnchorMode(in.Anchor)
	if err != nil {
		return Treatment{}, err
	}

	now := s.now()
	if err := validateDefinition(in, now); err != nil {
		return Treatment{}, err
	}

	t := Treatment{
		ID:             uuid.NewString(),
		OwnerUserID:    ownerUserID,
		MedicationID:   strings.TrimSpace(in.MedicationID),
		MedicationName: name,
		StartAt:        in.StartAt.UTC(),
		Interval:       in.Interval,
		Anchor:         anchor,
		Status:         StatusActive,
		MaxOccurrences: in.MaxOccurrences,
		Notes:          strings.TrimSpace(in.Notes),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.DurationDays != nil {
		ends := t.StartAt.Add(time.Duration(*in.DurationDays) * 24 * time.Hour)
		t.EndsAt = &ends
	}

	if err := schedule.Validate(t.Plan()); err != nil {
		return Treatment{}, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return Treatment{}, err
	}

	s.seed(ctx, t, now)
	return t, nil
}

func validateDefinition(in CreateInput, now time.Time) error {
	if in.StartAt.IsZero() {
		return &schedule.InvalidScheduleError{Field: "start_at", Reason: "required"}
	}
	if in.StartAt.Before(now.Add(-maxStartAge)) {
		return &schedule.InvalidScheduleError{Field: "start_at", Reason: "more than a year in the past"}
	}
	if in.Interval < MinInterval || in.Interval > MaxInterval {
		return &schedule.InvalidScheduleError{
			Field:  "interval",
			Reason: fmt.Sprintf("must be between %s and %s, got %s", MinInterval, MaxInterval, in.Interval),
		}
	}
	if in.DurationDays != nil && (*in.DurationDays < 1 || *in.DurationDays > MaxDurationDays) {
		return &schedule.InvalidScheduleError{Field: "duration_days", Reason: fmt.Sprintf("must be between 1 and %d", MaxDurationDays)}
	}
	if in.MaxOccurrences < 0 {
		return &schedule.InvalidScheduleError{Field: "max_occurrences", Reason: "must not be negative"}
	}
	return nil
}

// seed: el evaluador vuelve a sembrar en cada pasada, así que un error acá solo se loguea.
func (s *Service) seed(ctx context.Context, t Treatment, now time.Time) {
	if s.seeder == nil || t.Status != StatusActive {
		return
	}
	if _, err := s.seeder.EnsureUpcoming(ctx, t.Plan(), now); err != nil {
		s.log.Warn("seed doses failed", map[string]any{"treatment_id": t.ID, "err": err})
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (Treatment, error) {
	if strings.TrimSpace(id) == "" {
		return Treatment{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetOwned(ctx context.Context, id, ownerUserID string) (Treatment, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return Treatment{}, err
	}
	if t.OwnerUserID != ownerUserID {
		return Treatment{}, ErrForbidden
	}
	return t, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Treatment, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

// Pause corta la generación desde ahora; lo ya materializado queda igual.
func (s *Service) Pause(ctx context.Context, id, actorUserID string) (Treatment, error) {
	return s.transition(ctx, id, actorUserID, StatusPaused)
}

func (s *Service) Resume(ctx context.Context, id, actorUserID string) (Treatment, error) {
	return s.transition(ctx, id, actorUserID, StatusActive)
}

// Finish es terminal.
func (s *Service) Finish(ctx context.Context, id, actorUserID string) (Treatment, error) {
	return s.transition(ctx, id, actorUserID, StatusFinished)
}

func (s *Service) transition(ctx context.Context, id, actorUserID string, to Status) (Treatment, error) {
	t, err := s.GetOwned(ctx, id, actorUserID)
	if err != nil {
		return Treatment{}, err
	}
	if !canTransition(t.Status, to) {
		return Treatment{}, ErrInvalidTransition
	}

	now := s.now()
	t.Status = to
	t.UpdatedAt = now
	if to == StatusActive {
		t.DeactivatedAt = nil
	} else if t.DeactivatedAt == nil {
		t.DeactivatedAt = &now
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return Treatment{}, err
	}
	s.seed(ctx, t, now)
	return t, nil
}

func canTransition(from, to Status) bool {
	switch from {
	case StatusActive:
		return to == StatusPaused || to == StatusFinished
	case StatusPaused:
		return to == StatusActive || to == StatusFinished
	}
	return false
}

type UpdateInput struct {
	Anchor *string
	Notes  *string
}

// Update: el cambio de anchor aplica solo a las dosis que se generen después.
func (s *Service) Update(ctx context.Context, id, actorUserID string, in UpdateInput) (Treatment, error) {
	t, err := s.GetOwned(ctx, id, actorUserID)
	if err != nil {
		return Treatment{}, err
	}
	if t.Status == StatusFinished {
		return Treatment{}, ErrInvalidTransition
	}

	if in.Anchor != nil {
		anchor, err := schedule.ParseAnchorMode(*in.Anchor)
		if err != nil {
			return Treatment{}, err
		}
		t.Anchor = anchor
	}
	if in.Notes != nil {
		t.Notes = strings.TrimSpace(*in.Notes)
	}

	t.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, t); err != nil {
		return Treatment{}, err
	}
	return t, nil
}

// PlanFor implementa doses.PlanLookup.
func (s *Service) PlanFor(ctx context.Context, treatmentID string) (schedule.Plan, error) {
	t, err := s.GetByID(ctx, treatmentID)
	if err != nil {
		return schedule.Plan{}, err
	}
	return t.Plan(), nil
}

func (s *Service) ActivePlans(ctx context.Context, ownerUserID string) ([]schedule.Plan, error) {
	items, err := s.repo.ListByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	out := make([]schedule.Plan, 0, len(items))
	for _, t := range items {
		if t.Status == StatusActive {
			out = append(out, t.Plan())
		}
	}
	return out, nil
}

// AllActivePlans implementa engine.PlanSource.
func (s *Service) AllActivePlans(ctx context.Context) ([]schedule.Plan, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]schedule.Plan, 0, len(items))
	for _, t := range items {
		out = append(out, t.Plan())
	}
	return out, nil
}
