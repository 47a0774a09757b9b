package medications

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"doseclock/internal/platform/clock"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("medication not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInactive     = errors.New("medication inactive")
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

const (
	minNameLen = 2
	maxNameLen = 200
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *Service) UseClock(c clock.Clock) {
	if c != nil {
		s.now = c.Now
	}
}

type CreateInput struct {
	Name  string
	Color string
	Notes string
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Medication, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Medication{}, ErrInvalidInput
	}
	name, err := validName(in.Name)
	if err != nil {
		return Medication{}, err
	}
	color, err := validColor(in.Color)
	if err != nil {
		return Medication{}, err
	}

	now := s.now()
	m := Medication{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Name:        name,
		Color:       color,
		Notes:       strings.TrimSpace(in.Notes),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

// UpdateInput: punteros para PATCH, nil = no tocar.
type UpdateInput struct {
	Name   *string
	Color  *string
	Notes  *string
	Active *bool
}

func (s *Service) Update(ctx context.Context, id, actorUserID string, in UpdateInput) (Medication, error) {
	m, err := s.GetOwned(ctx, id, actorUserID)
	if err != nil {
		return Medication{}, err
	}

	if in.Name != nil {
		name, err := validName(*in.Name)
		if err != nil {
			return Medication{}, err
		}
		m.Name = name
	}
	if in.Color != nil {
		color, err := validColor(*in.Color)
		if err != nil {
			return Medication{}, err
		}
		m.Color = color
	}
	if in.Notes != nil {
		m.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Active != nil {
		m.Active = *in.Active
	}

	m.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Medication, error) {
	if strings.TrimSpace(id) == "" {
		return Medication{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// GetOwned devuelve ErrForbidden si el medicamento es de otro usuario.
func (s *Service) GetOwned(ctx context.Context, id, ownerUserID string) (Medication, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return Medication{}, err
	}
	if m.OwnerUserID != ownerUserID {
		return Medication{}, ErrForbidden
	}
	return m, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Medication, error) {
	return s.repo.ListByOwner(ctx, ownerUserID)
}

// NameFor lo usa treatments para copiar el nombre al crear un tratamiento.
// Solo medicamentos activos del mismo dueño.
func (s *Service) NameFor(ctx context.Context, id, ownerUserID string) (string, error) {
	m, err := s.GetOwned(ctx, id, ownerUserID)
	if err != nil {
		return "", err
	}
	if !m.Active {
		return "", ErrInactive
	}
	return m.Name, nil
}

func validName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < minNameLen || n > maxNameLen {
		return "", ErrInvalidInput
	}
	return name, nil
}

func validColor(raw string) (string, error) {
	c := strings.TrimSpace(raw)
	if c == "" {
		return "", nil
	}
	if !colorPattern.MatchString(c) {
		return "", ErrInvalidInput
	}
	return strings.ToUpper(c), nil
}
