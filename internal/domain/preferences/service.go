package preferences

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"doseclock/internal/platform/clock"
)

// chat ids de Telegram: enteros, negativos para grupos
var chatIDPattern = regexp.MustCompile(`^-?[0-9]{1,20}$`)

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

// Get nunca devuelve ErrNotFound: sin fila se usan los defaults.
func (s *Service) Get(ctx context.Context, userID string) (Preferences, error) {
	if strings.TrimSpace(userID) == "" {
		return Preferences{}, ErrInvalidInput
	}
	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Defaults(userID), nil
	}
	if err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// UpdateInput: punteros para PATCH, nil = no tocar.
type UpdateInput struct {
	NotificationsEnabled *bool
	AdvanceReminder      *bool
	TelegramChatID       *string
	TelegramEnabled      *bool
}

func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (Preferences, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return Preferences{}, err
	}

	if in.NotificationsEnabled != nil {
		p.NotificationsEnabled = *in.NotificationsEnabled
	}
	if in.AdvanceReminder != nil {
		p.AdvanceReminder = *in.AdvanceReminder
	}
	if in.TelegramChatID != nil {
		v := strings.TrimSpace(*in.TelegramChatID)
		if v != "" && !chatIDPattern.MatchString(v) {
			return Preferences{}, ErrInvalidInput
		}
		p.TelegramChatID = v
		if v == "" {
			p.TelegramEnabled = false
		}
	}
	if in.TelegramEnabled != nil {
		if *in.TelegramEnabled && p.TelegramChatID == "" {
			return Preferences{}, ErrInvalidInput
		}
		p.TelegramEnabled = *in.TelegramEnabled
	}

	p.UpdatedAt = s.now()
	if err := s.repo.Upsert(ctx, p); err != nil {
		return Preferences{}, err
	}
	return p, nil
}
