package notifications

import (
	"context"
	"strings"
	"time"

	"doseclock/internal/domain/doses"
)

type Service struct {
	log SentLog
	cfg Config
	now func() time.Time
}

func NewService(log SentLog, cfg Config) *Service {
	if cfg.Advance <= 0 {
		cfg.Advance = DefaultConfig().Advance
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.MissedWindow <= 0 {
		cfg.MissedWindow = DefaultConfig().MissedWindow
	}
	return &Service{log: log, cfg: cfg, now: time.Now}
}

func (s *Service) Config() Config { return s.cfg }

// Due carga el seen-set de las dosis candidatas y devuelve lo pendiente de enviar.
func (s *Service) Due(ctx context.Context, candidates []doses.Dose, now time.Time) ([]Event, error) {
	seen, err := s.seenFor(ctx, candidates)
	if err != nil {
		return nil, err
	}
	return DueNotifications(candidates, now, seen, s.cfg), nil
}

// Missed devuelve las alertas de dosis perdidas aún no entregadas. Los
// candidatos deben venir con el estado reconciliado; una entrega fallida
// vuelve a salir en la pasada siguiente mientras siga dentro de MissedWindow.
func (s *Service) Missed(ctx context.Context, candidates []doses.Dose, now time.Time, grace time.Duration) ([]Event, error) {
	seen, err := s.seenFor(ctx, candidates)
	if err != nil {
		return nil, err
	}
	return MissedEvents(candidates, now, seen, grace, s.cfg.MissedWindow), nil
}

// MarkSent se llama después de entregar: entrega al menos una vez.
func (s *Service) MarkSent(ctx context.Context, ev Event) error {
	if strings.TrimSpace(ev.DoseID) == "" || !ev.Kind.Valid() {
		return ErrInvalidInput
	}
	return s.log.MarkSent(ctx, Sent{DoseID: ev.DoseID, Kind: ev.Kind, SentAt: s.now()})
}

func (s *Service) seenFor(ctx context.Context, items []doses.Dose) (*SeenSet, error) {
	if len(items) == 0 {
		return NewSeenSet(), nil
	}
	ids := make([]string, 0, len(items))
	for _, d := range items {
		ids = append(ids, d.ID)
	}
	sent, err := s.log.SentFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	return NewSeenSet(sent...), nil
}
