package timesync

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"doseclock/internal/platform/clock"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrSessionClosed = errors.New("session closed")
)

type countdown struct {
	target time.Time
	onZero func(id string)
}

// Session es el registro de cuentas regresivas de una vista. Se crea al
// montarla y se cierra al salir; ninguna cuenta sobrevive a su sesión.
type Session struct {
	clock clock.Clock

	mu         sync.Mutex
	countdowns map[string]countdown
	closed     bool
}

// NewSession: c normalmente es un *Reconciler ya calibrado.
func NewSession(c clock.Clock) *Session {
	return &Session{
		clock:      c,
		countdowns: make(map[string]countdown),
	}
}

// Start registra (o reemplaza) la cuenta id hacia target. onZero se llama una
// sola vez, desde Tick, cuando el restante llega a cero.
func (s *Session) Start(id string, target time.Time, onZero func(id string)) error {
	id = strings.TrimSpace(id)
	if id == "" || target.IsZero() {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.countdowns[id] = countdown{target: target, onZero: onZero}
	return nil
}

// Remaining siempre se deriva de target - Now(), nunca de un contador.
func (s *Session) Remaining(id string) (time.Duration, bool) {
	s.mu.Lock()
	c, ok := s.countdowns[id]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	d := c.target.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	return d, true
}

func (s *Session) Stop(id string) {
	s.mu.Lock()
	delete(s.countdowns, id)
	s.mu.Unlock()
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.countdowns)
}

// Tick recalcula todas las cuentas, dispara onZero de las que llegaron a cero
// y las quita del registro. Devuelve los ids disparados en orden.
func (s *Session) Tick() []string {
	now := s.clock.Now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	fired := make([]string, 0)
	callbacks := make(map[string]func(string))
	for id, c := range s.countdowns {
		if c.target.Sub(now) <= 0 {
			fired = append(fired, id)
			callbacks[id] = c.onZero
			delete(s.countdowns, id)
		}
	}
	s.mu.Unlock()

	sort.Strings(fired)
	for _, id := range fired {
		if cb := callbacks[id]; cb != nil {
			cb(id)
		}
	}
	return fired
}

// Run hace Tick cada period hasta que ctx se cancele; al salir cierra la sesión.
func (s *Session) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		period = time.Second
	}
	t := time.NewTicker(period)
	defer t.Stop()
	defer s.Close()

	s.Tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Tick()
		}
	}
}

// Close cancela todas las cuentas pendientes sin dispararlas.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.countdowns = make(map[string]countdown)
}
