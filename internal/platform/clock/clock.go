package clock

import (
	"sync"
	"time"
)

// Clock abstrae "ahora" para que el motor sea determinístico en tests.
type Clock interface {
	Now() time.Time
}

// Func adapta una función (p.ej. time.Now) a Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// System devuelve el reloj de pared en UTC.
func System() Clock {
	return Func(func() time.Time { return time.Now().UTC() })
}

// Fixed devuelve siempre el mismo instante.
func Fixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}

// Manual es un reloj que solo avanza cuando se le pide. Seguro para goroutines.
type Manual struct {
	mu sync.Mutex
	t  time.Time
}

func NewManual(t time.Time) *Manual {
	return &Manual{t: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = t
}

// Advance mueve el reloj d hacia adelante y devuelve el nuevo instante.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = m.t.Add(d)
	return m.t
}
