package engine

import (
	"context"
	"time"

	"doseclock/internal/platform/clock"
	"doseclock/internal/platform/logger"
)

// Runner ejecuta Evaluate con período fijo desde una sola goroutine.
type Runner struct {
	eval   *Evaluator
	clock  clock.Clock
	period time.Duration
	log    logger.Logger

	// reemplazable en tests; por defecto time.NewTicker
	newTicker func(time.Duration) (<-chan time.Time, func())
}

func NewRunner(eval *Evaluator, c clock.Clock, period time.Duration, log logger.Logger) *Runner {
	if c == nil {
		c = clock.System()
	}
	if period <= 0 {
		period = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		eval:   eval,
		clock:  c,
		period: period,
		log:    log,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Run evalúa una vez al arrancar y luego en cada tick hasta que ctx se cancele.
// Un error en una pasada se loguea y no detiene el loop.
func (r *Runner) Run(ctx context.Context) error {
	ticks, stop := r.newTicker(r.period)
	defer stop()

	r.log.Info("evaluator started", map[string]any{"period": r.period.String()})
	r.once(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("evaluator stopped", nil)
			return nil
		case <-ticks:
			r.once(ctx)
		}
	}
}

func (r *Runner) once(ctx context.Context) {
	if _, err := r.eval.Evaluate(ctx, r.clock.Now()); err != nil && ctx.Err() == nil {
		r.log.Error("evaluation failed", map[string]any{"err": err})
	}
}
