package engine

import (
	"context"
	"fmt"
	"time"

	"doseclock/internal/domain/doses"
	"doseclock/internal/domain/notifications"
	"doseclock/internal/domain/preferences"
	"doseclock/internal/domain/schedule"
	"doseclock/internal/platform/logger"
	"doseclock/internal/ports/delivery"
)

// PlanSource lista los planes que el evaluador debe mantener sembrados.
type PlanSource interface {
	AllActivePlans(ctx context.Context) ([]schedule.Plan, error)
}

type Options struct {
	// DryRun calcula todo pero no escribe ni entrega.
	DryRun bool
	Logger logger.Logger
}

// Evaluator hace una pasada lógica: sembrar, sweep, scan de avisos y entrega.
type Evaluator struct {
	plans    PlanSource
	doses    *doses.Service
	notif    *notifications.Service
	prefs    *preferences.Service
	notifier delivery.Notifier
	dryRun   bool
	log      logger.Logger
}

func NewEvaluator(
	plans PlanSource,
	dosesSvc *doses.Service,
	notifSvc *notifications.Service,
	prefsSvc *preferences.Service,
	notifier delivery.Notifier,
	opts Options,
) *Evaluator {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Evaluator{
		plans:    plans,
		doses:    dosesSvc,
		notif:    notifSvc,
		prefs:    prefsSvc,
		notifier: notifier,
		dryRun:   opts.DryRun,
		log:      log.With(map[string]any{"component": "evaluator"}),
	}
}

// Report resume una pasada.
type Report struct {
	At         time.Time
	DryRun     bool
	Seeded     int
	Swept      int
	Advance    int
	Due        int
	Missed     int
	Delivered  int
	Suppressed int
	Failed     int
	Events     []notifications.Event
}

func (e *Evaluator) Evaluate(ctx context.Context, now time.Time) (Report, error) {
	rep := Report{At: now, DryRun: e.dryRun}

	if !e.dryRun {
		seeded, err := e.seed(ctx, now)
		if err != nil {
			return rep, fmt.Errorf("seed: %w", err)
		}
		rep.Seeded = seeded
	}

	if e.dryRun {
		preview, err := e.doses.PreviewSweep(ctx, now)
		if err != nil {
			return rep, fmt.Errorf("sweep: %w", err)
		}
		rep.Swept = len(preview)
	} else {
		res, err := e.doses.Sweep(ctx, now)
		if err != nil {
			return rep, fmt.Errorf("sweep: %w", err)
		}
		rep.Swept = res.Missed
	}

	// solo lo que puede caer en una ventana de aviso
	cfg := e.notif.Config()
	candidates, err := e.doses.Between(ctx, now.Add(-cfg.Window), now.Add(cfg.Advance+cfg.Window))
	if err != nil {
		return rep, fmt.Errorf("scan: %w", err)
	}
	events, err := e.notif.Due(ctx, candidates, now)
	if err != nil {
		return rep, fmt.Errorf("scan: %w", err)
	}

	// las alertas de missed salen del estado, no del delta del sweep: una
	// entrega fallida se reintenta mientras el vencimiento siga en MissedWindow
	grace := e.doses.Windows().Grace
	expired, err := e.doses.Between(ctx, now.Add(-grace-cfg.MissedWindow), now.Add(-grace))
	if err != nil {
		return rep, fmt.Errorf("scan: %w", err)
	}
	missedEvents, err := e.notif.Missed(ctx, expired, now, grace)
	if err != nil {
		return rep, fmt.Errorf("scan: %w", err)
	}
	events = append(events, missedEvents...)

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		e.deliver(ctx, ev, now, &rep)
	}

	e.log.Info("evaluation done", map[string]any{
		"dry_run":    rep.DryRun,
		"seeded":     rep.Seeded,
		"swept":      rep.Swept,
		"advance":    rep.Advance,
		"due":        rep.Due,
		"missed":     rep.Missed,
		"delivered":  rep.Delivered,
		"suppressed": rep.Suppressed,
		"failed":     rep.Failed,
	})
	return rep, nil
}

func (e *Evaluator) seed(ctx context.Context, now time.Time) (int, error) {
	plans, err := e.plans.AllActivePlans(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range plans {
		n, err := e.doses.EnsureUpcoming(ctx, p, now)
		if err != nil {
			// un plan roto no frena al resto
			e.log.Warn("seed plan failed", map[string]any{"treatment_id": p.TreatmentID, "err": err})
			continue
		}
		total += n
	}
	return total, nil
}

func (e *Evaluator) deliver(ctx context.Context, ev notifications.Event, now time.Time, rep *Report) {
	prefs, err := e.prefs.Get(ctx, ev.OwnerUserID)
	if err != nil {
		rep.Failed++
		e.log.Warn("load preferences failed", map[string]any{"user_id": ev.OwnerUserID, "err": err})
		return
	}
	if !prefs.NotificationsEnabled || (ev.Kind == notifications.KindAdvance && !prefs.AllowsAdvance()) {
		rep.Suppressed++
		return
	}

	switch ev.Kind {
	case notifications.KindAdvance:
		rep.Advance++
	case notifications.KindDue:
		rep.Due++
	case notifications.KindMissed:
		rep.Missed++
	}
	rep.Events = append(rep.Events, ev)

	if e.dryRun {
		return
	}

	msg := delivery.Message{
		UserID:         ev.OwnerUserID,
		Kind:           string(ev.Kind),
		DoseID:         ev.DoseID,
		MedicationName: ev.MedicationName,
		ScheduledAt:    ev.ScheduledAt,
		MinutesUntil:   minutesUntil(ev.ScheduledAt, now),
	}
	if prefs.TelegramReady() {
		msg.ChatID = prefs.TelegramChatID
	}

	if err := e.notifier.Notify(ctx, msg); err != nil {
		// sin MarkSent: se reintenta en la próxima pasada si sigue en ventana
		rep.Failed++
		e.log.Warn("notification delivery failed", map[string]any{"dose_id": ev.DoseID, "kind": string(ev.Kind), "err": err})
		return
	}
	if err := e.notif.MarkSent(ctx, ev); err != nil {
		e.log.Warn("mark sent failed", map[string]any{"dose_id": ev.DoseID, "kind": string(ev.Kind), "err": err})
	}
	rep.Delivered++
}

func minutesUntil(at, now time.Time) int {
	d := at.Sub(now)
	if d <= 0 {
		return 0
	}
	// redondeo hacia arriba: 4m30s se anuncia como 5 minutos
	return int((d + time.Minute - 1) / time.Minute)
}
