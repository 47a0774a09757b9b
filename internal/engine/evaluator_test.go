package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"doseclock/internal/adapters/storage/memory"
	"doseclock/internal/domain/doses"
	"doseclock/internal/domain/notifications"
	"doseclock/internal/domain/preferences"
	"doseclock/internal/domain/schedule"
	"doseclock/internal/platform/clock"
	"doseclock/internal/ports/delivery"
)

// ---- fakes ----

type testPlans struct {
	mu    sync.Mutex
	plans map[string]schedule.Plan
	calls int
}

func (p *testPlans) PlanFor(ctx context.Context, id string) (schedule.Plan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	plan, ok := p.plans[id]
	if !ok {
		return schedule.Plan{}, errors.New("plan not found")
	}
	return plan, nil
}

func (p *testPlans) ActivePlans(ctx context.Context, owner string) ([]schedule.Plan, error) {
	all, _ := p.AllActivePlans(ctx)
	out := make([]schedule.Plan, 0, len(all))
	for _, plan := range all {
		if plan.OwnerUserID == owner {
			out = append(out, plan)
		}
	}
	return out, nil
}

func (p *testPlans) AllActivePlans(ctx context.Context) ([]schedule.Plan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	out := make([]schedule.Plan, 0, len(p.plans))
	for _, plan := range p.plans {
		if plan.Active {
			out = append(out, plan)
		}
	}
	return out, nil
}

type testNotifier struct {
	mu       sync.Mutex
	failNext int
	calls    int
	sent     []delivery.Message
}

func (n *testNotifier) Notify(ctx context.Context, m delivery.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.failNext > 0 {
		n.failNext--
		return errors.New("channel down")
	}
	n.sent = append(n.sent, m)
	return nil
}

// ---- helpers ----

var day = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func at(h, m, s int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

type fixture struct {
	clk      *clock.Manual
	plans    *testPlans
	doses    *doses.Service
	notif    *notifications.Service
	prefs    *preferences.Service
	notifier *testNotifier
	eval     *Evaluator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clk: clock.NewManual(at(7, 0, 0)),
		plans: &testPlans{plans: map[string]schedule.Plan{
			"t1": {
				TreatmentID:    "t1",
				OwnerUserID:    "u1",
				MedicationName: "Amoxicilina",
				Start:          at(8, 0, 0),
				Interval:       8 * time.Hour,
				Anchor:         schedule.AnchorFromScheduled,
				Active:         true,
			},
		}},
		notifier: &testNotifier{},
	}
	f.doses = doses.NewService(memory.NewDoseRepo(), f.plans, doses.Options{Clock: f.clk})
	f.notif = notifications.NewService(memory.NewSentLog(), notifications.DefaultConfig())
	f.prefs = preferences.NewService(memory.NewPreferencesRepo())
	f.eval = NewEvaluator(f.plans, f.doses, f.notif, f.prefs, f.notifier, Options{})
	return f
}

func (f *fixture) evaluateAt(t *testing.T, now time.Time) Report {
	t.Helper()
	f.clk.Set(now)
	rep, err := f.eval.Evaluate(context.Background(), now)
	if err != nil {
		t.Fatalf("evaluate at %s: %v", now.Format(time.TimeOnly), err)
	}
	return rep
}

// ---- tests ----

func TestEvaluate_FullLifecycleOfUnconfirmedDose(t *testing.T) {
	f := newFixture(t)

	rep := f.evaluateAt(t, at(7, 0, 0))
	if rep.Seeded != 3 {
		t.Fatalf("expected 3 seeded doses (08:00, 16:00, 00:00), got %d", rep.Seeded)
	}
	if len(rep.Events) != 0 {
		t.Fatalf("expected no events at 07:00, got %+v", rep.Events)
	}

	rep = f.evaluateAt(t, at(7, 55, 30))
	if rep.Advance != 1 || rep.Delivered != 1 {
		t.Fatalf("expected one advance delivered, got %+v", rep)
	}
	msg := f.notifier.sent[0]
	if msg.Kind != "advance" || msg.MinutesUntil != 5 || msg.ChatID != "" || msg.MedicationName != "Amoxicilina" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	// misma ventana, no se repite
	rep = f.evaluateAt(t, at(7, 55, 50))
	if len(rep.Events) != 0 {
		t.Fatalf("expected no repeated events, got %+v", rep.Events)
	}

	rep = f.evaluateAt(t, at(8, 0, 10))
	if rep.Due != 1 || rep.Delivered != 1 {
		t.Fatalf("expected one due delivered, got %+v", rep)
	}

	rep = f.evaluateAt(t, at(8, 20, 0))
	if rep.Swept != 1 || rep.Missed != 1 || rep.Delivered != 1 {
		t.Fatalf("expected one missed dose alerted, got %+v", rep)
	}

	d, err := f.doses.GetByID(context.Background(), schedule.DoseID("t1", 1))
	if err != nil {
		t.Fatalf("get dose: %v", err)
	}
	if d.Status != doses.StatusMissed {
		t.Fatalf("expected missed, got %s", d.Status)
	}

	rep = f.evaluateAt(t, at(8, 20, 30))
	if len(rep.Events) != 0 || rep.Swept != 0 {
		t.Fatalf("expected quiet pass after sweep, got %+v", rep)
	}
	if got := len(f.notifier.sent); got != 3 {
		t.Fatalf("expected 3 notifications in total, got %d", got)
	}
}

func TestEvaluate_ConfirmedDoseGetsNoDueNotification(t *testing.T) {
	f := newFixture(t)
	f.evaluateAt(t, at(7, 0, 0))

	f.clk.Set(at(7, 57, 0))
	if _, err := f.doses.Confirm(context.Background(), schedule.DoseID("t1", 1), time.Time{}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	rep := f.evaluateAt(t, at(8, 0, 10))
	if len(rep.Events) != 0 {
		t.Fatalf("expected no events for a confirmed dose, got %+v", rep.Events)
	}
}

func TestEvaluate_FailedDeliveryIsRetriedWithinWindow(t *testing.T) {
	f := newFixture(t)
	f.evaluateAt(t, at(7, 0, 0))

	f.notifier.failNext = 1
	rep := f.evaluateAt(t, at(7, 55, 10))
	if rep.Failed != 1 || rep.Delivered != 0 {
		t.Fatalf("expected failed delivery, got %+v", rep)
	}

	rep = f.evaluateAt(t, at(7, 55, 40))
	if rep.Delivered != 1 {
		t.Fatalf("expected retry to deliver, got %+v", rep)
	}
	if f.notifier.calls != 2 || len(f.notifier.sent) != 1 {
		t.Fatalf("expected 2 calls and 1 delivery, got calls=%d sent=%d", f.notifier.calls, len(f.notifier.sent))
	}
}

func TestEvaluate_FailedMissedAlertIsRetried(t *testing.T) {
	f := newFixture(t)
	f.evaluateAt(t, at(7, 0, 0))

	f.notifier.failNext = 1
	rep := f.evaluateAt(t, at(8, 20, 0))
	if rep.Swept != 1 || rep.Missed != 1 || rep.Failed != 1 || rep.Delivered != 0 {
		t.Fatalf("expected failed missed alert, got %+v", rep)
	}

	// la dosis ya está missed: el reintento no depende del sweep
	rep = f.evaluateAt(t, at(8, 20, 30))
	if rep.Swept != 0 || rep.Missed != 1 || rep.Delivered != 1 {
		t.Fatalf("expected missed alert retried, got %+v", rep)
	}

	rep = f.evaluateAt(t, at(8, 21, 0))
	if len(rep.Events) != 0 {
		t.Fatalf("expected no events after delivery, got %+v", rep.Events)
	}
	if f.notifier.calls != 2 || len(f.notifier.sent) != 1 || f.notifier.sent[0].Kind != "missed" {
		t.Fatalf("expected one delivered missed alert, got calls=%d sent=%+v", f.notifier.calls, f.notifier.sent)
	}
}

func TestEvaluate_CatchUpAfterDowntimeDoesNotBackfill(t *testing.T) {
	cases := []struct {
		anchor schedule.AnchorMode
		swept  int
	}{
		{schedule.AnchorFromScheduled, 3},
		{schedule.AnchorFromConfirmation, 1},
	}
	for _, tc := range cases {
		t.Run(string(tc.anchor), func(t *testing.T) {
			f := newFixture(t)
			plan := f.plans.plans["t1"]
			plan.Anchor = tc.anchor
			f.plans.plans["t1"] = plan

			f.evaluateAt(t, at(7, 0, 0))

			// tres días sin evaluar
			resume := at(7, 0, 0).Add(72 * time.Hour)
			rep := f.evaluateAt(t, resume)
			if rep.Swept != tc.swept {
				t.Fatalf("expected %d swept doses, got %+v", tc.swept, rep)
			}
			if rep.Missed != 0 {
				t.Fatalf("stale doses must not raise missed alerts, got %+v", rep)
			}

			for i := 1; i <= 3; i++ {
				rep = f.evaluateAt(t, resume.Add(time.Duration(i)*30*time.Second))
				if rep.Swept != 0 || rep.Missed != 0 || len(rep.Events) != 0 {
					t.Fatalf("pass %d: expected quiet pass, got %+v", i, rep)
				}
			}

			ctx := context.Background()
			for seq := 4; seq <= 9; seq++ {
				if _, err := f.doses.GetByID(ctx, schedule.DoseID("t1", seq)); !errors.Is(err, doses.ErrNotFound) {
					t.Fatalf("expired slot %d must not be materialized, err=%v", seq, err)
				}
			}
			next, err := f.doses.GetByID(ctx, schedule.DoseID("t1", 10))
			if err != nil {
				t.Fatalf("dose 10: %v", err)
			}
			if want := resume.Add(time.Hour); !next.ScheduledAt.Equal(want) || next.Status != doses.StatusPending {
				t.Fatalf("expected pending dose at %s, got %s %s", want, next.ScheduledAt, next.Status)
			}
		})
	}
}

func TestEvaluate_PreferencesSuppressAndRouteTelegram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	off := false
	on := true
	chat := "123456"
	if _, err := f.prefs.Update(ctx, "u1", preferences.UpdateInput{
		AdvanceReminder: &off,
		TelegramChatID:  &chat,
		TelegramEnabled: &on,
	}); err != nil {
		t.Fatalf("update prefs: %v", err)
	}

	f.evaluateAt(t, at(7, 0, 0))

	rep := f.evaluateAt(t, at(7, 55, 30))
	if rep.Suppressed != 1 || rep.Delivered != 0 {
		t.Fatalf("expected advance suppressed, got %+v", rep)
	}

	rep = f.evaluateAt(t, at(8, 0, 0))
	if rep.Delivered != 1 {
		t.Fatalf("expected due delivered, got %+v", rep)
	}
	if f.notifier.sent[0].ChatID != chat {
		t.Fatalf("expected telegram chat %q, got %+v", chat, f.notifier.sent[0])
	}
}

func TestEvaluate_DryRunDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	f.evaluateAt(t, at(7, 0, 0))

	dry := NewEvaluator(f.plans, f.doses, f.notif, f.prefs, f.notifier, Options{DryRun: true})

	f.clk.Set(at(8, 25, 0))
	rep, err := dry.Evaluate(context.Background(), at(8, 25, 0))
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !rep.DryRun || rep.Swept != 1 || rep.Missed != 1 || rep.Seeded != 0 {
		t.Fatalf("unexpected dry run report: %+v", rep)
	}
	if f.notifier.calls != 0 {
		t.Fatalf("dry run must not deliver, got %d calls", f.notifier.calls)
	}

	items, err := f.doses.List(context.Background(), doses.ListInput{TreatmentID: "t1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("dry run must not seed, got %d doses", len(items))
	}

	// el sweep real todavía encuentra la dosis
	rep = f.evaluateAt(t, at(8, 25, 10))
	if rep.Swept != 1 {
		t.Fatalf("expected real sweep to mark the dose, got %+v", rep)
	}
}

func TestMinutesUntil(t *testing.T) {
	now := at(7, 55, 30)
	cases := []struct {
		at   time.Time
		want int
	}{
		{at(8, 0, 0), 5},
		{at(7, 56, 30), 1},
		{at(7, 55, 30), 0},
		{at(7, 50, 0), 0},
	}
	for _, c := range cases {
		if got := minutesUntil(c.at, now); got != c.want {
			t.Fatalf("minutesUntil(%s) = %d, want %d", c.at.Format(time.TimeOnly), got, c.want)
		}
	}
}
