package doses

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"doseclock/internal/domain/schedule"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	mu      sync.Mutex
	byID    map[string]Dose
	stale   map[string]int // cuántos UpdateIfVersion forzar como stale
	updates int
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Dose{}, stale: map[string]int{}}
}

func (r *testRepo) Create(ctx context.Context, d Dose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[d.ID]; ok {
		return ErrDuplicate
	}
	r.byID[d.ID] = d
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Dose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return Dose{}, ErrNotFound
	}
	return d, nil
}

func (r *testRepo) UpdateIfVersion(ctx context.Context, d Dose, expected int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[d.ID]
	if !ok {
		return ErrNotFound
	}
	if r.stale[d.ID] > 0 {
		r.stale[d.ID]--
		return &StaleWriteError{DoseID: d.ID, Expected: expected}
	}
	if cur.Version != expected {
		return &StaleWriteError{DoseID: d.ID, Expected: expected}
	}
	r.byID[d.ID] = d
	r.updates++
	return nil
}

func (r *testRepo) LastByTreatment(ctx context.Context, treatmentID string) (Dose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last Dose
	found := false
	for _, d := range r.byID {
		if d.TreatmentID == treatmentID && (!found || d.Seq > last.Seq) {
			last = d
			found = true
		}
	}
	if !found {
		return Dose{}, ErrNotFound
	}
	return last, nil
}

func (r *testRepo) List(ctx context.Context, f ListFilter) ([]Dose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Dose, 0)
	for _, d := range r.byID {
		if f.TreatmentID != "" && d.TreatmentID != f.TreatmentID {
			continue
		}
		if f.OwnerUserID != "" && d.OwnerUserID != f.OwnerUserID {
			continue
		}
		if f.From != nil && d.ScheduledAt.Before(*f.From) {
			continue
		}
		if f.To != nil && d.ScheduledAt.After(*f.To) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Desc {
			return out[i].ScheduledAt.After(out[j].ScheduledAt)
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *testRepo) ListUnresolved(ctx context.Context, before time.Time) ([]Dose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Dose, 0)
	for _, d := range r.byID {
		if d.ConfirmedAt == nil && d.Status != StatusMissed && !d.ScheduledAt.After(before) {
			out = append(out, d)
		}
	}
	return out, nil
}

type testPlans struct {
	byID map[string]schedule.Plan
}

func (p *testPlans) PlanFor(ctx context.Context, treatmentID string) (schedule.Plan, error) {
	plan, ok := p.byID[treatmentID]
	if !ok {
		return schedule.Plan{}, errors.New("plans: not found")
	}
	return plan, nil
}

func (p *testPlans) ActivePlans(ctx context.Context, ownerUserID string) ([]schedule.Plan, error) {
	out := make([]schedule.Plan, 0)
	for _, plan := range p.byID {
		if plan.OwnerUserID == ownerUserID && plan.Active {
			out = append(out, plan)
		}
	}
	return out, nil
}

// -------------------------
// Helpers
// -------------------------

var day1 = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func newPlan(anchor schedule.AnchorMode) schedule.Plan {
	return schedule.Plan{
		TreatmentID:    "t1",
		OwnerUserID:    "u1",
		MedicationName: "Amoxicilina",
		Start:          day1,
		Interval:       8 * time.Hour,
		Anchor:         anchor,
		Active:         true,
	}
}

func newSeededService(t *testing.T, plan schedule.Plan) (*Service, *testRepo, *testPlans) {
	t.Helper()
	repo := newTestRepo()
	plans := &testPlans{byID: map[string]schedule.Plan{plan.TreatmentID: plan}}
	svc := NewService(repo, plans, Options{})

	seedAt := day1.Add(-time.Hour)
	svc.now = func() time.Time { return seedAt }
	if _, err := svc.EnsureUpcoming(context.Background(), plan, seedAt); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc, repo, plans
}

func setNow(svc *Service, t time.Time) { svc.now = func() time.Time { return t } }

// -------------------------
// Tests
// -------------------------

func TestEnsureUpcoming_FromScheduledFillsHorizon(t *testing.T) {
	svc, repo, _ := newSeededService(t, newPlan(schedule.AnchorFromScheduled))

	// 07:00 + 24h: 08:00, 16:00, 00:00
	if len(repo.byID) != 3 {
		t.Fatalf("expected 3 doses, got %d", len(repo.byID))
	}
	d3, err := repo.GetByID(context.Background(), schedule.DoseID("t1", 3))
	if err != nil {
		t.Fatalf("dose 3 missing: %v", err)
	}
	if !d3.ScheduledAt.Equal(day1.Add(16 * time.Hour)) {
		t.Fatalf("unexpected dose 3 time: %s", d3.ScheduledAt)
	}

	// re-ejecutar es idempotente
	n, err := svc.EnsureUpcoming(context.Background(), newPlan(schedule.AnchorFromScheduled), day1.Add(-time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("expected no new doses, got n=%d err=%v", n, err)
	}

	// avanzar el horizonte agrega solo lo que falta
	n, err = svc.EnsureUpcoming(context.Background(), newPlan(schedule.AnchorFromScheduled), day1.Add(7*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 new dose, got n=%d err=%v", n, err)
	}
}

func TestEnsureUpcoming_FromConfirmationSeedsOnlyFirst(t *testing.T) {
	_, repo, _ := newSeededService(t, newPlan(schedule.AnchorFromConfirmation))
	if len(repo.byID) != 1 {
		t.Fatalf("expected 1 dose, got %d", len(repo.byID))
	}
}

func TestEnsureUpcoming_SkipsExpiredOccurrences(t *testing.T) {
	repo := newTestRepo()
	plan := newPlan(schedule.AnchorFromScheduled)
	svc := NewService(repo, &testPlans{byID: map[string]schedule.Plan{"t1": plan}}, Options{})

	now := day1.Add(9 * time.Hour) // 17:00: la de las 08:00 ya venció, la de las 16:00 también
	setNow(svc, now)
	if _, err := svc.EnsureUpcoming(context.Background(), plan, now); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), schedule.DoseID("t1", 1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired dose 1 should not be materialized")
	}
	d3, err := repo.GetByID(context.Background(), schedule.DoseID("t1", 3))
	if err != nil || d3.Seq != 3 {
		t.Fatalf("expected dose 3 with stable seq, got %+v err=%v", d3, err)
	}
}

func TestEnsureUpcoming_InvalidPlan(t *testing.T) {
	repo := newTestRepo()
	plan := newPlan(schedule.AnchorFromScheduled)
	plan.Interval = 0
	svc := NewService(repo, &testPlans{byID: map[string]schedule.Plan{}}, Options{})

	_, err := svc.EnsureUpcoming(context.Background(), plan, day1)
	var invalid *schedule.InvalidScheduleError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidScheduleError, got %v", err)
	}
}

func TestScenario_FromScheduled(t *testing.T) {
	svc, _, _ := newSeededService(t, newPlan(schedule.AnchorFromScheduled))
	ctx := context.Background()
	id1 := schedule.DoseID("t1", 1)

	setNow(svc, time.Date(2024, 1, 1, 7, 54, 59, 0, time.UTC))
	d, _ := svc.GetByID(ctx, id1)
	if d.Status != StatusPending {
		t.Fatalf("expected pending, got %s", d.Status)
	}

	setNow(svc, time.Date(2024, 1, 1, 7, 55, 0, 0, time.UTC))
	d, _ = svc.GetByID(ctx, id1)
	if d.Status != StatusConfirmable {
		t.Fatalf("expected confirmable at 07:55:00, got %s", d.Status)
	}

	at := time.Date(2024, 1, 1, 8, 10, 0, 0, time.UTC)
	setNow(svc, at)
	d, err := svc.Confirm(ctx, id1, at)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if d.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", d.Status)
	}
	if d.Version != 2 {
		t.Fatalf("expected version 2, got %d", d.Version)
	}

	d2, err := svc.GetByID(ctx, schedule.DoseID("t1", 2))
	if err != nil {
		t.Fatalf("dose 2: %v", err)
	}
	if !d2.ScheduledAt.Equal(time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)) {
		t.Fatalf("dose 2 must stay at 16:00, got %s", d2.ScheduledAt)
	}
}

func TestScenario_FromConfirmation(t *testing.T) {
	svc, _, _ := newSeededService(t, newPlan(schedule.AnchorFromConfirmation))
	ctx := context.Background()

	at := time.Date(2024, 1, 1, 8, 10, 0, 0, time.UTC)
	setNow(svc, at)
	if _, err := svc.Confirm(ctx, schedule.DoseID("t1", 1), at); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	d2, err := svc.GetByID(ctx, schedule.DoseID("t1", 2))
	if err != nil {
		t.Fatalf("dose 2 not materialized: %v", err)
	}
	if !d2.ScheduledAt.Equal(time.Date(2024, 1, 1, 16, 10, 0, 0, time.UTC)) {
		t.Fatalf("expected 16:10, got %s", d2.ScheduledAt)
	}
}

func TestSweep_MissedThenLateConfirm(t *testing.T) {
	svc, _, _ := newSeededService(t, newPlan(schedule.AnchorFromScheduled))
	ctx := context.Background()
	id1 := schedule.DoseID("t1", 1)

	res, err := svc.Sweep(ctx, time.Date(2024, 1, 1, 8, 19, 59, 0, time.UTC))
	if err != nil || res.Missed != 0 {
		t.Fatalf("nothing should be missed before 08:20, got %+v err=%v", res, err)
	}

	sweepAt := time.Date(2024, 1, 1, 8, 20, 0, 0, time.UTC)
	setNow(svc, sweepAt)
	res, err = svc.Sweep(ctx, sweepAt)
	if err != nil || res.Missed != 1 {
		t.Fatalf("expected 1 missed at 08:20, got %+v err=%v", res, err)
	}
	d, _ := svc.GetByID(ctx, id1)
	if d.Status != StatusMissed {
		t.Fatalf("expected missed, got %s", d.Status)
	}

	// idempotente
	res, err = svc.Sweep(ctx, sweepAt.Add(time.Minute))
	if err != nil || res.Missed != 0 || res.Checked != 0 {
		t.Fatalf("second sweep must be a no-op, got %+v err=%v", res, err)
	}

	late := time.Date(2024, 1, 1, 8, 25, 0, 0, time.UTC)
	setNow(svc, late)
	d, err = svc.Confirm(ctx, id1, late)
	if err != nil {
		t.Fatalf("late confirm: %v", err)
	}
	if d.Status != StatusLate {
		t.Fatalf("expected late, got %s", d.Status)
	}

	_, err = svc.Confirm(ctx, id1, late.Add(time.Minute))
	var already *AlreadyConfirmedError
	if !errors.As(err, &already) {
		t.Fatalf("expected AlreadyConfirmedError, got %v", err)
	}
}

func TestSweep_FromConfirmationMaterializesNextFromSchedule(t *testing.T) {
	svc, _, _ := newSeededService(t, newPlan(schedule.AnchorFromConfirmation))
	ctx := context.Background()

	sweepAt := time.Date(2024, 1, 1, 8, 20, 0, 0, time.UTC)
	setNow(svc, sweepAt)
	if _, err := svc.Sweep(ctx, sweepAt); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	d2, err := svc.GetByID(ctx, schedule.DoseID("t1", 2))
	if err != nil {
		t.Fatalf("dose 2 not materialized after missed: %v", err)
	}
	if !d2.ScheduledAt.Equal(time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 16:00, got %s", d2.ScheduledAt)
	}
}

func TestSweep_AfterDowntimeSkipsExpiredSuccessors(t *testing.T) {
	svc, repo, _ := newSeededService(t, newPlan(schedule.AnchorFromConfirmation))
	ctx := context.Background()

	// tres días después: 08:00 del 4
	sweepAt := day1.Add(72 * time.Hour)
	setNow(svc, sweepAt)
	res, err := svc.Sweep(ctx, sweepAt)
	if err != nil || res.Missed != 1 {
		t.Fatalf("expected 1 missed, got %+v err=%v", res, err)
	}

	if len(repo.byID) != 2 {
		t.Fatalf("expected only the successor to be created, got %d doses", len(repo.byID))
	}
	next, err := repo.GetByID(ctx, schedule.DoseID("t1", 10))
	if err != nil {
		t.Fatalf("dose 10 missing: %v", err)
	}
	if !next.ScheduledAt.Equal(sweepAt) {
		t.Fatalf("expected successor at %s, got %s", sweepAt, next.ScheduledAt)
	}

	res, err = svc.Sweep(ctx, sweepAt.Add(30*time.Second))
	if err != nil || res.Missed != 0 {
		t.Fatalf("expected quiet sweep, got %+v err=%v", res, err)
	}
}

func TestConfirm_LateDoesNotRewindAdvancedChain(t *testing.T) {
	svc, repo, _ := newSeededService(t, newPlan(schedule.AnchorFromConfirmation))
	ctx := context.Background()

	sweepAt := day1.Add(20 * time.Minute)
	setNow(svc, sweepAt)
	if _, err := svc.Sweep(ctx, sweepAt); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	// la 2 ya existe a las 16:00; confirmar tarde la 1 no la mueve
	late := day1.Add(30 * time.Minute)
	setNow(svc, late)
	if _, err := svc.Confirm(ctx, schedule.DoseID("t1", 1), late); err != nil {
		t.Fatalf("late confirm: %v", err)
	}
	d2, err := repo.GetByID(ctx, schedule.DoseID("t1", 2))
	if err != nil || !d2.ScheduledAt.Equal(day1.Add(8*time.Hour)) {
		t.Fatalf("expected dose 2 unchanged at 16:00, got %+v err=%v", d2, err)
	}
	if len(repo.byID) != 2 {
		t.Fatalf("expected 2 doses, got %d", len(repo.byID))
	}
}

func TestConfirmWinsTieWithSweep(t *testing.T) {
	svc, _, _ := newSeededService(t, newPlan(schedule.AnchorFromScheduled))
	ctx := context.Background()
	id1 := schedule.DoseID("t1", 1)

	tie := time.Date(2024, 1, 1, 8, 20, 0, 0, time.UTC)
	setNow(svc, tie)

	d, err := svc.Confirm(ctx, id1, tie)
	if err != nil || d.Status != StatusConfirmed {
		t.Fatalf("expected confirmed at expiry, got %s err=%v", d.Status, err)
	}
	res, err := svc.Sweep(ctx, tie)
	if err != nil || res.Missed != 0 {
		t.Fatalf("sweep must not override a confirm, got %+v err=%v", res, err)
	}
}

func TestConfirm_ConcurrentSameDose(t *testing.T) {
	svc, _, _ := newSeededService(t, newPlan(schedule.AnchorFromScheduled))
	ctx := context.Background()
	id1 := schedule.DoseID("t1", 1)
	setNow(svc, day1)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Confirm(ctx, id1, day1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, already := 0, 0
	for err := range errs {
		var ae *AlreadyConfirmedError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &ae):
			already++
		default:
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if ok != 1 || already != 7 {
		t.Fatalf("expected exactly one confirm, got ok=%d already=%d", ok, already)
	}
}

func TestConfirm_StaleWriteRetriedOnce(t *testing.T) {
	svc, repo, _ := newSeededService(t, newPlan(schedule.AnchorFromScheduled))
	ctx := context.Background()
	id1 := schedule.DoseID("t1", 1)
	setNow(svc, day1)

	repo.stale[id1] = 1
	if _, err := svc.Confirm(ctx, id1, day1); err != nil {
		t.Fatalf("single stale write should be retried, got %v", err)
	}

	id2 := schedule.DoseID("t1", 2)
	at := day1.Add(8 * time.Hour)
	setNow(svc, at)
	repo.stale[id2] = 2
	_, err := svc.Confirm(ctx, id2, at)
	var stale *StaleWriteError
	if !errors.As(err, &stale) {
		t.Fatalf("second stale write should surface, got %v", err)
	}
}

func TestConfirm_TooEarlyAndUnknown(t *testing.T) {
	svc, _, _ := newSeededService(t, newPlan(schedule.AnchorFromScheduled))
	ctx := context.Background()

	_, err := svc.Confirm(ctx, schedule.DoseID("t1", 1), day1.Add(-10*time.Minute))
	if !errors.Is(err, ErrNotYetConfirmable) {
		t.Fatalf("expected ErrNotYetConfirmable, got %v", err)
	}

	if _, err := svc.Confirm(ctx, "nope", day1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Confirm(ctx, "  ", day1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestConfirm_DeactivatedPlanStopsGeneration(t *testing.T) {
	svc, repo, plans := newSeededService(t, newPlan(schedule.AnchorFromConfirmation))
	ctx := context.Background()

	deactivated := day1.Add(5 * time.Minute)
	plan := plans.byID["t1"]
	plan.Active = false
	plan.DeactivatedAt = &deactivated
	plans.byID["t1"] = plan

	at := day1.Add(10 * time.Minute)
	setNow(svc, at)
	d, err := svc.Confirm(ctx, schedule.DoseID("t1", 1), at)
	if err != nil || d.Status != StatusConfirmed {
		t.Fatalf("already materialized dose must still confirm, got %s err=%v", d.Status, err)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("no successor expected after deactivation, got %d doses", len(repo.byID))
	}
}

func TestEnsureUpcoming_ResumedFromConfirmationChain(t *testing.T) {
	svc, repo, plans := newSeededService(t, newPlan(schedule.AnchorFromConfirmation))
	ctx := context.Background()

	// pausa antes de confirmar la 1: la cadena se corta
	paused := day1.Add(5 * time.Minute)
	plan := plans.byID["t1"]
	plan.Active = false
	plan.DeactivatedAt = &paused
	plans.byID["t1"] = plan

	at := day1.Add(10 * time.Minute)
	setNow(svc, at)
	if _, err := svc.Confirm(ctx, schedule.DoseID("t1", 1), at); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// se reanuda a las 20:00; 16:10 ya venció, la siguiente es 00:10 con seq 3
	resumeAt := day1.Add(12 * time.Hour)
	plan.Active = true
	plan.DeactivatedAt = nil
	plans.byID["t1"] = plan
	setNow(svc, resumeAt)

	n, err := svc.EnsureUpcoming(ctx, plan, resumeAt)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 dose after resume, got n=%d err=%v", n, err)
	}
	if _, err := repo.GetByID(ctx, schedule.DoseID("t1", 2)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired slot 2 must not be materialized")
	}
	d3, err := repo.GetByID(ctx, schedule.DoseID("t1", 3))
	if err != nil {
		t.Fatalf("dose 3 missing: %v", err)
	}
	if want := at.Add(16 * time.Hour); !d3.ScheduledAt.Equal(want) {
		t.Fatalf("expected dose 3 at %s, got %s", want, d3.ScheduledAt)
	}

	// la cadena queda esperando la resolución de la 3
	n, err = svc.EnsureUpcoming(ctx, plan, resumeAt.Add(time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("expected chain to wait, got n=%d err=%v", n, err)
	}
}

func TestList_StatusFilterAndAdherence(t *testing.T) {
	svc, _, _ := newSeededService(t, newPlan(schedule.AnchorFromScheduled))
	ctx := context.Background()

	at := day1.Add(time.Minute)
	setNow(svc, at)
	if _, err := svc.Confirm(ctx, schedule.DoseID("t1", 1), at); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// 16:30: dosis 2 vencida sin confirmar
	setNow(svc, day1.Add(8*time.Hour+30*time.Minute))

	missed, err := svc.List(ctx, ListInput{OwnerUserID: "u1", Statuses: []Status{StatusMissed}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(missed) != 1 || missed[0].Seq != 2 {
		t.Fatalf("expected dose 2 missed, got %+v", missed)
	}

	all, err := svc.List(ctx, ListInput{TreatmentID: "t1", Desc: true, Limit: 2})
	if err != nil || len(all) != 2 || all[0].Seq != 3 {
		t.Fatalf("unexpected list: %+v err=%v", all, err)
	}

	if _, err := svc.List(ctx, ListInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without owner/treatment, got %v", err)
	}

	a, err := svc.Adherence(ctx, "t1")
	if err != nil {
		t.Fatalf("adherence: %v", err)
	}
	if a.Confirmed != 1 || a.Missed != 1 || a.Pending != 1 || a.RatePercent != 50 {
		t.Fatalf("unexpected adherence: %+v", a)
	}
}

func TestUpcoming_MergesMaterializedAndProjected(t *testing.T) {
	svc, _, _ := newSeededService(t, newPlan(schedule.AnchorFromConfirmation))
	ctx := context.Background()

	from := day1.Add(-time.Hour)
	items, err := svc.Upcoming(ctx, "u1", from, from.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Projected || !items[1].Projected || !items[2].Projected {
		t.Fatalf("unexpected projection flags: %+v", items)
	}
	for i := 1; i < len(items); i++ {
		if !items[i].Dose.ScheduledAt.After(items[i-1].Dose.ScheduledAt) {
			t.Fatalf("items not sorted")
		}
	}

	if _, err := svc.Upcoming(ctx, "u1", from, from.Add(-time.Hour)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for reversed range, got %v", err)
	}
}

func TestPreviewSweep_DoesNotWrite(t *testing.T) {
	svc, repo, _ := newSeededService(t, newPlan(schedule.AnchorFromScheduled))
	ctx := context.Background()

	at := time.Date(2024, 1, 1, 8, 20, 0, 0, time.UTC)
	preview, err := svc.PreviewSweep(ctx, at)
	if err != nil || len(preview) != 1 || preview[0].Status != StatusMissed {
		t.Fatalf("unexpected preview: %+v err=%v", preview, err)
	}
	if repo.updates != 0 {
		t.Fatalf("preview must not write, got %d updates", repo.updates)
	}

	res, err := svc.Sweep(ctx, at)
	if err != nil || len(res.Doses) != 1 || res.Doses[0].ID != schedule.DoseID("t1", 1) {
		t.Fatalf("unexpected sweep result: %+v err=%v", res, err)
	}
}
