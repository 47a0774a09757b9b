package doses

import (
	"context"
	"errors"
	"iter"
	"sort"
	"strings"
	"time"

	"doseclock/internal/domain/schedule"
	"doseclock/internal/platform/clock"
	"doseclock/internal/platform/logger"
)

// PlanLookup resuelve el plan vigente de un tratamiento.
// Lo implementa treatments; se usa interfaz para evitar ciclo de imports.
type PlanLookup interface {
	PlanFor(ctx context.Context, treatmentID string) (schedule.Plan, error)
	ActivePlans(ctx context.Context, ownerUserID string) ([]schedule.Plan, error)
}

type Options struct {
	Windows Windows
	Horizon time.Duration
	Clock   clock.Clock
	Logger  logger.Logger
}

type Service struct {
	repo    Repository
	plans   PlanLookup
	windows Windows
	horizon time.Duration
	now     func() time.Time
	log     logger.Logger
	locks   *stripedLocks
}

func NewService(repo Repository, plans PlanLookup, opts Options) *Service {
	s := &Service{
		repo:    repo,
		plans:   plans,
		windows: opts.Windows,
		horizon: opts.Horizon,
		now:     time.Now,
		log:     opts.Logger,
		locks:   &stripedLocks{},
	}
	if s.windows == (Windows{}) {
		s.windows = DefaultWindows()
	}
	if s.horizon <= 0 {
		s.horizon = 24 * time.Hour
	}
	if opts.Clock != nil {
		s.now = opts.Clock.Now
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

func (s *Service) Windows() Windows { return s.windows }

// Confirm registra la toma en at (cero = ahora). Confirmed si at <= ExpiresAt,
// late si no. Un StaleWriteError se reintenta una vez releyendo.
func (s *Service) Confirm(ctx context.Context, id string, at time.Time) (Dose, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Dose{}, ErrInvalidInput
	}
	if at.IsZero() {
		at = s.now()
	}

	unlock := s.locks.lock(id)
	defer unlock()

	var updated Dose
	for attempt := 0; ; attempt++ {
		cur, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return Dose{}, err
		}
		next, err := applyConfirm(cur, at, s.windows)
		if err != nil {
			return Dose{}, err
		}
		next.Version = cur.Version + 1
		next.UpdatedAt = s.now()

		err = s.repo.UpdateIfVersion(ctx, next, cur.Version)
		if isStale(err) && attempt == 0 {
			continue
		}
		if err != nil {
			return Dose{}, err
		}
		updated = next
		break
	}

	s.log.Info("dose confirmed", map[string]any{
		"dose_id":      updated.ID,
		"treatment_id": updated.TreatmentID,
		"status":       string(updated.Status),
	})

	if err := s.materializeNext(ctx, updated, s.now()); err != nil {
		s.log.Warn("materialize next dose failed", map[string]any{"dose_id": updated.ID, "err": err})
	}
	return updated, nil
}

type SweepResult struct {
	Checked int
	Missed  int
	// dosis que pasaron a missed en esta pasada
	Doses []Dose
}

// Sweep marca missed todas las dosis vencidas sin confirmar. Idempotente.
func (s *Service) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	items, err := s.repo.ListUnresolved(ctx, now.Add(-s.windows.Grace))
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, d := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++

		missed, ok, err := s.sweepOne(ctx, d.ID, now)
		if err != nil {
			s.log.Warn("sweep dose failed", map[string]any{"dose_id": d.ID, "err": err})
			continue
		}
		if ok {
			res.Missed++
			res.Doses = append(res.Doses, missed)
		}
	}
	return res, nil
}

// PreviewSweep devuelve lo que Sweep marcaría como missed, sin escribir.
func (s *Service) PreviewSweep(ctx context.Context, now time.Time) ([]Dose, error) {
	items, err := s.repo.ListUnresolved(ctx, now.Add(-s.windows.Grace))
	if err != nil {
		return nil, err
	}
	out := make([]Dose, 0, len(items))
	for _, d := range items {
		if next, changed := applySweep(d, now, s.windows); changed {
			out = append(out, next)
		}
	}
	return out, nil
}

func (s *Service) sweepOne(ctx context.Context, id string, now time.Time) (Dose, bool, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	var updated Dose
	for attempt := 0; ; attempt++ {
		// se relee bajo el lock: si un confirm ganó, no hay cambio
		cur, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return Dose{}, false, err
		}
		next, changed := applySweep(cur, now, s.windows)
		if !changed {
			return Dose{}, false, nil
		}
		next.Version = cur.Version + 1
		next.UpdatedAt = s.now()

		err = s.repo.UpdateIfVersion(ctx, next, cur.Version)
		if isStale(err) && attempt == 0 {
			continue
		}
		if err != nil {
			return Dose{}, false, err
		}
		updated = next
		break
	}

	s.log.Info("dose missed", map[string]any{"dose_id": updated.ID, "treatment_id": updated.TreatmentID})

	if err := s.materializeNext(ctx, updated, now); err != nil {
		s.log.Warn("materialize next dose failed", map[string]any{"dose_id": updated.ID, "err": err})
	}
	return updated, true, nil
}

// materializeNext crea la siguiente dosis según el anchor vigente del
// tratamiento. Si la cadena ya avanzó no se toca. Las ocurrencias que ya
// vencieron en now se saltan, igual que al sembrar: tras una caída no se
// rellena el hueco dosis por dosis.
func (s *Service) materializeNext(ctx context.Context, d Dose, now time.Time) error {
	last, err := s.repo.LastByTreatment(ctx, d.TreatmentID)
	switch {
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	case err == nil && last.Seq > d.Seq:
		return nil
	}

	plan, err := s.plans.PlanFor(ctx, d.TreatmentID)
	if err != nil {
		return err
	}

	// la primera ocurrencia no vencida cae a lo sumo un intervalo después de now
	limit := now.Add(s.horizon + plan.Interval)
	for o := range schedule.UpcomingAfter(plan, d.occurrence(), limit) {
		if !o.Scheduled.Add(s.windows.Grace).After(now) {
			continue
		}
		_, err = s.create(ctx, plan, o)
		return err
	}
	return nil
}

// EnsureUpcoming materializa las dosis del plan hasta now + horizonte.
// from_confirmation solo siembra una; el resto sale de materializeNext, salvo
// que la cadena se haya cortado (pausa, cambio de anchor).
// Las ocurrencias ya vencidas al sembrar se saltan.
func (s *Service) EnsureUpcoming(ctx context.Context, plan schedule.Plan, now time.Time) (int, error) {
	if err := schedule.Validate(plan); err != nil {
		return 0, err
	}
	horizon := now.Add(s.horizon)

	var occurrences iter.Seq[schedule.Occurrence]
	last, err := s.repo.LastByTreatment(ctx, plan.TreatmentID)
	switch {
	case errors.Is(err, ErrNotFound):
		occurrences = schedule.Upcoming(plan, horizon)
	case err != nil:
		return 0, err
	case plan.Anchor == schedule.AnchorFromConfirmation && !last.Status.Resolved() && last.ConfirmedAt == nil:
		// la cadena sigue cuando se resuelva la última
		return 0, nil
	default:
		occurrences = schedule.UpcomingAfter(plan, last.occurrence(), horizon)
	}

	created := 0
	for o := range occurrences {
		if !o.Scheduled.Add(s.windows.Grace).After(now) {
			continue
		}
		ok, err := s.create(ctx, plan, o)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
		if plan.Anchor == schedule.AnchorFromConfirmation {
			break
		}
	}

	if created > 0 {
		s.log.Debug("doses materialized", map[string]any{"treatment_id": plan.TreatmentID, "count": created})
	}
	return created, nil
}

// create es idempotente por id determinístico: duplicado => (false, nil).
func (s *Service) create(ctx context.Context, plan schedule.Plan, o schedule.Occurrence) (bool, error) {
	now := s.now()
	d := Dose{
		ID:             o.DoseID,
		TreatmentID:    plan.TreatmentID,
		OwnerUserID:    plan.OwnerUserID,
		Seq:            o.Seq,
		MedicationName: plan.MedicationName,
		ScheduledAt:    o.Scheduled,
		Status:         StatusPending,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Dose, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Dose{}, err
	}
	return Reconcile(d, s.now(), s.windows), nil
}

// Window informa si la dosis puede confirmarse ahora.
func (s *Service) Window(d Dose) WindowInfo {
	return Window(d, s.now(), s.windows)
}

type ListInput struct {
	TreatmentID string
	OwnerUserID string
	Statuses    []Status
	From        *time.Time
	To          *time.Time
	Limit       int
	Desc        bool
}

// List devuelve dosis con estado reconciliado; el filtro por estado se aplica
// después de derivarlo.
func (s *Service) List(ctx context.Context, in ListInput) ([]Dose, error) {
	if strings.TrimSpace(in.TreatmentID) == "" && strings.TrimSpace(in.OwnerUserID) == "" {
		return nil, ErrInvalidInput
	}
	for _, st := range in.Statuses {
		if !st.Valid() {
			return nil, ErrInvalidInput
		}
	}
	if in.From != nil && in.To != nil && in.To.Before(*in.From) {
		return nil, ErrInvalidInput
	}

	filter := ListFilter{
		TreatmentID: in.TreatmentID,
		OwnerUserID: in.OwnerUserID,
		From:        in.From,
		To:          in.To,
		Desc:        in.Desc,
	}
	if len(in.Statuses) == 0 {
		filter.Limit = in.Limit
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]Dose, 0, len(items))
	for _, d := range items {
		d = Reconcile(d, now, s.windows)
		if len(in.Statuses) > 0 && !hasStatus(in.Statuses, d.Status) {
			continue
		}
		out = append(out, d)
		if in.Limit > 0 && len(out) >= in.Limit {
			break
		}
	}
	return out, nil
}

func hasStatus(list []Status, st Status) bool {
	for _, v := range list {
		if v == st {
			return true
		}
	}
	return false
}

func (s *Service) Adherence(ctx context.Context, treatmentID string) (Adherence, error) {
	if strings.TrimSpace(treatmentID) == "" {
		return Adherence{}, ErrInvalidInput
	}
	items, err := s.repo.List(ctx, ListFilter{TreatmentID: treatmentID})
	if err != nil {
		return Adherence{}, err
	}
	return Summarize(items, s.now(), s.windows), nil
}

// Between devuelve las dosis (reconciliadas) con ScheduledAt en [from, to].
func (s *Service) Between(ctx context.Context, from, to time.Time) ([]Dose, error) {
	items, err := s.repo.List(ctx, ListFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range items {
		items[i] = Reconcile(items[i], now, s.windows)
	}
	return items, nil
}

// UpcomingItem es una dosis materializada o proyectada (aún no guardada).
type UpcomingItem struct {
	Dose      Dose
	Projected bool
}

// Upcoming arma la agenda del usuario entre from y to: lo materializado más
// la proyección de cada plan activo.
func (s *Service) Upcoming(ctx context.Context, ownerUserID string, from, to time.Time) ([]UpcomingItem, error) {
	if strings.TrimSpace(ownerUserID) == "" || to.Before(from) {
		return nil, ErrInvalidInput
	}

	plans, err := s.plans.ActivePlans(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]UpcomingItem, 0)
	for _, plan := range plans {
		items, err := s.repo.List(ctx, ListFilter{TreatmentID: plan.TreatmentID, From: &from, To: &to})
		if err != nil {
			return nil, err
		}
		for _, d := range items {
			out = append(out, UpcomingItem{Dose: Reconcile(d, now, s.windows)})
		}

		var projected iter.Seq[schedule.Occurrence]
		last, err := s.repo.LastByTreatment(ctx, plan.TreatmentID)
		switch {
		case errors.Is(err, ErrNotFound):
			projected = schedule.Upcoming(plan, to)
		case err != nil:
			return nil, err
		default:
			projected = schedule.UpcomingAfter(plan, last.occurrence(), to)
		}

		for o := range projected {
			if o.Scheduled.Before(from) {
				continue
			}
			d := Dose{
				ID:             o.DoseID,
				TreatmentID:    plan.TreatmentID,
				OwnerUserID:    plan.OwnerUserID,
				Seq:            o.Seq,
				MedicationName: plan.MedicationName,
				ScheduledAt:    o.Scheduled,
			}
			out = append(out, UpcomingItem{Dose: Reconcile(d, now, s.windows), Projected: true})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Dose.ScheduledAt.Before(out[j].Dose.ScheduledAt)
	})
	return out, nil
}
