package doses

import "time"

// DeriveStatus es función pura de (ScheduledAt, ConfirmedAt, now).
// Intervalos: confirmable en [ConfirmableFrom, ExpiresAt), missed desde ExpiresAt,
// una confirmación en ExpiresAt exacto todavía cuenta como a tiempo.
func DeriveStatus(d Dose, now time.Time, w Windows) Status {
	expires := d.ExpiresAt(w)

	if d.ConfirmedAt != nil {
		return classify(*d.ConfirmedAt, expires)
	}
	if !now.Before(expires) {
		return StatusMissed
	}
	if !now.Before(d.ConfirmableFrom(w)) {
		return StatusConfirmable
	}
	return StatusPending
}

func classify(confirmedAt, expires time.Time) Status {
	if confirmedAt.After(expires) {
		return StatusLate
	}
	return StatusConfirmed
}

// Reconcile devuelve la dosis con Status recalculado.
func Reconcile(d Dose, now time.Time, w Windows) Dose {
	d.Status = DeriveStatus(d, now, w)
	return d
}

// applyConfirm valida y aplica la transición de confirmación.
// Siempre se acepta por tiempo tardío (late); missed se reclasifica a late.
func applyConfirm(d Dose, at time.Time, w Windows) (Dose, error) {
	if d.ConfirmedAt != nil {
		return Dose{}, &AlreadyConfirmedError{
			DoseID:      d.ID,
			Status:      classify(*d.ConfirmedAt, d.ExpiresAt(w)),
			ConfirmedAt: *d.ConfirmedAt,
		}
	}
	if at.Before(d.ConfirmableFrom(w)) {
		return Dose{}, ErrNotYetConfirmable
	}

	confirmedAt := at
	d.ConfirmedAt = &confirmedAt
	d.Status = classify(at, d.ExpiresAt(w))
	return d, nil
}

// applySweep marca missed cuando venció la gracia sin confirmación.
// Devuelve false si no hay cambio (idempotente).
func applySweep(d Dose, now time.Time, w Windows) (Dose, bool) {
	if d.ConfirmedAt != nil || d.Status == StatusMissed {
		return d, false
	}
	if now.Before(d.ExpiresAt(w)) {
		return d, false
	}
	d.Status = StatusMissed
	return d, true
}
