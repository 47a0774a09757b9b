package doses

import "time"

type WindowReason string

const (
	ReasonTooEarly    WindowReason = "too_early"
	ReasonInWindow    WindowReason = "in_window"
	ReasonGracePeriod WindowReason = "grace_period"
	ReasonLate        WindowReason = "late"
	ReasonConfirmed   WindowReason = "confirmed"
)

// WindowInfo describe si se puede confirmar ahora y cómo quedaría clasificada.
type WindowInfo struct {
	CanConfirm   bool
	Reason       WindowReason
	OnTime       bool
	MinutesUntil int // hasta ConfirmableFrom (too_early)
	MinutesLate  int // desde ScheduledAt (grace_period / late)

	ConfirmableFrom time.Time
	ExpiresAt       time.Time
}

func Window(d Dose, now time.Time, w Windows) WindowInfo {
	info := WindowInfo{
		ConfirmableFrom: d.ConfirmableFrom(w),
		ExpiresAt:       d.ExpiresAt(w),
	}

	switch {
	case d.ConfirmedAt != nil:
		info.Reason = ReasonConfirmed
	case now.Before(info.ConfirmableFrom):
		info.Reason = ReasonTooEarly
		info.MinutesUntil = int(info.ConfirmableFrom.Sub(now) / time.Minute)
	case !now.After(d.ScheduledAt):
		info.CanConfirm = true
		info.OnTime = true
		info.Reason = ReasonInWindow
	case !now.After(info.ExpiresAt):
		info.CanConfirm = true
		info.OnTime = true
		info.Reason = ReasonGracePeriod
		info.MinutesLate = int(now.Sub(d.ScheduledAt) / time.Minute)
	default:
		// pasada la gracia se puede confirmar igual, queda como late
		info.CanConfirm = true
		info.Reason = ReasonLate
		info.MinutesLate = int(now.Sub(d.ScheduledAt) / time.Minute)
	}
	return info
}
