package doses

import (
	"math"
	"time"
)

// Adherence resume el cumplimiento de un tratamiento.
type Adherence struct {
	Total       int
	Confirmed   int
	Late        int
	Missed      int
	Pending     int // pending + confirmable
	RatePercent float64
}

// Summarize: tasa = (confirmed + late) / resueltas * 100, con un decimal.
// Sin dosis resueltas la tasa es 100.
func Summarize(items []Dose, now time.Time, w Windows) Adherence {
	var a Adherence
	for _, d := range items {
		a.Total++
		switch DeriveStatus(d, now, w) {
		case StatusConfirmed:
			a.Confirmed++
		case StatusLate:
			a.Late++
		case StatusMissed:
			a.Missed++
		default:
			a.Pending++
		}
	}

	resolved := a.Total - a.Pending
	if resolved == 0 {
		a.RatePercent = 100
		return a
	}
	rate := float64(a.Confirmed+a.Late) / float64(resolved) * 100
	a.RatePercent = math.Round(rate*10) / 10
	return a
}
