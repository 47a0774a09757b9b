package schedule

import (
	"iter"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// doseNamespace fija el espacio de nombres de los ids UUIDv5 de dosis.
var doseNamespace = uuid.MustParse("6f1c2a0e-3d4b-5e8f-9a7c-1b2d3e4f5a6b")

// DoseID es determinístico en (tratamiento, seq): regenerar tras un crash
// reproduce los mismos ids.
func DoseID(treatmentID string, seq int) string {
	return uuid.NewSHA1(doseNamespace, []byte(treatmentID+"#"+strconv.Itoa(seq))).String()
}

// NextOccurrence es el único punto que despacha por modo de anclaje.
func NextOccurrence(p Plan, prev Occurrence) time.Time {
	switch p.Anchor {
	case AnchorFromConfirmation:
		if prev.Confirmed != nil {
			return prev.Confirmed.Add(p.Interval)
		}
		return prev.Scheduled.Add(p.Interval)
	default:
		return prev.Scheduled.Add(p.Interval)
	}
}

// Within indica si la ocurrencia seq en t todavía pertenece al tratamiento.
func Within(p Plan, t time.Time, seq int) bool {
	if p.MaxOccurrences > 0 && seq > p.MaxOccurrences {
		return false
	}
	if p.EndsAt != nil && t.After(*p.EndsAt) {
		return false
	}
	if !p.Active {
		// desactivado: solo lo anterior a la desactivación sigue siendo del plan
		if p.DeactivatedAt == nil || !t.Before(*p.DeactivatedAt) {
			return false
		}
	}
	return true
}

// Upcoming proyecta las dosis desde el inicio del tratamiento hasta horizon
// (inclusivo). Es pura y reiniciable: cada range arranca de cero.
// Con un plan inválido no produce nada.
func Upcoming(p Plan, horizon time.Time) iter.Seq[Occurrence] {
	return func(yield func(Occurrence) bool) {
		if Validate(p) != nil {
			return
		}
		first := Occurrence{
			DoseID:    DoseID(p.TreatmentID, 1),
			Seq:       1,
			Scheduled: p.Start,
		}
		emit(p, first, horizon, yield)
	}
}

// UpcomingAfter continúa la secuencia a partir de una dosis ya materializada,
// usando su hora de confirmación si el modo lo requiere.
func UpcomingAfter(p Plan, last Occurrence, horizon time.Time) iter.Seq[Occurrence] {
	return func(yield func(Occurrence) bool) {
		if Validate(p) != nil || last.Seq < 1 {
			return
		}
		next := Occurrence{
			DoseID:    DoseID(p.TreatmentID, last.Seq+1),
			Seq:       last.Seq + 1,
			Scheduled: NextOccurrence(p, last),
		}
		emit(p, next, horizon, yield)
	}
}

func emit(p Plan, o Occurrence, horizon time.Time, yield func(Occurrence) bool) {
	for {
		if o.Scheduled.After(horizon) || !Within(p, o.Scheduled, o.Seq) {
			return
		}
		if !yield(o) {
			return
		}
		// las proyecciones no tienen confirmación: la siguiente cae a scheduled+interval
		next := NextOccurrence(p, Occurrence{Seq: o.Seq, Scheduled: o.Scheduled})
		o = Occurrence{
			DoseID:    DoseID(p.TreatmentID, o.Seq+1),
			Seq:       o.Seq + 1,
			Scheduled: next,
		}
	}
}

// Collect materializa hasta max ocurrencias de seq (max<=0 => todas).
func Collect(seq iter.Seq[Occurrence], max int) []Occurrence {
	out := make([]Occurrence, 0)
	for o := range seq {
		out = append(out, o)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
