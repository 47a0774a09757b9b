package notifications

import (
	"context"
	"testing"
	"time"

	"doseclock/internal/domain/doses"
)

var s0 = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func pendingDose(id string, scheduled time.Time) doses.Dose {
	return doses.Dose{ID: id, TreatmentID: "t1", OwnerUserID: "u1", MedicationName: "Ibuprofeno", ScheduledAt: scheduled, Status: doses.StatusPending}
}

func kinds(evs []Event) []Kind {
	out := make([]Kind, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Kind)
	}
	return out
}

func TestDueNotifications_Windows(t *testing.T) {
	cfg := DefaultConfig()
	d := pendingDose("d1", s0)

	cases := []struct {
		name string
		now  time.Time
		want []Kind
	}{
		{"before advance", s0.Add(-5*time.Minute - time.Second), nil},
		{"advance start", s0.Add(-5 * time.Minute), []Kind{KindAdvance}},
		{"advance end", s0.Add(-4*time.Minute - time.Second), []Kind{KindAdvance}},
		{"after advance window", s0.Add(-4 * time.Minute), nil},
		{"due start", s0, []Kind{KindDue}},
		{"due end", s0.Add(59 * time.Second), []Kind{KindDue}},
		{"after due window", s0.Add(time.Minute), nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := kinds(DueNotifications([]doses.Dose{d}, c.now, nil, cfg))
			if len(got) != len(c.want) {
				t.Fatalf("expected %v, got %v", c.want, got)
			}
			for i := range got {
				if got[i] != c.want[i] {
					t.Fatalf("expected %v, got %v", c.want, got)
				}
			}
		})
	}
}

func TestDueNotifications_ExcludesResolved(t *testing.T) {
	cfg := DefaultConfig()
	at := s0.Add(-time.Minute)

	confirmed := pendingDose("d1", s0)
	confirmed.ConfirmedAt = &at
	confirmed.Status = doses.StatusConfirmed

	late := pendingDose("d2", s0)
	late.Status = doses.StatusLate
	late.ConfirmedAt = &at

	missed := pendingDose("d3", s0)
	missed.Status = doses.StatusMissed

	got := DueNotifications([]doses.Dose{confirmed, late, missed}, s0, nil, cfg)
	if len(got) != 0 {
		t.Fatalf("resolved doses must not notify, got %+v", got)
	}
}

func TestDueNotifications_AtMostOncePerKind(t *testing.T) {
	cfg := DefaultConfig()
	items := []doses.Dose{
		pendingDose("d1", s0),
		pendingDose("d2", s0.Add(17*time.Second)),
		pendingDose("d3", s0.Add(8*time.Hour)),
	}

	seen := NewSeenSet()
	counts := map[string]int{}

	// pasadas cada 30s con desfase, más algunas repetidas
	for now := s0.Add(-10*time.Minute + 7*time.Second); now.Before(s0.Add(9 * time.Hour)); now = now.Add(30 * time.Second) {
		for pass := 0; pass < 2; pass++ {
			for _, ev := range DueNotifications(items, now, seen, cfg) {
				counts[ev.DoseID+"/"+string(ev.Kind)]++
				seen.Add(ev.DoseID, ev.Kind)
			}
		}
	}

	for _, d := range items {
		for _, k := range []Kind{KindAdvance, KindDue} {
			if got := counts[d.ID+"/"+string(k)]; got != 1 {
				t.Fatalf("%s %s: expected exactly 1 event, got %d", d.ID, k, got)
			}
		}
	}
}

func missedDose(id string, scheduled time.Time) doses.Dose {
	d := pendingDose(id, scheduled)
	d.Status = doses.StatusMissed
	return d
}

func TestMissedEvents(t *testing.T) {
	grace := 20 * time.Minute
	window := time.Hour
	now := s0.Add(grace) // 08:20, vence d1

	lateAt := now
	late := pendingDose("late", s0)
	late.Status = doses.StatusLate
	late.ConfirmedAt = &lateAt

	items := []doses.Dose{
		missedDose("d1", s0),
		missedDose("d2", s0),                      // ya enviada
		missedDose("old", s0.Add(-2*time.Hour)),   // venció hace más de una hora
		missedDose("edge", s0.Add(-window)),       // vence justo en now-window
		pendingDose("pending", s0.Add(time.Hour)), // todavía no vence
		late,
	}
	seen := NewSeenSet(Sent{DoseID: "d2", Kind: KindMissed})

	evs := MissedEvents(items, now, seen, grace, window)
	got := map[string]bool{}
	for _, ev := range evs {
		if ev.Kind != KindMissed {
			t.Fatalf("unexpected kind: %+v", ev)
		}
		got[ev.DoseID] = true
	}
	if len(evs) != 2 || !got["d1"] || !got["edge"] {
		t.Fatalf("expected d1 and edge, got %+v", evs)
	}
	for _, ev := range evs {
		if ev.DoseID == "d1" && !ev.FireAt.Equal(s0.Add(grace)) {
			t.Fatalf("unexpected fire time: %s", ev.FireAt)
		}
	}
}

func TestService_MissedRetriedUntilMarkedSent(t *testing.T) {
	ctx := context.Background()
	log := &testSentLog{}
	svc := NewService(log, Config{})
	items := []doses.Dose{missedDose("d1", s0)}
	now := s0.Add(25 * time.Minute)

	// sin MarkSent (entrega fallida) vuelve a salir
	for i := 0; i < 2; i++ {
		evs, err := svc.Missed(ctx, items, now.Add(time.Duration(i)*30*time.Second), 20*time.Minute)
		if err != nil || len(evs) != 1 {
			t.Fatalf("pass %d: expected 1 missed event, got %d err=%v", i, len(evs), err)
		}
		if i == 1 {
			if err := svc.MarkSent(ctx, evs[0]); err != nil {
				t.Fatalf("mark sent: %v", err)
			}
		}
	}

	evs, err := svc.Missed(ctx, items, now.Add(time.Minute), 20*time.Minute)
	if err != nil || len(evs) != 0 {
		t.Fatalf("expected nothing after mark sent, got %d err=%v", len(evs), err)
	}

	// fuera de la ventana ya no se reintenta
	fresh := NewService(&testSentLog{}, Config{})
	evs, err = fresh.Missed(ctx, items, s0.Add(20*time.Minute+time.Hour+time.Second), 20*time.Minute)
	if err != nil || len(evs) != 0 {
		t.Fatalf("expected stale missed dose to be dropped, got %d err=%v", len(evs), err)
	}
}

// -------------------------
// Service con SentLog en memoria
// -------------------------

type testSentLog struct {
	sent []Sent
}

func (l *testSentLog) SentFor(ctx context.Context, doseIDs []string) ([]Sent, error) {
	want := map[string]bool{}
	for _, id := range doseIDs {
		want[id] = true
	}
	out := make([]Sent, 0)
	for _, s := range l.sent {
		if want[s.DoseID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (l *testSentLog) MarkSent(ctx context.Context, s Sent) error {
	for _, v := range l.sent {
		if v.DoseID == s.DoseID && v.Kind == s.Kind {
			return nil
		}
	}
	l.sent = append(l.sent, s)
	return nil
}

func TestService_DueSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	log := &testSentLog{}
	items := []doses.Dose{pendingDose("d1", s0)}

	svc := NewService(log, Config{})
	evs, err := svc.Due(ctx, items, s0)
	if err != nil || len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d err=%v", len(evs), err)
	}
	if err := svc.MarkSent(ctx, evs[0]); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := svc.MarkSent(ctx, evs[0]); err != nil {
		t.Fatalf("mark sent must be idempotent: %v", err)
	}

	// nuevo servicio, mismo log: no se repite
	again := NewService(log, Config{})
	evs, err = again.Due(ctx, items, s0.Add(30*time.Second))
	if err != nil || len(evs) != 0 {
		t.Fatalf("expected no events after restart, got %d err=%v", len(evs), err)
	}

	if err := again.MarkSent(ctx, Event{DoseID: "d1", Kind: "bogus"}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
