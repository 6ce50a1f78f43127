package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/shopspring/decimal"
)

var ten = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func reservation(status model.Status, start, end time.Time) model.Reservation {
	return model.Reservation{
		ID:           1,
		LotID:        1,
		DriverID:     7,
		VehiclePlate: "ABC123",
		Window:       model.Window{Start: start, End: end},
		PricePerHour: decimal.NewFromInt(8),
		TotalPrice:   decimal.NewFromInt(8),
		AmountDue:    decimal.NewFromInt(8),
		Status:       status,
	}
}

func TestNewWindow(t *testing.T) {
	if _, err := model.NewWindow(ten, ten); !errors.Is(err, model.ErrInvalidWindow) {
		t.Fatalf("empty window: err = %v", err)
	}
	if _, err := model.NewWindow(ten.Add(time.Hour), ten); !errors.Is(err, model.ErrInvalidWindow) {
		t.Fatalf("inverted window: err = %v", err)
	}
	w, err := model.NewWindow(ten, ten.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Contains(ten) || w.Contains(ten.Add(time.Hour)) {
		t.Fatalf("window must be half-open")
	}
}

func TestNewWindowTruncatesToMicroseconds(t *testing.T) {
	w, err := model.NewWindow(ten.Add(1500*time.Nanosecond), ten.Add(time.Hour+999*time.Nanosecond))
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	if !w.Start.Equal(ten.Add(time.Microsecond)) || !w.End.Equal(ten.Add(time.Hour)) {
		t.Fatalf("window = %v..%v", w.Start, w.End)
	}
	if _, err := model.NewWindow(ten.Add(100*time.Nanosecond), ten.Add(900*time.Nanosecond)); !errors.Is(err, model.ErrInvalidWindow) {
		t.Fatalf("sub-microsecond window: err = %v", err)
	}
}

func TestWindowOverlaps(t *testing.T) {
	a := model.Window{Start: at(10, 0), End: at(11, 0)}
	cases := []struct {
		name string
		b    model.Window
		want bool
	}{
		{"touching after", model.Window{Start: at(11, 0), End: at(12, 0)}, false},
		{"touching before", model.Window{Start: at(9, 0), End: at(10, 0)}, false},
		{"inside", model.Window{Start: at(10, 15), End: at(10, 45)}, true},
		{"straddling end", model.Window{Start: at(10, 30), End: at(11, 30)}, true},
		{"covering", model.Window{Start: at(9, 0), End: at(12, 0)}, true},
	}
	for _, tc := range cases {
		if got := a.Overlaps(tc.b); got != tc.want {
			t.Errorf("%s: Overlaps = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to model.Status
		actor    model.Actor
		ok       bool
	}{
		{model.StatusPendingPayment, model.StatusPending, model.ActorPayment, true},
		{model.StatusPendingPayment, model.StatusConfirmed, model.ActorOwner, true},
		{model.StatusPending, model.StatusCancelled, model.ActorDriver, true},
		{model.StatusPending, model.StatusRejected, model.ActorOwner, true},
		{model.StatusConfirmed, model.StatusActive, model.ActorGate, true},
		{model.StatusConfirmed, model.StatusExpired, model.ActorClock, true},
		{model.StatusActive, model.StatusCompleted, model.ActorGate, true},
		{model.StatusActive, model.StatusCompleted, model.ActorClock, true},
		{model.StatusActive, model.StatusCancelled, model.ActorDriver, false},
		{model.StatusPending, model.StatusCancelled, model.ActorOwner, false},
		{model.StatusCompleted, model.StatusActive, model.ActorGate, false},
		{model.StatusExpired, model.StatusConfirmed, model.ActorOwner, false},
		{model.StatusConfirmed, model.StatusConfirmed, model.ActorOwner, false},
	}
	for _, tc := range cases {
		if got := model.CanTransition(tc.from, tc.to, tc.actor); got != tc.ok {
			t.Errorf("%s -> %s by %s = %v, want %v", tc.from, tc.to, tc.actor, got, tc.ok)
		}
	}

	r := reservation(model.StatusCancelled, at(10, 0), at(11, 0))
	if err := r.Transition(model.StatusConfirmed, model.ActorOwner); !errors.Is(err, model.ErrIllegalTransition) {
		t.Fatalf("terminal transition err = %v", err)
	}
	if r.Status != model.StatusCancelled {
		t.Fatalf("status changed on illegal transition: %s", r.Status)
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	actors := []model.Actor{model.ActorDriver, model.ActorOwner, model.ActorPayment, model.ActorGate, model.ActorSystem, model.ActorClock}
	for _, from := range model.Statuses {
		if !from.Terminal() {
			continue
		}
		for _, to := range model.Statuses {
			for _, a := range actors {
				if model.CanTransition(from, to, a) {
					t.Fatalf("terminal %s has exit to %s by %s", from, to, a)
				}
			}
		}
	}
}

func TestPresentation(t *testing.T) {
	start, end := at(10, 0), at(11, 0)
	cases := []struct {
		name   string
		status model.Status
		inside bool
		now    time.Time
		want   model.Presentation
	}{
		{"awaiting payment", model.StatusPendingPayment, false, at(9, 0), model.PresentationPending},
		{"awaiting owner", model.StatusPending, false, at(10, 30), model.PresentationPending},
		{"confirmed before start", model.StatusConfirmed, false, at(9, 0), model.PresentationUpcoming},
		{"confirmed in window", model.StatusConfirmed, false, at(10, 30), model.PresentationInProgress},
		{"active in window", model.StatusActive, true, at(10, 30), model.PresentationInProgress},
		{"active overstaying", model.StatusActive, true, at(11, 30), model.PresentationInProgress},
		{"confirmed after end", model.StatusConfirmed, false, at(11, 30), model.PresentationPast},
		{"completed", model.StatusCompleted, false, at(10, 30), model.PresentationPast},
		{"cancelled", model.StatusCancelled, false, at(9, 0), model.PresentationPast},
		{"rejected", model.StatusRejected, false, at(9, 0), model.PresentationPast},
	}
	for _, tc := range cases {
		r := reservation(tc.status, start, end)
		r.IsInside = tc.inside
		if got := r.Presentation(tc.now); got != tc.want {
			t.Errorf("%s: Presentation = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestReconcileNoShow(t *testing.T) {
	// active, in-progress, start 10:00, now 10:20, not inside
	r := reservation(model.StatusActive, at(10, 0), at(11, 0))
	got := model.Reconcile(r, at(10, 20), model.DefaultPolicy())
	if !got.Changed || got.Next.Status != model.StatusExpired || got.Outcome != model.SweepNoShow {
		t.Fatalf("got %+v", got)
	}
	if p := got.Next.Presentation(at(10, 20)); p != model.PresentationPast {
		t.Fatalf("presentation = %s, want past", p)
	}
}

func TestReconcileWithinGraceIsNoop(t *testing.T) {
	r := reservation(model.StatusConfirmed, at(10, 0), at(11, 0))
	for _, now := range []time.Time{at(9, 0), at(10, 0), at(10, 15)} {
		if got := model.Reconcile(r, now, model.DefaultPolicy()); got.Changed {
			t.Fatalf("now %s: unexpected change %+v", now, got)
		}
	}
}

func TestReconcileActivatesInsideConfirmed(t *testing.T) {
	r := reservation(model.StatusConfirmed, at(10, 0), at(11, 0))
	r.IsInside = true
	got := model.Reconcile(r, at(10, 5), model.DefaultPolicy())
	if !got.Changed || got.Next.Status != model.StatusActive || got.Outcome != model.SweepActivated {
		t.Fatalf("got %+v", got)
	}
}

func TestReconcileWindowEnded(t *testing.T) {
	p := model.DefaultPolicy()

	active := reservation(model.StatusActive, at(10, 0), at(11, 0))
	if got := model.Reconcile(active, at(11, 1), p); got.Next.Status != model.StatusCompleted {
		t.Fatalf("active absent after end: %s", got.Next.Status)
	}

	awaiting := reservation(model.StatusPending, at(10, 0), at(11, 0))
	if got := model.Reconcile(awaiting, at(11, 0), p); got.Next.Status != model.StatusExpired {
		t.Fatalf("awaiting after end: %s", got.Next.Status)
	}
	if got := model.Reconcile(awaiting, at(10, 59), p); got.Changed {
		t.Fatalf("awaiting before end changed: %+v", got)
	}
}

func TestReconcileOverstayAccrues(t *testing.T) {
	r := reservation(model.StatusActive, at(10, 0), at(11, 0))
	r.IsInside = true
	now := at(11, 20)

	got := model.Reconcile(r, now, model.DefaultPolicy())
	if !got.Changed || got.Next.Status != model.StatusActive {
		t.Fatalf("got %+v", got)
	}
	if !got.Next.ExtraCharges.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("extra = %s, want 4", got.Next.ExtraCharges)
	}
	if !got.Next.AmountDue.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("amount due = %s, want 12", got.Next.AmountDue)
	}

	again := model.Reconcile(got.Next, now, model.DefaultPolicy())
	if again.Changed {
		t.Fatalf("second pass changed: %+v", again)
	}
}

func TestReconcileIgnoresTerminal(t *testing.T) {
	for _, s := range []model.Status{model.StatusCompleted, model.StatusCancelled, model.StatusRejected, model.StatusExpired} {
		r := reservation(s, at(10, 0), at(11, 0))
		if got := model.Reconcile(r, at(12, 0), model.DefaultPolicy()); got.Changed {
			t.Fatalf("%s changed", s)
		}
	}
}

func TestReconcilePaymentHold(t *testing.T) {
	p := model.DefaultPolicy()
	p.PaymentHold = 30 * time.Minute

	unpaid := reservation(model.StatusPendingPayment, at(12, 0), at(13, 0))
	unpaid.CreatedAt = at(9, 0)
	if got := model.Reconcile(unpaid, at(9, 29), p); got.Changed {
		t.Fatalf("inside hold changed: %+v", got)
	}
	got := model.Reconcile(unpaid, at(9, 30), p)
	if !got.Changed || got.Next.Status != model.StatusExpired || got.Outcome != model.SweepExpired {
		t.Fatalf("hold elapsed: %+v", got)
	}
	if again := model.Reconcile(got.Next, at(9, 30), p); again.Changed {
		t.Fatalf("second pass changed: %+v", again)
	}

	paid := reservation(model.StatusPending, at(12, 0), at(13, 0))
	paid.CreatedAt = at(9, 0)
	if got := model.Reconcile(paid, at(10, 0), p); got.Changed {
		t.Fatalf("paid pending reservation expired by the hold: %+v", got)
	}
	if got := model.Reconcile(unpaid, at(10, 0), model.DefaultPolicy()); got.Changed {
		t.Fatalf("default policy applied a hold: %+v", got)
	}
}
