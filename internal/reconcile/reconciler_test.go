package reconcile_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/reconcile"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var cfg = reconcile.Config{SuppressionWindow: 5 * time.Second, PendingTTL: time.Minute}

func setup(t *testing.T) (*reconcile.Reconciler, *fakeClock, ledger.Aggregate) {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	reqID := uuid.New()
	unitID := uuid.New()

	p := &ledger.Payment{
		ID:        uuid.New(),
		PayerID:   uuid.New(),
		UnitID:    &unitID,
		RequestID: &reqID,
		Amount:    decimal.RequireFromString("950"),
		Type:      ledger.PaymentTypeRent,
		Status:    ledger.PaymentPending,
		DueDate:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	agg := ledger.Aggregate{
		Request: &ledger.Request{
			ID:             reqID,
			Type:           ledger.RequestRental,
			Status:         ledger.RequestAccepted,
			UnitID:         &unitID,
			PaymentID:      &p.ID,
			InitialPayment: p.Descriptor(),
		},
		Payments: []*ledger.Payment{p},
	}

	rec := reconcile.New(reqID, cfg, reconcile.WithClock(clock.now))
	rec.Merge(agg)

	return rec, clock, agg
}

func TestReconciler_Apply(t *testing.T) {
	rec, clock, agg := setup(t)
	p := agg.Payments[0]

	assert.Equal(t, reconcile.Ignore, rec.Apply(fanout.Event{
		Type:      fanout.RequestUpdated,
		RequestID: new(uuid.New()),
	}))

	assert.Equal(t, reconcile.Refetch, rec.Apply(fanout.RequestEvent(fanout.RequestUpdated, agg.Request, clock.now())),
		"generic updates refetch when nothing local is pending")

	paid := *p
	paid.Status = ledger.PaymentPaid
	assert.Equal(t, reconcile.Patch, rec.Apply(fanout.PaymentEvent(fanout.PaymentPaid, &paid, clock.now())))

	view := rec.View()
	assert.Equal(t, ledger.PaymentPaid, view.Payments[0].Status)
	require.NotNil(t, view.Payments[0].PaidDate)
	assert.Equal(t, ledger.PaymentPaid, view.Request.InitialPayment.Status)

	unknown := paid
	unknown.ID = uuid.New()
	assert.Equal(t, reconcile.Refetch, rec.Apply(fanout.PaymentEvent(fanout.PaymentPaid, &unknown, clock.now())),
		"a terminal event for a payment the client has not seen yet needs the server copy")
}

func TestReconciler_SuppressesUpdatesAfterLocalWrite(t *testing.T) {
	rec, clock, agg := setup(t)

	local := &ledger.Payment{
		PayerID:   uuid.New(),
		UnitID:    agg.Request.UnitID,
		RequestID: &agg.Request.ID,
		Amount:    decimal.RequireFromString("75"),
		Type:      ledger.PaymentTypeCharges,
		Status:    ledger.PaymentPending,
		DueDate:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	rec.AddOptimistic(local)

	ev := fanout.RequestEvent(fanout.RequestUpdated, agg.Request, clock.now())
	assert.Equal(t, reconcile.Suppress, rec.Apply(ev))

	wait, owed := rec.Owed()
	assert.True(t, owed)
	assert.Equal(t, cfg.SuppressionWindow, wait)

	clock.advance(cfg.SuppressionWindow)
	wait, owed = rec.Owed()
	assert.True(t, owed)
	assert.Zero(t, wait)

	assert.Equal(t, reconcile.Refetch, rec.Apply(ev), "the window is closed")
}

func TestReconciler_Merge(t *testing.T) {
	tests := []struct {
		name        string
		elapsed     time.Duration
		echoed      bool
		wantPending bool
	}{
		{name: "kept until echoed", elapsed: time.Second, wantPending: true},
		{name: "dropped on echo", elapsed: time.Second, echoed: true},
		{name: "dropped after ttl", elapsed: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, clock, agg := setup(t)

			local := &ledger.Payment{
				PayerID: uuid.New(),
				UnitID:  agg.Request.UnitID,
				Amount:  decimal.RequireFromString("75"),
				Type:    ledger.PaymentTypeCharges,
				Status:  ledger.PaymentPending,
				DueDate: time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
			}
			rec.AddOptimistic(local)
			clock.advance(tt.elapsed)

			server := ledger.Aggregate{Request: agg.Request, Payments: agg.Payments}
			if tt.echoed {
				confirmed := *local
				confirmed.ID = uuid.New()
				confirmed.DueDate = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
				server.Payments = append(server.Payments, &confirmed)
			}

			rec.Merge(server)

			view := rec.View()
			want := len(server.Payments)
			if tt.wantPending {
				want++
			}

			assert.Len(t, view.Payments, want)
		})
	}
}

func TestReconciler_MergeKeepsTerminalStatus(t *testing.T) {
	rec, clock, agg := setup(t)
	p := agg.Payments[0]

	paid := *p
	paid.Status = ledger.PaymentPaid
	require.Equal(t, reconcile.Patch, rec.Apply(fanout.PaymentEvent(fanout.PaymentPaid, &paid, clock.now())))

	// A poll that raced the payment still reports it pending.
	rec.Merge(agg)

	assert.Equal(t, ledger.PaymentPaid, rec.View().Payments[0].Status)
}

func TestReconciler_ViewIsACopy(t *testing.T) {
	rec, _, _ := setup(t)

	view := rec.View()
	view.Payments[0].Status = ledger.PaymentCancelled
	view.Request.Status = ledger.RequestRejected

	again := rec.View()
	assert.Equal(t, ledger.PaymentPending, again.Payments[0].Status)
	assert.Equal(t, ledger.RequestAccepted, again.Request.Status)
}
