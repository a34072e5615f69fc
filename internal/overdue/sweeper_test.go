package overdue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/memstore"
	"github.com/MrJamesThe3rd/condo/internal/overdue"
)

var now = time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func seed(t *testing.T, store *memstore.Store, due time.Time) *ledger.Payment {
	t.Helper()

	p := &ledger.Payment{
		ID:          uuid.New(),
		PayerID:     uuid.New(),
		RecipientID: uuid.New(),
		Amount:      decimal.NewFromInt(100),
		Type:        ledger.PaymentTypeCharges,
		Status:      ledger.PaymentPending,
		DueDate:     due,
	}

	_, created, err := store.InsertPaymentIfAbsent(context.Background(), p)
	require.NoError(t, err)
	require.True(t, created)

	return p
}

func TestSweeper_Sweep(t *testing.T) {
	store := memstore.NewWithClock(clock)

	late := seed(t, store, now.Add(-48*time.Hour))
	dueToday := seed(t, store, now.Add(time.Hour))

	var hooked []*ledger.Payment

	sw := overdue.NewSweeper(store, overdue.WithClock(clock))
	sw.OnSwept(func(_ context.Context, swept []*ledger.Payment) { hooked = append(hooked, swept...) })

	swept, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	require.Len(t, swept, 1)
	assert.Equal(t, late.ID, swept[0].ID)
	assert.Equal(t, ledger.PaymentOverdue, swept[0].Status)
	assert.Len(t, hooked, 1)

	got, err := store.GetPayment(context.Background(), dueToday.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentPending, got.Status)
}

func TestSweeper_Idempotent(t *testing.T) {
	store := memstore.NewWithClock(clock)
	for range 5 {
		seed(t, store, now.Add(-time.Hour))
	}

	sw := overdue.NewSweeper(store, overdue.WithClock(clock))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			swept, err := sw.Sweep(context.Background())
			assert.NoError(t, err)

			mu.Lock()
			total += len(swept)
			mu.Unlock()
		}()
	}

	wg.Wait()

	assert.Equal(t, 5, total, "each payment is reported by exactly one sweep")

	again, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)

	overdueNow, err := store.ListPayments(context.Background(), ledger.PaymentFilter{Statuses: []ledger.PaymentStatus{ledger.PaymentOverdue}})
	require.NoError(t, err)
	assert.Len(t, overdueNow, 5)
}

func TestSweeper_LeavesTerminalPaymentsAlone(t *testing.T) {
	store := memstore.NewWithClock(clock)
	p := seed(t, store, now.Add(-time.Hour))

	paidAt := now.Add(-2 * time.Hour)
	p.Status = ledger.PaymentPaid
	p.PaidDate = &paidAt
	require.NoError(t, store.UpdatePaymentStatus(context.Background(), p, []ledger.PaymentStatus{ledger.PaymentPending}))

	swept, err := overdue.NewSweeper(store, overdue.WithClock(clock)).Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, swept)
}

type failingMarker struct{}

func (failingMarker) MarkOverdue(context.Context, time.Time) ([]*ledger.Payment, error) {
	return nil, errors.New("db down")
}

func TestSweeper_Error(t *testing.T) {
	called := false

	sw := overdue.NewSweeper(failingMarker{})
	sw.OnSwept(func(context.Context, []*ledger.Payment) { called = true })

	_, err := sw.Sweep(context.Background())
	assert.Error(t, err)
	assert.False(t, called)
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := overdue.NewScheduler(overdue.NewSweeper(failingMarker{}), "every now and then", time.Second, nil)
	assert.Error(t, err)
}

func TestScheduler_RunStopsWithContext(t *testing.T) {
	store := memstore.NewWithClock(clock)
	seed(t, store, now.Add(-time.Hour))

	sw := overdue.NewSweeper(store, overdue.WithClock(clock))

	sched, err := overdue.NewScheduler(sw, "@every 1s", time.Second, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool {
		ps, _ := store.ListPayments(context.Background(), ledger.PaymentFilter{Statuses: []ledger.PaymentStatus{ledger.PaymentOverdue}})
		return len(ps) == 1
	}, 3*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
