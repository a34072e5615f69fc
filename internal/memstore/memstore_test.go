package memstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/memstore"
)

var now = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func TestRecordPayment_ConcurrentDuplicatesCreateOne(t *testing.T) {
	store := memstore.NewWithClock(clock)
	svc := ledger.NewService(store, ledger.WithClock(clock))

	unitID := uuid.New()
	params := ledger.PaymentParams{
		PayerID:     uuid.New(),
		RecipientID: uuid.New(),
		UnitID:      &unitID,
		Amount:      decimal.RequireFromString("1200.00"),
		Type:        ledger.PaymentTypeRent,
		DueDate:     now.Add(72 * time.Hour),
	}

	const n = 20

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = make(map[uuid.UUID]struct{})
		created int
	)

	for range n {
		wg.Add(1)

		go func() {
			defer wg.Done()

			p, ok, err := svc.RecordPayment(context.Background(), params)
			assert.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()

			ids[p.ID] = struct{}{}
			if ok {
				created++
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1, "every caller sees the same payment")

	all, err := store.ListPayments(context.Background(), ledger.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRecordPayment_DuplicateKeyBoundaries(t *testing.T) {
	store := memstore.NewWithClock(clock)
	svc := ledger.NewService(store, ledger.WithClock(clock))
	ctx := context.Background()

	base := ledger.PaymentParams{
		PayerID:     uuid.New(),
		RecipientID: uuid.New(),
		Amount:      decimal.RequireFromString("75.5"),
		Type:        ledger.PaymentTypeCharges,
		DueDate:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	first, created, err := svc.RecordPayment(ctx, base)
	require.NoError(t, err)
	require.True(t, created)

	sameDay := base
	sameDay.DueDate = base.DueDate.Add(10 * time.Hour)

	got, created, err := svc.RecordPayment(ctx, sameDay)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, got.ID)

	nextDay := base
	nextDay.DueDate = base.DueDate.Add(24 * time.Hour)

	_, created, err = svc.RecordPayment(ctx, nextDay)
	require.NoError(t, err)
	assert.True(t, created)

	// A cancelled payment no longer blocks its key.
	_, _, err = svc.CancelPayment(ctx, first.ID)
	require.NoError(t, err)

	again, created, err := svc.RecordPayment(ctx, base)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestRecordRequest_DedupeWindow(t *testing.T) {
	current := now
	tick := func() time.Time { return current }

	store := memstore.NewWithClock(tick)
	svc := ledger.NewService(store, ledger.WithClock(tick))
	ctx := context.Background()

	params := ledger.RequestParams{
		CreatorID: uuid.New(),
		Type:      ledger.RequestMaintenance,
		Title:     "Broken intercom",
	}

	first, created, err := svc.RecordRequest(ctx, params)
	require.NoError(t, err)
	require.True(t, created)

	current = now.Add(23 * time.Hour)

	dup, created, err := svc.RecordRequest(ctx, params)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, dup.ID)

	current = now.Add(25 * time.Hour)

	later, created, err := svc.RecordRequest(ctx, params)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, later.ID)
}

func TestRecordRequest_TerminalDoesNotBlock(t *testing.T) {
	store := memstore.NewWithClock(clock)
	svc := ledger.NewService(store, ledger.WithClock(clock))
	ctx := context.Background()

	params := ledger.RequestParams{CreatorID: uuid.New(), Type: ledger.RequestClaim, Title: "Noise"}

	first, _, err := svc.RecordRequest(ctx, params)
	require.NoError(t, err)

	_, err = svc.MutateRequest(ctx, first.ID, func(r *ledger.Request) error {
		return r.Transition(ledger.RequestRejected, uuid.New(), now, "duplicate of another claim")
	})
	require.NoError(t, err)

	_, created, err := svc.RecordRequest(ctx, params)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestUpdateRequest_VersionConflict(t *testing.T) {
	store := memstore.NewWithClock(clock)
	ctx := context.Background()

	r := &ledger.Request{ID: uuid.New(), CreatorID: uuid.New(), Type: ledger.RequestOther, Title: "x", Status: ledger.RequestPending}
	_, _, err := store.InsertRequestIfAbsent(ctx, r, now.Add(-time.Hour))
	require.NoError(t, err)

	a, err := store.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	b, err := store.GetRequest(ctx, r.ID)
	require.NoError(t, err)

	require.NoError(t, store.UpdateRequest(ctx, a))
	assert.Equal(t, int64(2), a.Version)
	assert.ErrorIs(t, store.UpdateRequest(ctx, b), ledger.ErrVersionConflict)
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := memstore.NewWithClock(clock)
	ctx := context.Background()

	r := &ledger.Request{
		ID: uuid.New(), CreatorID: uuid.New(), Type: ledger.RequestOther, Title: "x",
		Status:    ledger.RequestPending,
		Documents: []ledger.Document{{ID: uuid.New(), Kind: "note"}},
	}
	_, _, err := store.InsertRequestIfAbsent(ctx, r, now.Add(-time.Hour))
	require.NoError(t, err)

	got, err := store.GetRequest(ctx, r.ID)
	require.NoError(t, err)

	got.Documents[0].Signed = true

	again, err := store.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, again.Documents[0].Signed)
}
