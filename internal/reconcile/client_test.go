package reconcile_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/reconcile"
)

func TestClient_PatchesFromPushAndPolls(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := reconcile.NewMockFetcher(ctrl)
	source := reconcile.NewMockSource(ctrl)

	_, _, agg := setup(t)
	rec := reconcile.New(agg.Request.ID, cfg)

	paid := *agg.Payments[0]
	paid.Status = ledger.PaymentPaid
	data, err := json.Marshal(fanout.PaymentEvent(fanout.PaymentPaid, &paid, time.Now()))
	require.NoError(t, err)

	paidAgg := agg
	paidAgg.Payments = []*ledger.Payment{&paid}

	// The server has settled the payment by the time the push goes out, so any refetch
	// after the first one sees it paid.
	fetched := make(chan struct{})
	first := fetcher.EXPECT().RequestAggregate(gomock.Any(), agg.Request.ID).
		Do(func(context.Context, uuid.UUID) { close(fetched) }).
		Return(agg, nil)
	fetcher.EXPECT().RequestAggregate(gomock.Any(), agg.Request.ID).Return(paidAgg, nil).AnyTimes().After(first)

	source.EXPECT().Subscribe(gomock.Any(), []string{fanout.RequestChannel(agg.Request.ID)}, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ []string, out chan<- fanout.Message) error {
			select {
			case <-fetched:
			case <-ctx.Done():
				return ctx.Err()
			}

			out <- fanout.Message{Channel: fanout.RequestChannel(agg.Request.ID), Event: fanout.PaymentPaid, Data: data}
			<-ctx.Done()

			return ctx.Err()
		})

	views := make(chan ledger.Aggregate, 16)
	client := reconcile.NewClient(rec, fetcher, source, time.Hour, nil)
	client.OnChange(func(v ledger.Aggregate) { views <- v })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- client.Run(ctx) }()

	require.Eventually(t, func() bool {
		payments := rec.View().Payments
		return len(payments) == 1 && payments[0].Status == ledger.PaymentPaid
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.NotEmpty(t, views)
}

func TestClient_RefreshError(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := reconcile.NewMockFetcher(ctrl)

	id := uuid.New()
	fetcher.EXPECT().RequestAggregate(gomock.Any(), id).Return(ledger.Aggregate{}, errors.New("502"))

	client := reconcile.NewClient(reconcile.New(id, cfg), fetcher, nil, time.Second, nil)
	require.Error(t, client.Refresh(context.Background()))
}
