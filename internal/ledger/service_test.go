package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func validPaymentParams() ledger.PaymentParams {
	return ledger.PaymentParams{
		PayerID:     uuid.New(),
		RecipientID: uuid.New(),
		UnitID:      new(uuid.New()),
		Amount:      decimal.RequireFromString("850.00"),
		Type:        ledger.PaymentTypeRent,
		DueDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestService_RecordPayment(t *testing.T) {
	type testCase struct {
		name        string
		params      func() ledger.PaymentParams
		setupMock   func(m *ledger.MockRepository)
		wantCreated bool
		wantErr     error
	}

	existing := &ledger.Payment{ID: uuid.New(), Status: ledger.PaymentPaid}

	tests := []testCase{
		{
			name:   "Created",
			params: validPaymentParams,
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().
					InsertPaymentIfAbsent(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, p *ledger.Payment) (*ledger.Payment, bool, error) {
						assert.Equal(t, ledger.PaymentPending, p.Status)
						assert.Equal(t, "850.00", p.Amount.StringFixed(2))
						return p, true, nil
					})
			},
			wantCreated: true,
		},
		{
			name:   "DuplicateReturnsExisting",
			params: validPaymentParams,
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().
					InsertPaymentIfAbsent(gomock.Any(), gomock.Any()).
					Return(existing, false, nil)
			},
			wantCreated: false,
		},
		{
			name: "ZeroAmount",
			params: func() ledger.PaymentParams {
				p := validPaymentParams()
				p.Amount = decimal.Zero
				return p
			},
			wantErr: ledger.ErrInvalid,
		},
		{
			name: "MissingPayer",
			params: func() ledger.PaymentParams {
				p := validPaymentParams()
				p.PayerID = uuid.Nil
				return p
			},
			wantErr: ledger.ErrInvalid,
		},
		{
			name: "UnknownType",
			params: func() ledger.PaymentParams {
				p := validPaymentParams()
				p.Type = "gift"
				return p
			},
			wantErr: ledger.ErrInvalid,
		},
		{
			name:   "RepoError",
			params: validPaymentParams,
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().
					InsertPaymentIfAbsent(gomock.Any(), gomock.Any()).
					Return(nil, false, errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := ledger.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := ledger.NewService(repo, ledger.WithClock(clock))
			got, created, err := svc.RecordPayment(context.Background(), tt.params())

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, got)

				if errors.Is(tt.wantErr, ledger.ErrInvalid) {
					assert.ErrorIs(t, err, ledger.ErrInvalid)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, created)
			assert.NotEqual(t, uuid.Nil, got.ID)
		})
	}
}

func TestService_RecordRequest(t *testing.T) {
	unitID := uuid.New()

	t.Run("SeedsHistoryAndDedupeWindow", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := ledger.NewMockRepository(ctrl)

		repo.EXPECT().
			InsertRequestIfAbsent(gomock.Any(), gomock.Any(), fixedNow.Add(-ledger.RequestDedupeWindow)).
			DoAndReturn(func(_ context.Context, r *ledger.Request, _ time.Time) (*ledger.Request, bool, error) {
				return r, true, nil
			})

		svc := ledger.NewService(repo, ledger.WithClock(clock))
		got, created, err := svc.RecordRequest(context.Background(), ledger.RequestParams{
			CreatorID: uuid.New(),
			Type:      ledger.RequestRental,
			Title:     "  Lease 2B  ",
			UnitID:    &unitID,
		})

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "Lease 2B", got.Title)
		assert.Equal(t, ledger.PriorityNormal, got.Priority)
		assert.Equal(t, ledger.RequestPending, got.Status)
		require.Len(t, got.History, 1)
		assert.Equal(t, ledger.RequestPending, got.History[0].Status)
	})

	t.Run("RentalWithoutUnit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := ledger.NewService(ledger.NewMockRepository(ctrl), ledger.WithClock(clock))

		_, _, err := svc.RecordRequest(context.Background(), ledger.RequestParams{
			CreatorID: uuid.New(),
			Type:      ledger.RequestPurchase,
			Title:     "Buy 4A",
		})

		assert.ErrorIs(t, err, ledger.ErrInvalid)
	})

	t.Run("DuplicateReturnsExisting", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := ledger.NewMockRepository(ctrl)
		prev := &ledger.Request{ID: uuid.New(), Status: ledger.RequestPending}

		repo.EXPECT().
			InsertRequestIfAbsent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(prev, false, nil)

		svc := ledger.NewService(repo, ledger.WithClock(clock))
		got, created, err := svc.RecordRequest(context.Background(), ledger.RequestParams{
			CreatorID: uuid.New(),
			Type:      ledger.RequestMaintenance,
			Title:     "Leaking tap",
		})

		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, prev.ID, got.ID)
	})
}

func TestService_ReadsSweepFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := ledger.NewMockRepository(ctrl)
	sweeper := ledger.NewMockSweeper(ctrl)

	id := uuid.New()

	gomock.InOrder(
		sweeper.EXPECT().Sweep(gomock.Any()).Return(nil, errors.New("sweep down")),
		repo.EXPECT().GetPayment(gomock.Any(), id).Return(&ledger.Payment{ID: id, Status: ledger.PaymentOverdue}, nil),
	)

	svc := ledger.NewService(repo, ledger.WithSweeper(sweeper))
	got, err := svc.GetPayment(context.Background(), id)

	require.NoError(t, err, "a failed sweep must not fail the read")
	assert.Equal(t, ledger.PaymentOverdue, got.Status)
}

func TestService_MarkPaid(t *testing.T) {
	type testCase struct {
		name        string
		setupMock   func(m *ledger.MockRepository, id uuid.UUID)
		wantChanged bool
		wantErr     error
	}

	tests := []testCase{
		{
			name: "PendingToPaid",
			setupMock: func(m *ledger.MockRepository, id uuid.UUID) {
				m.EXPECT().GetPayment(gomock.Any(), id).
					Return(&ledger.Payment{ID: id, Status: ledger.PaymentPending}, nil)
				m.EXPECT().
					UpdatePaymentStatus(gomock.Any(), gomock.Any(), []ledger.PaymentStatus{ledger.PaymentPending, ledger.PaymentOverdue}).
					DoAndReturn(func(_ context.Context, p *ledger.Payment, _ []ledger.PaymentStatus) error {
						assert.Equal(t, ledger.PaymentPaid, p.Status)
						require.NotNil(t, p.PaidDate)
						assert.True(t, p.PaidDate.Equal(fixedNow))
						return nil
					})
			},
			wantChanged: true,
		},
		{
			name: "AlreadyPaidIsNoop",
			setupMock: func(m *ledger.MockRepository, id uuid.UUID) {
				m.EXPECT().GetPayment(gomock.Any(), id).
					Return(&ledger.Payment{ID: id, Status: ledger.PaymentPaid}, nil)
			},
			wantChanged: false,
		},
		{
			name: "CancelledIsRejected",
			setupMock: func(m *ledger.MockRepository, id uuid.UUID) {
				m.EXPECT().GetPayment(gomock.Any(), id).
					Return(&ledger.Payment{ID: id, Status: ledger.PaymentCancelled}, nil)
			},
			wantErr: ledger.ErrInvalidTransition,
		},
		{
			name: "LostRaceToOtherPayer",
			setupMock: func(m *ledger.MockRepository, id uuid.UUID) {
				gomock.InOrder(
					m.EXPECT().GetPayment(gomock.Any(), id).
						Return(&ledger.Payment{ID: id, Status: ledger.PaymentOverdue}, nil),
					m.EXPECT().UpdatePaymentStatus(gomock.Any(), gomock.Any(), gomock.Any()).
						Return(ledger.ErrInvalidTransition),
					m.EXPECT().GetPayment(gomock.Any(), id).
						Return(&ledger.Payment{ID: id, Status: ledger.PaymentPaid}, nil),
				)
			},
			wantChanged: false,
		},
		{
			name: "NotFound",
			setupMock: func(m *ledger.MockRepository, id uuid.UUID) {
				m.EXPECT().GetPayment(gomock.Any(), id).Return(nil, ledger.ErrNotFound)
			},
			wantErr: ledger.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			id := uuid.New()
			repo := ledger.NewMockRepository(ctrl)
			tt.setupMock(repo, id)

			svc := ledger.NewService(repo, ledger.WithClock(clock))
			got, changed, err := svc.MarkPaid(context.Background(), id, ledger.PaidParams{Method: "transfer"})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, ledger.PaymentPaid, got.Status)
		})
	}
}

func TestService_CancelPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := ledger.NewMockRepository(ctrl)
	id := uuid.New()

	repo.EXPECT().GetPayment(gomock.Any(), id).Return(&ledger.Payment{ID: id, Status: ledger.PaymentPaid}, nil)

	svc := ledger.NewService(repo)
	_, _, err := svc.CancelPayment(context.Background(), id)

	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestService_MutateRequest(t *testing.T) {
	t.Run("RetriesOnConflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := ledger.NewMockRepository(ctrl)
		id := uuid.New()

		repo.EXPECT().GetRequest(gomock.Any(), id).
			DoAndReturn(func(context.Context, uuid.UUID) (*ledger.Request, error) {
				return &ledger.Request{ID: id, Status: ledger.RequestPending}, nil
			}).Times(2)

		gomock.InOrder(
			repo.EXPECT().UpdateRequest(gomock.Any(), gomock.Any()).Return(ledger.ErrVersionConflict),
			repo.EXPECT().UpdateRequest(gomock.Any(), gomock.Any()).Return(nil),
		)

		calls := 0
		svc := ledger.NewService(repo, ledger.WithClock(clock))
		got, err := svc.MutateRequest(context.Background(), id, func(r *ledger.Request) error {
			calls++
			return r.Transition(ledger.RequestAccepted, uuid.New(), fixedNow, "")
		})

		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, ledger.RequestAccepted, got.Status)
		assert.Len(t, got.History, 1)
	})

	t.Run("MutateErrorAborts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := ledger.NewMockRepository(ctrl)
		id := uuid.New()

		repo.EXPECT().GetRequest(gomock.Any(), id).
			Return(&ledger.Request{ID: id, Status: ledger.RequestCompleted}, nil)

		svc := ledger.NewService(repo)
		_, err := svc.MutateRequest(context.Background(), id, func(r *ledger.Request) error {
			return r.Transition(ledger.RequestRejected, uuid.New(), fixedNow, "late")
		})

		assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
	})
}

func TestRequest_Transition(t *testing.T) {
	tests := []struct {
		from, to ledger.RequestStatus
		ok       bool
	}{
		{ledger.RequestPending, ledger.RequestAccepted, true},
		{ledger.RequestPending, ledger.RequestInProgress, true},
		{ledger.RequestPending, ledger.RequestCompleted, false},
		{ledger.RequestInProgress, ledger.RequestCompleted, true},
		{ledger.RequestAccepted, ledger.RequestCompleted, true},
		{ledger.RequestAccepted, ledger.RequestRejected, false},
		{ledger.RequestCompleted, ledger.RequestPending, false},
		{ledger.RequestRejected, ledger.RequestAccepted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			r := &ledger.Request{Status: tt.from}
			err := r.Transition(tt.to, uuid.New(), fixedNow, "")

			if !tt.ok {
				assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
				assert.Equal(t, tt.from, r.Status)
				assert.Empty(t, r.History)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, r.Status)
			require.Len(t, r.History, 1)
		})
	}
}

func TestPaymentKey(t *testing.T) {
	payer := uuid.New()
	unit := uuid.New()

	a := ledger.NewPaymentKey(payer, &unit, decimal.RequireFromString("100"), ledger.PaymentTypeRent,
		time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	b := ledger.NewPaymentKey(payer, &unit, decimal.RequireFromString("100.00"), ledger.PaymentTypeRent,
		time.Date(2026, 5, 1, 22, 30, 0, 0, time.UTC))
	c := ledger.NewPaymentKey(payer, &unit, decimal.RequireFromString("100.00"), ledger.PaymentTypeRent,
		time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, a, b, "same day and amount must collide")
	assert.NotEqual(t, a, c)
}
