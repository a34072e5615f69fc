package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestDedupeWindow bounds how far back an equivalent open request counts as a duplicate.
const RequestDedupeWindow = 24 * time.Hour

const maxMutateAttempts = 5

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	// InsertPaymentIfAbsent stores p unless a non-cancelled payment with the same key exists,
	// in which case the existing payment is returned with created == false. The check and the
	// insert must be atomic with respect to concurrent callers using the same key.
	InsertPaymentIfAbsent(ctx context.Context, p *Payment) (*Payment, bool, error)
	// InsertRequestIfAbsent stores r unless a non-terminal request with the same key was created
	// after since.
	InsertRequestIfAbsent(ctx context.Context, r *Request, since time.Time) (*Request, bool, error)

	GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*Request, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]*Payment, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]*Request, error)

	// UpdatePaymentStatus persists the status fields of p only if the stored status is one of
	// from. Otherwise it returns ErrInvalidTransition.
	UpdatePaymentStatus(ctx context.Context, p *Payment, from []PaymentStatus) error
	// UpdateRequest persists r if the stored version equals r.Version and bumps the version.
	// Otherwise it returns ErrVersionConflict.
	UpdateRequest(ctx context.Context, r *Request) error

	// MarkOverdue moves every pending payment due before now to overdue and returns the
	// payments it changed.
	MarkOverdue(ctx context.Context, now time.Time) ([]*Payment, error)
}

// Sweeper transitions late payments before status is reported.
type Sweeper interface {
	Sweep(ctx context.Context) ([]*Payment, error)
}

type PaymentFilter struct {
	PayerID     *uuid.UUID
	RecipientID *uuid.UUID
	UnitID      *uuid.UUID
	BuildingID  *uuid.UUID
	RequestID   *uuid.UUID
	Statuses    []PaymentStatus
}

type RequestFilter struct {
	CreatorID  *uuid.UUID
	UnitID     *uuid.UUID
	BuildingID *uuid.UUID
	Statuses   []RequestStatus
	Types      []RequestType
}

type PaymentParams struct {
	PayerID     uuid.UUID   `validate:"required"`
	RecipientID uuid.UUID   `validate:"required"`
	UnitID      *uuid.UUID
	BuildingID  *uuid.UUID
	RequestID   *uuid.UUID
	Amount      decimal.Decimal
	Type        PaymentType `validate:"required,oneof=rent charges purchase service other"`
	DueDate     time.Time   `validate:"required"`
	Description string      `validate:"max=500"`
}

type RequestParams struct {
	CreatorID   uuid.UUID   `validate:"required"`
	Type        RequestType `validate:"required,oneof=rental purchase maintenance service claim other"`
	Title       string      `validate:"required,max=200"`
	Description string      `validate:"max=5000"`
	Priority    Priority    `validate:"omitempty,oneof=low normal high urgent"`
	UnitID      *uuid.UUID
	BuildingID  *uuid.UUID
}

type PaidParams struct {
	Method        string
	TransactionID string
	PaidAt        time.Time
}

type Service struct {
	repo     Repository
	sweeper  Sweeper
	validate *validator.Validate
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Service)

// WithSweeper makes read paths sweep overdue payments before answering.
func WithSweeper(sw Sweeper) Option {
	return func(s *Service) { s.sweeper = sw }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		validate: validator.New(),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RecordPayment stores a new pending payment, or returns the equivalent payment already on
// the ledger. created is false when an existing payment was returned.
func (s *Service) RecordPayment(ctx context.Context, params PaymentParams) (*Payment, bool, error) {
	if err := s.validatePayment(params); err != nil {
		return nil, false, err
	}

	p := &Payment{
		ID:          uuid.New(),
		PayerID:     params.PayerID,
		RecipientID: params.RecipientID,
		UnitID:      params.UnitID,
		BuildingID:  params.BuildingID,
		RequestID:   params.RequestID,
		Amount:      params.Amount.Round(2),
		Type:        params.Type,
		Status:      PaymentPending,
		Description: strings.TrimSpace(params.Description),
		DueDate:     params.DueDate.UTC(),
	}

	got, created, err := s.repo.InsertPaymentIfAbsent(ctx, p)
	if err != nil {
		return nil, false, fmt.Errorf("record payment: %w", err)
	}

	if !created {
		s.logger.Info("duplicate payment submission", "payment_id", got.ID, "key", p.Key().String())
	}

	return got, created, nil
}

// RecordRequest stores a new pending request, or returns the equivalent open request
// submitted within RequestDedupeWindow.
func (s *Service) RecordRequest(ctx context.Context, params RequestParams) (*Request, bool, error) {
	if err := s.validateRequest(params); err != nil {
		return nil, false, err
	}

	now := s.now().UTC()

	priority := params.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	r := &Request{
		ID:          uuid.New(),
		CreatorID:   params.CreatorID,
		Type:        params.Type,
		Title:       strings.TrimSpace(params.Title),
		Description: strings.TrimSpace(params.Description),
		Priority:    priority,
		UnitID:      params.UnitID,
		BuildingID:  params.BuildingID,
		Status:      RequestPending,
		History: []StatusEntry{
			{Status: RequestPending, ActorID: params.CreatorID, At: now},
		},
	}

	got, created, err := s.repo.InsertRequestIfAbsent(ctx, r, now.Add(-RequestDedupeWindow))
	if err != nil {
		return nil, false, fmt.Errorf("record request: %w", err)
	}

	if !created {
		s.logger.Info("duplicate request submission", "request_id", got.ID, "key", r.Key().String())
	}

	return got, created, nil
}

func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	s.sweep(ctx)
	return s.repo.GetPayment(ctx, id)
}

func (s *Service) ListPayments(ctx context.Context, filter PaymentFilter) ([]*Payment, error) {
	s.sweep(ctx)
	return s.repo.ListPayments(ctx, filter)
}

func (s *Service) GetRequest(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.repo.GetRequest(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, filter RequestFilter) ([]*Request, error) {
	return s.repo.ListRequests(ctx, filter)
}

// MarkPaid settles a pending or overdue payment. Settling an already paid payment is a no-op
// reported with changed == false.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, params PaidParams) (*Payment, bool, error) {
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, false, err
	}

	switch p.Status {
	case PaymentPaid:
		return p, false, nil
	case PaymentCancelled:
		return nil, false, fmt.Errorf("%w: payment %s is cancelled", ErrInvalidTransition, id)
	}

	paidAt := params.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	paidAt = paidAt.UTC()

	p.Status = PaymentPaid
	p.PaidDate = &paidAt
	p.Method = strings.TrimSpace(params.Method)
	p.TransactionID = strings.TrimSpace(params.TransactionID)

	if err := s.repo.UpdatePaymentStatus(ctx, p, []PaymentStatus{PaymentPending, PaymentOverdue}); err != nil {
		if !errors.Is(err, ErrInvalidTransition) {
			return nil, false, fmt.Errorf("mark payment paid: %w", err)
		}

		// Lost a race with another writer; paid by someone else is still paid.
		current, getErr := s.repo.GetPayment(ctx, id)
		if getErr != nil {
			return nil, false, getErr
		}

		if current.Status == PaymentPaid {
			return current, false, nil
		}

		return nil, false, err
	}

	return p, true, nil
}

// CancelPayment withdraws an open payment. Cancelling twice is a no-op.
func (s *Service) CancelPayment(ctx context.Context, id uuid.UUID) (*Payment, bool, error) {
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, false, err
	}

	switch p.Status {
	case PaymentCancelled:
		return p, false, nil
	case PaymentPaid:
		return nil, false, fmt.Errorf("%w: payment %s is already paid", ErrInvalidTransition, id)
	}

	p.Status = PaymentCancelled
	if err := s.repo.UpdatePaymentStatus(ctx, p, []PaymentStatus{PaymentPending, PaymentOverdue}); err != nil {
		return nil, false, fmt.Errorf("cancel payment: %w", err)
	}

	return p, true, nil
}

// MutateRequest runs a read-mutate-update loop on a request with optimistic locking.
func (s *Service) MutateRequest(ctx context.Context, id uuid.UUID, mutate func(*Request) error) (*Request, error) {
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		r, err := s.repo.GetRequest(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := mutate(r); err != nil {
			return nil, err
		}

		r.UpdatedAt = s.now().UTC()

		err = s.repo.UpdateRequest(ctx, r)
		if err == nil {
			return r, nil
		}

		if !errors.Is(err, ErrVersionConflict) {
			return nil, fmt.Errorf("update request: %w", err)
		}

		s.logger.Debug("request version conflict, retrying", "request_id", id, "attempt", attempt+1)
	}

	return nil, fmt.Errorf("%w: too much contention updating request %s", ErrVersionConflict, id)
}

func (s *Service) sweep(ctx context.Context) {
	if s.sweeper == nil {
		return
	}

	if _, err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.Warn("opportunistic overdue sweep failed", "error", err)
	}
}

func (s *Service) validatePayment(params PaymentParams) error {
	if err := s.validate.Struct(params); err != nil {
		return validationError(err)
	}

	if !params.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}

	return nil
}

func (s *Service) validateRequest(params RequestParams) error {
	if err := s.validate.Struct(params); err != nil {
		return validationError(err)
	}

	if strings.TrimSpace(params.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}

	if params.Type.Transfers() && params.UnitID == nil {
		return fmt.Errorf("%w: %s requests need a unit", ErrInvalid, params.Type)
	}

	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}

	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, ", "))
}
