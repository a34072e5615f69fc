// Package lifecycle drives requests and payments through their business states and fans
// the consequences out to the rest of the system.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/notification"
)

const tracerName = "github.com/MrJamesThe3rd/condo/internal/lifecycle"

// ErrRecipientRequired is returned when nobody can be found to receive a payment.
var ErrRecipientRequired = errors.New("recipient required")

// errUnchanged aborts a request mutation that would not change anything.
var errUnchanged = errors.New("unchanged")

// Deps are the collaborators the orchestrator writes through.
type Deps struct {
	Ledger       Ledger
	Directory    Directory
	Documents    Generator
	Notifier     Notifier
	Recalculator Recalculator
	Batcher      Batcher
	Emitter      Emitter
}

type Orchestrator struct {
	ledger   Ledger
	dir      Directory
	docs     Generator
	notifier Notifier
	recalc   Recalculator
	batch    Batcher
	emitter  Emitter
	tracer   trace.Tracer
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracer = tp.Tracer(tracerName) }
}

func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger:   deps.Ledger,
		dir:      deps.Directory,
		docs:     deps.Documents,
		notifier: deps.Notifier,
		recalc:   deps.Recalculator,
		batch:    deps.Batcher,
		emitter:  deps.Emitter,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// RequestResult is the outcome of a request operation. FailedEffects names the follow-up
// steps that did not go through; the request itself was still written.
type RequestResult struct {
	Request       *ledger.Request
	Created       bool
	FailedEffects []string
}

// PaymentResult is the outcome of a payment operation.
type PaymentResult struct {
	Payment       *ledger.Payment
	Request       *ledger.Request
	Created       bool
	Changed       bool
	FailedEffects []string
}

// effect is a step that runs after the primary write has been committed. It never
// unwinds that write.
type effect struct {
	name string
	run  func(ctx context.Context) error
}

func (o *Orchestrator) runEffects(ctx context.Context, op string, effects []effect) []string {
	var failed []string

	for _, e := range effects {
		if err := o.runEffect(ctx, op, e); err != nil {
			o.logger.Warn("effect failed", "op", op, "effect", e.name, "error", err)
			failed = append(failed, e.name)
		}
	}

	return failed
}

func (o *Orchestrator) runEffect(ctx context.Context, op string, e effect) (err error) {
	ctx, span := o.tracer.Start(ctx, op+"/"+e.name, trace.WithAttributes(
		attribute.String("lifecycle.op", op),
		attribute.String("lifecycle.effect", e.name),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	return e.run(ctx)
}

// resolveRecipient walks unit owner, building admin, platform admin and finally the payer.
func (o *Orchestrator) resolveRecipient(ctx context.Context, unitID, buildingID *uuid.UUID, payerID uuid.UUID) (uuid.UUID, error) {
	if unitID != nil {
		unit, err := o.dir.GetUnit(ctx, *unitID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("resolve recipient: %w", err)
		}

		if unit.OwnerID != nil {
			return *unit.OwnerID, nil
		}

		if buildingID == nil {
			buildingID = &unit.BuildingID
		}
	}

	admin, ok, err := o.manager(ctx, buildingID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve recipient: %w", err)
	}

	if ok {
		return admin, nil
	}

	if payerID != uuid.Nil {
		return payerID, nil
	}

	return uuid.Nil, ErrRecipientRequired
}

// manager returns the building admin, or the platform admin when the building has none.
func (o *Orchestrator) manager(ctx context.Context, buildingID *uuid.UUID) (uuid.UUID, bool, error) {
	if buildingID != nil {
		b, err := o.dir.GetBuilding(ctx, *buildingID)
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return uuid.Nil, false, err
		}

		if b != nil && b.AdminID != nil {
			return *b.AdminID, true, nil
		}
	}

	return o.dir.PlatformAdmin(ctx)
}

// unitBuilding fills in the building of a unit when the caller left it out.
func (o *Orchestrator) unitBuilding(ctx context.Context, unitID, buildingID *uuid.UUID) (*uuid.UUID, error) {
	if unitID == nil || buildingID != nil {
		return buildingID, nil
	}

	unit, err := o.dir.GetUnit(ctx, *unitID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown unit %s", ledger.ErrInvalid, unitID)
		}

		return nil, err
	}

	return &unit.BuildingID, nil
}

func (o *Orchestrator) notify(ctx context.Context, userID uuid.UUID, typ notification.Type, title, content string, related map[string]uuid.UUID) error {
	_, err := o.notifier.Create(ctx, notification.Params{
		UserID:     userID,
		Type:       typ,
		Title:      title,
		Content:    content,
		RelatedIDs: related,
	})

	return err
}

func (o *Orchestrator) timestamp() time.Time {
	return o.now().UTC()
}
