package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

// Ledger is the read side of the ledger store the recalculator derives from.
type Ledger interface {
	ListPayments(ctx context.Context, filter ledger.PaymentFilter) ([]*ledger.Payment, error)
	ListRequests(ctx context.Context, filter ledger.RequestFilter) ([]*ledger.Request, error)
}

// Directory stores the derived unit and building fields.
type Directory interface {
	GetUnit(ctx context.Context, id uuid.UUID) (*property.Unit, error)
	ListUnits(ctx context.Context, buildingID uuid.UUID) ([]*property.Unit, error)
	SaveUnitMetadata(ctx context.Context, unitID uuid.UUID, m property.UnitMetadata) error
	SaveBuildingStats(ctx context.Context, buildingID uuid.UUID, s property.BuildingStats) error
}

// Recalculator rebuilds unit and building aggregates from the full ledger. It never reads the
// previous aggregate, so running it twice, or concurrently, converges on the same value.
type Recalculator struct {
	ledger  Ledger
	dir     Directory
	emitter *fanout.Emitter
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Recalculator)

func WithClock(now func() time.Time) Option {
	return func(r *Recalculator) { r.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Recalculator) { r.logger = l }
}

func WithEmitter(e *fanout.Emitter) Option {
	return func(r *Recalculator) { r.emitter = e }
}

func NewRecalculator(l Ledger, dir Directory, opts ...Option) *Recalculator {
	r := &Recalculator{ledger: l, dir: dir, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}

	if r.emitter == nil {
		r.emitter = fanout.NewEmitter(nil, r.logger)
	}

	return r
}

func (r *Recalculator) UpdateUnit(ctx context.Context, unitID uuid.UUID) (property.UnitMetadata, error) {
	unit, err := r.dir.GetUnit(ctx, unitID)
	if err != nil {
		return property.UnitMetadata{}, fmt.Errorf("recalculate unit: %w", err)
	}

	payments, err := r.ledger.ListPayments(ctx, ledger.PaymentFilter{UnitID: &unitID})
	if err != nil {
		return property.UnitMetadata{}, fmt.Errorf("recalculate unit payments: %w", err)
	}

	requests, err := r.ledger.ListRequests(ctx, ledger.RequestFilter{UnitID: &unitID})
	if err != nil {
		return property.UnitMetadata{}, fmt.Errorf("recalculate unit requests: %w", err)
	}

	now := r.now().UTC()
	meta := property.UnitMetadata{
		Payments:   SummarizePayments(payments, now),
		Requests:   SummarizeRequests(requests),
		ComputedAt: now,
	}

	if err := r.dir.SaveUnitMetadata(ctx, unitID, meta); err != nil {
		return property.UnitMetadata{}, fmt.Errorf("save unit metadata: %w", err)
	}

	r.emitter.Emit(ctx, fanout.Event{
		Type:       fanout.UnitUpdated,
		EntityID:   unitID,
		UnitID:     &unitID,
		BuildingID: &unit.BuildingID,
		Timestamp:  now,
	})

	return meta, nil
}

func (r *Recalculator) UpdateBuildingStats(ctx context.Context, buildingID uuid.UUID) (property.BuildingStats, error) {
	units, err := r.dir.ListUnits(ctx, buildingID)
	if err != nil {
		return property.BuildingStats{}, fmt.Errorf("recalculate building units: %w", err)
	}

	payments, err := r.ledger.ListPayments(ctx, ledger.PaymentFilter{BuildingID: &buildingID})
	if err != nil {
		return property.BuildingStats{}, fmt.Errorf("recalculate building payments: %w", err)
	}

	requests, err := r.ledger.ListRequests(ctx, ledger.RequestFilter{BuildingID: &buildingID})
	if err != nil {
		return property.BuildingStats{}, fmt.Errorf("recalculate building requests: %w", err)
	}

	now := r.now().UTC()
	stats := property.BuildingStats{
		Units:      len(units),
		Payments:   SummarizePayments(payments, now),
		Requests:   SummarizeRequests(requests),
		ComputedAt: now,
	}

	for _, u := range units {
		switch {
		case u.Availability.Occupied():
			stats.Occupied++
		case u.Availability == property.Available:
			stats.Available++
		}
	}

	if err := r.dir.SaveBuildingStats(ctx, buildingID, stats); err != nil {
		return property.BuildingStats{}, fmt.Errorf("save building stats: %w", err)
	}

	r.emitter.Emit(ctx, fanout.Event{
		Type:       fanout.BuildingUpdated,
		EntityID:   buildingID,
		BuildingID: &buildingID,
		Timestamp:  now,
	})

	return stats, nil
}

// ForPayment refreshes every aggregate a payment contributes to.
func (r *Recalculator) ForPayment(ctx context.Context, p *ledger.Payment) error {
	return r.refresh(ctx, p.UnitID, p.BuildingID)
}

// ForRequest refreshes every aggregate a request contributes to.
func (r *Recalculator) ForRequest(ctx context.Context, req *ledger.Request) error {
	return r.refresh(ctx, req.UnitID, req.BuildingID)
}

func (r *Recalculator) refresh(ctx context.Context, unitID, buildingID *uuid.UUID) error {
	var errs []error

	if unitID != nil {
		if _, err := r.UpdateUnit(ctx, *unitID); err != nil {
			errs = append(errs, err)
		}
	}

	if buildingID != nil {
		if _, err := r.UpdateBuildingStats(ctx, *buildingID); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
