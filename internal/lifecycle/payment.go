package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/notification"
)

// CreatePayment opens the payment that settles an accepted request. Every document of the
// request must be signed first. A request that already has a payment returns it.
func (o *Orchestrator) CreatePayment(ctx context.Context, a actor.Actor, requestID uuid.UUID, params ledger.PaymentParams) (PaymentResult, error) {
	if !a.Manager() {
		return PaymentResult{}, fmt.Errorf("%w: only managers create request payments", actor.ErrForbidden)
	}

	r, err := o.ledger.GetRequest(ctx, requestID)
	if err != nil {
		return PaymentResult{}, err
	}

	if r.Status != ledger.RequestAccepted {
		return PaymentResult{}, fmt.Errorf("%w: request %s is %s", ledger.ErrInvalidTransition, r.ID, r.Status)
	}

	if !documentsComplete(r) {
		return PaymentResult{}, fmt.Errorf("%w: request %s has unsigned documents", ledger.ErrInvalidTransition, r.ID)
	}

	if r.PaymentID != nil {
		p, err := o.ledger.GetPayment(ctx, *r.PaymentID)
		if err != nil {
			return PaymentResult{}, err
		}

		if p.Status != ledger.PaymentCancelled {
			return PaymentResult{Payment: p, Request: r}, nil
		}
	}

	params.RequestID = &r.ID
	if params.PayerID == uuid.Nil {
		params.PayerID = r.CreatorID
	}

	if params.UnitID == nil {
		params.UnitID = r.UnitID
	}

	if params.BuildingID == nil {
		params.BuildingID = r.BuildingID
	}

	if params.Type == "" {
		params.Type = paymentTypeFor(r.Type)
	}

	if params.DueDate.IsZero() {
		params.DueDate = o.timestamp()
	}

	p, created, err := o.record(ctx, params)
	if err != nil {
		return PaymentResult{}, err
	}

	// The link is part of the primary write; completing the request depends on it.
	r, err = o.ledger.MutateRequest(ctx, r.ID, func(cur *ledger.Request) error {
		if cur.PaymentID != nil && *cur.PaymentID == p.ID {
			return errUnchanged
		}

		cur.PaymentID = &p.ID
		cur.InitialPayment = p.Descriptor()

		return nil
	})
	if errors.Is(err, errUnchanged) {
		r, err = o.ledger.GetRequest(ctx, requestID)
	}

	if err != nil {
		return PaymentResult{}, fmt.Errorf("link payment to request: %w", err)
	}

	res := PaymentResult{Payment: p, Request: r, Created: created, Changed: created}
	res.FailedEffects = o.runEffects(ctx, "create_payment", []effect{
		{"recalculate", func(ctx context.Context) error {
			return o.recalc.ForPayment(ctx, p)
		}},
		{"publish", func(ctx context.Context) error {
			now := o.timestamp()
			o.emitter.Emit(ctx, fanout.PaymentEvent(fanout.PaymentCreated, p, now))
			o.emitter.Emit(ctx, fanout.RequestEvent(fanout.RequestUpdated, r, now))

			return nil
		}},
	})

	return res, nil
}

// RecordPayment enters a payment that is not driven by a request workflow, such as monthly
// charges. Residents may only record payments they make themselves.
func (o *Orchestrator) RecordPayment(ctx context.Context, a actor.Actor, params ledger.PaymentParams) (PaymentResult, error) {
	if params.PayerID == uuid.Nil {
		params.PayerID = a.ID
	}

	if !a.Manager() {
		if params.PayerID != a.ID {
			return PaymentResult{}, fmt.Errorf("%w: cannot record a payment for someone else", actor.ErrForbidden)
		}

		// Residents never pick who gets paid.
		params.RecipientID = uuid.Nil
	}

	if params.RequestID != nil {
		if err := o.bindToRequest(ctx, a, &params); err != nil {
			return PaymentResult{}, err
		}
	}

	p, created, err := o.record(ctx, params)
	if err != nil {
		return PaymentResult{}, err
	}

	res := PaymentResult{Payment: p, Created: created, Changed: created}
	if !created {
		return res, nil
	}

	res.FailedEffects = o.runEffects(ctx, "record_payment", []effect{
		{"recalculate", func(ctx context.Context) error {
			return o.recalc.ForPayment(ctx, p)
		}},
		o.publishPayment(fanout.PaymentCreated, p),
	})

	return res, nil
}

// bindToRequest checks that params may settle the accepted request they name and pins the
// recipient to the one the unit resolves to.
func (o *Orchestrator) bindToRequest(ctx context.Context, a actor.Actor, params *ledger.PaymentParams) error {
	r, err := o.ledger.GetRequest(ctx, *params.RequestID)
	if err != nil {
		return err
	}

	if !a.Manager() && r.CreatorID != a.ID {
		return fmt.Errorf("%w: request %s belongs to someone else", actor.ErrForbidden, r.ID)
	}

	if r.Status != ledger.RequestAccepted {
		return fmt.Errorf("%w: request %s is %s", ledger.ErrInvalidTransition, r.ID, r.Status)
	}

	switch {
	case params.UnitID == nil:
		params.UnitID = r.UnitID
	case r.UnitID != nil && *params.UnitID != *r.UnitID:
		return fmt.Errorf("%w: payment unit does not match request %s", ledger.ErrInvalid, r.ID)
	}

	if params.BuildingID == nil {
		params.BuildingID = r.BuildingID
	}

	buildingID, err := o.unitBuilding(ctx, params.UnitID, params.BuildingID)
	if err != nil {
		return err
	}

	params.BuildingID = buildingID

	recipient, err := o.resolveRecipient(ctx, params.UnitID, params.BuildingID, params.PayerID)
	if err != nil {
		return err
	}

	if params.RecipientID != uuid.Nil && params.RecipientID != recipient {
		return fmt.Errorf("%w: request %s is paid to %s", ledger.ErrInvalid, r.ID, recipient)
	}

	if !a.Manager() && recipient == a.ID {
		return fmt.Errorf("%w: nobody but the payer can receive request %s", ErrRecipientRequired, r.ID)
	}

	params.RecipientID = recipient

	return nil
}

// record fills in the building and recipient of a payment and passes it through the
// duplicate guard. No payment is written when no recipient can be found.
func (o *Orchestrator) record(ctx context.Context, params ledger.PaymentParams) (*ledger.Payment, bool, error) {
	buildingID, err := o.unitBuilding(ctx, params.UnitID, params.BuildingID)
	if err != nil {
		return nil, false, err
	}

	params.BuildingID = buildingID

	if params.RecipientID == uuid.Nil {
		recipient, err := o.resolveRecipient(ctx, params.UnitID, params.BuildingID, params.PayerID)
		if err != nil {
			return nil, false, err
		}

		params.RecipientID = recipient
	}

	return o.ledger.RecordPayment(ctx, params)
}

// MarkPaid settles a payment. The paid status is the only thing that must succeed; the
// steps that follow are best effort and reported in FailedEffects. Settling a payment that
// is already paid runs nothing.
func (o *Orchestrator) MarkPaid(ctx context.Context, a actor.Actor, paymentID uuid.UUID, params ledger.PaidParams) (PaymentResult, error) {
	current, err := o.ledger.GetPayment(ctx, paymentID)
	if err != nil {
		return PaymentResult{}, err
	}

	if !a.Manager() && (a.ID != current.RecipientID || a.ID == current.PayerID) {
		return PaymentResult{}, fmt.Errorf("%w: only the recipient or a manager confirms payments", actor.ErrForbidden)
	}

	p, changed, err := o.ledger.MarkPaid(ctx, paymentID, params)
	if err != nil {
		return PaymentResult{}, err
	}

	res := PaymentResult{Payment: p, Changed: changed}
	if !changed {
		return res, nil
	}

	var (
		req     *ledger.Request
		effects []effect
	)

	if p.RequestID != nil {
		effects = append(effects, effect{"mirror_payment", func(ctx context.Context) error {
			r, err := o.mirror(ctx, p)
			if r != nil {
				req = r
			}

			return err
		}})
		effects = append(effects, o.completionEffects(a, *p.RequestID, &req)...)
	}

	effects = append(effects,
		effect{"notify_parties", func(ctx context.Context) error {
			return o.notifyPaid(ctx, p)
		}},
		effect{"recalculate", func(ctx context.Context) error {
			err := o.recalc.ForPayment(ctx, p)
			if req != nil {
				err = errors.Join(err, o.recalc.ForRequest(ctx, req))
			}

			return err
		}},
		effect{"publish", func(ctx context.Context) error {
			now := o.timestamp()
			o.emitter.Emit(ctx, fanout.PaymentEvent(fanout.PaymentPaid, p, now))

			if req != nil {
				typ := fanout.RequestUpdated
				if req.Status == ledger.RequestCompleted {
					typ = fanout.RequestCompleted
				}

				o.emitter.Emit(ctx, fanout.RequestEvent(typ, req, now))
			}

			return nil
		}},
		effect{"schedule_next_rent", func(ctx context.Context) error {
			return o.scheduleNextRent(ctx, p)
		}},
	)

	res.FailedEffects = o.runEffects(ctx, "mark_paid", effects)
	res.Request = req

	return res, nil
}

// mirror copies the payment state into the request it settles.
func (o *Orchestrator) mirror(ctx context.Context, p *ledger.Payment) (*ledger.Request, error) {
	r, err := o.ledger.MutateRequest(ctx, *p.RequestID, func(r *ledger.Request) error {
		if r.PaymentID != nil && *r.PaymentID != p.ID {
			return errUnchanged
		}

		r.PaymentID = &p.ID
		r.InitialPayment = p.Descriptor()

		return nil
	})
	if errors.Is(err, errUnchanged) {
		return o.ledger.GetRequest(ctx, *p.RequestID)
	}

	return r, err
}

func (o *Orchestrator) notifyPaid(ctx context.Context, p *ledger.Payment) error {
	refs := map[string]uuid.UUID{"payment_id": p.ID}
	if p.RequestID != nil {
		refs["request_id"] = *p.RequestID
	}

	amount := p.Amount.StringFixed(2)
	errs := []error{
		o.notify(ctx, p.PayerID, notification.TypePaymentConfirmed,
			"Payment confirmed", fmt.Sprintf("Your %s payment of %s was confirmed", p.Type, amount), refs),
	}

	if p.RecipientID != p.PayerID {
		errs = append(errs, o.notify(ctx, p.RecipientID, notification.TypePaymentReceived,
			"Payment received", fmt.Sprintf("A %s payment of %s was received", p.Type, amount), refs))
	}

	return errors.Join(errs...)
}

// scheduleNextRent opens next month's rent once the current tenant pays theirs. The
// duplicate guard makes it safe to run more than once for the same month.
func (o *Orchestrator) scheduleNextRent(ctx context.Context, p *ledger.Payment) error {
	if p.Type != ledger.PaymentTypeRent || p.UnitID == nil {
		return nil
	}

	unit, err := o.dir.GetUnit(ctx, *p.UnitID)
	if err != nil {
		return err
	}

	if unit.TenantID == nil || *unit.TenantID != p.PayerID {
		return nil
	}

	next, created, err := o.ledger.RecordPayment(ctx, ledger.PaymentParams{
		PayerID:     p.PayerID,
		RecipientID: p.RecipientID,
		UnitID:      p.UnitID,
		BuildingID:  p.BuildingID,
		Amount:      p.Amount,
		Type:        ledger.PaymentTypeRent,
		DueDate:     nextMonth(p.DueDate),
		Description: "Monthly rent",
	})
	if err != nil {
		return fmt.Errorf("schedule next rent: %w", err)
	}

	if created {
		o.batch.Payment(next)
		o.emitter.Emit(ctx, fanout.PaymentEvent(fanout.PaymentCreated, next, o.timestamp()))
	}

	return nil
}

// nextMonth returns t one calendar month later, clamped to the last day of that month.
func nextMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	last := time.Date(y, m+2, 0, 0, 0, 0, 0, t.Location()).Day()

	return time.Date(y, m+1, min(d, last), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// CancelPayment withdraws an open payment. A request it was linked to can get a new one.
func (o *Orchestrator) CancelPayment(ctx context.Context, a actor.Actor, paymentID uuid.UUID) (PaymentResult, error) {
	if !a.Manager() {
		return PaymentResult{}, fmt.Errorf("%w: only managers cancel payments", actor.ErrForbidden)
	}

	p, changed, err := o.ledger.CancelPayment(ctx, paymentID)
	if err != nil {
		return PaymentResult{}, err
	}

	res := PaymentResult{Payment: p, Changed: changed}
	if !changed {
		return res, nil
	}

	var req *ledger.Request

	effects := []effect{}
	if p.RequestID != nil {
		effects = append(effects, effect{"unlink_request", func(ctx context.Context) error {
			r, err := o.ledger.MutateRequest(ctx, *p.RequestID, func(r *ledger.Request) error {
				if r.PaymentID == nil || *r.PaymentID != p.ID {
					return errUnchanged
				}

				r.PaymentID = nil
				r.InitialPayment = p.Descriptor()

				return nil
			})
			if errors.Is(err, errUnchanged) {
				return nil
			}

			req = r

			return err
		}})
	}

	effects = append(effects,
		effect{"recalculate", func(ctx context.Context) error {
			return o.recalc.ForPayment(ctx, p)
		}},
		effect{"publish", func(ctx context.Context) error {
			now := o.timestamp()
			o.emitter.Emit(ctx, fanout.PaymentEvent(fanout.PaymentCancelled, p, now))

			if req != nil {
				o.emitter.Emit(ctx, fanout.RequestEvent(fanout.RequestUpdated, req, now))
			}

			return nil
		}},
	)

	res.FailedEffects = o.runEffects(ctx, "cancel_payment", effects)
	res.Request = req

	return res, nil
}

func (o *Orchestrator) publishPayment(typ fanout.EventType, p *ledger.Payment) effect {
	return effect{"publish", func(ctx context.Context) error {
		o.emitter.Emit(ctx, fanout.PaymentEvent(typ, p, o.timestamp()))
		return nil
	}}
}

func paymentTypeFor(t ledger.RequestType) ledger.PaymentType {
	switch t {
	case ledger.RequestRental:
		return ledger.PaymentTypeRent
	case ledger.RequestPurchase:
		return ledger.PaymentTypePurchase
	}

	return ledger.PaymentTypeService
}
