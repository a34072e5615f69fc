package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/document"
	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/notification"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

// SubmitRequest records a new request for the actor. Submitting the same request twice
// within a day returns the first one.
func (o *Orchestrator) SubmitRequest(ctx context.Context, a actor.Actor, params ledger.RequestParams) (RequestResult, error) {
	if params.CreatorID == uuid.Nil || !a.Manager() {
		params.CreatorID = a.ID
	}

	buildingID, err := o.unitBuilding(ctx, params.UnitID, params.BuildingID)
	if err != nil {
		return RequestResult{}, err
	}

	params.BuildingID = buildingID

	r, created, err := o.ledger.RecordRequest(ctx, params)
	if err != nil {
		return RequestResult{}, err
	}

	res := RequestResult{Request: r, Created: created}
	if !created {
		return res, nil
	}

	res.FailedEffects = o.runEffects(ctx, "submit_request", []effect{
		{"notify_manager", func(ctx context.Context) error {
			admin, ok, err := o.manager(ctx, r.BuildingID)
			if err != nil || !ok {
				return err
			}

			return o.notify(ctx, admin, notification.TypeRequestCreated,
				"New request", fmt.Sprintf("%s request %q was submitted", r.Type, r.Title), requestRefs(r))
		}},
		o.recalcRequest(r),
		o.publishRequest(fanout.RequestCreated, r),
	})

	return res, nil
}

// Accept approves a pending request and generates the documents its type requires.
// A document that cannot be generated does not block the acceptance.
func (o *Orchestrator) Accept(ctx context.Context, a actor.Actor, requestID uuid.UUID) (RequestResult, error) {
	if !a.Manager() {
		return RequestResult{}, fmt.Errorf("%w: only managers accept requests", actor.ErrForbidden)
	}

	r, err := o.ledger.MutateRequest(ctx, requestID, func(r *ledger.Request) error {
		return r.Transition(ledger.RequestAccepted, a.ID, o.timestamp(), "")
	})
	if err != nil {
		return RequestResult{}, err
	}

	res := RequestResult{Request: r}
	res.FailedEffects = o.runEffects(ctx, "accept_request", []effect{
		{"generate_documents", func(ctx context.Context) error {
			updated, err := o.generateDocuments(ctx, r)
			if updated != nil {
				r = updated
			}

			return err
		}},
		{"notify_creator", func(ctx context.Context) error {
			return o.notify(ctx, r.CreatorID, notification.TypeRequestAccepted,
				"Request accepted", fmt.Sprintf("Your request %q was accepted", r.Title), requestRefs(r))
		}},
		o.recalcRequest(r),
		o.publishRequest(fanout.RequestAccepted, r),
	})
	res.Request = r

	return res, nil
}

// GenerateDocuments retries generation of the documents an accepted request is missing.
func (o *Orchestrator) GenerateDocuments(ctx context.Context, a actor.Actor, requestID uuid.UUID) (*ledger.Request, error) {
	if !a.Manager() {
		return nil, fmt.Errorf("%w: only managers generate documents", actor.ErrForbidden)
	}

	r, err := o.ledger.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if r.Status != ledger.RequestAccepted {
		return nil, fmt.Errorf("%w: request %s is %s", ledger.ErrInvalidTransition, r.ID, r.Status)
	}

	updated, err := o.generateDocuments(ctx, r)
	if updated != nil {
		o.emitter.Emit(ctx, fanout.RequestEvent(fanout.RequestUpdated, updated, o.timestamp()))
	}

	if err != nil {
		return updated, fmt.Errorf("generate documents: %w", err)
	}

	if updated == nil {
		updated = r
	}

	return updated, nil
}

// generateDocuments renders every required document kind the request does not have yet
// and attaches the ones that succeeded. It returns nil when nothing was attached.
func (o *Orchestrator) generateDocuments(ctx context.Context, r *ledger.Request) (*ledger.Request, error) {
	missing := missingKinds(r)
	if len(missing) == 0 {
		return nil, nil
	}

	var (
		unit     *property.Unit
		building *property.Building
		err      error
	)

	if r.UnitID != nil {
		if unit, err = o.dir.GetUnit(ctx, *r.UnitID); err != nil {
			return nil, fmt.Errorf("load unit: %w", err)
		}
	}

	if r.BuildingID != nil {
		if building, err = o.dir.GetBuilding(ctx, *r.BuildingID); err != nil {
			return nil, fmt.Errorf("load building: %w", err)
		}
	}

	parties := document.Parties{RequesterID: r.CreatorID}
	if unit != nil {
		parties.OwnerID = unit.OwnerID
	}

	if building != nil {
		parties.AdminID = building.AdminID
	}

	var (
		docs []ledger.Document
		errs []error
	)

	for _, kind := range missing {
		g, err := o.docs.Generate(ctx, kind, r, unit, building, parties)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
			continue
		}

		docs = append(docs, ledger.Document{
			ID:          uuid.New(),
			Kind:        string(kind),
			Filename:    g.Filename,
			Path:        g.Path,
			GeneratedAt: g.GeneratedAt,
		})
	}

	if len(docs) == 0 {
		return nil, errors.Join(errs...)
	}

	updated, err := o.ledger.MutateRequest(ctx, r.ID, func(cur *ledger.Request) error {
		for _, d := range docs {
			if !hasKind(cur, d.Kind) {
				cur.Documents = append(cur.Documents, d)
			}
		}

		return nil
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("attach documents: %w", err))
	}

	return updated, errors.Join(errs...)
}

// Reject closes a request that has not been accepted. A reason is mandatory.
func (o *Orchestrator) Reject(ctx context.Context, a actor.Actor, requestID uuid.UUID, reason string) (RequestResult, error) {
	if !a.Manager() {
		return RequestResult{}, fmt.Errorf("%w: only managers reject requests", actor.ErrForbidden)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return RequestResult{}, fmt.Errorf("%w: a rejection reason is required", ledger.ErrInvalid)
	}

	r, err := o.ledger.MutateRequest(ctx, requestID, func(r *ledger.Request) error {
		if err := r.Transition(ledger.RequestRejected, a.ID, o.timestamp(), reason); err != nil {
			return err
		}

		r.RejectionReason = reason

		return nil
	})
	if err != nil {
		return RequestResult{}, err
	}

	res := RequestResult{Request: r}
	res.FailedEffects = o.runEffects(ctx, "reject_request", []effect{
		{"notify_creator", func(ctx context.Context) error {
			return o.notify(ctx, r.CreatorID, notification.TypeRequestRejected,
				"Request rejected", fmt.Sprintf("Your request %q was rejected: %s", r.Title, reason), requestRefs(r))
		}},
		o.recalcRequest(r),
		o.publishRequest(fanout.RequestRejected, r),
	})

	return res, nil
}

// StartWork puts a maintenance style request in progress.
func (o *Orchestrator) StartWork(ctx context.Context, a actor.Actor, requestID uuid.UUID) (RequestResult, error) {
	if !a.Manager() {
		return RequestResult{}, fmt.Errorf("%w: only managers start work", actor.ErrForbidden)
	}

	r, err := o.ledger.MutateRequest(ctx, requestID, func(r *ledger.Request) error {
		if r.Type.Transfers() {
			return fmt.Errorf("%w: %s requests are accepted, not worked on", ledger.ErrInvalidTransition, r.Type)
		}

		return r.Transition(ledger.RequestInProgress, a.ID, o.timestamp(), "")
	})
	if err != nil {
		return RequestResult{}, err
	}

	res := RequestResult{Request: r}
	res.FailedEffects = o.runEffects(ctx, "start_work", []effect{
		o.recalcRequest(r),
		o.publishRequest(fanout.RequestUpdated, r),
	})

	return res, nil
}

// Complete closes a request that does not transfer a unit. Rental and purchase requests
// complete when their payment is settled.
func (o *Orchestrator) Complete(ctx context.Context, a actor.Actor, requestID uuid.UUID, comment string) (RequestResult, error) {
	if !a.Manager() {
		return RequestResult{}, fmt.Errorf("%w: only managers complete requests", actor.ErrForbidden)
	}

	r, err := o.ledger.GetRequest(ctx, requestID)
	if err != nil {
		return RequestResult{}, err
	}

	if r.Type.Transfers() {
		return RequestResult{}, fmt.Errorf("%w: %s requests complete when paid", ledger.ErrInvalidTransition, r.Type)
	}

	paid, err := o.linkedPaymentPaid(ctx, r)
	if err != nil {
		return RequestResult{}, err
	}

	r, err = o.ledger.MutateRequest(ctx, requestID, func(r *ledger.Request) error {
		if !r.AllSigned() {
			return fmt.Errorf("%w: request %s has unsigned documents", ledger.ErrInvalidTransition, r.ID)
		}

		if !paid {
			return fmt.Errorf("%w: request %s has an unpaid payment", ledger.ErrInvalidTransition, r.ID)
		}

		return r.Transition(ledger.RequestCompleted, a.ID, o.timestamp(), strings.TrimSpace(comment))
	})
	if err != nil {
		return RequestResult{}, err
	}

	res := RequestResult{Request: r}
	res.FailedEffects = o.runEffects(ctx, "complete_request", []effect{
		o.notifyCompleted(r),
		o.recalcRequest(r),
		o.publishRequest(fanout.RequestCompleted, r),
	})

	return res, nil
}

// SignDocument records a signature. Once every document is signed the managers are told the
// request is ready for payment, and a request whose payment already went through completes.
func (o *Orchestrator) SignDocument(ctx context.Context, a actor.Actor, requestID, documentID uuid.UUID) (RequestResult, error) {
	r, err := o.ledger.GetRequest(ctx, requestID)
	if err != nil {
		return RequestResult{}, err
	}

	if a.ID != r.CreatorID && !a.Manager() {
		return RequestResult{}, fmt.Errorf("%w: only the requester or a manager may sign", actor.ErrForbidden)
	}

	r, err = o.ledger.MutateRequest(ctx, requestID, func(r *ledger.Request) error {
		if r.Status != ledger.RequestAccepted {
			return fmt.Errorf("%w: documents of a %s request cannot be signed", ledger.ErrInvalidTransition, r.Status)
		}

		d, ok := r.Document(documentID)
		if !ok {
			return fmt.Errorf("%w: document %s", ledger.ErrNotFound, documentID)
		}

		if d.Signed {
			return errUnchanged
		}

		now := o.timestamp()
		d.Signed = true
		d.SignedAt = &now
		d.SignedBy = &a.ID

		return nil
	})
	if errors.Is(err, errUnchanged) {
		r, err = o.ledger.GetRequest(ctx, requestID)
		return RequestResult{Request: r}, err
	}

	if err != nil {
		return RequestResult{}, err
	}

	res := RequestResult{Request: r}

	effects := []effect{}
	if documentsComplete(r) {
		effects = append(effects, effect{"notify_manager", func(ctx context.Context) error {
			admin, ok, err := o.manager(ctx, r.BuildingID)
			if err != nil || !ok {
				return err
			}

			return o.notify(ctx, admin, notification.TypeDocumentsSigned,
				"Documents signed", fmt.Sprintf("All documents of %q are signed", r.Title), requestRefs(r))
		}})

		if r.PaymentID != nil {
			paymentID := *r.PaymentID
			effects = append(effects, o.completionEffects(a, r.ID, &r)...)
			effects = append(effects, effect{"schedule_next_rent", func(ctx context.Context) error {
				if r.Status != ledger.RequestCompleted {
					return nil
				}

				p, err := o.ledger.GetPayment(ctx, paymentID)
				if err != nil {
					return err
				}

				return o.scheduleNextRent(ctx, p)
			}})
		}
	}

	effects = append(effects, o.recalcRequest(r), effect{"publish", func(ctx context.Context) error {
		typ := fanout.RequestUpdated
		if r.Status == ledger.RequestCompleted {
			typ = fanout.RequestCompleted
		}

		o.emitter.Emit(ctx, fanout.RequestEvent(typ, r, o.timestamp()))

		return nil
	}})

	res.FailedEffects = o.runEffects(ctx, "sign_document", effects)
	res.Request = r

	return res, nil
}

// RequestAggregate returns a request with every payment linked to it.
func (o *Orchestrator) RequestAggregate(ctx context.Context, a actor.Actor, requestID uuid.UUID) (ledger.Aggregate, error) {
	r, err := o.ledger.GetRequest(ctx, requestID)
	if err != nil {
		return ledger.Aggregate{}, err
	}

	if a.ID != r.CreatorID && !a.Manager() {
		return ledger.Aggregate{}, fmt.Errorf("%w: request %s belongs to someone else", actor.ErrForbidden, r.ID)
	}

	payments, err := o.ledger.ListPayments(ctx, ledger.PaymentFilter{RequestID: &r.ID})
	if err != nil {
		return ledger.Aggregate{}, fmt.Errorf("list request payments: %w", err)
	}

	return ledger.Aggregate{Request: r, Payments: payments}, nil
}

// completionEffects hand the unit over and close a transfer request once its documents
// are signed and its payment is paid. Both steps re-check the request they act on.
// req is set to the completed request when completion happens.
func (o *Orchestrator) completionEffects(a actor.Actor, requestID uuid.UUID, req **ledger.Request) []effect {
	return []effect{
		{"assign_unit", func(ctx context.Context) error {
			r, err := o.ledger.GetRequest(ctx, requestID)
			if err != nil {
				return err
			}

			ok, err := o.completable(ctx, r)
			if err != nil || !ok {
				return err
			}

			return o.assignUnit(ctx, r)
		}},
		{"complete_request", func(ctx context.Context) error {
			r, err := o.ledger.GetRequest(ctx, requestID)
			if err != nil {
				return err
			}

			ok, err := o.completable(ctx, r)
			if err != nil || !ok {
				return err
			}

			done, err := o.ledger.MutateRequest(ctx, r.ID, func(cur *ledger.Request) error {
				if cur.Status == ledger.RequestCompleted {
					return errUnchanged
				}

				return cur.Transition(ledger.RequestCompleted, a.ID, o.timestamp(), "payment received")
			})
			if errors.Is(err, errUnchanged) {
				return nil
			}

			if err != nil {
				return err
			}

			*req = done

			return nil
		}},
		{"notify_completed", func(ctx context.Context) error {
			r := *req
			if r == nil || r.Status != ledger.RequestCompleted {
				return nil
			}

			role := property.RoleTenant
			if r.Type == ledger.RequestPurchase {
				role = property.RoleOwner
			}

			return errors.Join(
				o.notifyCompleted(r).run(ctx),
				o.notify(ctx, r.CreatorID, notification.TypeUnitAssigned,
					"Unit assigned", fmt.Sprintf("You are now the %s of the unit", role), requestRefs(r)),
			)
		}},
	}
}

// completable reports whether a transfer request may complete: it is accepted, every
// required document exists and is signed, and its linked payment is paid.
func (o *Orchestrator) completable(ctx context.Context, r *ledger.Request) (bool, error) {
	if !r.Type.Transfers() || r.Status != ledger.RequestAccepted || r.PaymentID == nil {
		return false, nil
	}

	if !documentsComplete(r) {
		return false, nil
	}

	return o.linkedPaymentPaid(ctx, r)
}

func (o *Orchestrator) linkedPaymentPaid(ctx context.Context, r *ledger.Request) (bool, error) {
	if r.PaymentID == nil {
		return true, nil
	}

	p, err := o.ledger.GetPayment(ctx, *r.PaymentID)
	if err != nil {
		return false, fmt.Errorf("load linked payment: %w", err)
	}

	return p.Status == ledger.PaymentPaid, nil
}

func (o *Orchestrator) assignUnit(ctx context.Context, r *ledger.Request) error {
	if r.UnitID == nil {
		return fmt.Errorf("%w: request %s has no unit", ledger.ErrInvalid, r.ID)
	}

	a := property.Assignment{UserID: r.CreatorID, Role: property.RoleTenant, Availability: property.Rented}
	if r.Type == ledger.RequestPurchase {
		a.Role = property.RoleOwner
		a.Availability = property.Sold
	}

	if err := o.dir.AssignOccupant(ctx, *r.UnitID, a); err != nil {
		return fmt.Errorf("assign unit %s: %w", r.UnitID, err)
	}

	return nil
}

func (o *Orchestrator) notifyCompleted(r *ledger.Request) effect {
	return effect{"notify_completed", func(ctx context.Context) error {
		return o.notify(ctx, r.CreatorID, notification.TypeRequestCompleted,
			"Request completed", fmt.Sprintf("Your request %q is complete", r.Title), requestRefs(r))
	}}
}

func (o *Orchestrator) recalcRequest(r *ledger.Request) effect {
	return effect{"recalculate", func(ctx context.Context) error {
		return o.recalc.ForRequest(ctx, r)
	}}
}

func (o *Orchestrator) publishRequest(typ fanout.EventType, r *ledger.Request) effect {
	return effect{"publish", func(ctx context.Context) error {
		o.emitter.Emit(ctx, fanout.RequestEvent(typ, r, o.timestamp()))
		return nil
	}}
}

// documentsComplete reports whether every document the request type needs exists and
// every attached document is signed.
func documentsComplete(r *ledger.Request) bool {
	return len(missingKinds(r)) == 0 && r.AllSigned()
}

func missingKinds(r *ledger.Request) []document.Kind {
	var missing []document.Kind

	for _, k := range document.KindsFor(r.Type) {
		if !hasKind(r, string(k)) {
			missing = append(missing, k)
		}
	}

	return missing
}

func hasKind(r *ledger.Request, kind string) bool {
	return slices.ContainsFunc(r.Documents, func(d ledger.Document) bool { return d.Kind == kind })
}

func requestRefs(r *ledger.Request) map[string]uuid.UUID {
	refs := map[string]uuid.UUID{"request_id": r.ID}
	if r.UnitID != nil {
		refs["unit_id"] = *r.UnitID
	}

	if r.PaymentID != nil {
		refs["payment_id"] = *r.PaymentID
	}

	return refs
}
