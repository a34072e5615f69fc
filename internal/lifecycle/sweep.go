package lifecycle

import (
	"context"
	"errors"

	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

// PaymentsSwept follows up on payments the overdue sweep moved. Requests that embed one of
// them get their descriptor refreshed. It has the shape of an overdue sweep hook.
func (o *Orchestrator) PaymentsSwept(ctx context.Context, swept []*ledger.Payment) {
	for _, p := range swept {
		var req *ledger.Request

		effects := []effect{}
		if p.RequestID != nil {
			effects = append(effects, effect{"mirror_payment", func(ctx context.Context) error {
				r, err := o.refreshDescriptor(ctx, p)
				req = r

				return err
			}})
		}

		effects = append(effects,
			effect{"recalculate", func(context.Context) error {
				o.batch.Payment(p)
				return nil
			}},
			effect{"publish", func(ctx context.Context) error {
				o.emitter.Emit(ctx, fanout.PaymentEvent(fanout.PaymentOverdue, p, p.UpdatedAt))

				if req != nil {
					o.emitter.Emit(ctx, fanout.RequestEvent(fanout.RequestUpdated, req, p.UpdatedAt))
				}

				return nil
			}},
		)

		o.runEffects(ctx, "sweep", effects)
	}
}

// refreshDescriptor rewrites the payment descriptor of the request that links p. It returns
// nil when the request links another payment or already shows the current state.
func (o *Orchestrator) refreshDescriptor(ctx context.Context, p *ledger.Payment) (*ledger.Request, error) {
	r, err := o.ledger.MutateRequest(ctx, *p.RequestID, func(r *ledger.Request) error {
		if r.PaymentID == nil || *r.PaymentID != p.ID {
			return errUnchanged
		}

		if r.InitialPayment != nil && r.InitialPayment.Status == p.Status {
			return errUnchanged
		}

		r.InitialPayment = p.Descriptor()

		return nil
	})
	if errors.Is(err, errUnchanged) {
		return nil, nil
	}

	return r, err
}
