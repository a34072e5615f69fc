// Package reconcile keeps a client's copy of one request aggregate in step with the server
// when pushes can be dropped or arrive out of order.
package reconcile

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

// Decision is what a client should do about an incoming event.
type Decision int

const (
	// Ignore means the event concerns another aggregate.
	Ignore Decision = iota
	// Patch means the event was applied to the local copy.
	Patch
	// Suppress means a refetch is owed once the suppression window closes.
	Suppress
	// Refetch means the aggregate should be fetched now.
	Refetch
)

func (d Decision) String() string {
	switch d {
	case Ignore:
		return "ignore"
	case Patch:
		return "patch"
	case Suppress:
		return "suppress"
	case Refetch:
		return "refetch"
	}

	return "unknown"
}

type Config struct {
	// SuppressionWindow is how long after a local write generic updates are held back.
	SuppressionWindow time.Duration
	// PendingTTL is how long a local payment is shown without a server echo.
	PendingTTL time.Duration
}

type pending struct {
	payment *ledger.Payment
	addedAt time.Time
}

// Reconciler merges server state, local optimistic writes and push events. Local writes
// win until the server echoes them or they expire.
type Reconciler struct {
	requestID uuid.UUID
	cfg       Config
	now       func() time.Time

	mu            sync.Mutex
	confirmed     ledger.Aggregate
	pending       []pending
	suppressUntil time.Time
	owed          bool
}

type Option func(*Reconciler)

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func New(requestID uuid.UUID, cfg Config, opts ...Option) *Reconciler {
	r := &Reconciler{requestID: requestID, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Reconciler) RequestID() uuid.UUID { return r.requestID }

// AddOptimistic shows a payment the client just submitted before the server confirms it.
func (r *Reconciler) AddOptimistic(p *ledger.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pending = append(r.pending, pending{payment: clonePayment(p), addedAt: now})
	r.suppressUntil = now.Add(r.cfg.SuppressionWindow)
}

// Apply decides how an event affects the local copy. Terminal changes are patched in
// directly; they cannot be undone by a later event.
func (r *Reconciler) Apply(ev fanout.Event) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.concerns(ev) {
		return Ignore
	}

	if ev.Type.Terminal() {
		if r.patch(ev) {
			return Patch
		}

		return Refetch
	}

	if r.hasPending() && r.now().Before(r.suppressUntil) {
		r.owed = true
		return Suppress
	}

	return Refetch
}

// Owed reports whether a suppressed refetch is pending and how long until it may run.
func (r *Reconciler) Owed() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owed {
		return 0, false
	}

	return max(r.suppressUntil.Sub(r.now()), 0), true
}

// Merge takes a freshly fetched aggregate as the confirmed state. Local payments echoed by
// the server or older than the pending TTL are dropped. A status the local copy already
// saw as terminal is kept over an older non-terminal server read.
func (r *Reconciler) Merge(agg ledger.Aggregate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agg = cloneAggregate(agg)

	if agg.Request != nil && r.confirmed.Request != nil &&
		r.confirmed.Request.Status.Terminal() && !agg.Request.Status.Terminal() {
		agg.Request.Status = r.confirmed.Request.Status
	}

	for _, p := range agg.Payments {
		if local := findPayment(r.confirmed.Payments, p.ID); local != nil &&
			local.Status.Terminal() && !p.Status.Terminal() {
			p.Status = local.Status
			p.PaidDate = local.PaidDate
		}
	}

	now := r.now()
	keys := make(map[ledger.PaymentKey]struct{}, len(agg.Payments))

	for _, p := range agg.Payments {
		keys[p.Key()] = struct{}{}
	}

	r.pending = slices.DeleteFunc(r.pending, func(pp pending) bool {
		if _, echoed := keys[pp.payment.Key()]; echoed {
			return true
		}

		return now.Sub(pp.addedAt) >= r.cfg.PendingTTL
	})

	r.confirmed = agg
	r.owed = false
}

// View returns the confirmed records followed by the local payments not yet confirmed.
func (r *Reconciler) View() ledger.Aggregate {
	r.mu.Lock()
	defer r.mu.Unlock()

	view := cloneAggregate(r.confirmed)
	for _, pp := range r.pending {
		view.Payments = append(view.Payments, clonePayment(pp.payment))
	}

	return view
}

func (r *Reconciler) concerns(ev fanout.Event) bool {
	if ev.RequestID != nil && *ev.RequestID == r.requestID {
		return true
	}

	return ev.PaymentID != nil && findPayment(r.confirmed.Payments, *ev.PaymentID) != nil
}

// patch applies a terminal event. It returns false when the entity is not known locally.
func (r *Reconciler) patch(ev fanout.Event) bool {
	switch ev.Type {
	case fanout.PaymentPaid, fanout.PaymentCancelled:
		if ev.PaymentID == nil {
			return false
		}

		p := findPayment(r.confirmed.Payments, *ev.PaymentID)
		if p == nil {
			return false
		}

		p.Status = ledger.PaymentStatus(ev.Status)
		if p.Status == ledger.PaymentPaid && p.PaidDate == nil {
			p.PaidDate = new(ev.Timestamp)
		}

		if req := r.confirmed.Request; req != nil && req.InitialPayment != nil && req.InitialPayment.PaymentID == p.ID {
			req.InitialPayment = p.Descriptor()
		}

		return true
	case fanout.RequestCompleted, fanout.RequestRejected:
		if r.confirmed.Request == nil {
			return false
		}

		r.confirmed.Request.Status = ledger.RequestStatus(ev.Status)

		return true
	}

	return false
}

func (r *Reconciler) hasPending() bool {
	return len(r.pending) > 0
}

func findPayment(ps []*ledger.Payment, id uuid.UUID) *ledger.Payment {
	for _, p := range ps {
		if p.ID == id {
			return p
		}
	}

	return nil
}

func clonePayment(p *ledger.Payment) *ledger.Payment {
	c := *p
	return &c
}

func cloneAggregate(agg ledger.Aggregate) ledger.Aggregate {
	var out ledger.Aggregate

	if agg.Request != nil {
		req := *agg.Request
		req.History = slices.Clone(req.History)
		req.Documents = slices.Clone(req.Documents)

		if req.InitialPayment != nil {
			ip := *req.InitialPayment
			req.InitialPayment = &ip
		}

		out.Request = &req
	}

	out.Payments = make([]*ledger.Payment, 0, len(agg.Payments))
	for _, p := range agg.Payments {
		out.Payments = append(out.Payments, clonePayment(p))
	}

	return out
}
