package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/document"
	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/notification"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

// Ledger is the primary store every operation writes to first.
type Ledger interface {
	RecordPayment(ctx context.Context, params ledger.PaymentParams) (*ledger.Payment, bool, error)
	RecordRequest(ctx context.Context, params ledger.RequestParams) (*ledger.Request, bool, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*ledger.Payment, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*ledger.Request, error)
	ListPayments(ctx context.Context, filter ledger.PaymentFilter) ([]*ledger.Payment, error)
	MarkPaid(ctx context.Context, id uuid.UUID, params ledger.PaidParams) (*ledger.Payment, bool, error)
	CancelPayment(ctx context.Context, id uuid.UUID) (*ledger.Payment, bool, error)
	MutateRequest(ctx context.Context, id uuid.UUID, mutate func(*ledger.Request) error) (*ledger.Request, error)
}

type Directory interface {
	GetUnit(ctx context.Context, id uuid.UUID) (*property.Unit, error)
	GetBuilding(ctx context.Context, id uuid.UUID) (*property.Building, error)
	AssignOccupant(ctx context.Context, unitID uuid.UUID, a property.Assignment) error
	PlatformAdmin(ctx context.Context) (uuid.UUID, bool, error)
}

//go:generate mockgen -source=deps.go -destination=deps_mock.go -package=lifecycle
type Generator interface {
	Generate(ctx context.Context, kind document.Kind, req *ledger.Request, unit *property.Unit, building *property.Building, parties document.Parties) (document.Generated, error)
}

type Notifier interface {
	Create(ctx context.Context, params notification.Params) (*notification.Notification, error)
}

type Recalculator interface {
	ForPayment(ctx context.Context, p *ledger.Payment) error
	ForRequest(ctx context.Context, r *ledger.Request) error
}

// Batcher defers recomputation for bulk writes.
type Batcher interface {
	Payment(p *ledger.Payment)
}

type Emitter interface {
	Emit(ctx context.Context, ev fanout.Event)
}
