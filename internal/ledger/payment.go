package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType classifies what a payment settles.
type PaymentType string

const (
	PaymentTypeRent     PaymentType = "rent"
	PaymentTypeCharges  PaymentType = "charges"
	PaymentTypePurchase PaymentType = "purchase"
	PaymentTypeService  PaymentType = "service"
	PaymentTypeOther    PaymentType = "other"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentCancelled
}

// Open reports whether the payment still expects money.
func (s PaymentStatus) Open() bool {
	return s == PaymentPending || s == PaymentOverdue
}

// Payment is a single amount owed by a payer to a recipient.
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	PayerID       uuid.UUID       `json:"payer_id"`
	RecipientID   uuid.UUID       `json:"recipient_id"`
	UnitID        *uuid.UUID      `json:"unit_id,omitempty"`
	BuildingID    *uuid.UUID      `json:"building_id,omitempty"`
	RequestID     *uuid.UUID      `json:"request_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Type          PaymentType     `json:"type"`
	Status        PaymentStatus   `json:"status"`
	Description   string          `json:"description,omitempty"`
	DueDate       time.Time       `json:"due_date"`
	PaidDate      *time.Time      `json:"paid_date,omitempty"`
	Method        string          `json:"method,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PaymentKey is the business identity used to detect duplicate submissions.
type PaymentKey struct {
	PayerID uuid.UUID
	UnitID  uuid.UUID // uuid.Nil when the payment is not scoped to a unit
	Amount  string
	Type    PaymentType
	DueDay  string
}

func (k PaymentKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", k.PayerID, k.UnitID, k.Amount, k.Type, k.DueDay)
}

// Key returns the duplicate-detection key of the payment.
func (p *Payment) Key() PaymentKey {
	return NewPaymentKey(p.PayerID, p.UnitID, p.Amount, p.Type, p.DueDate)
}

func NewPaymentKey(payer uuid.UUID, unit *uuid.UUID, amount decimal.Decimal, typ PaymentType, due time.Time) PaymentKey {
	k := PaymentKey{
		PayerID: payer,
		Amount:  amount.StringFixed(2),
		Type:    typ,
		DueDay:  DueDay(due),
	}
	if unit != nil {
		k.UnitID = *unit
	}

	return k
}

// DueDay is the same-day window a due date falls into.
func DueDay(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// Descriptor returns the snapshot of p embedded in a linked request.
func (p *Payment) Descriptor() *PaymentDescriptor {
	return &PaymentDescriptor{
		PaymentID: p.ID,
		Amount:    p.Amount,
		Status:    p.Status,
		DueDate:   p.DueDate,
		PaidDate:  p.PaidDate,
	}
}

// PaymentDescriptor mirrors the state of a payment inside a request.
type PaymentDescriptor struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    PaymentStatus   `json:"status"`
	DueDate   time.Time       `json:"due_date"`
	PaidDate  *time.Time      `json:"paid_date,omitempty"`
}
