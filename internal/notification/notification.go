package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeRequestCreated   Type = "request_created"
	TypeRequestAccepted  Type = "request_accepted"
	TypeRequestRejected  Type = "request_rejected"
	TypeRequestCompleted Type = "request_completed"
	TypeDocumentsSigned  Type = "documents_signed"
	TypePaymentReceived  Type = "payment_received"
	TypePaymentConfirmed Type = "payment_confirmed"
	TypeUnitAssigned     Type = "unit_assigned"
)

type Notification struct {
	ID         uuid.UUID            `json:"id"`
	UserID     uuid.UUID            `json:"user_id"`
	Type       Type                 `json:"type"`
	Title      string               `json:"title"`
	Content    string               `json:"content"`
	RelatedIDs map[string]uuid.UUID `json:"related_ids,omitempty"`
	Read       bool                 `json:"read"`
	CreatedAt  time.Time            `json:"created_at"`
}
