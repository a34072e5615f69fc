package fanout

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

// EventType names a state change pushed to clients.
type EventType string

const (
	RequestCreated   EventType = "request.created"
	RequestUpdated   EventType = "request.updated"
	RequestAccepted  EventType = "request.accepted"
	RequestRejected  EventType = "request.rejected"
	RequestCompleted EventType = "request.completed"

	PaymentCreated   EventType = "payment.created"
	PaymentUpdated   EventType = "payment.updated"
	PaymentPaid      EventType = "payment.paid"
	PaymentOverdue   EventType = "payment.overdue"
	PaymentCancelled EventType = "payment.cancelled"

	UnitUpdated     EventType = "unit.updated"
	BuildingUpdated EventType = "building.updated"

	NotificationCreated EventType = "notification.created"
)

// Terminal reports whether the event announces a state no later event can undo.
// Clients apply those immediately instead of waiting for a refetch.
func (t EventType) Terminal() bool {
	switch t {
	case PaymentPaid, PaymentCancelled, RequestCompleted, RequestRejected:
		return true
	}

	return false
}

// Event is the payload pushed for every ledger state change.
type Event struct {
	Type       EventType  `json:"type"`
	EntityID   uuid.UUID  `json:"entity_id"`
	RequestID  *uuid.UUID `json:"request_id,omitempty"`
	PaymentID  *uuid.UUID `json:"payment_id,omitempty"`
	UnitID     *uuid.UUID `json:"unit_id,omitempty"`
	BuildingID *uuid.UUID `json:"building_id,omitempty"`
	Status     string     `json:"status,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

func PaymentEvent(typ EventType, p *ledger.Payment, at time.Time) Event {
	return Event{
		Type:       typ,
		EntityID:   p.ID,
		RequestID:  p.RequestID,
		PaymentID:  new(p.ID),
		UnitID:     p.UnitID,
		BuildingID: p.BuildingID,
		Status:     string(p.Status),
		Timestamp:  at,
	}
}

func RequestEvent(typ EventType, r *ledger.Request, at time.Time) Event {
	return Event{
		Type:       typ,
		EntityID:   r.ID,
		RequestID:  new(r.ID),
		PaymentID:  r.PaymentID,
		UnitID:     r.UnitID,
		BuildingID: r.BuildingID,
		Status:     string(r.Status),
		Timestamp:  at,
	}
}
