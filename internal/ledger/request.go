package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType is the kind of business a requester asks for.
type RequestType string

const (
	RequestRental      RequestType = "rental"
	RequestPurchase    RequestType = "purchase"
	RequestMaintenance RequestType = "maintenance"
	RequestService     RequestType = "service"
	RequestClaim       RequestType = "claim"
	RequestOther       RequestType = "other"
)

// Transfers reports whether completing the request hands the unit over to the requester.
func (t RequestType) Transfers() bool {
	return t == RequestRental || t == RequestPurchase
}

// RequestStatus represents the lifecycle state of a request.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestInProgress RequestStatus = "in_progress"
	RequestAccepted   RequestStatus = "accepted"
	RequestRejected   RequestStatus = "rejected"
	RequestCompleted  RequestStatus = "completed"
)

func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestRejected
}

// Priority orders requests for the people handling them.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// StatusEntry is one append-only line of a request's history.
type StatusEntry struct {
	Status  RequestStatus `json:"status"`
	ActorID uuid.UUID     `json:"actor_id"`
	At      time.Time     `json:"at"`
	Comment string        `json:"comment,omitempty"`
}

// Document is a generated file attached to a request that may need a signature.
type Document struct {
	ID          uuid.UUID  `json:"id"`
	Kind        string     `json:"kind"`
	Filename    string     `json:"filename"`
	Path        string     `json:"path"`
	GeneratedAt time.Time  `json:"generated_at"`
	Signed      bool       `json:"signed"`
	SignedAt    *time.Time `json:"signed_at,omitempty"`
	SignedBy    *uuid.UUID `json:"signed_by,omitempty"`
}

// Request is a user-initiated piece of business tracked through its lifecycle.
type Request struct {
	ID              uuid.UUID          `json:"id"`
	CreatorID       uuid.UUID          `json:"creator_id"`
	Type            RequestType        `json:"type"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	Priority        Priority           `json:"priority"`
	UnitID          *uuid.UUID         `json:"unit_id,omitempty"`
	BuildingID      *uuid.UUID         `json:"building_id,omitempty"`
	Status          RequestStatus      `json:"status"`
	History         []StatusEntry      `json:"history"`
	Documents       []Document         `json:"documents"`
	InitialPayment  *PaymentDescriptor `json:"initial_payment,omitempty"`
	PaymentID       *uuid.UUID         `json:"payment_id,omitempty"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	Version         int64              `json:"version"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// AllSigned reports whether every generated document carries a signature.
// A request without documents is trivially signed.
func (r *Request) AllSigned() bool {
	for _, d := range r.Documents {
		if !d.Signed {
			return false
		}
	}

	return true
}

// Document returns the document with the given id.
func (r *Request) Document(id uuid.UUID) (*Document, bool) {
	for i := range r.Documents {
		if r.Documents[i].ID == id {
			return &r.Documents[i], true
		}
	}

	return nil, false
}

// Transition moves the request to status and appends the matching history entry.
func (r *Request) Transition(to RequestStatus, actorID uuid.UUID, at time.Time, comment string) error {
	if !canTransition(r.Status, to) {
		return fmt.Errorf("%w: request %s cannot go from %s to %s", ErrInvalidTransition, r.ID, r.Status, to)
	}

	r.Status = to
	r.History = append(r.History, StatusEntry{
		Status:  to,
		ActorID: actorID,
		At:      at,
		Comment: comment,
	})

	return nil
}

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:    {RequestInProgress, RequestAccepted, RequestRejected},
	RequestInProgress: {RequestCompleted, RequestRejected},
	RequestAccepted:   {RequestCompleted},
}

func canTransition(from, to RequestStatus) bool {
	for _, s := range requestTransitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

// RequestKey is the business identity used to detect duplicate submissions.
type RequestKey struct {
	CreatorID uuid.UUID
	UnitID    uuid.UUID
	Title     string
	Type      RequestType
}

func (k RequestKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.CreatorID, k.UnitID, k.Title, k.Type)
}

func (r *Request) Key() RequestKey {
	k := RequestKey{CreatorID: r.CreatorID, Title: r.Title, Type: r.Type}
	if r.UnitID != nil {
		k.UnitID = *r.UnitID
	}

	return k
}
