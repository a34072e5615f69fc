package property

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

// Availability is the market state of a unit.
type Availability string

const (
	Available   Availability = "available"
	Rented      Availability = "rented"
	Sold        Availability = "sold"
	Unavailable Availability = "unavailable"
)

// Occupied reports whether somebody holds the unit.
func (a Availability) Occupied() bool {
	return a == Rented || a == Sold
}

type Unit struct {
	ID           uuid.UUID
	BuildingID   uuid.UUID
	Number       string
	OwnerID      *uuid.UUID
	TenantID     *uuid.UUID
	Availability Availability
	Metadata     UnitMetadata
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Building struct {
	ID        uuid.UUID
	Name      string
	AdminID   *uuid.UUID
	Stats     BuildingStats
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentSummary is derived from ledger payments. It is never edited directly.
type PaymentSummary struct {
	TotalReceived   decimal.Decimal              `json:"total_received"`
	TotalPending    decimal.Decimal              `json:"total_pending"`
	TotalLate       decimal.Decimal              `json:"total_late"`
	ByStatus        map[ledger.PaymentStatus]int `json:"by_status"`
	LastPaymentDate *time.Time                   `json:"last_payment_date,omitempty"`
	NextDueDate     *time.Time                   `json:"next_due_date,omitempty"`
}

// RequestSummary is derived from ledger requests. It is never edited directly.
type RequestSummary struct {
	Total           int                          `json:"total"`
	Open            int                          `json:"open"`
	ByStatus        map[ledger.RequestStatus]int `json:"by_status"`
	ByType          map[ledger.RequestType]int   `json:"by_type"`
	ByPriority      map[ledger.Priority]int      `json:"by_priority"`
	LastRequestDate *time.Time                   `json:"last_request_date,omitempty"`
}

type UnitMetadata struct {
	Payments   PaymentSummary `json:"payments"`
	Requests   RequestSummary `json:"requests"`
	ComputedAt time.Time      `json:"computed_at"`
}

type BuildingStats struct {
	Units      int            `json:"units"`
	Occupied   int            `json:"occupied"`
	Available  int            `json:"available"`
	Payments   PaymentSummary `json:"payments"`
	Requests   RequestSummary `json:"requests"`
	ComputedAt time.Time      `json:"computed_at"`
}

// OccupantRole says which side of a unit a user is assigned to.
type OccupantRole string

const (
	RoleTenant OccupantRole = "tenant"
	RoleOwner  OccupantRole = "owner"
)

// Assignment hands a unit over to a user.
type Assignment struct {
	UserID       uuid.UUID
	Role         OccupantRole
	Availability Availability
}
