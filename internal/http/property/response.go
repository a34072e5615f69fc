package property

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/property"
)

type buildingResponse struct {
	ID        uuid.UUID              `json:"id"`
	Name      string                 `json:"name"`
	AdminID   *uuid.UUID             `json:"admin_id,omitempty"`
	Stats     property.BuildingStats `json:"stats"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func toBuildingResponse(b *property.Building) buildingResponse {
	return buildingResponse{
		ID:        b.ID,
		Name:      b.Name,
		AdminID:   b.AdminID,
		Stats:     b.Stats,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

type unitResponse struct {
	ID           uuid.UUID             `json:"id"`
	BuildingID   uuid.UUID             `json:"building_id"`
	Number       string                `json:"number"`
	OwnerID      *uuid.UUID            `json:"owner_id,omitempty"`
	TenantID     *uuid.UUID            `json:"tenant_id,omitempty"`
	Availability property.Availability `json:"availability"`
	Metadata     property.UnitMetadata `json:"metadata"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

func toUnitResponse(u *property.Unit) unitResponse {
	return unitResponse{
		ID:           u.ID,
		BuildingID:   u.BuildingID,
		Number:       u.Number,
		OwnerID:      u.OwnerID,
		TenantID:     u.TenantID,
		Availability: u.Availability,
		Metadata:     u.Metadata,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
