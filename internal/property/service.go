package property

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

var ErrNotFound = ledger.ErrNotFound

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=property
type Repository interface {
	CreateBuilding(ctx context.Context, b *Building) error
	CreateUnit(ctx context.Context, u *Unit) error
	GetBuilding(ctx context.Context, id uuid.UUID) (*Building, error)
	GetUnit(ctx context.Context, id uuid.UUID) (*Unit, error)
	ListBuildings(ctx context.Context) ([]*Building, error)
	ListUnits(ctx context.Context, buildingID uuid.UUID) ([]*Unit, error)
	AssignOccupant(ctx context.Context, unitID uuid.UUID, a Assignment) error
	SaveUnitMetadata(ctx context.Context, unitID uuid.UUID, meta UnitMetadata) error
	SaveBuildingStats(ctx context.Context, buildingID uuid.UUID, s BuildingStats) error
	// FindPlatformAdmin returns the first platform administrator, or ErrNotFound.
	FindPlatformAdmin(ctx context.Context) (uuid.UUID, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type BuildingParams struct {
	Name    string
	AdminID *uuid.UUID
}

type UnitParams struct {
	BuildingID uuid.UUID
	Number     string
	OwnerID    *uuid.UUID
}

func (s *Service) CreateBuilding(ctx context.Context, params BuildingParams) (*Building, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: building name is required", ledger.ErrInvalid)
	}

	b := &Building{ID: uuid.New(), Name: name, AdminID: params.AdminID}
	if err := s.repo.CreateBuilding(ctx, b); err != nil {
		return nil, fmt.Errorf("create building: %w", err)
	}

	return b, nil
}

func (s *Service) CreateUnit(ctx context.Context, params UnitParams) (*Unit, error) {
	number := strings.TrimSpace(params.Number)
	if number == "" {
		return nil, fmt.Errorf("%w: unit number is required", ledger.ErrInvalid)
	}

	if _, err := s.repo.GetBuilding(ctx, params.BuildingID); err != nil {
		return nil, err
	}

	u := &Unit{
		ID:           uuid.New(),
		BuildingID:   params.BuildingID,
		Number:       number,
		OwnerID:      params.OwnerID,
		Availability: Available,
	}
	if err := s.repo.CreateUnit(ctx, u); err != nil {
		return nil, fmt.Errorf("create unit: %w", err)
	}

	return u, nil
}

func (s *Service) GetBuilding(ctx context.Context, id uuid.UUID) (*Building, error) {
	return s.repo.GetBuilding(ctx, id)
}

func (s *Service) GetUnit(ctx context.Context, id uuid.UUID) (*Unit, error) {
	return s.repo.GetUnit(ctx, id)
}

func (s *Service) ListBuildings(ctx context.Context) ([]*Building, error) {
	return s.repo.ListBuildings(ctx)
}

func (s *Service) ListUnits(ctx context.Context, buildingID uuid.UUID) ([]*Unit, error) {
	return s.repo.ListUnits(ctx, buildingID)
}

// AssignOccupant records a completed rental or sale on the unit.
func (s *Service) AssignOccupant(ctx context.Context, unitID uuid.UUID, a Assignment) error {
	if a.UserID == uuid.Nil {
		return fmt.Errorf("%w: occupant is required", ledger.ErrInvalid)
	}

	if err := s.repo.AssignOccupant(ctx, unitID, a); err != nil {
		return fmt.Errorf("assign unit %s: %w", unitID, err)
	}

	return nil
}

func (s *Service) SaveUnitMetadata(ctx context.Context, unitID uuid.UUID, meta UnitMetadata) error {
	return s.repo.SaveUnitMetadata(ctx, unitID, meta)
}

func (s *Service) SaveBuildingStats(ctx context.Context, buildingID uuid.UUID, st BuildingStats) error {
	return s.repo.SaveBuildingStats(ctx, buildingID, st)
}

// PlatformAdmin returns the platform administrator if one exists.
func (s *Service) PlatformAdmin(ctx context.Context) (uuid.UUID, bool, error) {
	id, err := s.repo.FindPlatformAdmin(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return uuid.Nil, false, nil
		}

		return uuid.Nil, false, fmt.Errorf("find platform admin: %w", err)
	}

	return id, true, nil
}
