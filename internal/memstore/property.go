package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/property"
)

func (s *Store) CreateBuilding(_ context.Context, b *property.Building) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.buildings[b.ID] = cloneBuilding(b)

	return nil
}

func (s *Store) CreateUnit(_ context.Context, u *property.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buildings[u.BuildingID]; !ok {
		return fmt.Errorf("building %s: %w", u.BuildingID, property.ErrNotFound)
	}

	now := s.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.units[u.ID] = cloneUnit(u)

	return nil
}

func (s *Store) GetBuilding(_ context.Context, id uuid.UUID) (*property.Building, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buildings[id]
	if !ok {
		return nil, fmt.Errorf("building %s: %w", id, property.ErrNotFound)
	}

	return cloneBuilding(b), nil
}

func (s *Store) GetUnit(_ context.Context, id uuid.UUID) (*property.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[id]
	if !ok {
		return nil, fmt.Errorf("unit %s: %w", id, property.ErrNotFound)
	}

	return cloneUnit(u), nil
}

func (s *Store) ListBuildings(_ context.Context) ([]*property.Building, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*property.Building, 0, len(s.buildings))
	for _, b := range s.buildings {
		out = append(out, cloneBuilding(b))
	}

	slices.SortFunc(out, func(a, b *property.Building) int { return strings.Compare(a.Name, b.Name) })

	return out, nil
}

func (s *Store) ListUnits(_ context.Context, buildingID uuid.UUID) ([]*property.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*property.Unit

	for _, u := range s.units {
		if u.BuildingID == buildingID {
			out = append(out, cloneUnit(u))
		}
	}

	slices.SortFunc(out, func(a, b *property.Unit) int { return strings.Compare(a.Number, b.Number) })

	return out, nil
}

func (s *Store) AssignOccupant(_ context.Context, unitID uuid.UUID, a property.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[unitID]
	if !ok {
		return fmt.Errorf("unit %s: %w", unitID, property.ErrNotFound)
	}

	userID := a.UserID
	if a.Role == property.RoleOwner {
		u.OwnerID = &userID
	} else {
		u.TenantID = &userID
	}

	u.Availability = a.Availability
	u.UpdatedAt = s.now().UTC()

	return nil
}

func (s *Store) SaveUnitMetadata(_ context.Context, unitID uuid.UUID, m property.UnitMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[unitID]
	if !ok {
		return fmt.Errorf("unit %s: %w", unitID, property.ErrNotFound)
	}

	u.Metadata = m
	u.UpdatedAt = s.now().UTC()

	return nil
}

func (s *Store) SaveBuildingStats(_ context.Context, buildingID uuid.UUID, st property.BuildingStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buildings[buildingID]
	if !ok {
		return fmt.Errorf("building %s: %w", buildingID, property.ErrNotFound)
	}

	b.Stats = st
	b.UpdatedAt = s.now().UTC()

	return nil
}

func (s *Store) FindPlatformAdmin(_ context.Context) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.admins) == 0 {
		return uuid.Nil, property.ErrNotFound
	}

	return s.admins[0], nil
}
