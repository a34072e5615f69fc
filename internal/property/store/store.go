package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/property"
)

// platformAdminRole is the users.role value of platform administrators.
const platformAdminRole = "platform_admin"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectUnitColumns = `
	id, building_id, number, owner_id, tenant_id, availability, metadata, created_at, updated_at
`

func scanUnit(s scanner) (*property.Unit, error) {
	var u property.Unit

	var availability string

	var metadata []byte

	if err := s.Scan(
		&u.ID, &u.BuildingID, &u.Number, &u.OwnerID, &u.TenantID, &availability, &metadata,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	u.Availability = property.Availability(availability)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &u.Metadata); err != nil {
			return nil, fmt.Errorf("decoding unit metadata: %w", err)
		}
	}

	return &u, nil
}

const selectBuildingColumns = `id, name, admin_id, stats, created_at, updated_at`

func scanBuilding(s scanner) (*property.Building, error) {
	var b property.Building

	var stats []byte

	if err := s.Scan(&b.ID, &b.Name, &b.AdminID, &stats, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}

	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &b.Stats); err != nil {
			return nil, fmt.Errorf("decoding building stats: %w", err)
		}
	}

	return &b, nil
}

func (s *Store) CreateBuilding(ctx context.Context, b *property.Building) error {
	query := `
		INSERT INTO buildings (id, name, admin_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if err := s.db.QueryRowContext(ctx, query, b.ID, b.Name, b.AdminID).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return fmt.Errorf("creating building: %w", err)
	}

	return nil
}

func (s *Store) CreateUnit(ctx context.Context, u *property.Unit) error {
	query := `
		INSERT INTO units (id, building_id, number, owner_id, tenant_id, availability, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		u.ID, u.BuildingID, u.Number, u.OwnerID, u.TenantID, u.Availability,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating unit: %w", err)
	}

	return nil
}

func (s *Store) GetBuilding(ctx context.Context, id uuid.UUID) (*property.Building, error) {
	query := `SELECT ` + selectBuildingColumns + ` FROM buildings WHERE id = $1`

	b, err := scanBuilding(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("building %s: %w", id, property.ErrNotFound)
		}

		return nil, fmt.Errorf("getting building: %w", err)
	}

	return b, nil
}

func (s *Store) GetUnit(ctx context.Context, id uuid.UUID) (*property.Unit, error) {
	query := `SELECT ` + selectUnitColumns + ` FROM units WHERE id = $1`

	u, err := scanUnit(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("unit %s: %w", id, property.ErrNotFound)
		}

		return nil, fmt.Errorf("getting unit: %w", err)
	}

	return u, nil
}

func (s *Store) ListBuildings(ctx context.Context) ([]*property.Building, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectBuildingColumns+` FROM buildings ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing buildings: %w", err)
	}
	defer rows.Close()

	var buildings []*property.Building

	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning building: %w", err)
		}

		buildings = append(buildings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating building rows: %w", err)
	}

	return buildings, nil
}

func (s *Store) ListUnits(ctx context.Context, buildingID uuid.UUID) ([]*property.Unit, error) {
	query := `SELECT ` + selectUnitColumns + ` FROM units WHERE building_id = $1 ORDER BY number ASC`

	rows, err := s.db.QueryContext(ctx, query, buildingID)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	var units []*property.Unit

	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}

		units = append(units, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unit rows: %w", err)
	}

	return units, nil
}

func (s *Store) AssignOccupant(ctx context.Context, unitID uuid.UUID, a property.Assignment) error {
	column := "tenant_id"
	if a.Role == property.RoleOwner {
		column = "owner_id"
	}

	query := `UPDATE units SET ` + column + ` = $1, availability = $2, updated_at = NOW() WHERE id = $3`

	res, err := s.db.ExecContext(ctx, query, a.UserID, a.Availability, unitID)
	if err != nil {
		return fmt.Errorf("assigning occupant: %w", err)
	}

	return requireRow(res, "unit", unitID)
}

func (s *Store) SaveUnitMetadata(ctx context.Context, unitID uuid.UUID, m property.UnitMetadata) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding unit metadata: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE units SET metadata = $1, updated_at = NOW() WHERE id = $2`, data, unitID)
	if err != nil {
		return fmt.Errorf("saving unit metadata: %w", err)
	}

	return requireRow(res, "unit", unitID)
}

func (s *Store) SaveBuildingStats(ctx context.Context, buildingID uuid.UUID, st property.BuildingStats) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding building stats: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE buildings SET stats = $1, updated_at = NOW() WHERE id = $2`, data, buildingID)
	if err != nil {
		return fmt.Errorf("saving building stats: %w", err)
	}

	return requireRow(res, "building", buildingID)
}

func (s *Store) FindPlatformAdmin(ctx context.Context) (uuid.UUID, error) {
	query := `SELECT id FROM users WHERE role = $1 ORDER BY created_at ASC LIMIT 1`

	var id uuid.UUID
	if err := s.db.QueryRowContext(ctx, query, platformAdminRole).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, property.ErrNotFound
		}

		return uuid.Nil, fmt.Errorf("finding platform admin: %w", err)
	}

	return id, nil
}

func requireRow(res sql.Result, kind string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, property.ErrNotFound)
	}

	return nil
}
