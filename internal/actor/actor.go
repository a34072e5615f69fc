// Package actor carries the identity resolved by the upstream gateway.
package actor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

type Role string

const (
	RoleResident      Role = "resident"
	RoleOwner         Role = "owner"
	RoleBuildingAdmin Role = "building_admin"
	RolePlatformAdmin Role = "platform_admin"
)

const (
	HeaderID   = "X-Actor-ID"
	HeaderRole = "X-Actor-Role"
)

type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Manager reports whether the actor runs buildings rather than lives in them.
func (a Actor) Manager() bool {
	return a.Role == RoleBuildingAdmin || a.Role == RolePlatformAdmin
}

// Require returns ErrForbidden unless the actor has one of roles.
func (a Actor) Require(roles ...Role) error {
	if slices.Contains(roles, a.Role) {
		return nil
	}

	return fmt.Errorf("%w: role %s may not do this", ErrForbidden, a.Role)
}

// FromHeaders reads the identity the gateway attached to the request.
func FromHeaders(h http.Header) (Actor, error) {
	id, err := uuid.Parse(h.Get(HeaderID))
	if err != nil {
		return Actor{}, fmt.Errorf("%w: bad %s header", ErrUnauthenticated, HeaderID)
	}

	role := Role(h.Get(HeaderRole))
	switch role {
	case RoleResident, RoleOwner, RoleBuildingAdmin, RolePlatformAdmin:
	default:
		return Actor{}, fmt.Errorf("%w: unknown role %q", ErrUnauthenticated, role)
	}

	return Actor{ID: id, Role: role}, nil
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}
