package actor_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/condo/internal/actor"
)

func TestFromHeaders(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		idHdr   string
		roleHdr string
		wantErr bool
	}{
		{name: "Valid", idHdr: id.String(), roleHdr: "building_admin"},
		{name: "MissingID", roleHdr: "resident", wantErr: true},
		{name: "UnknownRole", idHdr: id.String(), roleHdr: "root", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set(actor.HeaderID, tt.idHdr)
			h.Set(actor.HeaderRole, tt.roleHdr)

			got, err := actor.FromHeaders(h)
			if tt.wantErr {
				assert.ErrorIs(t, err, actor.ErrUnauthenticated)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, id, got.ID)
			assert.True(t, got.Manager())
		})
	}
}

func TestRequire(t *testing.T) {
	a := actor.Actor{ID: uuid.New(), Role: actor.RoleResident}

	assert.NoError(t, a.Require(actor.RoleResident, actor.RoleOwner))
	assert.ErrorIs(t, a.Require(actor.RoleBuildingAdmin), actor.ErrForbidden)
}

func TestContext(t *testing.T) {
	_, ok := actor.FromContext(context.Background())
	assert.False(t, ok)

	a := actor.Actor{ID: uuid.New(), Role: actor.RoleOwner}
	got, ok := actor.FromContext(actor.WithActor(context.Background(), a))
	assert.True(t, ok)
	assert.Equal(t, a, got)
}
