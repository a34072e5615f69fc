package property_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

func TestService_CreateUnit(t *testing.T) {
	buildingID := uuid.New()

	tests := []struct {
		name      string
		params    property.UnitParams
		setupMock func(m *property.MockRepository)
		wantErr   error
	}{
		{
			name:   "Success",
			params: property.UnitParams{BuildingID: buildingID, Number: " 3B "},
			setupMock: func(m *property.MockRepository) {
				m.EXPECT().GetBuilding(gomock.Any(), buildingID).Return(&property.Building{ID: buildingID}, nil)
				m.EXPECT().CreateUnit(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, u *property.Unit) error {
						assert.Equal(t, "3B", u.Number)
						assert.Equal(t, property.Available, u.Availability)
						return nil
					})
			},
		},
		{
			name:    "MissingNumber",
			params:  property.UnitParams{BuildingID: buildingID},
			wantErr: ledger.ErrInvalid,
		},
		{
			name:   "UnknownBuilding",
			params: property.UnitParams{BuildingID: buildingID, Number: "1A"},
			setupMock: func(m *property.MockRepository) {
				m.EXPECT().GetBuilding(gomock.Any(), buildingID).Return(nil, property.ErrNotFound)
			},
			wantErr: property.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := property.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := property.NewService(repo).CreateUnit(context.Background(), tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, buildingID, got.BuildingID)
		})
	}
}

func TestService_PlatformAdmin(t *testing.T) {
	adminID := uuid.New()

	tests := []struct {
		name    string
		ret     uuid.UUID
		retErr  error
		wantOK  bool
		wantErr bool
	}{
		{name: "Found", ret: adminID, wantOK: true},
		{name: "NoneConfigured", retErr: property.ErrNotFound},
		{name: "StoreDown", retErr: errors.New("connection refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := property.NewMockRepository(ctrl)
			repo.EXPECT().FindPlatformAdmin(gomock.Any()).Return(tt.ret, tt.retErr)

			id, ok, err := property.NewService(repo).PlatformAdmin(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.ret, id)
		})
	}
}

func TestService_AssignOccupantRequiresUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := property.NewService(property.NewMockRepository(ctrl))

	err := svc.AssignOccupant(context.Background(), uuid.New(), property.Assignment{Role: property.RoleTenant})
	assert.ErrorIs(t, err, ledger.ErrInvalid)
}

func TestService_SaveUnitMetadata(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := property.NewMockRepository(ctrl)
	svc := property.NewService(repo)

	unitID := uuid.New()
	meta := property.UnitMetadata{Requests: property.RequestSummary{Total: 2}}
	down := errors.New("db down")

	repo.EXPECT().SaveUnitMetadata(gomock.Any(), unitID, meta).Return(nil)
	repo.EXPECT().SaveUnitMetadata(gomock.Any(), unitID, meta).Return(down)

	require.NoError(t, svc.SaveUnitMetadata(context.Background(), unitID, meta))
	assert.ErrorIs(t, svc.SaveUnitMetadata(context.Background(), unitID, meta), down)
}
