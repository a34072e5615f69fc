package aggregate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/condo/internal/aggregate"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

type countingRefresher struct {
	mu        sync.Mutex
	units     map[uuid.UUID]int
	buildings map[uuid.UUID]int
}

func newCountingRefresher() *countingRefresher {
	return &countingRefresher{units: map[uuid.UUID]int{}, buildings: map[uuid.UUID]int{}}
}

func (c *countingRefresher) UpdateUnit(_ context.Context, id uuid.UUID) (property.UnitMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.units[id]++

	return property.UnitMetadata{}, nil
}

func (c *countingRefresher) UpdateBuildingStats(_ context.Context, id uuid.UUID) (property.BuildingStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buildings[id]++

	return property.BuildingStats{}, nil
}

func (c *countingRefresher) unitCalls(id uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.units[id]
}

func TestQueue_Coalesces(t *testing.T) {
	r := newCountingRefresher()
	q := aggregate.NewQueue(r, 20*time.Millisecond, time.Second, nil)

	unitID, buildingID := uuid.New(), uuid.New()
	p := &ledger.Payment{UnitID: &unitID, BuildingID: &buildingID}

	for range 50 {
		q.Payment(p)
	}

	assert.Eventually(t, func() bool { return r.unitCalls(unitID) == 1 }, time.Second, 5*time.Millisecond)

	q.Close()

	assert.Equal(t, 1, r.unitCalls(unitID))
	assert.Equal(t, 1, r.buildings[buildingID])
}

func TestQueue_CloseFlushesPending(t *testing.T) {
	r := newCountingRefresher()
	q := aggregate.NewQueue(r, time.Hour, time.Second, nil)

	unitID := uuid.New()
	q.Unit(unitID)
	q.Close()

	assert.Equal(t, 1, r.unitCalls(unitID))

	q.Unit(unitID)
	assert.Equal(t, 1, r.unitCalls(unitID), "closed queue accepts nothing")
}
