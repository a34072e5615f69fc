package aggregate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

// Refresher recomputes a single aggregate.
type Refresher interface {
	UpdateUnit(ctx context.Context, unitID uuid.UUID) (property.UnitMetadata, error)
	UpdateBuildingStats(ctx context.Context, buildingID uuid.UUID) (property.BuildingStats, error)
}

type scope int

const (
	scopeUnit scope = iota
	scopeBuilding
)

type target struct {
	scope scope
	id    uuid.UUID
}

// Queue coalesces recomputation requests. All requests for the same entity within the delay
// collapse into one recomputation, which reads the ledger when it runs.
type Queue struct {
	refresher Refresher
	delay     time.Duration
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[target]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

func NewQueue(r Refresher, delay, timeout time.Duration, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}

	return &Queue{
		refresher: r,
		delay:     delay,
		timeout:   timeout,
		logger:    logger,
		pending:   make(map[target]*time.Timer),
	}
}

func (q *Queue) Unit(id uuid.UUID)     { q.enqueue(target{scopeUnit, id}) }
func (q *Queue) Building(id uuid.UUID) { q.enqueue(target{scopeBuilding, id}) }

func (q *Queue) Payment(p *ledger.Payment) {
	q.scopes(p.UnitID, p.BuildingID)
}

func (q *Queue) Request(r *ledger.Request) {
	q.scopes(r.UnitID, r.BuildingID)
}

func (q *Queue) scopes(unitID, buildingID *uuid.UUID) {
	if unitID != nil {
		q.Unit(*unitID)
	}

	if buildingID != nil {
		q.Building(*buildingID)
	}
}

func (q *Queue) enqueue(t target) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	if _, ok := q.pending[t]; ok {
		return
	}

	q.wg.Add(1)
	q.pending[t] = time.AfterFunc(q.delay, func() { q.run(t) })
}

func (q *Queue) run(t target) {
	defer q.wg.Done()

	q.mu.Lock()
	delete(q.pending, t)
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	var err error

	switch t.scope {
	case scopeUnit:
		_, err = q.refresher.UpdateUnit(ctx, t.id)
	case scopeBuilding:
		_, err = q.refresher.UpdateBuildingStats(ctx, t.id)
	}

	if err != nil {
		q.logger.Warn("queued recalculation failed", "scope", t.scope, "id", t.id, "error", err)
	}
}

// Close runs everything still pending and waits for in-flight recomputations.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true

	var due []target

	for t, timer := range q.pending {
		if timer.Stop() {
			due = append(due, t)
		}
	}
	q.mu.Unlock()

	for _, t := range due {
		q.run(t)
	}

	q.wg.Wait()
}
