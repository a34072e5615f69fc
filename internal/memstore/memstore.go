// Package memstore is an in-process implementation of the ledger, property and notification
// repositories. A single mutex makes every duplicate check atomic with its insert.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/notification"
	"github.com/MrJamesThe3rd/condo/internal/property"
)

type Store struct {
	mu  sync.Mutex
	now func() time.Time

	payments      map[uuid.UUID]*ledger.Payment
	requests      map[uuid.UUID]*ledger.Request
	units         map[uuid.UUID]*property.Unit
	buildings     map[uuid.UUID]*property.Building
	notifications map[uuid.UUID]*notification.Notification
	admins        []uuid.UUID
}

func New() *Store {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:           now,
		payments:      make(map[uuid.UUID]*ledger.Payment),
		requests:      make(map[uuid.UUID]*ledger.Request),
		units:         make(map[uuid.UUID]*property.Unit),
		buildings:     make(map[uuid.UUID]*property.Building),
		notifications: make(map[uuid.UUID]*notification.Notification),
	}
}

// AddPlatformAdmin registers a platform administrator. The first one added is the fallback
// payment recipient.
func (s *Store) AddPlatformAdmin(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admins = append(s.admins, id)
}

func (s *Store) InsertPaymentIfAbsent(_ context.Context, p *ledger.Payment) (*ledger.Payment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := p.Key()

	var winner *ledger.Payment

	for _, existing := range s.payments {
		if existing.Status == ledger.PaymentCancelled || existing.Key() != key {
			continue
		}

		if winner == nil || existing.CreatedAt.Before(winner.CreatedAt) {
			winner = existing
		}
	}

	if winner != nil {
		return clonePayment(winner), false, nil
	}

	now := s.now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.payments[p.ID] = clonePayment(p)

	return p, true, nil
}

func (s *Store) InsertRequestIfAbsent(_ context.Context, r *ledger.Request, since time.Time) (*ledger.Request, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.Key()

	var winner *ledger.Request

	for _, existing := range s.requests {
		if existing.Status.Terminal() || !existing.CreatedAt.After(since) || existing.Key() != key {
			continue
		}

		if winner == nil || existing.CreatedAt.After(winner.CreatedAt) {
			winner = existing
		}
	}

	if winner != nil {
		return cloneRequest(winner), false, nil
	}

	now := s.now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1
	s.requests[r.ID] = cloneRequest(r)

	return r, true, nil
}

func (s *Store) GetPayment(_ context.Context, id uuid.UUID) (*ledger.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, ledger.ErrNotFound)
	}

	return clonePayment(p), nil
}

func (s *Store) GetRequest(_ context.Context, id uuid.UUID) (*ledger.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, ledger.ErrNotFound)
	}

	return cloneRequest(r), nil
}

func (s *Store) ListPayments(_ context.Context, f ledger.PaymentFilter) ([]*ledger.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*ledger.Payment

	for _, p := range s.payments {
		if !matchID(f.PayerID, &p.PayerID) || !matchID(f.RecipientID, &p.RecipientID) ||
			!matchID(f.UnitID, p.UnitID) || !matchID(f.BuildingID, p.BuildingID) ||
			!matchID(f.RequestID, p.RequestID) {
			continue
		}

		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status) {
			continue
		}

		out = append(out, clonePayment(p))
	}

	slices.SortFunc(out, func(a, b *ledger.Payment) int {
		return cmp.Or(a.DueDate.Compare(b.DueDate), a.CreatedAt.Compare(b.CreatedAt))
	})

	return out, nil
}

func (s *Store) ListRequests(_ context.Context, f ledger.RequestFilter) ([]*ledger.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*ledger.Request

	for _, r := range s.requests {
		if !matchID(f.CreatorID, &r.CreatorID) || !matchID(f.UnitID, r.UnitID) || !matchID(f.BuildingID, r.BuildingID) {
			continue
		}

		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
			continue
		}

		if len(f.Types) > 0 && !slices.Contains(f.Types, r.Type) {
			continue
		}

		out = append(out, cloneRequest(r))
	}

	slices.SortFunc(out, func(a, b *ledger.Request) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return out, nil
}

func (s *Store) UpdatePaymentStatus(_ context.Context, p *ledger.Payment, from []ledger.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.payments[p.ID]
	if !ok {
		return fmt.Errorf("payment %s: %w", p.ID, ledger.ErrNotFound)
	}

	if !slices.Contains(from, stored.Status) {
		return fmt.Errorf("%w: payment %s is %s", ledger.ErrInvalidTransition, p.ID, stored.Status)
	}

	stored.Status = p.Status
	stored.PaidDate = cloneTime(p.PaidDate)
	stored.Method = p.Method
	stored.TransactionID = p.TransactionID
	stored.UpdatedAt = s.now().UTC()
	p.UpdatedAt = stored.UpdatedAt

	return nil
}

func (s *Store) UpdateRequest(_ context.Context, r *ledger.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[r.ID]
	if !ok {
		return fmt.Errorf("request %s: %w", r.ID, ledger.ErrNotFound)
	}

	if stored.Version != r.Version {
		return fmt.Errorf("%w: request %s is at version %d, not %d", ledger.ErrVersionConflict, r.ID, stored.Version, r.Version)
	}

	r.Version++
	s.requests[r.ID] = cloneRequest(r)

	return nil
}

func (s *Store) MarkOverdue(_ context.Context, now time.Time) ([]*ledger.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []*ledger.Payment

	for _, p := range s.payments {
		if p.Status != ledger.PaymentPending || !p.DueDate.Before(now) {
			continue
		}

		p.Status = ledger.PaymentOverdue
		p.UpdatedAt = s.now().UTC()
		changed = append(changed, clonePayment(p))
	}

	return changed, nil
}

func matchID(want, got *uuid.UUID) bool {
	if want == nil {
		return true
	}

	return got != nil && *got == *want
}
