package overdue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

// Marker moves late pending payments to overdue in one conditional write.
type Marker interface {
	MarkOverdue(ctx context.Context, now time.Time) ([]*ledger.Payment, error)
}

// SweptFunc receives the payments a sweep changed. It must not block for long.
type SweptFunc func(ctx context.Context, swept []*ledger.Payment)

type Sweeper struct {
	repo    Marker
	now     func() time.Time
	logger  *slog.Logger
	onSwept SweptFunc
}

type Option func(*Sweeper)

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

func NewSweeper(repo Marker, opts ...Option) *Sweeper {
	s := &Sweeper{repo: repo, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// OnSwept registers the hook run after a sweep that changed something.
func (s *Sweeper) OnSwept(fn SweptFunc) {
	s.onSwept = fn
}

// Sweep transitions every pending payment due before now to overdue. Running it again, or
// concurrently, changes nothing further.
func (s *Sweeper) Sweep(ctx context.Context) ([]*ledger.Payment, error) {
	swept, err := s.repo.MarkOverdue(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("sweep overdue payments: %w", err)
	}

	if len(swept) == 0 {
		return nil, nil
	}

	s.logger.Info("payments marked overdue", "count", len(swept))

	if s.onSwept != nil {
		s.onSwept(ctx, swept)
	}

	return swept, nil
}
