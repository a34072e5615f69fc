package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/fanout"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

//go:generate mockgen -source=client.go -destination=client_mock.go -package=reconcile
type Fetcher interface {
	RequestAggregate(ctx context.Context, requestID uuid.UUID) (ledger.Aggregate, error)
}

// Source delivers push messages until ctx is done or the connection drops.
type Source interface {
	Subscribe(ctx context.Context, channels []string, out chan<- fanout.Message) error
}

// Client drives a Reconciler from push events and a polling backstop.
type Client struct {
	rec      *Reconciler
	fetcher  Fetcher
	source   Source
	interval time.Duration
	logger   *slog.Logger
	onChange func(ledger.Aggregate)
}

func NewClient(rec *Reconciler, fetcher Fetcher, source Source, interval time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		rec:      rec,
		fetcher:  fetcher,
		source:   source,
		interval: interval,
		logger:   logger,
		onChange: func(ledger.Aggregate) {},
	}
}

// OnChange registers fn to receive the view after every change. It must be set before Run.
func (c *Client) OnChange(fn func(ledger.Aggregate)) {
	c.onChange = fn
}

// Run keeps the view fresh until ctx is done. A failed fetch or a dropped push connection
// is logged and retried on the next tick.
func (c *Client) Run(ctx context.Context) error {
	msgs := make(chan fanout.Message, 64)

	go c.subscribe(ctx, msgs)

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("initial fetch failed", "request_id", c.rec.RequestID(), "error", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var wake <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.refresh(ctx)
		case <-wake:
			wake = nil

			if _, owed := c.rec.Owed(); owed {
				c.refresh(ctx)
			}
		case m := <-msgs:
			ev, err := m.Decode()
			if err != nil {
				c.logger.Warn("dropping undecodable message", "event", m.Event, "error", err)
				continue
			}

			switch c.rec.Apply(ev) {
			case Patch:
				c.onChange(c.rec.View())
			case Refetch:
				c.refresh(ctx)
			case Suppress:
				if wait, owed := c.rec.Owed(); owed && wake == nil {
					wake = time.After(wait)
				}
			case Ignore:
			}
		}
	}
}

// Refresh fetches the aggregate and merges it into the view.
func (c *Client) Refresh(ctx context.Context) error {
	agg, err := c.fetcher.RequestAggregate(ctx, c.rec.RequestID())
	if err != nil {
		return fmt.Errorf("fetch request aggregate: %w", err)
	}

	c.rec.Merge(agg)
	c.onChange(c.rec.View())

	return nil
}

func (c *Client) refresh(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		c.logger.Warn("refetch failed", "request_id", c.rec.RequestID(), "error", err)
	}
}

func (c *Client) subscribe(ctx context.Context, msgs chan<- fanout.Message) {
	channels := []string{fanout.RequestChannel(c.rec.RequestID())}

	for {
		err := c.source.Subscribe(ctx, channels, msgs)
		if ctx.Err() != nil {
			return
		}

		c.logger.Warn("push connection lost, polling until it is back", "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}
