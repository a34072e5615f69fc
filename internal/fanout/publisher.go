package fanout

import (
	"context"
	"log/slog"
)

//go:generate mockgen -source=publisher.go -destination=publisher_mock.go -package=fanout
type Publisher interface {
	Publish(ctx context.Context, channel string, event EventType, payload any) error
}

// NopPublisher is used when no real-time channel is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, EventType, any) error { return nil }

// Emitter publishes ledger events on every channel they concern. Delivery is best effort:
// failures are logged and never returned to the producer.
type Emitter struct {
	pub    Publisher
	logger *slog.Logger
}

func NewEmitter(pub Publisher, logger *slog.Logger) *Emitter {
	if pub == nil {
		pub = NopPublisher{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Emitter{pub: pub, logger: logger}
}

func (e *Emitter) Emit(ctx context.Context, ev Event) {
	for _, ch := range Channels(ev) {
		if err := e.pub.Publish(ctx, ch, ev.Type, ev); err != nil {
			e.logger.Warn("failed to publish event",
				"event", ev.Type,
				"entity_id", ev.EntityID,
				"channel", ch,
				"error", err,
			)
		}
	}
}

// Publisher returns the underlying publisher for producers that address a single channel.
func (e *Emitter) Publisher() Publisher {
	return e.pub
}
