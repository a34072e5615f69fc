package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// Decode reads the event carried by a ledger message.
func (m Message) Decode() (Event, error) {
	var ev Event
	if err := json.Unmarshal(m.Data, &ev); err != nil {
		return Event{}, fmt.Errorf("decoding %s event: %w", m.Event, err)
	}

	return ev, nil
}

// Subscriber is the client side of the Hub.
type Subscriber struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
}

func NewSubscriber(url string, header http.Header) *Subscriber {
	return &Subscriber{url: url, header: header, dialer: websocket.DefaultDialer}
}

// Subscribe joins channels and forwards every message to out until ctx is done or the
// connection drops. Messages sent while disconnected are lost; callers poll to catch up.
func (s *Subscriber) Subscribe(ctx context.Context, channels []string, out chan<- Message) error {
	wc, _, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", s.url, err)
	}
	defer wc.Close()

	for _, ch := range channels {
		if err := wc.WriteJSON(Command{Op: OpJoin, Channel: ch}); err != nil {
			return fmt.Errorf("joining %s: %w", ch, err)
		}
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			wc.Close()
		case <-done:
		}
	}()

	for {
		var m Message
		if err := wc.ReadJSON(&m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("reading message: %w", err)
		}

		select {
		case out <- m:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
