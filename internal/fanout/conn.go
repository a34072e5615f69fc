package fanout

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrJamesThe3rd/condo/internal/actor"
)

var connIDs atomic.Int64

type conn struct {
	id    int64
	wc    *websocket.Conn
	send  chan []byte
	cfg   HubConfig
	actor actor.Actor
	known bool // actor was resolved by the gateway
}

func newConn(wc *websocket.Conn, cfg HubConfig, a actor.Actor, known bool) *conn {
	return &conn{
		id:    connIDs.Add(1),
		wc:    wc,
		send:  make(chan []byte, cfg.SendBuffer),
		cfg:   cfg,
		actor: a,
		known: known,
	}
}

// mayJoin keeps user channels private to their user. Managers see every channel.
func (c *conn) mayJoin(channel string) bool {
	if !strings.HasPrefix(channel, userChannelPrefix) {
		return true
	}

	if !c.known {
		return false
	}

	return c.actor.Manager() || channel == UserChannel(c.actor.ID)
}

func (c *conn) readLoop(h *Hub) error {
	for {
		_, data, err := c.wc.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return fmt.Errorf("reading command: %w", err)
			}

			return nil // client disconnected
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			return fmt.Errorf("decoding command: %w", err)
		}

		h.handle(c, cmd)
	}
}

func (c *conn) writeLoop() {
	t := time.NewTicker(c.cfg.PingInterval)
	defer t.Stop()
	defer c.wc.Close()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				c.wc.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
				c.wc.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

				return
			}

			c.wc.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))

			if err := c.wc.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-t.C:
			c.wc.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))

			if err := c.wc.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
