package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

const (
	// writeWait bounds a single WriteMessage. A connection that cannot
	// drain a frame within it is torn down rather than blocking delivery.
	writeWait = 10 * time.Second

	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024

	// sendBufferSize is the per-connection outbound queue. A full buffer
	// marks the consumer as too slow and closes the connection; the
	// durable ledger plus reconciliation recovers anything dropped.
	sendBufferSize = 32
)

// Client is one live WebSocket session. All writes to the underlying
// connection go through a single write pump fed by a bounded channel, so a
// hung peer degrades only its own session.
type Client struct {
	id       string
	identity notify.Identity
	conn     *websocket.Conn

	send chan []byte
	done chan struct{}
	once sync.Once

	logger zerolog.Logger
}

func newClient(conn *websocket.Conn, identity notify.Identity, logger zerolog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger.With().Str("conn", id).Str("user", identity.String()).Logger(),
	}
}

// ID returns the process-unique connection identifier. Identifiers are
// never reused.
func (c *Client) ID() string { return c.id }

// Identity returns the identity bound to this connection.
func (c *Client) Identity() notify.Identity { return c.identity }

// Send enqueues an event for delivery. It never blocks: a closed session
// or a full buffer reports false, and a full buffer additionally tears the
// session down as a slow consumer.
func (c *Client) Send(event any) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal outbound event")
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn().Msg("Send buffer full, closing slow connection")
		c.shutdown()
		return false
	}
}

// shutdown closes the session exactly once. Closing the underlying
// connection unblocks the read pump, whose exit drives unbind.
func (c *Client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// writePump drains the send channel onto the wire and keeps the
// connection alive with pings. It is the only goroutine that writes.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug().Err(err).Msg("Write failed, closing connection")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump consumes inbound frames until the peer disconnects. The only
// frame a client may send is a read receipt; anything else is ignored.
func (c *Client) readPump(onReadReceipt func(notificationID string)) {
	defer c.shutdown()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("Unexpected close")
			}
			return
		}

		var receipt notify.ReadReceipt
		if err := json.Unmarshal(data, &receipt); err != nil || receipt.NotificationID == "" {
			c.logger.Debug().Msg("Ignoring malformed inbound frame")
			continue
		}
		onReadReceipt(receipt.NotificationID)
	}
}
