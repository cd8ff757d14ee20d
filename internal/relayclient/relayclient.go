// Package relayclient implements the client's relay WebSocket connection,
// grounded on original_source's src-tauri/src/sync/ws_client.rs: a writer
// task selecting over an outbound channel / ping ticker / shutdown signal,
// and a reader task fanning parsed frames out through a bounded broadcast
// channel. tokio::sync::broadcast has no direct Go equivalent, so incoming
// is modeled as a fixed set of per-subscriber buffered channels instead
// (fanout.go), with the same "slow subscriber may miss
// messages" tradeoff.
package relayclient

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/splenwilz/clipslot/internal/protocol"
)

const pingInterval = 30 * time.Second

// Client owns one relay connection: an outbound channel for frames to
// send, a shutdown signal, and a fan-out point for parsed incoming frames.
type Client struct {
	outgoing chan []byte
	shutdown chan struct{}
	fanout   *fanout
	conn     *websocket.Conn
	log      zerolog.Logger
}

// Connect dials wsURL with token on the query string and spawns the
// writer and reader tasks.
func Connect(wsURL, token string, log zerolog.Logger) (*Client, error) {
	log = log.With().Str("component", "relayclient").Logger()

	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), http.Header{})
	if err != nil {
		return nil, fmt.Errorf("websocket connect failed: %w", err)
	}

	c := &Client{
		outgoing: make(chan []byte, 64),
		shutdown: make(chan struct{}),
		fanout:   newFanout(),
		conn:     conn,
		log:      log,
	}

	go c.writeLoop()
	go c.readLoop()
	return c, nil
}

// Send marshals msg and queues it on the outbound channel for the writer
// loop to forward as a text frame.
func (c *Client) Send(msg any) error {
	payload, err := protocol.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal outbound message: %w", err)
	}
	select {
	case c.outgoing <- payload:
		return nil
	case <-c.shutdown:
		return fmt.Errorf("client is shutting down")
	}
}

// Subscribe returns a new receiver of parsed incoming frames.
func (c *Client) Subscribe() <-chan any {
	return c.fanout.subscribe()
}

// Disconnect initiates shutdown by closing the shutdown channel.
func (c *Client) Disconnect() {
	close(c.shutdown)
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.outgoing:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Warn().Err(err).Msg("write failed, closing connection")
				c.conn.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Warn().Err(err).Msg("ping failed, closing connection")
				c.conn.Close()
				return
			}

		case <-c.shutdown:
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.conn.Close()
			return
		}
	}
}

func (c *Client) readLoop() {
	defer c.fanout.closeAll()

	for {
		msgType, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Info().Err(err).Msg("relay read loop ended")
			return
		}
		if msgType != websocket.TextMessage {
			continue // pong frames and the like are ignored
		}

		parsed, err := protocol.Decode(raw)
		if err != nil {
			c.log.Warn().Err(err).Msg("failed to decode incoming relay frame")
			continue
		}
		c.fanout.publish(parsed)
	}
}
