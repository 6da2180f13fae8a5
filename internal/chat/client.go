package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum frame size allowed from peer.
	sendBufferSize = 256
)

// Client is a middleman between one user's websocket connection and the rest
// of the server. It is the opaque connection handle stored in Presence.
type Client struct {
	userID string
	conn   *websocket.Conn
	log    zerolog.Logger

	// Buffered channel of outbound frames, drained by writePump.
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(userID string, conn *websocket.Conn, log zerolog.Logger) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		log:    log.With().Str("user", userID).Logger(),
		send:   make(chan []byte, sendBufferSize),
	}
}

// UserID returns the user this connection authenticated as.
func (c *Client) UserID() string {
	return c.userID
}

// Enqueue serializes env and queues it for delivery without blocking. It
// returns false when the connection is already closed or its buffer is full;
// callers treat that as the offline case.
func (c *Client) Enqueue(env *Envelope) bool {
	payload, err := json.Marshal(env)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close stops the write pump. Safe to call more than once; Enqueue after
// close is a silent no-op.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump pumps inbound frames from the websocket into the session until
// the connection drops, then drives the session's teardown.
func (c *Client) readPump(sess *Session) {
	defer func() {
		sess.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug().Err(err).Msg("websocket read failed")
			}
			break
		}
		sess.HandleFrame(raw)
	}
}

// writePump pumps queued frames to the websocket connection and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			// Flush any queued frames in the same write to save syscalls.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
