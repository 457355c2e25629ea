package websocket

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one connected websocket participant. Events are queued on a
// buffered send channel and written by a single writer goroutine, so
// concurrent senders never interleave writes on the socket.
type Client struct {
	handle string
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// newClient creates a Client for the given handle and connection.
//
// Precondition: handle must be non-empty; bufferSize > 0.
func newClient(handle string, conn *websocket.Conn, bufferSize int, logger *zap.Logger) *Client {
	return &Client{
		handle: handle,
		conn:   conn,
		send:   make(chan []byte, bufferSize),
		logger: logger,
	}
}

// Handle returns the client's connection handle.
func (c *Client) Handle() string {
	return c.handle
}

// enqueue queues data for delivery to the client.
//
// Postcondition: Data is queued, or an error if the client is closed or
// its buffer is full. A slow client loses events rather than blocking
// the room.
func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client %s is closed", c.handle)
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("client %s send buffer full", c.handle)
	}
}

// close marks the client closed and closes the send channel, which
// terminates the write pump. Safe to call multiple times.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump drains the send channel onto the socket until the channel
// is closed or a write fails. Runs in its own goroutine per client.
func (c *Client) writePump(writeTimeout time.Duration) {
	defer func() {
		_ = c.conn.Close()
	}()

	for data := range c.send {
		if writeTimeout > 0 {
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.logger.Debug("client write failed",
				zap.String("handle", c.handle),
				zap.Error(err),
			)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
}

// readPump reads client messages and hands each to dispatch. It blocks
// until the connection drops, then returns so the acceptor can clean
// the client up.
func (c *Client) readPump(dispatch func(handle string, raw []byte)) {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Debug("client disconnected",
				zap.String("handle", c.handle),
				zap.Error(err),
			)
			return
		}
		dispatch(c.handle, payload)
	}
}
