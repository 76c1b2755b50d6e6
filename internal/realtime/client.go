package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultWriteTimeout = 10 * time.Second

// Client is the write side of one websocket connection. Writes are
// serialized and bounded by a deadline. Client implements registry.Conn.
type Client struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, writeTimeout time.Duration) *Client {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Client{conn: conn, writeTimeout: writeTimeout}
}

func (c *Client) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}

// Send writes message as a JSON text frame.
func (c *Client) Send(ctx context.Context, message any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return c.write(ctx, websocket.TextMessage, data)
}

func (c *Client) sendText(ctx context.Context, text string) error {
	return c.write(ctx, websocket.TextMessage, []byte(text))
}

func (c *Client) write(ctx context.Context, messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	if err := c.conn.SetWriteDeadline(c.deadline(ctx)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) control(ctx context.Context, messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteControl(messageType, data, c.deadline(ctx))
}

// ping sends a transport ping.
func (c *Client) ping(ctx context.Context) error {
	return c.control(ctx, websocket.PingMessage, nil)
}

// Close sends a close frame when possible and closes the connection. It is
// safe to call more than once.
func (c *Client) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	return c.conn.Close()
}
