package testfixtures

import (
	"context"
	"sync"
)

// RecordingConn is a registry.Conn that keeps every message it is sent.
type RecordingConn struct {
	mu       sync.Mutex
	messages []any
	// Err, when set, is returned from Send instead of recording the message.
	Err error
}

// Send records message.
func (c *RecordingConn) Send(ctx context.Context, message any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.messages = append(c.messages, message)
	return nil
}

// Messages returns a copy of the recorded messages.
func (c *RecordingConn) Messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.messages))
	copy(out, c.messages)
	return out
}

// Reset discards recorded messages.
func (c *RecordingConn) Reset() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}
