package signal

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// wsConn is one media-gateway connection. Writes go through send and are
// flushed by writePump.
type wsConn struct {
	id   uint64
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

// TrySend queues a frame without blocking.
func (c *wsConn) TrySend(f []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
