// Package gameserver wires the frame codec and the game engine state
// machine onto real TCP sockets: Connection, Dispatcher, Broadcaster,
// and the Listener that accepts and supervises them.
package gameserver

import (
	"net"
	"sync"

	"github.com/seednode-labs/quiznight/internal/gameengine"
	"github.com/seednode-labs/quiznight/internal/protocol"
)

// outboundBuffer bounds how far a slow reader can lag before its
// connection is treated as dead and dropped.
const outboundBuffer = 32

// Connection is one open TCP socket, with its own codec, its game-engine
// state (username, current PIN), and a single writer goroutine draining
// its outbound buffer so writes are never interleaved or reordered.
type Connection struct {
	ID    string
	State *gameengine.ConnState

	conn     net.Conn
	scanner  *protocol.Scanner
	writer   *protocol.Writer
	send     chan map[string]any
	closed   chan struct{}
	closeOne sync.Once
}

func newConnection(id string, nc net.Conn) *Connection {
	return &Connection{
		ID:      id,
		State:   &gameengine.ConnState{},
		conn:    nc,
		scanner: protocol.NewScanner(nc),
		writer:  protocol.NewWriter(nc),
		send:    make(chan map[string]any, outboundBuffer),
		closed:  make(chan struct{}),
	}
}

// Enqueue schedules frame for delivery on this connection. If the
// outbound buffer is full the connection is treated as failed and torn
// down; this must never block or affect other connections.
func (c *Connection) Enqueue(frame map[string]any) {
	select {
	case c.send <- frame:
	case <-c.closed:
	default:
		c.Close()
	}
}

// Close is idempotent and safe to call concurrently from multiple
// goroutines (Enqueue on buffer overflow, writePump on write error, and
// Dispatcher.Run's defer on reader exit can all race to close the same
// connection); sync.Once keeps only one of them actually closing it.
func (c *Connection) Close() {
	c.closeOne.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

// writePump is the sole goroutine allowed to write to conn; it exits
// (and closes the connection) on the first write error.
func (c *Connection) writePump() {
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.writer.WriteFrame(frame); err != nil {
				c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}
