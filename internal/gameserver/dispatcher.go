package gameserver

import (
	"errors"
	"io"

	"github.com/seednode-labs/quiznight/internal/gameengine"
	"github.com/seednode-labs/quiznight/internal/obslog"
	"github.com/seednode-labs/quiznight/internal/protocol"
)

// Dispatcher runs once per connection: it owns the frame codec for that
// socket, feeds every decoded frame to the Machine, and routes the
// resulting reply/broadcast. It never terminates the connection on a
// malformed or unauthorized message — only on EOF, a transport error, or
// an HTTP-probe prefix.
type Dispatcher struct {
	machine *gameengine.Machine
	conns   *ConnectionSet
	log     *obslog.Logger
}

func NewDispatcher(machine *gameengine.Machine, conns *ConnectionSet, log *obslog.Logger) *Dispatcher {
	return &Dispatcher{machine: machine, conns: conns, log: log}
}

// Run blocks, reading frames off c until the connection ends. It always
// deregisters c before returning, regardless of how it ended.
func (d *Dispatcher) Run(c *Connection) {
	d.conns.add(c)
	go c.writePump()

	defer func() {
		d.conns.remove(c.ID)
		c.Close()
	}()

	for {
		var msg map[string]any
		err := c.scanner.Next(&msg)
		if err != nil {
			if errors.Is(err, protocol.ErrHTTPProbe) {
				d.log.Logf("DISPATCH: closing %s, sent an HTTP request line", c.ID)
				return
			}
			if !errors.Is(err, io.EOF) {
				d.log.Logf("DISPATCH: read error on %s: %v", c.ID, err)
			}
			return
		}

		outcome := d.machine.Handle(c.State, msg)

		if outcome.Reply != nil {
			c.Enqueue(outcome.Reply)
		}
		if outcome.Broadcast != nil {
			d.conns.Broadcast(outcome.Broadcast.Pin, outcome.Broadcast.Frame)
		}
	}
}
