package gameserver

import (
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/seednode-labs/quiznight/internal/gameengine"
	"github.com/seednode-labs/quiznight/internal/obslog"
)

// Listener accepts TCP connections on loopback, spawns a Dispatcher per
// connection, and owns the shared ConnectionSet the Broadcaster scans.
type Listener struct {
	Registry *gameengine.Registry
	Conns    *ConnectionSet

	machine    *gameengine.Machine
	dispatcher *Dispatcher
	log        *obslog.Logger
}

func NewListener(log *obslog.Logger) *Listener {
	reg := gameengine.NewRegistry()
	conns := NewConnectionSet()
	machine := gameengine.NewMachine(reg)

	return &Listener{
		Registry:   reg,
		Conns:      conns,
		machine:    machine,
		dispatcher: NewDispatcher(machine, conns, log),
		log:        log,
	}
}

// ListenAndServe binds addr and accepts connections until Accept returns
// an error, which it then returns. It has no shutdown hook of its own.
func (l *Listener) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	l.log.Logf("SERVE: game server listening on tcp://%s", addr)

	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}

		id := uuid.New().String()
		conn := newConnection(id, nc)
		l.log.Logf("CONN: accepted %s from %s", id, nc.RemoteAddr())

		go l.dispatcher.Run(conn)
	}
}

// StartSweeper runs sweepEnded on a timer in addition to the
// LIST_GAMES-triggered sweep.
func (l *Listener) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Registry.SweepEnded(time.Now())
			case <-stop:
				return
			}
		}
	}()
}
