// Package session implements the bridge's session pool: one logical TCP
// session per username toward the game server, with a decoded-message
// event stream and a type-indexed one-shot subscription facility used
// to correlate a synchronous HTTP call with an asynchronous push frame.
package session

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/seednode-labs/quiznight/internal/protocol"
)

// RegisterTimeout bounds how long Connect waits for REGISTER_OK before
// giving up.
const RegisterTimeout = 5

type subscription struct {
	msgType   string
	predicate func(map[string]any) bool
	ch        chan map[string]any
}

// Session is one username's logical connection to the game server.
type Session struct {
	Username string

	conn    net.Conn
	scanner *protocol.Scanner
	writer  *protocol.Writer

	mu        sync.Mutex
	connected bool

	subsMu sync.Mutex
	subs   []*subscription

	onFrame func(username string, frame map[string]any)
}

func newSession(username string, nc net.Conn, onFrame func(string, map[string]any)) *Session {
	s := &Session{
		Username:  username,
		conn:      nc,
		scanner:   protocol.NewScanner(nc),
		writer:    protocol.NewWriter(nc),
		connected: true,
		onFrame:   onFrame,
	}
	return s
}

// Send forwards msg onto the TCP session.
func (s *Session) Send(msg map[string]any) error {
	if err := s.writer.WriteFrame(msg); err != nil {
		s.markDisconnected()
		return err
	}
	return nil
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) markDisconnected() {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
}

// Close marks the session disconnected and tears down the underlying
// connection. Pending Await calls are not woken: each returns only when
// its own context is done.
func (s *Session) Close() {
	s.markDisconnected()
	_ = s.conn.Close()
}

// readLoop decodes frames off the connection for as long as it lives,
// dispatching each to any matching one-shot subscription and to the
// onFrame callback (the bridge's SSE fan-out).
func (s *Session) readLoop() {
	defer s.markDisconnected()

	for {
		var frame map[string]any
		if err := s.scanner.Next(&frame); err != nil {
			return
		}
		s.dispatch(frame)
	}
}

func (s *Session) dispatch(frame map[string]any) {
	msgType, _ := frame["type"].(string)

	s.subsMu.Lock()
	var matched []*subscription
	remaining := s.subs[:0]
	for _, sub := range s.subs {
		if sub.msgType == msgType && (sub.predicate == nil || sub.predicate(frame)) {
			matched = append(matched, sub)
			continue
		}
		remaining = append(remaining, sub)
	}
	s.subs = remaining
	s.subsMu.Unlock()

	for _, sub := range matched {
		select {
		case sub.ch <- frame:
		default:
		}
	}

	if s.onFrame != nil {
		s.onFrame(s.Username, frame)
	}
}

func (s *Session) subscribe(msgType string, predicate func(map[string]any) bool) *subscription {
	sub := &subscription{msgType: msgType, predicate: predicate, ch: make(chan map[string]any, 1)}
	s.subsMu.Lock()
	s.subs = append(s.subs, sub)
	s.subsMu.Unlock()
	return sub
}

func (s *Session) removeSubscription(target *subscription) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	remaining := s.subs[:0]
	for _, sub := range s.subs {
		if sub != target {
			remaining = append(remaining, sub)
		}
	}
	s.subs = remaining
}

// Await blocks until a frame of msgType matching predicate arrives, or
// ctx is done. Each call has its own independent timer.
func (s *Session) Await(ctx context.Context, msgType string, predicate func(map[string]any) bool) (map[string]any, error) {
	sub := s.subscribe(msgType, predicate)
	defer s.removeSubscription(sub)

	select {
	case frame := <-sub.ch:
		return frame, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out waiting for %s", msgType)
	}
}
