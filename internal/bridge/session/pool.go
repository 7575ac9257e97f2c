package session

import (
	"context"
	"net"
	"sync"
	"time"
)

// Pool maps username to its BridgeSession, creating or replacing
// sessions lazily on Connect.
type Pool struct {
	mu             sync.Mutex
	sessions       map[string]*Session
	gameServerAddr string
	onFrame        func(username string, frame map[string]any)
	dial           func(addr string) (net.Conn, error)
}

func NewPool(gameServerAddr string, onFrame func(string, map[string]any)) *Pool {
	return &Pool{
		sessions:       make(map[string]*Session),
		gameServerAddr: gameServerAddr,
		onFrame:        onFrame,
		dial: func(addr string) (net.Conn, error) {
			return net.DialTimeout("tcp", addr, 5*time.Second)
		},
	}
}

// Get returns the existing connected session for username, if any.
func (p *Pool) Get(username string) (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[username]
	if !ok || !s.Connected() {
		return nil, false
	}
	return s, true
}

// Count reports how many sessions are currently tracked, connected or
// not, for diagnostics (e.g. the bridge's /healthz summary).
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Connect reuses a connected session, replaces a stale one, or creates
// a new one, then blocks for REGISTER_OK before returning success.
func (p *Pool) Connect(ctx context.Context, username string) (*Session, error) {
	if s, ok := p.Get(username); ok {
		return s, nil
	}

	nc, err := p.dial(p.gameServerAddr)
	if err != nil {
		return nil, err
	}

	sess := newSession(username, nc, p.onFrame)
	go sess.readLoop()

	if err := sess.Send(map[string]any{"type": "REGISTER", "username": username}); err != nil {
		sess.Close()
		return nil, err
	}

	registerCtx, cancel := context.WithTimeout(ctx, RegisterTimeout*time.Second)
	defer cancel()

	_, err = sess.Await(registerCtx, "REGISTER_OK", func(f map[string]any) bool {
		u, _ := f["username"].(string)
		return u == username
	})
	if err != nil {
		sess.Close()
		return nil, err
	}

	p.mu.Lock()
	if old, ok := p.sessions[username]; ok {
		old.Close()
	}
	p.sessions[username] = sess
	p.mu.Unlock()

	return sess, nil
}
