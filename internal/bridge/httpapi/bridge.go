// Package httpapi implements the bridge's HTTP surface: synchronous REST
// endpoints that issue a message on the acting username's TCP session
// and either return immediately (fire-and-forget) or wait for a
// correlated push frame with a timeout.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/seednode-labs/quiznight/internal/auth"
	"github.com/seednode-labs/quiznight/internal/bridge/session"
	"github.com/seednode-labs/quiznight/internal/bridge/sse"
	"github.com/seednode-labs/quiznight/internal/obslog"
)

// CorrelationTimeout bounds how long a correlated endpoint waits for its
// matching push frame before giving up.
const CorrelationTimeout = 5 * time.Second

// Bridge wires the session pool, SSE fan-out, and user store behind the
// HTTP surface.
type Bridge struct {
	Pool    *session.Pool
	Fanout  *sse.Fanout
	Store   auth.Store
	Tokens  *auth.TokenSigner
	Log     *obslog.Logger
	Version string
}

func New(pool *session.Pool, fanout *sse.Fanout, store auth.Store, tokens *auth.TokenSigner, log *obslog.Logger) *Bridge {
	return &Bridge{Pool: pool, Fanout: fanout, Store: store, Tokens: tokens, Log: log, Version: "0.1.0"}
}

// Routes registers every handler onto mux.
func (b *Bridge) Routes(mux *httprouter.Router) {
	mux.GET("/healthz", b.handleHealthz)
	mux.GET("/version", b.handleVersion)
	mux.GET("/robots.txt", b.handleRobots)

	mux.POST("/api/signup", b.handleSignup)
	mux.POST("/api/login", b.handleLogin)
	mux.GET("/api/me", b.handleMe)
	mux.GET("/api/scoreboard", b.handleScoreboard)
	mux.POST("/api/awardWinner", b.handleAwardWinner)

	mux.POST("/api/connect", b.handleConnect)
	mux.POST("/api/listGames", b.handleListGames)
	mux.POST("/api/createGame", b.handleCreateGame)
	mux.POST("/api/joinGame", b.handleJoinGame)
	mux.POST("/api/startGame", b.fireAndForget("START_GAME"))
	mux.POST("/api/exitGame", b.fireAndForget("EXIT_GAME"))
	mux.POST("/api/sendAnswer", b.handleSendAnswer)
	mux.POST("/api/nextQuestion", b.fireAndForget("NEXT_QUESTION"))
	mux.POST("/api/endGame", b.fireAndForget("END_GAME"))
	mux.POST("/api/submitQuestion", b.handleSubmitQuestion)
	mux.POST("/api/chat", b.handleChat)

	mux.GET("/api/events", b.handleEvents)
	mux.GET("/api/games/:pin/qr", b.handleQR)
}

func readJSONBody(r *http.Request) (map[string]any, error) {
	if r.Body == nil {
		return map[string]any{}, nil
	}
	defer r.Body.Close()

	var body map[string]any
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		if err.Error() == "EOF" {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// resolveUsername finds the acting username for every endpoint other
// than signup/login/me, in order: body `username` field (string, or
// `{username:string}`), then X-Username header, then token subject.
func (b *Bridge) resolveUsername(r *http.Request, body map[string]any) string {
	if v, ok := body["username"]; ok {
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case map[string]any:
			if u, ok := t["username"].(string); ok && u != "" {
				return u
			}
		}
	}

	if h := r.Header.Get("X-Username"); h != "" {
		return h
	}

	if tok := bearerToken(r); tok != "" {
		if userID, err := b.Tokens.Verify(tok); err == nil {
			if u, ok := b.Store.UserByID(userID); ok {
				return u.Username
			}
		}
	}

	return ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// requireSession looks up (never creates) the connected session for
// username; callers needing the fire-and-forget/correlated endpoints
// must already have called /api/connect.
func (b *Bridge) requireSession(w http.ResponseWriter, username string) (*session.Session, bool) {
	if username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Missing username"})
		return nil, false
	}
	sess, ok := b.Pool.Get(username)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Not connected"})
		return nil, false
	}
	return sess, true
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), CorrelationTimeout)
}
