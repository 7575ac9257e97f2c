package httpapi

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/seednode-labs/quiznight/internal/auth"
)

// publicUser strips PasswordHash before a User crosses the wire.
func publicUser(u *auth.User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"wins":      u.Wins,
		"createdAt": u.CreatedAt,
	}
}

func (b *Bridge) handleSignup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := readJSONBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Invalid JSON body"})
		return
	}

	username, _ := body["username"].(string)
	password, _ := body["password"].(string)
	if username == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "username and password are required"})
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Failed to hash password"})
		return
	}

	u, err := b.Store.CreateUser(username, hash)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			writeJSON(w, http.StatusConflict, map[string]any{"ok": false, "error": "Username already exists"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Failed to create user"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "user": publicUser(u)})
}

func (b *Bridge) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := readJSONBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Invalid JSON body"})
		return
	}

	username, _ := body["username"].(string)
	password, _ := body["password"].(string)

	u, ok := b.Store.UserByUsername(username)
	if !ok || !auth.VerifyPassword(u.PasswordHash, password) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "Invalid username or password"})
		return
	}

	token, err := b.Tokens.Issue(u.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Failed to issue token"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "token": token, "user": publicUser(u)})
}

func (b *Bridge) handleMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	tok := bearerToken(r)
	if tok == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "Missing bearer token"})
		return
	}

	userID, err := b.Tokens.Verify(tok)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "Invalid or expired token"})
		return
	}

	u, ok := b.Store.UserByID(userID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "User not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": publicUser(u)})
}

func (b *Bridge) handleScoreboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	const topN = 10
	leaders := b.Store.Top(topN)

	out := make([]map[string]any, 0, len(leaders))
	for _, u := range leaders {
		out = append(out, map[string]any{"username": u.Username, "wins": u.Wins})
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "leaders": out})
}

// handleAwardWinner records a win for the named user; it does not touch
// a TCP session, since the scoreboard store is a bridge-side concern,
// not a game-server one.
func (b *Bridge) handleAwardWinner(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := readJSONBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Invalid JSON body"})
		return
	}

	username := b.resolveUsername(r, body)
	if username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Missing username"})
		return
	}

	if err := b.Store.IncrementWins(username); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "User not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Failed to record win"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
