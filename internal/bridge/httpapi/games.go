package httpapi

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/seednode-labs/quiznight/internal/bridge/session"
)

// buildFrame copies body onto a fresh message, overriding type and
// username, and filling pin from gameId when the client used that name
// instead (joinGame/exitGame/sendAnswer/nextQuestion/endGame all accept
// either).
func buildFrame(msgType, username string, body map[string]any) map[string]any {
	frame := make(map[string]any, len(body)+2)
	for k, v := range body {
		frame[k] = v
	}
	if _, hasPin := frame["pin"]; !hasPin {
		if gameID, ok := frame["gameId"]; ok {
			frame["pin"] = gameID
		}
	}
	delete(frame, "gameId")
	frame["type"] = msgType
	frame["username"] = username
	return frame
}

// fireAndForget issues msgType on the caller's session and replies
// immediately; any resulting broadcast or error arrives later over SSE.
func (b *Bridge) fireAndForget(msgType string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		body, err := readJSONBody(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Invalid JSON body"})
			return
		}

		username := b.resolveUsername(r, body)
		sess, ok := b.requireSession(w, username)
		if !ok {
			return
		}

		if err := sess.Send(buildFrame(msgType, username, body)); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Failed to reach game server"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// awaitReply races a wait on successType against a wait on ERROR, so a
// rejected CREATE_GAME/JOIN_GAME comes back immediately instead of
// exhausting the full correlation timeout.
func awaitReply(ctx context.Context, sess *session.Session, successType string, predicate func(map[string]any) bool) (map[string]any, error) {
	type result struct {
		frame map[string]any
		err   error
	}
	ch := make(chan result, 2)

	go func() {
		f, err := sess.Await(ctx, successType, predicate)
		ch <- result{f, err}
	}()
	go func() {
		f, err := sess.Await(ctx, "ERROR", nil)
		ch <- result{f, err}
	}()

	r := <-ch
	return r.frame, r.err
}

// envelope converts a game-server reply frame into the bridge's HTTP
// response body, folding every field but "type" alongside successKey
// ("success" for listGames/createGame, "ok" for joinGame).
func envelope(frame map[string]any, successKey string) map[string]any {
	body := make(map[string]any, len(frame)+1)
	for k, v := range frame {
		if k == "type" {
			continue
		}
		body[k] = v
	}
	body[successKey] = frame["type"] != "ERROR"
	return body
}

func (b *Bridge) handleConnect(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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

	ctx, cancel := withTimeout()
	defer cancel()

	if _, err := b.Pool.Connect(ctx, username); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Failed to connect: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (b *Bridge) handleListGames(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := readJSONBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Invalid JSON body"})
		return
	}

	username := b.resolveUsername(r, body)
	sess, ok := b.requireSession(w, username)
	if !ok {
		return
	}

	if err := sess.Send(buildFrame("LIST_GAMES", username, body)); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Failed to reach game server"})
		return
	}

	ctx, cancel := withTimeout()
	defer cancel()

	frame, err := sess.Await(ctx, "GAMES_LIST", nil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Timed out waiting for GAMES_LIST"})
		return
	}

	writeJSON(w, http.StatusOK, envelope(frame, "success"))
}

func (b *Bridge) handleCreateGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := readJSONBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Invalid JSON body"})
		return
	}

	username := b.resolveUsername(r, body)
	sess, ok := b.requireSession(w, username)
	if !ok {
		return
	}

	if err := sess.Send(buildFrame("CREATE_GAME", username, body)); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Failed to reach game server"})
		return
	}

	ctx, cancel := withTimeout()
	defer cancel()

	frame, err := awaitReply(ctx, sess, "GAME_CREATED", nil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Timed out waiting for GAME_CREATED"})
		return
	}

	status := http.StatusOK
	if frame["type"] == "ERROR" {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, envelope(frame, "success"))
}

func (b *Bridge) handleJoinGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := readJSONBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Invalid JSON body"})
		return
	}

	username := b.resolveUsername(r, body)
	sess, ok := b.requireSession(w, username)
	if !ok {
		return
	}

	frame := buildFrame("JOIN_GAME", username, body)
	requestedPin, _ := frame["pin"].(string)

	if err := sess.Send(frame); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Failed to reach game server"})
		return
	}

	ctx, cancel := withTimeout()
	defer cancel()

	reply, err := awaitReply(ctx, sess, "JOINED_GAME", func(f map[string]any) bool {
		if requestedPin == "" {
			return true
		}
		game, _ := f["game"].(map[string]any)
		pin, _ := game["pin"].(string)
		return pin == requestedPin
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Timed out waiting for JOINED_GAME"})
		return
	}

	status := http.StatusOK
	if reply["type"] == "ERROR" {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, envelope(reply, "ok"))
}

func (b *Bridge) handleSendAnswer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := readJSONBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Invalid JSON body"})
		return
	}

	username := b.resolveUsername(r, body)
	sess, ok := b.requireSession(w, username)
	if !ok {
		return
	}

	if err := sess.Send(buildFrame("ANSWER", username, body)); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Failed to reach game server"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (b *Bridge) handleSubmitQuestion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	b.fireAndForget("SUBMIT_QUESTION")(w, r, nil)
}

func (b *Bridge) handleChat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	b.fireAndForget("CHAT")(w, r, nil)
}
