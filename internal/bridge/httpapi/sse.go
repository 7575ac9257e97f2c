package httpapi

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// handleEvents streams every frame the username's BridgeSession observes
// as a Server-Sent-Events feed, flushing after each write and closing
// when the client disconnects.
func (b *Bridge) handleEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	username := r.URL.Query().Get("username")
	if username == "" {
		username = r.Header.Get("X-Username")
	}
	if username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "Missing username"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "Streaming unsupported"})
		return
	}

	ch, unregister := b.Fanout.Register(username)
	defer unregister()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
