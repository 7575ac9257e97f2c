package httpapi

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

func securityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")
}

func (b *Bridge) handleHealthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	securityHeaders(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                true,
		"time":              time.Now().UTC(),
		"connectedSessions": b.Pool.Count(),
	})
}

func (b *Bridge) handleVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	securityHeaders(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("quiznight-bridge v" + b.Version + "\n"))
}

func (b *Bridge) handleRobots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
}
