// Package handler provides HTTP request handlers for CopyPasta.
// These handlers implement the clipboard relay API: registration and
// login, paste submission, current/history reads, and the long-poll
// change feed, all scoped to the authenticated user.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/liskl/copypasta/internal/auth"
	"github.com/liskl/copypasta/internal/config"
	"github.com/liskl/copypasta/internal/metrics"
	"github.com/liskl/copypasta/internal/notify"
	"github.com/liskl/copypasta/internal/storage"
)

// Handler contains dependencies for HTTP handlers.
type Handler struct {
	config   *config.Config
	store    storage.Store
	notifier *notify.Notifier
	sessions *auth.Sessions
	metrics  *metrics.Metrics
}

// New creates a new Handler with the given dependencies.
func New(cfg *config.Config, store storage.Store, notifier *notify.Notifier, sessions *auth.Sessions, m *metrics.Metrics) *Handler {
	return &Handler{
		config:   cfg,
		store:    store,
		notifier: notifier,
		sessions: sessions,
		metrics:  m,
	}
}

// ctxKey is the private type for request-context keys.
type ctxKey int

// userIDKey carries the authenticated user id through the request context.
const userIDKey ctxKey = iota

// Routes returns the chi router with all API routes configured.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Unauthenticated endpoints
	r.Get("/health", h.healthCheck)
	r.Post("/register", h.register)
	r.Post("/login", h.login)

	// Authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/logout", h.logout)
		r.Post("/api/paste", h.paste)
		r.Get("/api/clipboard", h.getClipboard)
		r.Get("/api/clipboard/history", h.getHistory)
		r.Get("/api/poll", h.poll)

		// Legacy alias of /api/clipboard kept for old clients
		r.Get("/api/data", h.getClipboard)
	})

	return r
}

// requireAuth resolves the session cookie to a user id and stores it in
// the request context. Requests without a valid session get a 401; a
// client_id or any other request field is never trusted to imply
// identity.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.sessions.FromRequest(r)
		if err != nil {
			h.jsonError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID extracts the authenticated user id placed by requireAuth.
func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

// healthCheck returns a simple health status.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// jsonError sends a JSON error response: {"error": "..."}.
func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// serverError logs a storage failure with context and surfaces an
// opaque 500 to the caller.
func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	log.Printf("%s: %v", op, err)
	h.jsonError(w, "internal server error", http.StatusInternalServerError)
}
