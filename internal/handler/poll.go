package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/liskl/copypasta/internal/model"
	"github.com/liskl/copypasta/internal/notify"
)

// poll implements GET /api/poll, the long-poll change feed.
//
// The request sleeps until the user's clipboard version advances past
// the caller's known version, the timeout elapses, or the client goes
// away. A change submitted by the caller itself (matched by client_id)
// must never round-trip back to its origin: the poll absorbs it and
// keeps waiting for a foreign change until the deadline.
func (h *Handler) poll(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// version defaults to 0: "give me the next change", which on a
	// non-empty clipboard returns immediately. That is the intended
	// new-client startup behavior.
	var known int64
	if raw := query.Get("version"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			h.jsonError(w, "invalid version", http.StatusBadRequest)
			return
		}
		known = parsed
	}

	timeout := h.config.Clipboard.PollDefaultTimeout
	if raw := query.Get("timeout"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.jsonError(w, "invalid timeout", http.StatusBadRequest)
			return
		}
		timeout = parsed
	}
	if timeout < 1 {
		timeout = 1
	}
	if timeout > h.config.Clipboard.PollMaxTimeout {
		timeout = h.config.Clipboard.PollMaxTimeout
	}

	clientID := query.Get("client_id")
	uid := userID(r)
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)

	latest, err := h.store.GetLatestVersion(uid)
	if err != nil {
		h.serverError(w, "reading latest version", err)
		return
	}

	for {
		if latest <= known {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				h.pollTimeout(w, latest)
				return
			}

			h.metrics.PollWaiters.Inc()
			waited, result := h.notifier.WaitForChange(r.Context(), uid, known, remaining)
			h.metrics.PollWaiters.Dec()

			switch result {
			case notify.Cancelled:
				// Client went away; nothing to write.
				h.metrics.PollsTotal.WithLabelValues(result.String()).Inc()
				return
			case notify.Timeout:
				h.pollTimeout(w, waited)
				return
			}
			latest = waited
		}

		entry, err := h.store.GetCurrent(uid)
		if err != nil {
			if errors.Is(err, model.ErrClipboardEmpty) {
				// The version advanced but the row is gone (evicted
				// or a fresh database); treat it as no change.
				h.pollTimeout(w, latest)
				return
			}
			h.serverError(w, "reading current entry", err)
			return
		}

		// Loop-back suppression: the change is the caller's own echo.
		// Absorb it and keep waiting for a foreign change.
		if clientID != "" && entry.ClientID == clientID {
			known = entry.Version
			if entry.Version > latest {
				latest = entry.Version
			}
			continue
		}

		h.metrics.PollsTotal.WithLabelValues("success").Inc()
		h.writeJSON(w, http.StatusOK, entryResponse{Status: "success", Version: entry.Version, Data: entry})
		return
	}
}

// pollTimeout writes the no-change response carrying the newest version
// the server knows about.
func (h *Handler) pollTimeout(w http.ResponseWriter, version int64) {
	h.metrics.PollsTotal.WithLabelValues("timeout").Inc()
	h.writeJSON(w, http.StatusOK, entryResponse{Status: "timeout", Version: version})
}
