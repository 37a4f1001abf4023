package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/liskl/copypasta/internal/model"
)

// pasteRequest is the JSON body of POST /api/paste.
type pasteRequest struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Metadata string `json:"metadata,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// entryResponse wraps an entry (or its absence) in the status envelope
// shared by the clipboard read endpoints and the poll endpoint.
type entryResponse struct {
	Status  string       `json:"status"`
	Version int64        `json:"version"`
	Data    *model.Entry `json:"data"`
}

// paste validates a clipboard submission, stores it, and publishes the
// new version so sleeping polls for this user wake up.
func (h *Handler) paste(w http.ResponseWriter, r *http.Request) {
	// Bound the body read; base64 images run larger than the rich
	// limit, so the cap leaves room above it.
	r.Body = http.MaxBytesReader(w, r.Body, 4*h.config.Clipboard.RichSizeLimit)

	var req pasteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := model.ValidateContent(req.Type, req.Content, h.config.Clipboard.RichSizeLimit); err != nil {
		if model.IsTooLarge(err) {
			h.jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		} else {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	// Metadata is an opaque client convention; default to an empty
	// JSON object, never parse it.
	metadata := req.Metadata
	if metadata == "" {
		metadata = "{}"
	}

	uid := userID(r)
	_, version, err := h.store.InsertEntry(uid, req.Type, req.Content, metadata, req.ClientID)
	if err != nil {
		h.serverError(w, "inserting entry", err)
		return
	}

	h.notifier.Publish(uid, version)
	h.metrics.PastesTotal.WithLabelValues(req.Type).Inc()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"version": version,
	})
}

// getClipboard returns the current entry without waiting.
// Also serves the legacy /api/data alias.
func (h *Handler) getClipboard(w http.ResponseWriter, r *http.Request) {
	entry, err := h.store.GetCurrent(userID(r))
	if err != nil {
		if errors.Is(err, model.ErrClipboardEmpty) {
			h.writeJSON(w, http.StatusOK, map[string]string{"status": "empty"})
			return
		}
		h.serverError(w, "reading current entry", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   entry,
	})
}

// getHistory returns up to limit entries newest-first.
// A missing limit means "as much as retained"; a malformed or
// non-positive limit is a 400; an oversized one is clamped.
func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.config.Clipboard.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.store.GetHistory(userID(r), limit)
	if err != nil {
		h.serverError(w, "reading history", err)
		return
	}
	if entries == nil {
		entries = []*model.Entry{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   entries,
	})
}
