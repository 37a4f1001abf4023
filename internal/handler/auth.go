package handler

import (
	"net/http"

	"github.com/liskl/copypasta/internal/model"
)

// register creates a new account from form fields and logs it in.
// Success answers 302 to / with a fresh session cookie, matching the
// browser form flow; API clients just keep the cookie.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.jsonError(w, "invalid form data", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	id, err := h.store.CreateUser(username, password)
	if err != nil {
		switch {
		case model.IsConflict(err):
			h.jsonError(w, "username already taken", http.StatusConflict)
		case model.IsValidation(err):
			h.jsonError(w, err.Error(), http.StatusBadRequest)
		default:
			h.serverError(w, "creating user", err)
		}
		return
	}

	h.issueSessionAndRedirect(w, r, id)
}

// login verifies form credentials and issues a session.
// Failure is a uniform 401 regardless of whether the user exists.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.jsonError(w, "invalid form data", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	id, err := h.store.VerifyCredentials(username, password)
	if err != nil {
		if model.IsUnauthorized(err) {
			h.jsonError(w, "invalid credentials", http.StatusUnauthorized)
		} else {
			h.serverError(w, "verifying credentials", err)
		}
		return
	}

	h.issueSessionAndRedirect(w, r, id)
}

// logout revokes the current session and clears the cookie.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.sessions.CookieName()); err == nil {
		h.sessions.Revoke(cookie.Value)
	}
	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// issueSessionAndRedirect binds a new session to userID, sets the
// cookie, and sends the browser back to the main page.
func (h *Handler) issueSessionAndRedirect(w http.ResponseWriter, r *http.Request, userID int64) {
	value, err := h.sessions.Issue(userID)
	if err != nil {
		h.serverError(w, "issuing session", err)
		return
	}
	h.sessions.SetCookie(w, value)
	http.Redirect(w, r, "/", http.StatusFound)
}
