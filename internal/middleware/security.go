// Package middleware provides HTTP middleware for CopyPasta.
// This includes security headers and other cross-cutting concerns.
package middleware

import (
	"net/http"
)

// SecurityHeaders returns middleware that adds security headers to
// responses. Clipboard contents are sensitive, so responses must never
// be cached, and the API has no business being framed.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Control referrer information
			w.Header().Set("Referrer-Policy", "no-referrer")

			// Prevent caching of clipboard data
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
			w.Header().Set("Pragma", "no-cache")

			next.ServeHTTP(w, r)
		})
	}
}
