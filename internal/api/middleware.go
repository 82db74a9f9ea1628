/**
 * @description
 * Shared-secret gates for the machine-facing routes. The SMS automation sends its
 * secret in a header; the admin API and the cron trigger carry it in the query string.
 */
package api

import (
	"crypto/subtle"
	"log"
	"net/http"
)

// HeaderSecretMiddleware rejects requests whose header does not carry the secret.
// An empty configured secret rejects everything.
func HeaderSecretMiddleware(header, secret string) func(http.Handler) http.Handler {
	return secretMiddleware(secret, func(r *http.Request) string { return r.Header.Get(header) })
}

// QuerySecretMiddleware rejects requests whose query parameter does not carry the secret.
func QuerySecretMiddleware(param, secret string) func(http.Handler) http.Handler {
	return secretMiddleware(secret, func(r *http.Request) string { return r.URL.Query().Get(param) })
}

func secretMiddleware(secret string, extract func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !secretMatches(secret, extract(r)) {
				log.Printf("level=warn component=api msg=\"rejected request with bad secret\" path=%s remote=%s", r.URL.Path, r.RemoteAddr)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func secretMatches(expected, provided string) bool {
	if expected == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
