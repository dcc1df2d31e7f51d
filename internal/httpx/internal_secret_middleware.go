package httpx

import (
	"crypto/subtle"
	"net/http"
)

const InternalSecretHeader = "X-Internal-Secret"

// CheckInternalSecret reports whether the request carries the shared job
// secret. An empty secret disables the check.
func CheckInternalSecret(r *http.Request, secret string) bool {
	if secret == "" {
		return true
	}
	got := r.Header.Get(InternalSecretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}

// InternalSecretMiddleware rejects requests without the job secret with 401.
func InternalSecretMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !CheckInternalSecret(r, secret) {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid internal secret", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
