package httpx

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-Id"

// validRequestID bounds what a caller may inject into logs and responses.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// RequestIDMiddleware keeps a well-formed caller id or assigns a UUID, echoes
// it in the response and exposes it through RequestIDFrom.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), id)))
	})
}
