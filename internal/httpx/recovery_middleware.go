package httpx

import (
	"net/http"
	"runtime/debug"

	"cvdwbi/internal/platform/logx"
)

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logx.Error().
					Str("request_id", RequestIDFrom(r)).
					Interface("panic", err).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				var wroteHeader bool
				if rw, ok := w.(*responseWriter); ok {
					wroteHeader = rw.wroteHeader()
				}

				if !wroteHeader {
					JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
				}
			}
		}()
		next.ServeHTTP(w, r)
	})
}
