package httpx

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func statusOK() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeadersMiddleware(false)(statusOK()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leads", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeadersMiddleware_HSTS(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeadersMiddleware(true)(statusOK()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/leads", nil))

	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestCORSMiddleware_PreflightHeaders(t *testing.T) {
	h := CORSMiddleware([]string{"http://dash.test/"})(statusOK())

	req := httptest.NewRequest(http.MethodOptions, "/v1/chat", nil)
	req.Header.Set("Origin", "http://dash.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	assert.Equal(t, "Content-Type, X-Internal-Secret, X-Request-Id", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "X-Request-Id, Retry-After", rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	h := RequestSizeLimitMiddleware(1024)(statusOK())

	tests := []struct {
		name string
		size int
		want int
	}{
		{"under limit", 512, http.StatusOK},
		{"at limit", 1024, http.StatusOK},
		{"over limit", 2048, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(make([]byte, tt.size))))
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusRequestEntityTooLarge {
				assert.Contains(t, rec.Body.String(), "PAYLOAD_TOO_LARGE")
			}
		})
	}
}

func TestChain_FirstIsOutermost(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(statusOK(), mw("a"), mw("b"), mw("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}
