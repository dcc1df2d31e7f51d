package main

import (
	"context"
	"net/http"
	"time"

	"cvdwbi/internal/chat"
	"cvdwbi/internal/dailycache"
	"cvdwbi/internal/httpx"
	"cvdwbi/internal/report"
)

type handlers struct {
	cache  *dailycache.HTTPHandler
	report *report.HTTPHandler
	chat   *chat.HTTPHandler
	// ready reports whether the backing store answers.
	ready func(ctx context.Context) error
	// internalSecret guards the /internal job routes. Empty disables the check.
	internalSecret string
}

func newRouter(h handlers) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.HandleFunc("GET /v1/cache/status", h.cache.Status)
	router.HandleFunc("GET /v1/cache/extra-fields", h.cache.ExtraFields)
	router.HandleFunc("GET /v1/leads", h.cache.Leads)

	router.HandleFunc("GET /v1/reports/summary", h.report.Summary)
	router.HandleFunc("GET /v1/reports/breakdown", h.report.Breakdown)
	router.HandleFunc("GET /v1/reports/overview", h.report.Overview)

	router.HandleFunc("POST /v1/chat", h.chat.Ask)

	internal := httpx.InternalSecretMiddleware(h.internalSecret)
	router.Handle("POST /internal/jobs/collect", internal(http.HandlerFunc(h.cache.Collect)))
	router.Handle("POST /internal/jobs/cleanup", internal(http.HandlerFunc(h.cache.Cleanup)))

	return router
}
