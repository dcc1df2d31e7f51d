package chat

import (
	"errors"
	"net/http"

	"cvdwbi/internal/httpx"
)

type HTTPHandler struct {
	svc *Service
}

func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

type askRequest struct {
	Query string `json:"query" validate:"required,notblank,min=2,max=500"`
}

// Ask handles POST /v1/chat
func (h *HTTPHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_JSON", "request body must be a JSON object with a query", nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request", details)
		return
	}

	ans, err := h.svc.Ask(r.Context(), req.Query)
	switch {
	case errors.Is(err, ErrDataNotReady):
		w.Header().Set("Retry-After", "60")
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "NOT_READY", "lead data for today is being collected, try again later", nil)
	case errors.Is(err, ErrEmptyQuery):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "query is required", nil)
	case err != nil:
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	default:
		httpx.JSONSuccess(w, r, ans, nil)
	}
}
