package http

import (
	"context"
	"log/slog"
	"net/http"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store     pinger
	responder responder
	logger    *slog.Logger
}

func NewHealthHandler(store pinger, logger *slog.Logger) *HealthHandler {
	base := defaultLogger(logger)
	return &HealthHandler{store: store, responder: newResponder(base), logger: base}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.store == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := h.store.Ping(r.Context()); err != nil {
		handlerLogger(r.Context(), h.logger, "HealthHandler", "Check").ErrorContext(r.Context(), "store ping failed", "error", err)
		h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
