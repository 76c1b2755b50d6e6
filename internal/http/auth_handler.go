package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/meetgrid/internal/application"
)

type AuthHandler struct {
	issuer    identityIssuer
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(identities identityService, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{
		issuer:    identityIssuer{identities: identities, cookies: cookies, now: time.Now},
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Authenticate makes sure the caller holds an identity cookie.
func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.issuer.identities == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	_, known := ParticipantFromContext(r.Context())
	uid, err := h.issuer.ensure(w, r)
	if err != nil {
		h.log(r.Context(), "Authenticate").ErrorContext(r.Context(), "identity issuance failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Authenticate", "participant_id", uid, "issued", !known).InfoContext(r.Context(), "caller authenticated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, struct{}{})
}
