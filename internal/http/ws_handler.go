package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/meetgrid/internal/application"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type roomLookup interface {
	RoomExists(ctx context.Context, uid string) (bool, error)
}

// liveChannel serves one upgraded connection until it ends.
type liveChannel interface {
	Serve(ctx context.Context, conn *websocket.Conn, room, participant string)
}

type WebSocketHandler struct {
	rooms     roomLookup
	hub       liveChannel
	upgrader  websocket.Upgrader
	responder responder
	logger    *slog.Logger
}

// NewWebSocketHandler accepts upgrades from frontendOrigin only. Requests
// without an Origin header are accepted.
func NewWebSocketHandler(rooms roomLookup, hub liveChannel, frontendOrigin string, logger *slog.Logger) *WebSocketHandler {
	base := defaultLogger(logger)
	allowed := normalizeOrigin(frontendOrigin)
	return &WebSocketHandler{
		rooms: rooms,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || normalizeOrigin(origin) == allowed
			},
		},
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *WebSocketHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "WebSocketHandler", operation, attrs...)
}

func (h *WebSocketHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil || h.hub == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomUID := mux.Vars(r)["room_uid"]
	participant, ok := ParticipantFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "Connect", "room_id", roomUID, "error_kind", "unauthenticated").InfoContext(r.Context(), "anonymous websocket request rejected")
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingIdentity)
		return
	}

	logger := h.log(r.Context(), "Connect", "participant_id", participant, "room_id", roomUID)

	exists, err := h.rooms.RoomExists(r.Context(), roomUID)
	if err != nil {
		logger.ErrorContext(r.Context(), "room lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !exists {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the failure response.
		logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	h.hub.Serve(r.Context(), conn, roomUID, participant)
}

func normalizeOrigin(origin string) string {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return strings.ToLower(origin)
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}
