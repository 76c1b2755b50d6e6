package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

type RouterConfig struct {
	Auth      *AuthHandler
	Rooms     *RoomHandler
	WebSocket *WebSocketHandler
	Health    *HealthHandler
	// Identity resolves the auth cookie for every /api route.
	Identity func(http.Handler) http.Handler
	// Middleware wraps the whole router, outermost first.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	if cfg.Identity != nil {
		api.Use(mux.MiddlewareFunc(cfg.Identity))
	}

	if cfg.Auth != nil {
		api.Methods(http.MethodPost).Path("/auth").HandlerFunc(cfg.Auth.Authenticate)
	}
	if cfg.Rooms != nil {
		api.Methods(http.MethodPost).Path("/rooms").HandlerFunc(cfg.Rooms.Create)
		api.Methods(http.MethodGet).Path("/rooms/{room_uid}").HandlerFunc(cfg.Rooms.Get)
		api.Methods(http.MethodDelete).Path("/rooms/{room_uid}").HandlerFunc(cfg.Rooms.Delete)
	}
	if cfg.WebSocket != nil {
		api.Methods(http.MethodGet).Path("/ws/{room_uid}").HandlerFunc(cfg.WebSocket.Connect)
	}
	if cfg.Health != nil {
		r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(cfg.Health.Check)
	}

	var handler http.Handler = r
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}
