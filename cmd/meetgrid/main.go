package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/meetgrid/internal/application"
	"github.com/example/meetgrid/internal/config"
	httptransport "github.com/example/meetgrid/internal/http"
	"github.com/example/meetgrid/internal/logging"
	"github.com/example/meetgrid/internal/persistence/sqlite"
	"github.com/example/meetgrid/internal/realtime"
	"github.com/example/meetgrid/internal/registry"
	"github.com/example/meetgrid/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New(slog.LevelInfo).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	go sweepExpiredRooms(ctx, a.rooms, cfg.SweepInterval)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Live connections inherit this context and close when it ends.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("meetgrid API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// app is the wired service graph.
type app struct {
	handler http.Handler
	storage *sqlite.Storage
	cache   *session.RedisCache
	peers   *registry.Registry
	rooms   *application.RoomService
	logger  *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, err
	}

	a := &app{storage: storage, peers: registry.New(), logger: logger}

	var cache application.IdentityCache
	if cfg.RedisURL != "" {
		a.cache, err = session.NewRedisCache(cfg.RedisURL, 0)
		if err != nil {
			_ = storage.Close()
			return nil, err
		}
		cache = a.cache
		logger.Info("identity cache enabled")
	}

	identities := application.NewIdentityServiceWithLogger(storage, cache, nil, nil, time.Now, logger)
	a.rooms = application.NewRoomServiceWithLogger(storage, a.peers, nil, time.Now, cfg.RoomTTL, logger)
	edits := application.NewSyncServiceWithLogger(storage, a.peers, logger)

	hub := realtime.NewHub(a.peers, realtime.NewDispatcher(edits, logger), realtime.HubConfig{
		HeartbeatInterval: cfg.HeartbeatInterval,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
	}, logger)

	cookies := httptransport.CookieConfig{Secure: cfg.CookieSecure}
	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(identities, cookies, logger),
		Rooms:     httptransport.NewRoomHandler(a.rooms, identities, cookies, logger),
		WebSocket: httptransport.NewWebSocketHandler(a.rooms, hub, cfg.FrontendURL, logger),
		Health:    httptransport.NewHealthHandler(storage, logger),
		Identity:  httptransport.ResolveIdentity(identities, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.CORS(cfg.FrontendURL),
		},
	})
	return a, nil
}

// Close releases the store and the cache.
func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close identity cache", "error", err)
		}
	}
	if err := a.storage.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

type expiredRoomSweeper interface {
	SweepExpired(ctx context.Context) ([]string, error)
}

// sweepExpiredRooms deletes expired rooms every interval until ctx ends.
func sweepExpiredRooms(ctx context.Context, rooms expiredRoomSweeper, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Errors are logged by the service.
			_, _ = rooms.SweepExpired(ctx)
		}
	}
}
