package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/meetgrid/internal/application"
	"github.com/example/meetgrid/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("participant"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewIdentityService builds an identity service whose participant ids come
// from the factory generator and whose tokens are "token-<n>".
func (f *ServiceFactory) NewIdentityService(store application.ParticipantStore, cache application.IdentityCache) *application.IdentityService {
	tokens := NewIDGenerator("token")
	return application.NewIdentityServiceWithLogger(store, cache, f.IDGenerator.NextFunc(), tokens.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewRoomService builds a room service. A nil idGenerator uses the
// production generator.
func (f *ServiceFactory) NewRoomService(store persistence.Store, peers application.Peers, idGenerator func(seed string) string, ttl time.Duration) *application.RoomService {
	return application.NewRoomServiceWithLogger(store, peers, idGenerator, f.Clock.NowFunc(), ttl, f.Logger)
}

// NewSyncService builds a sync service.
func (f *ServiceFactory) NewSyncService(store persistence.Store, peers application.Peers) *application.SyncService {
	return application.NewSyncServiceWithLogger(store, peers, f.Logger)
}
