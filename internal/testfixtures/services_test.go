package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/meetgrid/internal/registry"
)

func TestServiceFactoryBuildsWiredServices(t *testing.T) {
	factory := NewServiceFactory()
	store := NewSQLiteStore(t)
	peers := registry.New()

	identities := factory.NewIdentityService(store, nil)
	identity, err := identities.Signup(context.Background())
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if identity.ParticipantUID != "participant-1" || identity.Token != "token-1" {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	rooms := factory.NewRoomService(store, peers, NewRoomUIDs("ROOM").Generate, time.Hour)
	SeedRoom(t, store, RoomFixture{UID: "SEED", Owner: identity.ParticipantUID, OwnerName: "Ada"})
	view, err := rooms.GetRoom(context.Background(), "SEED", identity.ParticipantUID)
	if err != nil {
		t.Fatalf("GetRoom returned error: %v", err)
	}
	if !view.IsOwner || view.UserName != "Ada" {
		t.Fatalf("unexpected view: %+v", view.View)
	}
}
