package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/meetgrid/internal/persistence"
	"github.com/example/meetgrid/internal/persistence/sqlite"
	"github.com/example/meetgrid/internal/schedule"
)

// NewSQLiteStore opens a migrated store in a temporary directory. The store is
// closed when the test finishes.
func NewSQLiteStore(tb testing.TB) *sqlite.Storage {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "meetgrid.db")
	storage, err := sqlite.Open("file:" + path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() {
		_ = storage.Close()
	})

	if err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return storage
}

// SeedParticipant stores a participant whose token digest is "digest-<uid>".
func SeedParticipant(tb testing.TB, store persistence.Store, uid, defaultName string) persistence.Participant {
	tb.Helper()
	p := persistence.Participant{
		UID:         uid,
		TokenDigest: "digest-" + uid,
		DefaultName: defaultName,
		CreatedAt:   ReferenceTime(),
	}
	if err := store.CreateParticipant(context.Background(), p); err != nil {
		tb.Fatalf("failed to seed participant %s: %v", uid, err)
	}
	return p
}

// RoomFixture describes a room to seed. Zero fields take defaults: a two day
// dates room from 9 to 11 with hour slots, expiring a day after ReferenceTime.
type RoomFixture struct {
	UID        string
	EventName  string
	Days       int
	Slots      int
	Owner      string
	OwnerName  string
	ExpiresAt  time.Time
	Grid       schedule.Grid
	DaysOfWeek bool
}

// SeedRoom stores the room described by f together with its owner membership.
// The owner participant must already exist.
func SeedRoom(tb testing.TB, store persistence.Store, f RoomFixture) persistence.Room {
	tb.Helper()

	if f.EventName == "" {
		f.EventName = "Team sync"
	}
	if f.Days == 0 {
		f.Days = 2
	}
	if f.Slots == 0 {
		f.Slots = 2
	}
	if f.ExpiresAt.IsZero() {
		f.ExpiresAt = ReferenceTime().Add(24 * time.Hour)
	}
	if f.Grid == nil {
		f.Grid = schedule.NewGrid(f.Days, f.Slots)
	}

	room := persistence.Room{
		UID:        f.UID,
		EventName:  f.EventName,
		TimeMin:    9,
		TimeMax:    9 + f.Slots,
		SlotLength: 60,
		Grid:       f.Grid,
		ExpiresAt:  f.ExpiresAt,
	}
	if f.DaysOfWeek {
		room.ScheduleType = persistence.ScheduleTypeDaysOfWeek
		for d := 0; d < f.Days; d++ {
			room.DaysOfWeek = append(room.DaysOfWeek, d%7)
		}
	} else {
		room.ScheduleType = persistence.ScheduleTypeDates
		for d := 0; d < f.Days; d++ {
			room.Dates = append(room.Dates, ReferenceTime().AddDate(0, 0, d).Format(time.DateOnly))
		}
	}

	ctx := context.Background()
	if err := store.CreateRoom(ctx, room); err != nil {
		tb.Fatalf("failed to seed room %s: %v", f.UID, err)
	}
	if f.Owner != "" {
		SeedMember(tb, store, persistence.Member{
			RoomUID:        f.UID,
			ParticipantUID: f.Owner,
			Name:           f.OwnerName,
			IsOwner:        true,
		})
	}
	return room
}

// SeedMember stores a membership row.
func SeedMember(tb testing.TB, store persistence.Store, member persistence.Member) {
	tb.Helper()
	if err := store.InsertMember(context.Background(), member); err != nil {
		tb.Fatalf("failed to seed member %s/%s: %v", member.RoomUID, member.ParticipantUID, err)
	}
}
