package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/meetgrid/internal/persistence"
	"github.com/example/meetgrid/internal/schedule"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "meetgrid.db")
	store, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return store
}

func seedParticipant(t *testing.T, store *Storage, uid string) {
	t.Helper()
	err := store.CreateParticipant(context.Background(), persistence.Participant{
		UID:         uid,
		TokenDigest: "digest-" + uid,
		DefaultName: "name-" + uid,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateParticipant(%s) failed: %v", uid, err)
	}
}

func sampleRoom(uid string, expiresAt time.Time) persistence.Room {
	return persistence.Room{
		UID:          uid,
		EventName:    "Planning",
		ScheduleType: persistence.ScheduleTypeDates,
		Dates:        []string{"2026-01-05", "2026-01-06"},
		TimeMin:      9,
		TimeMax:      11,
		SlotLength:   60,
		Grid:         schedule.NewGrid(2, 2),
		ExpiresAt:    expiresAt,
	}
}

func TestStorage_MigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestWithDefaultPragmas(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{
			name: "plain path",
			dsn:  "file:a.db",
			want: "file:a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate",
		},
		{
			name: "existing query",
			dsn:  "file:a.db?mode=rwc",
			want: "file:a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate",
		},
		{
			name: "already configured",
			dsn:  "file:a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(100)&_txlock=deferred",
			want: "file:a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(100)&_txlock=deferred",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := withDefaultPragmas(tt.dsn); got != tt.want {
				t.Errorf("withDefaultPragmas(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}

func TestRoomRepository_CreateAndGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	expires := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	room := sampleRoom("ab12", expires)
	room.Grid = schedule.Grid{{{"p1"}, {}}, {{}, {"p1", "p2"}}}
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	got, err := store.GetRoom(ctx, "ab12")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.EventName != "Planning" || got.TimeMin != 9 || got.TimeMax != 11 || got.SlotLength != 60 {
		t.Errorf("unexpected room fields: %+v", got)
	}
	if len(got.Dates) != 2 || got.Dates[1] != "2026-01-06" {
		t.Errorf("Dates = %v", got.Dates)
	}
	if got.DaysOfWeek == nil || len(got.DaysOfWeek) != 0 {
		t.Errorf("DaysOfWeek = %#v, want empty non-nil", got.DaysOfWeek)
	}
	if !got.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, expires)
	}
	if len(got.Grid[1][1]) != 2 || got.Grid[1][1][1] != "p2" {
		t.Errorf("Grid = %v", got.Grid)
	}
	if got.Grid[0][1] == nil {
		t.Error("empty cell decoded as nil")
	}
}

func TestRoomRepository_CreateDuplicate(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	room := sampleRoom("dup1", time.Now().Add(time.Hour))
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	err := store.CreateRoom(ctx, room)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestRoomRepository_CreateRejectsBadTimeRange(t *testing.T) {
	store := newTestStorage(t)

	room := sampleRoom("bad1", time.Now().Add(time.Hour))
	room.TimeMin, room.TimeMax = 12, 10
	err := store.CreateRoom(context.Background(), room)
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestRoomRepository_GetMissing(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetRoom(context.Background(), "none")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	exists, err := store.RoomExists(context.Background(), "none")
	if err != nil {
		t.Fatalf("RoomExists failed: %v", err)
	}
	if exists {
		t.Error("RoomExists reported a missing room")
	}
}

func TestRoomRepository_Updates(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if err := store.CreateRoom(ctx, sampleRoom("up01", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	grid := schedule.Grid{{{"x"}, {}}, {{}, {}}}
	if err := store.UpdateRoomGrid(ctx, "up01", grid); err != nil {
		t.Fatalf("UpdateRoomGrid failed: %v", err)
	}
	if err := store.UpdateEventName(ctx, "up01", "Retro"); err != nil {
		t.Fatalf("UpdateEventName failed: %v", err)
	}

	got, err := store.GetRoom(ctx, "up01")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got.EventName != "Retro" {
		t.Errorf("EventName = %q", got.EventName)
	}
	if len(got.Grid[0][0]) != 1 || got.Grid[0][0][0] != "x" {
		t.Errorf("Grid = %v", got.Grid)
	}

	if err := store.UpdateEventName(ctx, "none", "x"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("UpdateEventName on missing room: expected ErrNotFound, got %v", err)
	}
}

func TestRoomRepository_DeleteRoomRemovesMembers(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	seedParticipant(t, store, "p1")
	if err := store.CreateRoom(ctx, sampleRoom("del1", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if err := store.InsertMember(ctx, persistence.Member{RoomUID: "del1", ParticipantUID: "p1", Name: "A", IsOwner: true}); err != nil {
		t.Fatalf("InsertMember failed: %v", err)
	}

	if err := store.DeleteRoom(ctx, "del1"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if _, err := store.GetMember(ctx, "del1", "p1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected member to be gone, got %v", err)
	}
	if err := store.DeleteRoom(ctx, "del1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("second DeleteRoom: expected ErrNotFound, got %v", err)
	}
}

func TestRoomRepository_DeleteExpiredRooms(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	seedParticipant(t, store, "p1")
	for uid, expires := range map[string]time.Time{
		"old1": now.Add(-time.Hour),
		"old2": now,
		"new1": now.Add(time.Hour),
	} {
		if err := store.CreateRoom(ctx, sampleRoom(uid, expires)); err != nil {
			t.Fatalf("CreateRoom(%s) failed: %v", uid, err)
		}
	}
	if err := store.InsertMember(ctx, persistence.Member{RoomUID: "old1", ParticipantUID: "p1", Name: "A", IsOwner: true}); err != nil {
		t.Fatalf("InsertMember failed: %v", err)
	}

	removed, err := store.DeleteExpiredRooms(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredRooms failed: %v", err)
	}
	if len(removed) != 2 || removed[0] != "old1" || removed[1] != "old2" {
		t.Fatalf("removed = %v, want [old1 old2]", removed)
	}
	if exists, _ := store.RoomExists(ctx, "new1"); !exists {
		t.Error("unexpired room was removed")
	}
	if exists, _ := store.RoomExists(ctx, "old1"); exists {
		t.Error("expired room survived")
	}

	removed, err = store.DeleteExpiredRooms(ctx, now)
	if err != nil {
		t.Fatalf("second DeleteExpiredRooms failed: %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("second sweep removed %v", removed)
	}
}

func TestMemberRepository(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	for _, uid := range []string{"p1", "p2", "p3"} {
		seedParticipant(t, store, uid)
	}
	if err := store.CreateRoom(ctx, sampleRoom("mem1", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	for _, m := range []persistence.Member{
		{RoomUID: "mem1", ParticipantUID: "p2", Name: "Owner", IsOwner: true},
		{RoomUID: "mem1", ParticipantUID: "p1", Name: "First"},
		{RoomUID: "mem1", ParticipantUID: "p3", Name: "Second"},
	} {
		if err := store.InsertMember(ctx, m); err != nil {
			t.Fatalf("InsertMember(%s) failed: %v", m.ParticipantUID, err)
		}
	}

	t.Run("join order", func(t *testing.T) {
		members, err := store.ListMembers(ctx, "mem1")
		if err != nil {
			t.Fatalf("ListMembers failed: %v", err)
		}
		want := []string{"p2", "p1", "p3"}
		if len(members) != len(want) {
			t.Fatalf("got %d members, want %d", len(members), len(want))
		}
		for i, id := range want {
			if members[i].ParticipantUID != id {
				t.Errorf("members[%d] = %s, want %s", i, members[i].ParticipantUID, id)
			}
		}
	})

	t.Run("duplicate membership", func(t *testing.T) {
		err := store.InsertMember(ctx, persistence.Member{RoomUID: "mem1", ParticipantUID: "p1"})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("second owner", func(t *testing.T) {
		seedParticipant(t, store, "p4")
		err := store.InsertMember(ctx, persistence.Member{RoomUID: "mem1", ParticipantUID: "p4", IsOwner: true})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("unknown participant", func(t *testing.T) {
		err := store.InsertMember(ctx, persistence.Member{RoomUID: "mem1", ParticipantUID: "ghost"})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})

	t.Run("rename", func(t *testing.T) {
		if err := store.UpdateMemberName(ctx, "mem1", "p1", "Renamed"); err != nil {
			t.Fatalf("UpdateMemberName failed: %v", err)
		}
		m, err := store.GetMember(ctx, "mem1", "p1")
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		if m.Name != "Renamed" {
			t.Errorf("Name = %q", m.Name)
		}
		if err := store.UpdateMemberName(ctx, "mem1", "ghost", "x"); !errors.Is(err, persistence.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("absence", func(t *testing.T) {
		if err := store.SetMemberAbsence(ctx, "mem1", "p3", true, "travel"); err != nil {
			t.Fatalf("SetMemberAbsence failed: %v", err)
		}
		m, _ := store.GetMember(ctx, "mem1", "p3")
		if !m.IsAbsent || m.AbsentReason != "travel" {
			t.Errorf("member = %+v", m)
		}

		if err := store.SetMemberAbsence(ctx, "mem1", "p3", false, "ignored"); err != nil {
			t.Fatalf("SetMemberAbsence failed: %v", err)
		}
		m, _ = store.GetMember(ctx, "mem1", "p3")
		if m.IsAbsent || m.AbsentReason != "" {
			t.Errorf("member = %+v", m)
		}
	})

	t.Run("owner cannot be absent", func(t *testing.T) {
		err := store.SetMemberAbsence(ctx, "mem1", "p2", true, "")
		if !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestParticipantRepository(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	seedParticipant(t, store, "p1")

	got, err := store.GetParticipantByToken(ctx, "digest-p1")
	if err != nil {
		t.Fatalf("GetParticipantByToken failed: %v", err)
	}
	if got.UID != "p1" || got.DefaultName != "name-p1" {
		t.Errorf("participant = %+v", got)
	}

	if err := store.UpdateDefaultName(ctx, "p1", "Jess"); err != nil {
		t.Fatalf("UpdateDefaultName failed: %v", err)
	}
	got, err = store.GetParticipant(ctx, "p1")
	if err != nil {
		t.Fatalf("GetParticipant failed: %v", err)
	}
	if got.DefaultName != "Jess" {
		t.Errorf("DefaultName = %q", got.DefaultName)
	}

	if _, err := store.GetParticipantByToken(ctx, "unknown"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	err = store.CreateParticipant(ctx, persistence.Participant{UID: "p2", TokenDigest: "digest-p1"})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for reused token, got %v", err)
	}
}

func TestWithTransaction_RollsBack(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTransaction(ctx, func(q persistence.Queries) error {
		if err := q.CreateRoom(ctx, sampleRoom("tx01", time.Now().Add(time.Hour))); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if exists, _ := store.RoomExists(ctx, "tx01"); exists {
		t.Error("room persisted after rollback")
	}
}
