package realtime

import (
	"testing"
	"time"
)

func TestLiveness(t *testing.T) {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	t.Run("ping moves to awaiting and a response restores connected", func(t *testing.T) {
		l := NewLiveness(start, 25*time.Second)
		if l.State() != Connected {
			t.Fatalf("expected connected, got %s", l.State())
		}
		if !l.Tick(start.Add(15 * time.Second)) {
			t.Fatal("expected first tick to request a ping")
		}
		if l.State() != AwaitingPong {
			t.Fatalf("expected awaiting_pong, got %s", l.State())
		}
		l.Observe(start.Add(16 * time.Second))
		if l.State() != Connected {
			t.Fatalf("expected connected, got %s", l.State())
		}
		if !l.Tick(start.Add(30 * time.Second)) {
			t.Fatal("expected tick within timeout of the response to request a ping")
		}
	})

	t.Run("silence past the timeout disconnects", func(t *testing.T) {
		l := NewLiveness(start, 25*time.Second)
		if !l.Tick(start.Add(15 * time.Second)) {
			t.Fatal("expected first tick to request a ping")
		}
		if l.Tick(start.Add(30 * time.Second)) {
			t.Fatal("expected tick after the timeout to disconnect")
		}
		if l.State() != Disconnected {
			t.Fatalf("expected disconnected, got %s", l.State())
		}
	})

	t.Run("elapsed exactly the timeout is still alive", func(t *testing.T) {
		l := NewLiveness(start, 25*time.Second)
		if !l.Tick(start.Add(25 * time.Second)) {
			t.Fatal("expected tick at the timeout boundary to keep the connection")
		}
	})

	t.Run("disconnected is terminal", func(t *testing.T) {
		l := NewLiveness(start, time.Second)
		l.Tick(start.Add(2 * time.Second))
		l.Observe(start.Add(3 * time.Second))
		if l.State() != Disconnected {
			t.Fatalf("expected disconnected, got %s", l.State())
		}
		if l.Tick(start.Add(3 * time.Second)) {
			t.Fatal("expected no ping after disconnect")
		}
	})

	t.Run("non-positive timeout uses the default", func(t *testing.T) {
		l := NewLiveness(start, 0)
		if !l.Tick(start.Add(DefaultHeartbeatTimeout)) {
			t.Fatal("expected default timeout to apply")
		}
		if l.Tick(start.Add(DefaultHeartbeatTimeout + time.Nanosecond)) {
			t.Fatal("expected disconnect just past the default timeout")
		}
	})

	t.Run("state names", func(t *testing.T) {
		names := map[LivenessState]string{
			Connected:         "connected",
			AwaitingPong:      "awaiting_pong",
			Disconnected:      "disconnected",
			LivenessState(42): "unknown",
		}
		for state, want := range names {
			if got := state.String(); got != want {
				t.Fatalf("expected %q, got %q", want, got)
			}
		}
	})
}
