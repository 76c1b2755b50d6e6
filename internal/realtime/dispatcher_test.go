package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/example/meetgrid/internal/application"
	"github.com/example/meetgrid/internal/schedule"
	"github.com/example/meetgrid/internal/testfixtures"
)

type editCall struct {
	op          string
	room        string
	participant string
	input       any
}

type stubEditor struct {
	mu    sync.Mutex
	calls []editCall
	err   error
}

func (s *stubEditor) record(op, room, participant string, input any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, editCall{op: op, room: room, participant: participant, input: input})
	return s.err
}

func (s *stubEditor) Calls() []editCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]editCall(nil), s.calls...)
}

func (s *stubEditor) EditSchedule(ctx context.Context, room, participant string, input application.EditScheduleInput) error {
	return s.record(TypeEditSchedule, room, participant, input)
}

func (s *stubEditor) EditEventName(ctx context.Context, room, participant string, input application.EditEventNameInput) error {
	return s.record(TypeEditEventName, room, participant, input)
}

func (s *stubEditor) EditUserName(ctx context.Context, room, participant string, input application.EditUserNameInput) error {
	return s.record(TypeEditUserName, room, participant, input)
}

func (s *stubEditor) EditIsAbsent(ctx context.Context, room, participant string, input application.EditIsAbsentInput) error {
	return s.record(TypeEditIsAbsent, room, participant, input)
}

func errorText(t *testing.T, msg any) string {
	t.Helper()
	m, ok := msg.(application.Message)
	if !ok || m.Type != application.MessageError {
		t.Fatalf("expected error envelope, got %#v", msg)
	}
	return m.Payload.(application.ErrorPayload).Message
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("routes each message type", func(t *testing.T) {
		editor := &stubEditor{}
		d := NewDispatcher(editor, nil)
		reply := &testfixtures.RecordingConn{}

		frames := []string{
			`{"message_type":"editSchedule","payload":{"user_schedule":[[true]]}}`,
			`{"message_type":"editEventName","payload":{"name":"Sync"}}`,
			`{"message_type":"editUserName","payload":{"name":"Ann"}}`,
			`{"message_type":"editIsAbsent","payload":{"user_name":"Ann"}}`,
		}
		for _, f := range frames {
			if err := d.Dispatch(ctx, "ROOM", "p1", reply, []byte(f)); err != nil {
				t.Fatalf("Dispatch(%s) returned error: %v", f, err)
			}
		}

		calls := editor.Calls()
		wantOps := []string{TypeEditSchedule, TypeEditEventName, TypeEditUserName, TypeEditIsAbsent}
		if len(calls) != len(wantOps) {
			t.Fatalf("expected %d calls, got %d", len(wantOps), len(calls))
		}
		for i, op := range wantOps {
			if calls[i].op != op || calls[i].room != "ROOM" || calls[i].participant != "p1" {
				t.Fatalf("call %d: unexpected %+v", i, calls[i])
			}
		}
		if in := calls[1].input.(application.EditEventNameInput); in.Name != "Sync" {
			t.Fatalf("unexpected event name input %+v", in)
		}
		if len(reply.Messages()) != 0 {
			t.Fatalf("expected no replies, got %v", reply.Messages())
		}
	})

	t.Run("decode failures are reported to the sender", func(t *testing.T) {
		editor := &stubEditor{}
		d := NewDispatcher(editor, nil)
		reply := &testfixtures.RecordingConn{}

		err := d.Dispatch(ctx, "ROOM", "p1", reply, []byte(`{"message_type":"shout","payload":{}}`))
		if !errors.Is(err, ErrUnknownMessageType) {
			t.Fatalf("expected ErrUnknownMessageType, got %v", err)
		}
		msgs := reply.Messages()
		if len(msgs) != 1 {
			t.Fatalf("expected one reply, got %d", len(msgs))
		}
		if text := errorText(t, msgs[0]); text != err.Error() {
			t.Fatalf("expected %q, got %q", err.Error(), text)
		}
		if len(editor.Calls()) != 0 {
			t.Fatal("editor must not be called for undecodable frames")
		}
	})

	t.Run("permission failures are silent", func(t *testing.T) {
		for _, cause := range []error{application.ErrUnauthorized, application.ErrOwnerCannotBeAbsent} {
			editor := &stubEditor{err: cause}
			d := NewDispatcher(editor, nil)
			reply := &testfixtures.RecordingConn{}

			err := d.Dispatch(ctx, "ROOM", "p1", reply, []byte(`{"message_type":"editIsAbsent","payload":{"user_name":"Ann"}}`))
			if !errors.Is(err, cause) {
				t.Fatalf("expected %v, got %v", cause, err)
			}
			if len(reply.Messages()) != 0 {
				t.Fatalf("expected no reply for %v", cause)
			}
		}
	})

	t.Run("shape mismatch is reported verbatim", func(t *testing.T) {
		cause := fmt.Errorf("%w: got 1 days, want 2", schedule.ErrShapeMismatch)
		d := NewDispatcher(&stubEditor{err: cause}, nil)
		reply := &testfixtures.RecordingConn{}

		_ = d.Dispatch(ctx, "ROOM", "p1", reply, []byte(`{"message_type":"editSchedule","payload":{"user_schedule":[[true]]}}`))
		msgs := reply.Messages()
		if len(msgs) != 1 || errorText(t, msgs[0]) != cause.Error() {
			t.Fatalf("unexpected replies %v", msgs)
		}
	})

	t.Run("storage failures are reported without details", func(t *testing.T) {
		d := NewDispatcher(&stubEditor{err: errors.New("disk I/O error at /var/lib/meetgrid.db")}, nil)
		reply := &testfixtures.RecordingConn{}

		_ = d.Dispatch(ctx, "ROOM", "p1", reply, []byte(`{"message_type":"editEventName","payload":{"name":"x"}}`))
		msgs := reply.Messages()
		if len(msgs) != 1 || errorText(t, msgs[0]) != errInternal.Error() {
			t.Fatalf("unexpected replies %v", msgs)
		}
	})

	t.Run("failed reply does not panic", func(t *testing.T) {
		d := NewDispatcher(&stubEditor{}, nil)
		reply := &testfixtures.RecordingConn{Err: errors.New("closed")}
		if err := d.Dispatch(ctx, "ROOM", "p1", reply, []byte(`nope`)); !errors.Is(err, ErrMalformedEnvelope) {
			t.Fatalf("expected ErrMalformedEnvelope, got %v", err)
		}
	})
}
