package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/meetgrid/internal/application"
)

var (
	// ErrMalformedEnvelope is returned when a frame is not a well formed envelope
	// or its payload does not fit the message type.
	ErrMalformedEnvelope = errors.New("realtime: malformed envelope")
	// ErrUnknownMessageType is returned for envelopes with an unrecognised type.
	ErrUnknownMessageType = errors.New("realtime: unknown message type")
)

// Inbound message types.
const (
	TypeEditSchedule  = "editSchedule"
	TypeEditEventName = "editEventName"
	TypeEditUserName  = "editUserName"
	TypeEditIsAbsent  = "editIsAbsent"
)

// Command is one decoded inbound message. The concrete type identifies the
// operation.
type Command interface {
	MessageType() string
}

// EditSchedule replaces the sender's availability.
type EditSchedule struct{ application.EditScheduleInput }

// EditEventName renames the room's event.
type EditEventName struct{ application.EditEventNameInput }

// EditUserName renames the sender.
type EditUserName struct{ application.EditUserNameInput }

// EditIsAbsent sets or clears the sender's absence.
type EditIsAbsent struct{ application.EditIsAbsentInput }

func (EditSchedule) MessageType() string  { return TypeEditSchedule }
func (EditEventName) MessageType() string { return TypeEditEventName }
func (EditUserName) MessageType() string  { return TypeEditUserName }
func (EditIsAbsent) MessageType() string  { return TypeEditIsAbsent }

type envelope struct {
	Type    string          `json:"message_type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode reads the envelope tag first and then the payload of the matching
// variant.
func Decode(data []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing message_type", ErrMalformedEnvelope)
	}

	switch env.Type {
	case TypeEditSchedule:
		return decodePayload(env, func(in application.EditScheduleInput) Command { return EditSchedule{in} })
	case TypeEditEventName:
		return decodePayload(env, func(in application.EditEventNameInput) Command { return EditEventName{in} })
	case TypeEditUserName:
		return decodePayload(env, func(in application.EditUserNameInput) Command { return EditUserName{in} })
	case TypeEditIsAbsent:
		return decodePayload(env, func(in application.EditIsAbsentInput) Command { return EditIsAbsent{in} })
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
}

func decodePayload[T any](env envelope, wrap func(T) Command) (Command, error) {
	payload := bytes.TrimSpace(env.Payload)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, fmt.Errorf("%w: %s payload must be an object", ErrMalformedEnvelope, env.Type)
	}
	var in T
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformedEnvelope, env.Type, err)
	}
	return wrap(in), nil
}
