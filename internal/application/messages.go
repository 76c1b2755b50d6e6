package application

import (
	"context"
	"log/slog"

	"github.com/example/meetgrid/internal/registry"
)

// Outbound message types.
const (
	MessageEditSchedule         = "editSchedule"
	MessageEditEventName        = "editEventName"
	MessageEditUserName         = "editUserName"
	MessageUserSetAbsentReason  = "userSetAbsentReason"
	MessageOtherSetAbsentReason = "otherSetAbsentReason"
	MessageRoomDeleted          = "roomDeleted"
	MessageError                = "error"
)

// Message is the envelope pushed to connected viewers.
type Message struct {
	Type    string `json:"message_type"`
	Payload any    `json:"payload"`
}

// SchedulePayload carries a viewer's projection after a grid change.
type SchedulePayload struct {
	UserName       string    `json:"user_name"`
	OthersNames    []string  `json:"others_names"`
	OthersSchedule [][][]int `json:"others_schedule"`
	AbsentReasons  []*string `json:"absent_reasons"`
}

// AbsencePayload carries a viewer's projection after an absence change.
type AbsencePayload struct {
	OthersNames    []string  `json:"others_names"`
	OthersSchedule [][][]int `json:"others_schedule"`
	AbsentReasons  []*string `json:"absent_reasons"`
}

// EventNamePayload carries a renamed event.
type EventNamePayload struct {
	EventName string `json:"event_name"`
}

// NamesPayload carries the recipient's view of the other members' names.
type NamesPayload struct {
	OthersNames []string `json:"others_names"`
}

// ErrorPayload reports a rejected inbound message to its sender.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Peers exposes the live connections of a room.
type Peers interface {
	Snapshot(room string) []registry.Peer
}

// NewErrorMessage builds the envelope reporting err to the sender.
func NewErrorMessage(err error) Message {
	return Message{Type: MessageError, Payload: ErrorPayload{Message: err.Error()}}
}

// fanOut sends the message built for each peer. Peers for which build
// returns false are skipped. A failed send is logged and does not stop
// delivery to the remaining peers.
func fanOut(ctx context.Context, logger *slog.Logger, peers []registry.Peer, build func(participantID string) (Message, bool)) int {
	delivered := 0
	for _, peer := range peers {
		msg, ok := build(peer.ParticipantID)
		if !ok {
			continue
		}
		if err := peer.Conn.Send(ctx, msg); err != nil {
			logger.WarnContext(ctx, "failed to deliver message",
				"recipient_id", peer.ParticipantID,
				"message_type", msg.Type,
				"error", err,
			)
			continue
		}
		delivered++
	}
	return delivered
}
