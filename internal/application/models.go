package application

import (
	"github.com/example/meetgrid/internal/persistence"
	"github.com/example/meetgrid/internal/schedule"
)

// Identity is an anonymous participant together with the session token that
// proves it.
type Identity struct {
	ParticipantUID string
	Token          string
	// Issued reports whether the token was minted by this call and still has
	// to be handed to the client.
	Issued bool
}

// TimeRange is the hour range [FromHour, ToHour) covered by a room grid.
type TimeRange struct {
	FromHour int
	ToHour   int
}

// CreateRoomInput captures caller provided room fields.
type CreateRoomInput struct {
	EventName    string
	ScheduleType persistence.ScheduleType
	Dates        []string
	DaysOfWeek   []int
	SlotLength   int
	TimeRange    TimeRange
	// Schedule is the creator's own availability and fixes the grid shape.
	Schedule [][]bool
	UserName string
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	ParticipantUID string
	// PeerAddr seeds room identifier generation.
	PeerAddr string
	Input    CreateRoomInput
}

// RoomView is a room rendered for one viewer.
type RoomView struct {
	UID          string
	EventName    string
	ScheduleType persistence.ScheduleType
	Dates        []string
	DaysOfWeek   []int
	SlotLength   int
	TimeRange    TimeRange
	schedule.View
}

func membersOf(rows []persistence.Member) []schedule.Member {
	members := make([]schedule.Member, 0, len(rows))
	for _, m := range rows {
		members = append(members, schedule.Member{
			ID:           m.ParticipantUID,
			Name:         m.Name,
			IsOwner:      m.IsOwner,
			IsAbsent:     m.IsAbsent,
			AbsentReason: m.AbsentReason,
		})
	}
	return members
}
