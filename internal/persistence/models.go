package persistence

import (
	"time"

	"github.com/example/meetgrid/internal/schedule"
)

// ScheduleType distinguishes rooms over explicit dates from rooms over weekdays.
type ScheduleType int

const (
	// ScheduleTypeDates rooms list calendar dates in Room.Dates.
	ScheduleTypeDates ScheduleType = 0
	// ScheduleTypeDaysOfWeek rooms list weekday numbers in Room.DaysOfWeek.
	ScheduleTypeDaysOfWeek ScheduleType = 1
)

// Room is a shared availability-collection session.
type Room struct {
	UID          string
	EventName    string
	ScheduleType ScheduleType
	Dates        []string
	DaysOfWeek   []int
	TimeMin      int
	TimeMax      int
	SlotLength   int
	Grid         schedule.Grid
	ExpiresAt    time.Time
}

// Member is a participant's relationship to one room.
type Member struct {
	RoomUID        string
	ParticipantUID string
	Name           string
	IsOwner        bool
	IsAbsent       bool
	AbsentReason   string
}

// Participant is a global anonymous identity issued to one browser session.
type Participant struct {
	UID         string
	TokenDigest string
	DefaultName string
	CreatedAt   time.Time
}
