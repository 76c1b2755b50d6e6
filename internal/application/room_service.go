package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meetgrid/internal/persistence"
	"github.com/example/meetgrid/internal/schedule"
)

const maxRoomUIDAttempts = 32

// RoomService creates, renders, and removes rooms.
type RoomService struct {
	store       persistence.Store
	peers       Peers
	idGenerator func(seed string) string
	now         func() time.Time
	ttl         time.Duration
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(store persistence.Store, peers Peers, idGenerator func(seed string) string, now func() time.Time, ttl time.Duration) *RoomService {
	return NewRoomServiceWithLogger(store, peers, idGenerator, now, ttl, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(store persistence.Store, peers Peers, idGenerator func(seed string) string, now func() time.Time, ttl time.Duration, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = GenerateRoomUID
	}
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = 31 * 24 * time.Hour
	}
	return &RoomService{store: store, peers: peers, idGenerator: idGenerator, now: now, ttl: ttl, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new room owned by the caller,
// seeding the grid with the caller's availability.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (uid string, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"participant_id", params.ParticipantUID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", uid).InfoContext(ctx, "room created")
	}()

	if params.ParticipantUID == "" {
		err = ErrUnauthenticated
		return
	}

	input := params.Input
	if vErr := validateRoomInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	room := persistence.Room{
		EventName:    strings.TrimSpace(input.EventName),
		ScheduleType: input.ScheduleType,
		TimeMin:      input.TimeRange.FromHour,
		TimeMax:      input.TimeRange.ToHour,
		SlotLength:   input.SlotLength,
		Grid:         schedule.Seed(params.ParticipantUID, input.Schedule),
		ExpiresAt:    now.Add(s.ttl),
	}
	if input.ScheduleType == persistence.ScheduleTypeDates {
		room.Dates = input.Dates
	} else {
		room.DaysOfWeek = input.DaysOfWeek
	}

	err = s.store.WithTransaction(ctx, func(q persistence.Queries) error {
		var txErr error
		room.UID, txErr = s.unusedUID(ctx, q, now, params.PeerAddr)
		if txErr != nil {
			return txErr
		}

		name := strings.TrimSpace(input.UserName)
		if name == "" {
			participant, err := q.GetParticipant(ctx, params.ParticipantUID)
			if err != nil {
				return mapRepoError(err)
			}
			name = participant.DefaultName
		}

		if err := q.CreateRoom(ctx, room); err != nil {
			return err
		}
		return q.InsertMember(ctx, persistence.Member{
			RoomUID:        room.UID,
			ParticipantUID: params.ParticipantUID,
			Name:           name,
			IsOwner:        true,
		})
	})
	if err != nil {
		return
	}

	uid = room.UID
	return
}

func (s *RoomService) unusedUID(ctx context.Context, q persistence.Queries, now time.Time, peerAddr string) (string, error) {
	for attempt := 0; attempt < maxRoomUIDAttempts; attempt++ {
		candidate := s.idGenerator(fmt.Sprintf("%d%s%d", now.UnixMilli(), peerAddr, attempt))
		exists, err := q.RoomExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrRoomIDExhausted
}

// GetRoom renders the room for viewer. viewer may be empty or a participant
// who has not joined the room yet.
func (s *RoomService) GetRoom(ctx context.Context, uid, viewer string) (view RoomView, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	var room persistence.Room
	room, err = s.store.GetRoom(ctx, uid)
	if err != nil {
		err = mapRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "GetRoom", "room_id", uid).ErrorContext(ctx, "failed to load room", "error", err, "error_kind", ErrorKind(err))
		}
		return
	}

	var rows []persistence.Member
	rows, err = s.store.ListMembers(ctx, uid)
	if err != nil {
		s.loggerWith(ctx, "GetRoom", "room_id", uid).ErrorContext(ctx, "failed to load members", "error", err, "error_kind", ErrorKind(err))
		return
	}

	view = RoomView{
		UID:          room.UID,
		EventName:    room.EventName,
		ScheduleType: room.ScheduleType,
		Dates:        nonNil(room.Dates),
		DaysOfWeek:   nonNil(room.DaysOfWeek),
		SlotLength:   room.SlotLength,
		TimeRange:    TimeRange{FromHour: room.TimeMin, ToHour: room.TimeMax},
		View:         schedule.Project(room.Grid, membersOf(rows), viewer),
	}
	return
}

// RoomExists reports whether uid names a stored room.
func (s *RoomService) RoomExists(ctx context.Context, uid string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("RoomService is nil")
	}
	return s.store.RoomExists(ctx, uid)
}

// DeleteRoom removes a room on behalf of its owner and tells every other
// connected viewer that it is gone.
func (s *RoomService) DeleteRoom(ctx context.Context, participantUID, uid string) (err error) {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		"participant_id", participantUID,
		"room_id", uid,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room deleted")
	}()

	if participantUID == "" {
		return ErrUnauthenticated
	}

	err = s.store.WithTransaction(ctx, func(q persistence.Queries) error {
		member, err := q.GetMember(ctx, uid, participantUID)
		if errors.Is(err, persistence.ErrNotFound) {
			exists, existsErr := q.RoomExists(ctx, uid)
			if existsErr != nil {
				return existsErr
			}
			if !exists {
				return ErrNotFound
			}
			return ErrUnauthorized
		}
		if err != nil {
			return err
		}
		if !member.IsOwner {
			return ErrUnauthorized
		}
		return mapRepoError(q.DeleteRoom(ctx, uid))
	})
	if err != nil {
		return err
	}

	s.notifyDeleted(ctx, logger, uid, participantUID)
	return nil
}

// SweepExpired deletes every room whose expiry has passed and notifies any
// viewer still connected to one of them.
func (s *RoomService) SweepExpired(ctx context.Context) (removed []string, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SweepExpired")
	removed, err = s.store.DeleteExpiredRooms(ctx, s.now())
	if err != nil {
		logger.ErrorContext(ctx, "failed to sweep expired rooms", "error", err, "error_kind", ErrorKind(err))
		return
	}

	for _, uid := range removed {
		s.notifyDeleted(ctx, logger, uid, "")
	}
	if len(removed) > 0 {
		logger.InfoContext(ctx, "expired rooms removed", "count", len(removed), "room_ids", removed)
	}
	return
}

func (s *RoomService) notifyDeleted(ctx context.Context, logger *slog.Logger, uid, except string) {
	if s.peers == nil {
		return
	}
	msg := Message{Type: MessageRoomDeleted, Payload: struct{}{}}
	fanOut(ctx, logger.With("room_id", uid), s.peers.Snapshot(uid), func(participantID string) (Message, bool) {
		return msg, participantID != except
	})
}

func validateRoomInput(input CreateRoomInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.EventName) == "" {
		vErr.add("event_name", "event name is required")
	}

	days := 0
	switch input.ScheduleType {
	case persistence.ScheduleTypeDates:
		days = len(input.Dates)
		for _, d := range input.Dates {
			if _, err := time.Parse(time.DateOnly, d); err != nil {
				vErr.add("dates", "dates must be formatted as YYYY-MM-DD")
				break
			}
		}
	case persistence.ScheduleTypeDaysOfWeek:
		days = len(input.DaysOfWeek)
		for _, d := range input.DaysOfWeek {
			if d < 0 || d > 6 {
				vErr.add("dates", "days of week must be between 0 and 6")
				break
			}
		}
	default:
		vErr.add("schedule_type", "schedule type must be 0 or 1")
	}
	if days == 0 {
		vErr.add("dates", "at least one day is required")
	}

	from, to := input.TimeRange.FromHour, input.TimeRange.ToHour
	if from < 0 || to > 24 || from >= to {
		vErr.add("time_range", "time range must satisfy 0 <= from_hour < to_hour <= 24")
	}

	slots := 0
	if input.SlotLength <= 0 {
		vErr.add("slot_length", "slot length must be positive")
	} else if from < to {
		minutes := (to - from) * 60
		if minutes%input.SlotLength != 0 {
			vErr.add("slot_length", "slot length must divide the time range")
		} else {
			slots = minutes / input.SlotLength
		}
	}

	if !vErr.HasErrors() && !shapeMatches(input.Schedule, days, slots) {
		vErr.add("schedule", fmt.Sprintf("schedule must be %d days of %d slots", days, slots))
	}
	return vErr
}

func shapeMatches(marked [][]bool, days, slots int) bool {
	if len(marked) != days {
		return false
	}
	for _, row := range marked {
		if len(row) != slots {
			return false
		}
	}
	return true
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
