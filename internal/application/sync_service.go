package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/meetgrid/internal/persistence"
	"github.com/example/meetgrid/internal/schedule"
)

// EditScheduleInput replaces the sender's availability.
type EditScheduleInput struct {
	UserSchedule [][]bool `json:"user_schedule"`
	UserName     string   `json:"user_name"`
}

// EditEventNameInput renames the room's event.
type EditEventNameInput struct {
	Name string `json:"name"`
}

// EditUserNameInput renames the sender.
type EditUserNameInput struct {
	Name string `json:"name"`
}

// EditIsAbsentInput sets or clears the sender's absence. A nil reason clears it.
type EditIsAbsentInput struct {
	UserName     string  `json:"user_name"`
	AbsentReason *string `json:"absent_reason"`
}

// SyncService applies live edits to a room and pushes the result to every
// connected viewer.
type SyncService struct {
	store  persistence.Store
	peers  Peers
	logger *slog.Logger
}

// NewSyncService constructs a sync service.
func NewSyncService(store persistence.Store, peers Peers) *SyncService {
	return NewSyncServiceWithLogger(store, peers, nil)
}

// NewSyncServiceWithLogger constructs a sync service with a specified logger.
func NewSyncServiceWithLogger(store persistence.Store, peers Peers, logger *slog.Logger) *SyncService {
	return &SyncService{store: store, peers: peers, logger: defaultLogger(logger)}
}

func (s *SyncService) loggerWith(ctx context.Context, operation, room, participant string) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SyncService", operation,
		"room_id", room,
		"participant_id", participant,
	)
}

// ensureMember returns the membership of participant in room, inserting a
// non-owner member when none exists. An empty name falls back to the
// participant's default name.
func ensureMember(ctx context.Context, q persistence.Queries, room, participant, name string) (persistence.Member, error) {
	member, err := q.GetMember(ctx, room, participant)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return persistence.Member{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		p, err := q.GetParticipant(ctx, participant)
		if err != nil {
			return persistence.Member{}, mapRepoError(err)
		}
		name = p.DefaultName
	}

	member = persistence.Member{RoomUID: room, ParticipantUID: participant, Name: name}
	if err := q.InsertMember(ctx, member); err != nil {
		return persistence.Member{}, err
	}
	return member, nil
}

func requireRoom(ctx context.Context, q persistence.Queries, room string) error {
	exists, err := q.RoomExists(ctx, room)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// EditSchedule replaces the sender's marks in the room grid with input and
// pushes every viewer, the sender included, their refreshed projection.
func (s *SyncService) EditSchedule(ctx context.Context, room, participant string, input EditScheduleInput) (err error) {
	if s == nil {
		return fmt.Errorf("SyncService is nil")
	}

	logger := s.loggerWith(ctx, "EditSchedule", room, participant)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit schedule", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	err = s.store.WithTransaction(ctx, func(q persistence.Queries) error {
		current, err := q.GetRoom(ctx, room)
		if err != nil {
			return mapRepoError(err)
		}
		if err := schedule.CheckShape(current.Grid, input.UserSchedule); err != nil {
			return err
		}
		if _, err := ensureMember(ctx, q, room, participant, input.UserName); err != nil {
			return err
		}
		merged, err := schedule.Merge(current.Grid, participant, input.UserSchedule)
		if err != nil {
			return err
		}
		return q.UpdateRoomGrid(ctx, room, merged)
	})
	if err != nil {
		return err
	}

	grid, members, err := s.loadProjection(ctx, room)
	if err != nil {
		return err
	}
	delivered := fanOut(ctx, logger, s.peers.Snapshot(room), func(viewer string) (Message, bool) {
		view := schedule.Project(grid, members, viewer)
		return Message{Type: MessageEditSchedule, Payload: SchedulePayload{
			UserName:       view.UserName,
			OthersNames:    view.OthersNames,
			OthersSchedule: view.OthersSchedule,
			AbsentReasons:  view.AbsentReasons,
		}}, true
	})
	logger.DebugContext(ctx, "schedule edited", "delivered", delivered)
	return nil
}

// EditEventName renames the room when the sender owns it. Requests from
// anyone else are ignored without an error.
func (s *SyncService) EditEventName(ctx context.Context, room, participant string, input EditEventNameInput) (err error) {
	if s == nil {
		return fmt.Errorf("SyncService is nil")
	}

	logger := s.loggerWith(ctx, "EditEventName", room, participant)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit event name", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr := &ValidationError{}
		vErr.add("name", "event name is required")
		return vErr
	}

	ignored := false
	err = s.store.WithTransaction(ctx, func(q persistence.Queries) error {
		member, err := q.GetMember(ctx, room, participant)
		if errors.Is(err, persistence.ErrNotFound) || (err == nil && !member.IsOwner) {
			ignored = true
			return nil
		}
		if err != nil {
			return err
		}
		return mapRepoError(q.UpdateEventName(ctx, room, name))
	})
	if err != nil {
		return err
	}
	if ignored {
		logger.DebugContext(ctx, "ignored event rename from non-owner")
		return nil
	}

	msg := Message{Type: MessageEditEventName, Payload: EventNamePayload{EventName: name}}
	fanOut(ctx, logger, s.peers.Snapshot(room), func(viewer string) (Message, bool) {
		return msg, viewer != participant
	})
	return nil
}

// EditUserName renames the sender in the room and records the name as the
// participant's default for rooms joined later.
func (s *SyncService) EditUserName(ctx context.Context, room, participant string, input EditUserNameInput) (err error) {
	if s == nil {
		return fmt.Errorf("SyncService is nil")
	}

	logger := s.loggerWith(ctx, "EditUserName", room, participant)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit user name", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr := &ValidationError{}
		vErr.add("name", "name is required")
		return vErr
	}

	err = s.store.WithTransaction(ctx, func(q persistence.Queries) error {
		if err := requireRoom(ctx, q, room); err != nil {
			return err
		}
		err := q.UpdateMemberName(ctx, room, participant, name)
		if err != nil && !errors.Is(err, persistence.ErrNotFound) {
			return err
		}
		return mapRepoError(q.UpdateDefaultName(ctx, participant, name))
	})
	if err != nil {
		return err
	}

	rows, err := s.store.ListMembers(ctx, room)
	if err != nil {
		return err
	}
	members := membersOf(rows)
	fanOut(ctx, logger, s.peers.Snapshot(room), func(viewer string) (Message, bool) {
		if viewer == participant {
			return Message{}, false
		}
		return Message{Type: MessageEditUserName, Payload: NamesPayload{
			OthersNames: schedule.OthersNames(members, viewer),
		}}, true
	})
	return nil
}

// EditIsAbsent marks the sender absent with a reason, or clears the mark when
// the reason is nil. Owners cannot be absent.
func (s *SyncService) EditIsAbsent(ctx context.Context, room, participant string, input EditIsAbsentInput) (err error) {
	if s == nil {
		return fmt.Errorf("SyncService is nil")
	}

	logger := s.loggerWith(ctx, "EditIsAbsent", room, participant)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit absence", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	isAbsent := input.AbsentReason != nil
	reason := ""
	if isAbsent {
		reason = *input.AbsentReason
	}

	err = s.store.WithTransaction(ctx, func(q persistence.Queries) error {
		if err := requireRoom(ctx, q, room); err != nil {
			return err
		}
		member, err := ensureMember(ctx, q, room, participant, input.UserName)
		if err != nil {
			return err
		}
		if member.IsOwner {
			return ErrOwnerCannotBeAbsent
		}
		return mapRepoError(q.SetMemberAbsence(ctx, room, participant, isAbsent, reason))
	})
	if err != nil {
		return err
	}

	grid, members, err := s.loadProjection(ctx, room)
	if err != nil {
		return err
	}
	fanOut(ctx, logger, s.peers.Snapshot(room), func(viewer string) (Message, bool) {
		view := schedule.Project(grid, members, viewer)
		msgType := MessageOtherSetAbsentReason
		if viewer == participant {
			msgType = MessageUserSetAbsentReason
		}
		return Message{Type: msgType, Payload: AbsencePayload{
			OthersNames:    view.OthersNames,
			OthersSchedule: view.OthersSchedule,
			AbsentReasons:  view.AbsentReasons,
		}}, true
	})
	return nil
}

func (s *SyncService) loadProjection(ctx context.Context, room string) (schedule.Grid, []schedule.Member, error) {
	current, err := s.store.GetRoom(ctx, room)
	if err != nil {
		return nil, nil, mapRepoError(err)
	}
	rows, err := s.store.ListMembers(ctx, room)
	if err != nil {
		return nil, nil, err
	}
	return current.Grid, membersOf(rows), nil
}
