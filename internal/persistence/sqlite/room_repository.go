package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/meetgrid/internal/persistence"
	"github.com/example/meetgrid/internal/schedule"
)

const roomColumns = `uid, event_name, schedule_type, dates, days_of_week, time_min, time_max, slot_length, schedule, expires_at`

// CreateRoom inserts a new room.
func (r queries) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.UID == "" {
		return persistence.ErrConstraintViolation
	}

	dates, err := marshalJSON(nonNilStrings(room.Dates))
	if err != nil {
		return err
	}
	days, err := marshalJSON(nonNilInts(room.DaysOfWeek))
	if err != nil {
		return err
	}
	grid, err := marshalJSON(room.Grid)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		room.UID,
		room.EventName,
		int(room.ScheduleType),
		dates,
		days,
		room.TimeMin,
		room.TimeMax,
		room.SlotLength,
		grid,
		formatTime(room.ExpiresAt),
	)
	if err != nil {
		return r.mapper.mapError(err)
	}
	return nil
}

// GetRoom retrieves a room by identifier.
func (r queries) GetRoom(ctx context.Context, uid string) (persistence.Room, error) {
	if uid == "" {
		return persistence.Room{}, persistence.ErrNotFound
	}

	var (
		room                          persistence.Room
		scheduleType                  int
		datesJSON, daysJSON, gridJSON string
		expiresAt                     string
	)
	err := r.q.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE uid = ?`, uid).Scan(
		&room.UID,
		&room.EventName,
		&scheduleType,
		&datesJSON,
		&daysJSON,
		&room.TimeMin,
		&room.TimeMax,
		&room.SlotLength,
		&gridJSON,
		&expiresAt,
	)
	if err != nil {
		return persistence.Room{}, r.mapper.mapError(err)
	}

	room.ScheduleType = persistence.ScheduleType(scheduleType)
	if err := json.Unmarshal([]byte(datesJSON), &room.Dates); err != nil {
		return persistence.Room{}, fmt.Errorf("decode dates of room %s: %w", uid, err)
	}
	if err := json.Unmarshal([]byte(daysJSON), &room.DaysOfWeek); err != nil {
		return persistence.Room{}, fmt.Errorf("decode days of week of room %s: %w", uid, err)
	}
	if err := json.Unmarshal([]byte(gridJSON), &room.Grid); err != nil {
		return persistence.Room{}, fmt.Errorf("decode grid of room %s: %w", uid, err)
	}
	if room.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	return room, nil
}

// RoomExists reports whether a room with uid is stored.
func (r queries) RoomExists(ctx context.Context, uid string) (bool, error) {
	var exists int
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE uid = ?)`, uid).Scan(&exists)
	if err != nil {
		return false, r.mapper.mapError(err)
	}
	return exists == 1, nil
}

// UpdateRoomGrid replaces the stored grid of a room.
func (r queries) UpdateRoomGrid(ctx context.Context, uid string, grid schedule.Grid) error {
	encoded, err := marshalJSON(grid)
	if err != nil {
		return err
	}
	result, err := r.q.ExecContext(ctx, `UPDATE rooms SET schedule = ? WHERE uid = ?`, encoded, uid)
	if err != nil {
		return r.mapper.mapError(err)
	}
	return requireAffected(result)
}

// UpdateEventName renames a room.
func (r queries) UpdateEventName(ctx context.Context, uid, name string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE rooms SET event_name = ? WHERE uid = ?`, name, uid)
	if err != nil {
		return r.mapper.mapError(err)
	}
	return requireAffected(result)
}

// DeleteRoom removes a room and its memberships. Callers outside a
// transaction should go through Storage.DeleteRoom.
func (r queries) DeleteRoom(ctx context.Context, uid string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM users_of_rooms WHERE room_uid = ?`, uid); err != nil {
		return r.mapper.mapError(err)
	}
	result, err := r.q.ExecContext(ctx, `DELETE FROM rooms WHERE uid = ?`, uid)
	if err != nil {
		return r.mapper.mapError(err)
	}
	return requireAffected(result)
}

// DeleteExpiredRooms removes every room whose expiry is not after reference.
func (r queries) DeleteExpiredRooms(ctx context.Context, reference time.Time) ([]string, error) {
	cutoff := formatTime(reference)

	rows, err := r.q.QueryContext(ctx, `SELECT uid FROM rooms WHERE expires_at <= ? ORDER BY uid`, cutoff)
	if err != nil {
		return nil, r.mapper.mapError(err)
	}
	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			rows.Close()
			return nil, r.mapper.mapError(err)
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.mapError(err)
	}
	rows.Close()

	if len(uids) == 0 {
		return nil, nil
	}

	if _, err := r.q.ExecContext(ctx, `DELETE FROM users_of_rooms WHERE room_uid IN (SELECT uid FROM rooms WHERE expires_at <= ?)`, cutoff); err != nil {
		return nil, r.mapper.mapError(err)
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM rooms WHERE expires_at <= ?`, cutoff); err != nil {
		return nil, r.mapper.mapError(err)
	}
	return uids, nil
}

func marshalJSON(v any) (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode column: %w", err)
	}
	return string(encoded), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilInts(values []int) []int {
	if values == nil {
		return []int{}
	}
	return values
}
