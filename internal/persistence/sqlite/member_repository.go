package sqlite

import (
	"context"

	"github.com/example/meetgrid/internal/persistence"
)

const memberColumns = `room_uid, user_uid, name, is_owner, is_absent, absent_reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (persistence.Member, error) {
	var m persistence.Member
	err := row.Scan(&m.RoomUID, &m.ParticipantUID, &m.Name, &m.IsOwner, &m.IsAbsent, &m.AbsentReason)
	return m, err
}

// GetMember retrieves one membership.
func (r queries) GetMember(ctx context.Context, roomUID, participantUID string) (persistence.Member, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+memberColumns+`
		FROM users_of_rooms
		WHERE room_uid = ? AND user_uid = ?
	`, roomUID, participantUID)
	member, err := scanMember(row)
	if err != nil {
		return persistence.Member{}, r.mapper.mapError(err)
	}
	return member, nil
}

// ListMembers returns the members of a room in the order they joined.
func (r queries) ListMembers(ctx context.Context, roomUID string) ([]persistence.Member, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+memberColumns+`
		FROM users_of_rooms
		WHERE room_uid = ?
		ORDER BY id ASC
	`, roomUID)
	if err != nil {
		return nil, r.mapper.mapError(err)
	}
	defer rows.Close()

	var members []persistence.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, r.mapper.mapError(err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.mapError(err)
	}
	return members, nil
}

// InsertMember adds a membership row.
func (r queries) InsertMember(ctx context.Context, member persistence.Member) error {
	if member.RoomUID == "" || member.ParticipantUID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users_of_rooms (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		member.RoomUID,
		member.ParticipantUID,
		member.Name,
		member.IsOwner,
		member.IsAbsent,
		member.AbsentReason,
	)
	if err != nil {
		return r.mapper.mapError(err)
	}
	return nil
}

// UpdateMemberName renames a member within one room.
func (r queries) UpdateMemberName(ctx context.Context, roomUID, participantUID, name string) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE users_of_rooms SET name = ?
		WHERE room_uid = ? AND user_uid = ?
	`, name, roomUID, participantUID)
	if err != nil {
		return r.mapper.mapError(err)
	}
	return requireAffected(result)
}

// SetMemberAbsence records or clears a member's absence. Owners are never
// matched, so an owner row is reported as not found.
func (r queries) SetMemberAbsence(ctx context.Context, roomUID, participantUID string, isAbsent bool, reason string) error {
	if !isAbsent {
		reason = ""
	}
	result, err := r.q.ExecContext(ctx, `
		UPDATE users_of_rooms SET is_absent = ?, absent_reason = ?
		WHERE room_uid = ? AND user_uid = ? AND is_owner = 0
	`, isAbsent, reason, roomUID, participantUID)
	if err != nil {
		return r.mapper.mapError(err)
	}
	return requireAffected(result)
}
