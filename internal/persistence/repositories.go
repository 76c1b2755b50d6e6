package persistence

import (
	"context"
	"time"

	"github.com/example/meetgrid/internal/schedule"
)

// RoomRepository stores rooms and their grids.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, uid string) (Room, error)
	RoomExists(ctx context.Context, uid string) (bool, error)
	UpdateRoomGrid(ctx context.Context, uid string, grid schedule.Grid) error
	UpdateEventName(ctx context.Context, uid, name string) error
	// DeleteRoom removes the room together with every membership row.
	DeleteRoom(ctx context.Context, uid string) error
	// DeleteExpiredRooms removes rooms whose expiry is at or before reference
	// and returns their identifiers.
	DeleteExpiredRooms(ctx context.Context, reference time.Time) ([]string, error)
}

// MemberRepository stores room memberships.
type MemberRepository interface {
	GetMember(ctx context.Context, roomUID, participantUID string) (Member, error)
	// ListMembers returns the room's members in join order.
	ListMembers(ctx context.Context, roomUID string) ([]Member, error)
	InsertMember(ctx context.Context, member Member) error
	UpdateMemberName(ctx context.Context, roomUID, participantUID, name string) error
	SetMemberAbsence(ctx context.Context, roomUID, participantUID string, isAbsent bool, reason string) error
}

// ParticipantRepository stores anonymous identities.
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, participant Participant) error
	GetParticipant(ctx context.Context, uid string) (Participant, error)
	GetParticipantByToken(ctx context.Context, tokenDigest string) (Participant, error)
	UpdateDefaultName(ctx context.Context, uid, name string) error
}

// Queries groups every repository; it is satisfied both by the store itself
// and by the view handed to a transaction callback.
type Queries interface {
	RoomRepository
	MemberRepository
	ParticipantRepository
}

// TxFunc runs inside a transaction. Returning an error rolls it back.
type TxFunc func(q Queries) error

// Store is the transactional grid store.
type Store interface {
	Queries
	WithTransaction(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
	Close() error
}
