package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/meetgrid/internal/persistence"
)

// CreateParticipant stores a new anonymous identity.
func (r queries) CreateParticipant(ctx context.Context, participant persistence.Participant) error {
	if participant.UID == "" || strings.TrimSpace(participant.TokenDigest) == "" {
		return persistence.ErrConstraintViolation
	}
	createdAt := participant.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (uid, auth_token, default_name, created_at)
		VALUES (?, ?, ?, ?)
	`, participant.UID, participant.TokenDigest, participant.DefaultName, formatTime(createdAt))
	if err != nil {
		return r.mapper.mapError(err)
	}
	return nil
}

// GetParticipant retrieves an identity by identifier.
func (r queries) GetParticipant(ctx context.Context, uid string) (persistence.Participant, error) {
	return r.getParticipant(ctx, `uid = ?`, uid)
}

// GetParticipantByToken retrieves the identity owning a session token digest.
func (r queries) GetParticipantByToken(ctx context.Context, tokenDigest string) (persistence.Participant, error) {
	if tokenDigest == "" {
		return persistence.Participant{}, persistence.ErrNotFound
	}
	return r.getParticipant(ctx, `auth_token = ?`, tokenDigest)
}

func (r queries) getParticipant(ctx context.Context, where string, arg any) (persistence.Participant, error) {
	var (
		p         persistence.Participant
		createdAt string
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT uid, auth_token, default_name, created_at
		FROM users
		WHERE `+where, arg).Scan(&p.UID, &p.TokenDigest, &p.DefaultName, &createdAt)
	if err != nil {
		return persistence.Participant{}, r.mapper.mapError(err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return persistence.Participant{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return p, nil
}

// UpdateDefaultName changes the name reused when the participant joins rooms.
func (r queries) UpdateDefaultName(ctx context.Context, uid, name string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE users SET default_name = ? WHERE uid = ?`, name, uid)
	if err != nil {
		return r.mapper.mapError(err)
	}
	return requireAffected(result)
}
