package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meetgrid/internal/persistence"
	"github.com/example/meetgrid/internal/session"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// ParticipantStore captures the persistence operations needed to issue and
// resolve identities.
type ParticipantStore interface {
	CreateParticipant(ctx context.Context, participant persistence.Participant) error
	GetParticipantByToken(ctx context.Context, tokenDigest string) (persistence.Participant, error)
}

// IdentityCache remembers which participant owns a token digest.
type IdentityCache interface {
	Lookup(ctx context.Context, digest string) (string, error)
	Store(ctx context.Context, digest, participantUID string) error
}

// IdentityService issues anonymous participant identities and resolves
// session tokens back to them.
type IdentityService struct {
	participants   ParticipantStore
	cache          IdentityCache
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewIdentityService constructs an identity service. cache may be nil.
func NewIdentityService(participants ParticipantStore, cache IdentityCache, idGenerator, tokenGenerator func() string, now func() time.Time) *IdentityService {
	return NewIdentityServiceWithLogger(participants, cache, idGenerator, tokenGenerator, now, nil)
}

// NewIdentityServiceWithLogger constructs an identity service with a specified logger.
func NewIdentityServiceWithLogger(participants ParticipantStore, cache IdentityCache, idGenerator, tokenGenerator func() string, now func() time.Time, logger *slog.Logger) *IdentityService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if tokenGenerator == nil {
		tokenGenerator = NewSessionToken
	}
	if now == nil {
		now = time.Now
	}
	return &IdentityService{
		participants:   participants,
		cache:          cache,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *IdentityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "IdentityService", operation, attrs...)
}

// NewSessionToken returns 32 random bytes encoded as hex.
func NewSessionToken() string {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		panic(fmt.Sprintf("read random token: %v", err))
	}
	return hex.EncodeToString(buf)
}

// TokenDigest is the form in which session tokens are stored and cached.
func TokenDigest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Resolve returns the participant owning token, or ErrUnauthenticated.
func (s *IdentityService) Resolve(ctx context.Context, token string) (participantUID string, err error) {
	if s == nil {
		err = fmt.Errorf("IdentityService is nil")
		return
	}

	token = strings.TrimSpace(token)
	if token == "" {
		err = ErrUnauthenticated
		return
	}

	logger := s.loggerWith(ctx, "Resolve")
	digest := TokenDigest(token)

	if s.cache != nil {
		uid, cacheErr := s.cache.Lookup(ctx, digest)
		if cacheErr == nil {
			return uid, nil
		}
		if !errors.Is(cacheErr, session.ErrMiss) {
			logger.WarnContext(ctx, "identity cache lookup failed", "error", cacheErr)
		}
	}

	var participant persistence.Participant
	participant, err = s.participants.GetParticipantByToken(ctx, digest)
	if errors.Is(err, persistence.ErrNotFound) {
		err = ErrUnauthenticated
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "failed to resolve identity", "error", err, "error_kind", ErrorKind(err))
		return
	}

	s.remember(ctx, logger, digest, participant.UID)
	return participant.UID, nil
}

// Signup mints a new anonymous participant and its session token.
func (s *IdentityService) Signup(ctx context.Context) (identity Identity, err error) {
	if s == nil {
		err = fmt.Errorf("IdentityService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Signup")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to sign up participant", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("participant_id", identity.ParticipantUID).InfoContext(ctx, "participant signed up")
	}()

	identity = Identity{
		ParticipantUID: s.idGenerator(),
		Token:          s.tokenGenerator(),
		Issued:         true,
	}
	digest := TokenDigest(identity.Token)

	err = s.participants.CreateParticipant(ctx, persistence.Participant{
		UID:         identity.ParticipantUID,
		TokenDigest: digest,
		CreatedAt:   s.now(),
	})
	if err != nil {
		identity = Identity{}
		return
	}

	s.remember(ctx, logger, digest, identity.ParticipantUID)
	return
}

// Ensure resolves token, signing up a new participant when the token is
// missing or unknown.
func (s *IdentityService) Ensure(ctx context.Context, token string) (Identity, error) {
	uid, err := s.Resolve(ctx, token)
	if err == nil {
		return Identity{ParticipantUID: uid, Token: token}, nil
	}
	if !errors.Is(err, ErrUnauthenticated) {
		return Identity{}, err
	}
	return s.Signup(ctx)
}

func (s *IdentityService) remember(ctx context.Context, logger *slog.Logger, digest, uid string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Store(ctx, digest, uid); err != nil {
		logger.WarnContext(ctx, "failed to cache identity", "error", err)
	}
}
