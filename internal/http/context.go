package http

import "context"

type contextKey string

const participantContextKey contextKey = "participant"

// ContextWithParticipant returns a derived context carrying the resolved participant id.
func ContextWithParticipant(ctx context.Context, participantUID string) context.Context {
	return context.WithValue(ctx, participantContextKey, participantUID)
}

// ParticipantFromContext extracts the participant id stored by ResolveIdentity.
func ParticipantFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(participantContextKey).(string)
	return uid, ok && uid != ""
}
