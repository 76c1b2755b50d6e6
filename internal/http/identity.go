package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meetgrid/internal/application"
)

// AuthCookieName is the cookie carrying the anonymous session token.
const AuthCookieName = "auth_token"

const defaultCookieMaxAge = 400 * 24 * time.Hour

type identityService interface {
	Resolve(ctx context.Context, token string) (string, error)
	Ensure(ctx context.Context, token string) (application.Identity, error)
}

// CookieConfig controls the auth cookie attributes.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

func (c CookieConfig) set(w http.ResponseWriter, token string, now time.Time) {
	maxAge := c.MaxAge
	if maxAge <= 0 {
		maxAge = defaultCookieMaxAge
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(maxAge).UTC(),
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func tokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	cookie, err := r.Cookie(AuthCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

// ResolveIdentity attaches the participant owning the request's auth cookie
// to the request context. Requests without a valid cookie pass through
// anonymous; handlers decide whether that is acceptable.
func ResolveIdentity(identities identityService, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			uid, err := identities.Resolve(r.Context(), token)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(ContextWithParticipant(r.Context(), uid)))
			case errors.Is(err, application.ErrUnauthenticated):
				next.ServeHTTP(w, r)
			default:
				responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: "認証情報の確認中にエラーが発生しました。"})
			}
		})
	}
}

// identityIssuer hands out identities to anonymous callers of endpoints that
// create state.
type identityIssuer struct {
	identities identityService
	cookies    CookieConfig
	now        func() time.Time
}

func (i identityIssuer) ensure(w http.ResponseWriter, r *http.Request) (string, error) {
	if uid, ok := ParticipantFromContext(r.Context()); ok {
		return uid, nil
	}
	identity, err := i.identities.Ensure(r.Context(), tokenFromRequest(r))
	if err != nil {
		return "", err
	}
	if identity.Issued {
		now := time.Now
		if i.now != nil {
			now = i.now
		}
		i.cookies.set(w, identity.Token, now())
	}
	return identity.ParticipantUID, nil
}
