package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dyike/audney/internal/auth"
	"github.com/dyike/audney/internal/models"
)

type contextKey string

const SessionContextKey contextKey = "session"

// SessionCookie carries the session token for browser clients.
const SessionCookie = "audney_session"

// ExpiringHeader is set on responses when the session is about to time out.
const ExpiringHeader = "X-Session-Expiring"

// SessionMiddleware resolves the caller's session from the cookie or a
// bearer token.
type SessionMiddleware struct {
	auth   *auth.Service
	logger zerolog.Logger
}

func NewSessionMiddleware(a *auth.Service, logger zerolog.Logger) *SessionMiddleware {
	return &SessionMiddleware{auth: a, logger: logger}
}

// LoadSession attaches a valid session to the context and lets every
// request through.
func (m *SessionMiddleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, m.attach(w, r))
	})
}

// RequireSession rejects requests without a valid session.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = m.attach(w, r)
		if SessionFromContext(r.Context()) == nil {
			jsonError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionMiddleware) attach(w http.ResponseWriter, r *http.Request) *http.Request {
	token := TokenFromRequest(r)
	if token == "" {
		return r
	}
	state, err := m.auth.Authenticate(r.Context(), token)
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) && !errors.Is(err, auth.ErrSessionExpired) {
			m.logger.Error().Err(err).Msg("session lookup failed")
		}
		return r
	}
	if state.Expiring() {
		w.Header().Set(ExpiringHeader, "true")
	}
	sess := state.Session
	return r.WithContext(context.WithValue(r.Context(), SessionContextKey, &sess))
}

// TokenFromRequest reads the bearer token, falling back to the cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// SessionFromContext retrieves the authenticated session from the request context.
func SessionFromContext(ctx context.Context) *models.Session {
	sess, ok := ctx.Value(SessionContextKey).(*models.Session)
	if !ok {
		return nil
	}
	return sess
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
