package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/isdelr/notebook-be/internal/common"
	"github.com/isdelr/notebook-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Authenticator resolves a session id to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, sid string) (models.User, error)
}

type contextKey string

const (
	userKey      = contextKey("user")
	sessionIDKey = contextKey("sessionID")
)

// SessionIDFromRequest extracts the session credential. The Authorization
// bearer token is tried first, then the session cookie. An empty id with a
// nil error means no credential was presented.
func SessionIDFromRequest(r *http.Request, secret []byte) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return "", fmt.Errorf("%w: malformed authorization header", common.ErrInvalidSession)
		}
		claims, err := ParseToken(strings.TrimSpace(token), secret)
		if err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrInvalidSession, err)
		}
		return claims.SessionID, nil
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value, nil
	}
	return "", nil
}

// SessionMiddleware creates a middleware for protecting routes. The
// authenticated user and session id are passed down via the request context.
func SessionMiddleware(authenticator Authenticator, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, err := SessionIDFromRequest(r, secret)
			if err != nil {
				log.Debug().Err(err).Msg("Rejected session credential")
				unauthorized(w, common.ErrInvalidSession)
				return
			}

			user, err := authenticator.Authenticate(r.Context(), sid)
			if err != nil {
				if errors.Is(err, common.ErrNotAuthenticated) || errors.Is(err, common.ErrInvalidSession) {
					unauthorized(w, err)
					return
				}
				log.Error().Err(err).Msg("Failed to authenticate session")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, sessionIDKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored by SessionMiddleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

// SessionIDFromContext returns the session id stored by SessionMiddleware.
func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(sessionIDKey).(string)
	return sid
}

func unauthorized(w http.ResponseWriter, err error) {
	msg := "Not authenticated"
	if errors.Is(err, common.ErrInvalidSession) {
		msg = "Invalid session"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
