package services

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/notebook-be/internal/common"
	"github.com/isdelr/notebook-be/internal/models"
	"github.com/isdelr/notebook-be/internal/store"
)

// SessionServiceProvider defines the interface for session management.
type SessionServiceProvider interface {
	CreateSession(ctx context.Context, userID string) (models.Session, error)
	Authenticate(ctx context.Context, sid string) (models.User, error)
	Revoke(ctx context.Context, sid string) error
}

// SessionService issues, resolves and revokes server-side sessions.
// Sessions do not expire; a record lives until it is revoked.
type SessionService struct {
	store store.Store
	now   func() time.Time
}

// NewSessionService creates a new SessionService. A nil clock means time.Now.
func NewSessionService(st store.Store, now func() time.Time) *SessionService {
	return &SessionService{store: st, now: clockOrDefault(now)}
}

// CreateSession starts a new session for userID.
func (s *SessionService) CreateSession(ctx context.Context, userID string) (models.Session, error) {
	ts := models.NewTimestamp(s.now())
	session := models.Session{
		SID:        models.NewID(models.SessionIDPrefix),
		UserID:     userID,
		CreatedAt:  ts,
		LastSeenAt: ts,
	}

	err := s.store.Sessions().Update(ctx, func(sessions []models.Session) ([]models.Session, error) {
		return append(sessions, session), nil
	})
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// Authenticate resolves sid to its user and records the activity.
func (s *SessionService) Authenticate(ctx context.Context, sid string) (models.User, error) {
	if sid == "" {
		return models.User{}, common.ErrNotAuthenticated
	}

	var userID string
	err := s.store.Sessions().Update(ctx, func(sessions []models.Session) ([]models.Session, error) {
		for i := range sessions {
			if sessions[i].SID == sid {
				sessions[i].LastSeenAt = models.NewTimestamp(s.now())
				userID = sessions[i].UserID
				return sessions, nil
			}
		}
		return nil, common.ErrInvalidSession
	})
	if err != nil {
		return models.User{}, err
	}

	u, found, err := loadUser(ctx, s.store, userID, s.now())
	if err != nil {
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	if !found {
		return models.User{}, fmt.Errorf("%w: user %s no longer exists", common.ErrInvalidSession, userID)
	}
	return u, nil
}

// Revoke deletes the session. Revoking an unknown or empty sid is a no-op.
func (s *SessionService) Revoke(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	err := s.store.Sessions().Update(ctx, func(sessions []models.Session) ([]models.Session, error) {
		for i := range sessions {
			if sessions[i].SID == sid {
				return append(sessions[:i], sessions[i+1:]...), nil
			}
		}
		return nil, errUnchanged
	})
	return ignoreUnchanged(err)
}
