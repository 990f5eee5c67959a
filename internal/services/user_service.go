package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/notebook-be/internal/auth"
	"github.com/isdelr/notebook-be/internal/common"
	"github.com/isdelr/notebook-be/internal/models"
	"github.com/isdelr/notebook-be/internal/store"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Signup(ctx context.Context, email, password, name string) (models.User, error)
	Login(ctx context.Context, email, password string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// UserService provides business logic for user accounts.
type UserService struct {
	store store.Store
	now   func() time.Time
}

// NewUserService creates a new UserService. A nil clock means time.Now.
func NewUserService(st store.Store, now func() time.Time) *UserService {
	return &UserService{store: st, now: clockOrDefault(now)}
}

// Signup registers a new user with a default notebook.
func (s *UserService) Signup(ctx context.Context, email, password, name string) (models.User, error) {
	email = models.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	switch {
	case email == "":
		return models.User{}, fmt.Errorf("%w: missing email", common.ErrValidation)
	case password == "":
		return models.User{}, fmt.Errorf("%w: missing password", common.ErrValidation)
	case name == "":
		return models.User{}, fmt.Errorf("%w: missing name", common.ErrValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := models.User{
		ID:           models.NewID(models.UserIDPrefix),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    models.NewTimestamp(now),
		Profile:      models.DefaultProfile(now),
	}

	err = s.store.Users().Update(ctx, func(users []models.User) ([]models.User, error) {
		for _, u := range users {
			if models.NormalizeEmail(u.Email) == email {
				return nil, fmt.Errorf("%w: email already registered", common.ErrConflict)
			}
		}
		return append(users, user), nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Login verifies credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, fmt.Errorf("%w: missing email or password", common.ErrValidation)
	}

	users, err := s.store.Users().Read(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to read users: %w", err)
	}
	for _, u := range users {
		if models.NormalizeEmail(u.Email) != email {
			continue
		}
		if !auth.VerifyPassword(password, u.PasswordHash) {
			break
		}
		loaded, found, err := loadUser(ctx, s.store, u.ID, s.now())
		if err != nil {
			return models.User{}, fmt.Errorf("failed to load user: %w", err)
		}
		if !found {
			break
		}
		return loaded, nil
	}
	return models.User{}, common.ErrInvalidCredentials
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	u, found, err := loadUser(ctx, s.store, id, s.now())
	if err != nil {
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	if !found {
		return models.User{}, fmt.Errorf("%w: no user with id %s", common.ErrNotFound, id)
	}
	return u, nil
}
