package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/isdelr/notebook-be/internal/auth"
	"github.com/isdelr/notebook-be/internal/common"
	"github.com/isdelr/notebook-be/internal/models"
	"github.com/isdelr/notebook-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles signup, login and session lifecycle requests.
type AuthHandler struct {
	users    services.UserServiceProvider
	sessions services.SessionServiceProvider
	secret   []byte
	tokenTTL time.Duration
	secure   bool
}

// NewAuthHandler creates a new AuthHandler. secure marks cookies Secure.
func NewAuthHandler(users services.UserServiceProvider, sessions services.SessionServiceProvider, secret []byte, tokenTTL time.Duration, secure bool) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, secret: secret, tokenTTL: tokenTTL, secure: secure}
}

// SignupPayload defines the structure for registration requests.
type SignupPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	User    models.PublicUser `json:"user"`
	Session models.Session    `json:"session"`
	Token   string            `json:"token"`
}

// Signup handles new user registration and starts a session.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload SignupPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	if payload.Email == "" || payload.Password == "" || payload.Name == "" {
		writeError(w, r, fmt.Errorf("%w: missing name, email or password", common.ErrValidation))
		return
	}

	user, err := h.users.Signup(r.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("user_id", user.ID).Msg("User registered")

	h.startSession(w, r, user, http.StatusCreated)
}

// Login handles user authentication and starts a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.users.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.startSession(w, r, user, http.StatusOK)
}

// Me returns the currently authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, r, common.ErrNotAuthenticated)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// Logout revokes the presented session, if any, and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid, err := auth.SessionIDFromRequest(r, h.secret)
	if err != nil {
		log.Debug().Err(err).Msg("Ignoring unusable credential on logout")
	}
	if sid != "" {
		if err := h.sessions.Revoke(r.Context(), sid); err != nil {
			writeError(w, r, err)
			return
		}
	}

	auth.ClearSessionCookie(w, h.secure)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user models.User, status int) {
	session, err := h.sessions.CreateSession(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := auth.GenerateToken(session.SID, user.ID, h.secret, h.tokenTTL)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate session token")
		writeError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, session.SID, h.secure)
	writeJSON(w, status, AuthResponse{User: user.Public(), Session: session, Token: token})
}
