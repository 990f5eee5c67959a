package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/isdelr/notebook-be/internal/common"
	"github.com/isdelr/notebook-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

type fakeAuthenticator struct {
	sessions map[string]models.User
	err      error
	seen     []string
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, sid string) (models.User, error) {
	f.seen = append(f.seen, sid)
	if f.err != nil {
		return models.User{}, f.err
	}
	if sid == "" {
		return models.User{}, common.ErrNotAuthenticated
	}
	u, ok := f.sessions[sid]
	if !ok {
		return models.User{}, common.ErrInvalidSession
	}
	return u, nil
}

func protected(a Authenticator) http.Handler {
	return SessionMiddleware(a, testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			http.Error(w, "no user", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(user.ID + " " + SessionIDFromContext(r.Context())))
	}))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestSessionMiddleware_Cookie(t *testing.T) {
	a := &fakeAuthenticator{sessions: map[string]models.User{"sid_1": {ID: "usr_1"}}}

	req := httptest.NewRequest(http.MethodGet, "/api/notebooks", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sid_1"})
	rec := httptest.NewRecorder()
	protected(a).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "usr_1 sid_1", rec.Body.String())
}

func TestSessionMiddleware_BearerWinsOverCookie(t *testing.T) {
	a := &fakeAuthenticator{sessions: map[string]models.User{
		"sid_1": {ID: "usr_1"},
		"sid_2": {ID: "usr_2"},
	}}
	tok, err := GenerateToken("sid_2", "usr_2", testSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/notebooks", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sid_1"})
	rec := httptest.NewRecorder()
	protected(a).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "usr_2 sid_2", rec.Body.String())
}

func TestSessionMiddleware_NoCredential(t *testing.T) {
	rec := httptest.NewRecorder()
	protected(&fakeAuthenticator{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", decodeError(t, rec))
}

func TestSessionMiddleware_UnknownSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sid_gone"})
	rec := httptest.NewRecorder()
	protected(&fakeAuthenticator{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid session", decodeError(t, rec))
}

func TestSessionMiddleware_BadBearer(t *testing.T) {
	for _, header := range []string{"Bearer", "Basic abc", "Bearer not.a.jwt"} {
		a := &fakeAuthenticator{}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		protected(a).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Empty(t, a.seen, "authenticator must not be reached for %q", header)
	}
}

func TestSessionMiddleware_StoreFailure(t *testing.T) {
	a := &fakeAuthenticator{err: errors.New("disk on fire")}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sid_1"})
	rec := httptest.NewRecorder()
	protected(a).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeError(t, rec))
}
