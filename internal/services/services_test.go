package services

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/notebook-be/internal/common"
	"github.com/isdelr/notebook-be/internal/models"
	"github.com/isdelr/notebook-be/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a fixed time that only moves when advanced.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir(), store.Options{})
	require.NoError(t, err)
	return st
}

func signup(t *testing.T, users *UserService, email string) models.User {
	t.Helper()
	u, err := users.Signup(context.Background(), email, "hunter2", "Ada")
	require.NoError(t, err)
	return u
}

func TestUserService_Signup(t *testing.T) {
	ctx := context.Background()
	users := NewUserService(newTestStore(t), nil)

	u, err := users.Signup(ctx, "  Ada@Example.COM ", "hunter2", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Contains(t, u.ID, "usr_")
	require.NotNil(t, u.Profile)
	require.Len(t, u.Profile.Notebooks, 1)
	assert.Len(t, u.Profile.Notebooks[0].Cells, 1)

	_, err = users.Signup(ctx, "ADA@example.com", "other", "Imposter")
	assert.ErrorIs(t, err, common.ErrConflict)

	for _, tc := range []struct{ email, password, name string }{
		{"", "pw", "n"},
		{"a@b.c", "", "n"},
		{"a@b.c", "pw", " "},
	} {
		_, err := users.Signup(ctx, tc.email, tc.password, tc.name)
		assert.ErrorIs(t, err, common.ErrValidation)
	}
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()
	users := NewUserService(newTestStore(t), nil)
	created := signup(t, users, "ada@example.com")

	u, err := users.Login(ctx, "ADA@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = users.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = users.Login(ctx, "nobody@example.com", "hunter2")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = users.Login(ctx, "", "hunter2")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = users.GetUserByID(ctx, "usr_missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSessionService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	clock := newFakeClock()
	users := NewUserService(st, clock.Now)
	sessions := NewSessionService(st, clock.Now)
	u := signup(t, users, "ada@example.com")

	sess, err := sessions.CreateSession(ctx, u.ID)
	require.NoError(t, err)
	assert.Contains(t, sess.SID, "sid_")

	clock.Advance(time.Minute)
	got, err := sessions.Authenticate(ctx, sess.SID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	stored, err := st.Sessions().Read(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, clock.Now().UnixMilli(), stored[0].LastSeenAt.Millis())

	_, err = sessions.Authenticate(ctx, "")
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)

	_, err = sessions.Authenticate(ctx, "sid_unknown")
	assert.ErrorIs(t, err, common.ErrInvalidSession)

	require.NoError(t, sessions.Revoke(ctx, sess.SID))
	require.NoError(t, sessions.Revoke(ctx, sess.SID))
	require.NoError(t, sessions.Revoke(ctx, ""))

	_, err = sessions.Authenticate(ctx, sess.SID)
	assert.ErrorIs(t, err, common.ErrInvalidSession)
}

func TestSessionService_DanglingUser(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sessions := NewSessionService(st, nil)

	sess, err := sessions.CreateSession(ctx, "usr_gone")
	require.NoError(t, err)

	_, err = sessions.Authenticate(ctx, sess.SID)
	assert.ErrorIs(t, err, common.ErrInvalidSession)
}

func TestUserLookupsPersistProfileRepair(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	users := NewUserService(st, nil)
	sessions := NewSessionService(st, nil)
	notebooks := NewNotebookService(st, nil)
	u := signup(t, users, "ada@example.com")
	sess, err := sessions.CreateSession(ctx, u.ID)
	require.NoError(t, err)

	stripProfile := func() {
		require.NoError(t, st.Users().Update(ctx, func(all []models.User) ([]models.User, error) {
			all[0].Profile = nil
			return all, nil
		}))
	}

	lookups := map[string]func() (models.User, error){
		"authenticate": func() (models.User, error) { return sessions.Authenticate(ctx, sess.SID) },
		"login":        func() (models.User, error) { return users.Login(ctx, "ada@example.com", "hunter2") },
		"by id":        func() (models.User, error) { return users.GetUserByID(ctx, u.ID) },
	}
	for name, lookup := range lookups {
		t.Run(name, func(t *testing.T) {
			stripProfile()
			got, err := lookup()
			require.NoError(t, err)
			require.Len(t, got.Profile.Notebooks, 1)
			nb := got.Profile.Notebooks[0]

			stored, err := notebooks.Get(ctx, u.ID, nb.ID)
			require.NoError(t, err)
			assert.Equal(t, nb, stored)

			again, err := lookup()
			require.NoError(t, err)
			assert.Equal(t, got.Profile, again.Profile)
		})
	}
}

func TestNotebookService_CreateListGet(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := signup(t, NewUserService(st, nil), "ada@example.com")
	notebooks := NewNotebookService(st, nil)

	nb, err := notebooks.Create(ctx, u.ID, NotebookInput{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultNotebookTitle, nb.Title)
	require.Len(t, nb.Cells, 1)
	assert.Equal(t, models.LanguagePython, nb.Cells[0].Language)
	assert.Equal(t, nb.CreatedAt, nb.UpdatedAt)

	empty := []models.Cell{}
	nb2, err := notebooks.Create(ctx, u.ID, NotebookInput{Title: ptr("Second"), Cells: &empty})
	require.NoError(t, err)
	assert.Len(t, nb2.Cells, 1, "empty cells fall back to the default cell")

	list, err := notebooks.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, nb2.ID, list[0].ID, "newest first")
	assert.Equal(t, nb.ID, list[1].ID)

	got, err := notebooks.Get(ctx, u.ID, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, nb.ID, got.ID)

	_, err = notebooks.Get(ctx, u.ID, "nbk_missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = notebooks.List(ctx, "usr_missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNotebookService_CreateValidatesCells(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := signup(t, NewUserService(st, nil), "ada@example.com")
	notebooks := NewNotebookService(st, nil)

	cells := []models.Cell{{Language: "js", Code: "console.log(1)"}, {Language: "C++", Code: "int main(){}"}}
	nb, err := notebooks.Create(ctx, u.ID, NotebookInput{Cells: &cells})
	require.NoError(t, err)
	require.Len(t, nb.Cells, 2)
	assert.Equal(t, models.LanguageJavaScript, nb.Cells[0].Language)
	assert.Equal(t, models.LanguageCpp, nb.Cells[1].Language)
	assert.NotEmpty(t, nb.Cells[0].ID)

	dup := []models.Cell{{ID: "c1", Language: "py"}, {ID: "c1", Language: "py"}, {ID: "c2", Language: "py"}}
	nb, err = notebooks.Update(ctx, u.ID, nb.ID, NotebookInput{Cells: &dup})
	require.NoError(t, err)
	require.Len(t, nb.Cells, 3)
	assert.Equal(t, "c1", nb.Cells[0].ID)
	assert.NotEqual(t, "c1", nb.Cells[1].ID)
	assert.NotEmpty(t, nb.Cells[1].ID)
	assert.Equal(t, "c2", nb.Cells[2].ID)

	bad := []models.Cell{{Language: "ruby"}}
	_, err = notebooks.Create(ctx, u.ID, NotebookInput{Cells: &bad})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestNotebookService_Update(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	clock := newFakeClock()
	u := signup(t, NewUserService(st, clock.Now), "ada@example.com")
	notebooks := NewNotebookService(st, clock.Now)

	nb, err := notebooks.Create(ctx, u.ID, NotebookInput{Title: ptr("Draft")})
	require.NoError(t, err)

	// Clock has not moved: updatedAt must still advance.
	updated, err := notebooks.Update(ctx, u.ID, nb.ID, NotebookInput{Title: ptr("Final")})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, nb.Cells, updated.Cells)
	assert.Greater(t, updated.UpdatedAt.Millis(), nb.UpdatedAt.Millis())
	assert.Equal(t, nb.CreatedAt, updated.CreatedAt)

	clock.Advance(time.Second)
	cells := []models.Cell{{ID: "cell_keep", Language: models.LanguageCpp, Code: "int main(){}"}}
	updated2, err := notebooks.Update(ctx, u.ID, nb.ID, NotebookInput{Cells: &cells})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated2.Title)
	require.Len(t, updated2.Cells, 1)
	assert.Equal(t, "cell_keep", updated2.Cells[0].ID)
	assert.Equal(t, clock.Now().UnixMilli(), updated2.UpdatedAt.Millis())

	got, err := notebooks.Get(ctx, u.ID, nb.ID)
	require.NoError(t, err)
	assert.Equal(t, updated2, got)

	_, err = notebooks.Update(ctx, u.ID, "nbk_missing", NotebookInput{Title: ptr("x")})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNotebookService_ConcurrentUpdatesLastWriterWins(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := signup(t, NewUserService(st, nil), "ada@example.com")
	notebooks := NewNotebookService(st, nil)
	nb, err := notebooks.Create(ctx, u.ID, NotebookInput{})
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := notebooks.Update(ctx, u.ID, nb.ID, NotebookInput{Title: ptr(fmt.Sprintf("title %d", i))})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := notebooks.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2, "no notebook may be lost or duplicated")

	got, err := notebooks.Get(ctx, u.ID, nb.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^title \d+$`, got.Title)
	assert.GreaterOrEqual(t, got.UpdatedAt.Millis(), nb.UpdatedAt.Millis()+n)
}

func TestNotebookService_MigrateProfiles(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	require.NoError(t, st.Users().Write(ctx, []models.User{
		{ID: "usr_1", Email: "a@example.com"},
		{ID: "usr_2", Email: "b@example.com", Profile: models.DefaultProfile(time.Now())},
	}))
	notebooks := NewNotebookService(st, nil)

	changed, err := notebooks.MigrateProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	users, err := st.Users().Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, users[0].Profile)
	assert.Len(t, users[0].Profile.Notebooks, 1)

	changed, err = notebooks.MigrateProfiles(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestNotebookService_MigrateProfilesKeepsValidSiblings(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	raw := `[{"id":"usr_1","email":"a@example.com","profile":{"notebooks":[
		{"id":"nbk_keep","title":"Keep","createdAt":1700000000000,"updatedAt":1700000000000,
		 "cells":[{"id":"c1","language":"python","code":"important"},{"id":"c2","language":"python","code":"x","stdout":7}]},
		{"id":"nbk_bad","title":5}
	]}}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte(raw), 0o644))
	st, err := store.NewFileStore(dir, store.Options{})
	require.NoError(t, err)

	changed, err := NewNotebookService(st, nil).MigrateProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	users, err := st.Users().Read(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	notebooks := users[0].Profile.Notebooks
	require.Len(t, notebooks, 2)
	assert.Equal(t, "nbk_keep", notebooks[0].ID)
	require.Len(t, notebooks[0].Cells, 2)
	assert.Equal(t, "important", notebooks[0].Cells[0].Code)
	assert.Equal(t, "c2", notebooks[0].Cells[1].ID)
	assert.Equal(t, "nbk_bad", notebooks[1].ID)
	assert.Len(t, notebooks[1].Cells, 1)
}

func TestBackupService_CreateAndPrune(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	signup(t, NewUserService(st, nil), "ada@example.com")

	clock := newFakeClock()
	dir := filepath.Join(t.TempDir(), "backups")
	backups := NewBackupService(st, dir, 2, clock.Now)

	first, err := backups.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "notebooks_20240501120000.zip", first.Name)
	assert.Positive(t, first.Size)

	r, err := zip.OpenReader(first.Path)
	require.NoError(t, err)
	names := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names[f.Name] = string(data)
	}
	r.Close()
	assert.Contains(t, names["users.json"], "ada@example.com")
	assert.Contains(t, names, "sessions.json")

	for i := 0; i < 2; i++ {
		clock.Advance(time.Hour)
		_, err := backups.CreateBackup(ctx)
		require.NoError(t, err)
	}

	list, err := backups.ListBackups()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "notebooks_20240501140000.zip", list[0].Name)
	assert.Equal(t, "notebooks_20240501130000.zip", list[1].Name)

	_, err = os.Stat(first.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestBackupService_SameSecondDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	signup(t, NewUserService(st, nil), "ada@example.com")
	backups := NewBackupService(st, t.TempDir(), 0, newFakeClock().Now)

	first, err := backups.CreateBackup(ctx)
	require.NoError(t, err)
	second, err := backups.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "notebooks_20240501120000.zip", first.Name)
	assert.Equal(t, "notebooks_20240501120000_1.zip", second.Name)

	list, err := backups.ListBackups()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Name, list[0].Name)
	assert.True(t, list[0].CreatedAt.Equal(list[1].CreatedAt))
}

func ptr[T any](v T) *T { return &v }
