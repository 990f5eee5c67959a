package services

import (
	"context"
	"errors"
	"time"

	"github.com/isdelr/notebook-be/internal/models"
	"github.com/isdelr/notebook-be/internal/store"
)

// errUnchanged aborts a collection update without writing anything.
var errUnchanged = errors.New("unchanged")

func ignoreUnchanged(err error) error {
	if errors.Is(err, errUnchanged) {
		return nil
	}
	return err
}

func clockOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

// loadUser returns the stored user with the given id. A profile repair made
// while loading is persisted so that the notebook and cell ids the caller
// hands out can be addressed afterwards.
func loadUser(ctx context.Context, st store.Store, id string, now time.Time) (models.User, bool, error) {
	var (
		user  models.User
		found bool
	)
	err := st.Users().Update(ctx, func(users []models.User) ([]models.User, error) {
		for i := range users {
			if users[i].ID != id {
				continue
			}
			found = true
			repaired := models.NormalizeUser(&users[i], now)
			user = users[i]
			if !repaired {
				return nil, errUnchanged
			}
			return users, nil
		}
		return nil, errUnchanged
	})
	return user, found, ignoreUnchanged(err)
}
