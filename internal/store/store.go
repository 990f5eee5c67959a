// Package store persists the two collections of the service: users (with
// their embedded notebook profiles) and sessions.
//
// Every collection is read and written as a whole. Update performs a
// read-mutate-write cycle while holding the collection's lock, so concurrent
// updates are serialized and none is lost; the last one to run wins.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/notebook-be/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrCorrupt is returned when persisted data cannot be decoded.
var ErrCorrupt = errors.New("corrupt storage")

// Collection is an ordered sequence of records persisted as a unit.
type Collection[T any] interface {
	Read(ctx context.Context) ([]T, error)
	Write(ctx context.Context, items []T) error
	// Update applies fn to the current contents and persists the result.
	// Nothing is written when fn returns an error.
	Update(ctx context.Context, fn func(items []T) ([]T, error)) error
}

// Store gives access to the persisted collections.
type Store interface {
	Users() Collection[models.User]
	Sessions() Collection[models.Session]
	Backend() string
	Close() error
}

// Options tune store behavior shared by all backends.
type Options struct {
	// TolerateCorrupt makes undecodable collections read as empty instead of
	// failing. Data is silently lost on the next write, so it is off by default.
	TolerateCorrupt bool
}

func corrupt[T any](collection string, opts Options, cause error) ([]T, error) {
	if opts.TolerateCorrupt {
		log.Warn().Err(cause).Str("collection", collection).Msg("Corrupt collection, treating as empty")
		return []T{}, nil
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, collection, cause)
}

func userID(u models.User) string       { return u.ID }
func sessionID(s models.Session) string { return s.SID }
