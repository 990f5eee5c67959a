package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/isdelr/notebook-be/internal/models"
)

const (
	usersFile    = "users.json"
	sessionsFile = "sessions.json"
)

// FileStore keeps each collection in its own JSON file.
type FileStore struct {
	users    *fileCollection[models.User]
	sessions *fileCollection[models.Session]
}

// NewFileStore creates dir and empty collection files when they are missing.
func NewFileStore(dir string, opts Options) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{
		users:    &fileCollection[models.User]{name: "users", path: filepath.Join(dir, usersFile), opts: opts},
		sessions: &fileCollection[models.Session]{name: "sessions", path: filepath.Join(dir, sessionsFile), opts: opts},
	}
	if err := s.users.ensure(); err != nil {
		return nil, err
	}
	if err := s.sessions.ensure(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Users() Collection[models.User]       { return s.users }
func (s *FileStore) Sessions() Collection[models.Session] { return s.sessions }
func (s *FileStore) Backend() string                      { return "json" }
func (s *FileStore) Close() error                         { return nil }

type fileCollection[T any] struct {
	name string
	path string
	opts Options
	mu   sync.Mutex
}

func (c *fileCollection[T]) Read(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

func (c *fileCollection[T]) Write(ctx context.Context, items []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(items)
}

func (c *fileCollection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.read()
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	return c.write(items)
}

func (c *fileCollection[T]) ensure() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := os.Stat(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return c.write(nil)
	}
	return err
}

func (c *fileCollection[T]) read() ([]T, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := c.write(nil); err != nil {
			return nil, err
		}
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.path, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return corrupt[T](c.name, c.opts, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// write replaces the file atomically via a temp file and rename.
func (c *fileCollection[T]) write(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", c.name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", c.name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", c.name, err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", c.path, err)
	}
	return nil
}
