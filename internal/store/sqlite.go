package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/isdelr/notebook-be/internal/database"
	"github.com/isdelr/notebook-be/internal/models"
)

// dbtx is the subset of *sql.DB and *sql.Tx used by the collections.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLiteStore keeps each collection in its own table, one JSON document per row.
// Updates run inside a transaction.
type SQLiteStore struct {
	db       *sql.DB
	users    *sqliteCollection[models.User]
	sessions *sqliteCollection[models.Session]
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	db, err := database.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	return &SQLiteStore{
		db:       db,
		users:    &sqliteCollection[models.User]{db: db, table: "users", idOf: userID, opts: opts},
		sessions: &sqliteCollection[models.Session]{db: db, table: "sessions", idOf: sessionID, opts: opts},
	}, nil
}

func (s *SQLiteStore) Users() Collection[models.User]       { return s.users }
func (s *SQLiteStore) Sessions() Collection[models.Session] { return s.sessions }
func (s *SQLiteStore) Backend() string                      { return "sqlite" }
func (s *SQLiteStore) Close() error                         { return s.db.Close() }

type sqliteCollection[T any] struct {
	db    *sql.DB
	table string
	idOf  func(T) string
	opts  Options
	mu    sync.Mutex
}

func (c *sqliteCollection[T]) Read(ctx context.Context) ([]T, error) {
	return c.read(ctx, c.db)
}

func (c *sqliteCollection[T]) Write(ctx context.Context, items []T) error {
	return c.Update(ctx, func([]T) ([]T, error) { return items, nil })
}

func (c *sqliteCollection[T]) Update(ctx context.Context, fn func([]T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	items, err := c.read(ctx, tx)
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	if err := c.write(ctx, tx, items); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *sqliteCollection[T]) read(ctx context.Context, q dbtx) ([]T, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT data FROM %s ORDER BY position", c.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.table, err)
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var item T
		if err := json.Unmarshal([]byte(data), &item); err != nil {
			return corrupt[T](c.table, c.opts, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (c *sqliteCollection[T]) write(ctx context.Context, q dbtx, items []T) error {
	if _, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", c.table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", c.table, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (id, position, data) VALUES (?, ?, ?)", c.table)
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", c.table, err)
		}
		if _, err := q.ExecContext(ctx, insert, c.idOf(item), i, string(data)); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", c.table, err)
		}
	}
	return nil
}
