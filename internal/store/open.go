package store

import (
	"context"
	"fmt"

	"github.com/isdelr/notebook-be/internal/config"
)

// Open returns the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	opts := Options{TolerateCorrupt: cfg.StoreTolerateCorrupt}
	switch cfg.StoreBackend {
	case config.StoreJSON:
		return NewFileStore(cfg.DataDir, opts)
	case config.StoreSQLite:
		return NewSQLiteStore(ctx, cfg.DatabasePath, opts)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
