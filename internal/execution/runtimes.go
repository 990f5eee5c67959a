package execution

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/isdelr/notebook-be/internal/common"
)

// Runtime is a language installation advertised by the remote execution service.
type Runtime struct {
	Language string   `json:"language"`
	Version  string   `json:"version"`
	Aliases  []string `json:"aliases"`
}

// RuntimeLister fetches the currently installed runtimes.
type RuntimeLister interface {
	Runtimes(ctx context.Context) ([]Runtime, error)
}

// RuntimeCache memoizes the runtime list for a fixed TTL.
type RuntimeCache struct {
	source RuntimeLister
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	fetchedAt time.Time
	items     []Runtime
}

// NewRuntimeCache creates a cache over source. A nil clock means time.Now.
func NewRuntimeCache(source RuntimeLister, ttl time.Duration, now func() time.Time) *RuntimeCache {
	if now == nil {
		now = time.Now
	}
	return &RuntimeCache{source: source, ttl: ttl, now: now}
}

// Version resolves language, or one of its aliases, to an installed version.
func (c *RuntimeCache) Version(ctx context.Context, language string) (string, error) {
	items, err := c.list(ctx)
	if err != nil {
		return "", err
	}

	for _, rt := range items {
		if strings.EqualFold(rt.Language, language) {
			return rt.Version, nil
		}
		for _, alias := range rt.Aliases {
			if strings.EqualFold(alias, language) {
				return rt.Version, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", common.ErrLanguageUnavailable, language)
}

func (c *RuntimeCache) list(ctx context.Context) ([]Runtime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.items != nil && now.Sub(c.fetchedAt) <= c.ttl {
		return c.items, nil
	}

	items, err := c.source.Runtimes(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Runtime{}
	}
	c.items, c.fetchedAt = items, now
	return items, nil
}
