// Package exportcache memoizes rendered export files. A cache fault never
// fails an export; it only costs a re-render.
package exportcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/geobuffer/internal/cache"
	"github.com/mohammed-shakir/geobuffer/internal/cache/keys"
	"github.com/mohammed-shakir/geobuffer/internal/core/model"
)

type Cache struct {
	store   cache.Interface
	ttl     time.Duration
	timeout time.Duration
	log     *slog.Logger
}

// New returns nil when store is nil; a nil *Cache renders every time.
func New(store cache.Interface, ttl, opTimeout time.Duration, log *slog.Logger) *Cache {
	if store == nil {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	return &Cache{store: store, ttl: ttl, timeout: opTimeout, log: log}
}

// GetOrRender returns the cached bytes for the inputs or calls render and
// stores its result. Errors from render are returned untouched and nothing
// is stored.
func (c *Cache) GetOrRender(
	ctx context.Context,
	format string,
	points []model.Point,
	cfg model.BufferConfig,
	render func() ([]byte, error),
) ([]byte, error) {
	if c == nil {
		return render()
	}
	key := keys.ExportKey(format, points, cfg)

	gctx, cancel := context.WithTimeout(ctx, c.timeout)
	b, ok, err := c.store.Get(gctx, key)
	cancel()
	if err != nil {
		c.log.WarnContext(ctx, "export cache get failed", "key", key, "err", err)
	} else if ok {
		return b, nil
	}

	b, err = render()
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.Set(sctx, key, b, c.ttl); err != nil {
		c.log.WarnContext(ctx, "export cache set failed", "key", key, "err", err)
	}
	return b, nil
}
