package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"github.com/roach88/capsule/internal/cache"
	"github.com/roach88/capsule/internal/config"
	"github.com/roach88/capsule/internal/graph"
	"github.com/roach88/capsule/internal/store"
)

// errMalformed marks wire files that do not parse as a graph.
var errMalformed = errors.New("malformed graph")

// repository is the store fronted by the optional Redis cache.
type repository struct {
	store  *store.Store
	cache  *cache.Cache
	logger *log.Logger
}

// openRepository opens the configured store. An unreachable cache is
// logged and skipped; the store alone is authoritative.
func openRepository(ctx context.Context, cfg *config.Config, l *log.Logger) (*repository, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	repo := &repository{store: st, logger: l}

	if cfg.Cache.Enabled() {
		c, err := cache.New(ctx, cache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			Prefix:   cfg.Cache.Prefix,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			l.Warn("cache unavailable, continuing without it", "addr", cfg.Cache.Addr, "err", err)
		} else {
			repo.cache = c
		}
	}
	return repo, nil
}

func (r *repository) Close() error {
	if r.cache != nil {
		if err := r.cache.Close(); err != nil {
			r.logger.Warn("closing cache", "err", err)
		}
	}
	return r.store.Close()
}

// load resolves ref (graph ID or label) to a graph. The cache is keyed by
// ID, so labels always go through the store.
func (r *repository) load(ctx context.Context, ref string) (string, *graph.Graph, error) {
	if r.cache != nil {
		g, err := r.cache.Get(ctx, ref)
		switch {
		case err == nil:
			r.logger.Debug("cache hit", "id", ref)
			return ref, g, nil
		case !cache.IsMiss(err):
			r.logger.Warn("cache read failed", "id", ref, "err", err)
		}
	}

	id, g, err := r.store.Load(ctx, ref)
	if err != nil {
		return "", nil, err
	}
	if r.cache != nil {
		if _, err := r.cache.Put(ctx, g); err != nil {
			r.logger.Warn("cache write failed", "id", id, "err", err)
		}
	}
	return id, g, nil
}

// save stores g and points label at it when label is set.
func (r *repository) save(ctx context.Context, g *graph.Graph, label string) (string, bool, error) {
	id, inserted, err := r.store.Put(ctx, g)
	if err != nil {
		return "", false, err
	}
	if label != "" {
		if err := r.store.Label(ctx, label, id); err != nil {
			return "", false, err
		}
	}
	if r.cache != nil {
		if _, err := r.cache.Put(ctx, g); err != nil {
			r.logger.Warn("cache write failed", "id", id, "err", err)
		}
	}
	return id, inserted, nil
}

// remove deletes the graph ref names from the store and evicts it from
// the cache. evicted reports whether the cache held it.
func (r *repository) remove(ctx context.Context, ref string) (id string, labels []string, evicted bool, err error) {
	id, err = r.store.Resolve(ctx, ref)
	if err != nil {
		return "", nil, false, err
	}
	labels, err = r.store.Delete(ctx, id)
	if err != nil {
		return "", nil, false, err
	}

	if r.cache != nil {
		cached, err := r.cache.Exists(ctx, id)
		if err != nil {
			r.logger.Warn("cache lookup failed", "id", id, "err", err)
		}
		if err := r.cache.Delete(ctx, id); err != nil {
			r.logger.Warn("cache eviction failed", "id", id, "err", err)
		} else {
			evicted = cached
		}
	}
	return id, labels, evicted, nil
}

// loadGraph reads ref as a wire file when such a file exists, and
// otherwise looks it up in the store by ID or label.
func loadGraph(ctx context.Context, cfg *config.Config, l *log.Logger, ref string) (string, *graph.Graph, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		data, err := os.ReadFile(ref)
		if err != nil {
			return "", nil, err
		}
		g, err := graph.Parse(data)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w: %w", ref, errMalformed, err)
		}
		id, err := graph.ID(g)
		if err != nil {
			return "", nil, err
		}
		l.Debug("graph read from file", "path", ref, "id", id)
		return id, g, nil
	}

	repo, err := openRepository(ctx, cfg, l)
	if err != nil {
		return "", nil, err
	}
	defer repo.Close()
	return repo.load(ctx, ref)
}

// classify maps a graph loading error to an exit code and error code.
func classify(err error) (int, string) {
	var de *graph.DeserializationError
	switch {
	case errors.As(err, &de), errors.Is(err, errMalformed):
		return ExitFailure, ErrCodeDecodeFailed
	case errors.Is(err, store.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ExitCommandError, ErrCodeNotFound
	case errors.Is(err, fs.ErrPermission):
		return ExitCommandError, ErrCodeReadFailed
	}
	return ExitCommandError, ErrCodeStoreFailed
}
