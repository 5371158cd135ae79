package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrSourceUnavailable is returned when a byte source cannot be opened or read.
var ErrSourceUnavailable = errors.New("source unavailable")

// Loader reads the full encoded contents of a sound source.
type Loader interface {
	Load(id string) ([]byte, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(id string) ([]byte, error)

// Load calls f(id)
func (f LoaderFunc) Load(id string) ([]byte, error) {
	return f(id)
}

// FileLoader reads sources from the OS filesystem, or from FS when it is set.
type FileLoader struct {
	FS fs.FS
}

// Load reads the whole file named by id
func (l FileLoader) Load(id string) ([]byte, error) {
	if l.FS != nil {
		return fs.ReadFile(l.FS, id)
	}
	return os.ReadFile(id)
}

// AudioCache holds encoded sound bytes keyed by source identifier.
// Entries are never evicted or refreshed; every identifier is loaded at most once.
type AudioCache struct {
	mu     sync.RWMutex
	cache  map[string][]byte
	size   int64
	loader Loader
	group  singleflight.Group
	logger *slog.Logger
}

// New creates an empty cache backed by loader. A nil loader reads from disk.
func New(loader Loader) *AudioCache {
	if loader == nil {
		loader = FileLoader{}
	}
	return &AudioCache{
		cache:  make(map[string][]byte),
		loader: loader,
		logger: slog.With("component", "cache"),
	}
}

// GetOrLoad returns the bytes stored under id, loading them first if needed.
//
// Concurrent callers for the same id share a single load and all receive the
// same slice. The returned slice is owned by the cache and must not be modified.
// Load failures are not cached.
func (c *AudioCache) GetOrLoad(id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("empty identifier: %w", ErrSourceUnavailable)
	}

	if data, ok := c.get(id); ok {
		return data, nil
	}

	v, err, _ := c.group.Do(id, func() (any, error) {
		// A flight for id may have completed between get and Do.
		if data, ok := c.get(id); ok {
			return data, nil
		}
		return c.load(id)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// load reads id through the loader and stores the result
func (c *AudioCache) load(id string) ([]byte, error) {
	data, err := c.loader.Load(id)
	if err != nil {
		c.logger.Debug("Failed to load source", slog.String("id", id), slog.Any("error", err))
		return nil, fmt.Errorf("failed to load %s: %w: %w", id, ErrSourceUnavailable, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.cache[id]; ok {
		return existing, nil
	}
	c.cache[id] = data
	c.size += int64(len(data))
	c.logger.Debug("Cached source", slog.String("id", id), slog.Int("bytes", len(data)))
	return data, nil
}

func (c *AudioCache) get(id string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.cache[id]
	return data, ok
}

// Contains reports whether id has been loaded
func (c *AudioCache) Contains(id string) bool {
	_, ok := c.get(id)
	return ok
}

// Len returns the number of cached sources
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Size returns the total number of cached bytes
func (c *AudioCache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// Preload loads every id, continuing past failures.
func (c *AudioCache) Preload(ids ...string) error {
	var errs []error
	for _, id := range ids {
		if _, err := c.GetOrLoad(id); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		c.logger.Warn("Preload finished with errors", slog.Int("failed", len(errs)), slog.Int("total", len(ids)))
	}
	return errors.Join(errs...)
}
