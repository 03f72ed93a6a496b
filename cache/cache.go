// Package cache is a partitioned, TTL-bounded read-through cache for
// externally fetched activity collections.
//
// Caching never breaks the data path: storage failures are logged and
// counted, and the caller falls back to a direct fetch. A Store without
// persistent storage behaves as an always-miss no-op.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	standup "github.com/chimerakang/standup-go"
	"github.com/chimerakang/standup-go/metrics"
	"golang.org/x/sync/singleflight"
)

// EnvPath overrides the location of the default cache database.
const EnvPath = "STANDUP_CACHE_PATH"

// Store is a partitioned cache over a Backend.
// A nil *Store is valid and never caches.
type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics

	sf singleflight.Group
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the maximum entry age. Default: standup.DefaultCacheTTL.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithClock replaces time.Now for expiry checks and write timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records hits, misses and swallowed storage errors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a store over backend. A nil backend never caches.
func New(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = nopBackend{}
	}
	s := &Store{
		backend: backend,
		ttl:     standup.DefaultCacheTTL,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open creates a store persisted in the sqlite file at path. An empty path or
// a database that cannot be opened yields a store that never caches.
func Open(path string, opts ...Option) *Store {
	s := New(nil, opts...)
	if path == "" {
		s.logger.Debug("cache storage unavailable, caching disabled")
		return s
	}
	b, err := OpenSQLite(path)
	if err != nil {
		s.logger.Warn("cache storage unavailable, caching disabled", "path", path, "error", err)
		return s
	}
	s.backend = b
	return s
}

// DefaultPath returns $STANDUP_CACHE_PATH, or standup/cache.db under the
// user cache directory. It returns "" when neither is available.
func DefaultPath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "standup", "cache.db")
}

var defaultStore = sync.OnceValue(func() *Store { return Open(DefaultPath()) })

// Default returns the process-wide store, opening it on first use.
// Concurrent first callers share one open attempt.
func Default() *Store { return defaultStore() }

// Persistent reports whether entries survive beyond this store.
func (s *Store) Persistent() bool {
	if s == nil {
		return false
	}
	_, nop := s.backend.(nopBackend)
	return !nop
}

// Close releases the backend.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.backend.Close()
}

// Clear empties the given partitions, or all of them when none are given.
// Storage errors are logged, not returned; unknown partitions are rejected.
func (s *Store) Clear(ctx context.Context, partitions ...standup.Partition) error {
	if len(partitions) == 0 {
		partitions = standup.Partitions
	}
	for _, p := range partitions {
		if !p.Valid() {
			return fmt.Errorf("standup/cache: unknown partition %q", p)
		}
	}
	if s == nil {
		return nil
	}
	if err := s.backend.Clear(ctx, partitions...); err != nil {
		s.fail(partitions[0], "clear", err)
	}
	return nil
}

func (s *Store) fail(p standup.Partition, op string, err error) {
	s.logger.Warn("cache storage error, falling back to direct fetch",
		"partition", p, "op", op, "error", err)
	s.metrics.RecordCacheError(string(p), op)
}

// load returns the raw payload of a fresh entry.
func (s *Store) load(ctx context.Context, p standup.Partition, key string) ([]byte, bool) {
	data, ts, ok, err := s.backend.Load(ctx, p, key)
	if err != nil {
		s.fail(p, "get", err)
		return nil, false
	}
	if !ok || s.now().UnixMilli()-ts >= s.ttl.Milliseconds() {
		s.metrics.RecordCacheMiss(string(p))
		return nil, false
	}
	s.metrics.RecordCacheHit(string(p))
	return data, true
}

// Get returns the cached value for key if it is younger than the TTL.
// Stale rows are ignored, not removed.
func Get[T any](ctx context.Context, s *Store, p standup.Partition, key string) (T, bool) {
	var zero T
	if s == nil || !p.Valid() {
		return zero, false
	}
	data, ok := s.load(ctx, p, key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		s.fail(p, "decode", err)
		return zero, false
	}
	return v, true
}

// Set upserts value under key with a fresh timestamp.
// Storage errors are logged, not returned.
func Set[T any](ctx context.Context, s *Store, p standup.Partition, key string, value T) error {
	if !p.Valid() {
		return fmt.Errorf("standup/cache: unknown partition %q", p)
	}
	if s == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("standup/cache: encode %s/%s: %w", p, key, err)
	}
	if err := s.backend.Store(ctx, p, key, data, s.now().UnixMilli()); err != nil {
		s.fail(p, "set", err)
	}
	return nil
}

// GetOrFetch returns the cached value, or calls fetch and caches its result.
// Fetch errors are returned and never cached. Concurrent misses for the same
// key share a single fetch; it is detached from any one caller's
// cancellation, and each caller stops waiting when its own ctx is done.
func GetOrFetch[T any](ctx context.Context, s *Store, p standup.Partition, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if s == nil || !p.Valid() {
		return fetch(ctx)
	}
	if v, ok := Get[T](ctx, s, p, key); ok {
		return v, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(string(p)+"\x00"+key, func() (any, error) {
		v, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		if err := Set(shared, s, p, key, v); err != nil {
			s.fail(p, "set", err)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}
