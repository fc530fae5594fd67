// Package cache memoises query results in two tiers: an in-process LRU and
// an optional shared Redis tier guarded by a circuit breaker. Identical
// queries arriving together are computed once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/resilience"
)

const keyPrefix = "bsearch:"

// Remote is the shared tier. *pkgredis.Client implements it.
type Remote interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a snapshot of cache effectiveness.
type Stats struct {
	LocalHits    int64   `json:"local_hits"`
	RemoteHits   int64   `json:"remote_hits"`
	Misses       int64   `json:"misses"`
	Total        int64   `json:"total"`
	HitRate      float64 `json:"hit_rate"`
	LocalEntries int     `json:"local_entries"`
	Remote       string  `json:"remote"`
}

type QueryCache struct {
	local   *lru.Cache[string, *executor.SearchResult]
	remote  Remote
	breaker *resilience.CircuitBreaker
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger

	// mu is held shared while storing and exclusively by Invalidate, so a
	// result computed before an invalidation is never stored after it.
	mu  sync.RWMutex
	gen uint64

	localHits  atomic.Int64
	remoteHits atomic.Int64
	misses     atomic.Int64
}

// New creates a cache with cfg.LocalSize local entries. remote and m may be
// nil.
func New(cfg config.CacheConfig, remote Remote, ttl time.Duration, m *metrics.Metrics) (*QueryCache, error) {
	size := cfg.LocalSize
	if size <= 0 {
		size = 1024
	}
	local, err := lru.New[string, *executor.SearchResult](size)
	if err != nil {
		return nil, fmt.Errorf("creating local cache: %w", err)
	}
	return &QueryCache{
		local:   local,
		remote:  remote,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{}),
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}, nil
}

// GetOrCompute returns the cached result for (query, limit) or runs compute
// and stores its result. The bool reports a cache hit. Errors from compute
// are returned as is and never cached.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	compute func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	key := Key(query, limit)
	gen := c.generation()
	if result, ok := c.get(ctx, gen, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(strconv.FormatUint(gen, 10)+"/"+key, func() (interface{}, error) {
		if result, ok := c.local.Get(key); ok {
			return result, nil
		}
		result, err := compute()
		if err != nil {
			return nil, err
		}
		if !c.store(ctx, gen, key, result, true) {
			c.logger.Debug("dropping result computed before invalidation", "key", key)
		}
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
	return val.(*executor.SearchResult), false, nil
}

func (c *QueryCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *QueryCache) get(ctx context.Context, gen uint64, key string) (*executor.SearchResult, bool) {
	if result, ok := c.local.Get(key); ok {
		c.hit("local", &c.localHits)
		return result, true
	}
	if c.remote == nil {
		return nil, false
	}

	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.remote.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Warn("remote cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	if data == "" {
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("remote cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	if !c.store(ctx, gen, key, &result, false) {
		return nil, false
	}
	c.hit("remote", &c.remoteHits)
	return &result, true
}

// store adds result under key unless the cache was invalidated since gen
// was read. The shared tier is written only when remote is set.
func (c *QueryCache) store(ctx context.Context, gen uint64, key string, result *executor.SearchResult, remote bool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gen != gen {
		return false
	}
	c.local.Add(key, result)
	if remote {
		c.setRemote(ctx, key, result)
	}
	return true
}

func (c *QueryCache) setRemote(ctx context.Context, key string, result *executor.SearchResult) {
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.remote.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("remote cache set failed", "key", key, "error", err)
	}
}

func (c *QueryCache) hit(tier string, counter *atomic.Int64) {
	counter.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(tier).Inc()
	}
}

// Invalidate drops every cached result, locally and in the shared tier.
// Results still being computed when it runs are returned to their callers
// but not stored.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	purged := c.local.Len()
	c.local.Purge()
	if c.remote == nil {
		c.logger.Info("cache invalidated", "local_entries", purged)
		return nil
	}
	deleted, err := c.remote.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating remote cache: %w", err)
	}
	c.logger.Info("cache invalidated", "local_entries", purged, "remote_keys", deleted)
	return nil
}

// Stats returns hit and miss counters since creation.
func (c *QueryCache) Stats() Stats {
	s := Stats{
		LocalHits:    c.localHits.Load(),
		RemoteHits:   c.remoteHits.Load(),
		Misses:       c.misses.Load(),
		LocalEntries: c.local.Len(),
		Remote:       "disabled",
	}
	s.Total = s.LocalHits + s.RemoteHits + s.Misses
	if s.Total > 0 {
		s.HitRate = float64(s.LocalHits+s.RemoteHits) / float64(s.Total) * 100
	}
	if c.remote != nil {
		s.Remote = c.breaker.GetState().String()
	}
	return s
}

// Key derives the cache key of a query. Boolean queries are keyed by their
// parsed form, so spacing differences share an entry; plain queries by
// their exact text.
func Key(query string, limit int) string {
	normalized := "term:" + query
	if parser.IsBoolean(query) {
		if n, err := parser.Parse(query); err == nil {
			normalized = "bool:" + n.String()
		} else {
			normalized = "raw:" + query
		}
	}
	raw := fmt.Sprintf("%s|limit=%d", normalized, limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
