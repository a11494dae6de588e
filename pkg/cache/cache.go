// Package cache provides the two-tier memoization layer that fronts every
// external call: a shared remote store (Redis) with an in-process fallback.
// Cache failures never propagate to callers; a broken cache degrades to a
// miss, and only the wrapped operation's own error is ever re-raised.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ize202/slipshark/pkg/config"
	"github.com/ize202/slipshark/pkg/models"
)

// Service owns both cache tiers. Entries outlive any single request and are
// shared across requests with matching keys. Construct once and inject.
type Service struct {
	cfg     config.CacheConfig
	logger  *zap.Logger
	enabled bool
	remote  remoteTier // nil when the remote tier is disabled

	mu     sync.Mutex
	locals map[time.Duration]*localStore

	done chan struct{}
	wg   sync.WaitGroup

	remoteHits   atomic.Int64
	remoteMisses atomic.Int64
	localHits    atomic.Int64
	localMisses  atomic.Int64
	storeErrors  atomic.Int64
}

// NewService builds a Service from configuration. Remote-store availability
// is determined once here: if the Redis URL is absent or the probe fails,
// the local tier becomes the sole cache for the life of the process.
func NewService(cfg config.CacheConfig, logger *zap.Logger) *Service {
	s := &Service{
		cfg:     cfg,
		logger:  logger,
		enabled: cfg.Enabled,
		locals:  make(map[time.Duration]*localStore),
		done:    make(chan struct{}),
	}
	if !cfg.Enabled {
		logger.Info("cache disabled by configuration")
		return s
	}

	if cfg.RedisURL != "" {
		remote, err := dialRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, running local-only cache", zap.Error(err))
		} else {
			s.remote = remote
			logger.Info("remote cache tier initialized")
		}
	} else {
		logger.Info("no redis_url configured, running local-only cache")
	}

	s.wg.Add(1)
	go s.sweepLoop()
	return s
}

// Do wraps fetch with both cache tiers. On a hit the fetch is skipped; on a
// miss the fetch runs and its result is stored in both tiers (remote
// best-effort, local always). A fetch error is returned unchanged and
// nothing is cached. Concurrent misses for the same key each run fetch and
// each write; identical requests are not de-duplicated.
func Do[T any](ctx context.Context, s *Service, req Request, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	if s == nil || !s.enabled {
		return fetch(ctx)
	}

	key := DeriveKey(req)
	ttl := s.cfg.TTLFor(req.Operation())
	now := time.Now()

	if data, ok := s.remoteGet(ctx, key); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		s.logger.Warn("corrupt remote cache entry, refetching", zap.String("key", key))
	}

	if store := s.peekLocal(ttl); store != nil {
		if data, ok := store.get(key, now); ok {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				s.localHits.Add(1)
				return v, nil
			}
			s.logger.Warn("corrupt local cache entry, refetching", zap.String("key", key))
		}
	}
	s.localMisses.Add(1)

	v, err := fetch(ctx)
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("could not serialize result for caching",
			zap.String("key", key), zap.Error(err))
		return v, nil
	}

	s.remoteSet(ctx, key, data, ttl)
	s.localFor(ttl).set(key, data, time.Now())
	s.enforceGlobalCeiling()

	return v, nil
}

// remoteGet reads from the remote tier. Transient errors are swallowed as
// misses for this call only.
func (s *Service) remoteGet(ctx context.Context, key string) ([]byte, bool) {
	if s.remote == nil {
		return nil, false
	}
	data, ok, err := s.remote.Get(ctx, key)
	if err != nil {
		s.storeErrors.Add(1)
		s.logger.Warn("remote cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		s.remoteMisses.Add(1)
		return nil, false
	}
	s.remoteHits.Add(1)
	return data, true
}

// remoteSet writes to the remote tier best-effort. A failed write never
// prevents the local write or delivery of the result.
func (s *Service) remoteSet(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if s.remote == nil {
		return
	}
	if err := s.remote.Set(ctx, key, data, ttl); err != nil {
		s.storeErrors.Add(1)
		s.logger.Warn("remote cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// peekLocal returns the local store for a TTL without creating it.
func (s *Service) peekLocal(ttl time.Duration) *localStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locals[ttl]
}

// localFor returns the local store for a TTL, creating it on first use.
// Each distinct TTL configuration gets its own bounded store.
func (s *Service) localFor(ttl time.Duration) *localStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	store, ok := s.locals[ttl]
	if !ok {
		store = newLocalStore(ttl, s.cfg.LocalMaxSize)
		s.locals[ttl] = store
	}
	return store
}

// enforceGlobalCeiling evicts the globally oldest entries until the total
// across all local stores is within the configured ceiling.
func (s *Service) enforceGlobalCeiling() {
	if s.cfg.LocalMaxTotal <= 0 {
		return
	}
	for {
		s.mu.Lock()
		total := 0
		var oldestStore *localStore
		var oldestAt time.Time
		for _, store := range s.locals {
			total += store.len()
			if at, ok := store.oldest(); ok && (oldestStore == nil || at.Before(oldestAt)) {
				oldestStore = store
				oldestAt = at
			}
		}
		s.mu.Unlock()

		if total <= s.cfg.LocalMaxTotal || oldestStore == nil {
			return
		}
		oldestStore.evictOldest()
	}
}

// sweepLoop removes expired local entries on a fixed interval, independent
// of access patterns, to bound idle memory growth.
func (s *Service) sweepLoop() {
	defer s.wg.Done()

	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			removed := 0
			s.mu.Lock()
			stores := make([]*localStore, 0, len(s.locals))
			for _, store := range s.locals {
				stores = append(stores, store)
			}
			s.mu.Unlock()
			for _, store := range stores {
				removed += store.sweepExpired(now)
			}
			if removed > 0 {
				s.logger.Debug("cache sweep removed expired entries", zap.Int("removed", removed))
			}
		}
	}
}

// Invalidate removes one derived key from both tiers.
func (s *Service) Invalidate(ctx context.Context, req Request) {
	if s == nil || !s.enabled {
		return
	}
	key := DeriveKey(req)
	if s.remote != nil {
		if err := s.remote.Delete(ctx, key); err != nil {
			s.storeErrors.Add(1)
			s.logger.Warn("remote cache invalidate failed", zap.String("key", key), zap.Error(err))
		}
	}
	s.mu.Lock()
	stores := make([]*localStore, 0, len(s.locals))
	for _, store := range s.locals {
		stores = append(stores, store)
	}
	s.mu.Unlock()
	for _, store := range stores {
		store.remove(key)
	}
}

// Clear drops every Slipshark entry from both tiers and returns the number
// of remote keys removed.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	if s == nil || !s.enabled {
		return 0, nil
	}
	s.mu.Lock()
	stores := make([]*localStore, 0, len(s.locals))
	for _, store := range s.locals {
		stores = append(stores, store)
	}
	s.mu.Unlock()
	for _, store := range stores {
		store.clear()
	}

	if s.remote == nil {
		return 0, nil
	}
	return s.remote.DeleteByPrefix(ctx, keyPrefix+":")
}

// Stats reports counters for both tiers.
func (s *Service) Stats() models.CacheStats {
	stats := models.CacheStats{
		RemoteEnabled: s.remote != nil,
		Remote: models.TierStats{
			Hits:   s.remoteHits.Load(),
			Misses: s.remoteMisses.Load(),
		},
		Local: models.TierStats{
			Hits:   s.localHits.Load(),
			Misses: s.localMisses.Load(),
		},
		StoreErrors: s.storeErrors.Load(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stats.LocalStores = len(s.locals)
	for _, store := range s.locals {
		stats.LocalEntries += store.len()
	}
	return stats
}

// Close stops the sweeper and releases the remote connection.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	close(s.done)
	s.wg.Wait()
	if s.remote != nil {
		return s.remote.Close()
	}
	return nil
}
