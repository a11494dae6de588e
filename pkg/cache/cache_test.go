package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ize202/slipshark/pkg/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:       true,
		DefaultTTL:    time.Hour,
		LocalMaxSize:  8,
		LocalMaxTotal: 16,
		SweepInterval: 50 * time.Millisecond,
	}
}

func newTestService(t *testing.T, cfg config.CacheConfig) *Service {
	t.Helper()
	s := NewService(cfg, zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fakeRemote is an in-memory remoteTier with switchable failure modes.
type fakeRemote struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	failSet bool
	gets    int
	sets    int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: make(map[string][]byte)}
}

func (f *fakeRemote) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet {
		return nil, false, errors.New("remote down")
	}
	data, ok := f.data[key]
	return data, ok, nil
}

func (f *fakeRemote) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.failSet {
		return errors.New("remote down")
	}
	f.data[key] = value
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeRemote) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for k := range f.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(f.data, k)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeRemote) Close() error { return nil }

func TestDoCachesOnSecondCall(t *testing.T) {
	s := newTestService(t, testCacheConfig())
	req := ArgsRequest{NS: "stats_api", Op: "team_stats", Args: []any{"Lakers"}}

	calls := 0
	fetch := func(context.Context) (map[string]int, error) {
		calls++
		return map[string]int{"wins": 40}, nil
	}

	v1, err := Do(context.Background(), s, req, fetch)
	require.NoError(t, err)
	v2, err := Do(context.Background(), s, req, fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call must be served from cache")
	assert.Equal(t, v1, v2)
}

func TestDoFetchErrorPropagates(t *testing.T) {
	s := newTestService(t, testCacheConfig())
	req := ArgsRequest{NS: "stats_api", Op: "team_stats", Args: []any{"Lakers"}}

	wantErr := errors.New("provider exploded")
	_, err := Do(context.Background(), s, req, func(context.Context) (string, error) {
		return "", wantErr
	})
	require.ErrorIs(t, err, wantErr)

	// The failure must not have been cached.
	calls := 0
	v, err := Do(context.Background(), s, req, func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
}

func TestDoRemoteRoundTrip(t *testing.T) {
	s := newTestService(t, testCacheConfig())
	remote := newFakeRemote()
	s.remote = remote

	req := QueryRequest{NS: "research", Op: "quick", Query: "Lakers spread tonight"}

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "take the points", nil
	}

	_, err := Do(context.Background(), s, req, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, remote.sets, "miss must write the remote tier")

	v, err := Do(context.Background(), s, req, fetch)
	require.NoError(t, err)
	assert.Equal(t, "take the points", v)
	assert.Equal(t, 1, calls, "remote hit must skip the fetch")
}

func TestDoRemoteFailureIsAMiss(t *testing.T) {
	s := newTestService(t, testCacheConfig())
	remote := newFakeRemote()
	remote.failGet = true
	remote.failSet = true
	s.remote = remote

	req := ArgsRequest{NS: "search", Op: "web_search", Args: []any{"lakers injuries"}}

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "no injuries", nil
	}

	v, err := Do(context.Background(), s, req, fetch)
	require.NoError(t, err, "remote failure must never reach the caller")
	assert.Equal(t, "no injuries", v)

	// Local tier still works despite the broken remote.
	_, err = Do(context.Background(), s, req, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.GreaterOrEqual(t, s.Stats().StoreErrors, int64(2))
}

func TestDoSerializationFailureDeliversValue(t *testing.T) {
	s := newTestService(t, testCacheConfig())
	req := ArgsRequest{NS: "research", Op: "raw", Args: []any{"x"}}

	// Channels are not JSON-serializable.
	calls := 0
	fetch := func(context.Context) (map[string]any, error) {
		calls++
		return map[string]any{"ch": make(chan int)}, nil
	}

	v, err := Do(context.Background(), s, req, fetch)
	require.NoError(t, err)
	require.NotNil(t, v["ch"], "unserializable result must still be delivered")

	_, err = Do(context.Background(), s, req, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "unserializable results are never cached")
}

func TestDoDisabledServicePassesThrough(t *testing.T) {
	cfg := testCacheConfig()
	cfg.Enabled = false
	s := newTestService(t, cfg)

	calls := 0
	for i := 0; i < 3; i++ {
		_, err := Do(context.Background(), s, ArgsRequest{NS: "n", Op: "o"}, func(context.Context) (int, error) {
			calls++
			return 1, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestGlobalCeilingSweepsOldest(t *testing.T) {
	cfg := testCacheConfig()
	cfg.LocalMaxSize = 100
	cfg.LocalMaxTotal = 4
	cfg.TTLOverrides = map[string]time.Duration{"fast": time.Minute}
	s := newTestService(t, cfg)

	fetch := func(context.Context) (int, error) { return 1, nil }

	// Two distinct TTL configurations produce two local stores.
	for i := 0; i < 4; i++ {
		_, err := Do(context.Background(), s, ArgsRequest{NS: "a", Op: "slow", Args: []any{i}}, fetch)
		require.NoError(t, err)
	}
	for i := 0; i < 4; i++ {
		_, err := Do(context.Background(), s, ArgsRequest{NS: "a", Op: "fast", Args: []any{i}}, fetch)
		require.NoError(t, err)
	}

	stats := s.Stats()
	assert.Equal(t, 2, stats.LocalStores)
	assert.LessOrEqual(t, stats.LocalEntries, 4, "global ceiling must bound total residency")
}

func TestSweeperRemovesExpiredEntries(t *testing.T) {
	cfg := testCacheConfig()
	cfg.TTLOverrides = map[string]time.Duration{"blink": 10 * time.Millisecond}
	s := newTestService(t, cfg)

	_, err := Do(context.Background(), s, ArgsRequest{NS: "a", Op: "blink"}, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, s.Stats().LocalEntries)

	assert.Eventually(t, func() bool {
		return s.Stats().LocalEntries == 0
	}, time.Second, 20*time.Millisecond, "background sweep must remove expired entries")
}

func TestClearDropsBothTiers(t *testing.T) {
	s := newTestService(t, testCacheConfig())
	remote := newFakeRemote()
	s.remote = remote

	req := ArgsRequest{NS: "a", Op: "o", Args: []any{1}}
	_, err := Do(context.Background(), s, req, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)

	removed, err := s.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 0, s.Stats().LocalEntries)

	calls := 0
	_, err = Do(context.Background(), s, req, func(context.Context) (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "cleared entry must refetch")
}

func TestInvalidateRemovesSingleKey(t *testing.T) {
	s := newTestService(t, testCacheConfig())

	keep := ArgsRequest{NS: "a", Op: "o", Args: []any{"keep"}}
	drop := ArgsRequest{NS: "a", Op: "o", Args: []any{"drop"}}
	fetch := func(context.Context) (string, error) { return "v", nil }

	_, _ = Do(context.Background(), s, keep, fetch)
	_, _ = Do(context.Background(), s, drop, fetch)

	s.Invalidate(context.Background(), drop)

	calls := 0
	counted := func(context.Context) (string, error) {
		calls++
		return "v", nil
	}
	_, _ = Do(context.Background(), s, keep, counted)
	_, _ = Do(context.Background(), s, drop, counted)
	assert.Equal(t, 1, calls, "only the invalidated key refetches")
}
