package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ize202/slipshark/pkg/cache"
	"github.com/ize202/slipshark/pkg/config"
	"github.com/ize202/slipshark/pkg/models"
	"github.com/ize202/slipshark/pkg/providers"
)

// fakeSearch answers every query with a canned result.
type fakeSearch struct {
	mu     sync.Mutex
	calls  int
	result *models.SearchResult
	err    error
}

func (f *fakeSearch) Research(_ context.Context, query string, _ providers.Recency) (*models.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &models.SearchResult{Content: "search answer for " + query}, nil
}

// fakeStats answers per (category, team), with optional per-team failures.
type fakeStats struct {
	mu       sync.Mutex
	calls    int
	failTeam string
}

func (f *fakeStats) Fetch(_ context.Context, category string, params map[string]string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	team := params["team"]
	if f.failTeam != "" && team == f.failTeam {
		return nil, errors.New("feed timeout")
	}
	doc := fmt.Sprintf(`{"category": %q, "team": %q}`, category, team)
	return json.RawMessage(doc), nil
}

func newTestCache(t *testing.T) *cache.Service {
	t.Helper()
	s := cache.NewService(config.CacheConfig{
		Enabled:       true,
		DefaultTTL:    time.Hour,
		LocalMaxSize:  64,
		LocalMaxTotal: 256,
		SweepInterval: time.Minute,
	}, zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func deepAnalysis(teams ...string) *models.QueryAnalysis {
	teamMap := make(map[string]string, len(teams))
	for i, team := range teams {
		teamMap[fmt.Sprintf("team%d", i+1)] = team
	}
	return &models.QueryAnalysis{
		RawQuery:        "Lakers vs Warriors spread tonight",
		Sport:           models.SportBasketball,
		Teams:           teamMap,
		RecommendedMode: models.ModeDeep,
		RequiredData:    []string{models.CategoryTeamStats, models.CategoryRecentGames},
	}
}

func TestGatherSchedulingOrder(t *testing.T) {
	g := NewGatherer(newTestCache(t), &fakeSearch{}, &fakeStats{}, zap.NewNop())

	points := g.Gather(context.Background(), deepAnalysis("Lakers", "Warriors"))

	// 1 web search + 2 teams x 2 categories.
	require.Len(t, points, 5)
	wantSources := []string{
		"web_search",
		"stats_api:team_stats:Lakers",
		"stats_api:recent_games:Lakers",
		"stats_api:team_stats:Warriors",
		"stats_api:recent_games:Warriors",
	}
	for i, want := range wantSources {
		assert.Equal(t, want, points[i].Source, "results must keep scheduling order")
	}
}

func TestGatherConfidenceDefaults(t *testing.T) {
	g := NewGatherer(newTestCache(t), &fakeSearch{}, &fakeStats{}, zap.NewNop())

	points := g.Gather(context.Background(), deepAnalysis("Lakers"))
	require.NotEmpty(t, points)

	for _, p := range points {
		if p.Source == "web_search" {
			assert.InDelta(t, 0.7, p.Confidence, 1e-9)
		} else {
			assert.InDelta(t, 0.9, p.Confidence, 1e-9)
		}
	}
}

func TestGatherOmitsFailedTasks(t *testing.T) {
	stats := &fakeStats{failTeam: "Warriors"}
	g := NewGatherer(newTestCache(t), &fakeSearch{}, stats, zap.NewNop())

	points := g.Gather(context.Background(), deepAnalysis("Lakers", "Warriors"))

	require.Len(t, points, 3, "failed tasks are omitted, the rest survive")
	for _, p := range points {
		assert.NotContains(t, p.Source, "Warriors")
	}
}

func TestGatherAllFailYieldsEmptyList(t *testing.T) {
	stats := &fakeStats{failTeam: "Lakers"}
	search := &fakeSearch{err: errors.New("search down")}
	g := NewGatherer(newTestCache(t), search, stats, zap.NewNop())

	points := g.Gather(context.Background(), deepAnalysis("Lakers"))
	assert.Empty(t, points, "total failure is an empty result, not an error")
}

func TestGatherLeagueWideFallback(t *testing.T) {
	g := NewGatherer(newTestCache(t), &fakeSearch{}, &fakeStats{}, zap.NewNop())

	analysis := deepAnalysis()
	points := g.Gather(context.Background(), analysis)

	require.Len(t, points, 3)
	assert.Equal(t, "stats_api:team_stats:league", points[1].Source)
	assert.Equal(t, "stats_api:recent_games:league", points[2].Source)
}

func TestGatherReusesCachedFetches(t *testing.T) {
	stats := &fakeStats{}
	search := &fakeSearch{}
	g := NewGatherer(newTestCache(t), search, stats, zap.NewNop())

	analysis := deepAnalysis("Lakers")
	_ = g.Gather(context.Background(), analysis)
	firstStats := stats.calls
	firstSearch := search.calls

	_ = g.Gather(context.Background(), analysis)
	assert.Equal(t, firstStats, stats.calls, "repeat gather must hit the cache")
	assert.Equal(t, firstSearch, search.calls)
}

func TestSearchIsCached(t *testing.T) {
	search := &fakeSearch{}
	g := NewGatherer(newTestCache(t), search, &fakeStats{}, zap.NewNop())

	r1, err := g.Search(context.Background(), "Lakers injuries")
	require.NoError(t, err)
	r2, err := g.Search(context.Background(), "Lakers injuries")
	require.NoError(t, err)

	assert.Equal(t, 1, search.calls)
	assert.Equal(t, r1, r2)
}
