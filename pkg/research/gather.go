package research

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ize202/slipshark/pkg/cache"
	"github.com/ize202/slipshark/pkg/models"
	"github.com/ize202/slipshark/pkg/providers"
)

// Per-source confidence defaults. The stats feed is authoritative; web
// search answers are secondary evidence.
const (
	statsConfidence  = 0.9
	searchConfidence = 0.7
)

// statsCategories are the required-data categories the stats feed serves,
// in fetch order. Everything else is covered by web search.
var statsCategories = []string{
	models.CategoryTeamStats,
	models.CategoryPlayerStats,
	models.CategoryRecentGames,
	models.CategoryOdds,
	models.CategoryInjuries,
}

// Gatherer fans research tasks out to the data providers. Every provider
// call goes through the cache, so repeated research over the same teams
// reuses fetched data across queries.
type Gatherer struct {
	cache  *cache.Service
	search providers.SearchClient
	stats  providers.StatsClient
	logger *zap.Logger
}

// NewGatherer builds a Gatherer.
func NewGatherer(cacheSvc *cache.Service, search providers.SearchClient, stats providers.StatsClient, logger *zap.Logger) *Gatherer {
	return &Gatherer{cache: cacheSvc, search: search, stats: stats, logger: logger}
}

// Search runs one cached web search for a query.
func (g *Gatherer) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	req := cache.QueryRequest{NS: "search", Op: "web_search", Query: query}
	return cache.Do(ctx, g.cache, req, func(ctx context.Context) (*models.SearchResult, error) {
		return g.search.Research(ctx, query, providers.RecencyDay)
	})
}

// gatherTask is one unit of fan-out work. Source tags the resulting data
// point; fetch returns the raw content.
type gatherTask struct {
	source     string
	confidence float64
	fetch      func(ctx context.Context) (json.RawMessage, error)
}

// Gather runs every task for the analysis in parallel and returns the data
// points in scheduling order. A failed task is logged with its originating
// parameters and omitted; one slow or broken source never cancels the rest,
// and gathering nothing at all is an empty result, not an error.
func (g *Gatherer) Gather(ctx context.Context, analysis *models.QueryAnalysis) []models.DataPoint {
	tasks := g.buildTasks(analysis)

	slots := make([]*models.DataPoint, len(tasks))
	var eg errgroup.Group
	for i, task := range tasks {
		i, task := i, task
		eg.Go(func() error {
			content, err := task.fetch(ctx)
			if err != nil {
				g.logger.Warn("data gathering task failed",
					zap.String("source", task.source), zap.Error(err))
				return nil
			}
			slots[i] = &models.DataPoint{
				Source:     task.source,
				Content:    content,
				Timestamp:  time.Now().UTC(),
				Confidence: task.confidence,
			}
			return nil
		})
	}
	_ = eg.Wait()

	points := make([]models.DataPoint, 0, len(slots))
	for _, p := range slots {
		if p != nil {
			points = append(points, *p)
		}
	}
	return points
}

// buildTasks assembles the fan-out set: the query-wide web search first,
// then one stats fetch per (team, required category). When the analysis
// names no teams, the stats fetches fall back to league-wide feeds.
func (g *Gatherer) buildTasks(analysis *models.QueryAnalysis) []gatherTask {
	tasks := []gatherTask{{
		source:     "web_search",
		confidence: searchConfidence,
		fetch: func(ctx context.Context) (json.RawMessage, error) {
			result, err := g.Search(ctx, analysis.RawQuery)
			if err != nil {
				return nil, err
			}
			return json.Marshal(result)
		},
	}}

	var categories []string
	for _, cat := range statsCategories {
		if contains(analysis.RequiredData, cat) {
			categories = append(categories, cat)
		}
	}

	teams := analysis.TeamNames()
	if len(teams) == 0 {
		// League-wide scope when the query names no recognizable team.
		teams = []string{""}
	}

	for _, team := range teams {
		for _, category := range categories {
			team, category := team, category
			source := "stats_api:" + category + ":" + team
			if team == "" {
				source = "stats_api:" + category + ":league"
			}
			params := map[string]string{"team": team}
			if analysis.GameDate != "" {
				params["date"] = analysis.GameDate
			}
			tasks = append(tasks, gatherTask{
				source:     source,
				confidence: statsConfidence,
				fetch: func(ctx context.Context) (json.RawMessage, error) {
					req := cache.ArgsRequest{NS: "stats_api", Op: category, Args: []any{team, params}}
					return cache.Do(ctx, g.cache, req, func(ctx context.Context) (json.RawMessage, error) {
						return g.stats.Fetch(ctx, category, params)
					})
				},
			})
		}
	}

	return tasks
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
