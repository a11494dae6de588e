package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ize202/slipshark/pkg/config"
	"github.com/ize202/slipshark/pkg/models"
)

// StatsClient is the opaque sports statistics capability. Category is one of
// the models.Category* constants; params carry the query scope (team, player,
// date) as feed parameters.
type StatsClient interface {
	Fetch(ctx context.Context, category string, params map[string]string) (json.RawMessage, error)
}

// GoalserveClient implements StatsClient against a Goalserve-style JSON feed.
type GoalserveClient struct {
	httpClient *http.Client
	cfg        config.StatsConfig
	logger     *zap.Logger
}

// NewGoalserveClient builds a GoalserveClient from configuration.
func NewGoalserveClient(cfg config.StatsConfig, logger *zap.Logger) *GoalserveClient {
	return &GoalserveClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// categoryEndpoints maps a data category to its feed path segment.
var categoryEndpoints = map[string]string{
	models.CategoryTeamStats:   "standings",
	models.CategoryPlayerStats: "players",
	models.CategoryRecentGames: "scores",
	models.CategoryOdds:        "odds",
	models.CategoryInjuries:    "injuries",
}

// Fetch retrieves one feed document for the given category. When no team or
// player scope is supplied the league-wide feed is returned.
func (c *GoalserveClient) Fetch(ctx context.Context, category string, params map[string]string) (json.RawMessage, error) {
	endpoint, ok := categoryEndpoints[category]
	if !ok {
		return nil, providerErr("stats", 0, fmt.Errorf("unknown category %q", category))
	}

	q := url.Values{}
	q.Set("json", "1")
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}

	feedURL := fmt.Sprintf("%s/%s/%s_%s?%s",
		strings.TrimRight(c.cfg.URL, "/"), c.cfg.APIKey, c.cfg.League, endpoint, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providerErr("stats", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerErr("stats", resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providerErr("stats", resp.StatusCode, errors.New(strings.TrimSpace(string(body))))
	}
	if !json.Valid(body) {
		return nil, providerErr("stats", resp.StatusCode, errors.New("feed returned invalid JSON"))
	}

	return json.RawMessage(body), nil
}
