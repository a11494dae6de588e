// Package research orchestrates the betting research pipeline: query
// analysis, parallel data gathering, normalization, and LLM synthesis.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ize202/slipshark/pkg/cache"
	"github.com/ize202/slipshark/pkg/models"
	"github.com/ize202/slipshark/pkg/prompts"
	"github.com/ize202/slipshark/pkg/providers"
	"github.com/ize202/slipshark/pkg/transformers"
)

// Call temperatures: structured extraction runs cold, synthesis slightly
// warmer, the conversational rewrite warmest.
const (
	analysisTemperature       = 0.1
	synthesisTemperature      = 0.3
	conversationalTemperature = 0.7
)

// Quick-result confidence policy: a base score plus a small bonus per
// citation, bounded on both ends.
const (
	quickBaseConfidence = 0.7
	perCitationBonus    = 0.1
	maxCitationBonus    = 0.2
	maxQuickConfidence  = 0.95
)

// Deep research is recommended after a quick pass when the search surface
// looks rich enough to reward it.
const (
	deepMinCitations = 3
	deepMinRelated   = 2
	deepMinWords     = 200
)

// Chain is the research orchestrator. One instance serves all requests.
type Chain struct {
	llm      providers.LLMClient
	gatherer *Gatherer
	registry *transformers.Registry
	cache    *cache.Service
	logger   *zap.Logger
}

// NewChain builds a Chain.
func NewChain(llm providers.LLMClient, gatherer *Gatherer, registry *transformers.Registry, cacheSvc *cache.Service, logger *zap.Logger) *Chain {
	return &Chain{
		llm:      llm,
		gatherer: gatherer,
		registry: registry,
		cache:    cacheSvc,
		logger:   logger,
	}
}

// AnalyzeQuery runs the query-analysis LLM call and applies any caller depth
// override. An analysis failure is fatal for the request and surfaced as-is.
func (c *Chain) AnalyzeQuery(ctx context.Context, req *models.ResearchRequest) (*models.QueryAnalysis, error) {
	messages := []models.Message{{Role: "user", Content: analysisInput(req)}}
	out, err := c.llm.Complete(ctx, prompts.QueryAnalysis, messages, analysisTemperature)
	if err != nil {
		return nil, fmt.Errorf("analyze query: %w", err)
	}

	var analysis models.QueryAnalysis
	if err := decodeStrict(out, &analysis); err != nil {
		c.logger.Error("query analysis did not parse", zap.String("raw", out), zap.Error(err))
		return nil, err
	}

	if analysis.RawQuery == "" {
		analysis.RawQuery = req.Query
	}
	if analysis.RecommendedMode == "" {
		analysis.RecommendedMode = models.ModeQuick
	}

	// The caller's explicit mode outranks the model's recommendation.
	switch {
	case req.ForceDeep || req.Mode == models.ModeDeep:
		analysis.RecommendedMode = models.ModeDeep
	case req.Mode == models.ModeQuick:
		analysis.RecommendedMode = models.ModeQuick
	}

	return &analysis, nil
}

// analysisInput renders the query plus any conversation context for the
// analysis call.
func analysisInput(req *models.ResearchRequest) string {
	if req.Context == nil {
		return req.Query
	}
	ctxJSON, err := json.Marshal(req.Context)
	if err != nil {
		return req.Query
	}
	return fmt.Sprintf("Query: %s\nConversation context: %s", req.Query, ctxJSON)
}

// ProcessQuery is the main entry point. The whole pipeline runs behind the
// cache: a repeated (query, context) pair within the research TTL returns
// the stored result without any provider calls.
func (c *Chain) ProcessQuery(ctx context.Context, req *models.ResearchRequest) (*models.Result, error) {
	op := "research"
	if req.ForceDeep || req.Mode == models.ModeDeep {
		// Forced-deep results never collide with auto-mode entries.
		op = "research_deep"
	}
	cacheReq := cache.QueryRequest{NS: "research", Op: op, Query: req.Query, Context: req.Context}
	return cache.Do(ctx, c.cache, cacheReq, func(ctx context.Context) (*models.Result, error) {
		return c.process(ctx, req)
	})
}

// ExtendResearch reruns a prior query with deep research forced, reusing any
// cached source data gathered on the first pass.
func (c *Chain) ExtendResearch(ctx context.Context, req *models.ResearchRequest) (*models.Result, error) {
	forced := *req
	forced.Mode = models.ModeDeep
	forced.ForceDeep = true
	return c.ProcessQuery(ctx, &forced)
}

func (c *Chain) process(ctx context.Context, req *models.ResearchRequest) (*models.Result, error) {
	start := time.Now()

	analysis, err := c.AnalyzeQuery(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logger.Info("query analyzed",
		zap.String("sport", string(analysis.Sport)),
		zap.String("mode", string(analysis.RecommendedMode)),
		zap.Strings("teams", analysis.TeamNames()))

	result := &models.Result{
		QueryID:   uuid.NewString(),
		Mode:      analysis.RecommendedMode,
		Analysis:  *analysis,
		Timestamp: time.Now().UTC(),
	}

	if analysis.RecommendedMode == models.ModeDeep {
		deep, points, err := c.runDeep(ctx, req, analysis)
		if err != nil {
			return nil, err
		}
		result.Deep = deep
		result.DataPoints = points
	} else {
		quick, err := c.runQuick(ctx, req, analysis)
		if err != nil {
			return nil, err
		}
		result.Quick = quick
	}

	result.Conversational = c.conversational(ctx, req, result)
	result.ProcessingMs = time.Since(start).Milliseconds()
	return result, nil
}

// runQuick is the single-fetch path: one cached web search, then key-point
// extraction. Confidence and the deep-research recommendation come from the
// search surface, not the model.
func (c *Chain) runQuick(ctx context.Context, req *models.ResearchRequest, analysis *models.QueryAnalysis) (*models.QuickResult, error) {
	search, err := c.gatherer.Search(ctx, analysis.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("quick research: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"query":    req.Query,
		"research": search,
	})
	if err != nil {
		return nil, fmt.Errorf("encode quick context: %w", err)
	}

	out, err := c.llm.Complete(ctx, prompts.QuickAnalysis,
		[]models.Message{{Role: "user", Content: string(payload)}}, synthesisTemperature)
	if err != nil {
		return nil, fmt.Errorf("quick analysis: %w", err)
	}

	var parsed struct {
		Summary   string   `json:"summary"`
		KeyPoints []string `json:"key_points"`
	}
	if err := decodeStrict(out, &parsed); err != nil {
		c.logger.Error("quick analysis did not parse", zap.String("raw", out), zap.Error(err))
		return nil, err
	}

	return &models.QuickResult{
		Summary:                 parsed.Summary,
		KeyPoints:               parsed.KeyPoints,
		Confidence:              quickConfidence(len(search.Citations)),
		DeepResearchRecommended: deepRecommended(search),
		Citations:               search.Citations,
		RelatedQuestions:        search.RelatedQuestions,
	}, nil
}

func quickConfidence(citations int) float64 {
	bonus := perCitationBonus * float64(citations)
	if bonus > maxCitationBonus {
		bonus = maxCitationBonus
	}
	confidence := quickBaseConfidence + bonus
	if confidence > maxQuickConfidence {
		confidence = maxQuickConfidence
	}
	return confidence
}

func deepRecommended(search *models.SearchResult) bool {
	return len(search.Citations) >= deepMinCitations ||
		len(search.RelatedQuestions) >= deepMinRelated ||
		len(strings.Fields(search.Content)) > deepMinWords
}

// runDeep is the multi-source path: gather, normalize, synthesize.
func (c *Chain) runDeep(ctx context.Context, req *models.ResearchRequest, analysis *models.QueryAnalysis) (*models.DeepResult, []models.DataPoint, error) {
	points := c.gatherer.Gather(ctx, analysis)
	c.logger.Info("data gathered", zap.Int("points", len(points)))

	if len(points) == 0 {
		// Every source failed. Answer from the analysis alone rather than
		// failing the request.
		return &models.DeepResult{
			Summary: fmt.Sprintf("No data sources were reachable for %q. This answer reflects the query analysis only; retry later for a data-backed result.", req.Query),
			RiskFactors: []models.RiskFactor{{
				Factor:     "no source data gathered",
				Severity:   "high",
				Mitigation: "Re-run the research once data providers recover.",
			}},
			Confidence: 0.2,
		}, points, nil
	}

	transformed := c.transform(analysis, points)

	payload, err := json.Marshal(map[string]any{
		"query":       req.Query,
		"analysis":    analysis,
		"data_points": points,
		"normalized":  transformed,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("encode deep context: %w", err)
	}

	out, err := c.llm.Complete(ctx, prompts.DeepAnalysis,
		[]models.Message{{Role: "user", Content: string(payload)}}, synthesisTemperature)
	if err != nil {
		return nil, nil, fmt.Errorf("deep analysis: %w", err)
	}

	var deep models.DeepResult
	if err := decodeStrict(out, &deep); err != nil {
		c.logger.Error("deep analysis did not parse", zap.String("raw", out), zap.Error(err))
		return nil, nil, err
	}

	if len(deep.Citations) == 0 {
		deep.Citations = searchCitations(points)
	}
	return &deep, points, nil
}

// transform normalizes stats-feed data points through the sport's
// transformer. Unknown sports and invalid batches yield nil; synthesis then
// works from the raw data points alone.
func (c *Chain) transform(analysis *models.QueryAnalysis, points []models.DataPoint) *models.TransformedSportData {
	tr := c.registry.Get(analysis.Sport)
	if tr == nil {
		return nil
	}

	data := &models.TransformedSportData{
		Sport:     analysis.Sport,
		Timestamp: time.Now().UTC(),
	}

	var confidenceSum float64
	var confidenceN int
	for _, point := range points {
		category, scope, ok := statsSource(point.Source)
		if !ok {
			continue
		}
		confidenceSum += point.Confidence
		confidenceN++

		switch category {
		case models.CategoryTeamStats:
			if data.Teams == nil {
				data.Teams = make(map[string]models.NormalizedTeam)
			}
			data.Teams[scope] = tr.TransformTeam(point.Content)
		case models.CategoryPlayerStats:
			if data.Players == nil {
				data.Players = make(map[string]models.NormalizedPlayer)
			}
			data.Players[scope] = tr.TransformPlayer(point.Content, analysis.RequiredData)
		case models.CategoryRecentGames:
			data.Games = append(data.Games, tr.TransformGame(point.Content))
		}
	}
	if confidenceN == 0 {
		return nil
	}
	data.Confidence = confidenceSum / float64(confidenceN)

	if !tr.Validate(*data) {
		c.logger.Warn("transformed data failed validation, using raw data points",
			zap.String("sport", string(analysis.Sport)))
		return nil
	}
	return data
}

// statsSource splits a "stats_api:<category>:<scope>" source tag.
func statsSource(source string) (category, scope string, ok bool) {
	parts := strings.SplitN(source, ":", 3)
	if len(parts) != 3 || parts[0] != "stats_api" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// searchCitations collects the citations of any web-search data points.
func searchCitations(points []models.DataPoint) []models.Citation {
	var citations []models.Citation
	for _, point := range points {
		if point.Source != "web_search" {
			continue
		}
		var result models.SearchResult
		if err := json.Unmarshal(point.Content, &result); err != nil {
			continue
		}
		citations = append(citations, result.Citations...)
	}
	return citations
}

// conversational rewrites the structured result as prose. Best-effort: any
// failure falls back to the structured result standing alone.
func (c *Chain) conversational(ctx context.Context, req *models.ResearchRequest, result *models.Result) string {
	payload, err := json.Marshal(map[string]any{
		"query":        req.Query,
		"quick_result": result.Quick,
		"deep_result":  result.Deep,
	})
	if err != nil {
		return ""
	}

	out, err := c.llm.Complete(ctx, prompts.ResponseGeneration,
		[]models.Message{{Role: "user", Content: string(payload)}}, conversationalTemperature)
	if err != nil {
		c.logger.Warn("conversational rewrite failed, returning structured result", zap.Error(err))
		return ""
	}

	var parsed struct {
		ConversationalResponse string `json:"conversational_response"`
	}
	if err := decodeStrict(out, &parsed); err != nil {
		c.logger.Warn("conversational rewrite did not parse, returning structured result", zap.Error(err))
		return ""
	}
	return parsed.ConversationalResponse
}
