package models

import (
	"encoding/json"
	"time"
)

// SportType identifies the sport a query is about.
type SportType string

const (
	SportBasketball SportType = "basketball"
	SportFootball   SportType = "football"
	SportBaseball   SportType = "baseball"
	SportHockey     SportType = "hockey"
	SportSoccer     SportType = "soccer"
	SportOther      SportType = "other"
)

// ResearchMode selects the research depth.
type ResearchMode string

const (
	ModeAuto  ResearchMode = "auto"
	ModeQuick ResearchMode = "quick"
	ModeDeep  ResearchMode = "deep"
)

// Data categories a query analysis can require.
const (
	CategoryTeamStats   = "team_stats"
	CategoryPlayerStats = "player_stats"
	CategoryRecentGames = "recent_games"
	CategoryOdds        = "odds"
	CategoryInjuries    = "injuries"
	CategoryNews        = "news"
)

// Message is a single turn in a conversation with an LLM.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryContext carries conversation memory relevant to cache keys and
// follow-up queries. GameDate stays a string: queries say "tonight" or
// "2026-03-01" and the provider layer resolves them.
type QueryContext struct {
	Teams    []string  `json:"teams,omitempty"`
	Players  []string  `json:"players,omitempty"`
	Sport    SportType `json:"sport,omitempty"`
	GameDate string    `json:"game_date,omitempty"`
	BetType  string    `json:"bet_type,omitempty"`

	// Conversation bookkeeping; does not affect research output or caching.
	LastQuery    string   `json:"last_query,omitempty"`
	RequiredData []string `json:"required_data,omitempty"`
}

// ResearchRequest is a user query plus caller options.
type ResearchRequest struct {
	Query     string        `json:"query" validate:"required,min=3"`
	Mode      ResearchMode  `json:"mode,omitempty" validate:"omitempty,oneof=auto quick deep"`
	Context   *QueryContext `json:"context,omitempty"`
	ForceDeep bool          `json:"force_deep_research,omitempty"`
}

// QueryAnalysis is the structured interpretation of a query, produced once
// by the analysis LLM call and immutable afterwards except for a caller
// depth override.
type QueryAnalysis struct {
	RawQuery        string            `json:"raw_query"`
	Sport           SportType         `json:"sport_type"`
	Teams           map[string]string `json:"teams,omitempty"`
	Players         []string          `json:"players,omitempty"`
	BetType         string            `json:"bet_type,omitempty"`
	OddsMentioned   string            `json:"odds_mentioned,omitempty"`
	GameDate        string            `json:"game_date,omitempty"`
	RequiredData    []string          `json:"required_data_sources,omitempty"`
	RecommendedMode ResearchMode      `json:"recommended_mode"`
	Confidence      float64           `json:"confidence_score"`
}

// TeamNames returns the named teams in a stable order (team1, team2, ...).
func (a *QueryAnalysis) TeamNames() []string {
	var names []string
	for _, key := range []string{"team1", "team2", "team3", "team4"} {
		if name := a.Teams[key]; name != "" {
			names = append(names, name)
		}
	}
	return names
}

// DataPoint is one tagged unit of gathered evidence from a single source.
type DataPoint struct {
	Source     string          `json:"source"`
	Content    json.RawMessage `json:"content"`
	Timestamp  time.Time       `json:"timestamp"`
	Confidence float64         `json:"confidence"`
}

// Citation is a reference returned by the search provider.
type Citation struct {
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	Snippet       string `json:"snippet,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// SearchResult is the answer from the web search provider.
type SearchResult struct {
	Content          string     `json:"content"`
	Citations        []Citation `json:"citations,omitempty"`
	RelatedQuestions []string   `json:"related_questions,omitempty"`
}

// Insight is one analyzed betting insight in a deep result.
type Insight struct {
	Category       string   `json:"category"`
	Insight        string   `json:"insight"`
	Impact         string   `json:"impact,omitempty"`
	Confidence     float64  `json:"confidence"`
	SupportingData []string `json:"supporting_data,omitempty"`
}

// RiskFactor is an identified risk in a deep result.
type RiskFactor struct {
	Factor     string `json:"factor"`
	Severity   string `json:"severity"`
	Mitigation string `json:"mitigation,omitempty"`
}

// OddsAnalysis summarizes the betting line situation.
type OddsAnalysis struct {
	CurrentOdds     string `json:"current_odds,omitempty"`
	LineMovement    string `json:"line_movement,omitempty"`
	ValueAssessment string `json:"value_assessment,omitempty"`
}

// QuickResult is the outcome of the single-fetch research path.
type QuickResult struct {
	Summary                 string     `json:"summary"`
	KeyPoints               []string   `json:"key_points,omitempty"`
	Confidence              float64    `json:"confidence_score"`
	DeepResearchRecommended bool       `json:"deep_research_recommended"`
	Citations               []Citation `json:"citations,omitempty"`
	RelatedQuestions        []string   `json:"related_questions,omitempty"`
}

// DeepResult is the outcome of the multi-source research path. The shape is
// fixed: the synthesis LLM call must produce exactly these fields.
type DeepResult struct {
	Summary        string       `json:"summary"`
	Insights       []Insight    `json:"insights"`
	RiskFactors    []RiskFactor `json:"risk_factors"`
	RecommendedBet string       `json:"recommended_bet,omitempty"`
	OddsAnalysis   OddsAnalysis `json:"odds_analysis,omitempty"`
	Confidence     float64      `json:"confidence_score"`
	Citations      []Citation   `json:"citations,omitempty"`
}

// Result is the final answer for one research request. Exactly one of Quick
// or Deep is set, matching Mode. Conversational is a best-effort rewrite of
// the structured result and may be empty.
type Result struct {
	QueryID        string        `json:"query_id"`
	Mode           ResearchMode  `json:"mode_used"`
	Quick          *QuickResult  `json:"quick_result,omitempty"`
	Deep           *DeepResult   `json:"deep_result,omitempty"`
	Conversational string        `json:"conversational_response,omitempty"`
	DataPoints     []DataPoint   `json:"data_points,omitempty"`
	Analysis       QueryAnalysis `json:"analysis"`
	ProcessingMs   int64         `json:"processing_ms"`
	Timestamp      time.Time     `json:"timestamp"`
}

// ConfidenceScore returns the confidence of whichever variant is set.
func (r *Result) ConfidenceScore() float64 {
	switch {
	case r.Deep != nil:
		return r.Deep.Confidence
	case r.Quick != nil:
		return r.Quick.Confidence
	}
	return 0
}
