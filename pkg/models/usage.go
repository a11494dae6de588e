package models

import "time"

// ResearchRecord tracks one completed (or failed) research request.
type ResearchRecord struct {
	ID         int64        `json:"id"`
	QueryID    string       `json:"query_id"`
	APIKey     string       `json:"api_key"`
	Query      string       `json:"query"`
	Mode       ResearchMode `json:"mode"`
	Sport      SportType    `json:"sport,omitempty"`
	Confidence float64      `json:"confidence_score"`
	DataPoints int          `json:"data_points"`
	LatencyMs  int64        `json:"latency_ms"`
	Failed     bool         `json:"failed,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// UsageSummary aggregates research usage per API key and mode.
type UsageSummary struct {
	APIKey        string       `json:"api_key"`
	Mode          ResearchMode `json:"mode"`
	RequestCount  int64        `json:"request_count"`
	AvgConfidence float64      `json:"avg_confidence"`
	AvgLatencyMs  float64      `json:"avg_latency_ms"`
}
