package models

import "time"

// AuditEntry represents one audited research request.
type AuditEntry struct {
	RequestID    string       `json:"request_id"`
	APIKeyHash   string       `json:"api_key_hash"`
	APIKeyPrefix string       `json:"api_key_prefix"`
	Mode         ResearchMode `json:"mode"`
	Query        string       `json:"query,omitempty"`
	Summary      string       `json:"summary,omitempty"`
	StatusCode   int          `json:"status_code"`
	LatencyMs    int64        `json:"latency_ms"`
	CreatedAt    time.Time    `json:"created_at"`
}

// AuditConfig controls the audit logging subsystem.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
	IncludeQuery  bool   `yaml:"include_query"`
	MaxBodySize   int    `yaml:"max_body_size"`
}

// AuditStat is an aggregate count of audited requests per mode per day.
type AuditStat struct {
	Mode  ResearchMode `json:"mode"`
	Day   string       `json:"day"`
	Count int64        `json:"count"`
}

// AuditQueryOpts specifies filters for querying audit entries.
type AuditQueryOpts struct {
	Mode         ResearchMode
	Since        time.Time
	APIKeyPrefix string
	RequestID    string
	Limit        int
}
