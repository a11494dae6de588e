package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ize202/slipshark/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config holds all Slipshark configuration.
type Config struct {
	Listen    string             `yaml:"listen"`
	DBPath    string             `yaml:"db_path"`
	LogLevel  string             `yaml:"log_level"`
	APIKeys   []string           `yaml:"api_keys"`
	Cache     CacheConfig        `yaml:"cache"`
	Providers ProvidersConfig    `yaml:"providers"`
	Budget    BudgetConfig       `yaml:"budget"`
	RateLimit RateLimitConfig    `yaml:"rate_limit"`
	Audit     models.AuditConfig `yaml:"audit"`
}

// CacheConfig controls the two-tier research cache. An empty RedisURL
// selects local-only mode; it is not an error.
type CacheConfig struct {
	Enabled       bool                     `yaml:"enabled"`
	RedisURL      string                   `yaml:"redis_url"`
	DefaultTTL    time.Duration            `yaml:"default_ttl"`
	LocalMaxSize  int                      `yaml:"local_max_size"`
	LocalMaxTotal int                      `yaml:"local_max_total"`
	SweepInterval time.Duration            `yaml:"sweep_interval"`
	TTLOverrides  map[string]time.Duration `yaml:"ttl_overrides"`
}

// TTLFor returns the TTL for a named operation, falling back to the default.
func (c CacheConfig) TTLFor(operation string) time.Duration {
	if ttl, ok := c.TTLOverrides[operation]; ok {
		return ttl
	}
	return c.DefaultTTL
}

// ProvidersConfig groups the upstream service settings.
type ProvidersConfig struct {
	LLM    LLMConfig    `yaml:"llm"`
	Search SearchConfig `yaml:"search"`
	Stats  StatsConfig  `yaml:"stats"`
}

// LLMConfig defines the chat-completion provider used for analysis and
// synthesis. FallbackModels are tried in order when the primary fails.
type LLMConfig struct {
	URL            string        `yaml:"url"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	FallbackModels []string      `yaml:"fallback_models"`
	Timeout        time.Duration `yaml:"timeout"`
}

// SearchConfig defines the web search/answer provider.
type SearchConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// StatsConfig defines the sports statistics provider.
type StatsConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	League  string        `yaml:"league"`
	Timeout time.Duration `yaml:"timeout"`
}

// BudgetConfig controls research budget enforcement.
type BudgetConfig struct {
	Enabled  bool                  `yaml:"enabled"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// RateLimitConfig controls per-API-key request rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		DBPath:   "slipshark.db",
		LogLevel: "info",
		Cache: CacheConfig{
			Enabled:       true,
			DefaultTTL:    time.Hour,
			LocalMaxSize:  128,
			LocalMaxTotal: 1024,
			SweepInterval: 5 * time.Minute,
			TTLOverrides: map[string]time.Duration{
				"team_stats":   6 * time.Hour,
				"player_stats": 12 * time.Hour,
				"recent_games": 5 * time.Minute,
				"odds":         5 * time.Minute,
				"injuries":     15 * time.Minute,
				"web_search":   15 * time.Minute,
				"research":     30 * time.Minute,
			},
		},
		Providers: ProvidersConfig{
			LLM: LLMConfig{
				URL:     "https://api.openai.com/v1",
				Model:   "gpt-4-turbo-preview",
				Timeout: 60 * time.Second,
			},
			Search: SearchConfig{
				URL:     "https://api.perplexity.ai",
				Model:   "sonar",
				Timeout: 30 * time.Second,
			},
			Stats: StatsConfig{
				URL:     "https://www.goalserve.com/getfeed",
				League:  "nba",
				Timeout: 20 * time.Second,
			},
		},
		Budget: BudgetConfig{
			Enabled: false,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
			Burst:             10,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
