package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ize202/slipshark/pkg/config"
	"github.com/ize202/slipshark/pkg/models"
)

// Recency is the time horizon requested from the search provider.
type Recency string

const (
	RecencyHour  Recency = "hour"
	RecencyDay   Recency = "day"
	RecencyWeek  Recency = "week"
	RecencyMonth Recency = "month"
)

// SearchClient is the opaque web search/answer capability.
type SearchClient interface {
	Research(ctx context.Context, query string, recency Recency) (*models.SearchResult, error)
}

const searchSystemPrompt = `You are a professional sports betting analyst.
Analyze the query and provide key insights based on current information.
Focus on recent performance, odds, and any relevant news that could impact betting decisions.
Be concise but thorough.`

// PerplexityClient implements SearchClient against the Perplexity API.
type PerplexityClient struct {
	httpClient *http.Client
	cfg        config.SearchConfig
	logger     *zap.Logger
}

// NewPerplexityClient builds a PerplexityClient from configuration.
func NewPerplexityClient(cfg config.SearchConfig, logger *zap.Logger) *PerplexityClient {
	return &PerplexityClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

type searchRequest struct {
	Model                  string        `json:"model"`
	Messages               []chatMessage `json:"messages"`
	Temperature            float64       `json:"temperature"`
	ReturnCitations        bool          `json:"return_citations"`
	SearchRecencyFilter    string        `json:"search_recency_filter"`
	ReturnRelatedQuestions bool          `json:"return_related_questions"`
}

type searchResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations        []json.RawMessage `json:"citations"`
	RelatedQuestions []string          `json:"related_questions"`
}

// Research runs one web-grounded answer call and returns the content plus
// citations and related questions.
func (c *PerplexityClient) Research(ctx context.Context, query string, recency Recency) (*models.SearchResult, error) {
	if recency == "" {
		recency = RecencyDay
	}

	body, err := json.Marshal(searchRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: searchSystemPrompt},
			{Role: "user", Content: query},
		},
		Temperature:            0.2,
		ReturnCitations:        true,
		SearchRecencyFilter:    string(recency),
		ReturnRelatedQuestions: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.URL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providerErr("search", 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerErr("search", resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providerErr("search", resp.StatusCode, errors.New(strings.TrimSpace(string(respBody))))
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, providerErr("search", resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return nil, providerErr("search", resp.StatusCode, errors.New("no choices in response"))
	}

	return &models.SearchResult{
		Content:          parsed.Choices[0].Message.Content,
		Citations:        decodeCitations(parsed.Citations),
		RelatedQuestions: parsed.RelatedQuestions,
	}, nil
}

// decodeCitations accepts both forms the provider has shipped: bare URL
// strings and structured citation objects.
func decodeCitations(raw []json.RawMessage) []models.Citation {
	var citations []models.Citation
	for _, r := range raw {
		var url string
		if err := json.Unmarshal(r, &url); err == nil {
			citations = append(citations, models.Citation{URL: url})
			continue
		}
		var c models.Citation
		if err := json.Unmarshal(r, &c); err == nil {
			citations = append(citations, c)
		}
	}
	return citations
}
