package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ize202/slipshark/pkg/config"
	"github.com/ize202/slipshark/pkg/models"
)

func chatCompletionBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestChatClientComplete(t *testing.T) {
	var gotModel string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Write([]byte(chatCompletionBody("  the answer  ")))
	}))
	defer srv.Close()

	c := NewChatClient(config.LLMConfig{
		URL:     srv.URL,
		APIKey:  "test-key",
		Model:   "gpt-4-turbo-preview",
		Timeout: 5 * time.Second,
	}, zap.NewNop())

	out, err := c.Complete(context.Background(), "be terse", []models.Message{
		{Role: "user", Content: "hi"},
	}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, "the answer", out, "assistant text is trimmed")
	assert.Equal(t, "gpt-4-turbo-preview", gotModel)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestChatClientFallbackModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Model == "primary" {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(chatCompletionBody("from fallback")))
	}))
	defer srv.Close()

	c := NewChatClient(config.LLMConfig{
		URL:            srv.URL,
		Model:          "primary",
		FallbackModels: []string{"backup"},
		Timeout:        5 * time.Second,
	}, zap.NewNop())

	out, err := c.Complete(context.Background(), "", []models.Message{{Role: "user", Content: "q"}}, 0.2)
	require.NoError(t, err)
	assert.Equal(t, "from fallback", out)
}

func TestChatClientAllModelsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewChatClient(config.LLMConfig{
		URL:     srv.URL,
		Model:   "only",
		Timeout: 5 * time.Second,
	}, zap.NewNop())

	_, err := c.Complete(context.Background(), "", []models.Message{{Role: "user", Content: "q"}}, 0)
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "llm", provErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, provErr.Status)
}

func TestPerplexityResearch(t *testing.T) {
	var gotReq searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{
			"choices": [{"message": {"content": "Lakers are favored by 4."}}],
			"citations": [
				"https://example.com/odds",
				{"url": "https://example.com/injuries", "title": "Injury report"}
			],
			"related_questions": ["What is the over/under?"]
		}`))
	}))
	defer srv.Close()

	c := NewPerplexityClient(config.SearchConfig{
		URL:     srv.URL,
		Model:   "sonar",
		Timeout: 5 * time.Second,
	}, zap.NewNop())

	res, err := c.Research(context.Background(), "Lakers vs Warriors spread", RecencyWeek)
	require.NoError(t, err)

	assert.Equal(t, "sonar", gotReq.Model)
	assert.Equal(t, "week", gotReq.SearchRecencyFilter)
	assert.True(t, gotReq.ReturnCitations)
	assert.True(t, gotReq.ReturnRelatedQuestions)
	assert.InDelta(t, 0.2, gotReq.Temperature, 1e-9)

	assert.Equal(t, "Lakers are favored by 4.", res.Content)
	require.Len(t, res.Citations, 2, "string and object citations both decode")
	assert.Equal(t, "https://example.com/odds", res.Citations[0].URL)
	assert.Equal(t, "Injury report", res.Citations[1].Title)
	assert.Equal(t, []string{"What is the over/under?"}, res.RelatedQuestions)
}

func TestPerplexityDefaultRecency(t *testing.T) {
	var gotReq searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer srv.Close()

	c := NewPerplexityClient(config.SearchConfig{URL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())

	res, err := c.Research(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, "day", gotReq.SearchRecencyFilter)
	assert.Empty(t, res.Citations)
}

func TestPerplexityErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewPerplexityClient(config.SearchConfig{URL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop())

	_, err := c.Research(context.Background(), "q", RecencyDay)
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "search", provErr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, provErr.Status)
}

func TestGoalserveFetch(t *testing.T) {
	var gotPath string
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("team")
		w.Write([]byte(`{"standings": {"team": "Lakers", "wins": 40}}`))
	}))
	defer srv.Close()

	c := NewGoalserveClient(config.StatsConfig{
		URL:     srv.URL,
		APIKey:  "feed-key",
		League:  "nba",
		Timeout: 5 * time.Second,
	}, zap.NewNop())

	raw, err := c.Fetch(context.Background(), models.CategoryTeamStats, map[string]string{"team": "Lakers"})
	require.NoError(t, err)

	assert.Equal(t, "/feed-key/nba_standings", gotPath)
	assert.Equal(t, "Lakers", gotQuery)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "standings")
}

func TestGoalserveLeagueWideFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("team"), "empty params stay off the feed URL")
		w.Write([]byte(`{"scores": []}`))
	}))
	defer srv.Close()

	c := NewGoalserveClient(config.StatsConfig{
		URL: srv.URL, APIKey: "k", League: "nba", Timeout: 5 * time.Second,
	}, zap.NewNop())

	_, err := c.Fetch(context.Background(), models.CategoryRecentGames, map[string]string{"team": ""})
	require.NoError(t, err)
}

func TestGoalserveUnknownCategory(t *testing.T) {
	c := NewGoalserveClient(config.StatsConfig{URL: "http://unused", Timeout: time.Second}, zap.NewNop())
	_, err := c.Fetch(context.Background(), "weather", nil)
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "stats", provErr.Provider)
}

func TestGoalserveInvalidJSONFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<xml>not json</xml>"))
	}))
	defer srv.Close()

	c := NewGoalserveClient(config.StatsConfig{
		URL: srv.URL, APIKey: "k", League: "nba", Timeout: 5 * time.Second,
	}, zap.NewNop())

	_, err := c.Fetch(context.Background(), models.CategoryOdds, nil)
	require.Error(t, err)
	assert.True(t, errors.As(err, new(*ProviderError)))
}
