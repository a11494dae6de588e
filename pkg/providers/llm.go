// Package providers holds the clients for the external services the
// research pipeline calls: the chat-completion LLM, the web search/answer
// API, and the sports statistics feed. Every client is behind a small
// interface so the orchestrator and tests can substitute fakes.
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

// LLMClient is the opaque completion capability used for query analysis and
// synthesis.
type LLMClient interface {
	Complete(ctx context.Context, systemPrompt string, messages []models.Message, temperature float64) (string, error)
}

// ChatClient implements LLMClient against an OpenAI-compatible API.
// Fallback models are tried in order when the primary model fails.
type ChatClient struct {
	httpClient *http.Client
	cfg        config.LLMConfig
	logger     *zap.Logger
}

// NewChatClient builds a ChatClient from configuration.
func NewChatClient(cfg config.LLMConfig, logger *zap.Logger) *ChatClient {
	return &ChatClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation to the configured model, falling back
// through the fallback list on failure. Returns the raw assistant text.
func (c *ChatClient) Complete(ctx context.Context, systemPrompt string, messages []models.Message, temperature float64) (string, error) {
	candidates := make([]string, 0, 1+len(c.cfg.FallbackModels))
	candidates = append(candidates, c.cfg.Model)
	candidates = append(candidates, c.cfg.FallbackModels...)

	var lastErr error
	for _, model := range candidates {
		content, err := c.completeWithModel(ctx, model, systemPrompt, messages, temperature)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if len(candidates) > 1 {
			c.logger.Warn("llm model failed, trying next",
				zap.String("model", model), zap.Error(err))
		}
	}
	return "", lastErr
}

func (c *ChatClient) completeWithModel(ctx context.Context, model, systemPrompt string, messages []models.Message, temperature float64) (string, error) {
	msgs := make([]chatMessage, 0, 1+len(messages))
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range messages {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(chatRequest{Model: model, Messages: msgs, Temperature: temperature})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.URL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", providerErr("llm", 0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", providerErr("llm", resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", providerErr("llm", resp.StatusCode, errors.New(strings.TrimSpace(string(respBody))))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", providerErr("llm", resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if len(chatResp.Choices) == 0 {
		return "", providerErr("llm", resp.StatusCode, errors.New("no choices in response"))
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}
