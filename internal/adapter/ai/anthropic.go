package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mirrorhq/mirror/internal/port"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 1024
)

// AnthropicConfig holds the configuration for the Anthropic messages API.
type AnthropicConfig struct {
	BaseURL string // defaults to the public API
	APIKey  string
	Model   string // e.g. claude-3-5-sonnet-20240620
}

// AnthropicClient implements port.Generator using the Anthropic messages API.
type AnthropicClient struct {
	cfg        AnthropicConfig
	httpClient *http.Client
}

// NewAnthropicClient creates an Anthropic-backed generator.
func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAnthropicBaseURL
	}
	return &AnthropicClient{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// ModelName returns the chat model identifier.
func (a *AnthropicClient) ModelName() string {
	return a.cfg.Model
}

// Generate answers the query, grounded on contextChunks when present.
func (a *AnthropicClient) Generate(ctx context.Context, query string, contextChunks []string) (string, error) {
	payload := map[string]interface{}{
		"model":      a.cfg.Model,
		"max_tokens": anthropicMaxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": buildPrompt(query, contextChunks)},
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal payload: %v", port.ErrGenerationUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/messages", bytes.NewReader(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", port.ErrGenerationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", port.ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: anthropic API error (%d): %s", port.ErrGenerationUnavailable, resp.StatusCode, string(body))
	}

	var decoded struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: anthropic decode: %v", port.ErrGenerationUnavailable, err)
	}
	if len(decoded.Content) == 0 {
		return "", fmt.Errorf("%w: anthropic: empty response", port.ErrGenerationUnavailable)
	}

	return strings.TrimSpace(decoded.Content[0].Text), nil
}

// buildPrompt frames the query with the retrieved context, or passes the
// query through unchanged when there is nothing to ground on.
func buildPrompt(query string, contextChunks []string) string {
	if len(contextChunks) == 0 {
		return query
	}

	var sb strings.Builder
	sb.WriteString("You are answering from the user's personal knowledge base.\n")
	for i, chunk := range contextChunks {
		fmt.Fprintf(&sb, "\n--- Context %d ---\n%s\n", i+1, chunk)
	}
	fmt.Fprintf(&sb, "\nBased on the information above, answer the question: %s", query)
	return sb.String()
}
