package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorhq/mirror/internal/port"
)

func TestAnthropicClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "--- Context 1 ---")
		assert.Contains(t, req.Messages[0].Content, "note about gardening")

		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{
				{"type": "text", "text": "  Plant tomatoes in spring.  "},
			},
		})
	}))
	defer srv.Close()

	client := NewAnthropicClient(AnthropicConfig{BaseURL: srv.URL, APIKey: "secret", Model: "claude-3-5-sonnet-20240620"})

	answer, err := client.Generate(context.Background(), "when do I plant tomatoes?", []string{"note about gardening"})
	require.NoError(t, err)
	assert.Equal(t, "Plant tomatoes in spring.", answer)
}

func TestAnthropicClient_Generate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewAnthropicClient(AnthropicConfig{BaseURL: srv.URL, APIKey: "k", Model: "m"})

	_, err := client.Generate(context.Background(), "q", nil)
	assert.ErrorIs(t, err, port.ErrGenerationUnavailable)
}

func TestBuildPrompt(t *testing.T) {
	t.Run("no context passes query through", func(t *testing.T) {
		assert.Equal(t, "hello", buildPrompt("hello", nil))
	})

	t.Run("context chunks are numbered in order", func(t *testing.T) {
		prompt := buildPrompt("q", []string{"first", "second"})
		assert.Less(t, strings.Index(prompt, "first"), strings.Index(prompt, "second"))
		assert.Contains(t, prompt, "--- Context 1 ---")
		assert.Contains(t, prompt, "--- Context 2 ---")
		assert.Contains(t, prompt, "answer the question: q")
	})
}
