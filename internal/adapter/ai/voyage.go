package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mirrorhq/mirror/internal/port"
)

const defaultVoyageBaseURL = "https://api.voyageai.com/v1"

// VoyageConfig holds the configuration for the Voyage AI REST API.
type VoyageConfig struct {
	BaseURL     string // defaults to the public API
	APIKey      string
	EmbedModel  string // e.g. voyage-3-lite
	RerankModel string // e.g. rerank-2-lite
	Dimension   int    // output width of EmbedModel
}

// VoyageClient implements port.Embedder and port.Reranker using the
// Voyage AI REST API.
type VoyageClient struct {
	cfg        VoyageConfig
	httpClient *http.Client
}

// NewVoyageClient creates a Voyage-backed embedder/reranker.
func NewVoyageClient(cfg VoyageConfig) *VoyageClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultVoyageBaseURL
	}
	return &VoyageClient{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// Dimension returns the width of the vectors EmbedModel produces.
func (v *VoyageClient) Dimension() int {
	return v.cfg.Dimension
}

// Embed generates a vector embedding for the given text.
func (v *VoyageClient) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]interface{}{
		"model":      v.cfg.EmbedModel,
		"input":      []string{text},
		"input_type": "document",
	}

	body, err := v.post(ctx, "/embeddings", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: voyage embed: %v", port.ErrEmbeddingUnavailable, err)
	}

	var resp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: voyage embed decode: %v", port.ErrEmbeddingUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: voyage embed: empty response", port.ErrEmbeddingUnavailable)
	}

	return resp.Data[0].Embedding, nil
}

// Rerank scores documents by relevance to the query.
func (v *VoyageClient) Rerank(ctx context.Context, query string, documents []string) ([]port.RankScore, error) {
	payload := map[string]interface{}{
		"model":     v.cfg.RerankModel,
		"query":     query,
		"documents": documents,
	}

	body, err := v.post(ctx, "/rerank", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: voyage rerank: %v", port.ErrRankingUnavailable, err)
	}

	var resp struct {
		Data []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: voyage rerank decode: %v", port.ErrRankingUnavailable, err)
	}

	scores := make([]port.RankScore, len(resp.Data))
	for i, d := range resp.Data {
		scores[i] = port.RankScore{Index: d.Index, Score: d.RelevanceScore}
	}
	return scores, nil
}

// post is a helper for POST requests to the Voyage API.
func (v *VoyageClient) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.cfg.APIKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("voyage API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
