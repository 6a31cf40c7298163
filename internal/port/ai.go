package port

import "context"

// Embedder maps a text segment to a fixed-length vector. Implementations
// wrap failures in ErrEmbeddingUnavailable. Callers embed one chunk at a
// time, never a whole document, to respect the model's context limit.
type Embedder interface {
	// Dimension returns the width of the vectors this embedder produces.
	Dimension() int

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RankScore is one reranker verdict: the index of the scored document in
// the input slice and its relevance to the query. Higher is more relevant.
type RankScore struct {
	Index int
	Score float64
}

// Reranker scores documents by relevance to a query. Implementations wrap
// failures in ErrRankingUnavailable. Callers never invoke it with an empty
// document list.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RankScore, error)
}

// Generator produces an answer to a query, optionally conditioned on
// retrieved context chunks. Implementations wrap failures in
// ErrGenerationUnavailable.
type Generator interface {
	// ModelName returns the identifier of the model being used.
	ModelName() string

	// Generate answers the query grounded on contextChunks. An empty
	// contextChunks slice means ungrounded generation from the query alone.
	Generate(ctx context.Context, query string, contextChunks []string) (string, error)
}
