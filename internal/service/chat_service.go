package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/port"
)

// ChatConfig bounds the retrieval and context assembly of a chat request.
type ChatConfig struct {
	// TopK is how many ranked chunks ground a response.
	TopK int
	// MaxCandidates caps the pool handed to the reranker; larger pools are
	// narrowed by vector similarity first.
	MaxCandidates int
	// MaxContextChars bounds the assembled context block.
	MaxContextChars int
}

// Default chat bounds.
const (
	DefaultTopK            = 5
	DefaultMaxCandidates   = 50
	DefaultMaxContextChars = 16000
)

// ChatService answers a user's query grounded on their stored content.
// Retrieval-side failures degrade to ungrounded generation; only a failure
// of the generation capability itself fails the request.
type ChatService struct {
	store     port.DocumentStore
	embedder  port.Embedder
	retriever *Retriever
	generator port.Generator
	cfg       ChatConfig
}

// NewChatService creates a chat service. Zero config fields get defaults.
func NewChatService(store port.DocumentStore, embedder port.Embedder, retriever *Retriever, generator port.Generator, cfg ChatConfig) *ChatService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	return &ChatService{
		store:     store,
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		cfg:       cfg,
	}
}

// Answer responds to the query for the given owner. The answer is grounded
// on the owner's top-ranked chunks when any exist and ranking succeeds;
// otherwise generation proceeds from the query alone.
func (s *ChatService) Answer(ctx context.Context, ownerID, query string) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", fmt.Errorf("%w: empty owner id", port.ErrInvalidInput)
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: empty query", port.ErrInvalidInput)
	}

	candidates := s.candidates(ctx, ownerID, query)
	if len(candidates) == 0 {
		slog.Info("answering ungrounded", "owner_id", ownerID, "reason", "no candidates")
		return s.generator.Generate(ctx, query, nil)
	}

	ranked, err := s.retriever.Rank(ctx, query, candidates, s.cfg.TopK)
	if err != nil || len(ranked) == 0 {
		if err != nil {
			slog.Warn("ranking failed, answering ungrounded", "owner_id", ownerID, "error", err)
		} else {
			slog.Warn("ranking returned nothing, answering ungrounded", "owner_id", ownerID, "candidates", len(candidates))
		}
		return s.generator.Generate(ctx, query, nil)
	}

	return s.generator.Generate(ctx, query, s.contextBlock(ranked))
}

// candidates assembles the owner's candidate pool. Storage or embedding
// trouble never fails the request: the pool shrinks or empties and the
// answer degrades instead.
func (s *ChatService) candidates(ctx context.Context, ownerID, query string) []domain.Candidate {
	pool, err := s.store.CandidateChunks(ctx, ownerID)
	if err != nil {
		slog.Warn("candidate fetch failed", "owner_id", ownerID, "error", err)
		return nil
	}
	if len(pool) <= s.cfg.MaxCandidates {
		return pool
	}

	// Pool too large for one rerank call: narrow by vector similarity.
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("query embed failed, keeping newest candidates", "owner_id", ownerID, "error", err)
		return pool[:s.cfg.MaxCandidates]
	}

	similar, err := s.store.SearchSimilar(ctx, ownerID, queryVec, s.cfg.MaxCandidates)
	if err != nil {
		slog.Warn("similarity narrowing failed, keeping newest candidates", "owner_id", ownerID, "error", err)
		return pool[:s.cfg.MaxCandidates]
	}

	narrowed := make([]domain.Candidate, len(similar))
	for i, sc := range similar {
		narrowed[i] = domain.Candidate{ID: sc.ID, Content: sc.Content}
	}
	return narrowed
}

const contextTruncationMarker = "\n[Context truncated...]"

// contextBlock concatenates the ranked chunk contents under the character
// budget. The chunk that crosses the budget is cut on a rune boundary and
// the truncation marker is charged against the budget, so the block never
// exceeds MaxContextChars.
func (s *ChatService) contextBlock(ranked []domain.RankedChunk) []string {
	budget := s.cfg.MaxContextChars
	markerLen := len([]rune(contextTruncationMarker))
	chunks := make([]string, 0, len(ranked))
	for _, rc := range ranked {
		if budget <= 0 {
			break
		}
		runes := []rune(rc.Content)
		if len(runes) <= budget {
			budget -= len(runes)
			chunks = append(chunks, rc.Content)
			continue
		}
		if keep := budget - markerLen; keep > 0 {
			chunks = append(chunks, string(runes[:keep])+contextTruncationMarker)
		}
		break
	}
	return chunks
}
