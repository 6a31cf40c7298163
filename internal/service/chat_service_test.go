package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/port"
)

func newChatService(store *fakeStore, reranker *fakeReranker, generator *fakeGenerator, cfg ChatConfig) (*ChatService, *fakeEmbedder) {
	embedder := &fakeEmbedder{}
	return NewChatService(store, embedder, NewRetriever(reranker), generator, cfg), embedder
}

func TestChatService_Answer_InvalidInput(t *testing.T) {
	svc, _ := newChatService(newFakeStore(), &fakeReranker{}, &fakeGenerator{}, ChatConfig{})

	_, err := svc.Answer(context.Background(), "", "hello")
	assert.ErrorIs(t, err, port.ErrInvalidInput)

	_, err = svc.Answer(context.Background(), "owner", "   ")
	assert.ErrorIs(t, err, port.ErrInvalidInput)
}

func TestChatService_Answer_NoDocuments(t *testing.T) {
	// An owner with nothing stored always gets an answer, ungrounded.
	generator := &fakeGenerator{answer: "an ungrounded answer"}
	svc, _ := newChatService(newFakeStore(), &fakeReranker{}, generator, ChatConfig{})

	answer, err := svc.Answer(context.Background(), "owner", "what do I know?")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	assert.Equal(t, 1, generator.calls)
	assert.Empty(t, generator.lastContext)
}

func TestChatService_Answer_Grounded(t *testing.T) {
	// 7 chunks across 2 documents, k=5: the context is exactly the top 5
	// by score and generation runs once.
	store := newFakeStore()
	store.candidates = candidatePool("c1", "c2", "c3", "c4", "c5", "c6", "c7")

	reranker := &fakeReranker{scores: []port.RankScore{
		{Index: 0, Score: 0.1},
		{Index: 1, Score: 0.9},
		{Index: 2, Score: 0.8},
		{Index: 3, Score: 0.2},
		{Index: 4, Score: 0.7},
		{Index: 5, Score: 0.6},
		{Index: 6, Score: 0.5},
	}}
	generator := &fakeGenerator{}
	svc, _ := newChatService(store, reranker, generator, ChatConfig{TopK: 5})

	answer, err := svc.Answer(context.Background(), "owner", "q")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	assert.Equal(t, 1, generator.calls)
	assert.Equal(t, 1, reranker.calls)
	assert.Equal(t, []string{"c2", "c3", "c5", "c6", "c7"}, generator.lastContext)
}

func TestChatService_Answer_RankingFailureFallsBack(t *testing.T) {
	store := newFakeStore()
	store.candidates = candidatePool("c1", "c2", "c3", "c4", "c5", "c6", "c7")

	generator := &fakeGenerator{answer: "still an answer"}
	svc, _ := newChatService(store, &fakeReranker{err: fmt.Errorf("%w: 503", port.ErrRankingUnavailable)}, generator, ChatConfig{})

	answer, err := svc.Answer(context.Background(), "owner", "q")
	require.NoError(t, err)
	assert.Equal(t, "still an answer", answer)
	assert.Empty(t, generator.lastContext, "fallback generation is ungrounded")
}

func TestChatService_Answer_EmptyRankResultFallsBack(t *testing.T) {
	store := newFakeStore()
	store.candidates = candidatePool("c1", "c2")

	generator := &fakeGenerator{}
	svc, _ := newChatService(store, &fakeReranker{scores: []port.RankScore{}}, generator, ChatConfig{})

	_, err := svc.Answer(context.Background(), "owner", "q")
	require.NoError(t, err)
	assert.Equal(t, 1, generator.calls)
	assert.Empty(t, generator.lastContext)
}

func TestChatService_Answer_StorageFailureFallsBack(t *testing.T) {
	store := newFakeStore()
	store.candidatesErr = fmt.Errorf("%w: connection refused", port.ErrStorageUnavailable)

	generator := &fakeGenerator{}
	svc, _ := newChatService(store, &fakeReranker{}, generator, ChatConfig{})

	_, err := svc.Answer(context.Background(), "owner", "q")
	require.NoError(t, err)
	assert.Equal(t, 1, generator.calls)
	assert.Empty(t, generator.lastContext)
}

func TestChatService_Answer_GenerationFailureIsFatal(t *testing.T) {
	generator := &fakeGenerator{err: fmt.Errorf("%w: model overloaded", port.ErrGenerationUnavailable)}
	svc, _ := newChatService(newFakeStore(), &fakeReranker{}, generator, ChatConfig{})

	_, err := svc.Answer(context.Background(), "owner", "q")
	assert.ErrorIs(t, err, port.ErrGenerationUnavailable)
}

func TestChatService_Answer_NarrowsLargePool(t *testing.T) {
	store := newFakeStore()
	store.candidates = candidatePool("a", "b", "c", "d")
	store.similar = []domain.SimilarChunk{
		{Chunk: domain.Chunk{ID: "c", Content: "c"}, Similarity: 0.9},
		{Chunk: domain.Chunk{ID: "a", Content: "a"}, Similarity: 0.8},
	}

	generator := &fakeGenerator{}
	svc, embedder := newChatService(store, &fakeReranker{}, generator, ChatConfig{TopK: 5, MaxCandidates: 2})

	_, err := svc.Answer(context.Background(), "owner", "q")
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls, "large pool triggers one query embed")
	assert.ElementsMatch(t, []string{"c", "a"}, generator.lastContext)
}

func TestChatService_Answer_NarrowingEmbedFailureKeepsNewest(t *testing.T) {
	store := newFakeStore()
	store.candidates = candidatePool("a", "b", "c", "d")

	generator := &fakeGenerator{}
	embedder := &fakeEmbedder{err: fmt.Errorf("%w: down", port.ErrEmbeddingUnavailable)}
	svc := NewChatService(store, embedder, NewRetriever(&fakeReranker{}), generator, ChatConfig{TopK: 5, MaxCandidates: 2})

	_, err := svc.Answer(context.Background(), "owner", "q")
	require.NoError(t, err)
	// Newest-first pool truncated to the cap, then ranked.
	assert.Equal(t, []string{"a", "b"}, generator.lastContext)
}

func TestChatService_ContextBudget(t *testing.T) {
	store := newFakeStore()
	store.candidates = candidatePool(
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
	)

	generator := &fakeGenerator{}
	svc, _ := newChatService(store, &fakeReranker{}, generator, ChatConfig{TopK: 3, MaxContextChars: 70})

	_, err := svc.Answer(context.Background(), "owner", "q")
	require.NoError(t, err)
	require.Len(t, generator.lastContext, 2)
	assert.Equal(t, strings.Repeat("a", 40), generator.lastContext[0])
	assert.Contains(t, generator.lastContext[1], "[Context truncated...]")

	total := 0
	for _, c := range generator.lastContext {
		total += utf8.RuneCountInString(c)
	}
	assert.LessOrEqual(t, total, 70, "context block stays within the budget, marker included")
}

func TestChatService_ContextBudget_RuneBoundary(t *testing.T) {
	// A multibyte chunk crossing the budget must be cut between runes,
	// never through one.
	store := newFakeStore()
	store.candidates = candidatePool(strings.Repeat("é", 60))

	generator := &fakeGenerator{}
	svc, _ := newChatService(store, &fakeReranker{}, generator, ChatConfig{TopK: 1, MaxContextChars: 50})

	_, err := svc.Answer(context.Background(), "owner", "q")
	require.NoError(t, err)
	require.Len(t, generator.lastContext, 1)

	truncated := generator.lastContext[0]
	assert.True(t, utf8.ValidString(truncated))
	assert.Contains(t, truncated, "[Context truncated...]")
	assert.LessOrEqual(t, utf8.RuneCountInString(truncated), 50)
}
