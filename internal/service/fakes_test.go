package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/port"
)

// fakeEmbedder returns a fixed-width vector derived from the text length.
// failOn makes the Nth call (1-based) fail, to simulate a mid-batch outage.
type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	texts  []string
	failOn int
	err    error
}

func (f *fakeEmbedder) Dimension() int { return 3 }

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	if f.failOn > 0 && f.calls == f.failOn {
		return nil, fmt.Errorf("%w: simulated outage", port.ErrEmbeddingUnavailable)
	}
	return []float32{float32(len(text)), 0, 1}, nil
}

// fakeReranker returns canned scores or a canned error.
type fakeReranker struct {
	calls  int
	scores []port.RankScore
	err    error
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, documents []string) ([]port.RankScore, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.scores != nil {
		return f.scores, nil
	}
	// Default: score by document position, later documents score lower.
	scores := make([]port.RankScore, len(documents))
	for i := range documents {
		scores[i] = port.RankScore{Index: i, Score: float64(len(documents) - i)}
	}
	return scores, nil
}

// fakeGenerator records what it was asked to generate.
type fakeGenerator struct {
	calls       int
	lastQuery   string
	lastContext []string
	answer      string
	err         error
}

func (f *fakeGenerator) ModelName() string { return "fake-model" }

func (f *fakeGenerator) Generate(_ context.Context, query string, contextChunks []string) (string, error) {
	f.calls++
	f.lastQuery = query
	f.lastContext = contextChunks
	if f.err != nil {
		return "", f.err
	}
	if f.answer != "" {
		return f.answer, nil
	}
	return "answer to: " + query, nil
}

// fakeStore is an in-memory port.DocumentStore with failure injection.
type fakeStore struct {
	mu        sync.Mutex
	documents map[string]*domain.Document
	chunks    map[string][]domain.ChunkInput

	createCalls int
	putCalls    int

	candidates []domain.Candidate
	similar    []domain.SimilarChunk

	createErrs    []error // consumed one per CreateDocument call
	putErrs       []error // consumed one per PutChunks call
	candidatesErr error
	similarErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		documents: make(map[string]*domain.Document),
		chunks:    make(map[string][]domain.ChunkInput),
	}
}

func (f *fakeStore) CreateDocument(_ context.Context, ownerID string, source domain.Source) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	doc := &domain.Document{
		ID:      fmt.Sprintf("doc-%d", f.createCalls),
		OwnerID: ownerID,
		Source:  source,
	}
	f.documents[doc.ID] = doc
	return doc, nil
}

func (f *fakeStore) PutChunks(_ context.Context, documentID string, chunks []domain.ChunkInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		if err != nil {
			return err
		}
	}
	f.chunks[documentID] = chunks
	return nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.documents, documentID)
	delete(f.chunks, documentID)
	return nil
}

func (f *fakeStore) CandidateChunks(_ context.Context, _ string) ([]domain.Candidate, error) {
	if f.candidatesErr != nil {
		return nil, f.candidatesErr
	}
	return f.candidates, nil
}

func (f *fakeStore) SearchSimilar(_ context.Context, _ string, _ []float32, limit int) ([]domain.SimilarChunk, error) {
	if f.similarErr != nil {
		return nil, f.similarErr
	}
	if limit < len(f.similar) {
		return f.similar[:limit], nil
	}
	return f.similar, nil
}

func (f *fakeStore) DocumentsText(_ context.Context, _ string, _ domain.Source) ([]domain.DocumentText, error) {
	return nil, nil
}

// visibleDocuments counts documents that have chunks, mirroring the real
// store's rule that chunkless documents never surface.
func (f *fakeStore) visibleDocuments() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id := range f.documents {
		if len(f.chunks[id]) > 0 {
			n++
		}
	}
	return n
}

// fakeFetcher serves canned content for a URL prefix.
type fakeFetcher struct {
	source  domain.Source
	prefix  string
	content string
	err     error
}

func (f *fakeFetcher) Source() domain.Source { return f.source }

func (f *fakeFetcher) Matches(url string) bool {
	return f.prefix != "" && len(url) >= len(f.prefix) && url[:len(f.prefix)] == f.prefix
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}
