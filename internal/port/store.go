package port

import (
	"context"

	"github.com/mirrorhq/mirror/internal/domain"
)

// DocumentStore persists ingested documents and their ordered chunks.
// Documents and chunks are created once at ingestion and never mutated;
// re-ingestion creates a new document. Readers only ever see documents that
// have at least one chunk.
type DocumentStore interface {
	// CreateDocument allocates a fresh document for the owner. The document
	// is invisible to retrieval until PutChunks succeeds.
	CreateDocument(ctx context.Context, ownerID string, source domain.Source) (*domain.Document, error)

	// PutChunks persists the batch with chunk_index assigned by position.
	// The write is all-or-nothing: on failure inside the batch it reports
	// ErrPartialWrite and nothing is visible.
	PutChunks(ctx context.Context, documentID string, chunks []domain.ChunkInput) error

	// DeleteDocument removes a document and any chunks written for it.
	// Used to roll an aborted ingestion back.
	DeleteDocument(ctx context.Context, documentID string) error

	// CandidateChunks returns the owner's chunks, newest documents first,
	// chunk order preserved within a document. Owners with no content get
	// an empty slice, not an error.
	CandidateChunks(ctx context.Context, ownerID string) ([]domain.Candidate, error)

	// SearchSimilar returns the owner's chunks closest to the query vector
	// by cosine distance.
	SearchSimilar(ctx context.Context, ownerID string, query []float32, limit int) ([]domain.SimilarChunk, error)

	// DocumentsText reconstructs each of the owner's documents by joining
	// its chunks in chunk_index order with a newline, ordered by created_at
	// ascending. source filters to one source when non-empty.
	DocumentsText(ctx context.Context, ownerID string, source domain.Source) ([]domain.DocumentText, error)
}

// SourceFetcher turns an external URL into plain text. Implementations
// exist for web pages, YouTube videos, and Notion pages; the pipeline has
// no visibility into how the text was obtained.
type SourceFetcher interface {
	// Source reports which content source this fetcher produces.
	Source() domain.Source

	// Matches reports whether this fetcher handles the given URL.
	Matches(url string) bool

	// Fetch retrieves and extracts the plain text behind the URL.
	Fetch(ctx context.Context, url string) (string, error)
}
