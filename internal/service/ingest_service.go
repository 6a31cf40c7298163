package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mirrorhq/mirror/internal/chunker"
	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/port"
)

// IngestConfig bounds the ingestion pipeline.
type IngestConfig struct {
	// EmbedConcurrency limits in-flight embedding calls per ingestion.
	EmbedConcurrency int
	// RetryBackoff is the wait before the single retry of a transient
	// storage failure.
	RetryBackoff time.Duration
}

// Ingestion defaults.
const (
	DefaultEmbedConcurrency = 4
	DefaultRetryBackoff     = 500 * time.Millisecond
)

// IngestService turns raw text into a chunked, embedded, persisted
// document. The operation is atomic from the caller's view: if any chunk
// fails to embed or store, no document remains visible.
type IngestService struct {
	store    port.DocumentStore
	embedder port.Embedder
	chunker  *chunker.Chunker
	cfg      IngestConfig
}

// NewIngestService creates an ingest service. Zero config fields get defaults.
func NewIngestService(store port.DocumentStore, embedder port.Embedder, ch *chunker.Chunker, cfg IngestConfig) *IngestService {
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = DefaultEmbedConcurrency
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	return &IngestService{
		store:    store,
		embedder: embedder,
		chunker:  ch,
		cfg:      cfg,
	}
}

// Ingest chunks the text, embeds every chunk, and persists the document
// with its chunks in order. Empty or whitespace-only text is a no-op and
// returns an empty document id. Any failure surfaces the underlying error
// kind and leaves no document behind.
func (s *IngestService) Ingest(ctx context.Context, ownerID string, source domain.Source, text string) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", fmt.Errorf("%w: empty owner id", port.ErrInvalidInput)
	}
	if !source.Valid() {
		return "", fmt.Errorf("%w: unknown source %q", port.ErrInvalidInput, source)
	}

	segments := s.chunker.Split(text)
	if len(segments) == 0 {
		slog.Info("nothing to ingest", "owner_id", ownerID, "source", source)
		return "", nil
	}

	embeddings, err := s.embedAll(ctx, segments)
	if err != nil {
		return "", err
	}

	doc, err := s.createDocumentWithRetry(ctx, ownerID, source)
	if err != nil {
		return "", err
	}

	inputs := make([]domain.ChunkInput, len(segments))
	for i := range segments {
		inputs[i] = domain.ChunkInput{Content: segments[i], Embedding: embeddings[i]}
	}

	if err := s.putChunksWithRetry(ctx, doc.ID, inputs); err != nil {
		// Leave no half-written document behind; readers never saw it.
		if delErr := s.store.DeleteDocument(context.WithoutCancel(ctx), doc.ID); delErr != nil {
			slog.Error("failed to remove aborted document", "document_id", doc.ID, "error", delErr)
		}
		return "", err
	}

	slog.Info("ingested document", "document_id", doc.ID, "owner_id", ownerID, "source", source, "chunks", len(segments))
	return doc.ID, nil
}

// embedAll embeds each segment with bounded concurrency, reassembling the
// results in segment order. One failed chunk aborts the whole batch.
func (s *IngestService) embedAll(ctx context.Context, segments []string) ([][]float32, error) {
	embeddings := make([][]float32, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EmbedConcurrency)
	for i, segment := range segments {
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, segment)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (s *IngestService) createDocumentWithRetry(ctx context.Context, ownerID string, source domain.Source) (*domain.Document, error) {
	doc, err := s.store.CreateDocument(ctx, ownerID, source)
	if err != nil && s.retryable(ctx, err) {
		doc, err = s.store.CreateDocument(ctx, ownerID, source)
	}
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (s *IngestService) putChunksWithRetry(ctx context.Context, documentID string, inputs []domain.ChunkInput) error {
	err := s.store.PutChunks(ctx, documentID, inputs)
	if err != nil && s.retryable(ctx, err) {
		err = s.store.PutChunks(ctx, documentID, inputs)
	}
	if err != nil {
		return fmt.Errorf("put chunks: %w", err)
	}
	return nil
}

// retryable sleeps out the backoff and reports whether the error warrants
// the single retry: transient storage trouble, not capability rejections.
func (s *IngestService) retryable(ctx context.Context, err error) bool {
	if !errors.Is(err, port.ErrStorageUnavailable) {
		return false
	}
	select {
	case <-time.After(s.cfg.RetryBackoff):
		return true
	case <-ctx.Done():
		return false
	}
}
