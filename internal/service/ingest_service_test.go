package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorhq/mirror/internal/chunker"
	"github.com/mirrorhq/mirror/internal/port"
)

func newIngestService(store *fakeStore, embedder *fakeEmbedder, maxLen int) *IngestService {
	return NewIngestService(store, embedder, chunker.New(chunker.WithMaxLength(maxLen)), IngestConfig{
		RetryBackoff: time.Millisecond,
	})
}

func TestIngestService_Ingest_InvalidInput(t *testing.T) {
	svc := newIngestService(newFakeStore(), &fakeEmbedder{}, 100)

	_, err := svc.Ingest(context.Background(), "", "user", "text")
	assert.ErrorIs(t, err, port.ErrInvalidInput)

	_, err = svc.Ingest(context.Background(), "owner", "carrier-pigeon", "text")
	assert.ErrorIs(t, err, port.ErrInvalidInput)
}

func TestIngestService_Ingest_EmptyTextIsNoOp(t *testing.T) {
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	svc := newIngestService(store, embedder, 100)

	id, err := svc.Ingest(context.Background(), "owner", "user", "   \n ")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Zero(t, embedder.calls)
	assert.Zero(t, store.createCalls)
}

func TestIngestService_Ingest_ChunksInOrder(t *testing.T) {
	// 9000 chars at max 4000 → chunks of 4000, 4000, 1000, stored in
	// chunk_index order 0,1,2 and each embedded independently.
	store := newFakeStore()
	embedder := &fakeEmbedder{}
	svc := newIngestService(store, embedder, 4000)

	text := strings.Repeat("a", 4000) + strings.Repeat("b", 4000) + strings.Repeat("c", 1000)
	id, err := svc.Ingest(context.Background(), "owner", "user", text)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	assert.Equal(t, 3, embedder.calls)
	written := store.chunks[id]
	require.Len(t, written, 3)
	assert.Equal(t, strings.Repeat("a", 4000), written[0].Content)
	assert.Equal(t, strings.Repeat("b", 4000), written[1].Content)
	assert.Equal(t, strings.Repeat("c", 1000), written[2].Content)
	for _, c := range written {
		assert.NotEmpty(t, c.Embedding)
	}
}

func TestIngestService_Ingest_EmbedFailureAborts(t *testing.T) {
	// The second of three chunk embeds fails: nothing becomes visible.
	store := newFakeStore()
	embedder := &fakeEmbedder{failOn: 2}
	svc := NewIngestService(store, embedder, chunker.New(chunker.WithMaxLength(10)), IngestConfig{
		EmbedConcurrency: 1,
		RetryBackoff:     time.Millisecond,
	})

	_, err := svc.Ingest(context.Background(), "owner", "user", strings.Repeat("x", 25))
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrEmbeddingUnavailable)
	assert.Zero(t, store.createCalls, "no document is created when embedding fails")
	assert.Zero(t, store.visibleDocuments())
}

func TestIngestService_Ingest_TransientStorageRetry(t *testing.T) {
	store := newFakeStore()
	store.putErrs = []error{fmt.Errorf("%w: timeout", port.ErrStorageUnavailable), nil}
	svc := newIngestService(store, &fakeEmbedder{}, 100)

	id, err := svc.Ingest(context.Background(), "owner", "user", "a short note")
	require.NoError(t, err)
	assert.Equal(t, 2, store.putCalls, "exactly one retry after a transient failure")
	assert.Len(t, store.chunks[id], 1)
}

func TestIngestService_Ingest_PartialWriteRollsBack(t *testing.T) {
	store := newFakeStore()
	store.putErrs = []error{fmt.Errorf("%w: insert chunk 1", port.ErrPartialWrite)}
	svc := newIngestService(store, &fakeEmbedder{}, 100)

	_, err := svc.Ingest(context.Background(), "owner", "web", "a short note")
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrPartialWrite)
	assert.Equal(t, 1, store.putCalls, "partial writes are not retried")
	assert.Zero(t, store.visibleDocuments())
	assert.Empty(t, store.documents, "the aborted document is removed")
}

func TestIngestService_Ingest_StorageDownSurfaces(t *testing.T) {
	store := newFakeStore()
	unavailable := fmt.Errorf("%w: connection refused", port.ErrStorageUnavailable)
	store.createErrs = []error{unavailable, unavailable}
	svc := newIngestService(store, &fakeEmbedder{}, 100)

	_, err := svc.Ingest(context.Background(), "owner", "user", "a short note")
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrStorageUnavailable)
	assert.Equal(t, 2, store.createCalls, "one retry, then give up")
	assert.Zero(t, store.visibleDocuments())
}
