package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/port"
)

// VectorStore handles document and chunk persistence, including the
// pgvector similarity operations. It implements port.DocumentStore.
type VectorStore struct {
	store     *PostgresStore
	dimension int
}

var _ port.DocumentStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store backed by the given Postgres store.
func NewVectorStore(store *PostgresStore, dimension int) *VectorStore {
	return &VectorStore{store: store, dimension: dimension}
}

// CreateDocument allocates a fresh document for the owner. Documents with
// no chunks are never returned by the read paths, so the document stays
// invisible until PutChunks succeeds.
func (v *VectorStore) CreateDocument(ctx context.Context, ownerID string, source domain.Source) (*domain.Document, error) {
	query := `INSERT INTO documents (id, owner_id, source)
	          VALUES ($1, $2, $3)
	          RETURNING id, owner_id, source, created_at`

	var doc domain.Document
	err := v.store.db.QueryRowContext(ctx, query, uuid.NewString(), ownerID, string(source)).Scan(
		&doc.ID, &doc.OwnerID, &doc.Source, &doc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create document: %v", port.ErrStorageUnavailable, err)
	}
	return &doc, nil
}

// PutChunks persists the batch in one transaction, assigning chunk_index by
// position. On any failure the transaction rolls back and nothing is visible.
func (v *VectorStore) PutChunks(ctx context.Context, documentID string, chunks []domain.ChunkInput) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: empty chunk batch", port.ErrInvalidInput)
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", port.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, chunk_index, content, embedding)
		 VALUES ($1, $2, $3, $4, $5::vector)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", port.ErrStorageUnavailable, err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), documentID, i, c.Content, pgvector.NewVector(c.Embedding),
		); err != nil {
			return fmt.Errorf("%w: insert chunk %d: %v", port.ErrPartialWrite, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit chunks: %v", port.ErrPartialWrite, err)
	}
	return nil
}

// DeleteDocument removes a document and its chunks. Used to roll an
// aborted ingestion back.
func (v *VectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := v.store.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("%w: delete chunks: %v", port.ErrStorageUnavailable, err)
	}
	if _, err := v.store.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1`, documentID); err != nil {
		return fmt.Errorf("%w: delete document: %v", port.ErrStorageUnavailable, err)
	}
	return nil
}

// CandidateChunks returns the owner's chunks, newest documents first and
// chunk order preserved within a document.
func (v *VectorStore) CandidateChunks(ctx context.Context, ownerID string) ([]domain.Candidate, error) {
	query := `SELECT c.id, c.content
	          FROM chunks c
	          JOIN documents d ON d.id = c.document_id
	          WHERE d.owner_id = $1
	          ORDER BY d.created_at DESC, c.chunk_index ASC`

	rows, err := v.store.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: candidate chunks: %v", port.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	candidates := []domain.Candidate{}
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.Content); err != nil {
			return nil, fmt.Errorf("%w: scan candidate: %v", port.ErrStorageUnavailable, err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// SearchSimilar performs a cosine similarity search over the owner's chunks.
func (v *VectorStore) SearchSimilar(ctx context.Context, ownerID string, queryVec []float32, limit int) ([]domain.SimilarChunk, error) {
	query := `SELECT c.id, c.document_id, c.chunk_index, c.content, c.created_at,
	                 1 - (c.embedding <=> $1::vector) AS similarity
	          FROM chunks c
	          JOIN documents d ON d.id = c.document_id
	          WHERE d.owner_id = $2
	          ORDER BY c.embedding <=> $1::vector
	          LIMIT $3`

	rows, err := v.store.db.QueryContext(ctx, query, pgvector.NewVector(queryVec), ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search similar: %v", port.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var results []domain.SimilarChunk
	for rows.Next() {
		var sc domain.SimilarChunk
		if err := rows.Scan(
			&sc.ID, &sc.DocumentID, &sc.ChunkIndex, &sc.Content, &sc.CreatedAt, &sc.Similarity,
		); err != nil {
			return nil, fmt.Errorf("%w: scan similar: %v", port.ErrStorageUnavailable, err)
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// DocumentsText reconstructs each of the owner's documents by joining its
// chunks in chunk_index order. The inner join drops documents without
// chunks, so failed ingestions never surface.
func (v *VectorStore) DocumentsText(ctx context.Context, ownerID string, source domain.Source) ([]domain.DocumentText, error) {
	query := `SELECT d.id, d.source, string_agg(c.content, E'\n' ORDER BY c.chunk_index), d.created_at
	          FROM documents d
	          JOIN chunks c ON c.document_id = d.id
	          WHERE d.owner_id = $1 AND ($2 = '' OR d.source = $2)
	          GROUP BY d.id, d.source, d.created_at
	          ORDER BY d.created_at ASC`

	rows, err := v.store.db.QueryContext(ctx, query, ownerID, string(source))
	if err != nil {
		return nil, fmt.Errorf("%w: documents text: %v", port.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	docs := []domain.DocumentText{}
	for rows.Next() {
		var dt domain.DocumentText
		if err := rows.Scan(&dt.DocumentID, &dt.Source, &dt.Content, &dt.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan document text: %v", port.ErrStorageUnavailable, err)
		}
		docs = append(docs, dt)
	}
	return docs, rows.Err()
}

// Dimension returns the configured embedding width.
func (v *VectorStore) Dimension() int {
	return v.dimension
}
