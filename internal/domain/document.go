package domain

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Source identifies where a document's content came from.
type Source string

// Known content sources.
const (
	SourceUser    Source = "user"
	SourceWeb     Source = "web"
	SourceNotion  Source = "notion"
	SourceYouTube Source = "youtube"
)

// Valid reports whether s is one of the known content sources.
func (s Source) Valid() bool {
	switch s {
	case SourceUser, SourceWeb, SourceNotion, SourceYouTube:
		return true
	}
	return false
}

// Document represents one ingested unit of content (a note, a scraped page,
// a Notion page, a video transcript). A document only becomes visible to
// retrieval once its chunks are written.
type Document struct {
	ID        string    `json:"id"         db:"id"`
	OwnerID   string    `json:"owner_id"   db:"owner_id"`
	Source    Source    `json:"source"     db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Chunk is a contiguous, order-indexed slice of a document's text and the
// unit of embedding and retrieval. ChunkIndex is 0-based and unique within
// a document.
type Chunk struct {
	ID         string          `json:"id"          db:"id"`
	DocumentID string          `json:"document_id" db:"document_id"`
	ChunkIndex int             `json:"chunk_index" db:"chunk_index"`
	Content    string          `json:"content"     db:"content"`
	Embedding  pgvector.Vector `json:"-"           db:"embedding"`
	CreatedAt  time.Time       `json:"created_at"  db:"created_at"`
}

// ChunkInput is a chunk awaiting persistence; its index is assigned by
// position in the batch handed to the store.
type ChunkInput struct {
	Content   string
	Embedding []float32
}

// Candidate is a chunk offered to the reranker.
type Candidate struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// RankedChunk is returned by retrieval, carrying the relevance score
// assigned to a candidate. Higher is more relevant.
type RankedChunk struct {
	Candidate
	Score float64 `json:"score"`
}

// SimilarChunk is returned by vector similarity search, including the
// cosine similarity to the query embedding.
type SimilarChunk struct {
	Chunk
	Similarity float64 `json:"similarity"`
}

// DocumentText is a document's full text reconstructed from its chunks in
// chunk_index order.
type DocumentText struct {
	DocumentID string    `json:"document_id" db:"document_id"`
	Source     Source    `json:"source"      db:"source"`
	Content    string    `json:"content"     db:"content"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}
