package vectorstore

import (
	"context"
	"fmt"
)

// Metadata is the scalar payload stored alongside each chunk.
type Metadata struct {
	DocumentID  string `json:"documentId"`
	Filename    string `json:"filename"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
	ContentType string `json:"contentType"`
	WordCount   int    `json:"wordCount"`
}

// Chunk is the unit of retrieval kept in the vector index. The index computes
// embeddings from Text server-side.
type Chunk struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// SearchResult is one nearest-neighbor match.
type SearchResult struct {
	DocumentID     string  `json:"documentId"`
	Filename       string  `json:"filename"`
	Text           string  `json:"text"`
	RelevanceScore float64 `json:"relevanceScore"`
	ChunkIndex     int     `json:"chunkIndex"`
}

// Store defines the vector index operations the orchestrators rely on.
type Store interface {
	// Upsert writes chunk records to the index. Re-upserting an id overwrites.
	Upsert(ctx context.Context, chunks []Chunk) error

	// SearchByText embeds the query provider-side and returns up to topK
	// matches ordered by descending relevance, optionally restricted to the
	// given document ids.
	SearchByText(ctx context.Context, query string, topK int, documentIDs []string) ([]SearchResult, error)

	// FetchByDocument retrieves a document's chunks by their deterministic
	// ids, sorted by chunk index.
	FetchByDocument(ctx context.Context, documentID string, totalChunks int) ([]Chunk, error)

	// DeleteByDocument removes every chunk whose metadata references the
	// document id.
	DeleteByDocument(ctx context.Context, documentID string) error
}

// ChunkID builds the deterministic record id for a document's chunk, which
// makes upserts idempotent and fetches addressable.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}
