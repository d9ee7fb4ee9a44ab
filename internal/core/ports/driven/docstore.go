package driven

import (
	"context"

	"github.com/custodia-labs/semdex/internal/core/domain"
)

// DocumentStore owns chunk persistence, embeddings, similarity search
// and deletion. Backed by SQLite. The backing table is the single
// source of truth shared by the ingestion and query paths; writes are
// atomic at the row-batch level so a concurrent query never observes a
// half-written chunk set.
type DocumentStore interface {
	// AddDocument embeds the chunk texts and writes all rows in one
	// batch, assigning ids "{documentID}_chunk_{i}". An empty chunk
	// slice is a no-op returning an empty id, not an error.
	AddDocument(ctx context.Context, sourcePath string, chunks []domain.Chunk) (string, error)

	// AddHighlight stores a single highlight chunk with its colour tag.
	AddHighlight(ctx context.Context, h domain.Highlight) (string, error)

	// Search returns candidates with similarity at or above threshold,
	// deduplicated by normalised content, sorted descending. The scan
	// internally inflates the pool and relaxes the threshold to give
	// the reranker room.
	Search(ctx context.Context, query []float32, limit int, threshold float64) ([]domain.SearchResult, error)

	// DeleteBySource removes all chunks for a source path, trying
	// exact, normalised-path and filename-substring matching in that
	// order. Returns the number of rows removed.
	DeleteBySource(ctx context.Context, sourcePath string) (int, error)

	// DeleteDocument removes all chunks with the document-id prefix.
	DeleteDocument(ctx context.Context, documentID string) error

	// Stats summarises the store contents.
	Stats(ctx context.Context) (domain.StoreStats, error)

	// Clear drops and recreates the backing table.
	Clear(ctx context.Context) error

	// Close releases the backing storage.
	Close() error
}
