package domain

import (
	"strings"
	"time"
)

// Chunk represents a searchable unit of extracted document text.
// Chunks are immutable once stored: reprocessing a file deletes the old
// chunks for that source before the new set is written.
type Chunk struct {
	// ID is the unique identifier, "{documentID}_chunk_{index}" for
	// document chunks or a bare UUID for highlights.
	ID string

	// Content is the text content of this chunk.
	Content string

	// Metadata contains source-defined key-value pairs.
	Metadata map[string]any

	// Embedding is the vector representation for similarity search.
	Embedding []float32

	// Source is the path of the file this chunk was extracted from.
	Source string

	// Position is the ordinal position within the source document.
	Position int

	// CreatedAt is when the chunk was stored.
	CreatedAt time.Time

	// IsHighlight marks user-captured highlights rather than document text.
	IsHighlight bool

	// HighlightColor is the colour tag for highlight chunks.
	HighlightColor string
}

// Highlight is a user-captured snippet submitted for indexing outside
// the normal file ingestion path.
type Highlight struct {
	// Content is the highlighted text.
	Content string

	// Source identifies where the highlight was captured.
	Source string

	// Color is the highlight colour tag (e.g. "yellow", "red").
	Color string

	// Note is an optional personal annotation.
	Note string

	// Tags are optional user labels.
	Tags []string

	// Metadata contains additional key-value pairs.
	Metadata map[string]any
}

// SearchResult represents a single ranked search hit.
type SearchResult struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Content is the chunk text.
	Content string

	// Source is the originating file path or highlight source.
	Source string

	// Similarity is the raw vector similarity before reranking.
	Similarity float64

	// FinalScore is the weighted multi-factor ranking score.
	FinalScore float64

	// DisplayScore is FinalScore scaled to a 0-100 percentage.
	DisplayScore float64

	// Factors holds the named sub-scores that produced FinalScore.
	Factors map[string]float64

	// Metadata is the chunk metadata.
	Metadata map[string]any

	// IsHighlight marks results that came from captured highlights.
	IsHighlight bool

	// HighlightColor is the colour tag for highlight results.
	HighlightColor string

	// CreatedAt is when the chunk was stored.
	CreatedAt time.Time

	// DisplayTitle is the source filename or highlight title.
	DisplayTitle string

	// DisplaySnippet is the content truncated at a word boundary.
	DisplaySnippet string
}

// StoreStats summarises the contents of the document store.
type StoreStats struct {
	// TotalChunks is the number of stored chunks.
	TotalChunks int

	// DocumentChunks is the number of non-highlight chunks.
	DocumentChunks int

	// HighlightChunks is the number of highlight chunks.
	HighlightChunks int

	// SourceCount is the number of distinct sources.
	SourceCount int

	// Dimensions is the embedding vector size.
	Dimensions int
}

// NormalizeContent returns the canonical form used for content
// deduplication: trimmed and lower-cased. Near-duplicates differing
// in internal whitespace or formatting are deliberately not merged.
func NormalizeContent(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}
