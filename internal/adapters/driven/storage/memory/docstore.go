// Package memory provides in-memory implementations of the driven
// storage ports, used by tests and as a no-persistence fallback.
package memory

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/semdex/internal/core/domain"
	"github.com/custodia-labs/semdex/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// It mirrors the SQLite store's semantics, including candidate pool
// inflation and normalised-content deduplication.
type DocumentStore struct {
	mu       sync.RWMutex
	chunks   map[string]domain.Chunk
	embedder driven.EmbeddingProvider
	cfg      domain.StoreConfig
}

// NewDocumentStore creates an empty in-memory store.
func NewDocumentStore(cfg domain.StoreConfig, embedder driven.EmbeddingProvider) *DocumentStore {
	if cfg.PoolMultiplier <= 0 {
		cfg.PoolMultiplier = 2
	}
	if cfg.RelaxedFactor <= 0 || cfg.RelaxedFactor > 1 {
		cfg.RelaxedFactor = 0.8
	}
	return &DocumentStore{
		chunks:   make(map[string]domain.Chunk),
		embedder: embedder,
		cfg:      cfg,
	}
}

// AddDocument embeds and stores chunks for a source, replacing any
// previous chunks for that source.
func (s *DocumentStore) AddDocument(ctx context.Context, sourcePath string, chunks []domain.Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}
	if s.embedder == nil {
		return "", domain.ErrEmbeddingUnavailable
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(embeddings) != len(chunks) {
		return "", fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrEmbedding, len(embeddings), len(chunks))
	}

	documentID := uuid.New().String()
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, chunk := range s.chunks {
		if chunk.Source == sourcePath && !chunk.IsHighlight {
			delete(s.chunks, id)
		}
	}

	for i := range chunks {
		stored := chunks[i]
		stored.ID = fmt.Sprintf("%s_chunk_%d", documentID, i)
		stored.Embedding = embeddings[i]
		stored.Source = sourcePath
		stored.Position = i
		stored.CreatedAt = now
		s.chunks[stored.ID] = stored
	}

	return documentID, nil
}

// AddHighlight stores a single highlight chunk.
func (s *DocumentStore) AddHighlight(ctx context.Context, h domain.Highlight) (string, error) {
	if strings.TrimSpace(h.Content) == "" {
		return "", domain.ErrInvalidInput
	}
	if s.embedder == nil {
		return "", domain.ErrEmbeddingUnavailable
	}

	embedding, err := s.embedder.Embed(ctx, h.Content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}

	metadata := make(map[string]any, len(h.Metadata)+2)
	for k, v := range h.Metadata {
		metadata[k] = v
	}
	if h.Note != "" {
		metadata["note"] = h.Note
	}
	if len(h.Tags) > 0 {
		metadata["tags"] = h.Tags
	}

	chunk := domain.Chunk{
		ID:             uuid.New().String(),
		Content:        h.Content,
		Metadata:       metadata,
		Embedding:      embedding,
		Source:         h.Source,
		CreatedAt:      time.Now().UTC(),
		IsHighlight:    true,
		HighlightColor: strings.ToLower(h.Color),
	}

	s.mu.Lock()
	s.chunks[chunk.ID] = chunk
	s.mu.Unlock()

	return chunk.ID, nil
}

// Search scores all chunks and returns the deduplicated candidate pool
// at or above the threshold, sorted by similarity descending.
func (s *DocumentStore) Search(
	_ context.Context, query []float32, limit int, threshold float64,
) ([]domain.SearchResult, error) {
	if len(query) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 {
		limit = 10
	}

	poolSize := limit * s.cfg.PoolMultiplier
	relaxed := threshold * s.cfg.RelaxedFactor

	s.mu.RLock()
	candidates := make([]domain.SearchResult, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if len(chunk.Embedding) != len(query) {
			continue
		}
		similarity := 1.0 / (1.0 + euclidean(query, chunk.Embedding))
		if similarity < relaxed {
			continue
		}
		candidates = append(candidates, domain.SearchResult{
			ChunkID:        chunk.ID,
			Content:        chunk.Content,
			Source:         chunk.Source,
			Similarity:     similarity,
			Metadata:       chunk.Metadata,
			IsHighlight:    chunk.IsHighlight,
			HighlightColor: chunk.HighlightColor,
			CreatedAt:      chunk.CreatedAt,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > poolSize {
		candidates = candidates[:poolSize]
	}

	seen := make(map[string]bool, len(candidates))
	results := make([]domain.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity < threshold {
			continue
		}
		normalized := domain.NormalizeContent(c.Content)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		results = append(results, c)
	}

	return results, nil
}

// DeleteBySource removes chunks by exact, cleaned-path, then filename
// substring matching, stopping at the first strategy that matches.
func (s *DocumentStore) DeleteBySource(_ context.Context, sourcePath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	match := func(pred func(string) bool) int {
		removed := 0
		for id, chunk := range s.chunks {
			if pred(chunk.Source) {
				delete(s.chunks, id)
				removed++
			}
		}
		return removed
	}

	if n := match(func(src string) bool { return src == sourcePath }); n > 0 {
		return n, nil
	}
	if cleaned := filepath.Clean(sourcePath); cleaned != sourcePath {
		if n := match(func(src string) bool { return src == cleaned }); n > 0 {
			return n, nil
		}
	}
	name := filepath.Base(sourcePath)
	if name != "" && name != "." {
		return match(func(src string) bool { return strings.Contains(src, name) }), nil
	}
	return 0, nil
}

// DeleteDocument removes all chunks with the document-id prefix.
func (s *DocumentStore) DeleteDocument(_ context.Context, documentID string) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}
	prefix := documentID + "_chunk_"

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.chunks {
		if strings.HasPrefix(id, prefix) {
			delete(s.chunks, id)
		}
	}
	return nil
}

// Stats summarises the store contents.
func (s *DocumentStore) Stats(_ context.Context) (domain.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.StoreStats{TotalChunks: len(s.chunks)}
	sources := make(map[string]bool)
	for _, chunk := range s.chunks {
		if chunk.IsHighlight {
			stats.HighlightChunks++
		}
		sources[chunk.Source] = true
	}
	stats.DocumentChunks = stats.TotalChunks - stats.HighlightChunks
	stats.SourceCount = len(sources)
	if s.embedder != nil {
		stats.Dimensions = s.embedder.Dimensions()
	}
	return stats, nil
}

// Clear removes all chunks.
func (s *DocumentStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.chunks = make(map[string]domain.Chunk)
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *DocumentStore) Close() error {
	return nil
}

// Len returns the stored chunk count. Test helper.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
