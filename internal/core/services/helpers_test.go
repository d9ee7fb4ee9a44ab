package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/semdex/internal/core/domain"
	"github.com/custodia-labs/semdex/internal/core/ports/driven"
)

// memStateStore is an in-memory StateStore recording every Save.
type memStateStore struct {
	mu    sync.Mutex
	state driven.IndexState
	saves int
	err   error
}

func (s *memStateStore) Load() (driven.IndexState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return driven.IndexState{}, s.err
	}
	return s.state, nil
}

func (s *memStateStore) Save(state driven.IndexState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.saves++
	return nil
}

func (s *memStateStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *memStateStore) saved() driven.IndexState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// recordingStore is a DocumentStore capturing calls made by the
// ingestion pipeline.
type recordingStore struct {
	mu       sync.Mutex
	added    map[string][][]domain.Chunk
	deleted  []string
	results  []domain.SearchResult
	addErr   error
	delErr   error
	searched [][]float32
}

func newRecordingStore() *recordingStore {
	return &recordingStore{added: make(map[string][][]domain.Chunk)}
}

func (s *recordingStore) AddDocument(_ context.Context, sourcePath string, chunks []domain.Chunk) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return "", s.addErr
	}
	s.added[sourcePath] = append(s.added[sourcePath], chunks)
	return "doc-" + sourcePath, nil
}

func (s *recordingStore) AddHighlight(_ context.Context, h domain.Highlight) (string, error) {
	return "highlight-" + h.Source, nil
}

func (s *recordingStore) Search(_ context.Context, query []float32, _ int, _ float64) ([]domain.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searched = append(s.searched, query)
	return s.results, nil
}

func (s *recordingStore) DeleteBySource(_ context.Context, sourcePath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return 0, s.delErr
	}
	s.deleted = append(s.deleted, sourcePath)
	return 1, nil
}

func (s *recordingStore) DeleteDocument(context.Context, string) error { return nil }

func (s *recordingStore) Stats(context.Context) (domain.StoreStats, error) {
	return domain.StoreStats{}, nil
}

func (s *recordingStore) Clear(context.Context) error { return nil }

func (s *recordingStore) Close() error { return nil }

func (s *recordingStore) addedVersions(source string) [][]domain.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.added[source]
}

func (s *recordingStore) deletedSources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.deleted))
	copy(out, s.deleted)
	return out
}

// stubEmbedder maps exact texts to fixed vectors, with a fallback for
// everything else.
type stubEmbedder struct {
	dims int
	vecs map[string][]float32
	err  error
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vecs[text]; ok {
		return v, nil
	}
	v := make([]float32, e.dims)
	v[0] = 1
	return v, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int            { return e.dims }
func (e *stubEmbedder) ModelName() string          { return "stub" }
func (e *stubEmbedder) Ping(context.Context) error { return nil }
func (e *stubEmbedder) Close() error               { return nil }

// stubExtractor returns the file content verbatim, optionally blocking
// until released so tests can observe in-flight coalescing.
type stubExtractor struct {
	exts    []string
	started chan struct{}
	release chan struct{}
	read    func(path string) (string, error)
}

func (e *stubExtractor) Extract(ctx context.Context, path string) (string, map[string]any, error) {
	if e.started != nil {
		e.started <- struct{}{}
	}
	if e.release != nil {
		select {
		case <-e.release:
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
	}
	content, err := e.read(path)
	if err != nil {
		return "", nil, err
	}
	return content, map[string]any{"title": "stub"}, nil
}

func (e *stubExtractor) Extensions() []string { return e.exts }

// stubExtractorRegistry resolves every registered extension to one
// extractor.
type stubExtractorRegistry struct {
	extractor driven.Extractor
	exts      map[string]bool
}

func newStubExtractorRegistry(ex *stubExtractor) *stubExtractorRegistry {
	reg := &stubExtractorRegistry{extractor: ex, exts: make(map[string]bool)}
	for _, ext := range ex.Extensions() {
		reg.exts[ext] = true
	}
	return reg
}

func (r *stubExtractorRegistry) Lookup(path string) (driven.Extractor, error) {
	if !r.Supported(path) {
		return nil, domain.ErrUnsupportedType
	}
	return r.extractor, nil
}

func (r *stubExtractorRegistry) Supported(path string) bool {
	for ext := range r.exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func (r *stubExtractorRegistry) SupportedExtensions() []string {
	out := make([]string, 0, len(r.exts))
	for ext := range r.exts {
		out = append(out, ext)
	}
	return out
}

// wholeChunker emits the content as a single chunk.
type wholeChunker struct{}

func (wholeChunker) Split(content string) []string {
	if content == "" {
		return nil
	}
	return []string{content}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition never held: %s", msg)
}
