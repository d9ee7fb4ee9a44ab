package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/custodia-labs/semdex/internal/core/domain"
	"github.com/custodia-labs/semdex/internal/core/ports/driven"
	"github.com/custodia-labs/semdex/internal/logger"
)

// Task kinds submitted by the ingestor.
const (
	TaskKindIngest = "ingest"
	TaskKindRemove = "remove"
)

// Ingestor consumes the ingestion queue and turns file events into
// background tasks running the extract -> chunk -> embed -> store
// pipeline. It serialises work per path: at most one task per file is
// ever running, and events arriving for an in-flight path are coalesced
// so exactly one follow-up run processes the latest content.
type Ingestor struct {
	cfg        domain.WatcherConfig
	registry   *ProcessedFileRegistry
	extractors driven.ExtractorRegistry
	chunker    driven.Chunker
	store      driven.DocumentStore
	processor  *BackgroundProcessor

	mu      sync.Mutex
	active  map[string]bool
	pending map[string]domain.FileEvent
}

// NewIngestor creates the ingestion consumer and registers its
// completion hook on the processor. Must be called before the
// processor starts.
func NewIngestor(
	cfg domain.WatcherConfig,
	registry *ProcessedFileRegistry,
	extractors driven.ExtractorRegistry,
	chunker driven.Chunker,
	store driven.DocumentStore,
	processor *BackgroundProcessor,
) *Ingestor {
	ing := &Ingestor{
		cfg:        cfg,
		registry:   registry,
		extractors: extractors,
		chunker:    chunker,
		store:      store,
		processor:  processor,
		active:     make(map[string]bool),
		pending:    make(map[string]domain.FileEvent),
	}
	processor.SetCompletionHook(ing.taskDone)
	return ing
}

// Run consumes file events until the channel closes or the context is
// cancelled. Intended to run on its own goroutine.
func (i *Ingestor) Run(ctx context.Context, events <-chan domain.FileEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			i.dispatch(ev)
		}
	}
}

// dispatch submits a task for the event, or parks it when a task for
// the same path is already in flight. Same-path events are processed in
// submission order; a parked event always carries the newest intent, so
// a stale write can never clobber a newer one.
func (i *Ingestor) dispatch(ev domain.FileEvent) {
	i.mu.Lock()
	if i.active[ev.Path] {
		i.pending[ev.Path] = ev
		i.mu.Unlock()
		logger.Debug("Coalescing event for in-flight path %s", ev.Path)
		return
	}
	i.active[ev.Path] = true
	i.mu.Unlock()

	i.submit(ev)
}

// submit hands the event to the background processor.
func (i *Ingestor) submit(ev domain.FileEvent) {
	kind := TaskKindIngest
	if ev.Kind == domain.EventRemove {
		kind = TaskKindRemove
	}

	fn := func(ctx context.Context, progress ProgressFunc) (any, error) {
		return i.handle(ctx, ev, progress)
	}

	_, err := i.processor.Submit(fn, ev.Path, kind, ev.Priority, map[string]any{"path": ev.Path})
	if err != nil {
		logger.Warn("Submitting %s task for %s failed: %v", kind, ev.Path, err)
		i.mu.Lock()
		delete(i.active, ev.Path)
		delete(i.pending, ev.Path)
		i.mu.Unlock()
	}
}

// taskDone is the processor completion hook: resubmit the parked event
// for the path, or release the in-flight slot.
func (i *Ingestor) taskDone(task domain.ProcessingTask) {
	path, _ := task.Metadata["path"].(string)
	if path == "" {
		return
	}

	i.mu.Lock()
	next, ok := i.pending[path]
	if ok {
		delete(i.pending, path)
	} else {
		delete(i.active, path)
	}
	i.mu.Unlock()

	if ok {
		i.submit(next)
	}
}

// handle executes one file event.
func (i *Ingestor) handle(
	ctx context.Context, ev domain.FileEvent, progress ProgressFunc,
) (any, error) {
	switch ev.Kind {
	case domain.EventRemove:
		return i.removeFile(ctx, ev.Path)
	default:
		return i.processFile(ctx, ev.Path, progress)
	}
}

// removeFile deletes a file's chunks from the store, then drops its
// registry record. Order matters: the record survives a failed store
// deletion so intent is never lost.
func (i *Ingestor) removeFile(ctx context.Context, path string) (any, error) {
	removed, err := i.store.DeleteBySource(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("delete chunks for %s: %w", path, err)
	}
	i.registry.Remove(path)
	logger.Info("Removed %s: %d chunks deleted", path, removed)
	return removed, nil
}

// processFile runs the ingestion pipeline for one file. Per-file
// failures are recorded on the FileRecord and surfaced through the
// task; they never abort the batch or crash the worker.
func (i *Ingestor) processFile(
	ctx context.Context, path string, progress ProgressFunc,
) (any, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		// Deleted between event and execution: treat as removal.
		return i.removeFile(ctx, path)
	}
	if err != nil {
		i.registry.MarkFailure(path, domain.FileStatusError, err)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	// Events can outlive their relevance: processing may already have
	// happened for this content via a coalesced run.
	if !i.registry.NeedsProcessing(path, info.ModTime()) {
		logger.Debug("Skipping %s: already up to date", path)
		return nil, nil
	}

	if i.cfg.MaxFileSize > 0 && info.Size() > i.cfg.MaxFileSize {
		err := fmt.Errorf("%s is %d bytes: %w", path, info.Size(), domain.ErrTooLarge)
		i.registry.MarkFailure(path, domain.FileStatusFailed, err)
		return nil, err
	}

	extractor, err := i.extractors.Lookup(path)
	if err != nil {
		i.registry.MarkFailure(path, domain.FileStatusFailed, err)
		return nil, fmt.Errorf("lookup extractor for %s: %w", path, err)
	}

	progress(10, "extracting")
	content, metadata, err := extractor.Extract(ctx, path)
	if err != nil {
		wrapped := fmt.Errorf("%w: %s: %v", domain.ErrExtraction, path, err)
		i.registry.MarkFailure(path, domain.FileStatusFailed, wrapped)
		return nil, wrapped
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	progress(35, "chunking")
	texts := i.chunker.Split(content)
	chunks := make([]domain.Chunk, len(texts))
	for pos, text := range texts {
		chunks[pos] = domain.Chunk{
			Content:  text,
			Metadata: metadata,
			Source:   path,
			Position: pos,
		}
	}

	progress(50, "embedding and storing")
	docID, err := i.store.AddDocument(ctx, path, chunks)
	if err != nil {
		wrapped := fmt.Errorf("store %s: %w", path, err)
		i.registry.MarkFailure(path, domain.FileStatusFailed, wrapped)
		return nil, wrapped
	}

	progress(90, "updating registry")
	hash, err := HashFile(path)
	if err != nil {
		i.registry.MarkFailure(path, domain.FileStatusError, err)
		return nil, err
	}

	i.registry.Record(domain.FileRecord{
		Path:         path,
		ContentHash:  hash,
		ModifiedTime: info.ModTime(),
		Size:         info.Size(),
		Status:       domain.FileStatusSuccess,
		ProcessedAt:  time.Now(),
		ChunkCount:   len(chunks),
	})

	progress(100, "done")
	logger.Debug("Indexed %s: %d chunks, document %s", path, len(chunks), docID)
	return docID, nil
}
