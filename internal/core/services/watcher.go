package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/semdex/internal/core/domain"
	"github.com/custodia-labs/semdex/internal/core/ports/driven"
	"github.com/custodia-labs/semdex/internal/core/ports/driving"
	"github.com/custodia-labs/semdex/internal/logger"
)

// Ensure FolderWatcher implements the interface.
var _ driving.IndexManager = (*FolderWatcher)(nil)

// FolderWatcher monitors registered directories recursively and hands
// file events to the ingestion queue. The OS watcher is backed by a
// periodic rescan that catches missed events and prunes records for
// files that no longer exist.
type FolderWatcher struct {
	cfg        domain.WatcherConfig
	registry   *ProcessedFileRegistry
	extractors driven.ExtractorRegistry

	fsw   *fsnotify.Watcher
	queue chan domain.FileEvent

	mu      sync.RWMutex
	folders map[string]domain.WatchedFolder

	// rescanning guards the single-flight rescan.
	rescanning atomic.Bool

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewFolderWatcher creates a watcher. Call Start to begin delivering
// events and Events to obtain the ingestion queue.
func NewFolderWatcher(
	cfg domain.WatcherConfig,
	registry *ProcessedFileRegistry,
	extractors driven.ExtractorRegistry,
) (*FolderWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}

	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 256
	}
	if cfg.RescanInterval <= 0 {
		cfg.RescanInterval = 30 * time.Second
	}

	return &FolderWatcher{
		cfg:        cfg,
		registry:   registry,
		extractors: extractors,
		fsw:        fsw,
		queue:      make(chan domain.FileEvent, cfg.QueueCapacity),
		folders:    make(map[string]domain.WatchedFolder),
		stopCh:     make(chan struct{}),
	}, nil
}

// Events returns the bounded ingestion queue consumed by the ingestor.
func (w *FolderWatcher) Events() <-chan domain.FileEvent {
	return w.queue
}

// Start launches the event and rescan loops and restores persisted
// watch roots.
func (w *FolderWatcher) Start(ctx context.Context) error {
	for _, folder := range w.registry.Folders() {
		if _, err := w.AddFolder(ctx, folder.Path); err != nil {
			logger.Warn("Restoring watch on %s failed: %v", folder.Path, err)
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.rescanLoop(ctx)
	return nil
}

// AddFolder validates the path, registers a recursive watch and
// performs an initial scan that enqueues every file needing
// processing. Returns the number of supported files discovered.
func (w *FolderWatcher) AddFolder(ctx context.Context, path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("%s: %w", abs, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s: %w", abs, domain.ErrNotADirectory)
	}

	w.mu.Lock()
	if _, exists := w.folders[abs]; !exists {
		w.folders[abs] = domain.WatchedFolder{
			Path:      abs,
			Recursive: true,
			AddedAt:   time.Now(),
		}
	}
	w.persistFolders()
	w.mu.Unlock()

	discovered, err := w.scanFolder(ctx, abs, domain.PriorityNormal, true)
	if err != nil {
		return discovered, err
	}

	logger.Info("Watching %s: %d supported files discovered", abs, discovered)
	return discovered, nil
}

// RemoveFolder stops watching a directory and enqueues removal of the
// registry entries beneath it.
func (w *FolderWatcher) RemoveFolder(_ context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	w.mu.Lock()
	if _, exists := w.folders[abs]; !exists {
		w.mu.Unlock()
		return fmt.Errorf("%s: %w", abs, domain.ErrNotFound)
	}
	delete(w.folders, abs)
	w.persistFolders()
	w.mu.Unlock()

	// Drop OS watches for the folder tree. Errors are expected for
	// directories already deleted.
	for _, watched := range w.fsw.WatchList() {
		if watched == abs || isUnder(watched, abs) {
			_ = w.fsw.Remove(watched)
		}
	}

	for _, rec := range w.registry.Snapshot() {
		if isUnder(rec.Path, abs) {
			w.enqueueBlocking(context.Background(), domain.FileEvent{
				Kind:     domain.EventRemove,
				Path:     rec.Path,
				Priority: domain.PriorityNormal,
			})
		}
	}
	return nil
}

// Folders lists the registered watch roots.
func (w *FolderWatcher) Folders() []domain.WatchedFolder {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.WatchedFolder, 0, len(w.folders))
	for _, folder := range w.folders {
		out = append(out, folder)
	}
	return out
}

// FileRecords returns a snapshot of the processed-file registry.
func (w *FolderWatcher) FileRecords() map[string]domain.FileRecord {
	return w.registry.Snapshot()
}

// persistFolders mirrors the folder set into the registry state.
// Caller holds w.mu.
func (w *FolderWatcher) persistFolders() {
	folders := make([]domain.WatchedFolder, 0, len(w.folders))
	for _, folder := range w.folders {
		folders = append(folders, folder)
	}
	w.registry.SetFolders(folders)
}

// scanFolder walks a folder, registers directory watches when watch is
// true, and enqueues every supported file whose registry state says it
// needs processing. Per-file errors are logged and the walk continues.
func (w *FolderWatcher) scanFolder(
	ctx context.Context, root string, priority domain.TaskPriority, watch bool,
) (int, error) {
	discovered := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Scan error at %s: %v", path, err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			if watch {
				if werr := w.fsw.Add(path); werr != nil {
					logger.Warn("Watch %s failed: %v", path, werr)
				}
			}
			return nil
		}

		if !w.extractors.Supported(path) {
			return nil
		}
		discovered++

		info, ierr := d.Info()
		if ierr != nil {
			logger.Warn("Stat %s failed: %v", path, ierr)
			return nil
		}

		if w.registry.NeedsProcessing(path, info.ModTime()) {
			w.enqueueBlocking(ctx, domain.FileEvent{
				Kind:     domain.EventProcess,
				Path:     path,
				Priority: priority,
				ModTime:  info.ModTime(),
			})
		}
		return nil
	})

	if err != nil {
		return discovered, fmt.Errorf("scan %s: %w", root, err)
	}
	return discovered, nil
}

// eventLoop delivers OS watcher events. It must never block on the
// queue: full-queue sends are dropped with a log, and the rescan picks
// the file up because the registry still marks it as needing work.
func (w *FolderWatcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// handleEvent turns one fsnotify event into queue work.
func (w *FolderWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			// New subdirectory: watch it and scan its contents. The
			// scan runs off the delivery goroutine but stays tracked
			// so Stop drains it before closing the queue.
			if err := w.fsw.Add(path); err != nil {
				logger.Warn("Watch %s failed: %v", path, err)
			}
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				if _, err := w.scanFolder(context.Background(), path, domain.PriorityHigh, true); err != nil {
					logger.Warn("Scan of new directory %s failed: %v", path, err)
				}
			}()
			return
		}
		w.enqueueFile(path, info.ModTime())

	case event.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}
		w.enqueueFile(path, info.ModTime())

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.enqueueRemovals(path)
	}
}

// enqueueFile enqueues a high-priority process request for a supported
// file. Interactive events outrank initial-scan work.
func (w *FolderWatcher) enqueueFile(path string, mtime time.Time) {
	if !w.extractors.Supported(path) {
		return
	}
	if !w.registry.NeedsProcessing(path, mtime) {
		return
	}
	w.enqueueNonBlocking(domain.FileEvent{
		Kind:     domain.EventProcess,
		Path:     path,
		Priority: domain.PriorityHigh,
		ModTime:  mtime,
	})
}

// enqueueRemovals enqueues removal for a deleted path. A deleted
// directory produces one removal per recorded file beneath it.
func (w *FolderWatcher) enqueueRemovals(path string) {
	if _, ok := w.registry.Get(path); ok {
		w.enqueueNonBlocking(domain.FileEvent{
			Kind:     domain.EventRemove,
			Path:     path,
			Priority: domain.PriorityHigh,
		})
		return
	}

	for _, rec := range w.registry.Snapshot() {
		if isUnder(rec.Path, path) {
			w.enqueueNonBlocking(domain.FileEvent{
				Kind:     domain.EventRemove,
				Path:     rec.Path,
				Priority: domain.PriorityHigh,
			})
		}
	}
}

// enqueueNonBlocking is used from the watcher delivery goroutine.
func (w *FolderWatcher) enqueueNonBlocking(ev domain.FileEvent) {
	select {
	case w.queue <- ev:
	default:
		logger.Warn("%v: dropping event for %s, rescan will recover it", domain.ErrQueueFull, ev.Path)
	}
}

// enqueueBlocking is used from scans, which run off the delivery
// goroutine and may apply backpressure.
func (w *FolderWatcher) enqueueBlocking(ctx context.Context, ev domain.FileEvent) {
	select {
	case w.queue <- ev:
	case <-ctx.Done():
	case <-w.stopCh:
	}
}

// rescanLoop periodically re-walks every watched folder.
func (w *FolderWatcher) rescanLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.RescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Rescan(ctx)
		}
	}
}

// Rescan re-walks all watched folders to catch events the OS watcher
// missed and enqueues removals for recorded files that disappeared.
// Single-flight: a rescan in progress suppresses a concurrent trigger.
func (w *FolderWatcher) Rescan(ctx context.Context) {
	if !w.rescanning.CompareAndSwap(false, true) {
		logger.Debug("Rescan already in progress, skipping")
		return
	}
	defer w.rescanning.Store(false)

	folders := w.Folders()
	if len(folders) == 0 {
		return
	}

	logger.Debug("Rescanning %d folders", len(folders))

	g, gctx := errgroup.WithContext(ctx)
	for _, folder := range folders {
		g.Go(func() error {
			if _, err := w.scanFolder(gctx, folder.Path, domain.PriorityNormal, false); err != nil {
				logger.Warn("Rescan of %s failed: %v", folder.Path, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	// Prune: enqueue removals for recorded files that vanished. The
	// registry entry is dropped by the ingestor once the store
	// confirms deletion.
	for _, path := range w.registry.MissingFiles() {
		w.enqueueNonBlocking(domain.FileEvent{
			Kind:     domain.EventRemove,
			Path:     path,
			Priority: domain.PriorityLow,
		})
	}
}

// Stop halts delivery and closes the queue.
func (w *FolderWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.fsw.Close()
		w.wg.Wait()
		close(w.queue)
	})
	return err
}

// isUnder reports whether path is strictly inside dir.
func isUnder(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
