package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/custodia-labs/semdex/internal/core/domain"
	"github.com/custodia-labs/semdex/internal/core/ports/driven"
	"github.com/custodia-labs/semdex/internal/logger"
)

// ProcessedFileRegistry tracks which files have been indexed, with what
// content hash, and with what outcome. It decides whether a file needs
// (re)processing. State is persisted through the StateStore after every
// mutation so a restart resumes where the previous run left off.
type ProcessedFileRegistry struct {
	mu      sync.RWMutex
	records map[string]domain.FileRecord
	folders []domain.WatchedFolder
	state   driven.StateStore
}

// NewProcessedFileRegistry creates a registry, restoring persisted state.
// The state store is optional; when nil the registry is memory-only.
func NewProcessedFileRegistry(state driven.StateStore) (*ProcessedFileRegistry, error) {
	r := &ProcessedFileRegistry{
		records: make(map[string]domain.FileRecord),
		state:   state,
	}

	if state != nil {
		persisted, err := state.Load()
		if err != nil {
			return nil, fmt.Errorf("load index state: %w", err)
		}
		if persisted.Records != nil {
			r.records = persisted.Records
		}
		r.folders = persisted.Folders
	}

	return r, nil
}

// NeedsProcessing reports whether the file at path must be (re)processed.
// True when no record exists, the last status was not Success, or the
// stored (hash, mtime) pair differs from the file's current state.
// An unchanged mtime short-circuits without hashing; a changed mtime
// with an unchanged hash refreshes the stored mtime and returns false.
func (r *ProcessedFileRegistry) NeedsProcessing(path string, mtime time.Time) bool {
	r.mu.RLock()
	rec, ok := r.records[path]
	r.mu.RUnlock()

	if !ok {
		return true
	}
	if rec.Status != domain.FileStatusSuccess {
		return true
	}
	if rec.ModifiedTime.Equal(mtime) {
		return false
	}

	// mtime moved; only the content hash decides.
	hash, err := HashFile(path)
	if err != nil {
		logger.Warn("Hashing %s failed: %v", path, err)
		return true
	}
	if hash != rec.ContentHash {
		return true
	}

	// Touched but unchanged. Remember the new mtime so the next check
	// short-circuits.
	r.mu.Lock()
	rec.ModifiedTime = mtime
	r.records[path] = rec
	r.mu.Unlock()
	r.persist()
	return false
}

// Get returns the record for a path.
func (r *ProcessedFileRegistry) Get(path string) (domain.FileRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[path]
	return rec, ok
}

// Record upserts a file record and persists the registry.
func (r *ProcessedFileRegistry) Record(rec domain.FileRecord) {
	r.mu.Lock()
	r.records[rec.Path] = rec
	r.mu.Unlock()
	r.persist()
}

// MarkFailure records a non-success outcome for a path, preserving any
// previously stored hash so the file stays eligible for reprocessing.
func (r *ProcessedFileRegistry) MarkFailure(path string, status domain.FileStatus, cause error) {
	r.mu.Lock()
	rec := r.records[path]
	rec.Path = path
	rec.Status = status
	rec.LastError = cause.Error()
	rec.ProcessedAt = time.Now()
	r.records[path] = rec
	r.mu.Unlock()
	r.persist()
}

// Remove drops the record for a path. Callers must only invoke this
// after the document store confirmed deletion of the path's chunks.
func (r *ProcessedFileRegistry) Remove(path string) {
	r.mu.Lock()
	delete(r.records, path)
	r.mu.Unlock()
	r.persist()
}

// MissingFiles returns recorded paths that no longer exist on disk.
// Used by the rescan to enqueue removals; the records themselves are
// dropped only after the store deletion is confirmed.
func (r *ProcessedFileRegistry) MissingFiles() []string {
	r.mu.RLock()
	paths := make([]string, 0, len(r.records))
	for path := range r.records {
		paths = append(paths, path)
	}
	r.mu.RUnlock()

	var missing []string
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			missing = append(missing, path)
		}
	}
	return missing
}

// Snapshot returns a copy of all records.
func (r *ProcessedFileRegistry) Snapshot() map[string]domain.FileRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.FileRecord, len(r.records))
	for path, rec := range r.records {
		out[path] = rec
	}
	return out
}

// Folders returns the persisted watch roots.
func (r *ProcessedFileRegistry) Folders() []domain.WatchedFolder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.WatchedFolder, len(r.folders))
	copy(out, r.folders)
	return out
}

// SetFolders replaces the persisted watch roots.
func (r *ProcessedFileRegistry) SetFolders(folders []domain.WatchedFolder) {
	r.mu.Lock()
	r.folders = make([]domain.WatchedFolder, len(folders))
	copy(r.folders, folders)
	r.mu.Unlock()
	r.persist()
}

// persist writes the current state through the state store.
func (r *ProcessedFileRegistry) persist() {
	if r.state == nil {
		return
	}

	r.mu.RLock()
	state := driven.IndexState{
		Records: make(map[string]domain.FileRecord, len(r.records)),
		Folders: make([]domain.WatchedFolder, len(r.folders)),
	}
	for path, rec := range r.records {
		state.Records[path] = rec
	}
	copy(state.Folders, r.folders)
	r.mu.RUnlock()

	if err := r.state.Save(state); err != nil {
		logger.Warn("Persisting index state failed: %v", err)
	}
}

// HashFile returns the SHA-256 hex digest of the file content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
