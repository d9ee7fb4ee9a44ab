package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/semdex/internal/core/domain"
)

// IndexManager controls which folders are monitored and exposes
// per-file processing state.
type IndexManager interface {
	// AddFolder registers a directory for recursive watching, performs
	// the initial scan and returns the number of files discovered.
	AddFolder(ctx context.Context, path string) (int, error)

	// RemoveFolder stops watching a directory and drops the registry
	// entries beneath it.
	RemoveFolder(ctx context.Context, path string) error

	// Folders lists the registered watch roots.
	Folders() []domain.WatchedFolder

	// FileRecords returns a snapshot of the processed-file registry.
	FileRecords() map[string]domain.FileRecord
}

// TaskManager exposes background task state to external callers.
type TaskManager interface {
	// Task returns a task by ID, or domain.ErrTaskNotFound.
	Task(id string) (domain.ProcessingTask, error)

	// Tasks returns a snapshot of all retained tasks.
	Tasks() []domain.ProcessingTask

	// Cancel requests cancellation; effective only for Pending or
	// Running tasks. Running cancellation is cooperative.
	Cancel(id string) bool

	// Stats aggregates completed work.
	Stats() domain.ProcessorStats

	// Subscribe registers for progress updates. The returned cancel
	// function removes the subscription.
	Subscribe() (<-chan domain.ProgressUpdate, func())

	// CleanupOldTasks evicts terminal tasks older than maxAge and
	// returns how many were removed.
	CleanupOldTasks(maxAge time.Duration) int
}
