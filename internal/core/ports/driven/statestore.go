package driven

import "github.com/custodia-labs/semdex/internal/core/domain"

// IndexState is the durable watcher/registry state: the processed-file
// map keyed by path and the list of watched folders. Written after each
// batch and on folder add/remove.
type IndexState struct {
	// Records maps file path to its processing record.
	Records map[string]domain.FileRecord `json:"records"`

	// Folders are the registered watch roots.
	Folders []domain.WatchedFolder `json:"folders"`
}

// StateStore persists the index state between runs.
// Backed by a JSON file written atomically.
type StateStore interface {
	// Load reads the persisted state. A missing file yields an empty
	// state, not an error.
	Load() (IndexState, error)

	// Save writes the state, replacing any previous contents.
	Save(state IndexState) error
}
