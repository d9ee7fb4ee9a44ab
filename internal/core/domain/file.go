package domain

import "time"

// FileStatus describes the outcome of the last processing pass for a file.
type FileStatus string

// Available file statuses.
const (
	// FileStatusSuccess indicates the file was fully indexed.
	FileStatusSuccess FileStatus = "success"

	// FileStatusFailed indicates a recoverable processing failure
	// (extraction or embedding). The file remains eligible for reprocessing.
	FileStatusFailed FileStatus = "failed"

	// FileStatusError indicates the file could not be read at all.
	FileStatusError FileStatus = "error"
)

// IsValid returns true if the status is recognised.
func (s FileStatus) IsValid() bool {
	switch s {
	case FileStatusSuccess, FileStatusFailed, FileStatusError:
		return true
	default:
		return false
	}
}

// FileRecord is the durable bookkeeping entry for one processed file.
// It is mutated only by the worker that processed the file and persisted
// as part of a keyed map on disk.
type FileRecord struct {
	// Path is the absolute file path.
	Path string `json:"path"`

	// ContentHash is the SHA-256 hex digest of the file content.
	ContentHash string `json:"content_hash"`

	// ModifiedTime is the file mtime observed at processing time.
	ModifiedTime time.Time `json:"modified_time"`

	// Size is the file size in bytes at processing time.
	Size int64 `json:"size"`

	// Status is the outcome of the last processing pass.
	Status FileStatus `json:"status"`

	// LastError is the failure message when Status is not Success.
	LastError string `json:"last_error,omitempty"`

	// ProcessedAt is when the last pass finished.
	ProcessedAt time.Time `json:"processed_at"`

	// ChunkCount is the number of chunks produced by the last pass.
	ChunkCount int `json:"chunk_count"`
}

// WatchedFolder is a directory registered for recursive monitoring.
type WatchedFolder struct {
	// Path is the absolute directory path.
	Path string `json:"path"`

	// Recursive enables watching of nested directories.
	Recursive bool `json:"recursive"`

	// AddedAt is when the folder was registered.
	AddedAt time.Time `json:"added_at"`
}

// EventKind distinguishes file events flowing through the ingestion queue.
type EventKind int

const (
	// EventProcess requests (re)processing of a file.
	EventProcess EventKind = iota

	// EventRemove requests removal of a file's chunks and record.
	EventRemove
)

// FileEvent is a unit of work handed from the watcher to the ingestion
// consumer over the bounded queue.
type FileEvent struct {
	// Kind is the requested operation.
	Kind EventKind

	// Path is the affected file.
	Path string

	// Priority is the scheduling priority for the resulting task.
	Priority TaskPriority

	// ModTime is the file mtime at event time, zero for removals.
	ModTime time.Time
}
