package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotADirectory indicates a watch path exists but is not a directory.
	ErrNotADirectory = errors.New("not a directory")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file extension with no registered extractor.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrTooLarge indicates a file exceeds the configured size limit.
	ErrTooLarge = errors.New("file too large")

	// ErrExtraction indicates a per-file extraction failure.
	// Recoverable: the file is marked Failed and the batch continues.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding indicates the embedding provider failed.
	// The owning task is marked Failed; no automatic retry.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStore indicates a vector store backend failure.
	// The operation is aborted and surfaced to the caller.
	ErrStore = errors.New("store failure")

	// ErrQueueFull indicates the ingestion queue is saturated.
	// Backpressure signal: the event is logged, never silently dropped
	// while the registry still marks the file as needing processing.
	ErrQueueFull = errors.New("ingestion queue full")

	// ErrTaskNotFound indicates an unknown task ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrProcessorStopped indicates the processor no longer accepts work.
	ErrProcessorStopped = errors.New("processor stopped")

	// ErrEmbeddingUnavailable indicates the embedding provider is not configured.
	// Semantic indexing and search are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
)
