package mcp

import (
	"github.com/custodia-labs/semdex/internal/core/ports/driven"
	"github.com/custodia-labs/semdex/internal/core/ports/driving"
)

// Ports aggregates all port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides ranked semantic search.
	Search driving.SearchService

	// Index manages watched folders and file records.
	Index driving.IndexManager

	// Tasks exposes background processing state.
	Tasks driving.TaskManager

	// Store provides index statistics.
	Store driven.DocumentStore
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Index == nil {
		return ErrMissingIndexManager
	}
	// Tasks and Store are optional; tools degrade gracefully
	return nil
}
