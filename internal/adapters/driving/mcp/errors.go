// Package mcp provides an MCP (Model Context Protocol) server adapter
// for semdex. It enables AI assistants to search and manage the local
// semantic index.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingIndexManager is returned when the index manager is not provided.
var ErrMissingIndexManager = errors.New("mcp: index manager is required")
