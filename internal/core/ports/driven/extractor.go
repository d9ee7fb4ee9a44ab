package driven

import "context"

// Extractor converts one file format into plain text plus metadata.
// One implementation exists per supported extension family. Failures
// are per-file and non-fatal to a batch.
type Extractor interface {
	// Extract reads the file and returns its text content and
	// format-specific metadata.
	Extract(ctx context.Context, path string) (string, map[string]any, error)

	// Extensions returns the file extensions this extractor handles,
	// lower-cased with leading dot (".md", ".txt").
	Extensions() []string
}

// ExtractorRegistry resolves files to extractors by extension.
type ExtractorRegistry interface {
	// Lookup returns the extractor for the file's extension, or
	// domain.ErrUnsupportedType when none is registered.
	Lookup(path string) (Extractor, error)

	// Supported returns true when the file's extension has an extractor.
	Supported(path string) bool

	// SupportedExtensions lists all registered extensions.
	SupportedExtensions() []string
}
