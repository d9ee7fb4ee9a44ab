// Package plaintext extracts text from plain text and source code files.
package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/semdex/internal/core/domain"
	"github.com/custodia-labs/semdex/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text files, including source code and
// structured text formats that read well without transformation.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{
		".txt", ".text", ".log",
		".go", ".py", ".rs", ".java", ".c", ".h", ".cpp", ".hpp",
		".rb", ".sh", ".sql",
		".js", ".jsx", ".ts", ".tsx", ".css",
		".csv", ".yaml", ".yml", ".toml", ".ini",
		".json", ".xml",
	}
}

// Extract reads the file and returns its content verbatim.
func (e *Extractor) Extract(_ context.Context, path string) (string, map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	if bytes.ContainsRune(data, 0) {
		return "", nil, fmt.Errorf("%w: %s contains binary data", domain.ErrExtraction, path)
	}

	metadata := map[string]any{
		"title":  TitleFromPath(path),
		"format": "plaintext",
	}
	return string(data), metadata, nil
}

// TitleFromPath derives a human-readable title from a file path:
// the base name without extension, underscores and dashes spaced out.
func TitleFromPath(path string) string {
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
