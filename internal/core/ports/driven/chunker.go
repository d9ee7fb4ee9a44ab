package driven

// Chunker splits extracted document text into bounded spans. Each span
// becomes one Chunk with its own embedding.
type Chunker interface {
	// Split returns the chunk texts for the content, in order.
	// Empty content yields no chunks.
	Split(content string) []string
}
