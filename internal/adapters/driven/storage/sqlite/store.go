package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/semdex/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/semdex/internal/core/domain"
	"github.com/custodia-labs/semdex/internal/core/ports/driven"
	"github.com/custodia-labs/semdex/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Default candidate pool parameters, used when the config leaves them zero.
const (
	defaultPoolMultiplier = 2
	defaultRelaxedFactor  = 0.8
)

// Store is the SQLite-backed document store. It owns embeddings: chunk
// texts are batched through the embedding provider on write.
type Store struct {
	db       *sql.DB
	path     string
	embedder driven.EmbeddingProvider
	cfg      domain.StoreConfig
}

// NewStore opens or creates the backing database in cfg.DataDir and
// runs migrations. If DataDir is empty, defaults to ~/.semdex/data.
func NewStore(cfg domain.StoreConfig, embedder driven.EmbeddingProvider) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".semdex", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "chunks.db")

	// WAL mode lets the query path read while ingestion writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.PoolMultiplier <= 0 {
		cfg.PoolMultiplier = defaultPoolMultiplier
	}
	if cfg.RelaxedFactor <= 0 || cfg.RelaxedFactor > 1 {
		cfg.RelaxedFactor = defaultRelaxedFactor
	}

	s := &Store{
		db:       db,
		path:     dbPath,
		embedder: embedder,
		cfg:      cfg,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies all pending .up.sql migrations in order.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	for _, name := range migrationFiles() {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// migrationFiles lists the embedded up migrations in version order.
func migrationFiles() []string {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

// AddDocument embeds the chunk texts and writes all rows in a single
// transaction, replacing any previous chunks for the source so readers
// never see a mixed set. An empty chunk slice is a no-op.
func (s *Store) AddDocument(ctx context.Context, sourcePath string, chunks []domain.Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}
	if s.embedder == nil {
		return "", domain.ErrEmbeddingUnavailable
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(embeddings) != len(chunks) {
		return "", fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrEmbedding, len(embeddings), len(chunks))
	}

	documentID := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: beginning transaction: %v", domain.ErrStore, err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Supersede: old chunks for the source go before the new set lands.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE source = ? AND is_highlight = 0", sourcePath); err != nil {
		return "", fmt.Errorf("%w: deleting stale chunks: %v", domain.ErrStore, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks
			(id, content, embedding, metadata, source, chunk_index, created_at, is_highlight, highlight_color)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, '')
	`)
	if err != nil {
		return "", fmt.Errorf("%w: preparing statement: %v", domain.ErrStore, err)
	}
	defer stmt.Close()

	for i := range chunks {
		metadataJSON, err := json.Marshal(chunks[i].Metadata)
		if err != nil {
			return "", fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		id := fmt.Sprintf("%s_chunk_%d", documentID, i)
		if _, err := stmt.ExecContext(ctx, id, chunks[i].Content,
			float32SliceToBytes(embeddings[i]), string(metadataJSON),
			sourcePath, i, now); err != nil {
			return "", fmt.Errorf("%w: saving chunk %s: %v", domain.ErrStore, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: committing transaction: %v", domain.ErrStore, err)
	}

	logger.Debug("Stored %d chunks for %s as document %s", len(chunks), sourcePath, documentID)
	return documentID, nil
}

// AddHighlight stores a single highlight chunk with its colour tag.
func (s *Store) AddHighlight(ctx context.Context, h domain.Highlight) (string, error) {
	if strings.TrimSpace(h.Content) == "" {
		return "", domain.ErrInvalidInput
	}
	if s.embedder == nil {
		return "", domain.ErrEmbeddingUnavailable
	}

	embedding, err := s.embedder.Embed(ctx, h.Content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}

	metadata := make(map[string]any, len(h.Metadata)+2)
	for k, v := range h.Metadata {
		metadata[k] = v
	}
	if h.Note != "" {
		metadata["note"] = h.Note
	}
	if len(h.Tags) > 0 {
		metadata["tags"] = h.Tags
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshalling highlight metadata: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunks
			(id, content, embedding, metadata, source, chunk_index, created_at, is_highlight, highlight_color)
		VALUES (?, ?, ?, ?, ?, 0, ?, 1, ?)
	`, id, h.Content, float32SliceToBytes(embedding), string(metadataJSON),
		h.Source, time.Now().UTC(), strings.ToLower(h.Color))
	if err != nil {
		return "", fmt.Errorf("%w: saving highlight: %v", domain.ErrStore, err)
	}

	return id, nil
}

// Search scans all chunks, scoring similarity as 1/(1+distance) with
// Euclidean distance. The scan keeps a pool of limit x PoolMultiplier
// candidates at threshold x RelaxedFactor, then drops everything below
// the raw threshold, deduplicates by normalised content (first
// occurrence wins) and returns the pool sorted descending.
func (s *Store) Search(
	ctx context.Context, query []float32, limit int, threshold float64,
) ([]domain.SearchResult, error) {
	if len(query) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 {
		limit = 10
	}

	poolSize := limit * s.cfg.PoolMultiplier
	relaxed := threshold * s.cfg.RelaxedFactor

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, embedding, metadata, source, chunk_index,
		       created_at, is_highlight, highlight_color
		FROM chunks
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	var candidates []domain.SearchResult
	for rows.Next() {
		result, embedding, err := scanResult(rows)
		if err != nil {
			return nil, err
		}

		if len(embedding) != len(query) {
			logger.Warn("Dimension mismatch for chunk %s: %d vs %d",
				result.ChunkID, len(embedding), len(query))
			continue
		}

		result.Similarity = 1.0 / (1.0 + euclideanDistance(query, embedding))
		if result.Similarity < relaxed {
			continue
		}
		candidates = append(candidates, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating chunks: %v", domain.ErrStore, err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > poolSize {
		candidates = candidates[:poolSize]
	}

	// Raw threshold and content dedup, first (highest) occurrence wins.
	seen := make(map[string]bool, len(candidates))
	results := make([]domain.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity < threshold {
			continue
		}
		normalized := domain.NormalizeContent(c.Content)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		results = append(results, c)
	}

	return results, nil
}

// DeleteBySource removes all chunks for a source path: exact match
// first, then path-normalised, then filename substring, stopping at the
// first strategy that removes rows. Verified by a row-count delta.
func (s *Store) DeleteBySource(ctx context.Context, sourcePath string) (int, error) {
	before, err := s.rowCount(ctx)
	if err != nil {
		return 0, err
	}

	affected, err := s.execDelete(ctx, "DELETE FROM chunks WHERE source = ?", sourcePath)
	if err != nil {
		return 0, err
	}

	if affected == 0 {
		if normalized := filepath.Clean(sourcePath); normalized != sourcePath {
			affected, err = s.execDelete(ctx, "DELETE FROM chunks WHERE source = ?", normalized)
			if err != nil {
				return 0, err
			}
		}
	}

	if affected == 0 {
		if name := filepath.Base(sourcePath); name != "" && name != "." && name != string(filepath.Separator) {
			affected, err = s.execDelete(ctx, "DELETE FROM chunks WHERE source LIKE ?", "%"+name+"%")
			if err != nil {
				return 0, err
			}
		}
	}

	after, err := s.rowCount(ctx)
	if err != nil {
		return 0, err
	}

	removed := before - after
	if removed != int(affected) {
		logger.Warn("DeleteBySource %s: affected %d but row delta %d", sourcePath, affected, removed)
	}
	logger.Debug("DeleteBySource %s: removed %d chunks", sourcePath, removed)
	return removed, nil
}

// DeleteDocument removes all chunks carrying the document-id prefix.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.execDelete(ctx, "DELETE FROM chunks WHERE id GLOB ?", documentID+"_chunk_*")
	return err
}

// Stats summarises the store contents.
func (s *Store) Stats(ctx context.Context) (domain.StoreStats, error) {
	var stats domain.StoreStats

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_highlight = 1 THEN 1 ELSE 0 END), 0),
		       COUNT(DISTINCT source)
		FROM chunks
	`)
	if err := row.Scan(&stats.TotalChunks, &stats.HighlightChunks, &stats.SourceCount); err != nil {
		return stats, fmt.Errorf("%w: scanning stats: %v", domain.ErrStore, err)
	}
	stats.DocumentChunks = stats.TotalChunks - stats.HighlightChunks

	if s.embedder != nil {
		stats.Dimensions = s.embedder.Dimensions()
	}

	return stats, nil
}

// Clear drops and recreates the backing table.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS chunks"); err != nil {
		return fmt.Errorf("%w: dropping chunks table: %v", domain.ErrStore, err)
	}

	// Migrations use idempotent DDL, so replaying them rebuilds the table.
	for _, name := range migrationFiles() {
		content, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("%w: recreating schema: %v", domain.ErrStore, err)
		}
	}
	return nil
}

// execDelete runs a delete statement and returns the affected row count.
func (s *Store) execDelete(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting chunks: %v", domain.ErrStore, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", domain.ErrStore, err)
	}
	return affected, nil
}

// rowCount returns the total chunk count.
func (s *Store) rowCount(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %v", domain.ErrStore, err)
	}
	return count, nil
}

// scanResult scans one chunk row into a SearchResult plus its embedding.
func scanResult(rows *sql.Rows) (domain.SearchResult, []float32, error) {
	var (
		result       domain.SearchResult
		blob         []byte
		metadataJSON sql.NullString
		position     int
		isHighlight  int
		createdAt    time.Time
	)

	if err := rows.Scan(&result.ChunkID, &result.Content, &blob, &metadataJSON,
		&result.Source, &position, &createdAt, &isHighlight, &result.HighlightColor); err != nil {
		return result, nil, fmt.Errorf("%w: scanning chunk: %v", domain.ErrStore, err)
	}

	result.CreatedAt = createdAt
	result.IsHighlight = isHighlight == 1

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &result.Metadata); err != nil {
			return result, nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
		}
	}

	return result, bytesToFloat32Slice(blob), nil
}

// euclideanDistance computes the L2 distance between two vectors of
// equal length.
func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// float32SliceToBytes serialises a vector as little-endian float32s.
func float32SliceToBytes(values []float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// bytesToFloat32Slice deserialises a little-endian float32 vector.
func bytesToFloat32Slice(buf []byte) []float32 {
	values := make([]float32, len(buf)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return values
}
