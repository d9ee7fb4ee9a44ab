// Package sqlite provides the SQLite-backed document store: chunk rows
// with embedding blobs, in-process similarity scoring, deduplication
// and source-scoped deletion. The table is the single source of truth
// shared by the ingestion and query paths; per-document writes happen
// in one transaction so readers never observe a partial chunk set.
package sqlite
