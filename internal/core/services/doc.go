// Package services contains the core business logic: the processed-file
// registry, folder watcher, background processor, ingestion pipeline and
// search engine. Services depend only on domain types and driven ports.
package services
