package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/semdex/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results     []domain.SearchResult
	suggestions []string
	learned     []string
	err         error
}

func (m *mockSearchService) Search(
	_ context.Context, _ string, _ int, _ float64,
) ([]domain.SearchResult, error) {
	return m.results, m.err
}

func (m *mockSearchService) Suggestions(_ context.Context, _ string, _ int) ([]string, error) {
	return m.suggestions, m.err
}

func (m *mockSearchService) LearnFromSearch(query string) {
	m.learned = append(m.learned, query)
}

// mockIndexManager is a mock implementation of driving.IndexManager.
type mockIndexManager struct {
	folders    []domain.WatchedFolder
	records    map[string]domain.FileRecord
	discovered int
	addedPath  string
	removed    string
	err        error
}

func (m *mockIndexManager) AddFolder(_ context.Context, path string) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.addedPath = path
	return m.discovered, nil
}

func (m *mockIndexManager) RemoveFolder(_ context.Context, path string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = path
	return nil
}

func (m *mockIndexManager) Folders() []domain.WatchedFolder {
	return m.folders
}

func (m *mockIndexManager) FileRecords() map[string]domain.FileRecord {
	return m.records
}

// mockTaskManager is a mock implementation of driving.TaskManager.
type mockTaskManager struct {
	tasks     []domain.ProcessingTask
	task      domain.ProcessingTask
	taskErr   error
	cancelled string
	cancelOK  bool
	stats     domain.ProcessorStats
}

func (m *mockTaskManager) Task(_ string) (domain.ProcessingTask, error) {
	return m.task, m.taskErr
}

func (m *mockTaskManager) Tasks() []domain.ProcessingTask {
	return m.tasks
}

func (m *mockTaskManager) Cancel(id string) bool {
	m.cancelled = id
	return m.cancelOK
}

func (m *mockTaskManager) Stats() domain.ProcessorStats {
	return m.stats
}

func (m *mockTaskManager) Subscribe() (<-chan domain.ProgressUpdate, func()) {
	ch := make(chan domain.ProgressUpdate)
	return ch, func() { close(ch) }
}

func (m *mockTaskManager) CleanupOldTasks(time.Duration) int { return 0 }

// mockDocumentStore is a mock implementation of driven.DocumentStore.
type mockDocumentStore struct {
	stats domain.StoreStats
	err   error
}

func (m *mockDocumentStore) AddDocument(_ context.Context, _ string, _ []domain.Chunk) (string, error) {
	return "", m.err
}

func (m *mockDocumentStore) AddHighlight(_ context.Context, _ domain.Highlight) (string, error) {
	return "", m.err
}

func (m *mockDocumentStore) Search(_ context.Context, _ []float32, _ int, _ float64) ([]domain.SearchResult, error) {
	return nil, m.err
}

func (m *mockDocumentStore) DeleteBySource(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockDocumentStore) DeleteDocument(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocumentStore) Stats(_ context.Context) (domain.StoreStats, error) {
	return m.stats, m.err
}

func (m *mockDocumentStore) Clear(_ context.Context) error { return m.err }

func (m *mockDocumentStore) Close() error { return nil }
