package cli

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/semdex/internal/core/domain"
)

// mockSearchService implements driving.SearchService for testing.
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

// mockIndexManager implements driving.IndexManager for testing.
type mockIndexManager struct {
	folders    []domain.WatchedFolder
	records    map[string]domain.FileRecord
	discovered int
	err        error
}

func (m *mockIndexManager) AddFolder(_ context.Context, _ string) (int, error) {
	return m.discovered, m.err
}

func (m *mockIndexManager) RemoveFolder(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIndexManager) Folders() []domain.WatchedFolder {
	return m.folders
}

func (m *mockIndexManager) FileRecords() map[string]domain.FileRecord {
	return m.records
}

// mockTaskManager implements driving.TaskManager for testing.
type mockTaskManager struct {
	tasks    []domain.ProcessingTask
	task     domain.ProcessingTask
	taskErr  error
	cancelOK bool
	stats    domain.ProcessorStats
}

func (m *mockTaskManager) Task(_ string) (domain.ProcessingTask, error) {
	return m.task, m.taskErr
}

func (m *mockTaskManager) Tasks() []domain.ProcessingTask {
	return m.tasks
}

func (m *mockTaskManager) Cancel(_ string) bool {
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

// mockDocumentStore implements driven.DocumentStore for testing.
type mockDocumentStore struct {
	stats      domain.StoreStats
	highlights []domain.Highlight
	err        error
}

func (m *mockDocumentStore) AddDocument(_ context.Context, _ string, _ []domain.Chunk) (string, error) {
	return "", m.err
}

func (m *mockDocumentStore) AddHighlight(_ context.Context, h domain.Highlight) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.highlights = append(m.highlights, h)
	return fmt.Sprintf("hl-%d", len(m.highlights)), nil
}

func (m *mockDocumentStore) Search(_ context.Context, _ []float32, _ int, _ float64) ([]domain.SearchResult, error) {
	return nil, m.err
}

func (m *mockDocumentStore) DeleteBySource(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockDocumentStore) DeleteDocument(_ context.Context, _ string) error { return m.err }

func (m *mockDocumentStore) Stats(_ context.Context) (domain.StoreStats, error) {
	return m.stats, m.err
}

func (m *mockDocumentStore) Clear(_ context.Context) error { return m.err }

func (m *mockDocumentStore) Close() error { return nil }

// setupTestServices installs default mocks for every service and
// returns a restore function.
func setupTestServices() func() {
	oldSearch := searchService
	oldIndex := indexManager
	oldTasks := taskManager
	oldStore := documentStore

	searchService = &mockSearchService{}
	indexManager = &mockIndexManager{}
	taskManager = &mockTaskManager{}
	documentStore = &mockDocumentStore{}

	return func() {
		searchService = oldSearch
		indexManager = oldIndex
		taskManager = oldTasks
		documentStore = oldStore
	}
}

// execute runs the root command with args and captures its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
