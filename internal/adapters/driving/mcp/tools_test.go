package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/semdex/internal/core/domain"
)

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mockSearch := &mockSearchService{
			results: []domain.SearchResult{
				{
					ChunkID:        "abc_chunk_0",
					Source:         "/docs/guide.md",
					Similarity:     0.82,
					DisplayScore:   91.5,
					DisplayTitle:   "guide.md",
					DisplaySnippet: "Matching snippet text",
					IsHighlight:    true,
					HighlightColor: "yellow",
				},
			},
		}

		server := newTestServer(t, &Ports{Search: mockSearch, Index: &mockIndexManager{}})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "guide", Limit: 10})
		require.NoError(t, err)

		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		got := output.Results[0]
		assert.Equal(t, "abc_chunk_0", got.ChunkID)
		assert.Equal(t, "guide.md", got.Title)
		assert.Equal(t, "/docs/guide.md", got.Source)
		assert.Equal(t, 91.5, got.Score)
		assert.Equal(t, 0.82, got.Similarity)
		assert.Equal(t, "Matching snippet text", got.Snippet)
		assert.True(t, got.IsHighlight)
		assert.Equal(t, "yellow", got.HighlightHue)

		// Successful queries feed the suggestion vocabulary.
		assert.Equal(t, []string{"guide"}, mockSearch.learned)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockSearch := &mockSearchService{err: errors.New("embedder offline")}
		server := newTestServer(t, &Ports{Search: mockSearch, Index: &mockIndexManager{}})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "anything"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedder offline")
		assert.Empty(t, mockSearch.learned)
	})
}

func TestServer_handleWatchFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("registers folder", func(t *testing.T) {
		mockIndex := &mockIndexManager{discovered: 7}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: mockIndex})

		_, output, err := server.handleWatchFolder(ctx, nil, WatchFolderInput{Path: "/home/docs"})
		require.NoError(t, err)
		assert.Equal(t, "/home/docs", output.Path)
		assert.Equal(t, 7, output.FilesFound)
		assert.Equal(t, "/home/docs", mockIndex.addedPath)
	})

	t.Run("propagates error", func(t *testing.T) {
		mockIndex := &mockIndexManager{err: domain.ErrNotADirectory}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: mockIndex})

		_, _, err := server.handleWatchFolder(ctx, nil, WatchFolderInput{Path: "/home/file.txt"})
		assert.ErrorIs(t, err, domain.ErrNotADirectory)
	})
}

func TestServer_handleUnwatchFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("removes folder", func(t *testing.T) {
		mockIndex := &mockIndexManager{}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: mockIndex})

		_, output, err := server.handleUnwatchFolder(ctx, nil, UnwatchFolderInput{Path: "/home/docs"})
		require.NoError(t, err)
		assert.True(t, output.Removed)
		assert.Equal(t, "/home/docs", mockIndex.removed)
	})

	t.Run("propagates not found", func(t *testing.T) {
		mockIndex := &mockIndexManager{err: domain.ErrNotFound}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: mockIndex})

		_, _, err := server.handleUnwatchFolder(ctx, nil, UnwatchFolderInput{Path: "/nope"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleIndexStats(t *testing.T) {
	ctx := context.Background()

	t.Run("combines index and store stats", func(t *testing.T) {
		mockIndex := &mockIndexManager{
			folders: []domain.WatchedFolder{{Path: "/docs"}},
			records: map[string]domain.FileRecord{
				"/docs/a.txt": {Status: domain.FileStatusSuccess},
				"/docs/b.txt": {Status: domain.FileStatusFailed},
			},
		}
		mockStore := &mockDocumentStore{stats: domain.StoreStats{
			TotalChunks:     12,
			DocumentChunks:  10,
			HighlightChunks: 2,
			SourceCount:     2,
			Dimensions:      768,
		}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: mockIndex, Store: mockStore})

		_, output, err := server.handleIndexStats(ctx, nil, IndexStatsInput{})
		require.NoError(t, err)
		assert.Equal(t, 1, output.WatchedFolders)
		assert.Equal(t, 2, output.TrackedFiles)
		assert.Equal(t, 12, output.TotalChunks)
		assert.Equal(t, 10, output.DocumentChunks)
		assert.Equal(t, 2, output.HighlightChunks)
		assert.Equal(t, 2, output.Sources)
		assert.Equal(t, 768, output.Dimensions)
	})

	t.Run("works without a store", func(t *testing.T) {
		mockIndex := &mockIndexManager{folders: []domain.WatchedFolder{{Path: "/docs"}}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: mockIndex})

		_, output, err := server.handleIndexStats(ctx, nil, IndexStatsInput{})
		require.NoError(t, err)
		assert.Equal(t, 1, output.WatchedFolders)
		assert.Zero(t, output.TotalChunks)
	})
}

func TestServer_handleListTasks(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	mockTasks := &mockTaskManager{tasks: []domain.ProcessingTask{
		{ID: "t1", Name: "/docs/a.txt", Kind: "ingest", Priority: domain.PriorityHigh,
			Status: domain.TaskStatusRunning, Progress: 50, CreatedAt: created},
		{ID: "t2", Name: "/docs/b.txt", Kind: "ingest", Priority: domain.PriorityNormal,
			Status: domain.TaskStatusFailed, CreatedAt: created, ErrorMessage: "extraction failed"},
	}}
	server := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: &mockIndexManager{}, Tasks: mockTasks})

	t.Run("lists all tasks", func(t *testing.T) {
		_, output, err := server.handleListTasks(ctx, nil, ListTasksInput{})
		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, "t1", output.Tasks[0].ID)
		assert.Equal(t, "high", output.Tasks[0].Priority)
		assert.Equal(t, "running", output.Tasks[0].Status)
		assert.Equal(t, "2026-02-01T09:30:00Z", output.Tasks[0].CreatedAt)
	})

	t.Run("filters by status", func(t *testing.T) {
		_, output, err := server.handleListTasks(ctx, nil, ListTasksInput{Status: "failed"})
		require.NoError(t, err)
		require.Equal(t, 1, output.Count)
		assert.Equal(t, "t2", output.Tasks[0].ID)
		assert.Equal(t, "extraction failed", output.Tasks[0].Error)
	})
}

func TestServer_handleCancelTask(t *testing.T) {
	ctx := context.Background()

	mockTasks := &mockTaskManager{cancelOK: true}
	server := newTestServer(t, &Ports{Search: &mockSearchService{}, Index: &mockIndexManager{}, Tasks: mockTasks})

	_, output, err := server.handleCancelTask(ctx, nil, CancelTaskInput{TaskID: "t1"})
	require.NoError(t, err)
	assert.True(t, output.Cancelled)
	assert.Equal(t, "t1", mockTasks.cancelled)
}
