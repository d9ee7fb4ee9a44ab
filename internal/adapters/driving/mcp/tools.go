package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query     string  `json:"query" jsonschema:"the search query to find file content"`
	Limit     int     `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"minimum raw similarity between 0 and 1 (default 0.3)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ChunkID      string  `json:"chunk_id"`
	Title        string  `json:"title"`
	Source       string  `json:"source"`
	Score        float64 `json:"score"`
	Similarity   float64 `json:"similarity"`
	Snippet      string  `json:"snippet"`
	IsHighlight  bool    `json:"is_highlight,omitempty"`
	HighlightHue string  `json:"highlight_color,omitempty"`
}

// WatchFolderInput is the input schema for the watch_folder tool.
type WatchFolderInput struct {
	Path string `json:"path" jsonschema:"absolute path of the folder to watch and index"`
}

// WatchFolderOutput is the output schema for the watch_folder tool.
type WatchFolderOutput struct {
	Path       string `json:"path"`
	FilesFound int    `json:"files_found"`
}

// UnwatchFolderInput is the input schema for the unwatch_folder tool.
type UnwatchFolderInput struct {
	Path string `json:"path" jsonschema:"absolute path of the folder to stop watching"`
}

// UnwatchFolderOutput is the output schema for the unwatch_folder tool.
type UnwatchFolderOutput struct {
	Path    string `json:"path"`
	Removed bool   `json:"removed"`
}

// IndexStatsInput is the input schema for the index_stats tool.
type IndexStatsInput struct{}

// IndexStatsOutput is the output schema for the index_stats tool.
type IndexStatsOutput struct {
	WatchedFolders  int `json:"watched_folders"`
	TrackedFiles    int `json:"tracked_files"`
	TotalChunks     int `json:"total_chunks"`
	DocumentChunks  int `json:"document_chunks"`
	HighlightChunks int `json:"highlight_chunks"`
	Sources         int `json:"sources"`
	Dimensions      int `json:"dimensions"`
}

// ListTasksInput is the input schema for the list_tasks tool.
type ListTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter by status (pending, running, completed, failed, cancelled)"`
}

// ListTasksOutput is the output schema for the list_tasks tool.
type ListTasksOutput struct {
	Tasks []TaskOutput `json:"tasks"`
	Count int          `json:"count"`
}

// TaskOutput represents a single background task.
type TaskOutput struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Priority  string  `json:"priority"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	CreatedAt string  `json:"created_at"`
	Error     string  `json:"error,omitempty"`
}

// CancelTaskInput is the input schema for the cancel_task tool.
type CancelTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"identifier of the task to cancel"`
}

// CancelTaskOutput is the output schema for the cancel_task tool.
type CancelTaskOutput struct {
	TaskID    string `json:"task_id"`
	Cancelled bool   `json:"cancelled"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search across all indexed file content",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "watch_folder",
		Description: "Watch a folder and index its supported files",
	}, s.handleWatchFolder)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "unwatch_folder",
		Description: "Stop watching a folder and remove its files from the index",
	}, s.handleUnwatchFolder)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_stats",
		Description: "Summarise the index: folders, files, chunks",
	}, s.handleIndexStats)

	if s.ports.Tasks != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_tasks",
			Description: "List background processing tasks",
		}, s.handleListTasks)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "cancel_task",
			Description: "Cancel a pending or running task",
		}, s.handleCancelTask)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Search.Search(ctx, input.Query, input.Limit, input.Threshold)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	s.ports.Search.LearnFromSearch(input.Query)

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			ChunkID:      results[i].ChunkID,
			Title:        results[i].DisplayTitle,
			Source:       results[i].Source,
			Score:        results[i].DisplayScore,
			Similarity:   results[i].Similarity,
			Snippet:      results[i].DisplaySnippet,
			IsHighlight:  results[i].IsHighlight,
			HighlightHue: results[i].HighlightColor,
		}
	}
	return nil, output, nil
}

// handleWatchFolder handles the watch_folder tool invocation.
func (s *Server) handleWatchFolder(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input WatchFolderInput,
) (*mcp.CallToolResult, WatchFolderOutput, error) {
	count, err := s.ports.Index.AddFolder(ctx, input.Path)
	if err != nil {
		return nil, WatchFolderOutput{}, err
	}
	return nil, WatchFolderOutput{Path: input.Path, FilesFound: count}, nil
}

// handleUnwatchFolder handles the unwatch_folder tool invocation.
func (s *Server) handleUnwatchFolder(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UnwatchFolderInput,
) (*mcp.CallToolResult, UnwatchFolderOutput, error) {
	if err := s.ports.Index.RemoveFolder(ctx, input.Path); err != nil {
		return nil, UnwatchFolderOutput{}, err
	}
	return nil, UnwatchFolderOutput{Path: input.Path, Removed: true}, nil
}

// handleIndexStats handles the index_stats tool invocation.
func (s *Server) handleIndexStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ IndexStatsInput,
) (*mcp.CallToolResult, IndexStatsOutput, error) {
	output := IndexStatsOutput{
		WatchedFolders: len(s.ports.Index.Folders()),
		TrackedFiles:   len(s.ports.Index.FileRecords()),
	}

	if s.ports.Store != nil {
		stats, err := s.ports.Store.Stats(ctx)
		if err != nil {
			return nil, IndexStatsOutput{}, err
		}
		output.TotalChunks = stats.TotalChunks
		output.DocumentChunks = stats.DocumentChunks
		output.HighlightChunks = stats.HighlightChunks
		output.Sources = stats.SourceCount
		output.Dimensions = stats.Dimensions
	}
	return nil, output, nil
}

// handleListTasks handles the list_tasks tool invocation.
func (s *Server) handleListTasks(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListTasksInput,
) (*mcp.CallToolResult, ListTasksOutput, error) {
	tasks := s.ports.Tasks.Tasks()

	output := ListTasksOutput{Tasks: make([]TaskOutput, 0, len(tasks))}
	for i := range tasks {
		if input.Status != "" && string(tasks[i].Status) != input.Status {
			continue
		}
		output.Tasks = append(output.Tasks, TaskOutput{
			ID:        tasks[i].ID,
			Name:      tasks[i].Name,
			Kind:      tasks[i].Kind,
			Priority:  tasks[i].Priority.String(),
			Status:    string(tasks[i].Status),
			Progress:  tasks[i].Progress,
			CreatedAt: tasks[i].CreatedAt.Format(time.RFC3339),
			Error:     tasks[i].ErrorMessage,
		})
	}
	output.Count = len(output.Tasks)
	return nil, output, nil
}

// handleCancelTask handles the cancel_task tool invocation.
func (s *Server) handleCancelTask(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CancelTaskInput,
) (*mcp.CallToolResult, CancelTaskOutput, error) {
	cancelled := s.ports.Tasks.Cancel(input.TaskID)
	return nil, CancelTaskOutput{TaskID: input.TaskID, Cancelled: cancelled}, nil
}
