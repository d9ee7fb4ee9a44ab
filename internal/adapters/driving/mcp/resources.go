package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for semdex resources.
	uriScheme = "semdex://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing watched folders.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "folders",
		Name:        "folders",
		Description: "List of all watched folders",
		MIMEType:    "application/json",
	}, s.handleFoldersResource)

	// Static resource for the processed-file registry.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "files",
		Name:        "files",
		Description: "Processing state of all tracked files",
		MIMEType:    "application/json",
	}, s.handleFilesResource)

	// Template for a single task.
	if s.ports.Tasks != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "tasks/{taskId}",
			Name:        "task",
			Description: "State of a specific background task",
			MIMEType:    "application/json",
		}, s.handleTaskResource)
	}
}

// handleFoldersResource returns the watched folder list.
func (s *Server) handleFoldersResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	folders := s.ports.Index.Folders()

	type folderInfo struct {
		Path    string `json:"path"`
		AddedAt string `json:"added_at"`
	}
	infos := make([]folderInfo, len(folders))
	for i, f := range folders {
		infos[i] = folderInfo{
			Path:    f.Path,
			AddedAt: f.AddedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	return jsonResource(req.Params.URI, infos)
}

// handleFilesResource returns a snapshot of the file registry.
func (s *Server) handleFilesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	records := s.ports.Index.FileRecords()

	type fileInfo struct {
		Path       string `json:"path"`
		Status     string `json:"status"`
		ChunkCount int    `json:"chunk_count"`
		LastError  string `json:"last_error,omitempty"`
	}
	infos := make([]fileInfo, 0, len(records))
	for path, rec := range records {
		infos = append(infos, fileInfo{
			Path:       path,
			Status:     string(rec.Status),
			ChunkCount: rec.ChunkCount,
			LastError:  rec.LastError,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })

	return jsonResource(req.Params.URI, infos)
}

// handleTaskResource returns the state of one task.
func (s *Server) handleTaskResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	taskID := strings.TrimPrefix(req.Params.URI, uriScheme+"tasks/")
	if taskID == "" || taskID == req.Params.URI {
		return nil, fmt.Errorf("invalid task URI: %s", req.Params.URI)
	}

	task, err := s.ports.Tasks.Task(taskID)
	if err != nil {
		return nil, err
	}

	return jsonResource(req.Params.URI, TaskOutput{
		ID:        task.ID,
		Name:      task.Name,
		Kind:      task.Kind,
		Priority:  task.Priority.String(),
		Status:    string(task.Status),
		Progress:  task.Progress,
		CreatedAt: task.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Error:     task.ErrorMessage,
	})
}

// jsonResource marshals v into a single JSON resource content.
func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
