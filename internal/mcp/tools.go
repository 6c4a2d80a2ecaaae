package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/capstone-search/internal/indexer"
	"github.com/dshills/capstone-search/internal/storage"
	"github.com/dshills/capstone-search/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound         = -32001 // Requested capstone does not exist
	ErrorCodeIngestInProgress = -32002 // Another ingestion run is already active
)

// Tool names
const (
	toolSearch    = "search_capstones"
	toolSummarize = "summarize_capstones"
	toolGet       = "get_capstone"
	toolList      = "list_capstones"
	toolIngest    = "ingest_capstones"
	toolStatus    = "get_status"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxErrorsShown   = 5
)

// handleSearchCapstones handles the search_capstones tool invocation
func (s *Server) handleSearchCapstones(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, k, err := s.queryParams(args)
	if err != nil {
		return nil, err
	}

	results, err := s.retriever.Retrieve(ctx, query, k, s.fetchLimit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	cards, err := s.cards.Group(ctx, results)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to build result cards", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.loggerFrom(ctx).Debug("search complete", "chunks", len(results), "cards", len(cards))

	response := map[string]interface{}{
		"query":   query,
		"results": cards,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSummarizeCapstones handles the summarize_capstones tool invocation
func (s *Server) handleSummarizeCapstones(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, k, err := s.queryParams(args)
	if err != nil {
		return nil, err
	}

	if s.summarizer == nil {
		return nil, newMCPError(ErrorCodeInternalError, "summarization is not configured", nil)
	}

	summary, err := s.summarizer.Summarize(ctx, query, k)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "summarization failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"query":        summary.Query,
		"summary":      summary.Markdown,
		"html":         summary.HTML,
		"used_sources": summary.Sources,
	}
	if summary.Model != "" {
		response["model"] = summary.Model
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetCapstone handles the get_capstone tool invocation
func (s *Server) handleGetCapstone(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	id, ok := getInt(args, "id")
	if !ok || id <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or not a positive integer",
		})
	}

	detail, err := s.storage.GetProject(ctx, int64(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotFound, "capstone not found", map[string]interface{}{
			"id": id,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load capstone", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(projectDetailResponse(detail))), nil
}

// handleListCapstones handles the list_capstones tool invocation
func (s *Server) handleListCapstones(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	limit, err := optionalInt(args, "limit", defaultListLimit)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > maxListLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	offset, err := optionalInt(args, "offset", 0)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "offset must not be negative", map[string]interface{}{
			"param": "offset",
			"value": offset,
		})
	}

	projects, err := s.storage.ListProjects(ctx, limit, offset)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list capstones", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(projects))
	for _, p := range projects {
		items = append(items, map[string]interface{}{
			"id":       p.ID,
			"title":    p.Title,
			"year":     p.Year,
			"category": p.Category(),
		})
	}

	response := map[string]interface{}{
		"limit":     limit,
		"offset":    offset,
		"capstones": items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIngestCapstones handles the ingest_capstones tool invocation
func (s *Server) handleIngestCapstones(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	if s.ingester == nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingestion is not configured", nil)
	}

	var stats *indexer.Statistics
	err = s.lock.Run(func() error {
		var ingestErr error
		stats, ingestErr = s.ingester.IngestPath(ctx, path, &indexer.Config{Workers: s.ingestWorkers})
		return ingestErr
	})
	if errors.Is(err, indexer.ErrIngestInProgress) {
		return nil, newMCPError(ErrorCodeIngestInProgress, "ingestion already in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"ingested":           true,
		"documents_ingested": stats.DocumentsIngested,
		"documents_failed":   stats.DocumentsFailed,
		"sections_created":   stats.SectionsCreated,
		"chunks_created":     stats.ChunksCreated,
		"embeddings_created": stats.EmbeddingsCreated,
		"duration_ms":        stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxErrorsShown {
			response["errors"] = stats.ErrorMessages[:maxErrorsShown]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"server": map[string]interface{}{
			"name":    ServerName,
			"version": ServerVersion,
		},
		"ingest_running": s.lock.Held(),
		"statistics": map[string]interface{}{
			"projects_count":   status.ProjectsCount,
			"chunks_count":     status.ChunksCount,
			"embeddings_count": status.EmbeddingsCount,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
			"schema_version":   status.SchemaVersion,
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"fts_index_built":      status.Health.FTSIndexBuilt,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// queryParams validates the query and k shared by search and summarize
func (s *Server) queryParams(args map[string]interface{}) (string, int, error) {
	query, ok := args["query"].(string)
	if !ok {
		return "", 0, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or not a string",
		})
	}

	k, err := optionalInt(args, "k", s.defaultK)
	if err != nil {
		return "", 0, err
	}
	if k < 1 || k > MaxK {
		return "", 0, newMCPError(ErrorCodeInvalidParams, "k must be between 1 and 100", map[string]interface{}{
			"param": "k",
			"value": k,
		})
	}
	return query, k, nil
}

func projectDetailResponse(detail *types.ProjectDetail) map[string]interface{} {
	sections := make([]map[string]interface{}, 0, len(detail.Sections))
	for _, sec := range detail.Sections {
		sections = append(sections, map[string]interface{}{
			"heading": sec.Heading,
			"content": sec.Content,
			"order":   sec.Order,
		})
	}

	return map[string]interface{}{
		"id":             detail.ID,
		"title":          detail.Title,
		"year":           detail.Year,
		"abstract":       detail.Abstract,
		"filename":       detail.Filename,
		"sha256":         detail.SHA256,
		"course":         detail.Course,
		"host":           detail.Host,
		"doc_type":       detail.DocType,
		"category":       detail.Category(),
		"external_links": detail.ExternalLinks,
		"authors":        nonNil(detail.Authors),
		"keywords":       nonNil(detail.Keywords),
		"sections":       sections,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Helper functions

// arguments extracts the tool argument object; absent arguments are an empty object
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is an absolute, readable JSON file or directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	// Check if path is absolute
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	// Check if path exists
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() && !strings.EqualFold(filepath.Ext(path), ".json") {
		return ErrNotJSON
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getInt extracts an integer parameter; JSON numbers arrive as float64
func getInt(args map[string]interface{}, key string) (int, bool) {
	switch val := args[key].(type) {
	case float64:
		if val != float64(int(val)) {
			return 0, false
		}
		return int(val), true
	case int:
		return val, true
	case int64:
		return int(val), true
	}
	return 0, false
}

// optionalInt extracts an integer parameter, using defaultValue only when the key is absent
func optionalInt(args map[string]interface{}, key string, defaultValue int) (int, error) {
	if _, present := args[key]; !present {
		return defaultValue, nil
	}
	val, ok := getInt(args, key)
	if !ok {
		return 0, newMCPError(ErrorCodeInvalidParams, key+" must be an integer", map[string]interface{}{
			"param": key,
			"value": args[key],
		})
	}
	return val, nil
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotJSON         = errors.New("file is not a .json document")
)
