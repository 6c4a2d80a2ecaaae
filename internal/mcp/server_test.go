package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/capstone-search/internal/grouper"
	"github.com/dshills/capstone-search/internal/indexer"
	"github.com/dshills/capstone-search/internal/storage"
	"github.com/dshills/capstone-search/internal/summarizer"
	"github.com/dshills/capstone-search/pkg/types"
)

type fakeRetriever struct {
	results []types.RetrievalResult
	err     error
	gotK    int
	gotQ    string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, k, fetchLimit int) ([]types.RetrievalResult, error) {
	f.gotK = k
	f.gotQ = query
	return f.results, f.err
}

type fakeSummarizer struct {
	summary *summarizer.Summary
	err     error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, query string, k int) (*summarizer.Summary, error) {
	return f.summary, f.err
}

type fakeIngester struct {
	stats   *indexer.Statistics
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeIngester) IngestPath(ctx context.Context, path string, config *indexer.Config) (*indexer.Statistics, error) {
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	return f.stats, f.err
}

type recordedCall struct {
	tool    string
	success bool
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) ObserveToolCall(tool string, duration time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{tool, success})
}

func yearPtr(y int) *int { return &y }

// setupServer builds a server over an in-memory store
func setupServer(t *testing.T, deps Dependencies) (*Server, *storage.SQLiteStorage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	deps.Storage = store
	if deps.Retriever == nil {
		deps.Retriever = &fakeRetriever{}
	}
	if deps.Cards == nil {
		deps.Cards = grouper.New(store)
	}

	s, err := NewServer(deps)
	require.NoError(t, err)
	return s, store
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// decodeResult parses the JSON text content of a tool result
func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	assert.Equal(t, code, mcpErr.Code)
}

func seedProject(t *testing.T, store *storage.SQLiteStorage, title, sha string) *types.Project {
	t.Helper()
	ctx := context.Background()
	project := &types.Project{Title: title, SHA256: sha, Year: yearPtr(2024), DocType: "Capstone"}
	require.NoError(t, store.UpsertProject(ctx, project))
	require.NoError(t, store.ReplaceAuthors(ctx, project.ID, []string{"Ada Lovelace"}))
	require.NoError(t, store.ReplaceKeywords(ctx, project.ID, []string{"engines"}))
	require.NoError(t, store.InsertSection(ctx, &types.Section{ProjectID: project.ID, Heading: "Intro", Content: "hello", Order: 1}))
	return project
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(Dependencies{})
	assert.ErrorIs(t, err, ErrMissingDependency)

	s, _ := setupServer(t, Dependencies{})
	assert.NotNil(t, s.mcp)
	assert.Equal(t, DefaultK, s.defaultK)

	tools := []mcp.Tool{
		searchCapstonesTool(), summarizeCapstonesTool(), getCapstoneTool(),
		listCapstonesTool(), ingestCapstonesTool(), getStatusTool(),
	}
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{toolSearch, toolSummarize, toolGet, toolList, toolIngest, toolStatus}, names)
	assert.Contains(t, searchCapstonesTool().InputSchema.Required, "query")
}

func TestHandleSearchCapstones(t *testing.T) {
	retriever := &fakeRetriever{}
	s, store := setupServer(t, Dependencies{Retriever: retriever, DefaultK: 8})
	project := seedProject(t, store, "Analytical Engine", "sha-1")
	retriever.results = []types.RetrievalResult{
		{ChunkID: 1, ProjectID: project.ID, Title: project.Title, Year: project.Year, Content: "first", Score: 0.9},
		{ChunkID: 2, ProjectID: project.ID, Title: project.Title, Year: project.Year, Content: "second", Score: 0.8},
	}

	result, err := s.handleSearchCapstones(context.Background(), callRequest(toolSearch, map[string]interface{}{
		"query": "  engine  ",
	}))
	require.NoError(t, err)
	assert.Equal(t, 8, retriever.gotK)
	assert.Equal(t, "  engine  ", retriever.gotQ, "query reaches the retriever untouched")

	out := decodeResult(t, result)
	assert.Equal(t, "  engine  ", out["query"])
	cards := out["results"].([]interface{})
	require.Len(t, cards, 1)

	card := cards[0].(map[string]interface{})
	assert.Equal(t, "Analytical Engine", card["title"])
	assert.Equal(t, []interface{}{"first", "second"}, card["snippets"])
	assert.Equal(t, []interface{}{"Ada Lovelace"}, card["authors"])
	assert.Equal(t, "Capstone", card["category"])
	assert.InDelta(t, 0.9, card["similarity"], 1e-9)
}

func TestHandleSearchCapstones_Validation(t *testing.T) {
	s, _ := setupServer(t, Dependencies{})
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing query", map[string]interface{}{}},
		{"non-string query", map[string]interface{}{"query": 3.0}},
		{"k too small", map[string]interface{}{"query": "x", "k": 0.0}},
		{"k too large", map[string]interface{}{"query": "x", "k": 101.0}},
		{"fractional k", map[string]interface{}{"query": "x", "k": 2.5}},
		{"string k", map[string]interface{}{"query": "x", "k": "5"}},
		{"boolean k", map[string]interface{}{"query": "x", "k": true}},
		{"null k", map[string]interface{}{"query": "x", "k": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleSearchCapstones(ctx, callRequest(toolSearch, tt.args))
			requireMCPError(t, err, ErrorCodeInvalidParams)
		})
	}

	var req mcp.CallToolRequest
	req.Params.Arguments = "not an object"
	_, err := s.handleSearchCapstones(ctx, req)
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleSearchCapstones_EmptyQueryAllowed(t *testing.T) {
	retriever := &fakeRetriever{}
	s, _ := setupServer(t, Dependencies{Retriever: retriever})

	result, err := s.handleSearchCapstones(context.Background(), callRequest(toolSearch, map[string]interface{}{"query": "", "k": 3.0}))
	require.NoError(t, err)
	assert.Equal(t, 3, retriever.gotK)
	assert.Empty(t, decodeResult(t, result)["results"])
}

func TestHandleSearchCapstones_RetrievalError(t *testing.T) {
	s, _ := setupServer(t, Dependencies{Retriever: &fakeRetriever{err: errors.New("index offline")}})

	_, err := s.handleSearchCapstones(context.Background(), callRequest(toolSearch, map[string]interface{}{"query": "x"}))
	requireMCPError(t, err, ErrorCodeInternalError)
}

func TestHandleSummarizeCapstones(t *testing.T) {
	summary := &summarizer.Summary{
		Query:    "engines",
		Markdown: "Engines [1].",
		HTML:     "<p>Engines [1].</p>\n",
		Sources:  []summarizer.Source{{Index: 1, ProjectID: 7, Title: "Engine", Year: yearPtr(1843)}},
		Model:    "fake",
	}
	s, _ := setupServer(t, Dependencies{Summarizer: &fakeSummarizer{summary: summary}})

	result, err := s.handleSummarizeCapstones(context.Background(), callRequest(toolSummarize, map[string]interface{}{"query": "engines"}))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, "Engines [1].", out["summary"])
	assert.Equal(t, "fake", out["model"])
	sources := out["used_sources"].([]interface{})
	require.Len(t, sources, 1)
	assert.Equal(t, 1.0, sources[0].(map[string]interface{})["index"])
}

func TestHandleSummarizeCapstones_Errors(t *testing.T) {
	ctx := context.Background()
	args := map[string]interface{}{"query": "x"}

	s, _ := setupServer(t, Dependencies{})
	_, err := s.handleSummarizeCapstones(ctx, callRequest(toolSummarize, args))
	requireMCPError(t, err, ErrorCodeInternalError)

	s, _ = setupServer(t, Dependencies{Summarizer: &fakeSummarizer{err: summarizer.ErrGenerationFailed}})
	_, err = s.handleSummarizeCapstones(ctx, callRequest(toolSummarize, args))
	requireMCPError(t, err, ErrorCodeInternalError)
}

func TestHandleGetCapstone(t *testing.T) {
	s, store := setupServer(t, Dependencies{})
	project := seedProject(t, store, "Difference Engine", "sha-2")
	ctx := context.Background()

	result, err := s.handleGetCapstone(ctx, callRequest(toolGet, map[string]interface{}{"id": float64(project.ID)}))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, "Difference Engine", out["title"])
	assert.Equal(t, 2024.0, out["year"])
	assert.Equal(t, []interface{}{"Ada Lovelace"}, out["authors"])
	assert.Equal(t, []interface{}{"engines"}, out["keywords"])
	sections := out["sections"].([]interface{})
	require.Len(t, sections, 1)
	assert.Equal(t, "Intro", sections[0].(map[string]interface{})["heading"])

	_, err = s.handleGetCapstone(ctx, callRequest(toolGet, map[string]interface{}{"id": 9999.0}))
	requireMCPError(t, err, ErrorCodeNotFound)

	_, err = s.handleGetCapstone(ctx, callRequest(toolGet, map[string]interface{}{"id": 1.5}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleGetCapstone(ctx, callRequest(toolGet, map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleListCapstones(t *testing.T) {
	s, store := setupServer(t, Dependencies{})
	seedProject(t, store, "First", "sha-a")
	seedProject(t, store, "Second", "sha-b")
	ctx := context.Background()

	result, err := s.handleListCapstones(ctx, callRequest(toolList, nil))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Len(t, out["capstones"], 2)
	assert.Equal(t, float64(defaultListLimit), out["limit"])

	result, err = s.handleListCapstones(ctx, callRequest(toolList, map[string]interface{}{"limit": 1.0, "offset": 1.0}))
	require.NoError(t, err)
	assert.Len(t, decodeResult(t, result)["capstones"], 1)

	_, err = s.handleListCapstones(ctx, callRequest(toolList, map[string]interface{}{"limit": 500.0}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleListCapstones(ctx, callRequest(toolList, map[string]interface{}{"offset": -1.0}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	for _, args := range []map[string]interface{}{
		{"limit": 2.5},
		{"limit": "5"},
		{"offset": 0.5},
		{"offset": "1"},
	} {
		_, err = s.handleListCapstones(ctx, callRequest(toolList, args))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	}
}

func TestHandleIngestCapstones(t *testing.T) {
	ingester := &fakeIngester{stats: &indexer.Statistics{
		DocumentsIngested: 2,
		DocumentsFailed:   7,
		ErrorMessages:     []string{"a", "b", "c", "d", "e", "f", "g"},
	}}
	s, _ := setupServer(t, Dependencies{Ingester: ingester})
	dir := t.TempDir()

	result, err := s.handleIngestCapstones(context.Background(), callRequest(toolIngest, map[string]interface{}{"path": dir}))
	require.NoError(t, err)

	out := decodeResult(t, result)
	assert.Equal(t, true, out["ingested"])
	assert.Equal(t, 2.0, out["documents_ingested"])
	assert.Len(t, out["errors"], maxErrorsShown)
	assert.Equal(t, 7.0, out["error_count"])
}

func TestHandleIngestCapstones_Validation(t *testing.T) {
	s, _ := setupServer(t, Dependencies{Ingester: &fakeIngester{stats: &indexer.Statistics{}}})
	ctx := context.Background()

	dir := t.TempDir()
	textFile := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(textFile, []byte("x"), 0644))

	for _, path := range []string{"", "relative/path", filepath.Join(dir, "missing"), textFile} {
		_, err := s.handleIngestCapstones(ctx, callRequest(toolIngest, map[string]interface{}{"path": path}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	}

	noIngest, _ := setupServer(t, Dependencies{})
	_, err := noIngest.handleIngestCapstones(ctx, callRequest(toolIngest, map[string]interface{}{"path": dir}))
	requireMCPError(t, err, ErrorCodeInternalError)
}

func TestHandleIngestCapstones_InProgress(t *testing.T) {
	ingester := &fakeIngester{
		stats:   &indexer.Statistics{},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, _ := setupServer(t, Dependencies{Ingester: ingester})
	ctx := context.Background()
	args := map[string]interface{}{"path": t.TempDir()}

	done := make(chan error, 1)
	go func() {
		_, err := s.handleIngestCapstones(ctx, callRequest(toolIngest, args))
		done <- err
	}()
	<-ingester.started

	_, err := s.handleIngestCapstones(ctx, callRequest(toolIngest, args))
	requireMCPError(t, err, ErrorCodeIngestInProgress)

	status, err := s.handleGetStatus(ctx, callRequest(toolStatus, nil))
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, status)["ingest_running"])

	close(ingester.release)
	require.NoError(t, <-done)
}

func TestHandleGetStatus(t *testing.T) {
	s, store := setupServer(t, Dependencies{})
	seedProject(t, store, "Status", "sha-s")

	result, err := s.handleGetStatus(context.Background(), callRequest(toolStatus, nil))
	require.NoError(t, err)

	out := decodeResult(t, result)
	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, 1.0, stats["projects_count"])
	health := out["health"].(map[string]interface{})
	assert.Equal(t, true, health["database_accessible"])
	assert.Equal(t, true, health["fts_index_built"])
	assert.Equal(t, false, out["ingest_running"])
}

func TestInstrument(t *testing.T) {
	recorder := &fakeRecorder{}
	s, _ := setupServer(t, Dependencies{Recorder: recorder})

	ok := s.instrument("ok_tool", func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		assert.NotSame(t, s.logger, s.loggerFrom(ctx), "handler gets a request-scoped logger")
		return mcp.NewToolResultText("{}"), nil
	})
	failing := s.instrument("bad_tool", func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, newMCPError(ErrorCodeInternalError, "boom", nil)
	})

	_, err := ok(context.Background(), callRequest("ok_tool", nil))
	require.NoError(t, err)
	_, err = failing(context.Background(), callRequest("bad_tool", nil))
	require.Error(t, err)

	assert.Equal(t, []recordedCall{{"ok_tool", true}, {"bad_tool", false}}, recorder.calls)
}

func TestMCPError(t *testing.T) {
	err := newMCPError(ErrorCodeNotFound, "capstone not found", nil)
	assert.Equal(t, "MCP error -32001: capstone not found", err.Error())
}
