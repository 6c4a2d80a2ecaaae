package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/capstone-search/internal/indexer"
	"github.com/dshills/capstone-search/internal/storage"
	"github.com/dshills/capstone-search/internal/summarizer"
	"github.com/dshills/capstone-search/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "capstone-search"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"

	// DefaultK is the number of chunks retrieved when a tool call omits k
	DefaultK = 12
	// MaxK bounds k for search and summarize calls
	MaxK = 100
)

// Retriever ranks chunks for a query
type Retriever interface {
	Retrieve(ctx context.Context, query string, k, fetchLimit int) ([]types.RetrievalResult, error)
}

// CardBuilder groups ranked chunks into document cards
type CardBuilder interface {
	Group(ctx context.Context, results []types.RetrievalResult) ([]types.SearchCard, error)
}

// Summarizer produces a cited overview for a query
type Summarizer interface {
	Summarize(ctx context.Context, query string, k int) (*summarizer.Summary, error)
}

// Ingester loads documents from a file or directory
type Ingester interface {
	IngestPath(ctx context.Context, path string, config *indexer.Config) (*indexer.Statistics, error)
}

// ToolRecorder observes tool calls
type ToolRecorder interface {
	ObserveToolCall(tool string, duration time.Duration, success bool)
}

// Dependencies are the services exposed through MCP tools. Summarizer and
// Ingester may be nil, in which case their tools report an internal error.
type Dependencies struct {
	Storage    storage.Storage
	Retriever  Retriever
	Cards      CardBuilder
	Summarizer Summarizer
	Ingester   Ingester
	Recorder   ToolRecorder
	Logger     *slog.Logger

	DefaultK      int
	FetchLimit    int
	IngestWorkers int
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	storage    storage.Storage
	retriever  Retriever
	cards      CardBuilder
	summarizer Summarizer
	ingester   Ingester
	recorder   ToolRecorder
	logger     *slog.Logger
	lock       indexer.IngestLock

	defaultK      int
	fetchLimit    int
	ingestWorkers int
}

// ErrMissingDependency is returned by NewServer when a required service is nil
var ErrMissingDependency = errors.New("missing server dependency")

// NewServer creates a new MCP server instance
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Storage == nil {
		return nil, fmt.Errorf("%w: storage", ErrMissingDependency)
	}
	if deps.Retriever == nil {
		return nil, fmt.Errorf("%w: retriever", ErrMissingDependency)
	}
	if deps.Cards == nil {
		return nil, fmt.Errorf("%w: card builder", ErrMissingDependency)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defaultK := deps.DefaultK
	if defaultK <= 0 {
		defaultK = DefaultK
	}

	s := &Server{
		mcp:           server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		storage:       deps.Storage,
		retriever:     deps.Retriever,
		cards:         deps.Cards,
		summarizer:    deps.Summarizer,
		ingester:      deps.Ingester,
		recorder:      deps.Recorder,
		logger:        logger,
		defaultK:      min(defaultK, MaxK),
		fetchLimit:    deps.FetchLimit,
		ingestWorkers: deps.IngestWorkers,
	}

	s.registerTools()
	return s, nil
}

// Serve runs the MCP protocol on stdin/stdout until ctx is cancelled or input ends
func (s *Server) Serve(ctx context.Context) error {
	return s.ServeIO(ctx, os.Stdin, os.Stdout)
}

// ServeIO runs the MCP protocol over the given streams
func (s *Server) ServeIO(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	err := stdio.Listen(ctx, in, out)
	if err != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchCapstonesTool(), s.instrument(toolSearch, s.handleSearchCapstones))
	s.mcp.AddTool(summarizeCapstonesTool(), s.instrument(toolSummarize, s.handleSummarizeCapstones))
	s.mcp.AddTool(getCapstoneTool(), s.instrument(toolGet, s.handleGetCapstone))
	s.mcp.AddTool(listCapstonesTool(), s.instrument(toolList, s.handleListCapstones))
	s.mcp.AddTool(ingestCapstonesTool(), s.instrument(toolIngest, s.handleIngestCapstones))
	s.mcp.AddTool(getStatusTool(), s.instrument(toolStatus, s.handleGetStatus))
}

type loggerKey struct{}

// instrument tags each call with a request id, logs it and records its outcome
func (s *Server) instrument(name string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := s.logger.With("request_id", uuid.NewString(), "tool", name)
		ctx = context.WithValue(ctx, loggerKey{}, logger)

		start := time.Now()
		result, err := handler(ctx, request)
		duration := time.Since(start)

		if s.recorder != nil {
			s.recorder.ObserveToolCall(name, duration, err == nil)
		}
		if err != nil {
			logger.Warn("tool call failed", "duration", duration, "error", err)
		} else {
			logger.Info("tool call complete", "duration", duration)
		}
		return result, err
	}
}

// loggerFrom returns the request-scoped logger
func (s *Server) loggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return s.logger
}
