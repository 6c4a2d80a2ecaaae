package summarizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dshills/capstone-search/pkg/types"
)

const (
	// MaxPassages caps how many retrieved passages reach the model
	MaxPassages = 10
	// PassageRunes truncates each passage before it is quoted in the prompt
	PassageRunes = 1200

	// NoPassagesMessage is returned when retrieval finds nothing
	NoPassagesMessage = "(No passages available to summarize.)"

	// SystemPrompt restricts the model to the supplied passages
	SystemPrompt = "You are an academic assistant. You synthesize with [#] citations only from provided snippets."
)

// ErrNilDependency is returned by New when a collaborator is missing
var ErrNilDependency = errors.New("summarizer dependency is nil")

// Retriever returns ranked chunks for a query
type Retriever interface {
	Retrieve(ctx context.Context, query string, k, fetchLimit int) ([]types.RetrievalResult, error)
}

// Source is one cited passage, numbered as it appears in the prompt
type Source struct {
	Index     int    `json:"index"`
	ProjectID int64  `json:"project_id"`
	Title     string `json:"title"`
	Year      *int   `json:"year"`
}

// Summary is a generated overview with its sources
type Summary struct {
	Query    string   `json:"query"`
	Markdown string   `json:"summary"`
	HTML     string   `json:"html"`
	Sources  []Source `json:"used_sources"`
	Model    string   `json:"model,omitempty"`
}

// Service retrieves passages and asks a Generator to summarize them
type Service struct {
	retriever  Retriever
	generator  Generator
	markdown   goldmark.Markdown
	fetchLimit int
	logger     *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFetchLimit sets the lexical fetch limit passed to the retriever
func WithFetchLimit(limit int) Option {
	return func(s *Service) {
		s.fetchLimit = limit
	}
}

// New creates a summarization service
func New(retriever Retriever, generator Generator, opts ...Option) (*Service, error) {
	if retriever == nil {
		return nil, fmt.Errorf("%w: retriever", ErrNilDependency)
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: generator", ErrNilDependency)
	}

	s := &Service{
		retriever: retriever,
		generator: generator,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Summarize retrieves k passages, keeps the first min(k, MaxPassages) and
// produces a cited overview. k <= 0 yields the no-passages summary.
func (s *Service) Summarize(ctx context.Context, query string, k int) (*Summary, error) {
	start := time.Now()

	// Rank with the caller's k, then keep the strongest passages
	limit := min(k, MaxPassages)
	var passages []types.RetrievalResult
	if limit > 0 {
		results, err := s.retriever.Retrieve(ctx, query, k, s.fetchLimit)
		if err != nil {
			return nil, fmt.Errorf("retrieve passages: %w", err)
		}
		passages = results
		if len(passages) > limit {
			passages = passages[:limit]
		}
	}

	summary := &Summary{
		Query:   query,
		Sources: sourcesFor(passages),
	}

	if len(passages) == 0 {
		summary.Markdown = NoPassagesMessage
	} else {
		text, err := s.generator.Generate(ctx, SystemPrompt, BuildPrompt(query, passages))
		if err != nil {
			return nil, err
		}
		summary.Markdown = text
		summary.Model = s.generator.Name()
	}

	html, err := s.RenderHTML(summary.Markdown)
	if err != nil {
		return nil, err
	}
	summary.HTML = html

	s.logger.Debug("summary generated",
		"passages", len(passages),
		"model", summary.Model,
		"duration", time.Since(start),
	)
	return summary, nil
}

// RenderHTML converts Markdown to HTML. Raw HTML in the input is not passed through.
func (s *Service) RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// BuildPrompt numbers each passage from 1 and asks for a cited Markdown overview
func BuildPrompt(query string, passages []types.RetrievalResult) string {
	var b strings.Builder
	b.WriteString("Synthesize a concise overview.\n\n")
	b.WriteString("QUERY: ")
	b.WriteString(query)
	b.WriteString("\n\n")
	b.WriteString("Use ONLY these snippets. Cite with [1], [2], etc. ")
	b.WriteString("End with a bullet list \"Sources used\" with titles and years. ")
	b.WriteString("Format the answer as Markdown.\n\n")

	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s (%s) :: %s\n\n", i+1, p.Title, yearLabel(p.Year), truncateRunes(p.Content, PassageRunes))
	}
	return strings.TrimRight(b.String(), "\n")
}

func sourcesFor(passages []types.RetrievalResult) []Source {
	sources := make([]Source, len(passages))
	for i, p := range passages {
		sources[i] = Source{
			Index:     i + 1,
			ProjectID: p.ProjectID,
			Title:     p.Title,
			Year:      p.Year,
		}
	}
	return sources
}

func yearLabel(year *int) string {
	if year == nil {
		return "n.d."
	}
	return strconv.Itoa(*year)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
