package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/capstone-search/pkg/types"
)

const (
	// DefaultFetchLimit bounds the lexical query when the caller passes fetchLimit <= 0
	DefaultFetchLimit = 10
	// LexicalBoost is added to a chunk's similarity when its document matched lexically
	LexicalBoost = 0.05
)

// Outcome labels reported to a Recorder
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeDegraded = "degraded"
	OutcomeError    = "error"
)

// LexicalSearcher returns documents matching an already-quoted full-text query, best first
type LexicalSearcher interface {
	SearchProjects(ctx context.Context, query string, limit int) ([]types.LexicalHit, error)
}

// VectorStore exposes stored chunk vectors and their document metadata
type VectorStore interface {
	AllChunkVectors(ctx context.Context) ([]types.ChunkVector, error)
	ResolveChunkMetadata(ctx context.Context, chunkIDs []int64) (map[int64]types.ChunkMetadata, error)
}

// EmbedFunc maps each input text to one fixed-dimension vector
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Recorder observes completed retrieval calls
type Recorder interface {
	ObserveRetrieval(outcome string, duration time.Duration, results, lexicalMatches int)
}

// Engine fuses lexical and semantic relevance into one ranking
type Engine struct {
	lexical   LexicalSearcher
	vectors   VectorStore
	embed     EmbedFunc
	neighbors NearestNeighbors
	logger    *slog.Logger
	recorder  Recorder
	boost     float64
	degrade   bool
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for per-call debug lines and degradation warnings
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder reports every call's outcome, duration and sizes
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLexicalBoost overrides the additive lexical-match boost
func WithLexicalBoost(boost float64) Option {
	return func(e *Engine) {
		e.boost = boost
	}
}

// WithDegradeOnLexicalFailure ranks on similarity alone when the lexical
// index fails, instead of failing the call.
func WithDegradeOnLexicalFailure(degrade bool) Option {
	return func(e *Engine) {
		e.degrade = degrade
	}
}

// WithNearestNeighbors replaces the linear TopK scan
func WithNearestNeighbors(fn NearestNeighbors) Option {
	return func(e *Engine) {
		if fn != nil {
			e.neighbors = fn
		}
	}
}

// New creates an Engine. lexical may be nil, in which case no document ever
// counts as a lexical match.
func New(lexical LexicalSearcher, vectors VectorStore, embed EmbedFunc, opts ...Option) (*Engine, error) {
	if vectors == nil {
		return nil, fmt.Errorf("%w: vector store", ErrNilDependency)
	}
	if embed == nil {
		return nil, fmt.Errorf("%w: embed function", ErrNilDependency)
	}

	e := &Engine{
		lexical:   lexical,
		vectors:   vectors,
		embed:     embed,
		neighbors: TopK,
		logger:    slog.New(slog.DiscardHandler),
		boost:     LexicalBoost,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Retrieve returns at most k chunks ranked by fused score, best first.
// k <= 0 returns an empty result without touching any collaborator.
func (e *Engine) Retrieve(ctx context.Context, query string, k, fetchLimit int) (results []types.RetrievalResult, err error) {
	if k <= 0 {
		return []types.RetrievalResult{}, nil
	}
	if fetchLimit <= 0 {
		fetchLimit = DefaultFetchLimit
	}

	start := time.Now()
	outcome := OutcomeOK
	var lexicalSet map[int64]struct{}
	var corpusSize int
	defer func() {
		if err != nil {
			outcome = OutcomeError
		}
		duration := time.Since(start)
		if e.recorder != nil {
			e.recorder.ObserveRetrieval(outcome, duration, len(results), len(lexicalSet))
		}
		e.logger.Debug("retrieval complete",
			"query_len", len(query),
			"k", k,
			"fetch_limit", fetchLimit,
			"corpus_size", corpusSize,
			"lexical_matches", len(lexicalSet),
			"results", len(results),
			"outcome", outcome,
			"duration", duration,
		)
	}()

	// Lexical query and corpus fetch are independent reads
	var corpus []types.ChunkVector
	var lexicalErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		set, err := e.lexicalMatches(gctx, query, fetchLimit)
		if err != nil {
			if e.degrade {
				lexicalErr = err
				return nil
			}
			return err
		}
		lexicalSet = set
		return nil
	})
	g.Go(func() error {
		vectors, err := e.vectors.AllChunkVectors(gctx)
		if err != nil {
			return fmt.Errorf("%w: vector store: %w", ErrUpstreamUnavailable, err)
		}
		corpus = vectors
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if lexicalErr != nil {
		outcome = OutcomeDegraded
		e.logger.Warn("lexical search failed, ranking on similarity only", "error", lexicalErr)
	}

	corpusSize = len(corpus)
	if corpusSize == 0 {
		if outcome == OutcomeOK {
			outcome = OutcomeEmpty
		}
		return []types.RetrievalResult{}, nil
	}

	queryVector, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	top, err := e.neighbors(corpus, queryVector, k)
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return []types.RetrievalResult{}, nil
	}

	ids := make([]int64, len(top))
	for i, sc := range top {
		ids[i] = sc.ChunkID
	}
	metadata, err := e.vectors.ResolveChunkMetadata(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk metadata: %w", ErrUpstreamUnavailable, err)
	}

	results = fuse(top, metadata, lexicalSet, e.boost, k)
	if dropped := len(top) - len(results); dropped > 0 {
		e.logger.Debug("dropped chunks without metadata", "count", dropped)
	}
	return results, nil
}

// lexicalMatches collects the ids of documents matching the quoted query
func (e *Engine) lexicalMatches(ctx context.Context, query string, limit int) (map[int64]struct{}, error) {
	set := make(map[int64]struct{})
	if e.lexical == nil {
		return set, nil
	}

	hits, err := e.lexical.SearchProjects(ctx, QuoteLexicalQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: lexical search: %w", ErrUpstreamUnavailable, err)
	}
	for _, hit := range hits {
		set[hit.ProjectID] = struct{}{}
	}
	return set, nil
}

// embedQuery embeds the raw, unquoted query exactly once
func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailure, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", ErrEmbeddingFailure, len(vectors))
	}
	return vectors[0], nil
}

// fuse joins scored chunks with their metadata, applies the lexical boost,
// re-sorts and truncates to k. Chunks missing from metadata are skipped.
func fuse(top []types.ScoredChunk, metadata map[int64]types.ChunkMetadata, lexicalSet map[int64]struct{}, boost float64, k int) []types.RetrievalResult {
	results := make([]types.RetrievalResult, 0, len(top))
	for _, sc := range top {
		meta, ok := metadata[sc.ChunkID]
		if !ok {
			continue
		}

		score := sc.Score
		if _, matched := lexicalSet[meta.ProjectID]; matched {
			score += boost
		}

		results = append(results, types.RetrievalResult{
			ChunkID:   sc.ChunkID,
			ProjectID: meta.ProjectID,
			SectionID: meta.SectionID,
			Content:   meta.Content,
			Title:     meta.Title,
			Year:      meta.Year,
			Score:     score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}
