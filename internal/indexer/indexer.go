package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/capstone-search/internal/chunker"
	"github.com/dshills/capstone-search/internal/embedder"
	"github.com/dshills/capstone-search/internal/storage"
	"github.com/dshills/capstone-search/pkg/types"
)

// Ingestion outcomes reported to a Recorder
const (
	StatusIngested = "ingested"
	StatusFailed   = "failed"
)

// ErrInvalidDocument is returned for documents that cannot be stored
var ErrInvalidDocument = errors.New("invalid document")

// Recorder observes per-document ingestion outcomes
type Recorder interface {
	ObserveIngest(status string)
}

// Document is the JSON form of one extracted capstone document
type Document struct {
	Title         string            `json:"title"`
	Year          *int              `json:"year"`
	Abstract      string            `json:"abstract"`
	Filename      string            `json:"filename"`
	SHA256        string            `json:"sha256"`
	Course        string            `json:"course"`
	Host          string            `json:"host"`
	DocType       string            `json:"doc_type"`
	ExternalLinks string            `json:"external_links"`
	Authors       []string          `json:"authors"`
	Keywords      []string          `json:"keywords"`
	Sections      []DocumentSection `json:"sections"`
}

// DocumentSection is one heading/content block of a Document
type DocumentSection struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// Indexer coordinates the ingestion pipeline: chunk -> embed -> store
type Indexer struct {
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	storage  storage.Storage
	logger   *slog.Logger
	recorder Recorder

	// Worker pool configuration
	workers int
}

// Config contains configuration for the indexer
type Config struct {
	Workers int // Number of concurrent documents (default: runtime.NumCPU())
}

// Statistics contains statistics about an ingestion run
type Statistics struct {
	DocumentsIngested int
	DocumentsFailed   int
	SectionsCreated   int
	ChunksCreated     int
	EmbeddingsCreated int
	Duration          time.Duration
	ErrorMessages     []string
}

// Result describes one stored document
type Result struct {
	ProjectID  int64
	Sections   int
	Chunks     int
	Embeddings int
}

// Option configures an Indexer
type Option func(*Indexer)

// WithLogger sets the indexer logger
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Indexer) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// WithRecorder reports each document's outcome
func WithRecorder(r Recorder) Option {
	return func(idx *Indexer) {
		idx.recorder = r
	}
}

// WithChunker replaces the default 200/40 word chunker
func WithChunker(c *chunker.Chunker) Option {
	return func(idx *Indexer) {
		if c != nil {
			idx.chunker = c
		}
	}
}

// New creates a new Indexer instance
func New(store storage.Storage, emb embedder.Embedder, opts ...Option) *Indexer {
	idx := &Indexer{
		chunker:  chunker.New(),
		embedder: emb,
		storage:  store,
		logger:   slog.New(slog.DiscardHandler),
		workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// plannedChunk is a chunk whose section id is assigned once its section row exists
type plannedChunk struct {
	chunk   *types.Chunk
	section int // index into doc.Sections, -1 for the abstract
}

// IngestDocument stores one document, replacing any earlier version with the
// same sha256. Chunks are embedded before the transaction opens; all rows are
// written in a single transaction.
func (idx *Indexer) IngestDocument(ctx context.Context, doc *Document) (*Result, error) {
	project := doc.project()
	if err := project.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	sections := doc.sortedSections()
	planned := idx.planChunks(doc.Abstract, sections)

	vectors, err := idx.embedChunks(ctx, planned)
	if err != nil {
		return nil, err
	}

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.UpsertProject(ctx, project); err != nil {
		return nil, err
	}
	if err := tx.ReplaceAuthors(ctx, project.ID, doc.Authors); err != nil {
		return nil, err
	}
	if err := tx.ReplaceKeywords(ctx, project.ID, doc.Keywords); err != nil {
		return nil, err
	}
	if err := tx.DeleteProjectContent(ctx, project.ID); err != nil {
		return nil, err
	}

	sectionIDs := make([]int64, len(sections))
	for i, s := range sections {
		section := &types.Section{
			ProjectID: project.ID,
			Heading:   strings.TrimSpace(s.Heading),
			Content:   s.Content,
			Order:     s.Order,
		}
		if err := tx.InsertSection(ctx, section); err != nil {
			return nil, err
		}
		sectionIDs[i] = section.ID
	}

	for i, p := range planned {
		p.chunk.ProjectID = project.ID
		if p.section >= 0 {
			id := sectionIDs[p.section]
			p.chunk.SectionID = &id
		}
		if err := tx.InsertChunk(ctx, p.chunk); err != nil {
			return nil, fmt.Errorf("failed to store chunk: %w", err)
		}

		emb := &storage.Embedding{
			ChunkID:   p.chunk.ID,
			Vector:    storage.SerializeVector(vectors[i]),
			Dimension: len(vectors[i]),
			Provider:  idx.embedder.Provider(),
			Model:     idx.embedder.Model(),
		}
		if err := tx.UpsertEmbedding(ctx, emb); err != nil {
			return nil, fmt.Errorf("failed to store embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.logger.Debug("document ingested",
		"project_id", project.ID,
		"title", project.Title,
		"sections", len(sections),
		"chunks", len(planned),
	)
	return &Result{
		ProjectID:  project.ID,
		Sections:   len(sections),
		Chunks:     len(planned),
		Embeddings: len(planned),
	}, nil
}

// planChunks chunks the abstract then each section, numbering chunks across the document
func (idx *Indexer) planChunks(abstract string, sections []DocumentSection) []plannedChunk {
	var planned []plannedChunk
	for _, c := range idx.chunker.ChunkText(0, nil, abstract, 0) {
		planned = append(planned, plannedChunk{chunk: c, section: -1})
	}
	for i, s := range sections {
		for _, c := range idx.chunker.ChunkText(0, nil, s.Content, len(planned)) {
			planned = append(planned, plannedChunk{chunk: c, section: i})
		}
	}
	return planned
}

// embedChunks embeds chunk contents in batches no larger than the provider limit
func (idx *Indexer) embedChunks(ctx context.Context, planned []plannedChunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(planned))
	for start := 0; start < len(planned); start += embedder.MaxBatchSize {
		end := min(start+embedder.MaxBatchSize, len(planned))

		texts := make([]string, 0, end-start)
		for _, p := range planned[start:end] {
			texts = append(texts, p.chunk.Content)
		}

		resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("%w: got %d for %d texts", embedder.ErrCountMismatch, len(resp.Embeddings), len(texts))
		}
		for _, emb := range resp.Embeddings {
			vectors = append(vectors, emb.Vector)
		}
	}
	return vectors, nil
}

// IngestPath ingests a single JSON file or every *.json file under a directory
func (idx *Indexer) IngestPath(ctx context.Context, path string, config *Config) (*Statistics, error) {
	workers := idx.workers
	if config != nil && config.Workers > 0 {
		workers = config.Workers
	}

	startTime := time.Now()
	stats := &Statistics{
		ErrorMessages: make([]string, 0),
	}

	files, err := discoverFiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	var (
		ingested   int32
		failed     int32
		sections   int32
		chunks     int32
		embeddings int32
		mu         sync.Mutex // Protect stats.ErrorMessages
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result, err := idx.ingestFile(gctx, file)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				atomic.AddInt32(&failed, 1)
				idx.observe(StatusFailed)
				idx.logger.Warn("document ingestion failed", "file", file, "error", err)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", file, err))
				mu.Unlock()
				// Continue with other files
				return nil
			}

			atomic.AddInt32(&ingested, 1)
			atomic.AddInt32(&sections, int32(result.Sections))
			atomic.AddInt32(&chunks, int32(result.Chunks))
			atomic.AddInt32(&embeddings, int32(result.Embeddings))
			idx.observe(StatusIngested)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(stats.ErrorMessages)
	stats.DocumentsIngested = int(ingested)
	stats.DocumentsFailed = int(failed)
	stats.SectionsCreated = int(sections)
	stats.ChunksCreated = int(chunks)
	stats.EmbeddingsCreated = int(embeddings)
	stats.Duration = time.Since(startTime)

	idx.logger.Info("ingestion complete",
		"path", path,
		"ingested", stats.DocumentsIngested,
		"failed", stats.DocumentsFailed,
		"chunks", stats.ChunksCreated,
		"duration", stats.Duration,
	)
	return stats, nil
}

// ingestFile decodes and stores one JSON document. A missing sha256 falls
// back to the hash of the file itself.
func (idx *Indexer) ingestFile(ctx context.Context, filePath string) (*Result, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if doc.SHA256 == "" {
		sum := sha256.Sum256(data)
		doc.SHA256 = hex.EncodeToString(sum[:])
	}
	if doc.Filename == "" {
		doc.Filename = filepath.Base(filePath)
	}

	return idx.IngestDocument(ctx, &doc)
}

func (idx *Indexer) observe(status string) {
	if idx.recorder != nil {
		idx.recorder.ObserveIngest(status)
	}
}

// discoverFiles returns path itself for a file, or every *.json file below a directory
func discoverFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip hidden directories
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (d *Document) project() *types.Project {
	return &types.Project{
		Title:         strings.TrimSpace(d.Title),
		Year:          d.Year,
		Abstract:      d.Abstract,
		Filename:      d.Filename,
		SHA256:        strings.ToLower(strings.TrimSpace(d.SHA256)),
		Course:        d.Course,
		Host:          d.Host,
		DocType:       d.DocType,
		ExternalLinks: d.ExternalLinks,
	}
}

// sortedSections orders sections by their declared order, keeping input order for ties
func (d *Document) sortedSections() []DocumentSection {
	sections := make([]DocumentSection, len(d.Sections))
	copy(sections, d.Sections)
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Order < sections[j].Order
	})
	return sections
}
