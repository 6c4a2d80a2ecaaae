package storage

import (
	"context"
	"time"

	"github.com/dshills/capstone-search/pkg/types"
)

// Storage defines the interface for persisting and querying capstone documents
type Storage interface {
	// Project operations
	UpsertProject(ctx context.Context, project *types.Project) error
	GetProject(ctx context.Context, projectID int64) (*types.ProjectDetail, error)
	ListProjects(ctx context.Context, limit, offset int) ([]*types.Project, error)
	DeleteProject(ctx context.Context, projectID int64) error

	// Child row operations
	ReplaceAuthors(ctx context.Context, projectID int64, authors []string) error
	ReplaceKeywords(ctx context.Context, projectID int64, keywords []string) error
	DeleteProjectContent(ctx context.Context, projectID int64) error
	InsertSection(ctx context.Context, section *types.Section) error

	// Chunk operations
	InsertChunk(ctx context.Context, chunk *types.Chunk) error
	GetChunk(ctx context.Context, chunkID int64) (*types.Chunk, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error)

	// Retrieval accessors
	SearchProjects(ctx context.Context, query string, limit int) ([]types.LexicalHit, error)
	AllChunkVectors(ctx context.Context) ([]types.ChunkVector, error)
	ResolveChunkMetadata(ctx context.Context, chunkIDs []int64) (map[int64]types.ChunkMetadata, error)

	// Result card lookups
	AuthorsByProject(ctx context.Context, projectIDs []int64) (map[int64][]string, error)
	CategoriesByProject(ctx context.Context, projectIDs []int64) (map[int64]string, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Embedding represents a vector embedding for a chunk
type Embedding struct {
	ID        int64
	ChunkID   int64
	Vector    []byte // Serialized float32 array
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// Status contains statistics about the indexed corpus
type Status struct {
	ProjectsCount   int
	ChunksCount     int
	EmbeddingsCount int
	IndexSizeMB     float64
	SchemaVersion   string
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexBuilt       bool
}
