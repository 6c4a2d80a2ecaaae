package types

import (
	"crypto/sha256"
	"errors"
)

// TokensPerChar is the heuristic divisor for estimating tokens (chars/4)
const TokensPerChar = 4

// Chunk represents an immutable unit of retrievable document text
type Chunk struct {
	// Identification
	ID        int64
	ProjectID int64
	SectionID *int64 // Nullable - abstract chunks have no section

	// Content
	Content     string
	ContentHash [32]byte // SHA-256 hash for deduplication
	TokenCount  int
	Index       int // Position of the chunk within its project
}

// ChunkVector pairs a chunk with its stored embedding
type ChunkVector struct {
	ChunkID int64
	Vector  []float32
}

// ChunkMetadata is the chunk -> project join used to assemble retrieval results
type ChunkMetadata struct {
	ChunkID   int64
	Content   string
	ProjectID int64
	SectionID *int64
	Title     string
	Year      *int
}

// ValidateContent checks if the chunk content is valid
func (c *Chunk) ValidateContent() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.Index < 0 {
		return errors.New("chunk index must not be negative")
	}
	return nil
}

// ComputeTokenCount estimates the number of tokens in the chunk
func (c *Chunk) ComputeTokenCount() int {
	c.TokenCount = len(c.Content) / TokensPerChar
	return c.TokenCount
}

// ComputeContentHash computes the SHA-256 hash of the chunk content
func (c *Chunk) ComputeContentHash() {
	c.ContentHash = sha256.Sum256([]byte(c.Content))
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if err := c.ValidateContent(); err != nil {
		return err
	}

	if c.ProjectID == 0 {
		return errors.New("project ID is required")
	}

	var zeroHash [32]byte
	if c.ContentHash == zeroHash {
		return errors.New("content hash must be computed")
	}

	return nil
}
