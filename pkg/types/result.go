package types

// LexicalHit is a document matched by the keyword index
type LexicalHit struct {
	ProjectID int64
	Score     float64 // Engine-specific; BM25 is lower-is-better
}

// ScoredChunk is a chunk with its fused similarity score
type ScoredChunk struct {
	ChunkID int64
	Score   float64
}

// RetrievalResult represents a single ranked chunk returned by hybrid retrieval
type RetrievalResult struct {
	// Identification
	ChunkID   int64
	ProjectID int64
	SectionID *int64

	// Metadata
	Content string
	Title   string
	Year    *int

	// Scoring
	Score float64 // Dot product similarity plus lexical boost
}

// SearchCard is a document-level result built from one or more chunk hits
type SearchCard struct {
	ProjectID  int64    `json:"project_id"`
	Title      string   `json:"title"`
	Year       *int     `json:"year"`
	Similarity float64  `json:"similarity"`
	Snippets   []string `json:"snippets"`
	Authors    []string `json:"authors"`
	Category   string   `json:"category,omitempty"`
}

// Validate checks if the retrieval result is valid
func (r *RetrievalResult) Validate() error {
	if r.ChunkID == 0 {
		return ErrInvalidChunkID
	}

	if r.ProjectID == 0 {
		return ErrInvalidProjectID
	}

	if r.Content == "" {
		return ErrEmptyContent
	}

	return nil
}
