package retrieval

import "errors"

var (
	// ErrUpstreamUnavailable wraps failures of the lexical index or the vector store
	ErrUpstreamUnavailable = errors.New("retrieval upstream unavailable")
	// ErrEmbeddingFailure wraps failures of the embedding function
	ErrEmbeddingFailure = errors.New("query embedding failed")
	// ErrDimensionMismatch means a stored vector disagrees with the query vector's length
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNonFiniteScore means a similarity came out NaN or infinite, so a vector is corrupt
	ErrNonFiniteScore = errors.New("non-finite similarity score")
	// ErrNilDependency is returned by New when a required collaborator is missing
	ErrNilDependency = errors.New("retrieval dependency is nil")
)
