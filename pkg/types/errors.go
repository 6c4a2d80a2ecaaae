package types

import "errors"

// Domain errors for type validation
var (
	// Retrieval result errors
	ErrInvalidChunkID   = errors.New("invalid chunk ID")
	ErrInvalidProjectID = errors.New("invalid project ID")
	ErrEmptyContent     = errors.New("content cannot be empty")
)
