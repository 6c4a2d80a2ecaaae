// Package types provides shared type definitions for the capstone search service.
//
// This package defines domain types used across multiple components, including
// projects (capstone documents), chunks, and the transient values produced
// while answering a query.
//
// # Core Types
//
// Project is an ingested capstone document. Chunk is the smallest retrievable
// unit of its text and owns the foreign key to the project:
//
//	chunk := &types.Chunk{
//	    ProjectID: 7,
//	    SectionID: &sectionID,
//	    Content:   "The proposed system uses a hybrid ranking ...",
//	}
//
// # Retrieval Values
//
// LexicalHit, ScoredChunk and RetrievalResult exist only for the duration of a
// single retrieval call:
//
//	result := types.RetrievalResult{
//	    ChunkID:   123,
//	    ProjectID: 7,
//	    Title:     "Smart Irrigation Scheduler",
//	    Score:     0.87,
//	}
//
// Scores are dot products of unit-normalized embeddings plus a small lexical
// boost, so they are not clamped to [0, 1].
//
// # Validation
//
// Types that are persisted implement validation methods:
//
//	if err := chunk.Validate(); err != nil {
//	    return err
//	}
package types
