// Package retrieval ranks stored chunks against a free-text query by fusing
// two signals: dense embedding similarity and lexical (full-text) document
// matches.
//
// # Algorithm
//
// Retrieve runs the lexical query and the corpus vector fetch concurrently,
// embeds the raw query once, scores every chunk by dot product and keeps the
// top k. Metadata is resolved for those k chunks only, in one batched lookup.
// Chunks whose document also matched lexically get a small additive boost
// (0.05 by default), then the set is re-sorted and truncated to k again.
//
// The boost only breaks near-ties. It never lets a weak keyword match overturn
// a strong semantic one.
//
// # Usage
//
//	engine, err := retrieval.New(store, store, embedder.Func(emb),
//	    retrieval.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	results, err := engine.Retrieve(ctx, "drone mapping", 12, retrieval.DefaultFetchLimit)
//
// # Failure modes
//
// An empty corpus or an empty lexical match set is not an error. A failing
// collaborator aborts the call: store failures wrap ErrUpstreamUnavailable,
// embedding failures wrap ErrEmbeddingFailure, and a stored vector whose
// length differs from the query vector yields ErrDimensionMismatch. With
// WithDegradeOnLexicalFailure the lexical signal may instead be dropped and
// the call ranks on similarity alone.
//
// # Scaling
//
// Scoring is a linear scan over every stored vector. WithNearestNeighbors
// swaps the scan for an indexed search without touching the fusion step.
package retrieval
