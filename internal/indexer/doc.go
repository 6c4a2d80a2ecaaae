// Package indexer ingests extracted capstone documents into storage.
//
// Documents arrive as JSON files, one per capstone:
//
//	{
//	  "title": "Autonomous Campus Shuttle",
//	  "year": 2023,
//	  "abstract": "...",
//	  "sha256": "9f86d0...",
//	  "authors": ["A. Rivera", "J. Chen"],
//	  "keywords": ["robotics"],
//	  "sections": [{"heading": "Methodology", "content": "...", "order": 1}]
//	}
//
// # Basic Usage
//
//	idx := indexer.New(store, emb, indexer.WithLogger(logger))
//	stats, err := idx.IngestPath(ctx, "/data/capstones", nil)
//	fmt.Printf("ingested %d documents in %v\n", stats.DocumentsIngested, stats.Duration)
//
// # Pipeline
//
//  1. Discovery: a single file, or every *.json file below a directory
//  2. Chunk: the abstract and each section are split into word windows
//  3. Embed: chunk texts are sent to the embedder in bounded batches
//  4. Store: project, authors, keywords, sections, chunks and embeddings are
//     written in one transaction
//
// Re-ingesting a document with the same sha256 replaces its previous content.
// Documents are processed concurrently, bounded by Config.Workers. A failing
// document is recorded in Statistics.ErrorMessages and does not stop the run.
//
// IngestLock rejects overlapping runs with ErrIngestInProgress.
package indexer
