// Package storage provides SQLite-based persistence for capstone documents.
//
// The storage layer manages:
//   - Project (document) metadata, authors, keywords and sections
//   - Text chunks owned by projects
//   - Vector embeddings for chunks
//   - The FTS5 lexical index over project titles and abstracts
//
// It is the concrete Vector Store Accessor and Lexical Search Accessor
// consumed by the retrieval engine.
//
// # Database Schema
//
// Tables:
//   - projects: Document metadata (title, year, course, doc type)
//   - authors, project_keywords, sections: Per-project child rows
//   - chunks: Retrievable text units (project_id, nullable section_id)
//   - embeddings: Little-endian float32 vectors, one per chunk
//   - projects_fts: FTS5 external-content index kept in sync by triggers
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("~/.capstone/capstone.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	hits, err := store.SearchProjects(ctx, `"irrigation"`, 10)
//	vectors, err := store.AllChunkVectors(ctx)
//	meta, err := store.ResolveChunkMetadata(ctx, []int64{4, 9, 12})
//
// # Transactions
//
// Ingestion writes a document inside a single transaction:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	_ = tx.UpsertProject(ctx, &project)
//	_ = tx.InsertChunk(ctx, &chunk)
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// # Lexical Queries
//
// SearchProjects passes its query to FTS5 MATCH verbatim. Callers are
// expected to quote user input first (see retrieval.QuoteLexicalQuery);
// an unquoted query containing FTS5 syntax characters may fail to parse.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go). Building with
// -tags "cgo_sqlite,fts5" switches to github.com/mattn/go-sqlite3.
package storage
