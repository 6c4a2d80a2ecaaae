package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/capstone-search/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrCorruptVector is returned when a stored vector blob cannot be decoded
	ErrCorruptVector = errors.New("corrupt vector blob")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Project operations

// upsertProjectWithQuerier inserts a project or updates the one sharing its sha256
func (s *SQLiteStorage) upsertProjectWithQuerier(ctx context.Context, q querier, project *types.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO projects (title, year, abstract, filename, sha256, course, host, doc_type, external_links, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sha256) DO UPDATE SET
			title = excluded.title,
			year = excluded.year,
			abstract = excluded.abstract,
			filename = excluded.filename,
			course = excluded.course,
			host = excluded.host,
			doc_type = excluded.doc_type,
			external_links = excluded.external_links,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		project.Title, nullableInt(project.Year), project.Abstract, project.Filename,
		project.SHA256, project.Course, project.Host, project.DocType,
		project.ExternalLinks, now, now).Scan(&project.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertProject(ctx context.Context, project *types.Project) error {
	return s.upsertProjectWithQuerier(ctx, s.querier(), project)
}

const projectColumns = `id, title, year, abstract, filename, sha256, course, host, doc_type, external_links`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (*types.Project, error) {
	var project types.Project
	var year sql.NullInt64
	err := row.Scan(
		&project.ID, &project.Title, &year, &project.Abstract, &project.Filename,
		&project.SHA256, &project.Course, &project.Host, &project.DocType,
		&project.ExternalLinks,
	)
	if err != nil {
		return nil, err
	}
	project.Year = intPtr(year)
	return &project, nil
}

// getProjectWithQuerier loads a project with its authors, keywords and sections
func (s *SQLiteStorage) getProjectWithQuerier(ctx context.Context, q querier, projectID int64) (*types.ProjectDetail, error) {
	row := q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, projectID)
	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	detail := &types.ProjectDetail{Project: *project}

	authors, err := s.authorsByProjectWithQuerier(ctx, q, []int64{projectID})
	if err != nil {
		return nil, err
	}
	detail.Authors = authors[projectID]
	if detail.Authors == nil {
		detail.Authors = []string{}
	}

	detail.Keywords, err = queryStrings(ctx, q, `SELECT keyword FROM project_keywords WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, project_id, heading, content, order_no
		FROM sections
		WHERE project_id = ?
		ORDER BY order_no, id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	detail.Sections = make([]types.Section, 0)
	for rows.Next() {
		var section types.Section
		if err := rows.Scan(&section.ID, &section.ProjectID, &section.Heading, &section.Content, &section.Order); err != nil {
			return nil, err
		}
		detail.Sections = append(detail.Sections, section)
	}
	return detail, rows.Err()
}

func (s *SQLiteStorage) GetProject(ctx context.Context, projectID int64) (*types.ProjectDetail, error) {
	return s.getProjectWithQuerier(ctx, s.querier(), projectID)
}

// listProjectsWithQuerier pages through projects, newest first
func (s *SQLiteStorage) listProjectsWithQuerier(ctx context.Context, q querier, limit, offset int) ([]*types.Project, error) {
	if limit <= 0 {
		return []*types.Project{}, nil
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		ORDER BY year IS NULL, year DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	projects := make([]*types.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (s *SQLiteStorage) ListProjects(ctx context.Context, limit, offset int) ([]*types.Project, error) {
	return s.listProjectsWithQuerier(ctx, s.querier(), limit, offset)
}

// deleteProjectWithQuerier removes a project; child rows cascade
func (s *SQLiteStorage) deleteProjectWithQuerier(ctx context.Context, q querier, projectID int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteProject(ctx context.Context, projectID int64) error {
	return s.deleteProjectWithQuerier(ctx, s.querier(), projectID)
}

// Child row operations

// replaceAuthorsWithQuerier swaps all author rows of a project
func (s *SQLiteStorage) replaceAuthorsWithQuerier(ctx context.Context, q querier, projectID int64, authors []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM authors WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to clear authors: %w", err)
	}
	for _, name := range authors {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := q.ExecContext(ctx, `INSERT INTO authors (project_id, full_name) VALUES (?, ?)`, projectID, name); err != nil {
			return fmt.Errorf("failed to insert author: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) ReplaceAuthors(ctx context.Context, projectID int64, authors []string) error {
	return s.replaceAuthorsWithQuerier(ctx, s.querier(), projectID, authors)
}

// replaceKeywordsWithQuerier swaps all keyword rows of a project
func (s *SQLiteStorage) replaceKeywordsWithQuerier(ctx context.Context, q querier, projectID int64, keywords []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM project_keywords WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to clear keywords: %w", err)
	}
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		if _, err := q.ExecContext(ctx, `INSERT INTO project_keywords (project_id, keyword) VALUES (?, ?)`, projectID, keyword); err != nil {
			return fmt.Errorf("failed to insert keyword: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) ReplaceKeywords(ctx context.Context, projectID int64, keywords []string) error {
	return s.replaceKeywordsWithQuerier(ctx, s.querier(), projectID, keywords)
}

// deleteProjectContentWithQuerier removes sections and chunks (embeddings cascade)
func (s *SQLiteStorage) deleteProjectContentWithQuerier(ctx context.Context, q querier, projectID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM sections WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to delete sections: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteProjectContent(ctx context.Context, projectID int64) error {
	return s.deleteProjectContentWithQuerier(ctx, s.querier(), projectID)
}

// insertSectionWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertSectionWithQuerier(ctx context.Context, q querier, section *types.Section) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO sections (project_id, heading, content, order_no)
		VALUES (?, ?, ?, ?)
	`, section.ProjectID, section.Heading, section.Content, section.Order)
	if err != nil {
		return fmt.Errorf("failed to insert section: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	section.ID = id
	return nil
}

func (s *SQLiteStorage) InsertSection(ctx context.Context, section *types.Section) error {
	return s.insertSectionWithQuerier(ctx, s.querier(), section)
}

// Chunk operations

// insertChunkWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertChunkWithQuerier(ctx context.Context, q querier, chunk *types.Chunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO chunks (project_id, section_id, content, content_hash, token_count, chunk_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, chunk.ProjectID, nullableInt64(chunk.SectionID), chunk.Content, chunk.ContentHash[:],
		chunk.TokenCount, chunk.Index, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	chunk.ID = id
	return nil
}

func (s *SQLiteStorage) InsertChunk(ctx context.Context, chunk *types.Chunk) error {
	return s.insertChunkWithQuerier(ctx, s.querier(), chunk)
}

// getChunkWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getChunkWithQuerier(ctx context.Context, q querier, chunkID int64) (*types.Chunk, error) {
	var chunk types.Chunk
	var sectionID sql.NullInt64
	var hash []byte
	err := q.QueryRowContext(ctx, `
		SELECT id, project_id, section_id, content, content_hash, token_count, chunk_index
		FROM chunks
		WHERE id = ?
	`, chunkID).Scan(
		&chunk.ID, &chunk.ProjectID, &sectionID, &chunk.Content, &hash,
		&chunk.TokenCount, &chunk.Index,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	copy(chunk.ContentHash[:], hash)
	chunk.SectionID = int64Ptr(sectionID)
	return &chunk, nil
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID int64) (*types.Chunk, error) {
	return s.getChunkWithQuerier(ctx, s.querier(), chunkID)
}

// Embedding operations

// upsertEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	if len(embedding.Vector) != embedding.Dimension*4 {
		return fmt.Errorf("%w: %d bytes for dimension %d", ErrCorruptVector, len(embedding.Vector), embedding.Dimension)
	}

	query := `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		embedding.ChunkID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}

	if embedding.ID == 0 {
		id, err := result.LastInsertId()
		if err == nil {
			embedding.ID = id
		}
	}

	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

// getEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, chunkID int64) (*Embedding, error) {
	var embedding Embedding
	err := q.QueryRowContext(ctx, `
		SELECT id, chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE chunk_id = ?
	`, chunkID).Scan(
		&embedding.ID, &embedding.ChunkID, &embedding.Vector,
		&embedding.Dimension, &embedding.Provider, &embedding.Model,
		&embedding.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &embedding, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), chunkID)
}

// Retrieval accessors

func (s *SQLiteStorage) SearchProjects(ctx context.Context, query string, limit int) ([]types.LexicalHit, error) {
	// Implementation moved to separate file for clarity
	return searchProjects(ctx, s.querier(), query, limit)
}

func (s *SQLiteStorage) AllChunkVectors(ctx context.Context) ([]types.ChunkVector, error) {
	return allChunkVectors(ctx, s.querier())
}

func (s *SQLiteStorage) ResolveChunkMetadata(ctx context.Context, chunkIDs []int64) (map[int64]types.ChunkMetadata, error) {
	return resolveChunkMetadata(ctx, s.querier(), chunkIDs)
}

// Result card lookups

// authorsByProjectWithQuerier fetches author names for a set of projects, one query per id batch
func (s *SQLiteStorage) authorsByProjectWithQuerier(ctx context.Context, q querier, projectIDs []int64) (map[int64][]string, error) {
	authors := make(map[int64][]string, len(projectIDs))
	for _, batch := range idBatches(projectIDs) {
		placeholders, args := inClause(batch)
		err := queryEach(ctx, q, `
			SELECT project_id, full_name
			FROM authors
			WHERE project_id IN (`+placeholders+`)
			ORDER BY project_id, id
		`, args, func(rows *sql.Rows) error {
			var projectID int64
			var name string
			if err := rows.Scan(&projectID, &name); err != nil {
				return err
			}
			authors[projectID] = append(authors[projectID], name)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query authors: %w", err)
		}
	}
	return authors, nil
}

func (s *SQLiteStorage) AuthorsByProject(ctx context.Context, projectIDs []int64) (map[int64][]string, error) {
	return s.authorsByProjectWithQuerier(ctx, s.querier(), projectIDs)
}

// categoriesByProjectWithQuerier returns doc_type, falling back to course, per project
func (s *SQLiteStorage) categoriesByProjectWithQuerier(ctx context.Context, q querier, projectIDs []int64) (map[int64]string, error) {
	categories := make(map[int64]string, len(projectIDs))
	for _, batch := range idBatches(projectIDs) {
		placeholders, args := inClause(batch)
		err := queryEach(ctx, q, `
			SELECT id, doc_type, course
			FROM projects
			WHERE id IN (`+placeholders+`)
		`, args, func(rows *sql.Rows) error {
			var project types.Project
			if err := rows.Scan(&project.ID, &project.DocType, &project.Course); err != nil {
				return err
			}
			if category := project.Category(); category != "" {
				categories[project.ID] = category
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query categories: %w", err)
		}
	}
	return categories, nil
}

func (s *SQLiteStorage) CategoriesByProject(ctx context.Context, projectIDs []int64) (map[int64]string, error) {
	return s.categoriesByProjectWithQuerier(ctx, s.querier(), projectIDs)
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM projects", &status.ProjectsCount},
		{"SELECT COUNT(*) FROM chunks", &status.ChunksCount},
		{"SELECT COUNT(*) FROM embeddings", &status.EmbeddingsCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	version, err := currentSchemaVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version.String()

	// Calculate database size
	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var ftsName string
	ftsErr := s.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='projects_fts'").Scan(&ftsName)

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
		FTSIndexBuilt:       ftsErr == nil,
	}

	return status, nil
}

// Helper functions

// maxInClauseIDs keeps each IN list far below SQLite's bound-variable limit
const maxInClauseIDs = 500

// idBatches splits ids into consecutive slices of at most maxInClauseIDs
func idBatches(ids []int64) [][]int64 {
	batches := make([][]int64, 0, (len(ids)+maxInClauseIDs-1)/maxInClauseIDs)
	for start := 0; start < len(ids); start += maxInClauseIDs {
		batches = append(batches, ids[start:min(start+maxInClauseIDs, len(ids))])
	}
	return batches
}

// queryEach runs query and calls scan once per row
func queryEach(ctx context.Context, q querier, query string, args []interface{}, scan func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// inClause builds "?,?,?" placeholders and the matching argument list
func inClause(ids []int64) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

// queryStrings collects a single string column
func queryStrings(ctx context.Context, q querier, query string, args ...interface{}) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	i := v.Int64
	return &i
}

// Transaction implementations - writes go through the transaction querier

func (t *sqliteTx) UpsertProject(ctx context.Context, project *types.Project) error {
	return t.storage.upsertProjectWithQuerier(ctx, t.querier(), project)
}

func (t *sqliteTx) GetProject(ctx context.Context, projectID int64) (*types.ProjectDetail, error) {
	return t.storage.getProjectWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) ListProjects(ctx context.Context, limit, offset int) ([]*types.Project, error) {
	return t.storage.listProjectsWithQuerier(ctx, t.querier(), limit, offset)
}

func (t *sqliteTx) DeleteProject(ctx context.Context, projectID int64) error {
	return t.storage.deleteProjectWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) ReplaceAuthors(ctx context.Context, projectID int64, authors []string) error {
	return t.storage.replaceAuthorsWithQuerier(ctx, t.querier(), projectID, authors)
}

func (t *sqliteTx) ReplaceKeywords(ctx context.Context, projectID int64, keywords []string) error {
	return t.storage.replaceKeywordsWithQuerier(ctx, t.querier(), projectID, keywords)
}

func (t *sqliteTx) DeleteProjectContent(ctx context.Context, projectID int64) error {
	return t.storage.deleteProjectContentWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) InsertSection(ctx context.Context, section *types.Section) error {
	return t.storage.insertSectionWithQuerier(ctx, t.querier(), section)
}

func (t *sqliteTx) InsertChunk(ctx context.Context, chunk *types.Chunk) error {
	return t.storage.insertChunkWithQuerier(ctx, t.querier(), chunk)
}

func (t *sqliteTx) GetChunk(ctx context.Context, chunkID int64) (*types.Chunk, error) {
	return t.storage.getChunkWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) SearchProjects(ctx context.Context, query string, limit int) ([]types.LexicalHit, error) {
	return searchProjects(ctx, t.querier(), query, limit)
}

func (t *sqliteTx) AllChunkVectors(ctx context.Context) ([]types.ChunkVector, error) {
	return allChunkVectors(ctx, t.querier())
}

func (t *sqliteTx) ResolveChunkMetadata(ctx context.Context, chunkIDs []int64) (map[int64]types.ChunkMetadata, error) {
	return resolveChunkMetadata(ctx, t.querier(), chunkIDs)
}

func (t *sqliteTx) AuthorsByProject(ctx context.Context, projectIDs []int64) (map[int64][]string, error) {
	return t.storage.authorsByProjectWithQuerier(ctx, t.querier(), projectIDs)
}

func (t *sqliteTx) CategoriesByProject(ctx context.Context, projectIDs []int64) (map[int64]string, error) {
	return t.storage.categoriesByProjectWithQuerier(ctx, t.querier(), projectIDs)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	// Status reads go through the pool; with a single connection this would
	// deadlock against the open transaction
	return nil, errors.New("status is not available inside a transaction")
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
