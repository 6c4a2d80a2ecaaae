package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/dshills/capstone-search/pkg/types"
)

// searchProjects runs an FTS5 bm25 query over project titles and abstracts.
// The query is passed to MATCH as-is; callers quote it beforehand.
// Blank queries (including a quoted blank phrase) match nothing.
func searchProjects(ctx context.Context, q querier, query string, limit int) ([]types.LexicalHit, error) {
	if strings.Trim(query, "\" \t\r\n") == "" || limit <= 0 {
		return []types.LexicalHit{}, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT rowid, bm25(projects_fts) AS score
		FROM projects_fts
		WHERE projects_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute text search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]types.LexicalHit, 0, limit)
	for rows.Next() {
		var hit types.LexicalHit
		if err := rows.Scan(&hit.ProjectID, &hit.Score); err != nil {
			return nil, fmt.Errorf("failed to scan text result: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

// allChunkVectors loads every stored embedding, ordered by chunk id
func allChunkVectors(ctx context.Context, q querier) ([]types.ChunkVector, error) {
	rows, err := q.QueryContext(ctx, `SELECT chunk_id, vector FROM embeddings ORDER BY chunk_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	vectors := make([]types.ChunkVector, 0)
	for rows.Next() {
		var chunkID int64
		var blob []byte
		if err := rows.Scan(&chunkID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		vector, err := deserializeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunkID, err)
		}
		vectors = append(vectors, types.ChunkVector{ChunkID: chunkID, Vector: vector})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// resolveChunkMetadata joins chunks to their projects, one query per id batch.
// Chunks whose project row is gone are absent from the result.
func resolveChunkMetadata(ctx context.Context, q querier, chunkIDs []int64) (map[int64]types.ChunkMetadata, error) {
	metadata := make(map[int64]types.ChunkMetadata, len(chunkIDs))
	for _, batch := range idBatches(chunkIDs) {
		if err := resolveChunkMetadataBatch(ctx, q, batch, metadata); err != nil {
			return nil, err
		}
	}
	return metadata, nil
}

func resolveChunkMetadataBatch(ctx context.Context, q querier, chunkIDs []int64, metadata map[int64]types.ChunkMetadata) error {
	placeholders, args := inClause(chunkIDs)
	rows, err := q.QueryContext(ctx, `
		SELECT c.id, c.content, c.project_id, c.section_id, p.title, p.year
		FROM chunks c
		JOIN projects p ON p.id = c.project_id
		WHERE c.id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to resolve chunk metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var meta types.ChunkMetadata
		var sectionID, year sql.NullInt64
		if err := rows.Scan(&meta.ChunkID, &meta.Content, &meta.ProjectID, &sectionID, &meta.Title, &year); err != nil {
			return fmt.Errorf("failed to scan chunk metadata: %w", err)
		}
		meta.SectionID = int64Ptr(sectionID)
		meta.Year = intPtr(year)
		metadata[meta.ChunkID] = meta
	}
	return rows.Err()
}

// serializeVector converts a float32 slice to a little-endian byte blob
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrCorruptVector, len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector, nil
}

// Exported versions for use by other packages

// SerializeVector converts a float32 slice to a byte blob for storage
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector converts a byte blob back to a float32 slice
func DeserializeVector(blob []byte) ([]float32, error) {
	return deserializeVector(blob)
}
