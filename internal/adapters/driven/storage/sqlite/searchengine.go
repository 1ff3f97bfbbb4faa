package sqlite

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
)

// Ensure SearchEngine implements the interface.
var _ driven.SearchEngine = (*SearchEngine)(nil)

// wordPattern extracts query terms. Everything else, including FTS5
// operators, is dropped.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// SearchEngine is an FTS5 keyword index over chunk content, ranked by BM25.
type SearchEngine struct {
	store *Store
}

// Index adds or updates a chunk in the search index.
func (e *SearchEngine) Index(ctx context.Context, chunk domain.Chunk) error {
	tx, err := e.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE chunk_id = ?", chunk.ID); err != nil {
		return fmt.Errorf("clearing indexed chunk: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO chunks_fts (chunk_id, document_id, content) VALUES (?, ?, ?)",
		chunk.ID, chunk.DocumentID, chunk.Content); err != nil {
		return fmt.Errorf("indexing chunk: %w", err)
	}
	return tx.Commit()
}

// DeleteDocument removes every chunk of a document from the index.
func (e *SearchEngine) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := e.store.db.ExecContext(ctx, "DELETE FROM chunks_fts WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting indexed document: %w", err)
	}
	return nil
}

// Search matches any query term. Scores are negated BM25 so higher is better.
func (e *SearchEngine) Search(ctx context.Context, query string, limit int) ([]driven.SearchHit, error) {
	match := matchExpression(query)
	if match == "" || limit <= 0 {
		return []driven.SearchHit{}, nil
	}

	rows, err := e.store.db.QueryContext(ctx, `
		SELECT chunk_id, -bm25(chunks_fts) AS score
		FROM chunks_fts WHERE chunks_fts MATCH ?
		ORDER BY score DESC, chunk_id
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	hits := make([]driven.SearchHit, 0)
	for rows.Next() {
		var h driven.SearchHit
		if err := rows.Scan(&h.ChunkID, &h.Score); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hits: %w", err)
	}
	return hits, nil
}

// Close is a no-op; the Store owns the connection.
func (e *SearchEngine) Close() error {
	return nil
}

// matchExpression quotes each distinct term and ORs them together.
func matchExpression(query string) string {
	words := wordPattern.FindAllString(strings.ToLower(query), -1)
	seen := make(map[string]bool, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}
