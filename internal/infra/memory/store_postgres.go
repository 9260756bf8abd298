package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"genui/internal/domain"
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS genui_memory (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    document TEXT NOT NULL,
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
    embedding vector,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (collection, id)
);

CREATE TABLE IF NOT EXISTS genui_memory_collections (
    name TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS genui_memory_collection_created_idx ON genui_memory (collection, created_at);
`

// PostgresStore keeps every collection in one pgvector-backed table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and creates the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &PostgresStore{db: db}
	if err := store.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (ps *PostgresStore) createSchema(ctx context.Context) error {
	if _, err := ps.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create memory schema: %w", err)
	}
	return nil
}

func (ps *PostgresStore) EnsureCollection(ctx context.Context, name string) error {
	_, err := ps.db.Exec(ctx, `INSERT INTO genui_memory_collections (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	return err
}

func (ps *PostgresStore) Upsert(ctx context.Context, collection string, doc domain.MemoryDocument) error {
	metadataJSON, err := json.Marshal(nonNilMetadata(doc.Metadata))
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = ps.db.Exec(ctx, `
        INSERT INTO genui_memory (collection, id, document, metadata, embedding, created_at)
        VALUES ($1, $2, $3, $4::jsonb, $5::vector, $6)
        ON CONFLICT (collection, id) DO UPDATE
        SET document = EXCLUDED.document,
            metadata = EXCLUDED.metadata,
            embedding = EXCLUDED.embedding,
            created_at = EXCLUDED.created_at
        `, collection, doc.ID, doc.Document, string(metadataJSON), vectorLiteral(doc.Embedding), doc.CreatedAt)
	return err
}

// Query ranks with the pgvector cosine operator when an embedding is given
// and falls back to in-process lexical ranking when that finds nothing.
func (ps *PostgresStore) Query(ctx context.Context, collection string, query Query) ([]domain.MemoryMatch, error) {
	if len(query.Embedding) == 0 {
		docs, err := ps.List(ctx, collection, query.Where)
		if err != nil {
			return nil, err
		}
		return rankDocuments(docs, query), nil
	}

	limit := query.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchResults
	}
	whereJSON, err := json.Marshal(nonNilMetadata(query.Where))
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	rows, err := ps.db.Query(ctx, `
        SELECT document, metadata::text, (embedding <=> $2::vector) AS distance
        FROM genui_memory
        WHERE collection = $1 AND embedding IS NOT NULL AND metadata @> $3::jsonb
        ORDER BY embedding <=> $2::vector
        LIMIT $4
        `, collection, vectorLiteral(query.Embedding), string(whereJSON), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []domain.MemoryMatch
	for rows.Next() {
		var document, metadataText string
		var distance float64
		if err := rows.Scan(&document, &metadataText, &distance); err != nil {
			return nil, err
		}
		d := distance
		matches = append(matches, domain.MemoryMatch{Document: document, Metadata: decodeMetadata(metadataText), Distance: &d})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return matches, nil
	}

	// Documents stored without an embedding are only reachable lexically.
	docs, err := ps.List(ctx, collection, query.Where)
	if err != nil {
		return nil, err
	}
	return rankDocuments(docs, query), nil
}

func (ps *PostgresStore) List(ctx context.Context, collection string, where map[string]any) ([]domain.MemoryDocument, error) {
	whereJSON, err := json.Marshal(nonNilMetadata(where))
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	rows, err := ps.db.Query(ctx, `
        SELECT id, document, metadata::text, COALESCE(embedding::text, ''), created_at
        FROM genui_memory
        WHERE collection = $1 AND metadata @> $2::jsonb
        ORDER BY created_at ASC
        `, collection, string(whereJSON))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.MemoryDocument
	for rows.Next() {
		var doc domain.MemoryDocument
		var metadataText, embeddingText string
		var createdAt time.Time
		if err := rows.Scan(&doc.ID, &doc.Document, &metadataText, &embeddingText, &createdAt); err != nil {
			return nil, err
		}
		doc.Metadata = decodeMetadata(metadataText)
		doc.Embedding = parseVector(embeddingText)
		doc.CreatedAt = createdAt
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (ps *PostgresStore) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := ps.db.QueryRow(ctx, `SELECT COUNT(*) FROM genui_memory WHERE collection = $1`, collection).Scan(&count)
	return count, err
}

func (ps *PostgresStore) DropCollection(ctx context.Context, name string) error {
	tx, err := ps.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `DELETE FROM genui_memory WHERE collection = $1`, name); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM genui_memory_collections WHERE name = $1`, name); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (ps *PostgresStore) Close() error {
	ps.db.Close()
	return nil
}

// vectorLiteral renders a pgvector literal; nil stores SQL NULL.
func vectorLiteral(vec []float32) any {
	if len(vec) == 0 {
		return nil
	}
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func parseVector(text string) []float32 {
	text = strings.Trim(text, "[]")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			continue
		}
		vec = append(vec, float32(f))
	}
	return vec
}

func decodeMetadata(text string) map[string]any {
	meta := map[string]any{}
	if strings.TrimSpace(text) == "" {
		return meta
	}
	if err := json.Unmarshal([]byte(text), &meta); err != nil {
		return map[string]any{}
	}
	return meta
}

func nonNilMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
