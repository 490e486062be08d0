package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// schemaStatements create the pgvector extension and the collection and
// embedding tables. The layout matches the langchain PGVector tables so a
// collection written by either tool can be queried by the other.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS langchain_pg_collection (
		uuid      UUID PRIMARY KEY,
		name      VARCHAR NOT NULL UNIQUE,
		cmetadata JSON
	)`,
	`CREATE TABLE IF NOT EXISTS langchain_pg_embedding (
		id            VARCHAR PRIMARY KEY,
		collection_id UUID REFERENCES langchain_pg_collection (uuid) ON DELETE CASCADE,
		embedding     VECTOR,
		document      VARCHAR,
		cmetadata     JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS ix_langchain_pg_embedding_collection_id
		ON langchain_pg_embedding (collection_id)`,
}

// undefinedTable is the Postgres SQLSTATE for a missing relation.
const undefinedTable = "42P01"

const (
	schemaReadySQL = `
		SELECT to_regtype('vector') IS NOT NULL
		   AND to_regclass('langchain_pg_embedding') IS NOT NULL
		   AND to_regclass('langchain_pg_collection') IS NOT NULL`

	upsertCollectionSQL = `
		INSERT INTO langchain_pg_collection (uuid, name, cmetadata)
		VALUES ($1::text::uuid, $2, '{}'::json)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING uuid::text`

	insertEmbeddingSQL = `
		INSERT INTO langchain_pg_embedding (id, collection_id, embedding, document, cmetadata)
		VALUES ($1, $2::text::uuid, $3, $4, $5)`

	searchSQL = `
		SELECT e.id, COALESCE(e.document, ''), COALESCE(e.cmetadata, '{}'::jsonb), e.embedding <=> $2 AS distance
		FROM langchain_pg_embedding e
		JOIN langchain_pg_collection c ON c.uuid = e.collection_id
		WHERE c.name = $1
		ORDER BY distance ASC
		LIMIT $3`
)

// PGVectorConfig holds connection parameters for a Postgres + pgvector store.
type PGVectorConfig struct {
	// ConnString is a postgresql:// connection URL.
	ConnString string

	// Collection is the collection name records are written to and read from.
	Collection string

	// CreateSchema applies the extension and table DDL when the store opens.
	// Only ingestion sets it, so query sessions run under a read-only role.
	CreateSchema bool
}

// PGVectorStore implements VectorStore on Postgres with the pgvector
// extension, ranking by cosine distance.
type PGVectorStore struct {
	// pool is the shared connection pool; safe for concurrent use.
	pool *pgxpool.Pool

	// cfg holds the resolved configuration for this store.
	cfg *PGVectorConfig

	// ready is false when the tables did not exist at open time and
	// CreateSchema was not set. Searches then return nothing.
	ready bool
}

// NewPGVectorStore opens a connection pool with the pgvector types registered
// on every connection. With cfg.CreateSchema the schema is created first;
// otherwise a missing schema leaves the store empty rather than failing.
func NewPGVectorStore(ctx context.Context, cfg *PGVectorConfig) (*PGVectorStore, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("pgvector: collection name must not be empty")
	}

	ready, err := prepareSchema(ctx, cfg.ConnString, cfg.CreateSchema)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("pgvector: invalid connection string: %w", err)
	}
	// RegisterTypes fails on every connection while the extension is absent.
	if ready {
		poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgvector: failed to create pool: %w", err)
	}

	return &PGVectorStore{pool: pool, cfg: cfg, ready: ready}, nil
}

// prepareSchema runs the idempotent DDL on a dedicated connection when create
// is set, and otherwise only reports whether the schema exists.
func prepareSchema(ctx context.Context, connString string, create bool) (bool, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return false, fmt.Errorf("pgvector: failed to connect: %w", err)
	}
	defer conn.Close(ctx)

	if create {
		for _, stmt := range schemaStatements {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return false, fmt.Errorf("pgvector: failed to apply schema: %w", err)
			}
		}
		return true, nil
	}

	var ready bool
	if err := conn.QueryRow(ctx, schemaReadySQL).Scan(&ready); err != nil {
		return false, fmt.Errorf("pgvector: failed to inspect schema: %w", err)
	}
	return ready, nil
}

// Upsert appends docs to the collection inside a single transaction,
// creating the collection row on first write.
func (s *PGVectorStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if err := checkParallel(docs, embeddings); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	if !s.ready {
		return fmt.Errorf("pgvector: schema not initialised; open the store with CreateSchema")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgvector: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var collectionID string
	if err := tx.QueryRow(ctx, upsertCollectionSQL, uuid.NewString(), s.cfg.Collection).Scan(&collectionID); err != nil {
		return fmt.Errorf("pgvector: ensure collection %q: %w", s.cfg.Collection, err)
	}

	batch := &pgx.Batch{}
	for i, doc := range docs {
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		batch.Queue(insertEmbeddingSQL, id, collectionID, pgvector.NewVector(embeddings[i]), doc.Content, metadataFor(doc))
	}

	br := tx.SendBatch(ctx, batch)
	for range docs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("pgvector: insert failed: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("pgvector: insert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgvector: commit: %w", err)
	}
	return nil
}

// Search returns the topK nearest records by cosine distance. Score is the
// cosine similarity (1 - distance).
func (s *PGVectorStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error) {
	if !s.ready {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, searchSQL, s.cfg.Collection, pgvector.NewVector(queryEmbedding), topK)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pgvector: search failed: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc      Document
			meta     map[string]any
			distance float64
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &meta, &distance); err != nil {
			return nil, fmt.Errorf("pgvector: scan result: %w", err)
		}
		doc.Score = float32(1 - distance)
		applyMetadata(&doc, meta)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pgvector: search failed: %w", err)
	}

	return docs, nil
}

// Name identifies the backend.
func (s *PGVectorStore) Name() string { return "pgvector" }

// Ping checks the pool can reach Postgres.
func (s *PGVectorStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes every pooled connection.
func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}

// isUndefinedTable reports whether err is Postgres rejecting a missing table,
// which happens when the schema was dropped after the store opened.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

// applyMetadata lifts source and page out of a decoded metadata map.
func applyMetadata(doc *Document, meta map[string]any) {
	doc.Metadata = make(map[string]any, len(meta))
	for k, v := range meta {
		switch k {
		case "source":
			if s, ok := v.(string); ok {
				doc.Source = s
			}
		case "page":
			switch n := v.(type) {
			case float64:
				doc.Page = int(n)
			case int64:
				doc.Page = int(n)
			case int:
				doc.Page = n
			}
		default:
			doc.Metadata[k] = v
		}
	}
}
