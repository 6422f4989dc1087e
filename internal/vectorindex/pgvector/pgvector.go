// Package pgvector stores glossary embeddings in PostgreSQL and answers
// nearest-neighbour queries with the pgvector L2 operator.
//
// The table layout is
//
//	id        INTEGER PRIMARY KEY  -- position of the entry in the glossary
//	key_term  TEXT
//	embedding vector(dim)
//
// Distances are plain Euclidean (`<->`), not squared.
package pgvector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/valpere/glosstran/internal/vectorindex"
)

const DefaultTable = "glossary_vectors"

var _ vectorindex.Index = (*Index)(nil)

// Index is safe for concurrent use.
type Index struct {
	pool  *pgxpool.Pool
	table string
	dim   int
	count int
}

// Open connects to dsn, installs the extension and table if needed and checks
// that an existing table was created with the same dimension.
func Open(ctx context.Context, dsn, table string, dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("pgvector index: dimension must be positive")
	}
	if table == "" {
		table = DefaultTable
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvector index: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	// The extension must exist before AfterConnect can register its types.
	bootstrap, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvector index: connect: %w", err)
	}
	_, err = bootstrap.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	bootstrap.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("pgvector index: create extension: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgvector index: create pool: %w", err)
	}

	ix := &Index{pool: pool, table: table, dim: dim}
	if err := ix.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := ix.refreshCount(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return ix, nil
}

func (ix *Index) ident() string {
	return pgx.Identifier{ix.table}.Sanitize()
}

func (ix *Index) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id        INTEGER PRIMARY KEY,
		key_term  TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, ix.ident(), ix.dim)
	if _, err := ix.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("pgvector index: migrate: %w", err)
	}

	// For vector(n) columns atttypmod holds n.
	var existing int
	err := ix.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::regclass AND attname = 'embedding'`,
		ix.table).Scan(&existing)
	if err != nil {
		return fmt.Errorf("pgvector index: inspect table: %w", err)
	}
	if existing != ix.dim {
		return fmt.Errorf("pgvector index: table %s has dimension %d, want %d: %w",
			ix.table, existing, ix.dim, vectorindex.ErrDimensionMismatch)
	}
	return nil
}

func (ix *Index) refreshCount(ctx context.Context) error {
	var n int
	if err := ix.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, ix.ident())).Scan(&n); err != nil {
		return fmt.Errorf("pgvector index: count: %w", err)
	}
	ix.count = n
	return nil
}

// Replace swaps the whole table content for vectors; vectors[i] gets ID i.
// It is meant for the build step, not for use while queries are served.
func (ix *Index) Replace(ctx context.Context, terms []string, vectors [][]float32) error {
	if len(terms) != len(vectors) {
		return fmt.Errorf("pgvector index: %d terms but %d vectors", len(terms), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != ix.dim {
			return fmt.Errorf("pgvector index: vector %d has %d components, want %d: %w",
				i, len(v), ix.dim, vectorindex.ErrDimensionMismatch)
		}
	}

	tx, err := ix.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgvector index: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, ix.ident())); err != nil {
		return fmt.Errorf("pgvector index: truncate: %w", err)
	}

	rows := make([][]any, len(vectors))
	for i, v := range vectors {
		rows[i] = []any{i, terms[i], pgv.NewVector(v)}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{ix.table},
		[]string{"id", "key_term", "embedding"}, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("pgvector index: copy: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgvector index: commit: %w", err)
	}
	ix.count = len(vectors)
	return nil
}

// Search implements vectorindex.Index.
func (ix *Index) Search(ctx context.Context, vec []float32, k int) ([]vectorindex.Hit, error) {
	if len(vec) != ix.dim {
		return nil, fmt.Errorf("pgvector index: query has %d components, want %d: %w",
			len(vec), ix.dim, vectorindex.ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}

	q := fmt.Sprintf(`
		SELECT id, embedding <-> $1 AS distance
		FROM   %s
		ORDER  BY distance, id
		LIMIT  $2`, ix.ident())

	rows, err := ix.pool.Query(ctx, q, pgv.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("pgvector index: search: %w", err)
	}
	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (vectorindex.Hit, error) {
		var h vectorindex.Hit
		err := row.Scan(&h.ID, &h.Distance)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("pgvector index: scan: %w", err)
	}
	return hits, nil
}

func (ix *Index) Dimensions() int { return ix.dim }

// Len is the row count observed at Open or after the last Replace.
func (ix *Index) Len() int { return ix.count }

func (ix *Index) Close() {
	ix.pool.Close()
}
