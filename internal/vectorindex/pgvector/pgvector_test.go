package pgvector_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/valpere/glosstran/internal/vectorindex"
	"github.com/valpere/glosstran/internal/vectorindex/pgvector"
)

const testDim = 3

// testDSN skips the test when GLOSSTRAN_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("GLOSSTRAN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GLOSSTRAN_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// testTable gives every test its own table so runs do not interfere.
func testTable(t *testing.T) string {
	return fmt.Sprintf("glosstran_test_%d", time.Now().UnixNano())
}

func TestIndex_ReplaceAndSearch(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	ix, err := pgvector.Open(ctx, dsn, testTable(t), testDim)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()

	err = ix.Replace(ctx,
		[]string{"无常", "苦", "涅槃"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 0}},
	)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if ix.Len() != 3 {
		t.Errorf("expected 3 rows, got %d", ix.Len())
	}

	hits, err := ix.Search(ctx, []float32{0.9, 0.1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != 0 {
		t.Errorf("expected id 0 first, got %+v", hits)
	}
	if hits[0].Distance > hits[1].Distance {
		t.Errorf("hits not ordered by distance: %+v", hits)
	}
}

func TestIndex_Open_DimensionMismatch(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()
	table := testTable(t)

	ix, err := pgvector.Open(ctx, dsn, table, testDim)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ix.Close()

	_, err = pgvector.Open(ctx, dsn, table, testDim+1)
	if !errors.Is(err, vectorindex.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
