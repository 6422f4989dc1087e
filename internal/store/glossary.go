package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/valpere/glosstran/internal/glossary"
)

// GlossaryMeta describes the stored glossary build.
type GlossaryMeta struct {
	Source     string
	Model      string
	Dimensions int
	Entries    int
	Failed     int
	BuiltAt    time.Time
}

// SaveGlossary replaces the stored glossary with entries. Cached
// translations were grounded in the previous glossary and are dropped.
func (s *Store) SaveGlossary(ctx context.Context, meta GlossaryMeta, entries []glossary.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM glossary_entries`,
		`DELETE FROM glossary_meta`,
		`DELETE FROM translation_memory`,
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to clear glossary: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO glossary_entries (position, key_term, candidates, selected, source_field, degraded, dims, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		candidates, err := json.Marshal(e.Candidates)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, i, e.KeyTerm, string(candidates), e.Selected, e.SourceField,
			e.Degraded, len(e.Embedding), encodeVector(e.Embedding))
		if err != nil {
			return fmt.Errorf("failed to save entry %q: %w", e.KeyTerm, err)
		}
	}

	if meta.BuiltAt.IsZero() {
		meta.BuiltAt = time.Now()
	}
	meta.Entries = len(entries)
	kv := map[string]string{
		"source":     meta.Source,
		"model":      meta.Model,
		"dimensions": strconv.Itoa(meta.Dimensions),
		"entries":    strconv.Itoa(meta.Entries),
		"failed":     strconv.Itoa(meta.Failed),
		"built_at":   meta.BuiltAt.UTC().Format(time.RFC3339),
	}
	for k, v := range kv {
		if _, err := tx.ExecContext(ctx, `INSERT INTO glossary_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to save glossary metadata: %w", err)
		}
	}

	return tx.Commit()
}

// LoadGlossary returns the stored entries in their original order.
func (s *Store) LoadGlossary(ctx context.Context) (GlossaryMeta, []glossary.Entry, error) {
	meta, err := s.GlossaryMeta(ctx)
	if err != nil {
		return meta, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key_term, candidates, selected, source_field, degraded, dims, embedding
		 FROM glossary_entries ORDER BY position`)
	if err != nil {
		return meta, nil, err
	}
	defer rows.Close()

	var entries []glossary.Entry
	for rows.Next() {
		var (
			e          glossary.Entry
			candidates string
			dims       int
			blob       []byte
		)
		if err := rows.Scan(&e.KeyTerm, &candidates, &e.Selected, &e.SourceField, &e.Degraded, &dims, &blob); err != nil {
			return meta, nil, err
		}
		if err := json.Unmarshal([]byte(candidates), &e.Candidates); err != nil {
			return meta, nil, fmt.Errorf("entry %q: bad candidates: %w", e.KeyTerm, err)
		}
		if e.Embedding, err = decodeVector(blob, dims); err != nil {
			return meta, nil, fmt.Errorf("entry %q: %w", e.KeyTerm, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return meta, nil, err
	}
	if len(entries) == 0 {
		return meta, nil, ErrNoGlossary
	}
	return meta, entries, nil
}

// GlossaryMeta returns the metadata of the stored glossary, or ErrNoGlossary.
func (s *Store) GlossaryMeta(ctx context.Context) (GlossaryMeta, error) {
	var meta GlossaryMeta

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM glossary_meta`)
	if err != nil {
		return meta, err
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return meta, err
		}
		found = true
		switch k {
		case "source":
			meta.Source = v
		case "model":
			meta.Model = v
		case "dimensions":
			meta.Dimensions, _ = strconv.Atoi(v)
		case "entries":
			meta.Entries, _ = strconv.Atoi(v)
		case "failed":
			meta.Failed, _ = strconv.Atoi(v)
		case "built_at":
			meta.BuiltAt, _ = time.Parse(time.RFC3339, v)
		}
	}
	if err := rows.Err(); err != nil {
		return meta, err
	}
	if !found {
		return meta, ErrNoGlossary
	}
	return meta, nil
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte, dims int) ([]float32, error) {
	if len(buf) != 4*dims {
		return nil, fmt.Errorf("embedding blob has %d bytes, want %d", len(buf), 4*dims)
	}
	v := make([]float32, dims)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
