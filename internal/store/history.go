package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/glosstran/internal"
)

func (s *Store) SaveRequest(ctx context.Context, req internal.TranslationRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	detected, err := json.Marshal(req.Detected)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO translation_requests (id, source_text, source_lang, target_lang, detected, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		req.ID, normalizeText(req.SourceText), req.SourceLang, req.TargetLang, string(detected), req.Timestamp)
	return err
}

// SaveResult records the outcome of a request. res may be nil when the
// translation failed before matching; errMsg then explains why.
func (s *Store) SaveResult(ctx context.Context, requestID string, res *internal.TranslationResult, latency time.Duration, errMsg string) error {
	var r internal.TranslationResult
	if res != nil {
		r = *res
	}
	matches, flags, err := marshalMatches(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translation_results (request_id, translation, context, matches, usage_flags, used, total, latency_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		requestID, r.Translation, r.Context, matches, flags, r.Used(), len(r.Matches), latency.Milliseconds(), errMsg)
	return err
}

// HistoryEntry is a request joined with its result.
type HistoryEntry struct {
	ID          string
	SourceText  string
	SourceLang  string
	TargetLang  string
	Detected    []string
	Translation string
	Used        int
	Total       int
	LatencyMs   int64
	Error       string
	CreatedAt   time.Time
}

// ListHistory returns the most recent requests first; limit <= 0 returns all.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	query := `SELECT r.id, r.source_text, r.source_lang, r.target_lang, COALESCE(r.detected, 'null'),
			COALESCE(t.translation, ''), COALESCE(t.used, 0), COALESCE(t.total, 0),
			COALESCE(t.latency_ms, 0), COALESCE(t.error, ''), r.created_at
		FROM translation_requests r
		LEFT JOIN translation_results t ON t.request_id = r.id
		ORDER BY r.created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e        HistoryEntry
			detected string
		)
		if err := rows.Scan(&e.ID, &e.SourceText, &e.SourceLang, &e.TargetLang, &detected,
			&e.Translation, &e.Used, &e.Total, &e.LatencyMs, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(detected), &e.Detected); err != nil {
			return nil, fmt.Errorf("bad detected terms for %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClearHistory removes all requests and results.
func (s *Store) ClearHistory(ctx context.Context) (int64, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM translation_results`); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_requests`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetCachedTranslation returns a remembered result for the normalized
// source text, bumping its usage count.
func (s *Store) GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (*internal.TranslationResult, bool, error) {
	key := normalizeText(sourceText)
	var (
		res         internal.TranslationResult
		matches     string
		flags       string
		invalidated bool
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT translation, context, matches, usage_flags, invalidated FROM translation_memory
		 WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		key, sourceLang, targetLang).Scan(&res.Translation, &res.Context, &matches, &flags, &invalidated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if invalidated {
		return nil, false, nil
	}

	if err := json.Unmarshal([]byte(matches), &res.Matches); err != nil {
		return nil, false, fmt.Errorf("bad cached matches: %w", err)
	}
	if err := json.Unmarshal([]byte(flags), &res.UsageFlags); err != nil {
		return nil, false, fmt.Errorf("bad cached usage flags: %w", err)
	}
	res.Query = sourceText

	_, err = s.db.ExecContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND source_lang = ? AND target_lang = ?`,
		time.Now(), key, sourceLang, targetLang)

	return &res, true, err
}

// SaveToMemory remembers a successful result. Warnings are not stored.
func (s *Store) SaveToMemory(ctx context.Context, sourceLang, targetLang string, res *internal.TranslationResult) error {
	matches, flags, err := marshalMatches(*res)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translation_memory
		 (id, source_text, source_lang, target_lang, translation, context, matches, usage_flags, usage_count, invalidated, last_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, FALSE, ?, ?)`,
		uuid.NewString(), normalizeText(res.Query), sourceLang, targetLang,
		res.Translation, res.Context, matches, flags, now, now)
	return err
}

// MemoryEntry is a row from the translation_memory table.
type MemoryEntry struct {
	ID          string
	SourceText  string
	SourceLang  string
	TargetLang  string
	Translation string
	UsageCount  int
	Invalidated bool
	LastUsed    time.Time
}

// MemoryStats summarises translation memory usage.
type MemoryStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
	Requests       int
}

func (s *Store) InvalidateMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE translation_memory SET invalidated = TRUE WHERE id = ?`, id)
	return err
}

// DeleteMemory permanently removes a translation memory entry by ID.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory WHERE id = ?`, id)
	return err
}

// ClearMemory removes all translation memory entries.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListMemory returns all translation memory entries ordered by most recently used.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, source_lang, target_lang, translation, usage_count, invalidated, last_used
		 FROM translation_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.SourceText, &e.SourceLang, &e.TargetLang, &e.Translation,
			&e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// Stats returns summary statistics for the translation memory and history.
func (s *Store) Stats(ctx context.Context) (*MemoryStats, error) {
	stats := &MemoryStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0)
		FROM translation_memory`).Scan(
		&stats.TotalEntries,
		&stats.ActiveEntries,
		&stats.InvalidEntries,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translation_requests`).Scan(&stats.Requests); err != nil {
		return nil, err
	}
	return stats, nil
}

func marshalMatches(r internal.TranslationResult) (matches, flags string, err error) {
	m := r.Matches
	if m == nil {
		m = []internal.MatchCandidate{}
	}
	f := r.UsageFlags
	if f == nil {
		f = []bool{}
	}
	mb, err := json.Marshal(m)
	if err != nil {
		return "", "", err
	}
	fb, err := json.Marshal(f)
	if err != nil {
		return "", "", err
	}
	return string(mb), string(fb), nil
}
