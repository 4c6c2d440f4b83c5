package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/xiy/faq-search/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// Stats summarizes database counters for admin dashboards.
type Stats struct {
	Records        int64
	Searches       int64
	FailedSearches int64
}

// Store represents persistence operations used by the FAQ service.
type Store interface {
	FetchAll(ctx context.Context) ([]types.FAQRecord, error)
	FetchMatching(ctx context.Context, query string, limit int) ([]types.FAQRecord, error)
	Reseed(ctx context.Context, faqs []types.FAQRecord) ([]types.FAQRecord, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// SQLiteStore is a SQLite-backed FAQ store.
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens the database file and applies the schema.
func OpenSQLite(ctx context.Context, dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	for _, stmt := range splitSQLStatements(schemaSQL) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("run schema stmt: %w", err)
		}
	}
	return nil
}

func splitSQLStatements(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p+";")
	}
	return out
}

// FetchAll returns every FAQ in insertion order.
func (s *SQLiteStore) FetchAll(ctx context.Context) ([]types.FAQRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, question, answer FROM faqs ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("fetch faqs: %w", err)
	}
	defer rows.Close()
	return scanFAQs(rows)
}

// FetchMatching narrows the corpus to questions containing any query term, in
// insertion order. A query without extractable terms returns the full corpus.
func (s *SQLiteStore) FetchMatching(ctx context.Context, query string, limit int) ([]types.FAQRecord, error) {
	terms := tokenizeQueryTerms(query)
	if len(terms) == 0 {
		return s.FetchAll(ctx)
	}
	if limit <= 0 {
		limit = 100
	}

	clauses := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)+1)
	for _, term := range terms {
		clauses = append(clauses, "lower(question) LIKE ?")
		args = append(args, "%"+term+"%")
	}
	q := `SELECT id, question, answer FROM faqs WHERE ` + strings.Join(clauses, " OR ") +
		` ORDER BY id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch matching faqs: %w", err)
	}
	defer rows.Close()
	return scanFAQs(rows)
}

// Reseed replaces the whole corpus and returns the stored rows with their ids.
func (s *SQLiteStore) Reseed(ctx context.Context, faqs []types.FAQRecord) ([]types.FAQRecord, error) {
	for i, f := range faqs {
		if strings.TrimSpace(f.Question) == "" {
			return nil, fmt.Errorf("faq #%d: question must not be empty", i)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reseed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM faqs`); err != nil {
		return nil, fmt.Errorf("clear faqs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO faqs (question, answer) VALUES (?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare faq insert: %w", err)
	}
	defer stmt.Close()

	stored := make([]types.FAQRecord, 0, len(faqs))
	for _, f := range faqs {
		res, err := stmt.ExecContext(ctx, f.Question, f.Answer)
		if err != nil {
			return nil, fmt.Errorf("insert faq: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("faq insert id: %w", err)
		}
		stored = append(stored, types.FAQRecord{ID: id, Question: f.Question, Answer: f.Answer})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reseed: %w", err)
	}
	s.logger.Debug("reseeded faq table", "count", len(stored))
	return stored, nil
}

// Count returns the number of stored FAQs.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM faqs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count faqs: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM faqs`).Scan(&st.Records); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM searches`).Scan(&st.Searches); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM searches WHERE success = 0`).Scan(&st.FailedSearches); err != nil {
		return st, err
	}
	return st, nil
}

// InsertSearchLog stores one search event for admin observability.
func (s *SQLiteStore) InsertSearchLog(ctx context.Context, rec types.SearchLog) error {
	ts := rec.CreatedAt.UTC()
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO searches (
		id, query, top_k, results, top_question, success, error_text, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Query,
		rec.TopK,
		rec.Results,
		strings.TrimSpace(rec.TopQuestion),
		success,
		strings.TrimSpace(rec.ErrorText),
		rec.DurationMS,
		ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert search log: %w", err)
	}
	return nil
}

// RecentSearchLogs returns most recent search events in newest-first order.
func (s *SQLiteStore) RecentSearchLogs(ctx context.Context, limit int) ([]types.SearchLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, query, top_k, results, top_question, success, error_text, duration_ms, created_at
FROM searches
ORDER BY created_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list search logs: %w", err)
	}
	defer rows.Close()

	items := make([]types.SearchLog, 0, limit)
	for rows.Next() {
		var (
			row            types.SearchLog
			successAsInt   int
			createdAtValue string
		)
		if err := rows.Scan(
			&row.ID,
			&row.Query,
			&row.TopK,
			&row.Results,
			&row.TopQuestion,
			&successAsInt,
			&row.ErrorText,
			&row.DurationMS,
			&createdAtValue,
		); err != nil {
			return nil, fmt.Errorf("scan search log: %w", err)
		}
		row.Success = successAsInt == 1
		if ts, err := time.Parse(time.RFC3339Nano, createdAtValue); err == nil {
			row.CreatedAt = ts
		} else {
			s.logger.Warn("bad search log timestamp", "id", row.ID, "error", err)
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanFAQs(rows *sql.Rows) ([]types.FAQRecord, error) {
	items := make([]types.FAQRecord, 0, 16)
	for rows.Next() {
		var rec types.FAQRecord
		if err := rows.Scan(&rec.ID, &rec.Question, &rec.Answer); err != nil {
			return nil, fmt.Errorf("scan faq: %w", err)
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func tokenizeQueryTerms(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	seen := map[string]struct{}{}
	terms := make([]string, 0, 6)
	var sb strings.Builder

	flush := func() {
		if sb.Len() == 0 {
			return
		}
		term := sb.String()
		sb.Reset()
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return terms
}
