// Package store persists research history and usage accounting in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ize202/slipshark/pkg/models"
)

// Store records and queries research history.
type Store interface {
	// Record stores the outcome of one research request.
	Record(ctx context.Context, rec models.ResearchRecord) error
	// History returns research records for an API key since a given time.
	History(ctx context.Context, apiKey string, since time.Time) ([]models.ResearchRecord, error)
	// CountByKey returns completed request counts for an API key since a
	// given time, optionally narrowed to one research mode.
	CountByKey(ctx context.Context, apiKey string, mode models.ResearchMode, since time.Time) (int64, error)
	// Summary returns aggregated usage, optionally filtered by API key.
	Summary(ctx context.Context, apiKey string) ([]models.UsageSummary, error)
	// Close releases resources.
	Close() error
}

// SQLiteStore implements Store with a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS research_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query_id TEXT NOT NULL,
	api_key TEXT NOT NULL,
	query TEXT NOT NULL,
	mode TEXT NOT NULL,
	sport TEXT NOT NULL DEFAULT '',
	confidence REAL NOT NULL DEFAULT 0,
	data_points INTEGER NOT NULL DEFAULT 0,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_research_key_time ON research_records(api_key, created_at);
`

// New creates a SQLiteStore and runs auto-migration.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Record stores the outcome of one research request.
func (s *SQLiteStore) Record(ctx context.Context, rec models.ResearchRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO research_records (query_id, api_key, query, mode, sport, confidence, data_points, latency_ms, failed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.QueryID, rec.APIKey, rec.Query, string(rec.Mode), string(rec.Sport),
		rec.Confidence, rec.DataPoints, rec.LatencyMs, rec.Failed, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record research: %w", err)
	}
	return nil
}

// History returns research records for an API key since a given time, most
// recent first.
func (s *SQLiteStore) History(ctx context.Context, apiKey string, since time.Time) ([]models.ResearchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_id, api_key, query, mode, sport, confidence, data_points, latency_ms, failed, created_at
		 FROM research_records WHERE api_key = ? AND created_at >= ? ORDER BY created_at DESC`,
		apiKey, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []models.ResearchRecord
	for rows.Next() {
		var r models.ResearchRecord
		var mode, sport string
		if err := rows.Scan(&r.ID, &r.QueryID, &r.APIKey, &r.Query, &mode, &sport,
			&r.Confidence, &r.DataPoints, &r.LatencyMs, &r.Failed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		r.Mode = models.ResearchMode(mode)
		r.Sport = models.SportType(sport)
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountByKey returns completed request counts for an API key since a given
// time. Failed requests do not count against budgets.
func (s *SQLiteStore) CountByKey(ctx context.Context, apiKey string, mode models.ResearchMode, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM research_records WHERE api_key = ? AND created_at >= ? AND failed = 0`
	args := []any{apiKey, since}
	if mode != "" {
		query += ` AND mode = ?`
		args = append(args, string(mode))
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count research: %w", err)
	}
	return count, nil
}

// Summary returns aggregated usage grouped by API key and mode.
func (s *SQLiteStore) Summary(ctx context.Context, apiKey string) ([]models.UsageSummary, error) {
	query := `SELECT api_key, mode, COUNT(*), AVG(confidence), AVG(latency_ms)
		 FROM research_records WHERE failed = 0`
	var args []any
	if apiKey != "" {
		query += ` AND api_key = ?`
		args = append(args, apiKey)
	}
	query += ` GROUP BY api_key, mode ORDER BY api_key, mode`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		var mode string
		if err := rows.Scan(&s.APIKey, &mode, &s.RequestCount, &s.AvgConfidence, &s.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Mode = models.ResearchMode(mode)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
