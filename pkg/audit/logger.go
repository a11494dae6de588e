// Package audit records every research request in a dedicated SQLite
// database, keyed by hashed API key. Raw API keys are never stored.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ize202/slipshark/pkg/models"
)

// Logger writes and queries audit entries.
type Logger struct {
	db   *sql.DB
	cfg  models.AuditConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the audit SQLite database, creates the schema, and starts the
// retention goroutine.
func New(cfg models.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{
		db:   db,
		cfg:  cfg,
		done: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS audit_log (
		request_id     TEXT PRIMARY KEY,
		api_key_hash   TEXT NOT NULL,
		api_key_prefix TEXT NOT NULL,
		mode           TEXT NOT NULL,
		query          TEXT,
		summary        TEXT,
		status_code    INTEGER,
		latency_ms     INTEGER,
		created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_prefix ON audit_log(api_key_prefix)`)
	return err
}

// Log inserts an audit entry. The query text is stored only when configured;
// the response summary is truncated to the configured body size.
func (l *Logger) Log(ctx context.Context, entry models.AuditEntry) error {
	if l == nil || l.db == nil {
		return nil
	}

	query := entry.Query
	if !l.cfg.IncludeQuery {
		query = ""
	}
	summary := entry.Summary
	if l.cfg.MaxBodySize > 0 && len(summary) > l.cfg.MaxBodySize {
		summary = summary[:l.cfg.MaxBodySize]
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO audit_log
		(request_id, api_key_hash, api_key_prefix, mode, query, summary, status_code, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.APIKeyHash, entry.APIKeyPrefix,
		string(entry.Mode), query, summary,
		entry.StatusCode, entry.LatencyMs, entry.CreatedAt,
	)
	return err
}

// Query returns audit entries matching the given options.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEntry, error) {
	q := `SELECT request_id, api_key_hash, api_key_prefix, mode, query, summary, status_code, latency_ms, created_at
		FROM audit_log WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.Mode != "" {
		q += " AND mode = ?"
		args = append(args, string(opts.Mode))
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}
	if opts.APIKeyPrefix != "" {
		q += " AND api_key_prefix = ?"
		args = append(args, opts.APIKeyPrefix)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var mode string
		var query, summary sql.NullString
		if err := rows.Scan(
			&e.RequestID, &e.APIKeyHash, &e.APIKeyPrefix, &mode,
			&query, &summary, &e.StatusCode, &e.LatencyMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Mode = models.ResearchMode(mode)
		e.Query = query.String
		e.Summary = summary.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns aggregate counts grouped by research mode and day.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT mode, date(created_at) as day, count(*) as cnt
		 FROM audit_log GROUP BY mode, day ORDER BY day DESC, mode`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var mode string
		var day sql.NullString
		if err := rows.Scan(&mode, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Mode = models.ResearchMode(mode)
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM audit_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}

// HashAPIKey returns the SHA-256 hex hash and 8-char prefix for an API key.
func HashAPIKey(key string) (hash, prefix string) {
	h := sha256.Sum256([]byte(key))
	hash = hex.EncodeToString(h[:])
	if len(key) > 8 {
		prefix = key[:8]
	} else {
		prefix = key
	}
	return hash, prefix
}
