package audit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ize202/slipshark/pkg/models"
)

func tempCfg(t *testing.T) models.AuditConfig {
	t.Helper()
	return models.AuditConfig{
		Enabled:       true,
		DBPath:        filepath.Join(t.TempDir(), "audit_test.db"),
		RetentionDays: 90,
		IncludeQuery:  true,
		MaxBodySize:   1024,
	}
}

func mustNew(t *testing.T, cfg models.AuditConfig) *Logger {
	t.Helper()
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func sampleEntry() models.AuditEntry {
	return models.AuditEntry{
		RequestID:    "req-001",
		APIKeyHash:   "abc123hash",
		APIKeyPrefix: "sk-test-",
		Mode:         models.ModeQuick,
		Query:        "Lakers spread tonight?",
		Summary:      "Lakers favored by 5.5 at home.",
		StatusCode:   200,
		LatencyMs:    150,
		CreatedAt:    time.Now(),
	}
}

func TestLogAndQuery(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	entry := sampleEntry()
	if err := l.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{Mode: models.ModeQuick})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].RequestID != "req-001" {
		t.Errorf("expected req-001, got %s", entries[0].RequestID)
	}
	if entries[0].Query != "Lakers spread tonight?" {
		t.Errorf("expected query stored, got %q", entries[0].Query)
	}
}

func TestQueryByRequestID(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())

	entries, err := l.Query(ctx, models.AuditQueryOpts{RequestID: "req-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1, got %d", len(entries))
	}
}

func TestQueryByPrefix(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())
	other := sampleEntry()
	other.RequestID = "req-002"
	other.APIKeyPrefix = "sk-other"
	_ = l.Log(ctx, other)

	entries, err := l.Query(ctx, models.AuditQueryOpts{APIKeyPrefix: "sk-test-"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry for prefix, got %d", len(entries))
	}
}

func TestQueryOmitsStoredQueryWhenDisabled(t *testing.T) {
	cfg := tempCfg(t)
	cfg.IncludeQuery = false
	l := mustNew(t, cfg)
	ctx := context.Background()

	if err := l.Log(ctx, sampleEntry()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{RequestID: "req-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if entries[0].Query != "" {
		t.Errorf("expected empty query, got %q", entries[0].Query)
	}
}

func TestSummaryTruncation(t *testing.T) {
	cfg := tempCfg(t)
	cfg.MaxBodySize = 16
	l := mustNew(t, cfg)
	ctx := context.Background()

	entry := sampleEntry()
	entry.Summary = strings.Repeat("x", 100)
	if err := l.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.AuditQueryOpts{RequestID: "req-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries[0].Summary) != 16 {
		t.Errorf("expected truncated summary len 16, got %d", len(entries[0].Summary))
	}
}

func TestCleanup(t *testing.T) {
	cfg := tempCfg(t)
	cfg.RetentionDays = 0 // everything is old
	l := mustNew(t, cfg)
	ctx := context.Background()

	entry := sampleEntry()
	entry.CreatedAt = time.Now().AddDate(0, 0, -1)
	_ = l.Log(ctx, entry)

	deleted, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}
}

func TestStats(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())
	e2 := sampleEntry()
	e2.RequestID = "req-002"
	_ = l.Log(ctx, e2)

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) == 0 {
		t.Fatal("expected stats")
	}
	if stats[0].Count != 2 {
		t.Errorf("expected count 2, got %d", stats[0].Count)
	}
}

func TestHashAPIKey(t *testing.T) {
	hash, prefix := HashAPIKey("sk-test-abc123xyz")
	if len(hash) != 64 {
		t.Errorf("expected 64-char hash, got %d", len(hash))
	}
	if prefix != "sk-test-" {
		t.Errorf("expected prefix sk-test-, got %s", prefix)
	}
}

func TestNilLoggerSafe(t *testing.T) {
	var l *Logger
	if err := l.Log(context.Background(), sampleEntry()); err != nil {
		t.Errorf("nil logger should be safe: %v", err)
	}
}

func TestNewInvalidPath(t *testing.T) {
	cfg := models.AuditConfig{
		Enabled: true,
		DBPath:  filepath.Join(os.TempDir(), "nonexistent", "deep", "path", "audit.db"),
	}
	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for invalid path")
	}
}
