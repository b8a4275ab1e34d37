package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/knowledge/storage"
)

// seedKnowledgeBase stores entries directly in the test's SQLite file.
func seedKnowledgeBase(t *testing.T, dir string) {
	t.Helper()
	cfg := storage.DefaultSQLiteConfig()
	cfg.Path = filepath.Join(dir, "kb.db")

	store, err := storage.NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	entries := map[compliance.PairKey]compliance.Entry{
		{Action: "deny", Reason: "high risk"}: {
			ComplianceFramework: "NIST 800-53", ObligationID: "AC-2",
			Description: "Account management", Category: "Access Control", Severity: "High",
		},
		{Action: "monitor", Reason: "low risk"}: {
			ComplianceFramework: "ISO 27001", ObligationID: "A.12.4",
			Description: "Logging and monitoring", Category: "Operations", Severity: "Low",
		},
	}
	for key, entry := range entries {
		if err := store.Put(ctx, key, entry); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}
}

func TestKBCommands(t *testing.T) {
	dir := writeConfig(t, "", "")
	seedKnowledgeBase(t, dir)

	for _, format := range []string{"text", "json", "csv"} {
		kbFlags.format = format
		kbFlags.limit = 10

		if err := kbStats(nil, nil); err != nil {
			t.Errorf("kbStats(%s) error = %v", format, err)
		}
		if err := kbList(nil, nil); err != nil {
			t.Errorf("kbList(%s) error = %v", format, err)
		}
		if err := kbSearch(nil, []string{"access"}); err != nil {
			t.Errorf("kbSearch(%s) error = %v", format, err)
		}
	}
}

func TestKBPrune(t *testing.T) {
	dir := writeConfig(t, "", "")
	seedKnowledgeBase(t, dir)
	kbFlags.format = "text"

	// Nothing is a year old.
	kbFlags.olderThan = 365 * 24 * time.Hour
	if err := kbPrune(nil, nil); err != nil {
		t.Fatalf("kbPrune() error = %v", err)
	}

	cfg := storage.DefaultSQLiteConfig()
	cfg.Path = filepath.Join(dir, "kb.db")
	store, err := storage.NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d after prune, want 2", stats.Entries)
	}
}

func TestKBPrune_RequiresPositiveAge(t *testing.T) {
	writeConfig(t, "", "")
	kbFlags.format = "text"
	kbFlags.olderThan = -time.Hour

	if err := kbPrune(nil, nil); err == nil {
		t.Error("kbPrune() expected error for negative age")
	}
}

func TestEntryTable(t *testing.T) {
	updated := time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)
	table := entryTable{{
		Key:       compliance.PairKey{Action: "deny", Reason: "high risk"},
		Entry:     compliance.Entry{ComplianceFramework: "SOC 2", ObligationID: "CC6.1", Category: "Access", Severity: "High"},
		UpdatedAt: updated,
	}}

	rows := table.Rows()
	want := []string{"deny", "high risk", "SOC 2", "CC6.1", "Access", "High", "2026-10-15T03:00:00Z"}
	if len(rows) != 1 || len(rows[0]) != len(want) {
		t.Fatalf("Rows() = %v", rows)
	}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, rows[0][i], want[i])
		}
	}
}

func TestStatsTable(t *testing.T) {
	table := statsTable{&storage.Stats{
		Entries:    3,
		Frameworks: map[string]int{"SOC 2": 1, "ISO 27001": 2},
		Categories: map[string]int{"Access": 3},
		Severities: map[string]int{"High": 3},
	}}

	rows := table.Rows()
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5: %v", len(rows), rows)
	}
	if rows[0][0] != "total" || rows[0][2] != "3" {
		t.Errorf("first row = %v", rows[0])
	}
	if rows[1][1] != "ISO 27001" || rows[2][1] != "SOC 2" {
		t.Errorf("frameworks not sorted: %v %v", rows[1], rows[2])
	}
}
