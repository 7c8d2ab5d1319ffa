package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"cpathways/cprules/pkg/audit"
	"cpathways/cprules/pkg/audit/storage"
	"cpathways/cprules/pkg/cli"
)

// seedAuditDB creates a pure-Go SQLite audit database with three records
// and returns a config file pointing at it.
func seedAuditDB(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "audit.db")

	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
		Path:    dbPath,
		Driver:  storage.DriverPure,
		WALMode: true,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStorage() failed: %v", err)
	}

	now := time.Now().UTC()
	records := []*audit.Record{
		{
			ID: "rec-new", Action: "connection.create", Verdict: "qualified", ConnectionType: "cp:Connection",
			Permitted: true, SessionID: "s-1", EvaluatedAt: now.Add(-time.Hour), RecordedAt: now,
		},
		{
			ID: "rec-mid", Action: "elements.move", Verdict: "allow",
			Permitted: true, SessionID: "s-1", EvaluatedAt: now.Add(-2 * time.Hour), RecordedAt: now,
		},
		{
			ID: "rec-old", Action: "shape.create", Verdict: "defer",
			Fallback: true, SessionID: "s-2", EvaluatedAt: now.AddDate(0, 0, -100), RecordedAt: now,
		},
	}
	for _, r := range records {
		if err := store.Store(context.Background(), r); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "audit:\n  backend: sqlite\n  sqlite:\n    path: " + dbPath + "\n    driver: sqlite\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return cfgPath
}

func TestAuditQueryJSON(t *testing.T) {
	cfg := seedAuditDB(t)

	out, err := executeCommand(t, "audit", "query", "--config", cfg, "--permitted", "true", "--format", "json")
	if err != nil {
		t.Fatalf("audit query failed: %v", err)
	}

	var records []audit.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "rec-new" || records[1].ID != "rec-mid" {
		t.Errorf("unexpected order: %s, %s", records[0].ID, records[1].ID)
	}
}

func TestAuditQueryText(t *testing.T) {
	cfg := seedAuditDB(t)

	out, err := executeCommand(t, "audit", "query", "--config", cfg, "--since", "3h")
	if err != nil {
		t.Fatalf("audit query failed: %v", err)
	}
	if !strings.Contains(out, "qualified(cp:Connection)") {
		t.Errorf("missing qualified verdict:\n%s", out)
	}
	if strings.Contains(out, "shape.create") {
		t.Errorf("--since should exclude the old record:\n%s", out)
	}

	out, err = executeCommand(t, "audit", "query", "--config", cfg, "--session", "nobody")
	if err != nil {
		t.Fatalf("audit query failed: %v", err)
	}
	if !strings.Contains(out, "No matching records") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestAuditQueryInvalidFilters(t *testing.T) {
	cfg := seedAuditDB(t)

	for _, args := range [][]string{
		{"--action", "shape.resize"},
		{"--verdict", "maybe"},
		{"--permitted", "sometimes"},
		{"--start", "yesterday"},
		{"--since", "1h", "--start", "2026-10-01T00:00:00Z"},
		{"--sort", "sideways"},
		{"--limit", "-1"},
		{"--format", "yaml"},
	} {
		_, err := executeCommand(t, append([]string{"audit", "query", "--config", cfg}, args...)...)
		if err == nil {
			t.Errorf("%v: expected error", args)
			continue
		}
		if code := cli.ExitCode(err); code != cli.ExitUsage {
			t.Errorf("%v: ExitCode() = %d, want %d (err: %v)", args, code, cli.ExitUsage, err)
		}
	}
}

func TestAuditExportCSV(t *testing.T) {
	cfg := seedAuditDB(t)
	outPath := filepath.Join(t.TempDir(), "decisions.csv")

	if _, err := executeCommand(t, "audit", "export", "--config", cfg, "--format", "csv", "--output", outPath); err != nil {
		t.Fatalf("audit export failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header plus 3 records:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "id,session_id,action") {
		t.Errorf("unexpected header: %s", lines[0])
	}
}

func TestAuditPrune(t *testing.T) {
	cfg := seedAuditDB(t)

	out, err := executeCommand(t, "audit", "prune", "--config", cfg, "--days", "30", "--dry-run")
	if err != nil {
		t.Fatalf("audit prune --dry-run failed: %v", err)
	}
	if !strings.Contains(out, "Older than 30 days: 1 records") || !strings.Contains(out, "nothing deleted") {
		t.Errorf("unexpected dry run output:\n%s", out)
	}

	out, err = executeCommand(t, "audit", "prune", "--config", cfg, "--days", "30")
	if err != nil {
		t.Fatalf("audit prune failed: %v", err)
	}
	if !strings.Contains(out, "Pruned 1 records") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = executeCommand(t, "audit", "query", "--config", cfg, "--format", "csv")
	if err != nil {
		t.Fatalf("audit query failed: %v", err)
	}
	if n := len(strings.Split(strings.TrimSpace(out), "\n")); n != 3 {
		t.Errorf("got %d lines after prune, want header plus 2 records:\n%s", n, out)
	}
}

func TestAuditRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := storage.NewRedisStorage(&storage.RedisConfig{Address: mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisStorage() failed: %v", err)
	}
	now := time.Now().UTC()
	for i, action := range []string{"elements.move", "shape.create"} {
		r := &audit.Record{
			ID: fmt.Sprintf("r-%d", i), Action: action, Verdict: "allow", Permitted: true,
			EvaluatedAt: now.Add(-time.Duration(i+1) * time.Minute), RecordedAt: now,
		}
		if err := store.Store(context.Background(), r); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}
	store.Close()

	cfgPath := writeFile(t, "config.yaml", "audit:\n  backend: redis\n  redis:\n    address: "+mr.Addr()+"\n")
	out, err := executeCommand(t, "audit", "query", "--config", cfgPath, "--action", "shape.create")
	if err != nil {
		t.Fatalf("audit query failed: %v", err)
	}
	if !strings.Contains(out, "shape.create") || strings.Contains(out, "elements.move") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestAuditMemoryBackendRejected(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", "audit:\n  backend: memory\n")

	_, err := executeCommand(t, "audit", "query", "--config", cfgPath)
	if code := cli.ExitCode(err); code != cli.ExitUsage {
		t.Errorf("ExitCode() = %d, want %d (err: %v)", code, cli.ExitUsage, err)
	}
}
