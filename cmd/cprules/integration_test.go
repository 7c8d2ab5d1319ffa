//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	binaryOnce sync.Once
	binaryPath string
	binaryErr  error
)

// buildBinary builds cprules once per test run.
func buildBinary(t *testing.T) string {
	t.Helper()

	binaryOnce.Do(func() {
		dir, err := os.MkdirTemp("", "cprules-bin")
		if err != nil {
			binaryErr = err
			return
		}
		binaryPath = filepath.Join(dir, "cprules")
		out, err := exec.Command("go", "build", "-o", binaryPath, ".").CombinedOutput()
		if err != nil {
			binaryErr = fmt.Errorf("go build: %v\n%s", err, out)
		}
	})
	if binaryErr != nil {
		t.Fatalf("failed to build cprules: %v", binaryErr)
	}
	return binaryPath
}

func waitForHealthy(url string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

func TestServeEvaluateAuditPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "audit.db")
	configFile := filepath.Join(tmpDir, "config.yaml")
	config := fmt.Sprintf(`
server:
  listen_address: "127.0.0.1:18420"
audit:
  backend: sqlite
  sqlite:
    path: %q
    driver: sqlite
telemetry:
  logging:
    level: warn
    format: json
  metrics:
    enabled: false
`, dbPath)
	if err := os.WriteFile(configFile, []byte(config), 0o600); err != nil {
		t.Fatal(err)
	}

	bin := buildBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "serve", "--config", configFile)
	cmd.Dir = tmpDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer func() {
		if cmd.ProcessState == nil {
			_ = cmd.Process.Kill()
		}
	}()

	base := "http://127.0.0.1:18420"
	if !waitForHealthy(base+"/ready", 10*time.Second) {
		t.Fatalf("server failed to start\nStdout: %s\nStderr: %s", stdout.String(), stderr.String())
	}

	for _, body := range []string{
		`{"action":"connection.create","context":{"source":{"type":"cp:DecisionLogic"},"target":{"type":"cp:EvidenceGateway"}}}`,
		`{"action":"elements.move","context":{}}`,
	} {
		resp, err := http.Post(base+"/v1/evaluate", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("evaluate failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("evaluate status = %d", resp.StatusCode)
		}
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Fatalf("failed to send SIGINT: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unclean shutdown: %v\nStderr: %s", err, stderr.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down within 10 seconds")
	}

	out, err := exec.Command(bin, "audit", "query", "--config", configFile, "--format", "json").Output()
	if err != nil {
		t.Fatalf("audit query failed: %v", err)
	}
	var records []map[string]any
	if err := json.Unmarshal(out, &records); err != nil {
		t.Fatalf("failed to parse audit output: %v\n%s", err, out)
	}
	if len(records) != 2 {
		t.Fatalf("got %d audit records, want 2", len(records))
	}
}

func TestDryRunRejectsInvalidConfig(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte("rules:\n  fallback: maybe\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := exec.Command(buildBinary(t), "serve", "--config", configFile, "--dry-run").Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit error, got %v", err)
	}
	if exitErr.ExitCode() != 2 {
		t.Errorf("exit code = %d, want 2", exitErr.ExitCode())
	}
}
