package main

import (
	"errors"
	"strings"
	"testing"
)

const shippedSuite = "../../pkg/scenario/testdata/scenarios.yaml"

func TestTestCommandPasses(t *testing.T) {
	out, err := executeCommand(t, "test", shippedSuite)
	if err != nil {
		t.Fatalf("test failed: %v\n%s", err, out)
	}
	if strings.Contains(out, "FAIL") {
		t.Errorf("unexpected failures:\n%s", out)
	}
	if !strings.Contains(out, "10 scenarios run, 10 passed, 0 failed") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestTestCommandReportsFailures(t *testing.T) {
	suite := writeFile(t, "suite.yaml", `
tests:
  - name: move is allowed
    action: elements.move
    expect: {verdict: allow}
  - name: wrongly expects a deny
    action: connection.create
    context:
      source: {type: "cp:DecisionLogic"}
      target: {type: "cp:EvidenceGateway"}
    expect: {verdict: deny}
`)

	out, err := executeCommand(t, "test", suite)
	if !errors.Is(err, errScenarioFailures) {
		t.Fatalf("expected scenario failures, got %v", err)
	}
	for _, want := range []string{
		"PASS move is allowed",
		"FAIL wrongly expects a deny",
		"Expected: deny",
		"Actual:   allow(cp:Connection)",
		"2 scenarios run, 1 passed, 1 failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTestCommandJSON(t *testing.T) {
	out, err := executeCommand(t, "test", shippedSuite, "--format", "json")
	if err != nil {
		t.Fatalf("test failed: %v", err)
	}
	if !strings.Contains(out, `"passed": 10`) {
		t.Errorf("unexpected JSON report:\n%s", out)
	}
}

func TestTestCommandInvalidSuite(t *testing.T) {
	suite := writeFile(t, "bad.yaml", "tests:\n  - name: a\n    action: shape.resize\n")
	if _, err := executeCommand(t, "test", suite); err == nil {
		t.Fatal("expected error for invalid suite")
	}
	if _, err := executeCommand(t, "test", shippedSuite, "--format", "csv"); err == nil {
		t.Fatal("expected error for csv report")
	}
}
