package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

type ruleTable []struct {
	action string
	rules  int
}

func (t ruleTable) Header() []string { return []string{"action", "rules"} }

func (t ruleTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{r.action, fmt.Sprint(r.rules)})
	}
	return rows
}

var sampleTable = ruleTable{
	{"shape.create", 1},
	{"connection.reconnectStart", 2},
}

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}

	got, err := formatter.Format("hello")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if string(got) != "hello\n" {
		t.Errorf("Format() = %q, want %q", got, "hello\n")
	}
}

func TestTextFormatterTable(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTo(&buf, sampleTable); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "ACTION") {
		t.Errorf("header = %q, want upper-cased column names", lines[0])
	}

	// Columns are aligned on the widest action name.
	col := strings.Index(lines[2], "2")
	if strings.Index(lines[1], "1") != col || strings.Index(lines[0], "RULES") != col {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	data := map[string]any{"action": "elements.move", "permitted": true}

	tests := []struct {
		name   string
		indent bool
	}{
		{"compact", false},
		{"indented", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := (&JSONFormatter{Indent: tt.indent}).Format(data)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			var decoded map[string]any
			if err := json.Unmarshal(got, &decoded); err != nil {
				t.Fatalf("output is not valid JSON: %v", err)
			}
			if decoded["action"] != "elements.move" {
				t.Errorf("action = %v, want elements.move", decoded["action"])
			}
			if strings.Contains(string(got), "\n") != tt.indent {
				t.Errorf("indentation mismatch in %q", got)
			}
		})
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := struct {
		Action  string `yaml:"action"`
		Verdict string `yaml:"verdict"`
	}{"connection.create", "qualified"}

	if err := (&YAMLFormatter{}).FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	want := "action: connection.create\nverdict: qualified\n"
	if buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}
}

func TestCSVFormatter(t *testing.T) {
	formatter := &CSVFormatter{}

	got, err := formatter.Format(sampleTable)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "action,rules\nshape.create,1\nconnection.reconnectStart,2\n"
	if string(got) != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}

	if _, err := formatter.Format("not a table"); err == nil {
		t.Error("Format() expected error for non-table data, got nil")
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format  OutputFormat
		want    string
		wantErr bool
	}{
		{FormatText, "*cli.TextFormatter", false},
		{"", "*cli.TextFormatter", false},
		{FormatJSON, "*cli.JSONFormatter", false},
		{"JSON", "*cli.JSONFormatter", false},
		{FormatYAML, "*cli.YAMLFormatter", false},
		{FormatCSV, "*cli.CSVFormatter", false},
		{"junit", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			formatter, err := NewFormatter(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewFormatter(%q) expected error", tt.format)
				}
				if ExitCode(err) != ExitUsage {
					t.Errorf("ExitCode() = %d, want %d", ExitCode(err), ExitUsage)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFormatter(%q) error = %v", tt.format, err)
			}
			if got := fmt.Sprintf("%T", formatter); got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}
