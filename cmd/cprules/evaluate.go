package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cpathways/cprules/pkg/cli"
	"cpathways/cprules/pkg/engine"
	"cpathways/cprules/pkg/model"
	"cpathways/cprules/pkg/rules"
)

var evaluateFlags struct {
	file             string
	action           string
	shape            string
	source           string
	target           string
	hover            string
	connectionSource string
	connectionTarget string
	fallback         string
	format           string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate modeling actions",
	Long: `Evaluate one or more modeling actions against the rules.

Requests come either from a file (--file) or from flags describing a single
action. A file holds one request or a list of requests, as JSON (.json) or
YAML (any other extension):

  - action: connection.create
    context:
      source: {type: "cp:DecisionLogic"}
      target: {type: "cp:EvidenceGateway"}

Examples:
  # Connect a decision to a gateway
  cprules evaluate --action connection.create --source cp:DecisionLogic --target cp:EvidenceGateway

  # Drop a gateway into a process
  cprules evaluate --action shape.create --shape cp:EvidenceGateway --target bpmn:Process

  # Re-attach the end of an existing connection
  cprules evaluate --action connection.reconnectEnd \
    --connection-source cp:DecisionLogic --hover cp:EvidenceGateway

  # Evaluate a file of requests as JSON
  cprules evaluate --file requests.yaml --format json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	f := evaluateCmd.Flags()
	f.StringVarP(&evaluateFlags.file, "file", "f", "", "request file (JSON or YAML)")
	f.StringVarP(&evaluateFlags.action, "action", "a", "", "action name, e.g. shape.create")
	f.StringVar(&evaluateFlags.shape, "shape", "", "type of the shape being created or moved")
	f.StringVar(&evaluateFlags.source, "source", "", "type of the source element")
	f.StringVar(&evaluateFlags.target, "target", "", "type of the target element")
	f.StringVar(&evaluateFlags.hover, "hover", "", "type of the hovered element")
	f.StringVar(&evaluateFlags.connectionSource, "connection-source", "", "source type of the existing connection")
	f.StringVar(&evaluateFlags.connectionTarget, "connection-target", "", "target type of the existing connection")
	f.StringVar(&evaluateFlags.fallback, "fallback", "", "override the fallback for deferred actions (allow, deny)")
	f.StringVar(&evaluateFlags.format, "format", "text", "output format: text, json, yaml, csv")
}

// decisionTable renders decisions as rows.
type decisionTable []*engine.Decision

func (t decisionTable) Header() []string {
	return []string{"action", "verdict", "permitted", "fallback", "error"}
}

func (t decisionTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, d := range t {
		rows = append(rows, []string{
			d.Action.String(),
			d.Verdict.String(),
			strconv.FormatBool(d.Permitted),
			strconv.FormatBool(d.Fallback),
			d.Error,
		})
	}
	return rows
}

// decisionDoc is the JSON and YAML shape of a decision.
type decisionDoc struct {
	Action     string        `json:"action" yaml:"action"`
	Verdict    rules.Verdict `json:"verdict" yaml:"verdict"`
	Permitted  bool          `json:"permitted" yaml:"permitted"`
	Fallback   bool          `json:"fallback" yaml:"fallback"`
	DurationUS int64         `json:"duration_us" yaml:"duration_us"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

func (t decisionTable) documents() []decisionDoc {
	docs := make([]decisionDoc, 0, len(t))
	for _, d := range t {
		docs = append(docs, decisionDoc{
			Action:     d.Action.String(),
			Verdict:    d.Verdict,
			Permitted:  d.Permitted,
			Fallback:   d.Fallback,
			DurationUS: d.Duration.Microseconds(),
			Error:      d.Error,
		})
	}
	return docs
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(evaluateFlags.format)
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}

	requests, err := evaluateRequests()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if evaluateFlags.fallback != "" {
		cfg.Rules.Fallback = evaluateFlags.fallback
	}

	logger := quietLogger(cmd.ErrOrStderr())
	eng, err := engine.New(newChain(&cfg.Rules, logger), engineConfig(&cfg.Rules), logger)
	if err != nil {
		return cli.NewConfigError("rules", err.Error())
	}

	var progress cli.ProgressReporter
	if len(requests) > 1 {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "evaluating")
		progress.Start(int64(len(requests)))
	}

	decisions := make(decisionTable, 0, len(requests))
	for i, req := range requests {
		d, err := eng.Evaluate(context.Background(), req)
		if err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("evaluate", fmt.Errorf("request %d: %w", i+1, err))
		}
		decisions = append(decisions, d)
		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}

	if format == cli.FormatText || format == cli.FormatCSV {
		return formatter.FormatTo(cmd.OutOrStdout(), decisions)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), decisions.documents())
}

// evaluateRequests builds requests from --file or from the context flags.
func evaluateRequests() ([]*engine.Request, error) {
	if evaluateFlags.file != "" {
		if evaluateFlags.action != "" {
			return nil, cli.NewConfigError("action", "--action cannot be combined with --file")
		}
		return readRequests(evaluateFlags.file)
	}

	if evaluateFlags.action == "" {
		return nil, cli.NewConfigError("action", "either --action or --file is required")
	}

	ctx := &model.Context{
		Shape:  nodeFlag(evaluateFlags.shape),
		Source: nodeFlag(evaluateFlags.source),
		Target: nodeFlag(evaluateFlags.target),
		Hover:  nodeFlag(evaluateFlags.hover),
	}
	if evaluateFlags.connectionSource != "" || evaluateFlags.connectionTarget != "" {
		ctx.Connection = &model.Node{
			Type:   model.KindConnection.Type(),
			Source: nodeFlag(evaluateFlags.connectionSource),
			Target: nodeFlag(evaluateFlags.connectionTarget),
		}
	}

	return []*engine.Request{{Action: evaluateFlags.action, Context: ctx}}, nil
}

func nodeFlag(typ string) *model.Node {
	if typ == "" {
		return nil
	}
	return &model.Node{Type: typ}
}

// readRequests decodes a single request or a list of requests.
func readRequests(path string) ([]*engine.Request, error) {
	// #nosec G304 - the request file is supplied by the operator.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	isJSON := strings.EqualFold(filepath.Ext(path), ".json")
	unmarshal := yaml.Unmarshal
	if isJSON {
		unmarshal = json.Unmarshal
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "-") {
		var list []*engine.Request
		if err := unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%s contains no requests", path)
		}
		return list, nil
	}

	var req engine.Request
	if err := unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return []*engine.Request{&req}, nil
}
