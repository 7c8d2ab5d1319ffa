package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cpathways/cprules/pkg/audit"
	"cpathways/cprules/pkg/audit/export"
	"cpathways/cprules/pkg/audit/retention"
	"cpathways/cprules/pkg/cli"
	"cpathways/cprules/pkg/rules"
)

var auditFlags struct {
	action    string
	verdict   string
	session   string
	status    string
	permitted string
	since     time.Duration
	start     string
	end       string
	limit     int
	offset    int
	sort      string
	format    string
	exportFmt string
	output    string

	days       int
	maxRecords int64
	archive    bool
	dryRun     bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the decision audit trail",
	Long: `Query, export and prune recorded rule decisions.

Subcommands:
  query   - List decisions matching filters
  export  - Write matching decisions to JSON or CSV
  prune   - Apply the retention policy now

Time Format:
  --start and --end take RFC 3339 timestamps, e.g. 2026-10-01T00:00:00Z.
  --since takes a duration relative to now, e.g. 24h.`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit records",
	Long: `Query audit records with filters.

Examples:
  # Denied connections in the last day
  cprules audit query --action connection.create --permitted false --since 24h

  # Decisions of one editing session, oldest first
  cprules audit query --session s-42 --sort asc

  # As JSON
  cprules audit query --verdict qualified --format json`,
	Args: cobra.NoArgs,
	RunE: runAuditQuery,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records",
	Long: `Export every audit record matching the filters as JSON or CSV.

Examples:
  cprules audit export --format csv --output decisions.csv
  cprules audit export --since 720h --format json`,
	Args: cobra.NoArgs,
	RunE: runAuditExport,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune audit records now",
	Long: `Delete audit records outside the retention policy without waiting for
the scheduled run. Flags override audit.retention from the configuration.

Examples:
  cprules audit prune
  cprules audit prune --days 30 --archive
  cprules audit prune --max-records 100000 --dry-run`,
	Args: cobra.NoArgs,
	RunE: runAuditPrune,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditExportCmd, auditPruneCmd)

	for _, cmd := range []*cobra.Command{auditQueryCmd, auditExportCmd} {
		f := cmd.Flags()
		f.StringVar(&auditFlags.action, "action", "", "filter by action")
		f.StringVar(&auditFlags.verdict, "verdict", "", "filter by verdict (allow, deny, defer, qualified)")
		f.StringVar(&auditFlags.session, "session", "", "filter by session ID")
		f.StringVar(&auditFlags.status, "status", "", "filter by status (success, error)")
		f.StringVar(&auditFlags.permitted, "permitted", "", "filter by final answer (true, false)")
		f.DurationVar(&auditFlags.since, "since", 0, "only records newer than this duration")
		f.StringVar(&auditFlags.start, "start", "", "start time (RFC 3339)")
		f.StringVar(&auditFlags.end, "end", "", "end time (RFC 3339)")
		f.StringVar(&auditFlags.sort, "sort", "desc", "sort order by evaluation time (asc, desc)")
		f.StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")
	}
	auditQueryCmd.Flags().IntVar(&auditFlags.limit, "limit", 50, "max results")
	auditQueryCmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json, csv")
	auditExportCmd.Flags().StringVar(&auditFlags.exportFmt, "format", "json", "export format: json, csv")

	f := auditPruneCmd.Flags()
	f.IntVar(&auditFlags.days, "days", -1, "retention in days (default: from config)")
	f.Int64Var(&auditFlags.maxRecords, "max-records", -1, "maximum records to keep (default: from config)")
	f.BoolVar(&auditFlags.archive, "archive", false, "archive records before deleting them")
	f.BoolVar(&auditFlags.dryRun, "dry-run", false, "report what would be deleted")
}

// recordTable renders audit records as rows.
type recordTable []*audit.Record

func (t recordTable) Header() []string {
	return []string{"evaluated_at", "action", "verdict", "permitted", "fallback", "session", "error"}
}

func (t recordTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		verdict := r.Verdict
		if r.ConnectionType != "" {
			verdict += "(" + r.ConnectionType + ")"
		}
		rows = append(rows, []string{
			r.EvaluatedAt.UTC().Format(time.RFC3339),
			r.Action,
			verdict,
			strconv.FormatBool(r.Permitted),
			strconv.FormatBool(r.Fallback),
			r.SessionID,
			r.Error,
		})
	}
	return rows
}

// buildAuditQuery turns the filter flags into a validated query.
func buildAuditQuery(now time.Time) (*audit.Query, error) {
	q := &audit.Query{
		Action:    auditFlags.action,
		Verdict:   auditFlags.verdict,
		SessionID: auditFlags.session,
		Status:    auditFlags.status,
		SortOrder: auditFlags.sort,
	}

	if q.Action != "" {
		if _, err := rules.ParseAction(q.Action); err != nil {
			return nil, cli.NewConfigError("action", err.Error())
		}
	}

	if auditFlags.permitted != "" {
		b, err := strconv.ParseBool(auditFlags.permitted)
		if err != nil {
			return nil, cli.NewConfigError("permitted", fmt.Sprintf("invalid value %q", auditFlags.permitted))
		}
		q.Permitted = &b
	}

	if auditFlags.since > 0 && auditFlags.start != "" {
		return nil, cli.NewConfigError("since", "--since cannot be combined with --start")
	}
	if auditFlags.since > 0 {
		start := now.Add(-auditFlags.since)
		q.StartTime = &start
	}
	if auditFlags.start != "" {
		t, err := time.Parse(time.RFC3339, auditFlags.start)
		if err != nil {
			return nil, cli.NewConfigError("start", err.Error())
		}
		q.StartTime = &t
	}
	if auditFlags.end != "" {
		t, err := time.Parse(time.RFC3339, auditFlags.end)
		if err != nil {
			return nil, cli.NewConfigError("end", err.Error())
		}
		q.EndTime = &t
	}

	if err := audit.ValidateQuery(q); err != nil {
		return nil, cli.NewConfigError("query", err.Error())
	}
	return q, nil
}

// openAuditStorage opens the configured audit backend for a one-shot command.
func openAuditStorage() (audit.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Audit.Backend == "memory" {
		return nil, cli.NewConfigError("audit.backend", "the memory backend only lives inside a running service")
	}
	return openStorage(&cfg.Audit)
}

// outputWriter returns the --output file or w.
func outputWriter(w io.Writer) (io.Writer, func() error, error) {
	if auditFlags.output == "" {
		return w, func() error { return nil }, nil
	}
	// #nosec G304 - output path is supplied by the operator.
	f, err := os.Create(auditFlags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", auditFlags.output, err)
	}
	return f, f.Close, nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	q, err := buildAuditQuery(time.Now())
	if err != nil {
		return err
	}
	q.Limit = auditFlags.limit
	q.Offset = auditFlags.offset
	if err := audit.ValidateQuery(q); err != nil {
		return cli.NewConfigError("limit", err.Error())
	}

	format, err := cli.ParseOutputFormat(auditFlags.format)
	if err != nil {
		return err
	}

	store, err := openAuditStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	w, closeOut, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	if err := writeRecords(cmd.Context(), w, format, records); err != nil {
		_ = closeOut()
		return cli.NewCommandError("audit query", err)
	}
	return closeOut()
}

func writeRecords(ctx context.Context, w io.Writer, format cli.OutputFormat, records []*audit.Record) error {
	switch format {
	case cli.FormatJSON:
		return export.NewJSONExporter(true).Export(ctx, records, w)
	case cli.FormatCSV:
		return export.NewCSVExporter(true).Export(ctx, records, w)
	case cli.FormatText:
		if len(records) == 0 {
			_, err := fmt.Fprintln(w, "No matching records")
			return err
		}
		return (&cli.TextFormatter{}).FormatTo(w, recordTable(records))
	default:
		return cli.NewConfigError("format", fmt.Sprintf("%s is not supported for audit records", format))
	}
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	q, err := buildAuditQuery(time.Now())
	if err != nil {
		return err
	}

	format, err := cli.ParseOutputFormat(auditFlags.exportFmt)
	if err != nil {
		return err
	}
	if format != cli.FormatJSON && format != cli.FormatCSV {
		return cli.NewConfigError("format", "export supports json and csv")
	}

	store, err := openAuditStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Query(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}

	w, closeOut, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if err := writeRecords(cmd.Context(), w, format, records); err != nil {
		_ = closeOut()
		return cli.NewCommandError("audit export", err)
	}
	if err := closeOut(); err != nil {
		return cli.NewCommandError("audit export", err)
	}

	if auditFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", len(records), auditFlags.output)
	}
	return nil
}

func runAuditPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Audit.Backend == "memory" {
		return cli.NewConfigError("audit.backend", "the memory backend only lives inside a running service")
	}

	rc := retentionConfig(&cfg.Audit.Retention)
	if auditFlags.days >= 0 {
		rc.RetentionDays = auditFlags.days
	}
	if auditFlags.maxRecords >= 0 {
		rc.MaxRecords = auditFlags.maxRecords
	}
	if auditFlags.archive {
		rc.ArchiveBeforeDelete = true
	}
	if rc.RetentionDays == 0 && rc.MaxRecords == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Retention is disabled; nothing to prune")
		return nil
	}

	store, err := openStorage(&cfg.Audit)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if auditFlags.dryRun {
		return reportPrunable(ctx, out, store, rc, time.Now())
	}

	deleted, err := retention.NewPruner(store, rc, quietLogger(cmd.ErrOrStderr())).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}
	fmt.Fprintf(out, "Pruned %d records\n", deleted)
	return nil
}

// reportPrunable prints how many records each retention rule would delete.
func reportPrunable(ctx context.Context, w io.Writer, store audit.Storage, rc *retention.Config, now time.Time) error {
	var byAge int64
	if rc.RetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -rc.RetentionDays)
		n, err := store.Count(ctx, &audit.Query{EndTime: &cutoff})
		if err != nil {
			return cli.NewCommandError("audit prune", err)
		}
		byAge = n
		fmt.Fprintf(w, "Older than %d days: %d records\n", rc.RetentionDays, n)
	}

	if rc.MaxRecords > 0 {
		total, err := store.Count(ctx, &audit.Query{})
		if err != nil {
			return cli.NewCommandError("audit prune", err)
		}
		over := total - byAge - rc.MaxRecords
		if over < 0 {
			over = 0
		}
		fmt.Fprintf(w, "Above %d records: %d records\n", rc.MaxRecords, over)
	}

	fmt.Fprintln(w, "Dry run; nothing deleted")
	return nil
}
