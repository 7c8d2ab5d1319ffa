package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"cpathways/cprules/pkg/cli"
	"cpathways/cprules/pkg/rules"
)

var rulesFlags struct {
	format string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List registered rules",
	Long: `List every modeling action with the number of decision functions
registered for it and the priority of the clinical pathway rules.

Examples:
  cprules rules
  cprules rules --format json`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().StringVar(&rulesFlags.format, "format", "text", "output format: text, json, yaml, csv")
}

// ruleEntry describes the rules registered for one action.
type ruleEntry struct {
	Action   string `json:"action" yaml:"action"`
	Rules    int    `json:"rules" yaml:"rules"`
	Priority int    `json:"priority" yaml:"priority"`
}

type ruleTable []ruleEntry

func (t ruleTable) Header() []string { return []string{"action", "rules", "priority"} }

func (t ruleTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		rows = append(rows, []string{e.Action, strconv.Itoa(e.Rules), strconv.Itoa(e.Priority)})
	}
	return rows
}

func runRules(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(rulesFlags.format))
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	chain := rules.NewChain(quietLogger(cmd.ErrOrStderr()))
	provider := rules.NewCPRulesAt(chain, cfg.Rules.Priority)

	table := make(ruleTable, 0, len(rules.Actions()))
	for _, action := range rules.Actions() {
		table = append(table, ruleEntry{
			Action:   action.String(),
			Rules:    chain.Len(action),
			Priority: provider.Priority(),
		})
	}

	return formatter.FormatTo(cmd.OutOrStdout(), table)
}
