package main

import (
	"github.com/spf13/cobra"

	"cpathways/cprules/pkg/cli"
	"cpathways/cprules/pkg/engine"
	"cpathways/cprules/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the rules to MCP clients over stdio",
	Long: `Serve the rule engine over the Model Context Protocol on stdin and stdout.

Tools:
  evaluate     decide one modeling action
  list_rules   registered decision functions per action

Resources:
  cprules://rules

Logs go to stderr so they never mix with protocol messages.

Examples:
  cprules mcp
  cprules mcp --config /etc/cprules/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(&cfg.Telemetry.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	eng, err := engine.New(newChain(&cfg.Rules, logger), engineConfig(&cfg.Rules), logger)
	if err != nil {
		return cli.NewConfigError("rules", err.Error())
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	logger.Info("mcp server starting", "version", Version, "fallback", cfg.Rules.Fallback)
	if err := mcp.NewServer(eng, Version, logger).Listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return cli.NewCommandError("mcp", err)
	}
	return nil
}
