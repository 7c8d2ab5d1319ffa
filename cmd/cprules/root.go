package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cpathways/cprules/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cprules",
	Short: "cprules - clinical pathway modeling rules",
	Long: `cprules decides which modeling actions a clinical pathway diagram editor
may perform.

It answers the editor's rule queries:
  - shape.create: may a pathway element be dropped into this container?
  - elements.move: may these elements be moved?
  - connection.create: may these elements be connected, and as what type?
  - connection.reconnectStart / connection.reconnectEnd: may an edge be re-attached?

Every decision can be recorded in an audit trail and checked against
scenario suites.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnvFile,
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	// Global persistent flags (available to all subcommands).
	// An empty config path uses defaults plus CPRULES_* environment overrides.
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load CPRULES_* variables from a dotenv file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}

// loadEnvFile applies --env-file. Variables already set in the
// environment win over the file.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return cli.NewConfigError("env-file", err.Error())
	}
	return nil
}
