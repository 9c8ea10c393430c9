package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"omnify/internal/logging"
)

var (
	// Global flags
	verbose    bool
	projectDir string

	// Logger shared by all commands, built in the persistent pre-run.
	logger *zap.Logger
)

// rootCmd is the omnify CLI entry point.
var rootCmd = &cobra.Command{
	Use:   "omnify",
	Short: "Schema scaffolding for omnify projects",
	Long: `omnify ships your project's data-model schemas to the generation
service and installs the returned bundle (models, migrations, TypeScript
types, policies) into the project tree.

Typical flow:

  omnify login          authenticate against the service
  omnify build          generate and install the bundle
  omnify generate-docs  reconcile combinatorial document records
  omnify render         fill a spreadsheet template from a record`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		if projectDir == "" {
			projectDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve working directory: %w", err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "project root (default: working directory)")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(generateDocsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
