// Package cmd provides the CLI commands for azure-costs.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"azure-costs/internal/config"
	"azure-costs/internal/logging"
)

var (
	verbose bool

	cfg config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "azure-costs",
	Short: "Load Azure usage costs into Elasticsearch",
	Long: `azure-costs retrieves usage aggregates and tiered rate cards from the
Azure billing APIs, computes a cost per usage record, and bulk-loads the
enriched records into month-bucketed Elasticsearch indices.

Examples:
  azure-costs run <tenantId> <clientId> <clientSecret> 2024-03-01 2024-03-31 \
      MS-AZR-0003P https://elastic.example.com elastic secret
  azure-costs run ... -- -l 'properties.instanceData.Microsoft\.Resources.resourceUri'`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	cfg = config.FromEnv()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("azure-costs version 0.1.0")
	},
}
