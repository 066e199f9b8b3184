package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env        string
	modelsFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "finsight",
	Short: "Finsight - financial forecasting toolkit",
	Long: `Finsight Unified CLI

Forecasts business metrics (revenue, sales, expenses, profit, cashflow, demand)
from CSV, Excel or JSON files and from Indian equity research sources.

Usage:
  go run ./cmd/finsight [command]

Examples:
  go run ./cmd/finsight api
  go run ./cmd/finsight forecast data.csv --model auto
  go run ./cmd/finsight evaluate data.csv --horizon 30
  go run ./cmd/finsight fetch yahoo --ticker RELIANCE.NS`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().StringVar(&modelsFile, "models", "", "model config YAML (default: MODELS_FILE or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
