// Package main provides the intake binary entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/coverlight/intake/llm/providers"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	config   string
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Patent cover sheet extraction pipeline",
	Long: `Intake extracts structured filing records from patent cover sheet
documents. Every extracted value carries evidence pointing back at the
source text, and anything the pipeline cannot verify is flagged for
manual review instead of silently accepted.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.config, "config", "c", "", "Config file path (YAML)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
