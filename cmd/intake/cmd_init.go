package main

import (
	"github.com/spf13/cobra"

	"github.com/coverlight/intake/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter user configuration",
	Long: `Init writes the default configuration to ~/.config/intake/config.yaml
unless one already exists.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(rootFlags.logLevel)
		return config.NewLoader(logger).EnsureUserConfig()
	},
}
