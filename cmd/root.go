package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexlens/citelink/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "citelink",
	Short: "Legal case-citation extraction and verification",
	Long:  "Extracts case citations from court-document text, attributes each to the nearest case name and year, clusters parallel citations, and cross-checks them against an external case-law lookup service.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
