package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/recommend-consensus/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "recommend-consensus",
	Short: "Multi-provider recommendation consensus server",
	Long:  "Orchestrates multiple LLM providers in parallel to recommend nearby places, cross-validates their output, enriches it against a real places provider, and caches results on a geographic grid.",
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
