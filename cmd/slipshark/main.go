package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "slipshark",
		Short:   "Slipshark — sports betting research service",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newResearchCmd(),
		newStatsCmd(),
		newCacheCmd(),
		newBudgetCmd(),
		newAuditCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
