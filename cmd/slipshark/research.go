package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ize202/slipshark/pkg/cache"
	"github.com/ize202/slipshark/pkg/config"
	"github.com/ize202/slipshark/pkg/models"
	"github.com/ize202/slipshark/pkg/providers"
	"github.com/ize202/slipshark/pkg/research"
	"github.com/ize202/slipshark/pkg/transformers"
)

// newResearchCmd runs one research query from the terminal without the HTTP
// server.
func newResearchCmd() *cobra.Command {
	var (
		configPath string
		mode       string
		deep       bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "research [query]",
		Short: "Run a one-off research query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			cacheSvc := cache.NewService(cfg.Cache, logger)
			defer func() { _ = cacheSvc.Close() }()

			llm := providers.NewChatClient(cfg.Providers.LLM, logger)
			search := providers.NewPerplexityClient(cfg.Providers.Search, logger)
			stats := providers.NewGoalserveClient(cfg.Providers.Stats, logger)

			gatherer := research.NewGatherer(cacheSvc, search, stats, logger)
			chain := research.NewChain(llm, gatherer, transformers.NewRegistry(logger), cacheSvc, logger)

			req := &models.ResearchRequest{
				Query:     strings.Join(args, " "),
				Mode:      models.ResearchMode(mode),
				ForceDeep: deep,
			}

			result, err := chain.ProcessQuery(context.Background(), req)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			printResult(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "slipshark.yaml", "path to config file")
	cmd.Flags().StringVar(&mode, "mode", "auto", "research mode (auto, quick, deep)")
	cmd.Flags().BoolVar(&deep, "deep", false, "force deep research")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func printResult(result *models.Result) {
	if result.Conversational != "" {
		fmt.Println(result.Conversational)
		fmt.Println()
	}

	switch {
	case result.Quick != nil:
		fmt.Printf("Summary: %s\n", result.Quick.Summary)
		for _, point := range result.Quick.KeyPoints {
			fmt.Printf("  - %s\n", point)
		}
		fmt.Printf("Confidence: %.2f\n", result.Quick.Confidence)
		if result.Quick.DeepResearchRecommended {
			fmt.Println("Deep research recommended; rerun with --deep.")
		}
		printCitations(result.Quick.Citations)
	case result.Deep != nil:
		fmt.Printf("Summary: %s\n", result.Deep.Summary)
		for _, insight := range result.Deep.Insights {
			fmt.Printf("  [%s] %s\n", insight.Category, insight.Insight)
		}
		for _, risk := range result.Deep.RiskFactors {
			fmt.Printf("  risk (%s): %s\n", risk.Severity, risk.Factor)
		}
		if result.Deep.RecommendedBet != "" {
			fmt.Printf("Recommended bet: %s\n", result.Deep.RecommendedBet)
		}
		fmt.Printf("Confidence: %.2f\n", result.Deep.Confidence)
		printCitations(result.Deep.Citations)
	}

	fmt.Printf("Mode: %s  Processing: %dms\n", result.Mode, result.ProcessingMs)
}

func printCitations(citations []models.Citation) {
	if len(citations) == 0 {
		return
	}
	fmt.Println("Sources:")
	for _, c := range citations {
		fmt.Printf("  %s\n", c.URL)
	}
}
