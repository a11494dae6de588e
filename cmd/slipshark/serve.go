package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ize202/slipshark/pkg/audit"
	"github.com/ize202/slipshark/pkg/budget"
	"github.com/ize202/slipshark/pkg/cache"
	"github.com/ize202/slipshark/pkg/config"
	"github.com/ize202/slipshark/pkg/providers"
	"github.com/ize202/slipshark/pkg/research"
	"github.com/ize202/slipshark/pkg/server"
	"github.com/ize202/slipshark/pkg/store"
	"github.com/ize202/slipshark/pkg/transformers"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the research API server",
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

			st, err := store.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer func() { _ = st.Close() }()

			llm := providers.NewChatClient(cfg.Providers.LLM, logger)
			search := providers.NewPerplexityClient(cfg.Providers.Search, logger)
			stats := providers.NewGoalserveClient(cfg.Providers.Stats, logger)

			gatherer := research.NewGatherer(cacheSvc, search, stats, logger)
			registry := transformers.NewRegistry(logger)
			chain := research.NewChain(llm, gatherer, registry, cacheSvc, logger)

			var enforcer *budget.Enforcer
			if cfg.Budget.Enabled {
				enforcer = budget.New(cfg.Budget.Policies, st)
			}

			var auditor *audit.Logger
			if cfg.Audit.Enabled {
				auditor, err = audit.New(cfg.Audit)
				if err != nil {
					return fmt.Errorf("init audit log: %w", err)
				}
				defer func() { _ = auditor.Close() }()
			}

			srv := server.New(cfg, chain, cacheSvc, st, enforcer, auditor, logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "slipshark.yaml", "path to config file")
	return cmd
}
