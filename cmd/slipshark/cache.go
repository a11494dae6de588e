package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ize202/slipshark/pkg/cache"
	"github.com/ize202/slipshark/pkg/config"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the research cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache configuration and remote status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			svc := cache.NewService(cfg.Cache, zap.NewNop())
			defer func() { _ = svc.Close() }()

			stats := svc.Stats()
			fmt.Printf("Enabled:        %t\n", cfg.Cache.Enabled)
			fmt.Printf("Remote (Redis): %t\n", stats.RemoteEnabled)
			fmt.Printf("Default TTL:    %s\n", cfg.Cache.DefaultTTL)
			fmt.Printf("Local limits:   %d per tier, %d total\n", cfg.Cache.LocalMaxSize, cfg.Cache.LocalMaxTotal)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached research entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			svc := cache.NewService(cfg.Cache, zap.NewNop())
			defer func() { _ = svc.Close() }()

			deleted, err := svc.Clear(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Cleared %d remote cache entries.\n", deleted)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "slipshark.yaml", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
