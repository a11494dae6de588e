package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ize202/slipshark/pkg/budget"
	"github.com/ize202/slipshark/pkg/config"
	"github.com/ize202/slipshark/pkg/store"
)

func newBudgetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage research budgets and policies",
	}

	var apiKey string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show budget usage vs limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !cfg.Budget.Enabled {
				fmt.Println("Budget enforcement is disabled.")
				return nil
			}

			st, err := store.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			enforcer := budget.New(cfg.Budget.Policies, st)

			key := apiKey
			if key == "" {
				key = "*"
			}

			statuses, err := enforcer.Status(context.Background(), key)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Println("No budget policies found for this key.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "API KEY\tMODE\tPERIOD\tMAX REQUESTS\tUSED\tREMAINING")
			for _, s := range statuses {
				mode := string(s.Policy.Mode)
				if mode == "" {
					mode = "all"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					s.Policy.APIKey, mode, s.Policy.Period, s.Policy.MaxRequests, s.Used, s.Remaining)
			}
			return w.Flush()
		},
	}
	statusCmd.Flags().StringVar(&apiKey, "api-key", "", "filter by API key")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "slipshark.yaml", "path to config file")
	cmd.AddCommand(statusCmd)
	return cmd
}
