package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ize202/slipshark/pkg/config"
	"github.com/ize202/slipshark/pkg/store"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		apiKey     string
		history    bool
		sinceDays  int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show research usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			st, err := store.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			ctx := context.Background()

			// Recent request detail view
			if history {
				since := time.Now().AddDate(0, 0, -sinceDays)
				records, err := st.History(ctx, apiKey, since)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Println("No research history found.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tMODE\tSPORT\tCONFIDENCE\tPOINTS\tLATENCY\tQUERY")
				for _, r := range records {
					status := fmt.Sprintf("%.2f", r.Confidence)
					if r.Failed {
						status = "failed"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%dms\t%s\n",
						r.CreatedAt.Format("2006-01-02T15:04:05"), r.Mode, r.Sport,
						status, r.DataPoints, r.LatencyMs, r.Query)
				}
				return w.Flush()
			}

			// Default: usage summary
			summaries, err := st.Summary(ctx, apiKey)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "API KEY\tMODE\tREQUESTS\tAVG CONFIDENCE\tAVG LATENCY")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.0fms\n",
					s.APIKey, s.Mode, s.RequestCount, s.AvgConfidence, s.AvgLatencyMs)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "slipshark.yaml", "path to config file")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "filter by API key")
	cmd.Flags().BoolVar(&history, "history", false, "list recent research requests")
	cmd.Flags().IntVar(&sinceDays, "days", 7, "history window in days")
	return cmd
}
