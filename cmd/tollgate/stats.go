package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show spend and usage statistics against the configured limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openMeter(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			stats := m.CostStatistics(context.Background())

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PERIOD\tREQUESTS\tINPUT\tOUTPUT\tCOST\tLIMIT")
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t$%.4f\t$%.2f\n",
				stats.DailyUsage.Period, stats.DailyUsage.RequestCount,
				stats.DailyUsage.TotalInputTokens, stats.DailyUsage.TotalOutputTokens,
				stats.DailyUsage.TotalCost, stats.Limits.DailyLimitUSD)
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t$%.4f\t$%.2f\n",
				stats.MonthlyUsage.Period, stats.MonthlyUsage.RequestCount,
				stats.MonthlyUsage.TotalInputTokens, stats.MonthlyUsage.TotalOutputTokens,
				stats.MonthlyUsage.TotalCost, stats.Limits.MonthlyLimitUSD)
			if err := w.Flush(); err != nil {
				return err
			}

			if len(stats.DailyUsage.Operations) > 0 {
				fmt.Println("\nToday by operation:")
				ops := make([]string, 0, len(stats.DailyUsage.Operations))
				for op := range stats.DailyUsage.Operations {
					ops = append(ops, op)
				}
				sort.Strings(ops)
				w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "OPERATION\tREQUESTS")
				for _, op := range ops {
					fmt.Fprintf(w, "%s\t%d\n", op, stats.DailyUsage.Operations[op])
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			if len(stats.RecentUsage) == 0 {
				fmt.Println("\nNo recent activity.")
				return nil
			}

			fmt.Println("\nRecent activity:")
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tMODEL\tOPERATION\tINPUT\tOUTPUT\tCOST")
			for _, r := range stats.RecentUsage {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t$%.6f\n",
					r.Timestamp.Format("2006-01-02T15:04:05"), r.ModelID, r.Operation,
					r.InputTokens, r.OutputTokens, r.EstimatedCost)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to tollgate config file")
	return cmd
}
