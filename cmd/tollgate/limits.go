package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tollgate-ai/tollgate/pkg/models"
)

func newLimitsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Show or change the spending and rate ceilings",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective cost limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openMeter(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			printLimits(m.CostLimits(context.Background()))
			return nil
		},
	}

	var (
		dailyUSD   float64
		monthlyUSD float64
		maxTokens  int
		maxPerDay  int
		maxPerHour int
		freeTier   bool
	)
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change cost limits (unset flags keep their current value)",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openMeter(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			ctx := context.Background()
			lim := m.CostLimits(ctx)

			if cmd.Flags().Changed("daily-usd") {
				lim.DailyLimitUSD = dailyUSD
			}
			if cmd.Flags().Changed("monthly-usd") {
				lim.MonthlyLimitUSD = monthlyUSD
			}
			if cmd.Flags().Changed("max-tokens") {
				lim.MaxTokensPerRequest = maxTokens
			}
			if cmd.Flags().Changed("max-per-day") {
				lim.MaxRequestsPerDay = maxPerDay
			}
			if cmd.Flags().Changed("max-per-hour") {
				lim.MaxRequestsPerHour = maxPerHour
			}
			if cmd.Flags().Changed("free-tier") {
				lim.IsFreeTierAccount = freeTier
			}

			m.SaveCostLimits(ctx, lim)

			// Re-read so the admin sees what is actually in effect.
			printLimits(m.CostLimits(ctx))
			return nil
		},
	}
	setCmd.Flags().Float64Var(&dailyUSD, "daily-usd", 0, "daily spend ceiling in USD")
	setCmd.Flags().Float64Var(&monthlyUSD, "monthly-usd", 0, "monthly spend ceiling in USD")
	setCmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "max input+output tokens per request")
	setCmd.Flags().IntVar(&maxPerDay, "max-per-day", 0, "max requests per calendar day")
	setCmd.Flags().IntVar(&maxPerHour, "max-per-hour", 0, "max requests per trailing hour")
	setCmd.Flags().BoolVar(&freeTier, "free-tier", false, "mark the account as free tier")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to tollgate config file")
	cmd.AddCommand(showCmd, setCmd)
	return cmd
}

func printLimits(lim models.CostLimits) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DAILY USD\tMONTHLY USD\tMAX TOKENS/REQ\tMAX REQ/DAY\tMAX REQ/HOUR\tFREE TIER")
	fmt.Fprintf(w, "$%.2f\t$%.2f\t%d\t%d\t%d\t%t\n",
		lim.DailyLimitUSD, lim.MonthlyLimitUSD, lim.MaxTokensPerRequest,
		lim.MaxRequestsPerDay, lim.MaxRequestsPerHour, lim.IsFreeTierAccount)
	_ = w.Flush()
}
