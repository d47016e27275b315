package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tollgate-ai/tollgate/pkg/models"
)

func newExportCmd() *cobra.Command {
	var (
		configPath string
		from       string
		to         string
		asCSV      bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump usage records, optionally filtered by an inclusive date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			var start, end time.Time
			var err error
			if from != "" {
				start, err = time.Parse("2006-01-02", from)
				if err != nil {
					return fmt.Errorf("invalid --from date (use YYYY-MM-DD): %w", err)
				}
			}
			if to != "" {
				end, err = time.Parse("2006-01-02", to)
				if err != nil {
					return fmt.Errorf("invalid --to date (use YYYY-MM-DD): %w", err)
				}
			}

			m, err := openMeter(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			records := m.ExportUsage(context.Background(), start, end)
			if asCSV {
				return writeCSV(os.Stdout, records)
			}
			return writeTable(records)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to tollgate config file")
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD, inclusive)")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}

func writeCSV(out io.Writer, records []models.UsageRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"timestamp", "model_id", "input_tokens", "output_tokens",
		"estimated_cost", "operation", "user_id", "ticket_id"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.ModelID,
			strconv.Itoa(r.InputTokens),
			strconv.Itoa(r.OutputTokens),
			strconv.FormatFloat(r.EstimatedCost, 'f', -1, 64),
			r.Operation,
			r.UserID,
			r.TicketID,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeTable(records []models.UsageRecord) error {
	if len(records) == 0 {
		fmt.Println("No usage records found.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tMODEL\tOPERATION\tINPUT\tOUTPUT\tCOST\tUSER\tTICKET")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t$%.6f\t%s\t%s\n",
			r.Timestamp.Format("2006-01-02T15:04:05"), r.ModelID, r.Operation,
			r.InputTokens, r.OutputTokens, r.EstimatedCost, r.UserID, r.TicketID)
	}
	return w.Flush()
}
