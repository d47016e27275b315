package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all recorded usage history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset is irreversible; re-run with --yes to confirm")
			}

			m, err := openMeter(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()

			m.ResetUsage(context.Background())
			fmt.Println("Usage history cleared.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to tollgate config file")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the irreversible reset")
	return cmd
}
