package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tollgate-ai/tollgate/pkg/config"
	"github.com/tollgate-ai/tollgate/pkg/meter"
	"github.com/tollgate-ai/tollgate/pkg/pricing"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "tollgate",
		Short:   "Tollgate — LLM spend metering and cost-based admission control",
		Version: version,
	}

	root.AddCommand(
		newStatsCmd(),
		newLimitsCmd(),
		newExportCmd(),
		newResetCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openMeter loads the config (defaults when no path is given) and opens the
// meter over its database.
func openMeter(configPath string) (*meter.Meter, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}
	return meter.Open(cfg.DBPath, meter.WithPricing(pricing.New(cfg.Pricing)))
}
