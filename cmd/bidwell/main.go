// Copyright 2025 Bidwell Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Main entrypoint for the bidwell CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nextdoor/bidwell/internal/cache"
	"github.com/nextdoor/bidwell/internal/engine"
	"github.com/nextdoor/bidwell/internal/market"
	"github.com/nextdoor/bidwell/internal/reservations"
	"github.com/nextdoor/bidwell/pkg/aws"
	"github.com/nextdoor/bidwell/pkg/catalog"
	"github.com/nextdoor/bidwell/pkg/config"
	"github.com/nextdoor/bidwell/pkg/metrics"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath   string
		offerName    string
		countingMode string
	)

	cmd := &cobra.Command{
		Use:   "bidwell <region> <instance-type> [count]",
		Short: "Recommend spot or on-demand provisioning for an instance type",
		Long: `bidwell compares the current lowest spot price against the published
on-demand price for an instance type in a region, accounting for unused
reserved capacity, and recommends how to provision.`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			region, instanceType := args[0], args[1]
			count := 1
			if len(args) == 3 {
				var err error
				count, err = strconv.Atoi(args[2])
				if err != nil || count < 1 {
					return fmt.Errorf("invalid instance count %q: must be a positive integer", args[2])
				}
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if offerName != "" {
				cfg.Offer = offerName
			}
			if countingMode != "" {
				cfg.CountingMode = countingMode
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, flush, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer flush()

			return run(cmd.Context(), cmd, cfg, log, region, instanceType, count)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&offerName, "offer", "", "price list to consult (ec2 or emr)")
	cmd.Flags().StringVar(&countingMode, "counting-mode", "",
		"reserved capacity counting (reserved-only or net-of-running)")
	return cmd
}

// run wires the pricing session and prints the report.
func run(
	ctx context.Context,
	cmd *cobra.Command,
	cfg *config.Config,
	log logr.Logger,
	region, instanceType string,
	count int,
) error {
	client := aws.NewClient(aws.ClientConfig{HTTPTimeout: cfg.GetHTTPTimeout()})
	ec2, err := client.EC2(ctx, aws.AccountConfig{
		Region:        region,
		AssumeRoleARN: cfg.AssumeRoleARN,
	})
	if err != nil {
		return err
	}

	m := metrics.NewMetrics(prometheus.NewRegistry())
	store := cache.NewStore(cache.WithLookupHook(m.CacheLookupHook()))

	catalogOpts := []catalog.Option{
		catalog.WithTimeout(cfg.GetHTTPTimeout()),
		catalog.WithLogger(log.WithName("catalog")),
	}
	if cfg.CatalogEndpoint != "" {
		catalogOpts = append(catalogOpts, catalog.WithEndpoint(cfg.CatalogEndpoint))
	}

	eng, err := engine.New(ctx, engine.Params{
		Region:  region,
		Offer:   cfg.GetOffer(),
		EC2:     ec2,
		Catalog: catalog.NewClient(catalogOpts...),
		Market:  market.NewClient(ec2, region, cfg.GetSpotLookback(), log.WithName("market")),
		Reservations: reservations.NewCounter(
			ec2, cfg.GetCountingMode(), log.WithName("reservations")),
		Cache:          store,
		Metrics:        m,
		Log:            log.WithName("engine"),
		DemandPriceTTL: cfg.GetDemandPriceTTL(),
		SpotPriceTTL:   cfg.GetSpotPriceTTL(),
	})
	if err != nil {
		return err
	}

	rec, err := eng.Recommend(ctx, instanceType, count)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Region:                        %s\n", region)
	fmt.Fprintf(out, "Instance Type:                 %s\n", instanceType)
	fmt.Fprintf(out, "Instance Count:                %d\n", count)

	demand := rec.DemandPrice
	if rec.Reason == engine.ReasonReservedCapacity {
		// The engine skipped pricing; resolve the demand price through
		// the same cache just for display.
		demand, err = eng.DemandPrice(ctx, instanceType)
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Demand Price:                  $%s\n", demand.String())
	fmt.Fprintf(out, "Reserved Instances Available:  %d\n", rec.Reserved.Available)
	if rec.SpotPrice != nil {
		fmt.Fprintf(out, "Lowest Spot Price:             $%s (%s)\n",
			rec.SpotPrice.Price.String(), rec.SpotPrice.Zone)
	}

	switch {
	case rec.Reason == engine.ReasonReservedCapacity:
		fmt.Fprintf(out, "\nUse reserved capacity: %s.\n", rec.Reason)
	case rec.UseSpot:
		fmt.Fprintf(out, "\nUse the spot market with a bid of $%s (%s): %s.\n",
			rec.BidPrice.StringFixed(3), rec.Zone, rec.Reason)
	default:
		fmt.Fprintf(out, "\nUse on-demand instances: %s.\n", rec.Reason)
	}
	return nil
}

// newLogger builds a logr.Logger backed by zap at the configured level.
func newLogger(level string) (logr.Logger, func(), error) {
	var zapLevel zapcore.Level
	switch level {
	case "", "info":
		zapLevel = zapcore.InfoLevel
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return logr.Logger{}, nil, fmt.Errorf("invalid log level %q", level)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)
	zapCfg.OutputPaths = []string{"stderr"}
	zapLog, err := zapCfg.Build()
	if err != nil {
		return logr.Logger{}, nil, err
	}
	return zapr.NewLogger(zapLog), func() { _ = zapLog.Sync() }, nil
}
