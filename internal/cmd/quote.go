package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zoocart/zoocart/internal/config"
	"github.com/zoocart/zoocart/internal/core"
	"github.com/zoocart/zoocart/internal/observability"
	"github.com/zoocart/zoocart/internal/output"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Fetch delivery quotes for a shipment",
	Long: `Fetch delivery quotes from all configured carriers for one shipment.

Carriers are queried concurrently; any carrier that fails or is not
configured is replaced by a static tariff estimate and listed as
unavailable in the output.`,
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().String("from", "", "origin city")
	quoteCmd.Flags().String("to", "", "destination city")
	quoteCmd.Flags().Float64("weight", 0, "parcel weight in kilograms")
	quoteCmd.Flags().Float64("value", 0, "declared parcel value")
	quoteCmd.Flags().String("output", "table", "Output format: table, json, markdown")
}

func runQuote(cmd *cobra.Command, args []string) error {
	fromCity, err := cmd.Flags().GetString("from")
	if err != nil {
		return err
	}
	toCity, err := cmd.Flags().GetString("to")
	if err != nil {
		return err
	}
	weight, err := cmd.Flags().GetFloat64("weight")
	if err != nil {
		return err
	}
	declaredValue, err := cmd.Flags().GetFloat64("value")
	if err != nil {
		return err
	}

	req := core.QuoteRequest{
		FromCity:      strings.TrimSpace(fromCity),
		ToCity:        strings.TrimSpace(toCity),
		WeightKg:      weight,
		DeclaredValue: declaredValue,
	}
	if req.FromCity == "" || req.ToCity == "" {
		return errors.New("both --from and --to are required")
	}
	if req.WeightKg <= 0 {
		return errors.New("--weight must be greater than zero")
	}

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}

	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}

	aggregator := buildAggregator(cfg)

	startedAt := time.Now()
	set, err := aggregator.Quote(cmd.Context(), req)
	if err != nil {
		return err
	}

	formatter := output.NewFormatter(format)
	rendered, err := formatter.FormatQuotes(&output.QuoteResult{
		Request: req,
		Options: set.Options,
		Failed:  set.Failed,
	})
	if err != nil {
		return err
	}
	if rendered != "" {
		fmt.Println(rendered)
	}

	if format != output.FormatJSON && observability.CLILogger != nil {
		observability.CLILogger.Info("Quote aggregation finished",
			zap.Int("options", len(set.Options)),
			zap.Int("failed", len(set.Failed)),
			zap.Duration("elapsed", time.Since(startedAt)))
	}
	return nil
}
