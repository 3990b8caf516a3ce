package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/zoocart/zoocart/internal/config"
	"github.com/zoocart/zoocart/internal/core"
	"github.com/zoocart/zoocart/internal/core/store"
	"github.com/zoocart/zoocart/internal/output"
)

var (
	usageOutput string
	usageDays   int
	usageAudits int
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show AI usage and recent quote history",
	Long: `Show persisted per-day AI request counts and the most recent
delivery quote audit entries from the local store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(usageOutput)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		days, err := db.AIUsageDays(cmd.Context(), usageDays)
		if err != nil {
			return err
		}
		audits, err := db.RecentQuoteAudits(cmd.Context(), usageAudits)
		if err != nil {
			return err
		}

		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(map[string]any{
				"ai_usage":     days,
				"quote_audits": audits,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		}

		renderUsageTables(days, audits)
		return nil
	},
}

func renderUsageTables(days []store.AIUsageDay, audits []core.QuoteAudit) {
	if len(days) == 0 && len(audits) == 0 {
		fmt.Print(ascii.DrawBox("Usage\n\n(no stored usage data)", 0))
		return
	}

	if len(days) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("AI usage by day")
		t.AppendHeader(table.Row{"Day", "Requests", "Updated"})
		for _, day := range days {
			t.AppendRow(table.Row{day.Day, day.RequestCount, day.UpdatedAt.Format(time.RFC3339)})
		}
		t.Render()
	}

	if len(audits) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.SetTitle("Recent delivery quotes")
		t.AppendHeader(table.Row{"Quoted", "Provider", "Route", "Weight", "Price", "Source"})
		for _, audit := range audits {
			price := fmt.Sprintf("%.0f", audit.EffectivePrice)
			if audit.EffectivePrice == 0 && audit.BasePrice > 0 {
				price = fmt.Sprintf("FREE (was %.0f)", audit.BasePrice)
			}
			source := "live"
			if audit.IsFallback {
				source = "estimate"
			}
			t.AppendRow(table.Row{
				audit.QuotedAt.Format("2006-01-02 15:04"),
				string(audit.Provider),
				fmt.Sprintf("%s -> %s", audit.FromCity, audit.ToCity),
				fmt.Sprintf("%.1f kg", audit.WeightKg),
				price,
				source,
			})
		}
		t.Render()
	}
}

// openStore loads configuration and opens the local store for CLI commands.
func openStore(ctx context.Context) (*store.Store, error) {
	cfg := config.GetConfig()
	if cfg == nil {
		loaded, err := config.Load(ctx)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().StringVar(&usageOutput, "output", string(output.FormatTable), "Output format: table|json")
	usageCmd.Flags().IntVar(&usageDays, "days", 30, "Number of usage days to show")
	usageCmd.Flags().IntVar(&usageAudits, "audits", 20, "Number of recent quote audits to show")
}
