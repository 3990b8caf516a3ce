package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders quotes as an ASCII table.
type TableFormatter struct{}

// FormatQuotes renders one aggregation result as a table.
func (f *TableFormatter) FormatQuotes(result *QuoteResult) (string, error) {
	if result == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s -> %s, %.1f kg", result.Request.FromCity, result.Request.ToCity, result.Request.WeightKg))
	t.AppendHeader(table.Row{"Carrier", "Price", "ETA", "Source"})

	for _, option := range result.Options {
		t.AppendRow(table.Row{
			option.DisplayName,
			priceLabel(option),
			etaLabel(option),
			sourceLabel(option),
		})
	}

	if label := failedLabel(result.Failed); label != "" {
		t.AppendFooter(table.Row{"", "", "", label})
	}

	return t.Render(), nil
}
