package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatQuotes renders one aggregation result as Markdown.
func (f *MarkdownFormatter) FormatQuotes(result *QuoteResult) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Delivery quotes: %s -> %s, %.1f kg\n\n",
		escapeMarkdownCell(result.Request.FromCity),
		escapeMarkdownCell(result.Request.ToCity),
		result.Request.WeightKg))
	sb.WriteString("| Carrier | Price | ETA | Source |\n")
	sb.WriteString("|---------|-------|-----|--------|\n")

	for _, option := range result.Options {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			escapeMarkdownCell(option.DisplayName),
			escapeMarkdownCell(priceLabel(option)),
			escapeMarkdownCell(etaLabel(option)),
			escapeMarkdownCell(sourceLabel(option)),
		))
	}

	if label := failedLabel(result.Failed); label != "" {
		sb.WriteString(fmt.Sprintf("\n**Note**: %s\n", label))
	}

	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
