package output

import (
	"fmt"
	"strings"

	"github.com/zoocart/zoocart/internal/core"
)

// QuoteResult bundles one aggregation call for rendering.
type QuoteResult struct {
	Request core.QuoteRequest     `json:"request"`
	Options []core.DeliveryOption `json:"options"`
	Failed  []core.ProviderID     `json:"failed_providers,omitempty"`
}

func priceLabel(option core.DeliveryOption) string {
	if option.Price == 0 && option.BasePrice > 0 {
		return fmt.Sprintf("FREE (was %.0f)", option.BasePrice)
	}
	return fmt.Sprintf("%.0f", option.Price)
}

func etaLabel(option core.DeliveryOption) string {
	if option.EtaMinDays == option.EtaMaxDays {
		return fmt.Sprintf("%d days", option.EtaMinDays)
	}
	return fmt.Sprintf("%d-%d days", option.EtaMinDays, option.EtaMaxDays)
}

func sourceLabel(option core.DeliveryOption) string {
	if option.IsFallback {
		return "estimate"
	}
	return "live"
}

func failedLabel(failed []core.ProviderID) string {
	if len(failed) == 0 {
		return ""
	}
	names := make([]string, 0, len(failed))
	for _, provider := range failed {
		names = append(names, string(provider))
	}
	return "unavailable: " + strings.Join(names, ", ")
}
