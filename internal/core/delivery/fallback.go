package delivery

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/zoocart/zoocart/internal/core"
)

//go:embed fallback_rates.yaml
var fallbackRatesYAML []byte

// FallbackRate is one row of the static quote table used when a live carrier
// call fails, times out, or has no configured credentials.
type FallbackRate struct {
	DisplayName           string  `yaml:"display_name"`
	BasePrice             float64 `yaml:"base_price"`
	EtaMinDays            int     `yaml:"eta_min_days"`
	EtaMaxDays            int     `yaml:"eta_max_days"`
	FreeShippingThreshold float64 `yaml:"free_shipping_threshold"`
}

// FallbackTable maps providers to their representative rates.
type FallbackTable map[core.ProviderID]FallbackRate

// LoadFallbackTable parses the embedded rate table and validates it.
func LoadFallbackTable() (FallbackTable, error) {
	table := FallbackTable{}
	if err := yaml.Unmarshal(fallbackRatesYAML, &table); err != nil {
		return nil, fmt.Errorf("parse fallback rates: %w", err)
	}

	for provider, rate := range table {
		if rate.EtaMinDays > rate.EtaMaxDays {
			return nil, fmt.Errorf("fallback rate for %s: eta range inverted (%d > %d)",
				provider, rate.EtaMinDays, rate.EtaMaxDays)
		}
		if rate.BasePrice < 0 {
			return nil, fmt.Errorf("fallback rate for %s: negative base price", provider)
		}
	}

	return table, nil
}

// Option synthesizes the fallback delivery option for a provider. The result
// is deterministic: same provider, same option, every call.
func (t FallbackTable) Option(provider core.ProviderID) (core.DeliveryOption, bool) {
	rate, ok := t[provider]
	if !ok {
		return core.DeliveryOption{}, false
	}

	return core.DeliveryOption{
		Provider:              provider,
		DisplayName:           rate.DisplayName,
		Price:                 rate.BasePrice,
		BasePrice:             rate.BasePrice,
		EtaMinDays:            rate.EtaMinDays,
		EtaMaxDays:            rate.EtaMaxDays,
		FreeShippingThreshold: rate.FreeShippingThreshold,
		IsFallback:            true,
	}, true
}

// Providers lists the providers present in the table in priority order,
// with any extras sorted alphabetically after the known set.
func (t FallbackTable) Providers() []core.ProviderID {
	seen := make(map[core.ProviderID]bool, len(t))
	ordered := make([]core.ProviderID, 0, len(t))

	for _, provider := range core.ProviderPriority {
		if _, ok := t[provider]; ok {
			ordered = append(ordered, provider)
			seen[provider] = true
		}
	}

	extras := make([]core.ProviderID, 0)
	for provider := range t {
		if !seen[provider] {
			extras = append(extras, provider)
		}
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i] < extras[j] })

	return append(ordered, extras...)
}
