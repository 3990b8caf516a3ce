// Package delivery aggregates shipping quotes across carriers. One call fans
// out to every configured carrier concurrently, converts failures into
// fallback options, and returns a deterministically ordered result so the
// checkout flow never blocks on a single carrier outage.
package delivery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zoocart/zoocart/internal/core"
	"github.com/zoocart/zoocart/internal/core/carrier"
)

const defaultCarrierTimeout = 5 * time.Second

// InvalidRequestError reports a structurally invalid quote request.
// Carrier outages never produce this; only caller input does.
type InvalidRequestError struct {
	Field string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid quote request: %s", e.Field)
}

// Aggregator fans a quote request out to all configured carriers.
type Aggregator struct {
	Carriers []carrier.Carrier
	Fallback FallbackTable

	// Timeout bounds each individual carrier call. A caller deadline
	// shorter than this wins.
	Timeout time.Duration
}

// NewAggregator wires carriers to the fallback table.
func NewAggregator(carriers []carrier.Carrier, fallback FallbackTable) *Aggregator {
	return &Aggregator{
		Carriers: carriers,
		Fallback: fallback,
		Timeout:  defaultCarrierTimeout,
	}
}

type carrierResult struct {
	option *core.DeliveryOption
	err    *carrier.Error
}

// Quote prices the shipment with every carrier and guarantees a non-empty,
// usable result under partial or total carrier failure. Only a structurally
// invalid request returns an error.
func (a *Aggregator) Quote(ctx context.Context, req core.QuoteRequest) (*core.QuoteSet, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]carrierResult, len(a.Carriers))
	done := make(chan int, len(a.Carriers))

	for i, c := range a.Carriers {
		go func(i int, c carrier.Carrier) {
			defer func() { done <- i }()
			results[i] = a.callCarrier(ctx, c, req)
		}(i, c)
	}
	for range a.Carriers {
		<-done
	}

	set := &core.QuoteSet{
		Options: make([]core.DeliveryOption, 0, len(a.Carriers)),
		Failed:  make([]core.ProviderID, 0),
	}

	for i, result := range results {
		if result.option != nil {
			set.Options = append(set.Options, *result.option)
			continue
		}

		provider := a.Carriers[i].Provider()
		set.Failed = append(set.Failed, provider)
		if fallback, ok := a.Fallback.Option(provider); ok {
			set.Options = append(set.Options, fallback)
		}
	}

	for i := range set.Options {
		applyFreeShipping(&set.Options[i], req.DeclaredValue)
	}

	sortOptions(set.Options)
	sortProviders(set.Failed)

	return set, nil
}

func (a *Aggregator) callCarrier(ctx context.Context, c carrier.Carrier, req core.QuoteRequest) carrierResult {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultCarrierTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	option, err := c.Quote(callCtx, req)
	if err != nil {
		return carrierResult{err: &carrier.Error{Provider: c.Provider(), Cause: err}}
	}
	if option.EtaMaxDays < option.EtaMinDays {
		option.EtaMaxDays = option.EtaMinDays
	}
	return carrierResult{option: option}
}

func validate(req core.QuoteRequest) error {
	if strings.TrimSpace(req.FromCity) == "" {
		return &InvalidRequestError{Field: "from_city"}
	}
	if strings.TrimSpace(req.ToCity) == "" {
		return &InvalidRequestError{Field: "to_city"}
	}
	if req.WeightKg <= 0 {
		return &InvalidRequestError{Field: "weight_kg"}
	}
	if req.DeclaredValue < 0 {
		return &InvalidRequestError{Field: "declared_value"}
	}
	return nil
}

func applyFreeShipping(option *core.DeliveryOption, declaredValue float64) {
	if option.FreeShippingThreshold <= 0 {
		return
	}
	if declaredValue >= option.FreeShippingThreshold {
		option.Price = 0
	}
}

// sortOptions orders by effective price, then shorter minimum ETA, then the
// fixed provider priority. The order is a pure function of the collected
// options, independent of carrier response arrival order.
func sortOptions(options []core.DeliveryOption) {
	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Price != options[j].Price {
			return options[i].Price < options[j].Price
		}
		if options[i].EtaMinDays != options[j].EtaMinDays {
			return options[i].EtaMinDays < options[j].EtaMinDays
		}
		return providerRank(options[i].Provider) < providerRank(options[j].Provider)
	})
}

func sortProviders(providers []core.ProviderID) {
	sort.Slice(providers, func(i, j int) bool {
		return providerRank(providers[i]) < providerRank(providers[j])
	})
}

func providerRank(provider core.ProviderID) int {
	for i, known := range core.ProviderPriority {
		if known == provider {
			return i
		}
	}
	return len(core.ProviderPriority)
}
