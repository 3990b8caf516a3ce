package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zoocart/zoocart/internal/core"
	"github.com/zoocart/zoocart/internal/core/carrier"
)

type stubCarrier struct {
	provider core.ProviderID
	option   *core.DeliveryOption
	err      error
	delay    time.Duration
}

func (s *stubCarrier) Provider() core.ProviderID { return s.provider }

func (s *stubCarrier) Quote(ctx context.Context, req core.QuoteRequest) (*core.DeliveryOption, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	option := *s.option
	return &option, nil
}

func liveOption(provider core.ProviderID, price float64, etaMin, etaMax int) *core.DeliveryOption {
	return &core.DeliveryOption{
		Provider:    provider,
		DisplayName: string(provider),
		Price:       price,
		BasePrice:   price,
		EtaMinDays:  etaMin,
		EtaMaxDays:  etaMax,
	}
}

func testFallback() FallbackTable {
	return FallbackTable{
		core.ProviderCDEK:     {DisplayName: "CDEK", BasePrice: 490, EtaMinDays: 2, EtaMaxDays: 5},
		core.ProviderBoxberry: {DisplayName: "Boxberry", BasePrice: 350, EtaMinDays: 3, EtaMaxDays: 6},
		core.ProviderFivePost: {DisplayName: "5Post", BasePrice: 299, EtaMinDays: 3, EtaMaxDays: 7},
	}
}

func validRequest() core.QuoteRequest {
	return core.QuoteRequest{FromCity: "Moscow", ToCity: "Kazan", WeightKg: 1.5, DeclaredValue: 1000}
}

func TestQuoteMixedLiveAndTimeout(t *testing.T) {
	agg := NewAggregator([]carrier.Carrier{
		&stubCarrier{provider: core.ProviderCDEK, option: liveOption(core.ProviderCDEK, 500, 2, 4)},
		&stubCarrier{provider: core.ProviderBoxberry, delay: time.Second, err: errors.New("unreachable")},
		&stubCarrier{provider: core.ProviderFivePost, option: liveOption(core.ProviderFivePost, 300, 3, 5)},
	}, testFallback())
	agg.Timeout = 50 * time.Millisecond

	set, err := agg.Quote(context.Background(), validRequest())
	require.NoError(t, err)
	require.Len(t, set.Options, 3)

	fallbacks := 0
	for _, option := range set.Options {
		if option.IsFallback {
			fallbacks++
			require.Equal(t, core.ProviderBoxberry, option.Provider)
		}
	}
	require.Equal(t, 1, fallbacks)

	require.Equal(t, core.ProviderFivePost, set.Options[0].Provider)
	require.Equal(t, 300.0, set.Options[0].Price)
	require.Equal(t, core.ProviderBoxberry, set.Options[1].Provider)
	require.Equal(t, 350.0, set.Options[1].Price)
	require.Equal(t, core.ProviderCDEK, set.Options[2].Provider)
	require.Equal(t, 500.0, set.Options[2].Price)

	require.Equal(t, []core.ProviderID{core.ProviderBoxberry}, set.Failed)
}

func TestQuoteAllCarriersDownStillReturnsFullSet(t *testing.T) {
	agg := NewAggregator([]carrier.Carrier{
		&stubCarrier{provider: core.ProviderCDEK, err: carrier.ErrNotConfigured},
		&stubCarrier{provider: core.ProviderBoxberry, err: errors.New("dns failure")},
		&stubCarrier{provider: core.ProviderFivePost, err: errors.New("500")},
	}, testFallback())

	set, err := agg.Quote(context.Background(), validRequest())
	require.NoError(t, err)
	require.Len(t, set.Options, 3)
	for _, option := range set.Options {
		require.True(t, option.IsFallback)
		require.LessOrEqual(t, option.EtaMinDays, option.EtaMaxDays)
	}
	require.Len(t, set.Failed, 3)
}

func TestQuoteAppliesFreeShippingThreshold(t *testing.T) {
	option := liveOption(core.ProviderCDEK, 450, 2, 4)
	option.FreeShippingThreshold = 1500

	agg := NewAggregator([]carrier.Carrier{
		&stubCarrier{provider: core.ProviderCDEK, option: option},
	}, testFallback())

	req := validRequest()
	req.DeclaredValue = 2000

	set, err := agg.Quote(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, set.Options, 1)
	require.Equal(t, 0.0, set.Options[0].Price)
	require.Equal(t, 450.0, set.Options[0].BasePrice)
}

func TestQuoteBelowThresholdKeepsPrice(t *testing.T) {
	option := liveOption(core.ProviderCDEK, 450, 2, 4)
	option.FreeShippingThreshold = 1500

	agg := NewAggregator([]carrier.Carrier{
		&stubCarrier{provider: core.ProviderCDEK, option: option},
	}, testFallback())

	req := validRequest()
	req.DeclaredValue = 1000

	set, err := agg.Quote(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 450.0, set.Options[0].Price)
}

func TestQuoteOrderingIsDeterministic(t *testing.T) {
	build := func() *Aggregator {
		return NewAggregator([]carrier.Carrier{
			&stubCarrier{provider: core.ProviderCDEK, option: liveOption(core.ProviderCDEK, 400, 2, 4), delay: 10 * time.Millisecond},
			&stubCarrier{provider: core.ProviderBoxberry, option: liveOption(core.ProviderBoxberry, 400, 2, 5)},
			&stubCarrier{provider: core.ProviderFivePost, option: liveOption(core.ProviderFivePost, 400, 3, 5), delay: 5 * time.Millisecond},
		}, testFallback())
	}

	first, err := build().Quote(context.Background(), validRequest())
	require.NoError(t, err)
	second, err := build().Quote(context.Background(), validRequest())
	require.NoError(t, err)

	require.Equal(t, first.Options, second.Options)

	// Equal price: CDEK beats Boxberry on priority at the same ETA, 5Post
	// loses on the longer minimum ETA.
	require.Equal(t, core.ProviderCDEK, first.Options[0].Provider)
	require.Equal(t, core.ProviderBoxberry, first.Options[1].Provider)
	require.Equal(t, core.ProviderFivePost, first.Options[2].Provider)
}

func TestQuoteRejectsInvalidInput(t *testing.T) {
	agg := NewAggregator([]carrier.Carrier{
		&stubCarrier{provider: core.ProviderCDEK, option: liveOption(core.ProviderCDEK, 400, 2, 4)},
	}, testFallback())

	cases := []struct {
		name  string
		tweak func(*core.QuoteRequest)
		field string
	}{
		{"empty destination", func(r *core.QuoteRequest) { r.ToCity = " " }, "to_city"},
		{"empty origin", func(r *core.QuoteRequest) { r.FromCity = "" }, "from_city"},
		{"zero weight", func(r *core.QuoteRequest) { r.WeightKg = 0 }, "weight_kg"},
		{"negative declared value", func(r *core.QuoteRequest) { r.DeclaredValue = -1 }, "declared_value"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.tweak(&req)

			_, err := agg.Quote(context.Background(), req)
			var invalid *InvalidRequestError
			require.True(t, errors.As(err, &invalid))
			require.Equal(t, tc.field, invalid.Field)
		})
	}
}

func TestQuoteRespectsCallerDeadline(t *testing.T) {
	agg := NewAggregator([]carrier.Carrier{
		&stubCarrier{provider: core.ProviderCDEK, option: liveOption(core.ProviderCDEK, 400, 2, 4), delay: time.Second},
	}, testFallback())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	set, err := agg.Quote(ctx, validRequest())
	require.NoError(t, err)
	require.Less(t, time.Since(start), 500*time.Millisecond)
	require.True(t, set.Options[0].IsFallback)
}

func TestLoadFallbackTableEmbedded(t *testing.T) {
	table, err := LoadFallbackTable()
	require.NoError(t, err)
	require.Len(t, table, 3)

	option, ok := table.Option(core.ProviderCDEK)
	require.True(t, ok)
	require.True(t, option.IsFallback)
	require.Equal(t, "CDEK", option.DisplayName)
	require.LessOrEqual(t, option.EtaMinDays, option.EtaMaxDays)

	require.Equal(t, []core.ProviderID{
		core.ProviderCDEK,
		core.ProviderBoxberry,
		core.ProviderFivePost,
	}, table.Providers())
}
