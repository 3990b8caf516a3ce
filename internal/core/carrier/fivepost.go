package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zoocart/zoocart/internal/core"
)

const fivepostDefaultBaseURL = "https://api-omni.x5.ru/api/v1"

// FivePost implements the Carrier interface against the 5Post rate API.
type FivePost struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	FreeShippingThreshold float64
}

// NewFivePost returns a client with defaults applied.
func NewFivePost(baseURL, apiKey string) *FivePost {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = fivepostDefaultBaseURL
	}

	return &FivePost{
		BaseURL: u,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Provider returns the carrier identifier.
func (f *FivePost) Provider() core.ProviderID {
	return core.ProviderFivePost
}

type fivepostRateRequest struct {
	SourceCity    string  `json:"sourceCity"`
	TargetCity    string  `json:"targetCity"`
	WeightKg      float64 `json:"weight"`
	DeclaredValue float64 `json:"declaredValue"`
}

type fivepostRateResponse struct {
	Rate       float64 `json:"rate"`
	MinDays    int     `json:"minDeliveryDays"`
	MaxDays    int     `json:"maxDeliveryDays"`
	TariffName string  `json:"tariffName"`
}

// Quote requests a rate calculation for the shipment.
func (f *FivePost) Quote(ctx context.Context, req core.QuoteRequest) (*core.DeliveryOption, error) {
	if f == nil || f.APIKey == "" {
		return nil, ErrNotConfigured
	}

	payload := fivepostRateRequest{
		SourceCity:    req.FromCity,
		TargetCity:    req.ToCity,
		WeightKg:      req.WeightKg,
		DeclaredValue: req.DeclaredValue,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(f.BaseURL, "/") + "/rates/calculate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "ApiKey "+f.APIKey)

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("5post responded %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed fivepostRateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	etaMin, etaMax := parsed.MinDays, parsed.MaxDays
	if etaMax < etaMin {
		etaMax = etaMin
	}

	return &core.DeliveryOption{
		Provider:              core.ProviderFivePost,
		DisplayName:           "5Post",
		Price:                 parsed.Rate,
		BasePrice:             parsed.Rate,
		EtaMinDays:            etaMin,
		EtaMaxDays:            etaMax,
		TariffCode:            parsed.TariffName,
		FreeShippingThreshold: f.FreeShippingThreshold,
	}, nil
}
