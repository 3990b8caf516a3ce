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

const cdekDefaultBaseURL = "https://api.cdek.ru/v2"

// CDEK implements the Carrier interface against the CDEK calculator API.
type CDEK struct {
	BaseURL    string
	Account    string
	Secret     string
	HTTPClient *http.Client

	// FreeShippingThreshold, when positive, marks quotes as free above the
	// declared value threshold. Applied by the aggregator, not here.
	FreeShippingThreshold float64
}

// NewCDEK returns a client with defaults applied.
func NewCDEK(baseURL, account, secret string) *CDEK {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = cdekDefaultBaseURL
	}

	return &CDEK{
		BaseURL: url,
		Account: strings.TrimSpace(account),
		Secret:  strings.TrimSpace(secret),
	}
}

// Provider returns the carrier identifier.
func (c *CDEK) Provider() core.ProviderID {
	return core.ProviderCDEK
}

type cdekTariffRequest struct {
	FromLocation cdekLocation  `json:"from_location"`
	ToLocation   cdekLocation  `json:"to_location"`
	Packages     []cdekPackage `json:"packages"`
}

type cdekLocation struct {
	City string `json:"city"`
}

type cdekPackage struct {
	WeightGrams int `json:"weight"`
}

type cdekTariffResponse struct {
	TariffCode   int     `json:"tariff_code"`
	DeliverySum  float64 `json:"delivery_sum"`
	PeriodMin    int     `json:"period_min"`
	PeriodMax    int     `json:"period_max"`
	ErrorMessage string  `json:"error,omitempty"`
}

// Quote requests a tariff calculation for the shipment.
func (c *CDEK) Quote(ctx context.Context, req core.QuoteRequest) (*core.DeliveryOption, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	if c.Account == "" || c.Secret == "" {
		return nil, ErrNotConfigured
	}

	payload := cdekTariffRequest{
		FromLocation: cdekLocation{City: req.FromCity},
		ToLocation:   cdekLocation{City: req.ToCity},
		Packages:     []cdekPackage{{WeightGrams: int(req.WeightKg * 1000)}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/calculator/tariff"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.Account, c.Secret)

	client := c.HTTPClient
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
		return nil, fmt.Errorf("cdek responded %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed cdekTariffResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.ErrorMessage != "" {
		return nil, fmt.Errorf("cdek tariff error: %s", parsed.ErrorMessage)
	}

	return &core.DeliveryOption{
		Provider:              core.ProviderCDEK,
		DisplayName:           "CDEK",
		Price:                 parsed.DeliverySum,
		BasePrice:             parsed.DeliverySum,
		EtaMinDays:            parsed.PeriodMin,
		EtaMaxDays:            parsed.PeriodMax,
		TariffCode:            fmt.Sprintf("%d", parsed.TariffCode),
		FreeShippingThreshold: c.FreeShippingThreshold,
	}, nil
}
