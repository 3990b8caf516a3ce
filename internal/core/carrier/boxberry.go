package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zoocart/zoocart/internal/core"
)

const boxberryDefaultBaseURL = "https://api.boxberry.ru/json.php"

// Boxberry implements the Carrier interface against the Boxberry
// DeliveryCosts method. Unlike CDEK this API is a GET with query parameters.
type Boxberry struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client

	FreeShippingThreshold float64
}

// NewBoxberry returns a client with defaults applied.
func NewBoxberry(baseURL, token string) *Boxberry {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = boxberryDefaultBaseURL
	}

	return &Boxberry{
		BaseURL: u,
		Token:   strings.TrimSpace(token),
	}
}

// Provider returns the carrier identifier.
func (b *Boxberry) Provider() core.ProviderID {
	return core.ProviderBoxberry
}

type boxberryCostResponse struct {
	Price        float64 `json:"price"`
	DeliveryDays int     `json:"delivery_period"`
	ErrorMessage string  `json:"err,omitempty"`
}

// Quote requests a delivery cost calculation for the shipment.
func (b *Boxberry) Quote(ctx context.Context, req core.QuoteRequest) (*core.DeliveryOption, error) {
	if b == nil || b.Token == "" {
		return nil, ErrNotConfigured
	}

	query := url.Values{}
	query.Set("token", b.Token)
	query.Set("method", "DeliveryCosts")
	query.Set("weight", strconv.Itoa(int(req.WeightKg*1000)))
	query.Set("targetstart", req.FromCity)
	query.Set("target", req.ToCity)
	query.Set("ordersum", strconv.FormatFloat(req.DeclaredValue, 'f', 2, 64))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	client := b.HTTPClient
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

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("boxberry responded %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed boxberryCostResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.ErrorMessage != "" {
		return nil, fmt.Errorf("boxberry cost error: %s", parsed.ErrorMessage)
	}

	// Boxberry reports a single delivery period; present it as a one-day
	// spread so the ETA invariant holds.
	etaMin := parsed.DeliveryDays
	if etaMin < 1 {
		etaMin = 1
	}

	return &core.DeliveryOption{
		Provider:              core.ProviderBoxberry,
		DisplayName:           "Boxberry",
		Price:                 parsed.Price,
		BasePrice:             parsed.Price,
		EtaMinDays:            etaMin,
		EtaMaxDays:            etaMin + 1,
		FreeShippingThreshold: b.FreeShippingThreshold,
	}, nil
}
