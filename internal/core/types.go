package core

import "time"

// ProviderID identifies a delivery carrier.
type ProviderID string

const (
	ProviderCDEK     ProviderID = "cdek"
	ProviderBoxberry ProviderID = "boxberry"
	ProviderFivePost ProviderID = "fivepost"
)

// ProviderPriority is the fixed tie-break order for quote sorting.
// Lower index wins when price and ETA are equal.
var ProviderPriority = []ProviderID{
	ProviderCDEK,
	ProviderBoxberry,
	ProviderFivePost,
}

// QuoteRequest describes one shipment to be priced.
type QuoteRequest struct {
	FromCity      string  `json:"from_city" validate:"required"`
	ToCity        string  `json:"to_city" validate:"required"`
	WeightKg      float64 `json:"weight_kg" validate:"required,gt=0"`
	DeclaredValue float64 `json:"declared_value" validate:"gte=0"`
}

// DeliveryOption is one normalized carrier quote.
//
// Price is the effective price after free-shipping rules; BasePrice retains
// the carrier's raw quote for audit.
type DeliveryOption struct {
	Provider              ProviderID `json:"provider"`
	DisplayName           string     `json:"display_name"`
	Price                 float64    `json:"price"`
	BasePrice             float64    `json:"base_price"`
	EtaMinDays            int        `json:"eta_min_days"`
	EtaMaxDays            int        `json:"eta_max_days"`
	TariffCode            string     `json:"tariff_code,omitempty"`
	FreeShippingThreshold float64    `json:"free_shipping_threshold,omitempty"`
	IsFallback            bool       `json:"is_fallback"`
}

// QuoteSet is the aggregation result: all options plus the carriers that
// could not be reached live.
type QuoteSet struct {
	Options []DeliveryOption `json:"options"`
	Failed  []ProviderID     `json:"failed_providers"`
}

// ChatMessage is one persisted turn of the shopping assistant conversation.
type ChatMessage struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// QuoteAudit captures one priced option as presented to a customer.
type QuoteAudit struct {
	ID             int64      `json:"id"`
	Provider       ProviderID `json:"provider"`
	FromCity       string     `json:"from_city"`
	ToCity         string     `json:"to_city"`
	WeightKg       float64    `json:"weight_kg"`
	DeclaredValue  float64    `json:"declared_value"`
	BasePrice      float64    `json:"base_price"`
	EffectivePrice float64    `json:"effective_price"`
	IsFallback     bool       `json:"is_fallback"`
	QuotedAt       time.Time  `json:"quoted_at"`
}
