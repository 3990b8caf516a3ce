// Package carrier holds the delivery-provider quoting clients.
package carrier

import (
	"context"
	"errors"
	"fmt"

	"github.com/zoocart/zoocart/internal/core"
)

// ErrNotConfigured signals that a carrier has no usable credentials; the
// aggregator treats it like any other carrier failure and falls back.
var ErrNotConfigured = errors.New("carrier credentials not configured")

// Carrier is the interface all quoting clients implement.
type Carrier interface {
	// Quote prices the shipment with the live carrier API.
	Quote(ctx context.Context, req core.QuoteRequest) (*core.DeliveryOption, error)

	// Provider returns the carrier identifier.
	Provider() core.ProviderID
}

// Error wraps a failed carrier call with its provider for disclosure.
type Error struct {
	Provider core.ProviderID
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("carrier %s unavailable: %v", e.Provider, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
