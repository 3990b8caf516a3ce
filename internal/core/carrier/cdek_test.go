package carrier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zoocart/zoocart/internal/core"
)

func TestCDEKQuoteParsesTariff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/calculator/tariff", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "acct", user)
		require.Equal(t, "secret", pass)

		var req cdekTariffRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "Moscow", req.FromLocation.City)
		require.Equal(t, 2500, req.Packages[0].WeightGrams)

		_ = json.NewEncoder(w).Encode(cdekTariffResponse{
			TariffCode:  136,
			DeliverySum: 450,
			PeriodMin:   2,
			PeriodMax:   4,
		})
	}))
	defer srv.Close()

	client := NewCDEK(srv.URL, "acct", "secret")
	option, err := client.Quote(context.Background(), core.QuoteRequest{
		FromCity: "Moscow",
		ToCity:   "Kazan",
		WeightKg: 2.5,
	})
	require.NoError(t, err)
	require.Equal(t, core.ProviderCDEK, option.Provider)
	require.Equal(t, 450.0, option.Price)
	require.Equal(t, 450.0, option.BasePrice)
	require.Equal(t, 2, option.EtaMinDays)
	require.Equal(t, 4, option.EtaMaxDays)
	require.Equal(t, "136", option.TariffCode)
	require.False(t, option.IsFallback)
}

func TestCDEKQuoteWithoutCredentials(t *testing.T) {
	client := NewCDEK("", "", "")
	_, err := client.Quote(context.Background(), core.QuoteRequest{FromCity: "A", ToCity: "B", WeightKg: 1})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestCDEKQuoteSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewCDEK(srv.URL, "acct", "secret")
	_, err := client.Quote(context.Background(), core.QuoteRequest{FromCity: "A", ToCity: "B", WeightKg: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestCDEKQuoteSurfacesTariffError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(cdekTariffResponse{ErrorMessage: "city not found"})
	}))
	defer srv.Close()

	client := NewCDEK(srv.URL, "acct", "secret")
	_, err := client.Quote(context.Background(), core.QuoteRequest{FromCity: "A", ToCity: "Nowhere", WeightKg: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "city not found")
}
