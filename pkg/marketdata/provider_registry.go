package marketdata

import (
	"fmt"
	"slices"

	"github.com/rxtech-lab/argo-pricefetch/pkg/marketdata/provider"
)

// ProviderInfo contains metadata about a market data provider.
type ProviderInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requiresAuth"`
	// AdjustedClose reports whether the provider offers an Adj Close field.
	AdjustedClose bool `json:"adjustedClose"`
}

// providerRegistry holds metadata about all supported providers.
var providerRegistry = map[provider.ProviderType]ProviderInfo{
	provider.ProviderYahoo: {
		Name:          string(provider.ProviderYahoo),
		DisplayName:   "Yahoo Finance",
		Description:   "Daily and intraday prices for stocks, funds, indices and crypto with dividend and split adjusted closes",
		RequiresAuth:  false,
		AdjustedClose: true,
	},
	provider.ProviderPolygon: {
		Name:          string(provider.ProviderPolygon),
		DisplayName:   "Polygon.io",
		Description:   "US stock market data provider with split adjusted historical OHLCV data",
		RequiresAuth:  true,
		AdjustedClose: false,
	},
	provider.ProviderBinance: {
		Name:          string(provider.ProviderBinance),
		DisplayName:   "Binance",
		Description:   "Cryptocurrency exchange with extensive market data for crypto trading pairs",
		RequiresAuth:  false,
		AdjustedClose: false,
	},
}

// GetSupportedProviders returns the names of all supported providers, sorted.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	slices.Sort(providers)

	return providers
}

// GetProviderInfo returns metadata for a specific provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[provider.ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, fmt.Errorf("unsupported provider: %s", providerName)
	}

	return info, nil
}
