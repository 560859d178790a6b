package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-pricefetch/internal/types"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderYahoo   ProviderType = "yahoo"
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

type OnDownloadProgress = func(current float64, total float64, message string)

type Provider interface {
	// Name returns the registry name of the provider.
	Name() string
	// Fetch downloads bars for every ticker over [startDate, endDate) at the given interval
	// and returns them as a single frame. Tickers the provider has no bars for are left out of the frame.
	// The request is attempted once; provider errors are returned as they come.
	// example:
	// Fetch(ctx, []string{"AAPL", "MSFT"}, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC), types.IntervalOneDay, nil)
	Fetch(ctx context.Context, tickers []string, startDate time.Time, endDate time.Time, interval types.Interval, onProgress OnDownloadProgress) (*types.Frame, error)
}

// Options carries the provider specific settings. Fields that do not apply to the chosen provider are ignored.
type Options struct {
	PolygonApiKey  string
	YahooBaseURL   string
	BinanceBaseURL string
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
func NewMarketDataProvider(providerType ProviderType, options Options) (Provider, error) {
	switch providerType {
	case ProviderYahoo:
		return NewYahooClient(options.YahooBaseURL)
	case ProviderPolygon:
		return NewPolygonClient(options.PolygonApiKey)
	case ProviderBinance:
		return NewBinanceClient(options.BinanceBaseURL)
	default:
		return nil, fmt.Errorf("unsupported market data provider: %s", providerType)
	}
}

func reportProgress(onProgress OnDownloadProgress, current, total int, message string) {
	if onProgress == nil {
		return
	}

	onProgress(float64(current), float64(total), message)
}

// calendarDay drops the time of day of t as observed in loc, keeping only the date.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// loadLocation resolves an IANA zone name, falling back to UTC when it is unknown.
func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}

	return loc
}
