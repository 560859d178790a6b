package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMarketDataProvider(t *testing.T) {
	tests := []struct {
		name         string
		providerType ProviderType
		options      Options
		wantName     string
		wantErr      bool
	}{
		{name: "yahoo", providerType: ProviderYahoo, wantName: "yahoo"},
		{name: "polygon", providerType: ProviderPolygon, options: Options{PolygonApiKey: "key"}, wantName: "polygon"},
		{name: "polygon without key", providerType: ProviderPolygon, wantErr: true},
		{name: "binance", providerType: ProviderBinance, wantName: "binance"},
		{name: "unknown", providerType: "bloomberg", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewMarketDataProvider(tc.providerType, tc.options)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantName, p.Name())
		})
	}
}

func TestCalendarDay(t *testing.T) {
	ny := loadLocation("America/New_York")
	// 2023-01-04 03:00 UTC is still 2023-01-03 in New York
	ts := time.Date(2023, 1, 4, 3, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC), calendarDay(ts, ny))
	assert.Equal(t, time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC), calendarDay(ts, time.UTC))
}

func TestLoadLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, loadLocation(""))
	assert.Equal(t, time.UTC, loadLocation("Mars/Olympus_Mons"))
}
