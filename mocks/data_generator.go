package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-pricefetch/internal/types"
)

// DataGenerator generates realistic provider frames for testing.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Tickers are the symbols to generate, in frame order
	Tickers []string
	// StartTime is the first bar; daily bars skip weekends
	StartTime time.Time
	// Interval sets the bar spacing and the index name
	Interval types.Interval
	// Count is the number of bars per ticker
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical daily volatility)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
	// AdjustmentFactor scales Close into Adj Close. Zero leaves Adj Close out of the frame.
	AdjustmentFactor float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Tickers:          []string{"TEST"},
		StartTime:        time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
		Interval:         types.IntervalOneDay,
		Count:            250,
		InitialPrice:     100.0,
		Volatility:       0.02, // 2% per bar
		Trend:            0.0,  // neutral
		VolumeBase:       1_000_000,
		VolumeVariance:   0.3,
		AdjustmentFactor: 0.98,
	}
}

// Generate creates a frame with OHLCV (and optionally Adj Close) for every ticker.
// Prices follow a geometric Brownian motion model.
func (g *DataGenerator) Generate(config GeneratorConfig) *types.Frame {
	builder := types.NewFrameBuilder(config.Interval.IndexName())

	for _, ticker := range config.Tickers {
		// Vary initial price and volatility slightly per ticker
		initialPrice := config.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		volatility := config.Volatility * (0.8 + g.rng.Float64()*0.4)

		g.generateTicker(builder, ticker, config, initialPrice, volatility)
	}

	return builder.Build()
}

func (g *DataGenerator) generateTicker(builder *types.FrameBuilder, ticker string, config GeneratorConfig, initialPrice, volatility float64) {
	currentPrice := initialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Using Box-Muller transform for normal distribution
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := volatility * z
		drift := config.Trend / float64(config.Count) // Distribute trend across bars

		closePrice := open * (1 + priceChange + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99 // Prevent negative prices
		}

		highExtension := math.Abs(g.rng.Float64() * volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension

		low := math.Min(open, closePrice) - lowExtension
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance

		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		builder.Add(ticker, currentTime, types.FieldOpen, roundToDecimals(open, 4))
		builder.Add(ticker, currentTime, types.FieldHigh, roundToDecimals(high, 4))
		builder.Add(ticker, currentTime, types.FieldLow, roundToDecimals(low, 4))
		builder.Add(ticker, currentTime, types.FieldClose, roundToDecimals(closePrice, 4))

		if config.AdjustmentFactor != 0 {
			builder.Add(ticker, currentTime, types.FieldAdjClose, roundToDecimals(closePrice*config.AdjustmentFactor, 4))
		}

		builder.Add(ticker, currentTime, types.FieldVolume, roundToDecimals(volume, 2))

		currentPrice = closePrice
		currentTime = nextBar(currentTime, config.Interval)
	}
}

// nextBar advances t by one interval. Daily bars skip Saturday and Sunday.
func nextBar(t time.Time, interval types.Interval) time.Time {
	switch interval {
	case types.IntervalOneWeek:
		return t.AddDate(0, 0, 7)
	case types.IntervalOneMonth:
		return t.AddDate(0, 1, 0)
	case types.IntervalOneHour, types.IntervalSixtyMinutes:
		return t.Add(time.Hour)
	case types.IntervalFiveMinutes:
		return t.Add(5 * time.Minute)
	case types.IntervalFifteenMinutes:
		return t.Add(15 * time.Minute)
	case types.IntervalThirtyMinutes:
		return t.Add(30 * time.Minute)
	default:
		next := t.AddDate(0, 0, 1)
		for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
			next = next.AddDate(0, 0, 1)
		}

		return next
	}
}

// GenerateDaily is a convenience function returning count daily bars per ticker
// with default settings and a fixed seed.
func GenerateDaily(tickers []string, count int) *types.Frame {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Tickers = tickers
	config.Count = count

	return gen.Generate(config)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
