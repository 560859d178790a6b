package provider

import (
	"context"
	"fmt"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
	"github.com/shopspring/decimal"
)

// binanceKlinesLimit is the largest page the klines endpoint returns.
const binanceKlinesLimit = 1000

// BinanceKlinesService is the fluent klines request used by BinanceClient.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient abstracts the binance client so it can be replaced in tests.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceRESTClient struct {
	client *binance.Client
}

func (b *binanceRESTClient) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesService{service: b.client.NewKlinesService()}
}

type binanceKlinesService struct {
	service *binance.KlinesService
}

func (s *binanceKlinesService) Symbol(symbol string) BinanceKlinesService {
	s.service.Symbol(symbol)

	return s
}

func (s *binanceKlinesService) Interval(interval string) BinanceKlinesService {
	s.service.Interval(interval)

	return s
}

func (s *binanceKlinesService) StartTime(startTime int64) BinanceKlinesService {
	s.service.StartTime(startTime)

	return s
}

func (s *binanceKlinesService) EndTime(endTime int64) BinanceKlinesService {
	s.service.EndTime(endTime)

	return s
}

func (s *binanceKlinesService) Limit(limit int) BinanceKlinesService {
	s.service.Limit(limit)

	return s
}

func (s *binanceKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceClient downloads spot klines. Prices are quoted unadjusted, so frames only carry Close.
type BinanceClient struct {
	apiClient BinanceAPIClient
}

// NewBinanceClient creates a client for the public klines endpoint. An empty baseURL keeps the library default.
func NewBinanceClient(baseURL string) (Provider, error) {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}

	return NewBinanceClientWithAPI(&binanceRESTClient{client: client}), nil
}

// NewBinanceClientWithAPI creates a BinanceClient on top of an existing API client.
func NewBinanceClientWithAPI(apiClient BinanceAPIClient) *BinanceClient {
	return &BinanceClient{apiClient: apiClient}
}

func (c *BinanceClient) Name() string { return string(ProviderBinance) }

// Fetch implements Provider. Each symbol is paged through in chunks of binanceKlinesLimit.
func (c *BinanceClient) Fetch(ctx context.Context, tickers []string, startDate time.Time, endDate time.Time, interval types.Interval, onProgress OnDownloadProgress) (*types.Frame, error) {
	binanceInterval, err := binanceIntervalFor(interval)
	if err != nil {
		return nil, err
	}

	builder := types.NewFrameBuilder(interval.IndexName())
	for _, field := range []types.Field{types.FieldOpen, types.FieldHigh, types.FieldLow, types.FieldClose, types.FieldVolume} {
		builder.DeclareField(field)
	}

	// Binance API uses milliseconds and an inclusive end time
	endTimeMillis := endDate.UnixMilli() - 1

	for i, ticker := range tickers {
		currentStartTime := startDate.UnixMilli()

		for currentStartTime <= endTimeMillis {
			klines, err := c.apiClient.NewKlinesService().
				Symbol(ticker).
				Interval(binanceInterval).
				StartTime(currentStartTime).
				EndTime(endTimeMillis).
				Limit(binanceKlinesLimit).
				Do(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch klines from Binance for %s: %w", ticker, err)
			}

			if err := addKlines(builder, ticker, klines, interval); err != nil {
				return nil, err
			}

			if len(klines) < binanceKlinesLimit {
				break
			}

			// close time of the last kline + 1ms avoids duplicates
			currentStartTime = klines[len(klines)-1].CloseTime + 1
		}

		reportProgress(onProgress, i+1, len(tickers), fmt.Sprintf("Downloaded %s", ticker))
	}

	return builder.Build(), nil
}

func addKlines(builder *types.FrameBuilder, ticker string, klines []*binance.Kline, interval types.Interval) error {
	for _, k := range klines {
		t := time.UnixMilli(k.OpenTime).UTC()
		if !interval.IsIntraday() {
			t = calendarDay(t, time.UTC)
		}

		values := []struct {
			field types.Field
			raw   string
		}{
			{types.FieldOpen, k.Open},
			{types.FieldHigh, k.High},
			{types.FieldLow, k.Low},
			{types.FieldClose, k.Close},
			{types.FieldVolume, k.Volume},
		}

		for _, v := range values {
			d, err := decimal.NewFromString(v.raw)
			if err != nil {
				return fmt.Errorf("invalid %s %q in %s kline: %w", v.field, v.raw, ticker, err)
			}

			builder.Add(ticker, t, v.field, d.InexactFloat64())
		}
	}

	return nil
}

func binanceIntervalFor(interval types.Interval) (string, error) {
	switch interval {
	case types.IntervalOneDay:
		return "1d", nil
	case types.IntervalOneWeek:
		return "1w", nil
	case types.IntervalOneMonth:
		return "1M", nil
	case types.IntervalOneHour, types.IntervalSixtyMinutes:
		return "1h", nil
	case types.IntervalFiveMinutes:
		return "5m", nil
	case types.IntervalFifteenMinutes:
		return "15m", nil
	case types.IntervalThirtyMinutes:
		return "30m", nil
	default:
		return "", fmt.Errorf("binance does not support interval %q", interval)
	}
}
