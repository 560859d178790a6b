package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
)

const polygonAggsLimit = 50000

// PolygonAggsIterator is the subset of the polygon aggregate iterator used by PolygonClient.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient abstracts the polygon REST client so it can be replaced in tests.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonRESTClient struct {
	client *polygon.Client
}

func (p *polygonRESTClient) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return p.client.ListAggs(ctx, params, options...)
}

// PolygonClient downloads split adjusted aggregates from Polygon.io.
// Polygon does not publish a dividend adjusted close, so frames only carry Close.
type PolygonClient struct {
	apiClient PolygonAPIClient
	// daily bars are stamped at midnight in the exchange zone
	exchangeLocation *time.Location
}

func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}

	return NewPolygonClientWithAPI(&polygonRESTClient{client: polygon.New(apiKey)}), nil
}

// NewPolygonClientWithAPI creates a PolygonClient on top of an existing API client.
func NewPolygonClientWithAPI(apiClient PolygonAPIClient) *PolygonClient {
	return &PolygonClient{
		apiClient:        apiClient,
		exchangeLocation: loadLocation("America/New_York"),
	}
}

func (c *PolygonClient) Name() string { return string(ProviderPolygon) }

// Fetch implements Provider.
func (c *PolygonClient) Fetch(ctx context.Context, tickers []string, startDate time.Time, endDate time.Time, interval types.Interval, onProgress OnDownloadProgress) (*types.Frame, error) {
	multiplier, timespan, err := polygonTimespan(interval)
	if err != nil {
		return nil, err
	}

	builder := types.NewFrameBuilder(interval.IndexName())
	for _, field := range []types.Field{types.FieldOpen, types.FieldHigh, types.FieldLow, types.FieldClose, types.FieldVolume} {
		builder.DeclareField(field)
	}

	for i, ticker := range tickers {
		//nolint:exhaustruct // third-party struct with many optional fields
		params := models.ListAggsParams{
			Ticker:     ticker,
			Multiplier: multiplier,
			Timespan:   timespan,
			From:       models.Millis(startDate),
			// polygon treats To as inclusive
			To: models.Millis(endDate.Add(-time.Millisecond)),
		}.WithAdjusted(true).WithLimit(polygonAggsLimit)

		iter := c.apiClient.ListAggs(ctx, params)

		for iter.Next() {
			agg := iter.Item()

			t := time.Time(agg.Timestamp)
			if t.Before(startDate) || !t.Before(endDate) {
				continue
			}

			if interval.IsIntraday() {
				t = t.In(c.exchangeLocation)
			} else {
				t = calendarDay(t, c.exchangeLocation)
			}

			builder.Add(ticker, t, types.FieldOpen, agg.Open)
			builder.Add(ticker, t, types.FieldHigh, agg.High)
			builder.Add(ticker, t, types.FieldLow, agg.Low)
			builder.Add(ticker, t, types.FieldClose, agg.Close)
			builder.Add(ticker, t, types.FieldVolume, agg.Volume)
		}

		if iter.Err() != nil {
			return nil, fmt.Errorf("error iterating polygon aggregates for %s: %w", ticker, iter.Err())
		}

		reportProgress(onProgress, i+1, len(tickers), fmt.Sprintf("Downloaded %s", ticker))
	}

	return builder.Build(), nil
}

func polygonTimespan(interval types.Interval) (int, models.Timespan, error) {
	switch interval {
	case types.IntervalOneDay:
		return 1, models.Day, nil
	case types.IntervalOneWeek:
		return 1, models.Week, nil
	case types.IntervalOneMonth:
		return 1, models.Month, nil
	case types.IntervalOneHour:
		return 1, models.Hour, nil
	case types.IntervalFiveMinutes:
		return 5, models.Minute, nil
	case types.IntervalFifteenMinutes:
		return 15, models.Minute, nil
	case types.IntervalThirtyMinutes:
		return 30, models.Minute, nil
	case types.IntervalSixtyMinutes:
		return 60, models.Minute, nil
	default:
		return 0, "", fmt.Errorf("polygon does not support interval %q", interval)
	}
}
