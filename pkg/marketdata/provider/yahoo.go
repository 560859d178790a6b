package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
)

const (
	defaultYahooBaseURL = "https://query1.finance.yahoo.com"
	yahooChartPath      = "/v8/finance/chart/{symbol}"
	// request padding; bars are cut to the exchange-local window afterwards
	yahooRequestPadding = 24 * time.Hour
)

// YahooClient downloads bars from the Yahoo Finance chart API, one request per ticker.
type YahooClient struct {
	client *resty.Client
}

// yahooChartResponse is the response structure from Yahoo Finance chart API.
type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *yahooChartError   `json:"error"`
	} `json:"chart"`
}

type yahooChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		GmtOffset            int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// NewYahooClient creates a Yahoo Finance client. An empty baseURL uses the public endpoint.
func NewYahooClient(baseURL string) (Provider, error) {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", "Mozilla/5.0").
		SetHeader("Accept", "application/json")

	return &YahooClient{client: client}, nil
}

func (c *YahooClient) Name() string { return string(ProviderYahoo) }

// Fetch implements Provider.
func (c *YahooClient) Fetch(ctx context.Context, tickers []string, startDate time.Time, endDate time.Time, interval types.Interval, onProgress OnDownloadProgress) (*types.Frame, error) {
	builder := types.NewFrameBuilder(interval.IndexName())

	for i, ticker := range tickers {
		chart, err := c.fetchChart(ctx, ticker, startDate, endDate, interval)
		if err != nil {
			return nil, err
		}

		for _, result := range chart.Chart.Result {
			addYahooResult(builder, ticker, result, startDate, endDate, interval)
		}

		reportProgress(onProgress, i+1, len(tickers), fmt.Sprintf("Downloaded %s", ticker))
	}

	return builder.Build(), nil
}

func (c *YahooClient) fetchChart(ctx context.Context, ticker string, startDate, endDate time.Time, interval types.Interval) (*yahooChartResponse, error) {
	var chart yahooChartResponse

	var chartErr yahooChartResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("symbol", ticker).
		SetQueryParams(map[string]string{
			"period1":              strconv.FormatInt(startDate.Add(-yahooRequestPadding).Unix(), 10),
			"period2":              strconv.FormatInt(endDate.Add(yahooRequestPadding).Unix(), 10),
			"interval":             string(interval),
			"includeAdjustedClose": "true",
			"events":               "div,splits",
		}).
		ForceContentType("application/json").
		SetResult(&chart).
		SetError(&chartErr).
		Get(yahooChartPath)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", ticker, err)
	}

	if resp.IsError() {
		if chartErr.Chart.Error != nil {
			return nil, fmt.Errorf("yahoo %s: %s: %s (status %d)",
				ticker, chartErr.Chart.Error.Code, chartErr.Chart.Error.Description, resp.StatusCode())
		}

		return nil, fmt.Errorf("yahoo %s: status %d, body: %s", ticker, resp.StatusCode(), resp.String())
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %s", ticker, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}

	return &chart, nil
}

func addYahooResult(builder *types.FrameBuilder, ticker string, result yahooChartResult, startDate, endDate time.Time, interval types.Interval) {
	if len(result.Indicators.Quote) == 0 {
		return
	}

	quote := result.Indicators.Quote[0]

	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	builder.DeclareField(types.FieldOpen)
	builder.DeclareField(types.FieldHigh)
	builder.DeclareField(types.FieldLow)
	builder.DeclareField(types.FieldClose)

	if adjClose != nil {
		builder.DeclareField(types.FieldAdjClose)
	}

	builder.DeclareField(types.FieldVolume)

	loc := loadLocation(result.Meta.ExchangeTimezoneName)
	if result.Meta.ExchangeTimezoneName == "" && result.Meta.GmtOffset != 0 {
		loc = time.FixedZone("", result.Meta.GmtOffset)
	}

	from, to := exchangeWindow(startDate, endDate, loc)

	for i, ts := range result.Timestamp {
		if ts < from || ts >= to {
			continue
		}

		open, high, low, closePrice := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if open == nil && high == nil && low == nil && closePrice == nil {
			continue // null bar (holiday, halted session)
		}

		t := time.Unix(ts, 0).In(loc)
		if !interval.IsIntraday() {
			t = calendarDay(t, loc)
		}

		addPtr(builder, ticker, t, types.FieldOpen, open)
		addPtr(builder, ticker, t, types.FieldHigh, high)
		addPtr(builder, ticker, t, types.FieldLow, low)
		addPtr(builder, ticker, t, types.FieldClose, closePrice)
		addPtr(builder, ticker, t, types.FieldAdjClose, at(adjClose, i))
		addPtr(builder, ticker, t, types.FieldVolume, at(quote.Volume, i))
	}
}

// exchangeWindow returns [start, end) as Unix seconds, with both dates read as midnights in loc.
func exchangeWindow(startDate, endDate time.Time, loc *time.Location) (int64, int64) {
	localMidnight := func(t time.Time) int64 {
		y, m, d := t.Date()

		return time.Date(y, m, d, 0, 0, 0, 0, loc).Unix()
	}

	return localMidnight(startDate), localMidnight(endDate)
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}

	return values[i]
}

func addPtr(builder *types.FrameBuilder, ticker string, t time.Time, field types.Field, v *float64) {
	if v == nil {
		return
	}

	builder.Add(ticker, t, field, *v)
}
