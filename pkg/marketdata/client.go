package marketdata

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-pricefetch/internal/logger"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
	"github.com/rxtech-lab/argo-pricefetch/pkg/errors"
	"github.com/rxtech-lab/argo-pricefetch/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-pricefetch/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// WriterType defines the type of output writer.
type WriterType = writer.Format

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType   provider.ProviderType `validate:"required,oneof=yahoo polygon binance"`
	WriterType     WriterType            `validate:"required,oneof=csv json parquet duckdb xlsx"`
	PolygonApiKey  string                `validate:"required_if=ProviderType polygon"`
	YahooBaseURL   string                `validate:"omitempty,url"`
	BinanceBaseURL string                `validate:"omitempty,url"`
	// Precision is the number of decimal places written for prices; -1 keeps full precision.
	Precision int `validate:"min=-1"`
}

// FetchParams holds the parameters of a single fetch-and-export run.
// StartDate after EndDate is passed to the provider unchanged.
type FetchParams struct {
	Tickers    []string       `validate:"required,min=1,dive,required"`
	StartDate  time.Time      `validate:"required"`
	EndDate    time.Time      `validate:"required"`
	Interval   types.Interval `validate:"required,oneof=1d 1wk 1mo 1h 5m 15m 30m 60m"`
	OutputPath string         `validate:"required"`
}

// Result describes the file written by Download.
type Result struct {
	OutputPath string
	Rows       int
	Columns    int
	Field      types.Field
}

// Client is the market data client responsible for downloading data from a provider and storing it using a writer.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	logger     *logger.Logger
	onProgress provider.OnDownloadProgress
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, log *logger.Logger, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	marketProvider, err := provider.NewMarketDataProvider(config.ProviderType, provider.Options{
		PolygonApiKey:  config.PolygonApiKey,
		YahooBaseURL:   config.YahooBaseURL,
		BinanceBaseURL: config.BinanceBaseURL,
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidProvider, err, "failed to create %s client", config.ProviderType)
	}

	return newClient(config, marketProvider, validate, log, onProgress), nil
}

// NewClientWithProvider creates a client around an existing provider. config.ProviderType is not consulted.
func NewClientWithProvider(config ClientConfig, marketProvider provider.Provider, log *logger.Logger, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.StructExcept(config, "ProviderType", "PolygonApiKey"); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	return newClient(config, marketProvider, validate, log, onProgress), nil
}

func newClient(config ClientConfig, marketProvider provider.Provider, validate *validator.Validate, log *logger.Logger, onProgress provider.OnDownloadProgress) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		logger:     log,
		onProgress: onProgress,
	}
}

// ProviderName returns the name of the configured provider.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Download fetches prices for params.Tickers, selects the adjusted close (or close) and writes
// the table to params.OutputPath. Nothing is written when selection fails.
func (c *Client) Download(ctx context.Context, params FetchParams) (*Result, error) {
	if _, err := types.ParseInterval(string(params.Interval)); err != nil {
		return nil, err
	}

	params.Tickers = NormalizeTickers(params.Tickers)

	if err := c.validate.Struct(params); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid fetch parameters", err)
	}

	c.logger.Info("fetching prices",
		zap.Strings("tickers", params.Tickers),
		zap.String("start", params.StartDate.Format(types.DateLayout)),
		zap.String("end", params.EndDate.Format(types.DateLayout)),
		zap.String("interval", params.Interval.String()),
		zap.String("provider", c.provider.Name()),
	)

	frame, err := c.provider.Fetch(ctx, params.Tickers, params.StartDate, params.EndDate, params.Interval, c.onProgress)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeHistoricalDataFailed, err, "%s download failed", c.provider.Name())
	}

	c.logger.Info("downloaded prices",
		zap.Int("rows", frame.Len()),
		zap.Strings("tickers", frame.Tickers),
		zap.Strings("fields", frame.FieldNames()),
	)

	table, err := SelectPrices(frame)
	if err != nil {
		return nil, err
	}

	priceWriter, err := writer.NewWriter(c.config.WriterType, params.OutputPath, writer.Options{
		IndexName: table.IndexName,
		Precision: c.config.Precision,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, "failed to set up writer", err)
	}

	outputPath, err := writer.WriteTable(priceWriter, table)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to write %s", params.OutputPath)
	}

	return &Result{
		OutputPath: outputPath,
		Rows:       table.Rows(),
		Columns:    table.Columns(),
		Field:      table.Field,
	}, nil
}
