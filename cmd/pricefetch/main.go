package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rxtech-lab/argo-pricefetch/internal/config"
	"github.com/rxtech-lab/argo-pricefetch/internal/logger"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
	"github.com/rxtech-lab/argo-pricefetch/internal/version"
	"github.com/rxtech-lab/argo-pricefetch/pkg/errors"
	"github.com/rxtech-lab/argo-pricefetch/pkg/marketdata"
	"github.com/rxtech-lab/argo-pricefetch/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-pricefetch/pkg/marketdata/writer"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitArgument = 2
)

// deps holds everything the commands reach outside the process for.
type deps struct {
	now         func() time.Time
	newProvider func(providerType provider.ProviderType, options provider.Options) (provider.Provider, error)
	newLogger   func(level string) (*logger.Logger, error)
	stdout      io.Writer
	stderr      io.Writer
}

func defaultDeps() deps {
	return deps{
		now:         time.Now,
		newProvider: provider.NewMarketDataProvider,
		newLogger:   logger.NewLoggerWithLevel,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, defaultDeps())

	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, d deps) int {
	// errors raised before an action starts come from flag parsing
	started := false
	cmd := newRootCommand(d, &started)

	err := cmd.Run(ctx, args)
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(d.stderr, "Error: %v\n", err)

	if !started || errors.GetCategory(err) == errors.CategoryArgument {
		return exitArgument
	}

	return exitFailure
}

func newRootCommand(d deps, started *bool) *cli.Command {
	markStarted := func(ctx context.Context, _ *cli.Command) (context.Context, error) {
		*started = true

		return ctx, nil
	}

	return &cli.Command{
		Name:      "pricefetch",
		Usage:     "Download historical prices and write the adjusted close (or close) per ticker",
		Version:   version.GetVersion(),
		ArgsUsage: "[TICKER...]",
		Writer:    d.stdout,
		ErrWriter: d.stderr,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "tickers",
				Aliases: []string{"t"},
				Usage:   "Ticker symbols; repeat the flag or comma-separate (e.g. AAPL,MSFT)",
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date (YYYY-MM-DD), required",
				Config: cli.TimestampConfig{
					Layouts: []string{types.DateLayout},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date (YYYY-MM-DD), exclusive; defaults to today",
				Config: cli.TimestampConfig{
					Layouts: []string{types.DateLayout},
				},
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Bar interval: 1d, 1wk, 1mo, 1h, 5m, 15m, 30m, 60m",
				Value:   "1d",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output path; the parent directory must exist",
				Value:   "data/raw/prices.csv",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Market data provider (%s)", strings.Join(marketdata.GetSupportedProviders(), ", ")),
				Value:   string(provider.ProviderYahoo),
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   fmt.Sprintf("Output format (%s)", strings.Join(formatNames(), ", ")),
				Value:   string(writer.FormatCSV),
			},
			&cli.IntFlag{
				Name:  "precision",
				Usage: "Decimal places written for prices; -1 keeps full precision",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a progress bar on stderr",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				Sources: cli.EnvVars("PRICEFETCH_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
				Value: "info",
			},
			&cli.StringFlag{
				Name:    "polygon-api-key",
				Usage:   "Polygon.io API key (required for the polygon provider)",
				Sources: cli.EnvVars("POLYGON_API_KEY"),
			},
		},
		Before: markStarted,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return fetchAction(ctx, cmd, d)
		},
		Commands: []*cli.Command{
			newReturnsCommand(d),
			newOptimizeCommand(d),
			newSchemaCommand(d),
			newProvidersCommand(d),
		},
	}
}

func formatNames() []string {
	formats := writer.SupportedFormats()

	names := make([]string, 0, len(formats))
	for _, format := range formats {
		names = append(names, string(format))
	}

	return names
}

// loadConfig merges defaults, the config file, PRICEFETCH_* variables and the flags set on cmd.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("provider") {
		cfg.Provider = strings.ToLower(strings.TrimSpace(cmd.String("provider")))
	}

	if cmd.IsSet("format") {
		cfg.Format = strings.ToLower(strings.TrimSpace(cmd.String("format")))
	}

	if cmd.IsSet("out") {
		cfg.Output = cmd.String("out")
	}

	if cmd.IsSet("interval") {
		cfg.Interval = cmd.String("interval")
	}

	if cmd.IsSet("precision") {
		cfg.Precision = int(cmd.Int("precision"))
	}

	if cmd.IsSet("progress") {
		cfg.Progress = cmd.Bool("progress")
	}

	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}

	if cmd.IsSet("polygon-api-key") {
		cfg.PolygonApiKey = cmd.String("polygon-api-key")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fetchAction(ctx context.Context, cmd *cli.Command, d deps) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	tickers := append(cmd.StringSlice("tickers"), cmd.Args().Slice()...)
	if len(marketdata.NormalizeTickers(tickers)) == 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "at least one ticker is required (--tickers or positional arguments)")
	}

	interval, err := types.ParseInterval(cfg.Interval)
	if err != nil {
		return err
	}

	// not marked Required: the subcommands run without --start
	if !cmd.IsSet("start") {
		return errors.New(errors.ErrCodeInvalidParameter, "--start is required")
	}

	startDate := cmd.Timestamp("start")

	endDate := today(d.now())
	if cmd.IsSet("end") {
		endDate = cmd.Timestamp("end")
	}

	log, err := d.newLogger(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create logger", err)
	}

	defer func() {
		_ = log.Sync()
	}()

	marketProvider, err := d.newProvider(provider.ProviderType(cfg.Provider), provider.Options{
		PolygonApiKey:  cfg.PolygonApiKey,
		YahooBaseURL:   cfg.YahooBaseURL,
		BinanceBaseURL: cfg.BinanceBaseURL,
	})
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidProvider, err, "failed to create %s client", cfg.Provider)
	}

	var onProgress provider.OnDownloadProgress
	if cfg.Progress {
		onProgress = newProgressReporter(d.stderr)
	}

	client, err := marketdata.NewClientWithProvider(marketdata.ClientConfig{
		ProviderType:   provider.ProviderType(cfg.Provider),
		WriterType:     marketdata.WriterType(cfg.Format),
		PolygonApiKey:  cfg.PolygonApiKey,
		YahooBaseURL:   cfg.YahooBaseURL,
		BinanceBaseURL: cfg.BinanceBaseURL,
		Precision:      cfg.Precision,
	}, marketProvider, log, onProgress)
	if err != nil {
		return err
	}

	result, err := client.Download(ctx, marketdata.FetchParams{
		Tickers:    tickers,
		StartDate:  startDate,
		EndDate:    endDate,
		Interval:   interval,
		OutputPath: cfg.Output,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(d.stdout, "Wrote %d rows × %d tickers to %s\n", result.Rows, result.Columns, result.OutputPath)

	return nil
}

// today returns the calendar date of now as a UTC midnight.
func today(now time.Time) time.Time {
	y, m, day := now.Date()

	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func newProgressReporter(w io.Writer) provider.OnDownloadProgress {
	var bar *progressbar.ProgressBar

	return func(current, total float64, message string) {
		if bar == nil {
			bar = progressbar.NewOptions(int(total),
				progressbar.OptionSetWriter(w),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription(message),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}

		bar.Describe(message)
		_ = bar.Set(int(current))
	}
}
