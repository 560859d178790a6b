package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-pricefetch/internal/logger"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
	"github.com/rxtech-lab/argo-pricefetch/mocks"
	"github.com/rxtech-lab/argo-pricefetch/pkg/marketdata/provider"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type PricefetchCmdTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockProvider *mocks.MockProvider
	stdout       *bytes.Buffer
	stderr       *bytes.Buffer
	tempDir      string
	providerType provider.ProviderType
	now          time.Time
}

func TestPricefetchCmdSuite(t *testing.T) {
	suite.Run(t, new(PricefetchCmdTestSuite))
}

func (suite *PricefetchCmdTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.mockProvider = mocks.NewMockProvider(suite.ctrl)
	suite.mockProvider.EXPECT().Name().Return("mock").AnyTimes()
	suite.stdout = new(bytes.Buffer)
	suite.stderr = new(bytes.Buffer)
	suite.tempDir = suite.T().TempDir()
	suite.providerType = ""
	suite.now = time.Date(2023, 1, 10, 15, 30, 0, 0, time.UTC)
}

func (suite *PricefetchCmdTestSuite) deps() deps {
	return deps{
		now: func() time.Time { return suite.now },
		newProvider: func(providerType provider.ProviderType, _ provider.Options) (provider.Provider, error) {
			suite.providerType = providerType

			return suite.mockProvider, nil
		},
		newLogger: func(string) (*logger.Logger, error) { return logger.NewNopLogger(), nil },
		stdout:    suite.stdout,
		stderr:    suite.stderr,
	}
}

func (suite *PricefetchCmdTestSuite) run(args ...string) int {
	return run(context.Background(), append([]string{"pricefetch"}, args...), suite.deps())
}

func (suite *PricefetchCmdTestSuite) outPath() string {
	return filepath.Join(suite.tempDir, "prices.csv")
}

var tradingDays = []int{3, 4, 5, 6, 9}

// aaplFrame returns one bar per trading day between 2023-01-01 and 2023-01-10.
func aaplFrame(fields ...types.Field) *types.Frame {
	builder := types.NewFrameBuilder(types.IndexDate)
	for i, day := range tradingDays {
		ts := time.Date(2023, 1, day, 0, 0, 0, 0, time.UTC)
		for j, field := range fields {
			builder.Add("AAPL", ts, field, 125+float64(i)+float64(j)/4)
		}
	}

	return builder.Build()
}

func (suite *PricefetchCmdTestSuite) expectFetch(frame *types.Frame) *gomock.Call {
	return suite.mockProvider.EXPECT().
		Fetch(gomock.Any(), []string{"AAPL"},
			time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
			types.IntervalOneDay, gomock.Any()).
		Return(frame, nil)
}

func (suite *PricefetchCmdTestSuite) TestWritesAdjustedClose() {
	suite.expectFetch(aaplFrame(types.FieldClose, types.FieldAdjClose)).Times(1)

	code := suite.run("--tickers", "AAPL", "--start", "2023-01-01", "--end", "2023-01-10", "--out", suite.outPath())
	suite.Require().Equal(exitOK, code, suite.stderr.String())

	content, err := os.ReadFile(suite.outPath())
	suite.Require().NoError(err)
	suite.Equal("Date,AAPL\n2023-01-03,125.25\n2023-01-04,126.25\n2023-01-05,127.25\n2023-01-06,128.25\n2023-01-09,129.25\n", string(content))
	suite.Equal("Wrote 5 rows × 1 tickers to "+suite.outPath()+"\n", suite.stdout.String())
	suite.Equal(provider.ProviderYahoo, suite.providerType)
}

func (suite *PricefetchCmdTestSuite) TestFallsBackToClose() {
	suite.expectFetch(aaplFrame(types.FieldOpen, types.FieldClose, types.FieldVolume))

	code := suite.run("-t", "AAPL", "-s", "2023-01-01", "-e", "2023-01-10", "-o", suite.outPath())
	suite.Require().Equal(exitOK, code, suite.stderr.String())

	content, err := os.ReadFile(suite.outPath())
	suite.Require().NoError(err)
	suite.Contains(string(content), "Date,AAPL\n2023-01-03,125.25\n")
}

func (suite *PricefetchCmdTestSuite) TestMissingPriceFieldWritesNothing() {
	suite.expectFetch(aaplFrame(types.FieldOpen, types.FieldVolume))

	code := suite.run("-t", "AAPL", "-s", "2023-01-01", "-e", "2023-01-10", "-o", suite.outPath())
	suite.Equal(exitFailure, code)
	suite.Contains(suite.stderr.String(), "Open")
	suite.NoFileExists(suite.outPath())
}

func (suite *PricefetchCmdTestSuite) TestArgumentErrorsSkipProvider() {
	// no Fetch expectation: any call fails the test
	tests := []struct {
		name string
		args []string
	}{
		{"unsupported interval", []string{"-t", "AAPL", "-s", "2023-01-01", "-i", "2h"}},
		{"malformed start", []string{"-t", "AAPL", "-s", "01/01/2023"}},
		{"malformed end", []string{"-t", "AAPL", "-s", "2023-01-01", "-e", "2023-13-01"}},
		{"missing start", []string{"-t", "AAPL"}},
		{"no tickers", []string{"-s", "2023-01-01"}},
		{"unknown format", []string{"-t", "AAPL", "-s", "2023-01-01", "-f", "feather"}},
		{"polygon without key", []string{"-t", "AAPL", "-s", "2023-01-01", "-p", "polygon"}},
	}

	suite.T().Setenv("POLYGON_API_KEY", "")

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.stderr.Reset()

			code := suite.run(append(tc.args, "-o", suite.outPath())...)
			suite.Equal(exitArgument, code, suite.stderr.String())
			suite.NotEmpty(suite.stderr.String())
			suite.NoFileExists(suite.outPath())
		})
	}
}

func (suite *PricefetchCmdTestSuite) TestProviderErrorExitsOne() {
	suite.mockProvider.EXPECT().
		Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, stderrors.New("429 too many requests"))

	code := suite.run("-t", "AAPL", "-s", "2023-01-01", "-o", suite.outPath())
	suite.Equal(exitFailure, code)
	suite.Contains(suite.stderr.String(), "429 too many requests")
}

func (suite *PricefetchCmdTestSuite) TestEndDefaultsToToday() {
	suite.expectFetch(aaplFrame(types.FieldAdjClose))

	code := suite.run("-t", "AAPL", "-s", "2023-01-01", "-o", suite.outPath())
	suite.Equal(exitOK, code, suite.stderr.String())
}

func (suite *PricefetchCmdTestSuite) TestIdempotentOutput() {
	suite.expectFetch(aaplFrame(types.FieldClose, types.FieldAdjClose)).Times(2)

	args := []string{"-t", "AAPL", "-s", "2023-01-01", "-e", "2023-01-10", "-o", suite.outPath()}

	suite.Require().Equal(exitOK, suite.run(args...))
	first, err := os.ReadFile(suite.outPath())
	suite.Require().NoError(err)

	suite.Require().Equal(exitOK, suite.run(args...))
	second, err := os.ReadFile(suite.outPath())
	suite.Require().NoError(err)

	suite.Equal(first, second)
}

func (suite *PricefetchCmdTestSuite) TestTickersFromFlagsAndArgs() {
	suite.mockProvider.EXPECT().
		Fetch(gomock.Any(), []string{"AAPL", "MSFT", "GOOG"}, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(aaplFrame(types.FieldClose), nil)

	code := suite.run("-t", "aapl,msft", "-t", "AAPL", "-s", "2023-01-01", "-o", suite.outPath(), "goog")
	suite.Equal(exitOK, code, suite.stderr.String())
}

func (suite *PricefetchCmdTestSuite) TestProviderFormatAndPrecisionFlags() {
	suite.mockProvider.EXPECT().
		Fetch(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), types.IntervalOneWeek, gomock.Any()).
		Return(aaplFrame(types.FieldOpen, types.FieldClose), nil)

	out := filepath.Join(suite.tempDir, "prices.json")
	code := suite.run("-t", "AAPL", "-s", "2023-01-01", "-p", "binance", "-f", "json", "-i", "1wk", "--precision", "1", "-o", out)
	suite.Require().Equal(exitOK, code, suite.stderr.String())
	suite.Equal(provider.ProviderBinance, suite.providerType)

	content, err := os.ReadFile(out)
	suite.Require().NoError(err)
	suite.Contains(string(content), `"AAPL":125.3`)
}

func (suite *PricefetchCmdTestSuite) TestConfigFileAndFlagPrecedence() {
	configPath := filepath.Join(suite.tempDir, "pricefetch.yaml")
	suite.Require().NoError(os.WriteFile(configPath, []byte("format: json\nprovider: binance\n"), 0o600))
	suite.T().Setenv("PRICEFETCH_CONFIG", configPath)

	suite.expectFetch(aaplFrame(types.FieldClose))

	// --format on the command line beats the file; provider comes from the file
	code := suite.run("-t", "AAPL", "-s", "2023-01-01", "-f", "csv", "-o", suite.outPath())
	suite.Require().Equal(exitOK, code, suite.stderr.String())
	suite.Equal(provider.ProviderBinance, suite.providerType)

	content, err := os.ReadFile(suite.outPath())
	suite.Require().NoError(err)
	suite.Contains(string(content), "Date,AAPL\n")
}

func (suite *PricefetchCmdTestSuite) TestReturnsCommand() {
	path := filepath.Join(suite.tempDir, "prices.csv")
	suite.Require().NoError(os.WriteFile(path, []byte("Date,AAPL,MSFT\n2023-01-03,100,200\n2023-01-04,110,\n2023-01-05,99,210\n"), 0o600))

	code := suite.run("returns", path)
	suite.Require().Equal(exitOK, code, suite.stderr.String())

	output := suite.stdout.String()
	suite.Contains(output, "Loaded 2 assets × 3 observations")
	suite.Contains(output, "Computed simple returns: 2 assets × 2 observations")
	suite.Contains(output, "2023-01-04")
	suite.Contains(output, "0.100000")
	suite.Contains(output, "-0.100000")
	suite.Contains(output, "NaN")
}

func (suite *PricefetchCmdTestSuite) TestReturnsCommandErrors() {
	suite.Equal(exitArgument, suite.run("returns"))
	suite.Equal(exitFailure, suite.run("returns", filepath.Join(suite.tempDir, "missing.csv")))
}

// weightsCSV holds uncorrelated AAA and BBB returns, BBB with four times the variance.
const weightsCSV = `Date,AAA,BBB
2023-01-02,100,100
2023-01-03,102,102.5
2023-01-04,102,105.0625
2023-01-05,104.04,103.4865625
2023-01-06,104.04,101.9342640625
`

func (suite *PricefetchCmdTestSuite) TestOptimizeCommand() {
	path := filepath.Join(suite.tempDir, "prices.csv")
	suite.Require().NoError(os.WriteFile(path, []byte(weightsCSV), 0o600))

	tests := []struct {
		name     string
		args     []string
		title    string
		expected []string
	}{
		{"min variance", []string{"optimize", "min-variance", path}, "Min-variance portfolio weights (4 observations):", []string{"80.00%", "20.00%"}},
		{"min variance long", []string{"optimize", "min-variance-long", path}, "Long-only min-variance", []string{"80.00%", "20.00%"}},
		{"sharpe", []string{"optimize", "sharpe-long", path}, "maximum Sharpe", []string{"88.89%", "11.11%"}},
		{"sharpe with risk-free", []string{"optimize", "sharpe-long", "-r", "1.26", path}, "maximum Sharpe", []string{"100.00%", "0.00%"}},
		{"risk parity", []string{"optimize", "risk-parity", path}, "Risk-parity", []string{"66.67%", "33.33%"}},
		{"erc", []string{"optimize", "erc", path}, "Converged in", []string{"66.67%", "33.33%"}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.stdout.Reset()
			suite.stderr.Reset()

			code := suite.run(tc.args...)
			suite.Require().Equal(exitOK, code, suite.stderr.String())

			output := suite.stdout.String()
			suite.Contains(output, tc.title)
			suite.Contains(output, "AAA")
			suite.Contains(output, "BBB")

			for _, weight := range tc.expected {
				suite.Contains(output, weight)
			}
		})
	}
}

func (suite *PricefetchCmdTestSuite) TestOptimizeCommandErrors() {
	singular := filepath.Join(suite.tempDir, "singular.csv")
	suite.Require().NoError(os.WriteFile(singular, []byte("Date,A,B\n2023-01-02,1,1\n2023-01-03,2,2\n2023-01-04,1.5,1.5\n2023-01-05,3,3\n"), 0o600))

	suite.Equal(exitArgument, suite.run("optimize", "erc"))
	suite.Equal(exitFailure, suite.run("optimize", "risk-parity", filepath.Join(suite.tempDir, "missing.csv")))

	suite.stderr.Reset()
	suite.Equal(exitFailure, suite.run("optimize", "min-variance", singular))
	suite.Contains(suite.stderr.String(), "not invertible")
}

func (suite *PricefetchCmdTestSuite) TestSchemaCommand() {
	suite.Require().Equal(exitOK, suite.run("schema"))
	suite.Contains(suite.stdout.String(), `"polygon_api_key"`)
}

func (suite *PricefetchCmdTestSuite) TestProvidersCommand() {
	suite.Require().Equal(exitOK, suite.run("providers"))

	output := suite.stdout.String()
	suite.Contains(output, "Yahoo Finance")
	suite.Contains(output, "Polygon.io")
	suite.Contains(output, "Binance")
}

func (suite *PricefetchCmdTestSuite) TestToday() {
	loc := time.FixedZone("UTC-5", -5*60*60)
	suite.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), today(time.Date(2024, 3, 1, 23, 0, 0, 0, loc)))
}
