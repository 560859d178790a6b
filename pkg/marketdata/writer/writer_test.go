package writer

import (
	"bufio"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
	"github.com/stretchr/testify/suite"
)

func sampleTable() *types.PriceTable {
	return &types.PriceTable{
		Field:     types.FieldAdjClose,
		IndexName: types.IndexDate,
		Index: []time.Time{
			time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 1, 4, 0, 0, 0, 0, time.UTC),
		},
		Tickers: []string{"AAPL", "MSFT"},
		Values: [][]optional.Option[float64]{
			{optional.Some(124.216301), optional.Some(237.036)},
			{optional.Some(125.497), optional.None[float64]()},
		},
	}
}

// recordingWriter records the lifecycle calls made by WriteTable.
type recordingWriter struct {
	calls       []string
	writeErr    error
	finalizeErr error
}

func (r *recordingWriter) Initialize(_ []string) error {
	r.calls = append(r.calls, "initialize")

	return nil
}

func (r *recordingWriter) Write(_ types.PriceRow) error {
	r.calls = append(r.calls, "write")

	return r.writeErr
}

func (r *recordingWriter) Finalize() (string, error) {
	r.calls = append(r.calls, "finalize")

	return "out", r.finalizeErr
}

func (r *recordingWriter) Close() error {
	r.calls = append(r.calls, "close")

	return nil
}

func (r *recordingWriter) GetOutputPath() string { return "out" }

type WriterTestSuite struct {
	suite.Suite
	tempDir string
}

func TestWriterSuite(t *testing.T) {
	suite.Run(t, new(WriterTestSuite))
}

func (suite *WriterTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *WriterTestSuite) TestNewWriter() {
	tests := []struct {
		format   Format
		expected any
	}{
		{FormatCSV, &CSVWriter{}},
		{FormatJSON, &JSONWriter{}},
		{FormatParquet, &ParquetWriter{}},
		{FormatDuckDB, &DuckDBWriter{}},
		{FormatXLSX, &ExcelWriter{}},
		{" CSV ", &CSVWriter{}},
	}

	for _, tc := range tests {
		suite.Run(string(tc.format), func() {
			w, err := NewWriter(tc.format, "out", Options{})
			suite.Require().NoError(err)
			suite.IsType(tc.expected, w)
			suite.Equal("out", w.GetOutputPath())
		})
	}

	w, err := NewWriter("feather", "out", Options{})
	suite.Error(err)
	suite.Nil(w)
}

func (suite *WriterTestSuite) TestWriteTableLifecycle() {
	w := &recordingWriter{}

	path, err := WriteTable(w, sampleTable())
	suite.NoError(err)
	suite.Equal("out", path)
	suite.Equal([]string{"initialize", "write", "write", "finalize", "close"}, w.calls)
}

func (suite *WriterTestSuite) TestWriteTableClosesOnError() {
	w := &recordingWriter{writeErr: errors.New("disk full")}

	_, err := WriteTable(w, sampleTable())
	suite.Error(err)
	suite.Contains(err.Error(), "disk full")
	suite.Equal([]string{"initialize", "write", "close"}, w.calls)
}

func (suite *WriterTestSuite) TestCSVWriter() {
	path := filepath.Join(suite.tempDir, "prices.csv")

	out, err := WriteTable(NewCSVWriter(path, Options{IndexName: types.IndexDate, Precision: -1}), sampleTable())
	suite.Require().NoError(err)
	suite.Equal(path, out)

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Equal("Date,AAPL,MSFT\n2023-01-03,124.216301,237.036\n2023-01-04,125.497,\n", string(content))
}

func (suite *WriterTestSuite) TestCSVWriterPrecision() {
	path := filepath.Join(suite.tempDir, "prices.csv")

	_, err := WriteTable(NewCSVWriter(path, Options{IndexName: types.IndexDate, Precision: 2}), sampleTable())
	suite.Require().NoError(err)

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Equal("Date,AAPL,MSFT\n2023-01-03,124.22,237.04\n2023-01-04,125.50,\n", string(content))
}

func (suite *WriterTestSuite) TestCSVWriterEmptyTable() {
	path := filepath.Join(suite.tempDir, "empty.csv")
	table := &types.PriceTable{IndexName: types.IndexDatetime, Tickers: []string{"AAPL"}}

	_, err := WriteTable(NewCSVWriter(path, Options{IndexName: types.IndexDatetime, Precision: -1}), table)
	suite.Require().NoError(err)

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Equal("Datetime,AAPL\n", string(content))
}

func (suite *WriterTestSuite) TestCSVWriterMissingDirectory() {
	path := filepath.Join(suite.tempDir, "missing", "prices.csv")

	_, err := WriteTable(NewCSVWriter(path, Options{}), sampleTable())
	suite.Error(err)

	_, statErr := os.Stat(filepath.Dir(path))
	suite.True(os.IsNotExist(statErr))
}

func (suite *WriterTestSuite) TestCSVWriterRowWidthMismatch() {
	w := NewCSVWriter(filepath.Join(suite.tempDir, "bad.csv"), Options{})
	suite.Require().NoError(w.Initialize([]string{"AAPL"}))
	defer w.Close()

	err := w.Write(types.PriceRow{Time: time.Now(), Values: nil})
	suite.Error(err)
}

func (suite *WriterTestSuite) TestWriteBeforeInitialize() {
	for _, format := range SupportedFormats() {
		suite.Run(string(format), func() {
			w, err := NewWriter(format, filepath.Join(suite.tempDir, "never"), Options{})
			suite.Require().NoError(err)

			suite.Error(w.Write(types.PriceRow{Time: time.Now()}))

			_, err = w.Finalize()
			suite.Error(err)
			suite.NoError(w.Close())
		})
	}
}

func (suite *WriterTestSuite) TestJSONWriter() {
	path := filepath.Join(suite.tempDir, "prices.json")

	_, err := WriteTable(NewJSONWriter(path, Options{IndexName: types.IndexDate, Precision: -1}), sampleTable())
	suite.Require().NoError(err)

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)

	expected := `[
  {"Date":"2023-01-03","AAPL":124.216301,"MSFT":237.036},
  {"Date":"2023-01-04","AAPL":125.497,"MSFT":null}
]
`
	suite.Equal(expected, string(content))
	suite.JSONEq(`[
		{"Date":"2023-01-03","AAPL":124.216301,"MSFT":237.036},
		{"Date":"2023-01-04","AAPL":125.497,"MSFT":null}
	]`, string(content))
}

func (suite *WriterTestSuite) TestJSONWriterNonFiniteIsNull() {
	path := filepath.Join(suite.tempDir, "inf.json")

	table := sampleTable()
	table.Values[0][0] = optional.Some(math.Inf(1))
	table.Values[1][0] = optional.Some(math.NaN())

	_, err := WriteTable(NewJSONWriter(path, Options{IndexName: types.IndexDate, Precision: -1}), table)
	suite.Require().NoError(err)

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.JSONEq(`[
		{"Date":"2023-01-03","AAPL":null,"MSFT":237.036},
		{"Date":"2023-01-04","AAPL":null,"MSFT":null}
	]`, string(content))
}

// failingWriter rejects every write.
type failingWriter struct{}

func (failingWriter) Write(_ []byte) (int, error) { return 0, errors.New("disk full") }

func (suite *WriterTestSuite) TestJSONWriterReportsWriteErrors() {
	w := &JSONWriter{
		outputPath: "unused.json",
		options:    Options{IndexName: types.IndexDate, Precision: -1},
		// smaller than one row, so the row goes straight to the failing writer
		buf:  bufio.NewWriterSize(failingWriter{}, 16),
		keys: [][]byte{[]byte(`"Date"`), []byte(`"AAPL"`), []byte(`"MSFT"`)},
	}

	err := w.Write(sampleTable().Row(0))
	suite.Error(err)
	suite.Contains(err.Error(), "disk full")
	suite.Equal(0, w.rows)

	_, err = w.Finalize()
	suite.Error(err)
}

func (suite *WriterTestSuite) TestJSONWriterEmptyTable() {
	path := filepath.Join(suite.tempDir, "empty.json")

	_, err := WriteTable(NewJSONWriter(path, Options{}), &types.PriceTable{Tickers: []string{"AAPL"}})
	suite.Require().NoError(err)

	content, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Equal("[]\n", string(content))
}
