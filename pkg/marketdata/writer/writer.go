package writer

import (
	"fmt"
	"strings"

	"github.com/rxtech-lab/argo-pricefetch/internal/types"
)

// PriceWriter defines the interface for writing a price table to a destination.
type PriceWriter interface {
	// Initialize sets up the writer, creating the destination and writing any header for the given tickers.
	Initialize(tickers []string) error
	// Write persists a single row. Values are aligned with the tickers passed to Initialize.
	Write(row types.PriceRow) error
	// Finalize completes the writing process (e.g., flushes buffers, commits transactions).
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer. It is safe to call after Finalize.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}

// Format names an output file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
	FormatDuckDB  Format = "duckdb"
	FormatXLSX    Format = "xlsx"
)

// SupportedFormats lists every format NewWriter accepts.
func SupportedFormats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatParquet, FormatDuckDB, FormatXLSX}
}

// Options controls how rows are rendered.
type Options struct {
	// IndexName is the header of the time column ("Date" or "Datetime").
	IndexName string
	// Precision is the number of decimal places kept for prices. Negative keeps full precision.
	Precision int
}

func (o Options) indexName() string {
	if o.IndexName == "" {
		return types.IndexDate
	}

	return o.IndexName
}

func (o Options) formatTime(row types.PriceRow) string {
	table := types.PriceTable{IndexName: o.indexName()}

	return table.FormatTime(row.Time)
}

// NewWriter creates the writer for format.
func NewWriter(format Format, outputPath string, options Options) (PriceWriter, error) {
	switch Format(strings.ToLower(strings.TrimSpace(string(format)))) {
	case FormatCSV:
		return NewCSVWriter(outputPath, options), nil
	case FormatJSON:
		return NewJSONWriter(outputPath, options), nil
	case FormatParquet:
		return NewParquetWriter(outputPath, options), nil
	case FormatDuckDB:
		return NewDuckDBWriter(outputPath, options), nil
	case FormatXLSX:
		return NewExcelWriter(outputPath, options), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteTable writes every row of table through w and finalizes it. w is always closed.
func WriteTable(w PriceWriter, table *types.PriceTable) (outputPath string, err error) {
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("error closing writer: %w", cerr)
		}
	}()

	if err = w.Initialize(table.Tickers); err != nil {
		return "", fmt.Errorf("failed to initialize writer: %w", err)
	}

	for i := range table.Rows() {
		if err = w.Write(table.Row(i)); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	outputPath, err = w.Finalize()
	if err != nil {
		return "", fmt.Errorf("failed to finalize writer: %w", err)
	}

	return outputPath, nil
}
