package writer

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/rxtech-lab/argo-pricefetch/internal/types"
)

// CSVWriter writes a wide table: the time column followed by one column per ticker.
type CSVWriter struct {
	outputPath string
	options    Options
	file       *os.File
	csv        *csv.Writer
	columns    int
}

// NewCSVWriter creates a new CSVWriter. The parent directory of outputPath must exist.
func NewCSVWriter(outputPath string, options Options) PriceWriter {
	return &CSVWriter{
		outputPath: outputPath,
		options:    options,
	}
}

func (w *CSVWriter) Initialize(tickers []string) error {
	file, err := os.Create(w.outputPath)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}

	w.file = file
	w.csv = csv.NewWriter(file)
	w.columns = len(tickers)

	header := append([]string{w.options.indexName()}, tickers...)
	if err := w.csv.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	return nil
}

func (w *CSVWriter) Write(row types.PriceRow) error {
	if w.csv == nil {
		return fmt.Errorf("writer not initialized")
	}

	if len(row.Values) != w.columns {
		return fmt.Errorf("row has %d values, expected %d", len(row.Values), w.columns)
	}

	record := make([]string, 0, len(row.Values)+1)
	record = append(record, w.options.formatTime(row))

	for _, v := range row.Values {
		record = append(record, formatPrice(v, w.options.Precision))
	}

	return w.csv.Write(record)
}

func (w *CSVWriter) Finalize() (string, error) {
	if w.csv == nil {
		return "", fmt.Errorf("writer not initialized")
	}

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}

	err := w.file.Close()
	w.file = nil

	if err != nil {
		return "", fmt.Errorf("failed to close csv file: %w", err)
	}

	return w.outputPath, nil
}

func (w *CSVWriter) Close() error {
	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil

	return err
}

func (w *CSVWriter) GetOutputPath() string {
	return w.outputPath
}
