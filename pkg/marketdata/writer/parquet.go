package writer

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
)

// PriceRecord is one (time, ticker) cell of a price table in long form.
type PriceRecord struct {
	Timestamp int64    `parquet:"t"` // Unix timestamp in milliseconds
	Time      string   `parquet:"time"`
	Ticker    string   `parquet:"ticker"`
	Price     *float64 `parquet:"price,optional"`
}

// ParquetWriter buffers rows in long form and writes the file on Finalize.
type ParquetWriter struct {
	outputPath string
	options    Options
	tickers    []string
	records    []PriceRecord
}

func NewParquetWriter(outputPath string, options Options) PriceWriter {
	return &ParquetWriter{
		outputPath: outputPath,
		options:    options,
	}
}

func (w *ParquetWriter) Initialize(tickers []string) error {
	w.tickers = tickers
	w.records = make([]PriceRecord, 0)

	return nil
}

func (w *ParquetWriter) Write(row types.PriceRow) error {
	if w.records == nil {
		return fmt.Errorf("writer not initialized")
	}

	if len(row.Values) != len(w.tickers) {
		return fmt.Errorf("row has %d values, expected %d", len(row.Values), len(w.tickers))
	}

	label := w.options.formatTime(row)

	for i, v := range row.Values {
		record := PriceRecord{
			Timestamp: row.Time.UnixMilli(),
			Time:      label,
			Ticker:    w.tickers[i],
			Price:     nil,
		}

		if price, ok := roundPrice(v, w.options.Precision); ok {
			record.Price = &price
		}

		w.records = append(w.records, record)
	}

	return nil
}

func (w *ParquetWriter) Finalize() (string, error) {
	if w.records == nil {
		return "", fmt.Errorf("writer not initialized")
	}

	if err := parquet.WriteFile(w.outputPath, w.records); err != nil {
		return "", fmt.Errorf("failed to write parquet file: %w", err)
	}

	return w.outputPath, nil
}

func (w *ParquetWriter) Close() error {
	w.records = nil

	return nil
}

func (w *ParquetWriter) GetOutputPath() string {
	return w.outputPath
}
