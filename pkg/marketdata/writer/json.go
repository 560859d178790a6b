package writer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rxtech-lab/argo-pricefetch/internal/types"
)

// JSONWriter writes an array of records, one object per row with the time column first
// and tickers in table order. Missing prices are null.
type JSONWriter struct {
	outputPath string
	options    Options
	file       *os.File
	buf        *bufio.Writer
	keys       [][]byte
	rows       int
}

func NewJSONWriter(outputPath string, options Options) PriceWriter {
	return &JSONWriter{
		outputPath: outputPath,
		options:    options,
	}
}

func (w *JSONWriter) Initialize(tickers []string) error {
	names := append([]string{w.options.indexName()}, tickers...)

	w.keys = make([][]byte, len(names))
	for i, name := range names {
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}

		w.keys[i] = key
	}

	file, err := os.Create(w.outputPath)
	if err != nil {
		return fmt.Errorf("failed to create json file: %w", err)
	}

	w.file = file
	w.buf = bufio.NewWriter(file)
	w.rows = 0

	_, err = w.buf.WriteString("[")

	return err
}

func (w *JSONWriter) Write(row types.PriceRow) error {
	if w.buf == nil {
		return fmt.Errorf("writer not initialized")
	}

	if len(row.Values) != len(w.keys)-1 {
		return fmt.Errorf("row has %d values, expected %d", len(row.Values), len(w.keys)-1)
	}

	timestamp, err := json.Marshal(w.options.formatTime(row))
	if err != nil {
		return err
	}

	line := make([]byte, 0, 64)
	if w.rows > 0 {
		line = append(line, ',')
	}

	line = append(line, "\n  {"...)
	line = append(line, w.keys[0]...)
	line = append(line, ':')
	line = append(line, timestamp...)

	for i, v := range row.Values {
		line = append(line, ',')
		line = append(line, w.keys[i+1]...)
		line = append(line, ':')

		if price := formatPrice(v, w.options.Precision); price != "" {
			line = append(line, price...)
		} else {
			line = append(line, "null"...)
		}
	}

	line = append(line, '}')

	if _, err := w.buf.Write(line); err != nil {
		return fmt.Errorf("failed to write json row: %w", err)
	}

	w.rows++

	return nil
}

func (w *JSONWriter) Finalize() (string, error) {
	if w.buf == nil {
		return "", fmt.Errorf("writer not initialized")
	}

	closing := "]\n"
	if w.rows > 0 {
		closing = "\n]\n"
	}

	if _, err := w.buf.WriteString(closing); err != nil {
		return "", fmt.Errorf("failed to write json: %w", err)
	}

	if err := w.buf.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush json: %w", err)
	}

	err := w.file.Close()
	w.file = nil

	if err != nil {
		return "", fmt.Errorf("failed to close json file: %w", err)
	}

	return w.outputPath, nil
}

func (w *JSONWriter) Close() error {
	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil

	return err
}

func (w *JSONWriter) GetOutputPath() string {
	return w.outputPath
}
