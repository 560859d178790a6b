package writer

import (
	"fmt"

	"github.com/rxtech-lab/argo-pricefetch/internal/types"
	"github.com/xuri/excelize/v2"
)

// PricesSheet is the worksheet the table is written to.
const PricesSheet = "Prices"

// ExcelWriter writes the wide table to a single worksheet.
type ExcelWriter struct {
	outputPath string
	options    Options
	file       *excelize.File
	columns    int
	nextRow    int
}

func NewExcelWriter(outputPath string, options Options) PriceWriter {
	return &ExcelWriter{
		outputPath: outputPath,
		options:    options,
	}
}

func (w *ExcelWriter) Initialize(tickers []string) error {
	w.file = excelize.NewFile()

	if err := w.file.SetSheetName("Sheet1", PricesSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, 0, len(tickers)+1)
	header = append(header, w.options.indexName())

	for _, ticker := range tickers {
		header = append(header, ticker)
	}

	w.columns = len(tickers)
	w.nextRow = 1

	return w.appendRow(header)
}

func (w *ExcelWriter) Write(row types.PriceRow) error {
	if w.file == nil {
		return fmt.Errorf("writer not initialized")
	}

	if len(row.Values) != w.columns {
		return fmt.Errorf("row has %d values, expected %d", len(row.Values), w.columns)
	}

	cells := make([]any, 0, len(row.Values)+1)
	cells = append(cells, w.options.formatTime(row))

	for _, v := range row.Values {
		if price, ok := roundPrice(v, w.options.Precision); ok {
			cells = append(cells, price)
		} else {
			cells = append(cells, nil)
		}
	}

	return w.appendRow(cells)
}

func (w *ExcelWriter) appendRow(cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, w.nextRow)
	if err != nil {
		return err
	}

	if err := w.file.SetSheetRow(PricesSheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", w.nextRow, err)
	}

	w.nextRow++

	return nil
}

func (w *ExcelWriter) Finalize() (string, error) {
	if w.file == nil {
		return "", fmt.Errorf("writer not initialized")
	}

	if err := w.file.SaveAs(w.outputPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	return w.outputPath, nil
}

func (w *ExcelWriter) Close() error {
	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil

	return err
}

func (w *ExcelWriter) GetOutputPath() string {
	return w.outputPath
}
