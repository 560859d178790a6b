package marketdata

import (
	"encoding/csv"
	stderrors "errors"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-pricefetch/internal/types"
	"github.com/rxtech-lab/argo-pricefetch/pkg/errors"
)

// LoadPriceCSV reads a table written by the csv writer.
func LoadPriceCSV(path string) (*types.PriceTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReadFailed, "failed to open price file", err)
	}
	defer file.Close()

	return ReadPriceCSV(file)
}

// ReadPriceCSV parses a wide price table. The first header cell must be Date or Datetime;
// rows whose field count differs from the header are skipped and empty cells load as None.
func ReadPriceCSV(r io.Reader) (*types.PriceTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if stderrors.Is(err, io.EOF) {
		return nil, errors.New(errors.ErrCodeMarketDataParseFailed, "price file is empty")
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeReadFailed, "failed to read header", err)
	}

	indexName := strings.TrimPrefix(header[0], "\ufeff")
	if indexName != types.IndexDate && indexName != types.IndexDatetime {
		return nil, errors.Newf(errors.ErrCodeMarketDataParseFailed,
			"first column must be %s or %s, got %q", types.IndexDate, types.IndexDatetime, header[0])
	}

	table := &types.PriceTable{
		Field:     "",
		IndexName: indexName,
		Index:     []time.Time{},
		Tickers:   header[1:],
		Values:    [][]optional.Option[float64]{},
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeReadFailed, err, "failed to read line %d", line)
		}

		if len(record) != len(header) {
			continue
		}

		ts, err := parseIndex(record[0])
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "line %d: invalid %s", line, indexName)
		}

		values := make([]optional.Option[float64], len(record)-1)

		for i, cell := range record[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				values[i] = optional.None[float64]()

				continue
			}

			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err,
					"line %d: invalid price for %s", line, table.Tickers[i])
			}

			values[i] = optional.Some(v)
		}

		table.Index = append(table.Index, ts)
		table.Values = append(table.Values, values)
	}

	return table, nil
}

func parseIndex(s string) (time.Time, error) {
	layouts := []string{types.DateLayout, types.DatetimeLayout, time.DateTime, time.RFC3339}

	var firstErr error

	for _, layout := range layouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts, nil
		}

		if firstErr == nil {
			firstErr = err
		}
	}

	return time.Time{}, firstErr
}
