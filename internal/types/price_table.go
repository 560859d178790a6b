package types

import (
	"slices"
	"time"

	"github.com/moznion/go-optional"
)

// PriceTable holds one price field for several tickers: rows are dates, columns are tickers.
// A None cell means the provider had no value for that date and ticker.
type PriceTable struct {
	Field     Field
	IndexName string
	Index     []time.Time
	Tickers   []string
	Values    [][]optional.Option[float64]
}

// PriceRow is a single row of a PriceTable.
type PriceRow struct {
	Time   time.Time
	Values []optional.Option[float64]
}

// Rows returns the number of observations.
func (t *PriceTable) Rows() int {
	return len(t.Index)
}

// Columns returns the number of tickers.
func (t *PriceTable) Columns() int {
	return len(t.Tickers)
}

// Row returns row i.
func (t *PriceTable) Row(i int) PriceRow {
	return PriceRow{
		Time:   t.Index[i],
		Values: t.Values[i],
	}
}

// Price returns the cell at row i, column j.
func (t *PriceTable) Price(i, j int) optional.Option[float64] {
	return t.Values[i][j]
}

// TimeLayout returns the layout used to render the index.
func (t *PriceTable) TimeLayout() string {
	if t.IndexName == IndexDatetime {
		return DatetimeLayout
	}

	return DateLayout
}

// FormatTime renders an index value with the table's layout.
func (t *PriceTable) FormatTime(ts time.Time) string {
	return ts.Format(t.TimeLayout())
}

// SimpleReturns computes (p_t / p_{t-1}) - 1 for every column.
// The result has one fewer row; a return is None when either price is None.
func (t *PriceTable) SimpleReturns() *PriceTable {
	n := t.Rows()
	if n < 2 {
		return &PriceTable{
			Field:     t.Field,
			IndexName: t.IndexName,
			Index:     []time.Time{},
			Tickers:   slices.Clone(t.Tickers),
			Values:    [][]optional.Option[float64]{},
		}
	}

	index := make([]time.Time, 0, n-1)
	values := make([][]optional.Option[float64], 0, n-1)

	for i := 1; i < n; i++ {
		index = append(index, t.Index[i])

		row := make([]optional.Option[float64], t.Columns())
		for j := range t.Tickers {
			prev, cur := t.Values[i-1][j], t.Values[i][j]
			if prev.IsNone() || cur.IsNone() {
				row[j] = optional.None[float64]()

				continue
			}

			row[j] = optional.Some(cur.Unwrap()/prev.Unwrap() - 1)
		}

		values = append(values, row)
	}

	return &PriceTable{
		Field:     t.Field,
		IndexName: t.IndexName,
		Index:     index,
		Tickers:   slices.Clone(t.Tickers),
		Values:    values,
	}
}
