package types

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/moznion/go-optional"
)

// Field names a column family of a provider response.
type Field string

const (
	FieldOpen     Field = "Open"
	FieldHigh     Field = "High"
	FieldLow      Field = "Low"
	FieldClose    Field = "Close"
	FieldAdjClose Field = "Adj Close"
	FieldVolume   Field = "Volume"
)

// Series is one ticker's values for one field, aligned with a Frame index.
type Series = []optional.Option[float64]

// Frame is the multi-field table returned by a provider: for every field it
// offers, one series per ticker aligned on a shared, ascending time index.
type Frame struct {
	Index     []time.Time
	Tickers   []string
	IndexName string

	fields []Field
	data   map[Field]map[string]Series
}

// Fields returns the field names present in the frame, in the order the provider offered them.
func (f *Frame) Fields() []Field {
	return slices.Clone(f.fields)
}

// FieldNames returns Fields as plain strings.
func (f *Frame) FieldNames() []string {
	names := make([]string, len(f.fields))
	for i, field := range f.fields {
		names[i] = string(field)
	}

	return names
}

// HasField reports whether field is part of the frame's field-name collection.
func (f *Frame) HasField(field Field) bool {
	return slices.Contains(f.fields, field)
}

// Len returns the number of index entries.
func (f *Frame) Len() int {
	return len(f.Index)
}

// Table extracts a single field as a PriceTable with one column per ticker.
func (f *Frame) Table(field Field) (*PriceTable, error) {
	columns, ok := f.data[field]
	if !ok {
		return nil, fmt.Errorf("field %q not present in frame", field)
	}

	values := make([][]optional.Option[float64], len(f.Index))
	for row := range f.Index {
		values[row] = make([]optional.Option[float64], len(f.Tickers))
		for col, ticker := range f.Tickers {
			series := columns[ticker]
			if row < len(series) {
				values[row][col] = series[row]
			} else {
				values[row][col] = optional.None[float64]()
			}
		}
	}

	return &PriceTable{
		Field:     field,
		IndexName: f.IndexName,
		Index:     slices.Clone(f.Index),
		Tickers:   slices.Clone(f.Tickers),
		Values:    values,
	}, nil
}

// FrameBuilder collects per-ticker observations in any order and aligns them into a Frame.
type FrameBuilder struct {
	indexName string
	tickers   []string
	fields    []Field
	times     map[int64]time.Time
	points    map[Field]map[string]map[int64]float64
}

// NewFrameBuilder creates an empty builder. indexName is carried to the resulting Frame.
func NewFrameBuilder(indexName string) *FrameBuilder {
	return &FrameBuilder{
		indexName: indexName,
		tickers:   nil,
		fields:    nil,
		times:     make(map[int64]time.Time),
		points:    make(map[Field]map[string]map[int64]float64),
	}
}

// DeclareField marks field as offered by the provider even if no values arrive for it.
func (b *FrameBuilder) DeclareField(field Field) {
	if _, ok := b.points[field]; ok {
		return
	}

	b.fields = append(b.fields, field)
	b.points[field] = make(map[string]map[int64]float64)
}

// Add records one observation. Tickers appear in the frame in the order of their first observation.
func (b *FrameBuilder) Add(ticker string, t time.Time, field Field, value float64) {
	b.DeclareField(field)

	if !slices.Contains(b.tickers, ticker) {
		b.tickers = append(b.tickers, ticker)
	}

	key := t.UnixNano()
	if _, ok := b.times[key]; !ok {
		b.times[key] = t
	}

	byTicker := b.points[field]
	if byTicker[ticker] == nil {
		byTicker[ticker] = make(map[int64]float64)
	}

	byTicker[ticker][key] = value
}

// Build aligns every observation on the union of timestamps, ascending.
// Cells without an observation are None.
func (b *FrameBuilder) Build() *Frame {
	keys := make([]int64, 0, len(b.times))
	for key := range b.times {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	index := make([]time.Time, len(keys))
	for i, key := range keys {
		index[i] = b.times[key]
	}

	data := make(map[Field]map[string]Series, len(b.fields))
	for _, field := range b.fields {
		data[field] = make(map[string]Series, len(b.tickers))

		for _, ticker := range b.tickers {
			series := make(Series, len(keys))
			observed := b.points[field][ticker]

			for i, key := range keys {
				if v, ok := observed[key]; ok {
					series[i] = optional.Some(v)
				} else {
					series[i] = optional.None[float64]()
				}
			}

			data[field][ticker] = series
		}
	}

	return &Frame{
		Index:     index,
		Tickers:   slices.Clone(b.tickers),
		IndexName: b.indexName,
		fields:    slices.Clone(b.fields),
		data:      data,
	}
}
