package writer

import (
	"math"
	"strconv"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// missing reports whether a cell has no usable price: None, NaN or ±Inf.
func missing(v optional.Option[float64]) bool {
	if v.IsNone() {
		return true
	}

	f := v.Unwrap()

	return math.IsNaN(f) || math.IsInf(f, 0)
}

// formatPrice renders a cell for text formats. Missing cells become the empty string.
func formatPrice(v optional.Option[float64], precision int) string {
	if missing(v) {
		return ""
	}

	if precision < 0 {
		return strconv.FormatFloat(v.Unwrap(), 'f', -1, 64)
	}

	return decimal.NewFromFloat(v.Unwrap()).StringFixed(int32(precision))
}

// roundPrice rounds a cell for typed formats. ok is false for missing cells.
func roundPrice(v optional.Option[float64], precision int) (price float64, ok bool) {
	if missing(v) {
		return 0, false
	}

	if precision < 0 {
		return v.Unwrap(), true
	}

	return decimal.NewFromFloat(v.Unwrap()).Round(int32(precision)).InexactFloat64(), true
}
