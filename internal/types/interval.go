package types

import (
	"slices"

	"github.com/rxtech-lab/argo-pricefetch/pkg/errors"
)

// Interval is the sampling granularity of a price series.
type Interval string

const (
	IntervalOneDay         Interval = "1d"
	IntervalOneWeek        Interval = "1wk"
	IntervalOneMonth       Interval = "1mo"
	IntervalOneHour        Interval = "1h"
	IntervalFiveMinutes    Interval = "5m"
	IntervalFifteenMinutes Interval = "15m"
	IntervalThirtyMinutes  Interval = "30m"
	IntervalSixtyMinutes   Interval = "60m"
)

const (
	// IndexDate names the index column of daily and coarser tables.
	IndexDate = "Date"
	// IndexDatetime names the index column of intraday tables.
	IndexDatetime = "Datetime"

	DateLayout     = "2006-01-02"
	DatetimeLayout = "2006-01-02 15:04:05-07:00"
)

var supportedIntervals = []Interval{
	IntervalOneDay,
	IntervalOneWeek,
	IntervalOneMonth,
	IntervalOneHour,
	IntervalFiveMinutes,
	IntervalFifteenMinutes,
	IntervalThirtyMinutes,
	IntervalSixtyMinutes,
}

// SupportedIntervals returns every accepted interval in display order.
func SupportedIntervals() []Interval {
	return slices.Clone(supportedIntervals)
}

// ParseInterval converts s into an Interval, rejecting anything outside the supported set.
func ParseInterval(s string) (Interval, error) {
	interval := Interval(s)
	if !interval.IsValid() {
		return "", errors.Newf(errors.ErrCodeInvalidInterval,
			"invalid interval %q (choose from %v)", s, supportedIntervals)
	}

	return interval, nil
}

func (i Interval) IsValid() bool {
	return slices.Contains(supportedIntervals, i)
}

// IsIntraday reports whether bars are shorter than one trading day.
func (i Interval) IsIntraday() bool {
	switch i {
	case IntervalOneHour, IntervalFiveMinutes, IntervalFifteenMinutes, IntervalThirtyMinutes, IntervalSixtyMinutes:
		return true
	default:
		return false
	}
}

// IndexName returns the header of the index column for tables sampled at this interval.
func (i Interval) IndexName() string {
	if i.IsIntraday() {
		return IndexDatetime
	}

	return IndexDate
}

func (i Interval) String() string {
	return string(i)
}
