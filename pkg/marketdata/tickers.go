package marketdata

import (
	"slices"
	"strings"
)

// NormalizeTickers trims and upper-cases symbols, splits comma separated entries
// and drops blanks and repeats, keeping the first occurrence.
func NormalizeTickers(tickers []string) []string {
	normalized := make([]string, 0, len(tickers))

	for _, entry := range tickers {
		for _, ticker := range strings.Split(entry, ",") {
			ticker = strings.ToUpper(strings.TrimSpace(ticker))
			if ticker == "" || slices.Contains(normalized, ticker) {
				continue
			}

			normalized = append(normalized, ticker)
		}
	}

	return normalized
}
