package marketdata

import (
	"slices"

	"github.com/rxtech-lab/argo-pricefetch/internal/types"
	"github.com/rxtech-lab/argo-pricefetch/pkg/errors"
)

// PriceFieldPreference is the order in which price fields are tried.
var PriceFieldPreference = []types.Field{types.FieldAdjClose, types.FieldClose}

// SelectPrices picks the first field of PriceFieldPreference present in the frame
// and returns it as a table. A frame with neither yields a *errors.MissingPriceFieldError.
func SelectPrices(frame *types.Frame) (*types.PriceTable, error) {
	for _, field := range PriceFieldPreference {
		if frame.HasField(field) {
			return frame.Table(field)
		}
	}

	wanted := make([]string, len(PriceFieldPreference))
	for i, field := range PriceFieldPreference {
		wanted[i] = string(field)
	}

	return nil, errors.NewMissingPriceFieldError(wanted, slices.Clone(frame.FieldNames()))
}
