package swap

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"multiswap/pkg/types"
)

// parseAmount validates a request amount. An empty or zero amount returns
// zero, which callers treat as "not given".
func parseAmount(raw string, human bool) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", types.ErrInvalidRequest, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", types.ErrInvalidRequest)
	}
	if !human && !d.IsInteger() {
		return decimal.Zero, fmt.Errorf("%w: amount must be an integer number of base units", types.ErrInvalidRequest)
	}
	return d, nil
}

func toBaseUnits(amount decimal.Decimal, human bool, decimals int32) (*big.Int, error) {
	if !human {
		return amount.BigInt(), nil
	}
	scaled := amount.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: amount %s has more than %d decimals", types.ErrInvalidRequest, amount, decimals)
	}
	return scaled.BigInt(), nil
}

// toHuman scales base units down by decimals
func toHuman(units *big.Int, decimals int32) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -decimals)
}
