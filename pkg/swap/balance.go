package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"multiswap/pkg/connector"
	"multiswap/pkg/telemetry"
	"multiswap/pkg/types"
)

// checkFees fails with ErrInsufficientFees when the native balance is below
// the chain's fee reserve
func checkFees(ctx context.Context, rt *Runtime) error {
	native, err := rt.Connector.NativeBalance(ctx)
	if err != nil {
		return err
	}
	if native.Cmp(rt.Profile.FeeReserve) < 0 {
		return fmt.Errorf("%w: have %s %s, need at least %s %s",
			types.ErrInsufficientFees,
			toHuman(native, rt.Profile.Native.Decimals), rt.Profile.Native.Symbol,
			toHuman(rt.Profile.FeeReserve, rt.Profile.Native.Decimals), rt.Profile.Native.Symbol)
	}
	return nil
}

// tokenBalance reads a balance and treats a missing account as zero
func tokenBalance(ctx context.Context, rt *Runtime, token string) (connector.Balance, error) {
	bal, err := rt.Connector.TokenBalance(ctx, token)
	if err != nil && !errors.Is(err, types.ErrBalanceUnavailable) {
		return connector.Balance{}, err
	}
	if bal.Units == nil {
		bal.Units = new(big.Int)
	}
	if bal.Decimals == 0 {
		if known, ok := rt.Profile.KnownDecimals(token); ok {
			bal.Decimals = known
		}
	}
	return bal, nil
}

// checkFunds converts the plan amount into base units and fails with
// ErrInsufficientFunds when the input balance does not cover it
func checkFunds(ctx context.Context, rt *Runtime, plan *Plan) (*big.Int, error) {
	bal, err := tokenBalance(ctx, rt, plan.InputToken)
	if err != nil {
		return nil, err
	}

	if bal.Units.Sign() == 0 {
		return nil, fmt.Errorf("%w: have 0, need %s", types.ErrInsufficientFunds, plan.Amount)
	}

	units, err := plan.Units(bal.Decimals)
	if err != nil {
		return nil, err
	}
	if units.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", types.ErrInvalidRequest)
	}
	if bal.Units.Cmp(units) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s",
			types.ErrInsufficientFunds, toHuman(bal.Units, bal.Decimals), toHuman(units, bal.Decimals))
	}
	return units, nil
}

// Balance returns the wallet's balance of token on chain in whole-token
// units. A wallet without an account for the token has a zero balance.
func (s *Service) Balance(ctx context.Context, chain types.Chain, token string) (decimal.Decimal, error) {
	rt, err := s.runtime(chain)
	if err != nil {
		return decimal.Zero, err
	}
	telemetry.BalanceRequestsTotal.WithLabelValues(string(chain)).Inc()

	bal, err := tokenBalance(ctx, rt, token)
	if err != nil {
		return decimal.Zero, err
	}
	return toHuman(bal.Units, bal.Decimals), nil
}
