package swap

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"multiswap/pkg/connector"
	"multiswap/pkg/types"
)

// Well known token identifiers
const (
	SolanaUSDTMint = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	SolanaSOLMint  = "So11111111111111111111111111111111111111112"
	BaseUSDT       = "0xfde4c96c8593536e31f229ea8f37b2ada2699bb2"
	AptosUSDT      = "0x357b0b74bc833e95a115ad22604854d6b0fca151cecd94111770e5d6ffc9dc2b::coin::COIN"
)

// Token describes one side of a trading pair
type Token struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int32  `json:"decimals"`
}

// Pair is the fixed route behind a Direction
type Pair struct {
	Input  Token
	Output Token
	// DefaultAmount is used when the request carries no amount, in the
	// chain's request units
	DefaultAmount string
}

// Profile captures the per-chain request rules
type Profile struct {
	Chain  types.Chain
	Native Token
	// FeeReserve is the minimum native balance, in base units, a swap needs
	FeeReserve *big.Int
	Pairs      map[types.Direction]Pair
	// DefaultDirection supplies tokens when only an amount is given
	DefaultDirection types.Direction
	// HumanAmounts means request amounts are whole-token values that are
	// scaled by the input token's decimals; otherwise they are base units
	HumanAmounts      bool
	DirectionRequired bool
	TokenOverride     bool
	ReportDirection   bool
}

var (
	solToken      = Token{Symbol: "SOL", Address: SolanaSOLMint, Decimals: 9}
	solanaUSDT    = Token{Symbol: "USDT", Address: SolanaUSDTMint, Decimals: 6}
	ethToken      = Token{Symbol: "ETH", Address: connector.NativeETH, Decimals: 18}
	baseUSDTToken = Token{Symbol: "USDT", Address: BaseUSDT, Decimals: 6}
	aptToken      = Token{Symbol: "APT", Address: connector.AptosCoin, Decimals: 8}
	aptosUSDT     = Token{Symbol: "USDT", Address: AptosUSDT, Decimals: 6}
)

// SolanaProfile trades USDT/SOL through Jupiter. Amounts are base units.
func SolanaProfile() Profile {
	return Profile{
		Chain:      types.ChainSolana,
		Native:     solToken,
		FeeReserve: big.NewInt(2_000_000), // 0.002 SOL
		Pairs: map[types.Direction]Pair{
			types.DirectionUSDTToSol: {Input: solanaUSDT, Output: solToken, DefaultAmount: "1000000"},
			types.DirectionSolToUSDT: {Input: solToken, Output: solanaUSDT, DefaultAmount: "10000000"},
		},
		DefaultDirection: types.DirectionUSDTToSol,
		TokenOverride:    true,
	}
}

// BaseProfile trades USDT/ETH through Uniswap. Amounts are whole tokens.
func BaseProfile() Profile {
	return Profile{
		Chain:      types.ChainBase,
		Native:     ethToken,
		FeeReserve: big.NewInt(1_000_000_000_000_000), // 0.001 ETH
		Pairs: map[types.Direction]Pair{
			types.DirectionUSDTToEth: {Input: baseUSDTToken, Output: ethToken, DefaultAmount: "1"},
			types.DirectionEthToUSDT: {Input: ethToken, Output: baseUSDTToken, DefaultAmount: "0.001"},
		},
		DefaultDirection: types.DirectionUSDTToEth,
		HumanAmounts:     true,
		TokenOverride:    true,
	}
}

// AptosProfile trades USDT/APT through Liquidswap. Direction is mandatory.
func AptosProfile() Profile {
	return Profile{
		Chain:      types.ChainAptos,
		Native:     aptToken,
		FeeReserve: big.NewInt(1_000_000), // 0.01 APT
		Pairs: map[types.Direction]Pair{
			types.DirectionUSDTToApt: {Input: aptosUSDT, Output: aptToken, DefaultAmount: "1000000"},
			types.DirectionAptToUSDT: {Input: aptToken, Output: aptosUSDT, DefaultAmount: "10000000"},
		},
		DefaultDirection:  types.DirectionUSDTToApt,
		DirectionRequired: true,
		ReportDirection:   true,
	}
}

// ProfileFor returns the built-in profile of chain
func ProfileFor(chain types.Chain) (Profile, bool) {
	switch chain {
	case types.ChainSolana:
		return SolanaProfile(), true
	case types.ChainBase:
		return BaseProfile(), true
	case types.ChainAptos:
		return AptosProfile(), true
	default:
		return Profile{}, false
	}
}

// Directions lists the chain's directions in a stable order
func (p Profile) Directions() []types.Direction {
	dirs := make([]types.Direction, 0, len(p.Pairs))
	for d := range p.Pairs {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i] < dirs[j] })
	return dirs
}

// DirectionFor finds the direction trading symbol from into symbol to
func (p Profile) DirectionFor(from, to string) (types.Direction, bool) {
	for d, pair := range p.Pairs {
		if strings.EqualFold(pair.Input.Symbol, from) && strings.EqualFold(pair.Output.Symbol, to) {
			return d, true
		}
	}
	return "", false
}

// TokenBySymbol finds one of the chain's tokens by ticker
func (p Profile) TokenBySymbol(symbol string) (Token, bool) {
	if strings.EqualFold(p.Native.Symbol, symbol) {
		return p.Native, true
	}
	for _, pair := range p.Pairs {
		for _, t := range []Token{pair.Input, pair.Output} {
			if strings.EqualFold(t.Symbol, symbol) {
				return t, true
			}
		}
	}
	return Token{}, false
}

// RequestAmount expresses a whole-token amount of the direction's input
// token in the chain's request units
func (p Profile) RequestAmount(d types.Direction, whole string) (string, error) {
	pair, ok := p.Pairs[d]
	if !ok {
		return "", fmt.Errorf("%w: invalid direction %q, expected one of %v", types.ErrInvalidRequest, d, p.Directions())
	}
	amount, err := parseAmount(whole, true)
	if err != nil {
		return "", err
	}
	if p.HumanAmounts {
		return amount.String(), nil
	}
	units, err := toBaseUnits(amount, true, pair.Input.Decimals)
	if err != nil {
		return "", err
	}
	return units.String(), nil
}

// KnownDecimals returns the decimals of a token the profile knows about
func (p Profile) KnownDecimals(token string) (int32, bool) {
	if strings.EqualFold(p.Native.Address, token) {
		return p.Native.Decimals, true
	}
	for _, pair := range p.Pairs {
		for _, t := range []Token{pair.Input, pair.Output} {
			if strings.EqualFold(t.Address, token) {
				return t.Decimals, true
			}
		}
	}
	return 0, false
}

// Plan is a validated swap request
type Plan struct {
	Direction   types.Direction
	InputToken  string
	OutputToken string
	// Amount is normalized and expressed in the chain's request units
	Amount string
	amount decimal.Decimal
	human  bool
}

// Resolve validates req and fills in defaults from the direction
func (p Profile) Resolve(req types.SwapRequest) (*Plan, error) {
	var pair *Pair
	if req.Direction != "" {
		found, ok := p.Pairs[req.Direction]
		if !ok {
			return nil, fmt.Errorf("%w: invalid direction %q, expected one of %v", types.ErrInvalidRequest, req.Direction, p.Directions())
		}
		pair = &found
	} else if p.DirectionRequired {
		return nil, fmt.Errorf("%w: direction is required, expected one of %v", types.ErrInvalidRequest, p.Directions())
	}

	amount, err := parseAmount(req.Amount.String(), p.HumanAmounts)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		if pair == nil {
			return nil, fmt.Errorf("%w: specify amount or direction", types.ErrInvalidRequest)
		}
		amount, err = parseAmount(pair.DefaultAmount, p.HumanAmounts)
		if err != nil {
			return nil, err
		}
	}

	if pair == nil {
		defaults := p.Pairs[p.DefaultDirection]
		pair = &defaults
	}

	plan := &Plan{
		Direction:   req.Direction,
		InputToken:  pair.Input.Address,
		OutputToken: pair.Output.Address,
		amount:      amount,
		Amount:      amount.String(),
		human:       p.HumanAmounts,
	}
	if p.TokenOverride {
		if in := strings.TrimSpace(req.InputToken); in != "" {
			plan.InputToken = in
		}
		if out := strings.TrimSpace(req.OutputToken); out != "" {
			plan.OutputToken = out
		}
	}
	if strings.EqualFold(plan.InputToken, plan.OutputToken) {
		return nil, fmt.Errorf("%w: input and output token are the same", types.ErrInvalidRequest)
	}

	return plan, nil
}

// Units converts the plan amount into base units of a token with decimals
func (pl *Plan) Units(decimals int32) (*big.Int, error) {
	return toBaseUnits(pl.amount, pl.human, decimals)
}
