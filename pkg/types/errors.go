package types

import "errors"

// Error kinds shared by connectors, aggregators and the orchestrator.
// Callers wrap them with fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInsufficientFees   = errors.New("insufficient balance for network fees")
	ErrInsufficientFunds  = errors.New("insufficient token balance")
	ErrBalanceUnavailable = errors.New("balance unavailable")
	ErrAggregator         = errors.New("aggregator error")
	ErrBuildUnavailable   = errors.New("no swap transaction returned")
	ErrBroadcast          = errors.New("broadcast failed")
	ErrConnector          = errors.New("chain rpc error")
)

// IsClientError reports whether err was caused by the request itself
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInsufficientFees) ||
		errors.Is(err, ErrInsufficientFunds)
}
