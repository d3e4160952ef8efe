package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a swap intent
type Status string

const (
	StatusPending   Status = "pending"
	StatusBroadcast Status = "broadcast"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned when an intent id is unknown
var ErrNotFound = errors.New("intent not found")

// Intent records a swap the gateway is about to sign. It is written before
// signing so a crash between broadcast and response leaves a trace.
type Intent struct {
	ID          string    `json:"id"`
	Chain       string    `json:"chain"`
	Wallet      string    `json:"wallet"`
	Direction   string    `json:"direction,omitempty"`
	InputToken  string    `json:"inputToken"`
	OutputToken string    `json:"outputToken"`
	Amount      string    `json:"amount"`
	Status      Status    `json:"status"`
	TxID        string    `json:"txid,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store persists intents
type Store interface {
	Record(ctx context.Context, intent *Intent) error
	Update(ctx context.Context, id string, status Status, txid, errMsg string) error
	Get(ctx context.Context, id string) (*Intent, error)
	// Recent returns up to limit intents, newest first
	Recent(ctx context.Context, limit int) ([]*Intent, error)
	Close() error
}

// NewIntent fills in an id, the pending status and timestamps
func NewIntent(chain, wallet, direction, inputToken, outputToken, amount string) *Intent {
	now := time.Now().UTC()
	return &Intent{
		ID:          uuid.NewString(),
		Chain:       chain,
		Wallet:      wallet,
		Direction:   direction,
		InputToken:  inputToken,
		OutputToken: outputToken,
		Amount:      amount,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Open returns the store for driver: "file", "sqlite", "mysql", or "" / "none"
// for a store that discards everything
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", "none":
		return Nop{}, nil
	case "file":
		return NewFileStore(dsn)
	case "sqlite", "mysql":
		return NewSQLStore(driver, dsn)
	default:
		return nil, fmt.Errorf("unknown journal driver: %s", driver)
	}
}

// Nop discards intents
type Nop struct{}

func (Nop) Record(context.Context, *Intent) error                       { return nil }
func (Nop) Update(context.Context, string, Status, string, string) error { return nil }
func (Nop) Get(context.Context, string) (*Intent, error)                 { return nil, ErrNotFound }
func (Nop) Recent(context.Context, int) ([]*Intent, error)              { return nil, nil }
func (Nop) Close() error                                                 { return nil }
