package connector

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"multiswap/pkg/types"
)

const (
	SolanaExplorer = "https://solscan.io/tx/"
	// SolanaNativeDecimals is the lamport scale of SOL
	SolanaNativeDecimals = 9
)

// SolanaConfig configures a SolanaConnector
type SolanaConfig struct {
	RPCURL        string
	PrivateKey    string
	Commitment    string
	SkipPreflight bool
	PollInterval  time.Duration
}

// SolanaConnector signs and submits prebuilt transactions on Solana
type SolanaConnector struct {
	client        *rpc.Client
	privateKey    solana.PrivateKey
	publicKey     solana.PublicKey
	commitment    rpc.CommitmentType
	skipPreflight bool
	poll          time.Duration
}

// NewSolanaConnector creates a connector from cfg
func NewSolanaConnector(cfg SolanaConfig) (*SolanaConnector, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not configured for Solana")
	}

	privateKey, err := ParseSolanaKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	return &SolanaConnector{
		client:        rpc.New(cfg.RPCURL),
		privateKey:    privateKey,
		publicKey:     privateKey.PublicKey(),
		commitment:    parseCommitment(cfg.Commitment),
		skipPreflight: cfg.SkipPreflight,
		poll:          poll,
	}, nil
}

func (s *SolanaConnector) Chain() types.Chain { return types.ChainSolana }

func (s *SolanaConnector) Address() string { return s.publicKey.String() }

func (s *SolanaConnector) Explorer(txid string) string { return SolanaExplorer + txid }

// NativeBalance returns the SOL balance in lamports
func (s *SolanaConnector) NativeBalance(ctx context.Context) (*big.Int, error) {
	balance, err := s.client.GetBalance(ctx, s.publicKey, s.commitment)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get balance: %v", types.ErrConnector, err)
	}
	return new(big.Int).SetUint64(balance.Value), nil
}

// TokenBalance reads the wallet's associated token account for mint.
// The wrapped SOL mint reports the native balance.
func (s *SolanaConnector) TokenBalance(ctx context.Context, token string) (Balance, error) {
	mint, err := solana.PublicKeyFromBase58(token)
	if err != nil {
		return Balance{}, fmt.Errorf("%w: invalid mint address %q: %v", types.ErrInvalidRequest, token, err)
	}

	if mint.Equals(solana.SolMint) {
		lamports, err := s.NativeBalance(ctx)
		if err != nil {
			return Balance{}, err
		}
		return Balance{Units: lamports, Decimals: SolanaNativeDecimals}, nil
	}

	ata, _, err := solana.FindAssociatedTokenAddress(s.publicKey, mint)
	if err != nil {
		return Balance{}, fmt.Errorf("%w: failed to derive associated token address: %v", types.ErrInvalidRequest, err)
	}

	res, err := s.client.GetTokenAccountBalance(ctx, ata, s.commitment)
	if err != nil {
		if isAccountMissing(err) {
			return Balance{Units: new(big.Int)}, fmt.Errorf("%w: no token account for %s", types.ErrBalanceUnavailable, token)
		}
		return Balance{}, fmt.Errorf("%w: failed to get token balance: %v", types.ErrConnector, err)
	}
	if res == nil || res.Value == nil {
		return Balance{Units: new(big.Int)}, fmt.Errorf("%w: empty token balance for %s", types.ErrBalanceUnavailable, token)
	}

	units, ok := new(big.Int).SetString(res.Value.Amount, 10)
	if !ok {
		return Balance{}, fmt.Errorf("%w: failed to parse token balance %q", types.ErrConnector, res.Value.Amount)
	}
	return Balance{Units: units, Decimals: int32(res.Value.Decimals)}, nil
}

// SignAndBroadcast decodes the aggregator's transaction, signs it with the
// wallet key and submits it
func (s *SolanaConnector) SignAndBroadcast(ctx context.Context, build *types.BuildRecord) (string, error) {
	if build == nil || len(build.Payload) == 0 {
		return "", types.ErrBuildUnavailable
	}

	// Decode the transaction using the binary decoder
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(build.Payload))
	if err != nil {
		return "", fmt.Errorf("%w: unmarshal tx: %v", types.ErrBuildUnavailable, err)
	}

	// Aggregator transactions carry zeroed placeholder signatures
	tx.Signatures = nil

	// Sign transaction
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.publicKey) {
			return &s.privateKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to sign transaction: %v", types.ErrBroadcast, err)
	}

	// Send transaction
	opts := rpc.TransactionOpts{
		SkipPreflight:       s.skipPreflight,
		PreflightCommitment: s.commitment,
	}
	sig, err := s.client.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return "", fmt.Errorf("%w: failed to send transaction: %v", types.ErrBroadcast, err)
	}

	return sig.String(), nil
}

// AwaitFinality polls the signature status until it reaches confirmed, the
// transaction fails, or the blockhash it was built against expires
func (s *SolanaConnector) AwaitFinality(ctx context.Context, txid string, build *types.BuildRecord) error {
	sig, err := solana.SignatureFromBase58(txid)
	if err != nil {
		return fmt.Errorf("%w: invalid transaction signature: %v", types.ErrConnector, err)
	}

	var lastValid uint64
	if build != nil {
		lastValid = build.LastValidBlockHeight
	}
	if lastValid == 0 {
		latest, err := s.client.GetLatestBlockhash(ctx, s.commitment)
		if err != nil {
			return fmt.Errorf("%w: failed to get latest blockhash: %v", types.ErrConnector, err)
		}
		lastValid = latest.Value.LastValidBlockHeight
	}

	for {
		statuses, err := s.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return fmt.Errorf("%w: failed to get signature status: %v", types.ErrConnector, err)
		}
		if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: transaction %s failed: %v", types.ErrBroadcast, txid, status.Err)
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}

		height, err := s.client.GetBlockHeight(ctx, s.commitment)
		if err != nil {
			return fmt.Errorf("%w: failed to get block height: %v", types.ErrConnector, err)
		}
		if height > lastValid {
			return fmt.Errorf("%w: blockhash expired before %s was confirmed", types.ErrBroadcast, txid)
		}

		if err := sleepCtx(ctx, s.poll); err != nil {
			return fmt.Errorf("%w: %v", types.ErrConnector, err)
		}
	}
}

// Ping checks the node health endpoint
func (s *SolanaConnector) Ping(ctx context.Context) error {
	if _, err := s.client.GetHealth(ctx); err != nil {
		return fmt.Errorf("%w: %v", types.ErrConnector, err)
	}
	return nil
}

// Close is a no-op; the Solana RPC client holds no connection state
func (s *SolanaConnector) Close() {}

func isAccountMissing(err error) bool {
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not find account") || strings.Contains(msg, "not found")
}

// parseCommitment maps a config value onto a commitment level
func parseCommitment(commitment string) rpc.CommitmentType {
	switch strings.ToLower(commitment) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}
