package connector

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"multiswap/pkg/types"
)

const (
	BaseExplorer = "https://basescan.org/tx/"
	// NativeETH is the sentinel address aggregators use for the chain's native coin
	NativeETH = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
	// EVMNativeDecimals is the wei scale of ETH
	EVMNativeDecimals = 18
)

// ERC20 balanceOf/decimals ABI
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

// EVMBackend is the subset of ethclient.Client the connector uses
type EVMBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// EVMConfig configures an EVMConnector
type EVMConfig struct {
	RPCURL       string
	PrivateKey   string
	ChainID      int64
	PollInterval time.Duration
}

// EVMConnector signs and submits aggregator transaction requests on an EVM chain
type EVMConnector struct {
	backend    EVMBackend
	closer     func()
	privateKey *ecdsa.PrivateKey
	address    common.Address
	erc20      abi.ABI
	poll       time.Duration

	mu       sync.Mutex
	chainID  *big.Int
	decimals map[common.Address]int32
}

// evmTxRequest is the transaction request returned by the aggregator
type evmTxRequest struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	GasLimit string `json:"gasLimit"`
}

// NewEVMConnector dials cfg.RPCURL and creates a connector
func NewEVMConnector(cfg EVMConfig) (*EVMConnector, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL not configured for EVM")
	}

	privateKey, err := ParseEVMKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	// Connect to the RPC endpoint
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	c, err := NewEVMConnectorWithBackend(client, privateKey, cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	c.closer = client.Close
	return c, nil
}

// NewEVMConnectorWithBackend creates a connector over an existing backend
func NewEVMConnectorWithBackend(backend EVMBackend, privateKey *ecdsa.PrivateKey, cfg EVMConfig) (*EVMConnector, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	c := &EVMConnector{
		backend:    backend,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		erc20:      parsedABI,
		poll:       poll,
		decimals:   make(map[common.Address]int32),
	}
	if cfg.ChainID > 0 {
		c.chainID = big.NewInt(cfg.ChainID)
	}
	return c, nil
}

func (e *EVMConnector) Chain() types.Chain { return types.ChainBase }

func (e *EVMConnector) Address() string { return e.address.Hex() }

func (e *EVMConnector) Explorer(txid string) string { return BaseExplorer + txid }

// NativeBalance returns the ETH balance in wei
func (e *EVMConnector) NativeBalance(ctx context.Context) (*big.Int, error) {
	balance, err := e.backend.BalanceAt(ctx, e.address, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get balance: %v", types.ErrConnector, err)
	}
	return balance, nil
}

// TokenBalance returns the ERC20 balance of token, or the ETH balance for NativeETH
func (e *EVMConnector) TokenBalance(ctx context.Context, token string) (Balance, error) {
	if strings.EqualFold(token, NativeETH) {
		wei, err := e.NativeBalance(ctx)
		if err != nil {
			return Balance{}, err
		}
		return Balance{Units: wei, Decimals: EVMNativeDecimals}, nil
	}

	if !common.IsHexAddress(token) {
		return Balance{}, fmt.Errorf("%w: invalid token contract address: %s", types.ErrInvalidRequest, token)
	}
	tokenAddress := common.HexToAddress(token)

	data, err := e.erc20.Pack("balanceOf", e.address)
	if err != nil {
		return Balance{}, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}
	result, err := e.backend.CallContract(ctx, ethereum.CallMsg{To: &tokenAddress, Data: data}, nil)
	if err != nil {
		return Balance{}, fmt.Errorf("%w: failed to call balanceOf: %v", types.ErrConnector, err)
	}
	if len(result) == 0 {
		return Balance{Units: new(big.Int)}, fmt.Errorf("%w: %s is not an ERC20 contract", types.ErrBalanceUnavailable, token)
	}

	decimals, err := e.tokenDecimals(ctx, tokenAddress)
	if err != nil {
		return Balance{}, err
	}

	return Balance{Units: new(big.Int).SetBytes(result), Decimals: decimals}, nil
}

// tokenDecimals queries and caches decimals() of an ERC20 contract
func (e *EVMConnector) tokenDecimals(ctx context.Context, token common.Address) (int32, error) {
	e.mu.Lock()
	cached, ok := e.decimals[token]
	e.mu.Unlock()
	if ok {
		return cached, nil
	}

	data, err := e.erc20.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("failed to pack decimals data: %w", err)
	}
	result, err := e.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to call decimals: %v", types.ErrConnector, err)
	}
	if len(result) == 0 {
		return 0, fmt.Errorf("%w: decimals() returned no data for %s", types.ErrConnector, token.Hex())
	}

	decimals := int32(new(big.Int).SetBytes(result).Int64())
	e.mu.Lock()
	e.decimals[token] = decimals
	e.mu.Unlock()
	return decimals, nil
}

func (e *EVMConnector) getChainID(ctx context.Context) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.chainID != nil {
		return e.chainID, nil
	}
	chainID, err := e.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get chain id: %v", types.ErrConnector, err)
	}
	e.chainID = chainID
	return chainID, nil
}

// SignAndBroadcast turns the aggregator's tx request into a signed EIP-1559
// transaction and submits it
func (e *EVMConnector) SignAndBroadcast(ctx context.Context, build *types.BuildRecord) (string, error) {
	if build == nil || len(build.Payload) == 0 {
		return "", types.ErrBuildUnavailable
	}

	var req evmTxRequest
	if err := json.Unmarshal(build.Payload, &req); err != nil {
		return "", fmt.Errorf("%w: invalid tx request: %v", types.ErrBuildUnavailable, err)
	}
	if !common.IsHexAddress(req.To) {
		return "", fmt.Errorf("%w: tx request has no valid recipient", types.ErrBuildUnavailable)
	}
	to := common.HexToAddress(req.To)
	data := common.FromHex(req.Data)

	value := new(big.Int)
	if req.Value != "" {
		parsed, ok := math.ParseBig256(req.Value)
		if !ok {
			return "", fmt.Errorf("%w: invalid tx value %q", types.ErrBuildUnavailable, req.Value)
		}
		value = parsed
	}

	chainID, err := e.getChainID(ctx)
	if err != nil {
		return "", err
	}

	// Get nonce
	nonce, err := e.backend.PendingNonceAt(ctx, e.address)
	if err != nil {
		return "", fmt.Errorf("%w: failed to get nonce: %v", types.ErrConnector, err)
	}

	// Fee caps: tip plus twice the current base fee
	tip, err := e.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to get gas tip: %v", types.ErrConnector, err)
	}
	head, err := e.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to get latest header: %v", types.ErrConnector, err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	} else {
		feeCap.Mul(feeCap, big.NewInt(2))
	}

	// Use the aggregator's gas limit or estimate with a 20% buffer
	var gasLimit uint64
	if req.GasLimit != "" {
		limit, ok := math.ParseUint64(req.GasLimit)
		if !ok {
			return "", fmt.Errorf("%w: invalid gas limit %q", types.ErrBuildUnavailable, req.GasLimit)
		}
		gasLimit = limit
	}
	if gasLimit == 0 {
		estimated, err := e.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  e.address,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return "", fmt.Errorf("%w: failed to estimate gas: %v", types.ErrBroadcast, err)
		}
		gasLimit = estimated * 120 / 100
	}

	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	// Sign transaction
	signedTx, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), e.privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: failed to sign transaction: %v", types.ErrBroadcast, err)
	}

	// Send transaction
	if err := e.backend.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("%w: failed to send transaction: %v", types.ErrBroadcast, err)
	}

	return signedTx.Hash().Hex(), nil
}

// AwaitFinality polls for the receipt and fails on a reverted transaction
func (e *EVMConnector) AwaitFinality(ctx context.Context, txid string, _ *types.BuildRecord) error {
	hash := common.HexToHash(txid)
	for {
		receipt, err := e.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return fmt.Errorf("%w: transaction %s reverted", types.ErrBroadcast, txid)
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("%w: failed to get transaction receipt: %v", types.ErrConnector, err)
		}

		if err := sleepCtx(ctx, e.poll); err != nil {
			return fmt.Errorf("%w: %v", types.ErrConnector, err)
		}
	}
}

// Ping checks that the node answers
func (e *EVMConnector) Ping(ctx context.Context) error {
	if _, err := e.backend.HeaderByNumber(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", types.ErrConnector, err)
	}
	return nil
}

// Close closes the client connection
func (e *EVMConnector) Close() {
	if e.closer != nil {
		e.closer()
	}
}
