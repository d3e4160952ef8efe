package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	aptos "github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/api"
	"github.com/aptos-labs/aptos-go-sdk/bcs"

	"multiswap/pkg/types"
)

const (
	AptosExplorer = "https://aptoscan.com/txn/"
	// AptosCoin is the native coin type
	AptosCoin = "0x1::aptos_coin::AptosCoin"
	// AptosNativeDecimals is the octa scale of APT
	AptosNativeDecimals = 8

	defaultAptosMaxGas     = 20000
	defaultAptosExpiration = 60 * time.Second
)

var errAptosNotFound = errors.New("aptos resource not found")

// AptosClient is the part of the aptos-go-sdk client the connector uses
type AptosClient interface {
	Info() (aptos.NodeInfo, error)
	AccountResource(address aptos.AccountAddress, resourceType string, ledgerVersion ...uint64) (map[string]any, error)
	BuildSignAndSubmitTransaction(sender aptos.TransactionSigner, payload aptos.TransactionPayload, options ...any) (*api.SubmitTransactionResponse, error)
	WaitForTransaction(txnHash string, options ...any) (*api.UserTransaction, error)
}

// AptosConfig configures an AptosConnector
type AptosConfig struct {
	NodeURL          string
	ChainID          uint8
	PrivateKey       string
	MaxGasAmount     uint64
	ExpirationWindow time.Duration
	PollInterval     time.Duration
	// Client replaces the SDK client dialled from NodeURL
	Client AptosClient
}

// AptosConnector signs entry function payloads with a single ed25519 account
type AptosConnector struct {
	client     AptosClient
	account    *aptos.Account
	maxGas     uint64
	expiration time.Duration
	poll       time.Duration

	mu       sync.Mutex
	decimals map[string]int32
}

// NewAptosConnector creates a connector from cfg
func NewAptosConnector(cfg AptosConfig) (*AptosConnector, error) {
	key, err := ParseAptosKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	account, err := aptos.NewAccountFromSigner(key)
	if err != nil {
		return nil, fmt.Errorf("invalid aptos private key: %w", err)
	}

	client := cfg.Client
	if client == nil {
		if cfg.NodeURL == "" {
			return nil, fmt.Errorf("node URL not configured for Aptos")
		}
		sdk, err := aptos.NewClient(aptos.NetworkConfig{
			Name:    "multiswap",
			NodeUrl: strings.TrimRight(cfg.NodeURL, "/"),
			ChainId: cfg.ChainID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create aptos client: %w", err)
		}
		client = sdk
	}

	c := &AptosConnector{
		client:     client,
		account:    account,
		maxGas:     cfg.MaxGasAmount,
		expiration: cfg.ExpirationWindow,
		poll:       cfg.PollInterval,
		decimals:   map[string]int32{AptosCoin: AptosNativeDecimals},
	}
	if c.maxGas == 0 {
		c.maxGas = defaultAptosMaxGas
	}
	if c.expiration <= 0 {
		c.expiration = defaultAptosExpiration
	}
	if c.poll <= 0 {
		c.poll = time.Second
	}
	return c, nil
}

func (a *AptosConnector) Chain() types.Chain { return types.ChainAptos }

func (a *AptosConnector) Address() string { return a.account.Address.String() }

func (a *AptosConnector) Explorer(txid string) string { return AptosExplorer + txid }

// NativeBalance returns the APT balance in octas
func (a *AptosConnector) NativeBalance(ctx context.Context) (*big.Int, error) {
	balance, err := a.TokenBalance(ctx, AptosCoin)
	if err != nil {
		if errors.Is(err, types.ErrBalanceUnavailable) {
			return new(big.Int), nil
		}
		return nil, err
	}
	return balance.Units, nil
}

// TokenBalance reads the wallet's CoinStore for coinType. A missing store or
// an unknown coin is reported as ErrBalanceUnavailable with zero units.
func (a *AptosConnector) TokenBalance(ctx context.Context, coinType string) (Balance, error) {
	owner, err := coinOwner(coinType)
	if err != nil {
		return Balance{}, err
	}

	store, err := a.resource(ctx, a.account.Address, "0x1::coin::CoinStore<"+coinType+">")
	if errors.Is(err, errAptosNotFound) {
		return a.zeroBalance(coinType), fmt.Errorf("%w: no coin store for %s", types.ErrBalanceUnavailable, coinType)
	}
	if err != nil {
		return Balance{}, err
	}

	value, _ := lookup(store, "data", "coin", "value").(string)
	units, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return Balance{}, fmt.Errorf("%w: failed to parse coin value %q", types.ErrConnector, value)
	}

	decimals, err := a.coinDecimals(ctx, owner, coinType)
	if errors.Is(err, errAptosNotFound) {
		return a.zeroBalance(coinType), fmt.Errorf("%w: unknown coin type %s", types.ErrBalanceUnavailable, coinType)
	}
	if err != nil {
		return Balance{}, err
	}
	return Balance{Units: units, Decimals: decimals}, nil
}

func (a *AptosConnector) zeroBalance(coinType string) Balance {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Balance{Units: new(big.Int), Decimals: a.decimals[coinType]}
}

// coinDecimals reads CoinInfo from the account that published coinType, once
// per coin type
func (a *AptosConnector) coinDecimals(ctx context.Context, owner aptos.AccountAddress, coinType string) (int32, error) {
	a.mu.Lock()
	cached, ok := a.decimals[coinType]
	a.mu.Unlock()
	if ok {
		return cached, nil
	}

	info, err := a.resource(ctx, owner, "0x1::coin::CoinInfo<"+coinType+">")
	if err != nil {
		return 0, err
	}

	var decimals int64
	switch v := lookup(info, "data", "decimals").(type) {
	case float64:
		decimals = int64(v)
	case json.Number:
		decimals, err = v.Int64()
	case string:
		decimals, err = strconv.ParseInt(v, 10, 32)
	default:
		err = fmt.Errorf("missing decimals")
	}
	if err != nil {
		return 0, fmt.Errorf("%w: invalid decimals for %s: %v", types.ErrConnector, coinType, err)
	}

	a.mu.Lock()
	a.decimals[coinType] = int32(decimals)
	a.mu.Unlock()
	return int32(decimals), nil
}

func (a *AptosConnector) resource(ctx context.Context, owner aptos.AccountAddress, resourceType string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrConnector, err)
	}
	data, err := a.client.AccountResource(owner, resourceType)
	if err != nil {
		var httpErr *aptos.HttpError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, errAptosNotFound
		}
		return nil, fmt.Errorf("%w: %v", types.ErrConnector, err)
	}
	return data, nil
}

// SignAndBroadcast turns the JSON entry function into its BCS form and lets
// the SDK fill in sequence number, gas price and chain id before signing
func (a *AptosConnector) SignAndBroadcast(ctx context.Context, build *types.BuildRecord) (string, error) {
	if build == nil || len(build.Payload) == 0 {
		return "", types.ErrBuildUnavailable
	}
	payload, err := aptosEntryFunction(build.Payload)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrBroadcast, err)
	}

	resp, err := a.client.BuildSignAndSubmitTransaction(a.account, payload,
		aptos.MaxGasAmount(a.maxGas),
		aptos.ExpirationSeconds(int64(a.expiration/time.Second)),
	)
	if err != nil {
		return "", fmt.Errorf("%w: failed to submit transaction: %v", types.ErrBroadcast, err)
	}
	if resp == nil || resp.Hash == "" {
		return "", fmt.Errorf("%w: node returned no transaction hash", types.ErrBroadcast)
	}
	return resp.Hash, nil
}

// AwaitFinality waits until the transaction is committed. The wait is
// bounded by the transaction expiration window.
func (a *AptosConnector) AwaitFinality(ctx context.Context, txid string, _ *types.BuildRecord) error {
	type result struct {
		txn *api.UserTransaction
		err error
	}
	done := make(chan result, 1)
	go func() {
		txn, err := a.client.WaitForTransaction(txid,
			aptos.PollPeriod(a.poll),
			aptos.PollTimeout(a.expiration+a.poll),
		)
		done <- result{txn: txn, err: err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: transaction %s not committed: %v", types.ErrBroadcast, txid, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("%w: transaction %s not committed: %v", types.ErrBroadcast, txid, r.err)
		}
		if r.txn == nil || !r.txn.Success {
			status := ""
			if r.txn != nil {
				status = r.txn.VmStatus
			}
			return fmt.Errorf("%w: transaction %s failed: %s", types.ErrBroadcast, txid, status)
		}
		return nil
	}
}

// Ping reads the ledger info
func (a *AptosConnector) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := a.client.Info(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrConnector, err)
	}
	return nil
}

func (a *AptosConnector) Close() {}

// aptosEntryFunction converts {"function":"addr::module::name",
// "type_arguments":[...],"arguments":[u64...]} into a BCS entry function
func aptosEntryFunction(raw []byte) (aptos.TransactionPayload, error) {
	var call struct {
		Function      string   `json:"function"`
		TypeArguments []string `json:"type_arguments"`
		Arguments     []any    `json:"arguments"`
	}
	if err := json.Unmarshal(raw, &call); err != nil {
		return aptos.TransactionPayload{}, fmt.Errorf("%w: invalid entry function: %v", types.ErrBuildUnavailable, err)
	}

	parts := strings.Split(call.Function, "::")
	if len(parts) != 3 {
		return aptos.TransactionPayload{}, fmt.Errorf("%w: invalid function %q", types.ErrBuildUnavailable, call.Function)
	}
	var module aptos.AccountAddress
	if err := module.ParseStringRelaxed(parts[0]); err != nil {
		return aptos.TransactionPayload{}, fmt.Errorf("%w: invalid module address %q: %v", types.ErrBuildUnavailable, parts[0], err)
	}

	typeArgs := make([]aptos.TypeTag, 0, len(call.TypeArguments))
	for _, s := range call.TypeArguments {
		tag, err := aptos.ParseTypeTag(s)
		if err != nil {
			return aptos.TransactionPayload{}, fmt.Errorf("%w: invalid type argument %q: %v", types.ErrBuildUnavailable, s, err)
		}
		typeArgs = append(typeArgs, *tag)
	}

	args := make([][]byte, 0, len(call.Arguments))
	for _, arg := range call.Arguments {
		value, err := u64Argument(arg)
		if err != nil {
			return aptos.TransactionPayload{}, fmt.Errorf("%w: %v", types.ErrBuildUnavailable, err)
		}
		encoded, err := bcs.SerializeU64(value)
		if err != nil {
			return aptos.TransactionPayload{}, fmt.Errorf("%w: %v", types.ErrBuildUnavailable, err)
		}
		args = append(args, encoded)
	}

	return aptos.TransactionPayload{Payload: &aptos.EntryFunction{
		Module:   aptos.ModuleId{Address: module, Name: parts[1]},
		Function: parts[2],
		ArgTypes: typeArgs,
		Args:     args,
	}}, nil
}

func u64Argument(arg any) (uint64, error) {
	switch v := arg.(type) {
	case string:
		value, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid u64 argument %q", v)
		}
		return value, nil
	case float64:
		if v < 0 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("invalid u64 argument %v", v)
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("unsupported argument %v", arg)
	}
}

// coinOwner returns the address that published coinType
func coinOwner(coinType string) (aptos.AccountAddress, error) {
	var owner aptos.AccountAddress
	i := strings.Index(coinType, "::")
	if i <= 0 {
		return owner, fmt.Errorf("%w: invalid coin type %q", types.ErrInvalidRequest, coinType)
	}
	if err := owner.ParseStringRelaxed(coinType[:i]); err != nil {
		return owner, fmt.Errorf("%w: invalid coin type %q", types.ErrInvalidRequest, coinType)
	}
	return owner, nil
}

func lookup(m map[string]any, path ...string) any {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}
