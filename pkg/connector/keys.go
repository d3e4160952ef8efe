package connector

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	aptoscrypto "github.com/aptos-labs/aptos-go-sdk/crypto"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
)

// ParseSolanaKey accepts a base58 secret key or a JSON byte array (solana-keygen format)
func ParseSolanaKey(raw string) (solana.PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("solana private key is empty")
	}

	if strings.HasPrefix(raw, "[") {
		secret, err := parseByteArray(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid solana private key: %w", err)
		}
		if len(secret) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("invalid solana private key: expected %d bytes, got %d", ed25519.PrivateKeySize, len(secret))
		}
		return solana.PrivateKey(secret), nil
	}

	key, err := solana.PrivateKeyFromBase58(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid solana private key: %w", err)
	}
	return key, nil
}

// ParseEVMKey accepts a hex secp256k1 key with or without 0x
func ParseEVMKey(raw string) (*ecdsa.PrivateKey, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if raw == "" {
		return nil, fmt.Errorf("evm private key is empty")
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid evm private key: %w", err)
	}
	return key, nil
}

// ParseAptosKey accepts 0x hex, bare hex, a JSON byte array or the
// AIP-80 "ed25519-priv-0x..." form. Both 32 byte seeds and 64 byte
// expanded keys are accepted.
func ParseAptosKey(raw string) (*aptoscrypto.Ed25519PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("aptos private key is empty")
	}

	var secret []byte
	var err error
	if strings.HasPrefix(raw, "[") {
		secret, err = parseByteArray(raw)
	} else {
		raw = strings.TrimPrefix(raw, "ed25519-priv-")
		secret, err = hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	}
	if err != nil {
		return nil, fmt.Errorf("invalid aptos private key: %w", err)
	}

	switch len(secret) {
	case ed25519.SeedSize:
	case ed25519.PrivateKeySize:
		secret = secret[:ed25519.SeedSize]
	default:
		return nil, fmt.Errorf("invalid aptos private key: expected %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(secret))
	}

	key := &aptoscrypto.Ed25519PrivateKey{}
	if err := key.FromBytes(secret); err != nil {
		return nil, fmt.Errorf("invalid aptos private key: %w", err)
	}
	return key, nil
}

func parseByteArray(raw string) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal([]byte(raw), &ints); err != nil {
		return nil, err
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	return out, nil
}
