package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/pkg/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TypedDataSigner produces a 65-byte [R || S || V] signature over a payload's EIP-712 hash.
type TypedDataSigner interface {
	Address() common.Address
	SignTypedData(payload *TypedPayload) ([]byte, error)
}

// KeySigner signs with an in-memory secp256k1 key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	role    string
}

// NewKeySigner parses a hex private key (with or without 0x). role labels metrics, e.g. "owner" or "machine".
func NewKeySigner(privateKeyHex, role string) (*KeySigner, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}
	return NewKeySignerFromKey(key, role), nil
}

func NewKeySignerFromKey(key *ecdsa.PrivateKey, role string) *KeySigner {
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		role:    role,
	}
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignTypedData(payload *TypedPayload) ([]byte, error) {
	if payload == nil {
		return nil, apperrors.New(apperrors.ErrSigningFailed, "nil payload", nil)
	}
	hash, err := payload.Hash()
	if err != nil {
		return nil, apperrors.New(apperrors.ErrSigningFailed, "hash "+payload.PrimaryType, err)
	}

	signature, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrSigningFailed, "sign "+payload.PrimaryType, err)
	}

	// crypto.Sign yields V in {0,1}; on-chain ECDSA.recover expects 27/28.
	if signature[64] < 27 {
		signature[64] += 27
	}

	metrics.SignaturesTotal.WithLabelValues(s.role, payload.Kind.String()).Inc()
	return signature, nil
}

// SignTx signs a transaction as this key for chainID.
func (s *KeySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrSigningFailed, "sign transaction", err)
	}
	return signed, nil
}
