package signer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RecoverSigner returns the address that produced signature over payload.
func RecoverSigner(payload *TypedPayload, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	hash, err := payload.Hash()
	if err != nil {
		return common.Address{}, err
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	// Normalize V to 0/1 for recovery.
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func VerifySignature(payload *TypedPayload, signature []byte, expected common.Address) error {
	recovered, err := RecoverSigner(payload, signature)
	if err != nil {
		return err
	}
	if recovered != expected {
		return fmt.Errorf("signature mismatch: recovered %s, expected %s", recovered.Hex(), expected.Hex())
	}
	return nil
}
