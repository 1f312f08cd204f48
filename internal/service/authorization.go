package service

import (
	"fmt"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/signer"
	"github.com/ethereum/go-ethereum/common"
)

// Authorization is the signature set a station entry point checks before it executes.
// MachineSignature is nil for actions the owner authorizes alone.
type Authorization struct {
	OwnerSignature   []byte
	MachineSignature []byte
}

// Authorizer collects owner and machine signatures. Every call signs afresh.
type Authorizer struct {
	owner   signer.TypedDataSigner
	machine signer.TypedDataSigner
}

// NewAuthorizer takes the station owner and, optionally, the machine/EOA signer.
func NewAuthorizer(owner, machine signer.TypedDataSigner) *Authorizer {
	return &Authorizer{owner: owner, machine: machine}
}

func (a *Authorizer) Owner() signer.TypedDataSigner   { return a.owner }
func (a *Authorizer) Machine() signer.TypedDataSigner { return a.machine }

// AuthorizeOwnerOnly has the owner sign a factory-domain payload.
func (a *Authorizer) AuthorizeOwnerOnly(payload *signer.TypedPayload) (*Authorization, error) {
	if payload == nil {
		return nil, apperrors.New(apperrors.ErrSigningFailed, "nil owner payload", nil)
	}
	if payload.Domain.Name != signer.DomainFactory {
		return nil, apperrors.New(apperrors.ErrInvalidAction,
			fmt.Sprintf("%s is not an owner action", payload.PrimaryType), nil)
	}
	sig, err := a.sign(a.owner, "owner", payload)
	if err != nil {
		return nil, err
	}
	return &Authorization{OwnerSignature: sig}, nil
}

// AuthorizeDual has the owner sign ownerPayload and the machine sign machinePayload.
// Both payloads must agree on every field they share (target, data, nonce, recipient),
// and the machine the owner approves must be the account the machine payload is bound to.
func (a *Authorizer) AuthorizeDual(ownerPayload, machinePayload *signer.TypedPayload) (*Authorization, error) {
	if ownerPayload == nil || machinePayload == nil {
		return nil, apperrors.New(apperrors.ErrSigningFailed, "dual authorization needs both payloads", nil)
	}
	if ownerPayload.Domain.Name != signer.DomainFactory {
		return nil, apperrors.New(apperrors.ErrInvalidAction,
			fmt.Sprintf("%s is not an owner action", ownerPayload.PrimaryType), nil)
	}
	if machinePayload.Domain.Name != signer.DomainMachineAccount {
		return nil, apperrors.New(apperrors.ErrInvalidAction,
			fmt.Sprintf("%s is not a machine action", machinePayload.PrimaryType), nil)
	}
	if ownerPayload.Domain.ChainID != machinePayload.Domain.ChainID {
		return nil, apperrors.NewInvalidRequest("owner and machine payloads target different chains")
	}
	if err := signer.SharedFieldsMatch(ownerPayload, machinePayload); err != nil {
		return nil, err
	}
	if err := sameMachine(ownerPayload, machinePayload); err != nil {
		return nil, err
	}

	ownerSig, err := a.sign(a.owner, "owner", ownerPayload)
	if err != nil {
		return nil, err
	}
	machineSig, err := a.sign(a.machine, "machine", machinePayload)
	if err != nil {
		return nil, err
	}
	return &Authorization{OwnerSignature: ownerSig, MachineSignature: machineSig}, nil
}

func sameMachine(ownerPayload, machinePayload *signer.TypedPayload) error {
	approved, ok := ownerPayload.Message["machineAddress"].(string)
	if !ok {
		return nil
	}
	bound := machinePayload.Domain.VerifyingContract
	if !common.IsHexAddress(approved) || common.HexToAddress(approved) != bound {
		return apperrors.NewInvalidRequest(fmt.Sprintf(
			"owner approves machine %s but the machine payload is bound to %s", approved, bound.Hex()))
	}
	return nil
}

func (a *Authorizer) sign(s signer.TypedDataSigner, role string, payload *signer.TypedPayload) ([]byte, error) {
	if s == nil {
		return nil, apperrors.New(apperrors.ErrSigningFailed, role+" signer is not configured", nil)
	}
	sig, err := s.SignTypedData(payload)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSigningFailed) {
			return nil, err
		}
		return nil, apperrors.New(apperrors.ErrSigningFailed, role+" failed to sign "+payload.PrimaryType, err)
	}
	return sig, nil
}
