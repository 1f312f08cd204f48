package service

import (
	"context"
	"strings"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/gasgate/internal/signer"
)

// Verifier is the read side of get-real.
type Verifier interface {
	VerifyDID(ctx context.Context, address, tag string) (map[string]any, error)
	VerifyStorage(ctx context.Context, address, tag string) (map[string]any, error)
	VerifyStorageCount(ctx context.Context, address string, expected int, tag string) (map[string]any, error)
}

type VerifyRequest struct {
	Address       string `json:"address" binding:"required"`
	Tag           string `json:"tag"`
	ExpectedCount *int   `json:"expectedCount,omitempty"`
}

// VerificationService checks off-chain that a sponsored identity or storage write landed.
type VerificationService struct {
	verifier Verifier
}

func NewVerificationService(v Verifier) *VerificationService {
	return &VerificationService{verifier: v}
}

func (s *VerificationService) DID(ctx context.Context, req VerifyRequest) (map[string]any, error) {
	addr, err := signer.ParseAddress("address", req.Address)
	if err != nil {
		return nil, err
	}
	return s.verifier.VerifyDID(ctx, addr.Hex(), strings.TrimSpace(req.Tag))
}

func (s *VerificationService) Storage(ctx context.Context, req VerifyRequest) (map[string]any, error) {
	addr, err := signer.ParseAddress("address", req.Address)
	if err != nil {
		return nil, err
	}
	if req.ExpectedCount == nil {
		return s.verifier.VerifyStorage(ctx, addr.Hex(), strings.TrimSpace(req.Tag))
	}
	if *req.ExpectedCount < 0 {
		return nil, apperrors.NewInvalidRequest("expectedCount must not be negative")
	}
	return s.verifier.VerifyStorageCount(ctx, addr.Hex(), *req.ExpectedCount, strings.TrimSpace(req.Tag))
}
