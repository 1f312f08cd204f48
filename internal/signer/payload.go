package signer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Domain is the EIP-712 separator for one contract context.
type Domain struct {
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	ChainID           int64          `json:"chainId"`
	VerifyingContract common.Address `json:"verifyingContract"`
}

// Fields carries action-specific values keyed by schema field name.
// Accepted Go types: common.Address or hex string for address; []byte,
// hexutil.Bytes or 0x-hex string for bytes; *big.Int, uint64, int64, int
// or decimal string for uint256; slices of those for the array types.
type Fields map[string]any

// TypedPayload is exactly what gets hashed and signed for one action.
type TypedPayload struct {
	Kind        ActionKind                `json:"kind"`
	Domain      Domain                    `json:"domain"`
	PrimaryType string                    `json:"primaryType"`
	Schema      []apitypes.Type           `json:"schema"`
	Message     apitypes.TypedDataMessage `json:"message"`
}

// BuildPayload assembles the typed payload for kind. verifyingContract is the
// gas station for factory actions and the machine account for account actions.
func BuildPayload(kind ActionKind, verifyingContract string, chainID int64, fields Fields) (*TypedPayload, error) {
	spec, ok := actionSpecs[kind]
	if !ok {
		return nil, invalidAction(kind, "")
	}
	contract, err := normalizeAddress("verifyingContract", verifyingContract)
	if err != nil {
		return nil, err
	}

	message := make(apitypes.TypedDataMessage, len(spec.fields))
	for _, field := range spec.fields {
		raw, ok := fields[field.Name]
		if !ok || raw == nil {
			return nil, apperrors.New(apperrors.ErrEncodingFailed,
				fmt.Sprintf("%s: missing field %q", spec.primaryType, field.Name), nil)
		}
		value, err := normalizeValue(field.Name, field.Type, raw)
		if err != nil {
			return nil, err
		}
		message[field.Name] = value
	}

	schema, _ := Schema(kind)
	return &TypedPayload{
		Kind: kind,
		Domain: Domain{
			Name:              spec.domain,
			Version:           DomainVersion,
			ChainID:           chainID,
			VerifyingContract: contract,
		},
		PrimaryType: spec.primaryType,
		Schema:      schema,
		Message:     message,
	}, nil
}

// TypedData converts the payload into the go-ethereum representation.
func (p *TypedPayload) TypedData() apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainFields,
			p.PrimaryType:  p.Schema,
		},
		PrimaryType: p.PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              p.Domain.Name,
			Version:           p.Domain.Version,
			ChainId:           math.NewHexOrDecimal256(p.Domain.ChainID),
			VerifyingContract: p.Domain.VerifyingContract.Hex(),
		},
		Message: p.Message,
	}
}

// Hash returns keccak256("\x19\x01" ‖ domainSeparator ‖ hashStruct(message)).
func (p *TypedPayload) Hash() ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(p.TypedData())
	if err != nil {
		return nil, apperrors.New(apperrors.ErrEncodingFailed, "typed data hash failed", err)
	}
	return hash, nil
}

// SharedFieldsMatch checks that every field present in both payloads carries the
// same value, so an owner approval and a machine intent authorize one action.
func SharedFieldsMatch(a, b *TypedPayload) error {
	shared := 0
	for _, field := range a.Schema {
		other, ok := b.Message[field.Name]
		if !ok {
			continue
		}
		shared++
		if !sameValue(a.Message[field.Name], other) {
			return apperrors.NewInvalidRequest(fmt.Sprintf(
				"%s and %s disagree on %q", a.PrimaryType, b.PrimaryType, field.Name))
		}
	}
	if shared == 0 {
		return apperrors.NewInvalidRequest(fmt.Sprintf(
			"%s and %s share no fields", a.PrimaryType, b.PrimaryType))
	}
	return nil
}

func sameValue(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && strings.EqualFold(av, bv)
	case *math.HexOrDecimal256:
		bv, ok := b.(*math.HexOrDecimal256)
		return ok && (*big.Int)(av).Cmp((*big.Int)(bv)) == 0
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !sameValue(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func normalizeValue(name, typ string, raw any) (any, error) {
	if strings.HasSuffix(typ, "[]") {
		return normalizeArray(name, strings.TrimSuffix(typ, "[]"), raw)
	}
	switch typ {
	case "address":
		switch v := raw.(type) {
		case common.Address:
			return v.Hex(), nil
		case string:
			addr, err := normalizeAddress(name, v)
			if err != nil {
				return nil, err
			}
			return addr.Hex(), nil
		}
	case "bytes":
		switch v := raw.(type) {
		case hexutil.Bytes:
			return hexutil.Encode(v), nil
		case []byte:
			return hexutil.Encode(v), nil
		case string:
			b, err := hexutil.Decode(v)
			if err != nil {
				return nil, apperrors.New(apperrors.ErrEncodingFailed, fmt.Sprintf("%s is not 0x-prefixed hex", name), err)
			}
			return hexutil.Encode(b), nil
		}
	case "uint256":
		n, err := toBig(name, raw)
		if err != nil {
			return nil, err
		}
		return (*math.HexOrDecimal256)(n), nil
	}
	return nil, apperrors.New(apperrors.ErrEncodingFailed, fmt.Sprintf("%s: unsupported value %T for %s", name, raw, typ), nil)
}

func normalizeArray(name, elemType string, raw any) (any, error) {
	var items []any
	switch v := raw.(type) {
	case []common.Address:
		for _, x := range v {
			items = append(items, x)
		}
	case []string:
		for _, x := range v {
			items = append(items, x)
		}
	case [][]byte:
		for _, x := range v {
			items = append(items, x)
		}
	case []hexutil.Bytes:
		for _, x := range v {
			items = append(items, x)
		}
	case []*big.Int:
		for _, x := range v {
			items = append(items, x)
		}
	case []uint64:
		for _, x := range v {
			items = append(items, x)
		}
	case []any:
		items = v
	default:
		return nil, apperrors.New(apperrors.ErrEncodingFailed, fmt.Sprintf("%s: unsupported value %T for %s[]", name, raw, elemType), nil)
	}
	out := make([]interface{}, 0, len(items))
	for i, item := range items {
		val, err := normalizeValue(fmt.Sprintf("%s[%d]", name, i), elemType, item)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

func toBig(name string, raw any) (*big.Int, error) {
	var n *big.Int
	switch v := raw.(type) {
	case *big.Int:
		if v != nil {
			n = new(big.Int).Set(v)
		}
	case uint64:
		n = new(big.Int).SetUint64(v)
	case int64:
		n = big.NewInt(v)
	case int:
		n = big.NewInt(int64(v))
	case string:
		parsed, ok := math.ParseBig256(v)
		if ok {
			n = parsed
		}
	}
	if n == nil || n.Sign() < 0 {
		return nil, apperrors.New(apperrors.ErrEncodingFailed, fmt.Sprintf("%s is not a uint256: %v", name, raw), nil)
	}
	return n, nil
}

func normalizeAddress(field, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, apperrors.NewInvalidAddress(field, s)
	}
	return common.HexToAddress(s), nil
}

// ParseAddress validates a user-supplied address the same way payload fields are validated.
func ParseAddress(field, s string) (common.Address, error) {
	return normalizeAddress(field, s)
}

func invalidAction(kind ActionKind, raw string) error {
	if raw == "" {
		raw = kind.String()
	}
	return apperrors.New(apperrors.ErrInvalidAction, fmt.Sprintf("unrecognized action kind %q", raw), nil)
}
