// Package calldata builds invocation bytes for the DID and storage precompiles.
package calldata

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	AddAttributeSignature = "addAttribute(address,bytes,bytes,uint32)"
	AddItemSignature      = "addItem(bytes,bytes)"

	// Attributes never expire.
	attributeValidity uint32 = 0
)

var (
	addressType, _ = abi.NewType("address", "", nil)
	bytesType, _   = abi.NewType("bytes", "", nil)
	uint32Type, _  = abi.NewType("uint32", "", nil)

	addAttributeArgs = abi.Arguments{
		{Name: "did_account", Type: addressType},
		{Name: "name", Type: bytesType},
		{Name: "value", Type: bytesType},
		{Name: "validity_for", Type: uint32Type},
	}
	addItemArgs = abi.Arguments{
		{Name: "item_type", Type: bytesType},
		{Name: "item", Type: bytesType},
	}
)

// Calldata is selector ‖ abi-encoded arguments.
type Calldata []byte

func (c Calldata) Hex() string {
	return hexutil.Encode(c)
}

func (c Calldata) Selector() []byte {
	if len(c) < 4 {
		return nil
	}
	return c[:4]
}

// Selector returns the first four bytes of keccak256(signature).
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// AttributeName formats the DID attribute key for subject under company.
func AttributeName(subject common.Address, company string) string {
	return fmt.Sprintf("did:peaq:%s#%s", subject.Hex(), company)
}

// EncodeAddAttribute builds addAttribute(subject, name, document, 0).
// document is the serialized DID document text stored as the attribute value.
func EncodeAddAttribute(subject common.Address, company, document string) (Calldata, error) {
	name := AttributeName(subject, company)
	if err := checkUTF8("name", name); err != nil {
		return nil, err
	}
	if err := checkUTF8("document", document); err != nil {
		return nil, err
	}
	return encode(AddAttributeSignature, addAttributeArgs, subject, []byte(name), []byte(document), attributeValidity)
}

// EncodeAddItem builds addItem(itemType, item).
func EncodeAddItem(itemType, item string) (Calldata, error) {
	if err := checkUTF8("item_type", itemType); err != nil {
		return nil, err
	}
	if err := checkUTF8("item", item); err != nil {
		return nil, err
	}
	return encode(AddItemSignature, addItemArgs, []byte(itemType), []byte(item))
}

// encode packs args and swaps the encoder's "0x" marker for the selector.
func encode(signature string, args abi.Arguments, values ...interface{}) (Calldata, error) {
	packed, err := args.Pack(values...)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrEncodingFailed, "pack "+signature, err)
	}
	selectorHex := hexutil.Encode(Selector(signature))
	encoded := selectorHex + strings.TrimPrefix(hexutil.Encode(packed), "0x")

	out, err := hexutil.Decode(encoded)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrEncodingFailed, "splice selector for "+signature, err)
	}
	return out, nil
}

func checkUTF8(field, s string) error {
	if !utf8.ValidString(s) {
		return apperrors.New(apperrors.ErrEncodingFailed, field+" is not valid UTF-8", nil)
	}
	return nil
}
