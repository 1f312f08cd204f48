package calldata

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Attribute is a decoded addAttribute call.
type Attribute struct {
	Subject  common.Address `json:"subject"`
	Name     string         `json:"name"`
	Value    string         `json:"value"`
	Validity uint32         `json:"validity"`
}

// Item is a decoded addItem call.
type Item struct {
	ItemType string `json:"item_type"`
	Item     string `json:"item"`
}

func DecodeAddAttribute(data []byte) (*Attribute, error) {
	values, err := unpack(data, AddAttributeSignature, addAttributeArgs)
	if err != nil {
		return nil, err
	}
	return &Attribute{
		Subject:  values[0].(common.Address),
		Name:     string(values[1].([]byte)),
		Value:    string(values[2].([]byte)),
		Validity: values[3].(uint32),
	}, nil
}

func DecodeAddItem(data []byte) (*Item, error) {
	values, err := unpack(data, AddItemSignature, addItemArgs)
	if err != nil {
		return nil, err
	}
	return &Item{
		ItemType: string(values[0].([]byte)),
		Item:     string(values[1].([]byte)),
	}, nil
}

func unpack(data []byte, signature string, args abi.Arguments) ([]interface{}, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], Selector(signature)) {
		return nil, fmt.Errorf("calldata does not start with selector of %s", signature)
	}
	values, err := args.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", signature, err)
	}
	if len(values) != len(args) {
		return nil, fmt.Errorf("unpack %s: got %d values", signature, len(values))
	}
	return values, nil
}
