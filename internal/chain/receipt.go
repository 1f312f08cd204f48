package chain

import (
	"fmt"
	"math/big"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// EventRecord is one emitted log: ordered 32-byte topics plus raw data.
type EventRecord struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    []byte         `json:"data"`
}

// Receipt is the library-neutral view of an included transaction.
type Receipt struct {
	TxHash      common.Hash   `json:"tx_hash"`
	BlockNumber *big.Int      `json:"block_number"`
	Status      uint64        `json:"status"`
	GasUsed     uint64        `json:"gas_used"`
	Events      []EventRecord `json:"events"`
}

func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == types.ReceiptStatusSuccessful
}

func FromTypesReceipt(r *types.Receipt) *Receipt {
	if r == nil {
		return nil
	}
	out := &Receipt{
		TxHash:  r.TxHash,
		Status:  r.Status,
		GasUsed: r.GasUsed,
		Events:  make([]EventRecord, 0, len(r.Logs)),
	}
	if r.BlockNumber != nil {
		out.BlockNumber = new(big.Int).Set(r.BlockNumber)
	}
	for _, l := range r.Logs {
		if l == nil {
			continue
		}
		out.Events = append(out.Events, EventRecord{
			Address: l.Address,
			Topics:  append([]common.Hash(nil), l.Topics...),
			Data:    append([]byte(nil), l.Data...),
		})
	}
	return out
}

// ExtractDeployedAddress scans events in order and returns the address held in the
// low 20 bytes of the second topic of the first event whose first topic is
// keccak256(eventSignature) and which has at least two topics.
func ExtractDeployedAddress(receipt *Receipt, eventSignature string) (common.Address, error) {
	eventID := crypto.Keccak256Hash([]byte(eventSignature))
	if receipt != nil {
		for _, ev := range receipt.Events {
			if len(ev.Topics) < 2 || ev.Topics[0] != eventID {
				continue
			}
			return common.BytesToAddress(ev.Topics[1].Bytes()[12:]), nil
		}
	}
	txHash := ""
	if receipt != nil {
		txHash = receipt.TxHash.Hex()
	}
	return common.Address{}, apperrors.New(apperrors.ErrEventNotFound,
		fmt.Sprintf("%s not emitted by tx %s", eventSignature, txHash), nil)
}
