package chain

import (
	"math/big"
	"testing"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deployedSig = "MachineSmartAccountDeployed(address)"

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}

func TestExtractDeployedAddressPicksFirstMatchingEvent(t *testing.T) {
	id := crypto.Keccak256Hash([]byte(deployedSig))
	first := common.HexToAddress("0x1111111111111111111111111111111111111111")
	second := common.HexToAddress("0x2222222222222222222222222222222222222222")

	receipt := &Receipt{
		Status: types.ReceiptStatusSuccessful,
		Events: []EventRecord{
			{Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")), addressTopic(second)}},
			{Topics: []common.Hash{id}},
			{Topics: []common.Hash{id, addressTopic(first), common.Hash{}}},
			{Topics: []common.Hash{id, addressTopic(second)}},
		},
	}

	got, err := ExtractDeployedAddress(receipt, deployedSig)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestExtractDeployedAddressIgnoresHighBytes(t *testing.T) {
	id := crypto.Keccak256Hash([]byte(deployedSig))
	topic := common.HexToHash("0xffffffffffffffffffffffff3333333333333333333333333333333333333333")
	receipt := &Receipt{Events: []EventRecord{{Topics: []common.Hash{id, topic}}}}

	got, err := ExtractDeployedAddress(receipt, deployedSig)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), got)
}

func TestExtractDeployedAddressNotFound(t *testing.T) {
	receipt := &Receipt{
		TxHash: common.HexToHash("0xabc"),
		Events: []EventRecord{{Topics: []common.Hash{crypto.Keccak256Hash([]byte("Other()"))}}},
	}
	_, err := ExtractDeployedAddress(receipt, deployedSig)
	assert.True(t, apperrors.Is(err, apperrors.ErrEventNotFound))

	_, err = ExtractDeployedAddress(&Receipt{}, deployedSig)
	assert.True(t, apperrors.Is(err, apperrors.ErrEventNotFound))

	_, err = ExtractDeployedAddress(nil, deployedSig)
	assert.True(t, apperrors.Is(err, apperrors.ErrEventNotFound))
}

func TestFromTypesReceipt(t *testing.T) {
	assert.Nil(t, FromTypesReceipt(nil))

	raw := &types.Receipt{
		TxHash:      common.HexToHash("0x01"),
		Status:      types.ReceiptStatusFailed,
		GasUsed:     42,
		BlockNumber: big.NewInt(9),
		Logs: []*types.Log{
			nil,
			{Address: common.HexToAddress("0x05"), Topics: []common.Hash{common.HexToHash("0x06")}, Data: []byte{7}},
		},
	}
	r := FromTypesReceipt(raw)
	require.NotNil(t, r)
	assert.False(t, r.Succeeded())
	assert.Equal(t, uint64(42), r.GasUsed)
	assert.Equal(t, int64(9), r.BlockNumber.Int64())
	require.Len(t, r.Events, 1)
	assert.Equal(t, []byte{7}, r.Events[0].Data)

	raw.Logs[1].Data[0] = 8
	assert.Equal(t, []byte{7}, r.Events[0].Data)
}
