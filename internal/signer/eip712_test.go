package signer

import (
	"math/big"
	"testing"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testStation = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	testMachine = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
	testTarget  = "0x0000000000000000000000000000000000000801"
	testEOA     = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func sampleFields(kind ActionKind) Fields {
	switch kind {
	case ActionDeployMachineAccount:
		return Fields{"machineOwner": testEOA, "nonce": uint64(42)}
	case ActionTransferStationBalance:
		return Fields{"newMachineStationAddress": testMachine, "nonce": uint64(42)}
	case ActionExecuteTransaction, ActionMachineExecute:
		return Fields{"target": testTarget, "data": []byte{0xde, 0xad}, "nonce": uint64(42)}
	case ActionExecuteMachineTransaction:
		return Fields{"machineAddress": testMachine, "target": testTarget, "data": []byte{0xde, 0xad}, "nonce": uint64(42)}
	case ActionExecuteMachineBatchTransactions:
		return Fields{
			"machineAddresses": []string{testMachine, testMachine},
			"targets":          []string{testTarget, testTarget},
			"data":             [][]byte{{0x01}, {0x02, 0x03}},
			"nonce":            uint64(42),
			"machineNonces":    []uint64{7, 8},
		}
	case ActionExecuteMachineTransferBalance:
		return Fields{"machineAddress": testMachine, "recipientAddress": testEOA, "nonce": uint64(42)}
	case ActionMachineTransferBalance:
		return Fields{"recipientAddress": testEOA, "nonce": uint64(42)}
	}
	return nil
}

func TestSchemaIsPureFunctionOfKind(t *testing.T) {
	for _, kind := range AllActions() {
		first, err := Schema(kind)
		require.NoError(t, err)

		p1, err := BuildPayload(kind, testStation, 9990, sampleFields(kind))
		require.NoError(t, err, kind.String())

		other := sampleFields(kind)
		other["nonce"] = uint64(999999)
		p2, err := BuildPayload(kind, testMachine, 3338, other)
		require.NoError(t, err)

		assert.Equal(t, first, p1.Schema, kind.String())
		assert.Equal(t, p1.Schema, p2.Schema, kind.String())
	}
}

func TestEncodeTypeMatchesOnChainStructs(t *testing.T) {
	cases := map[ActionKind]string{
		ActionDeployMachineAccount:            "DeployMachineSmartAccount(address machineOwner,uint256 nonce)",
		ActionTransferStationBalance:          "TransferMachineStationBalance(address newMachineStationAddress,uint256 nonce)",
		ActionExecuteTransaction:              "ExecuteTransaction(address target,bytes data,uint256 nonce)",
		ActionExecuteMachineTransaction:       "ExecuteMachineTransaction(address machineAddress,address target,bytes data,uint256 nonce)",
		ActionExecuteMachineBatchTransactions: "ExecuteMachineBatchTransactions(address[] machineAddresses,address[] targets,bytes[] data,uint256 nonce,uint256[] machineNonces)",
		ActionExecuteMachineTransferBalance:   "ExecuteMachineTransferBalance(address machineAddress,address recipientAddress,uint256 nonce)",
		ActionMachineExecute:                  "Execute(address target,bytes data,uint256 nonce)",
		ActionMachineTransferBalance:          "TransferMachineBalance(address recipientAddress,uint256 nonce)",
	}
	for kind, want := range cases {
		p, err := BuildPayload(kind, testStation, 9990, sampleFields(kind))
		require.NoError(t, err)
		td := p.TypedData()
		assert.Equal(t, want, string(td.EncodeType(p.PrimaryType)))
	}
}

func TestDomainSelection(t *testing.T) {
	p, err := BuildPayload(ActionExecuteMachineTransaction, testStation, 9990, sampleFields(ActionExecuteMachineTransaction))
	require.NoError(t, err)
	assert.Equal(t, DomainFactory, p.Domain.Name)
	assert.Equal(t, "1", p.Domain.Version)
	assert.Equal(t, int64(9990), p.Domain.ChainID)
	assert.Equal(t, common.HexToAddress(testStation), p.Domain.VerifyingContract)

	m, err := BuildPayload(ActionMachineExecute, testMachine, 9990, sampleFields(ActionMachineExecute))
	require.NoError(t, err)
	assert.Equal(t, DomainMachineAccount, m.Domain.Name)
	assert.Equal(t, common.HexToAddress(testMachine), m.Domain.VerifyingContract)
}

func TestBuildPayloadRejectsUnknownAction(t *testing.T) {
	_, err := BuildPayload(ActionUnknown, testStation, 9990, Fields{})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidAction))

	_, err = BuildPayload(ActionKind(99), testStation, 9990, Fields{})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidAction))

	_, err = ParseActionKind("withdraw_everything")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidAction))
}

func TestBuildPayloadRejectsMalformedAddresses(t *testing.T) {
	_, err := BuildPayload(ActionDeployMachineAccount, "0x1234", 9990, sampleFields(ActionDeployMachineAccount))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidAddress))

	fields := sampleFields(ActionDeployMachineAccount)
	fields["machineOwner"] = "0xnot-an-address"
	_, err = BuildPayload(ActionDeployMachineAccount, testStation, 9990, fields)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidAddress))

	batch := sampleFields(ActionExecuteMachineBatchTransactions)
	batch["targets"] = []string{testTarget, "0x01"}
	_, err = BuildPayload(ActionExecuteMachineBatchTransactions, testStation, 9990, batch)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidAddress))
}

func TestBuildPayloadNormalizesValues(t *testing.T) {
	p, err := BuildPayload(ActionExecuteTransaction, testStation, 9990, Fields{
		"target": common.HexToAddress(testTarget),
		"data":   "0xDEAD",
		"nonce":  big.NewInt(42),
	})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testTarget).Hex(), p.Message["target"])
	assert.Equal(t, "0xdead", p.Message["data"])
	assert.Equal(t, 0, (*big.Int)(p.Message["nonce"].(*math.HexOrDecimal256)).Cmp(big.NewInt(42)))

	_, err = BuildPayload(ActionExecuteTransaction, testStation, 9990, Fields{"target": testTarget, "nonce": 1})
	assert.True(t, apperrors.Is(err, apperrors.ErrEncodingFailed))
}

func TestHashIsDeterministicAndDomainBound(t *testing.T) {
	fields := sampleFields(ActionExecuteTransaction)
	a, _ := BuildPayload(ActionExecuteTransaction, testStation, 9990, fields)
	b, _ := BuildPayload(ActionExecuteTransaction, testStation, 9990, fields)
	c, _ := BuildPayload(ActionExecuteTransaction, testStation, 3338, fields)
	d, _ := BuildPayload(ActionMachineExecute, testStation, 9990, fields)

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, _ := b.Hash()
	hc, _ := c.Hash()
	hd, _ := d.Hash()

	assert.Len(t, ha, 32)
	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)
	assert.NotEqual(t, ha, hd)
}

func TestSharedFieldsMatch(t *testing.T) {
	owner, _ := BuildPayload(ActionExecuteMachineTransaction, testStation, 9990, sampleFields(ActionExecuteMachineTransaction))
	machine, _ := BuildPayload(ActionMachineExecute, testMachine, 9990, sampleFields(ActionMachineExecute))
	assert.NoError(t, SharedFieldsMatch(owner, machine))

	tampered := sampleFields(ActionMachineExecute)
	tampered["data"] = []byte{0xbe, 0xef}
	other, _ := BuildPayload(ActionMachineExecute, testMachine, 9990, tampered)
	assert.Error(t, SharedFieldsMatch(owner, other))
}
