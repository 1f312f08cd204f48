package station

import (
	"math/big"
	"testing"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stationAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	machineAddr = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	ownerAddr   = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	sig65       = make([]byte, 65)
)

func newContract(t *testing.T) *Contract {
	c, err := NewContract(stationAddr)
	require.NoError(t, err)
	return c
}

func TestSelectorsMatchCanonicalSignatures(t *testing.T) {
	c := newContract(t)
	cases := map[string]string{
		MethodDeployMachineSmartAccount:       "deployMachineSmartAccount(address,uint256,bytes)",
		MethodTransferMachineStationBalance:   "transferMachineStationBalance(address,uint256,bytes)",
		MethodExecuteTransaction:              "executeTransaction(address,bytes,uint256,bytes)",
		MethodExecuteMachineTransaction:       "executeMachineTransaction(address,address,bytes,uint256,bytes,bytes)",
		MethodExecuteMachineBatchTransactions: "executeMachineBatchTransactions(address[],address[],bytes[],uint256,uint256[],bytes,bytes[])",
		MethodExecuteMachineTransferBalance:   "executeMachineTransferBalance(address,address,uint256,bytes,bytes)",
	}
	for name, sig := range cases {
		m, ok := c.Method(name)
		require.True(t, ok, name)
		assert.Equal(t, sig, m.Sig)
		assert.Equal(t, crypto.Keccak256([]byte(sig))[:4], m.ID)
	}
}

func TestDeployedEventID(t *testing.T) {
	c := newContract(t)
	assert.Equal(t, crypto.Keccak256Hash([]byte(DeployedEventSignature)), c.DeployedEventID())
}

func TestPackDeployRoundTrip(t *testing.T) {
	c := newContract(t)
	data, err := c.PackDeployMachineSmartAccount(ownerAddr, big.NewInt(42), sig65)
	require.NoError(t, err)
	assert.Equal(t, MethodDeployMachineSmartAccount, c.MethodName(data))

	m, _ := c.Method(MethodDeployMachineSmartAccount)
	args, err := m.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, ownerAddr, args[0])
	assert.Equal(t, 0, args[1].(*big.Int).Cmp(big.NewInt(42)))
	assert.Equal(t, sig65, args[2])
}

func TestPackBatchValidatesLengths(t *testing.T) {
	c := newContract(t)
	call := BatchCall{
		MachineAddresses:  []common.Address{machineAddr, machineAddr},
		Targets:           []common.Address{ownerAddr},
		Data:              [][]byte{{1}, {2}},
		Nonce:             big.NewInt(1),
		MachineNonces:     []*big.Int{big.NewInt(1), big.NewInt(2)},
		OwnerSignature:    sig65,
		MachineSignatures: [][]byte{sig65, sig65},
	}
	_, err := c.PackExecuteMachineBatchTransactions(call)
	assert.True(t, apperrors.Is(err, apperrors.ErrEncodingFailed))

	call.Targets = append(call.Targets, ownerAddr)
	data, err := c.PackExecuteMachineBatchTransactions(call)
	require.NoError(t, err)
	assert.Equal(t, MethodExecuteMachineBatchTransactions, c.MethodName(data))
}

func TestPackTypeMismatchIsEncodingFailure(t *testing.T) {
	c := newContract(t)
	_, err := c.pack(MethodExecuteTransaction, "not-an-address")
	assert.True(t, apperrors.Is(err, apperrors.ErrEncodingFailed))
	assert.Equal(t, "unknown", c.MethodName([]byte{1, 2}))
}
