// Package station describes the gas station factory contract the relay calls.
package station

import (
	"math/big"
	"strings"

	"github.com/GoPolymarket/gasgate/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// DeployedEventSignature is emitted once per provisioned machine account.
const DeployedEventSignature = "MachineSmartAccountDeployed(address)"

const (
	MethodDeployMachineSmartAccount       = "deployMachineSmartAccount"
	MethodTransferMachineStationBalance   = "transferMachineStationBalance"
	MethodExecuteTransaction              = "executeTransaction"
	MethodExecuteMachineTransaction       = "executeMachineTransaction"
	MethodExecuteMachineBatchTransactions = "executeMachineBatchTransactions"
	MethodExecuteMachineTransferBalance   = "executeMachineTransferBalance"
)

const factoryABI = `[
	{"type":"function","name":"deployMachineSmartAccount","stateMutability":"nonpayable","inputs":[
		{"name":"machineOwner","type":"address"},
		{"name":"nonce","type":"uint256"},
		{"name":"signature","type":"bytes"}],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"transferMachineStationBalance","stateMutability":"nonpayable","inputs":[
		{"name":"newMachineStationAddress","type":"address"},
		{"name":"nonce","type":"uint256"},
		{"name":"signature","type":"bytes"}],
	 "outputs":[]},
	{"type":"function","name":"executeTransaction","stateMutability":"nonpayable","inputs":[
		{"name":"target","type":"address"},
		{"name":"data","type":"bytes"},
		{"name":"nonce","type":"uint256"},
		{"name":"signature","type":"bytes"}],
	 "outputs":[]},
	{"type":"function","name":"executeMachineTransaction","stateMutability":"nonpayable","inputs":[
		{"name":"machineAddress","type":"address"},
		{"name":"target","type":"address"},
		{"name":"data","type":"bytes"},
		{"name":"nonce","type":"uint256"},
		{"name":"ownerSignature","type":"bytes"},
		{"name":"machineOwnerSignature","type":"bytes"}],
	 "outputs":[]},
	{"type":"function","name":"executeMachineBatchTransactions","stateMutability":"nonpayable","inputs":[
		{"name":"machineAddresses","type":"address[]"},
		{"name":"targets","type":"address[]"},
		{"name":"data","type":"bytes[]"},
		{"name":"nonce","type":"uint256"},
		{"name":"machineNonces","type":"uint256[]"},
		{"name":"ownerSignature","type":"bytes"},
		{"name":"machineOwnerSignatures","type":"bytes[]"}],
	 "outputs":[]},
	{"type":"function","name":"executeMachineTransferBalance","stateMutability":"nonpayable","inputs":[
		{"name":"machineAddress","type":"address"},
		{"name":"recipientAddress","type":"address"},
		{"name":"nonce","type":"uint256"},
		{"name":"ownerSignature","type":"bytes"},
		{"name":"machineOwnerSignature","type":"bytes"}],
	 "outputs":[]},
	{"type":"event","name":"MachineSmartAccountDeployed","anonymous":false,"inputs":[
		{"name":"deployedAddress","type":"address","indexed":true}]}
]`

// Contract is the parsed factory interface bound to one station address.
// It is built once at startup and is safe for concurrent use.
type Contract struct {
	Address common.Address
	abi     abi.ABI
}

func NewContract(address common.Address) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(factoryABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse gas station abi")
	}
	return &Contract{Address: address, abi: parsed}, nil
}

// DeployedEventID is keccak256 of DeployedEventSignature.
func (c *Contract) DeployedEventID() common.Hash {
	if ev, ok := c.abi.Events["MachineSmartAccountDeployed"]; ok {
		return ev.ID
	}
	return crypto.Keccak256Hash([]byte(DeployedEventSignature))
}

func (c *Contract) Method(name string) (abi.Method, bool) {
	m, ok := c.abi.Methods[name]
	return m, ok
}

func (c *Contract) pack(method string, args ...interface{}) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrEncodingFailed, "encode "+method, errors.WithStack(err))
	}
	return data, nil
}

func (c *Contract) PackDeployMachineSmartAccount(machineOwner common.Address, nonce *big.Int, signature []byte) ([]byte, error) {
	return c.pack(MethodDeployMachineSmartAccount, machineOwner, nonce, signature)
}

func (c *Contract) PackTransferMachineStationBalance(newStation common.Address, nonce *big.Int, signature []byte) ([]byte, error) {
	return c.pack(MethodTransferMachineStationBalance, newStation, nonce, signature)
}

func (c *Contract) PackExecuteTransaction(target common.Address, data []byte, nonce *big.Int, ownerSignature []byte) ([]byte, error) {
	return c.pack(MethodExecuteTransaction, target, data, nonce, ownerSignature)
}

func (c *Contract) PackExecuteMachineTransaction(machine, target common.Address, data []byte, nonce *big.Int, ownerSignature, machineSignature []byte) ([]byte, error) {
	return c.pack(MethodExecuteMachineTransaction, machine, target, data, nonce, ownerSignature, machineSignature)
}

// BatchCall is the flattened argument set of executeMachineBatchTransactions.
type BatchCall struct {
	MachineAddresses  []common.Address
	Targets           []common.Address
	Data              [][]byte
	Nonce             *big.Int
	MachineNonces     []*big.Int
	OwnerSignature    []byte
	MachineSignatures [][]byte
}

func (c *Contract) PackExecuteMachineBatchTransactions(b BatchCall) ([]byte, error) {
	n := len(b.MachineAddresses)
	if len(b.Targets) != n || len(b.Data) != n || len(b.MachineNonces) != n || len(b.MachineSignatures) != n {
		return nil, apperrors.New(apperrors.ErrEncodingFailed, "batch arrays differ in length", nil)
	}
	return c.pack(MethodExecuteMachineBatchTransactions,
		b.MachineAddresses, b.Targets, b.Data, b.Nonce, b.MachineNonces, b.OwnerSignature, b.MachineSignatures)
}

func (c *Contract) PackExecuteMachineTransferBalance(machine, recipient common.Address, nonce *big.Int, ownerSignature, machineSignature []byte) ([]byte, error) {
	return c.pack(MethodExecuteMachineTransferBalance, machine, recipient, nonce, ownerSignature, machineSignature)
}

// MethodName resolves the method a calldata blob invokes, for logs and metrics.
func (c *Contract) MethodName(data []byte) string {
	if len(data) < 4 {
		return "unknown"
	}
	m, err := c.abi.MethodById(data[:4])
	if err != nil {
		return "unknown"
	}
	return m.Name
}
