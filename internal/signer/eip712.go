package signer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP-712 domains. The factory domain verifies against the gas station,
// the account domain against an individual machine smart account.
const (
	DomainFactory        = "MachineStationFactory"
	DomainMachineAccount = "MachineSmartAccount"
	DomainVersion        = "1"
)

// ActionKind enumerates every structured message the station or a machine account verifies.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionDeployMachineAccount
	ActionTransferStationBalance
	ActionExecuteTransaction
	ActionExecuteMachineTransaction
	ActionExecuteMachineBatchTransactions
	ActionExecuteMachineTransferBalance
	ActionMachineExecute
	ActionMachineTransferBalance
)

type actionSpec struct {
	domain      string
	primaryType string
	fields      []apitypes.Type
}

// Field layouts mirror the on-chain structs; order is part of the type hash.
var actionSpecs = map[ActionKind]actionSpec{
	ActionDeployMachineAccount: {
		domain:      DomainFactory,
		primaryType: "DeployMachineSmartAccount",
		fields: []apitypes.Type{
			{Name: "machineOwner", Type: "address"},
			{Name: "nonce", Type: "uint256"},
		},
	},
	ActionTransferStationBalance: {
		domain:      DomainFactory,
		primaryType: "TransferMachineStationBalance",
		fields: []apitypes.Type{
			{Name: "newMachineStationAddress", Type: "address"},
			{Name: "nonce", Type: "uint256"},
		},
	},
	ActionExecuteTransaction: {
		domain:      DomainFactory,
		primaryType: "ExecuteTransaction",
		fields: []apitypes.Type{
			{Name: "target", Type: "address"},
			{Name: "data", Type: "bytes"},
			{Name: "nonce", Type: "uint256"},
		},
	},
	ActionExecuteMachineTransaction: {
		domain:      DomainFactory,
		primaryType: "ExecuteMachineTransaction",
		fields: []apitypes.Type{
			{Name: "machineAddress", Type: "address"},
			{Name: "target", Type: "address"},
			{Name: "data", Type: "bytes"},
			{Name: "nonce", Type: "uint256"},
		},
	},
	ActionExecuteMachineBatchTransactions: {
		domain:      DomainFactory,
		primaryType: "ExecuteMachineBatchTransactions",
		fields: []apitypes.Type{
			{Name: "machineAddresses", Type: "address[]"},
			{Name: "targets", Type: "address[]"},
			{Name: "data", Type: "bytes[]"},
			{Name: "nonce", Type: "uint256"},
			{Name: "machineNonces", Type: "uint256[]"},
		},
	},
	ActionExecuteMachineTransferBalance: {
		domain:      DomainFactory,
		primaryType: "ExecuteMachineTransferBalance",
		fields: []apitypes.Type{
			{Name: "machineAddress", Type: "address"},
			{Name: "recipientAddress", Type: "address"},
			{Name: "nonce", Type: "uint256"},
		},
	},
	ActionMachineExecute: {
		domain:      DomainMachineAccount,
		primaryType: "Execute",
		fields: []apitypes.Type{
			{Name: "target", Type: "address"},
			{Name: "data", Type: "bytes"},
			{Name: "nonce", Type: "uint256"},
		},
	},
	ActionMachineTransferBalance: {
		domain:      DomainMachineAccount,
		primaryType: "TransferMachineBalance",
		fields: []apitypes.Type{
			{Name: "recipientAddress", Type: "address"},
			{Name: "nonce", Type: "uint256"},
		},
	},
}

var actionNames = map[ActionKind]string{
	ActionDeployMachineAccount:            "deploy_machine_account",
	ActionTransferStationBalance:          "transfer_station_balance",
	ActionExecuteTransaction:              "execute_transaction",
	ActionExecuteMachineTransaction:       "execute_machine_transaction",
	ActionExecuteMachineBatchTransactions: "execute_machine_batch_transactions",
	ActionExecuteMachineTransferBalance:   "execute_machine_transfer_balance",
	ActionMachineExecute:                  "machine_execute",
	ActionMachineTransferBalance:          "machine_transfer_balance",
}

// AllActions lists every supported kind in declaration order.
func AllActions() []ActionKind {
	return []ActionKind{
		ActionDeployMachineAccount,
		ActionTransferStationBalance,
		ActionExecuteTransaction,
		ActionExecuteMachineTransaction,
		ActionExecuteMachineBatchTransactions,
		ActionExecuteMachineTransferBalance,
		ActionMachineExecute,
		ActionMachineTransferBalance,
	}
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// ParseActionKind accepts either the snake_case name or the EIP-712 primary type.
func ParseActionKind(s string) (ActionKind, error) {
	needle := strings.TrimSpace(s)
	for kind, name := range actionNames {
		if strings.EqualFold(needle, name) || needle == actionSpecs[kind].primaryType {
			return kind, nil
		}
	}
	return ActionUnknown, invalidAction(ActionUnknown, s)
}

// PrimaryType returns the EIP-712 struct name signed for the kind.
func (k ActionKind) PrimaryType() string {
	return actionSpecs[k].primaryType
}

// DomainName returns which contract context verifies the kind.
func (k ActionKind) DomainName() string {
	return actionSpecs[k].domain
}

// Schema returns the ordered field layout for kind. It depends on the kind only.
func Schema(kind ActionKind) ([]apitypes.Type, error) {
	spec, ok := actionSpecs[kind]
	if !ok {
		return nil, invalidAction(kind, "")
	}
	out := make([]apitypes.Type, len(spec.fields))
	copy(out, spec.fields)
	return out, nil
}

var domainFields = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}
