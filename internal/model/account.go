package model

import "time"

// MachineAccount links an EOA to the machine smart account deployed for it.
type MachineAccount struct {
	EOAAddress     string    `json:"eoaAddress" db:"eoa_address"`
	MachineAddress string    `json:"machineAddress" db:"machine_address"`
	TxHash         string    `json:"txHash" db:"tx_hash"`
	ClientID       string    `json:"clientId" db:"client_id"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
