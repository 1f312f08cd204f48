package model

// Response is the envelope every relay route answers with.
type Response struct {
	Success bool        `json:"success"`
	Payload interface{} `json:"payload,omitempty"`
}

// UsageReport is a client's sponsored-action consumption for the current UTC day.
type UsageReport struct {
	ClientID        string `json:"client_id"`
	Day             string `json:"day"`
	Actions         int    `json:"actions"`
	GasUsed         uint64 `json:"gas_used"`
	MaxDailyActions int    `json:"max_daily_actions"`
}
