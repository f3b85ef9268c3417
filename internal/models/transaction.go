package models

// Transaction represents a transfer waiting in the pending pool or embedded in a block
type Transaction struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    float64 `json:"amount"`
}
