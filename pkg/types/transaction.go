package types

import "time"

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TransactionStatus is the settlement state of a trade attempt.
// Transactions are created pending and resolve to completed or failed
// strictly after the simulated settlement delay.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is the immutable record of one trade attempt.
type Transaction struct {
	ID          string            `json:"id"`
	MarketID    string            `json:"marketId"`
	MarketTitle string            `json:"marketTitle,omitempty"`
	OptionID    string            `json:"optionId"`
	Side        Side              `json:"side"`
	Amount      float64           `json:"amount"`
	Shares      float64           `json:"shares"`
	Price       float64           `json:"price"`
	Fee         float64           `json:"fee"`
	Timestamp   time.Time         `json:"timestamp"`
	Status      TransactionStatus `json:"status"`
	FailReason  string            `json:"failReason,omitempty"`
}

// Total returns the full wallet impact of a buy: amount plus fee.
func (t *Transaction) Total() float64 {
	return t.Amount + t.Fee
}
