package models

import "time"

type TransactionType string

const (
	TransactionTypeBet      TransactionType = "bet"
	TransactionTypeWin      TransactionType = "win"
	TransactionTypeRefund   TransactionType = "refund"
	TransactionTypeRollback TransactionType = "rollback"
)

// Transaction is one entry of the append-only ledger. ID doubles as the
// idempotency key: applying the same ID twice has no further balance effect.
// Amount is signed, in minor units; debits are negative.
type Transaction struct {
	ID           string          `json:"id" redis:"id"`
	UserID       int64           `json:"user_id" redis:"user_id"`
	Type         TransactionType `json:"type" redis:"type"`
	Amount       int64           `json:"amount" redis:"amount"`
	BalanceAfter int64           `json:"balance_after" redis:"balance_after"`
	RoundID      string          `json:"round_id,omitempty" redis:"round_id"`

	// RefTransactionID is set on rollback entries and names the transaction
	// being inverted.
	RefTransactionID string `json:"ref_transaction_id,omitempty" redis:"ref_transaction_id"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
}
