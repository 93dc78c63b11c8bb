package models

// Wallet is the current balance projection of a user's transaction log. It is
// mutated only through ledger apply/rollback, never directly.
type Wallet struct {
	UserID  int64 `json:"user_id" redis:"user_id"`
	Balance int64 `json:"balance" redis:"balance"`
}

type BalanceResponse struct {
	UserID    int64  `json:"user_id"`
	Balance   int64  `json:"balance"`
	Formatted string `json:"formatted,omitempty"`
}
