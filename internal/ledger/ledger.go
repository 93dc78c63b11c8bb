// Package ledger owns the append-only transaction log and the wallet balance
// projection. Every balance mutation in the system flows through Apply or
// Rollback; both are idempotent by transaction id, and both report domain
// conditions as structured results rather than errors, so third-party
// callers never see internals.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/sevenbit/faircore/internal/models"
)

type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

type Code string

const (
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS"
	CodeRollbackNotFound   Code = "ROLLBACK_NOT_FOUND"
	CodeInvalidTransaction Code = "INVALID_TRANSACTION"

	// CodeLockTimeout means the per-user serialization point could not be
	// acquired in time. Safe to retry.
	CodeLockTimeout Code = "LOCK_TIMEOUT"
)

// Result is the structured outcome of a ledger operation. Duplicate marks an
// idempotent replay: the original result is returned and nothing moved.
type Result struct {
	Status    Status `json:"status"`
	Code      Code   `json:"code,omitempty"`
	Balance   int64  `json:"balance"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

func okResult(balance int64, duplicate bool) Result {
	return Result{Status: StatusOK, Balance: balance, Duplicate: duplicate}
}

func errResult(code Code, balance int64) Result {
	return Result{Status: StatusError, Code: code, Balance: balance}
}

// ErrLockTimeout is surfaced by implementations with bounded lock waits.
var ErrLockTimeout = errors.New("wallet lock wait timed out")

type Ledger interface {
	// Balance returns the user's current balance, creating the wallet with
	// the starting balance on first touch.
	Balance(ctx context.Context, userID int64) (int64, error)

	// Apply appends a transaction and projects the wallet forward. It is
	// idempotent by tx.ID, and for debits the insufficient-funds check is
	// atomic with the debit itself. The error return is infrastructure
	// only; domain conditions come back in the Result.
	Apply(ctx context.Context, tx *models.Transaction) (Result, error)

	// Rollback appends the exact signed inverse of a prior transaction.
	// Idempotent; rolling back an unknown id is a structured
	// ROLLBACK_NOT_FOUND, not a failure.
	Rollback(ctx context.Context, txID string) (Result, error)

	// History returns the most recent transactions, newest first.
	History(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error)
}

// rollbackID derives the idempotency key of a rollback entry from its target,
// so retried rollbacks collapse onto one record.
func rollbackID(txID string) string {
	return "rb:" + txID
}

func validate(tx *models.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction id required")
	}
	if tx.UserID == 0 {
		return fmt.Errorf("user id required")
	}
	if tx.Amount == 0 {
		return fmt.Errorf("amount must be non-zero")
	}
	switch tx.Type {
	case models.TransactionTypeBet:
		if tx.Amount > 0 {
			return fmt.Errorf("bet amount must be a debit")
		}
	case models.TransactionTypeWin, models.TransactionTypeRefund:
		if tx.Amount < 0 {
			return fmt.Errorf("%s amount must be a credit", tx.Type)
		}
	case models.TransactionTypeRollback:
		return fmt.Errorf("rollback entries are appended via Rollback only")
	default:
		return fmt.Errorf("unknown transaction type: %s", tx.Type)
	}
	return nil
}
