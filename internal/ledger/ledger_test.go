package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sevenbit/faircore/internal/ledger"
	"github.com/sevenbit/faircore/internal/models"
)

const startingBalance = int64(10000)

func bet(userID int64, id string, stake int64) *models.Transaction {
	return &models.Transaction{
		ID: id, UserID: userID,
		Type: models.TransactionTypeBet, Amount: -stake, RoundID: "round-" + id,
	}
}

func win(userID int64, id string, payout int64) *models.Transaction {
	return &models.Transaction{
		ID: id, UserID: userID,
		Type: models.TransactionTypeWin, Amount: payout, RoundID: "round-" + id,
	}
}

func TestMemLedgerContract(t *testing.T) {
	testLedgerContract(t, func() ledger.Ledger {
		return ledger.NewMemLedger(startingBalance)
	})
}

// testLedgerContract is the behavior both implementations must share.
func testLedgerContract(t *testing.T, newLedger func() ledger.Ledger) {
	ctx := context.Background()

	t.Run("starting balance", func(t *testing.T) {
		l := newLedger()
		balance, err := l.Balance(ctx, 1)
		if err != nil {
			t.Fatalf("balance failed: %v", err)
		}
		if balance != startingBalance {
			t.Errorf("expected starting balance %d, got %d", startingBalance, balance)
		}
	})

	t.Run("bet debits and win credits", func(t *testing.T) {
		l := newLedger()

		res, err := l.Apply(ctx, bet(1, "b1", 1000))
		if err != nil || res.Status != ledger.StatusOK {
			t.Fatalf("bet failed: %v %+v", err, res)
		}
		if res.Balance != 9000 {
			t.Errorf("expected 9000 after bet, got %d", res.Balance)
		}

		res, err = l.Apply(ctx, win(1, "w1", 1920))
		if err != nil || res.Status != ledger.StatusOK {
			t.Fatalf("win failed: %v %+v", err, res)
		}
		if res.Balance != 10920 {
			t.Errorf("expected 10920 after win, got %d", res.Balance)
		}
	})

	t.Run("apply is idempotent by id", func(t *testing.T) {
		l := newLedger()

		first, err := l.Apply(ctx, bet(1, "dup", 1000))
		if err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		second, err := l.Apply(ctx, bet(1, "dup", 1000))
		if err != nil {
			t.Fatalf("replay failed: %v", err)
		}
		if second.Status != ledger.StatusOK || !second.Duplicate {
			t.Errorf("replay should be success-idempotent, got %+v", second)
		}
		if second.Balance != first.Balance {
			t.Errorf("replay balance %d != original %d", second.Balance, first.Balance)
		}

		balance, _ := l.Balance(ctx, 1)
		if balance != 9000 {
			t.Errorf("double apply moved the balance: %d", balance)
		}
	})

	t.Run("insufficient funds is atomic with the debit", func(t *testing.T) {
		l := newLedger()

		res, err := l.Apply(ctx, bet(1, "big", startingBalance+1))
		if err != nil {
			t.Fatalf("apply failed: %v", err)
		}
		if res.Status != ledger.StatusError || res.Code != ledger.CodeInsufficientFunds {
			t.Errorf("expected INSUFFICIENT_FUNDS, got %+v", res)
		}

		balance, _ := l.Balance(ctx, 1)
		if balance != startingBalance {
			t.Errorf("failed bet moved the balance: %d", balance)
		}
	})

	t.Run("invalid transactions are rejected without side effects", func(t *testing.T) {
		l := newLedger()

		cases := []*models.Transaction{
			{ID: "", UserID: 1, Type: models.TransactionTypeBet, Amount: -100},
			{ID: "x1", UserID: 1, Type: models.TransactionTypeBet, Amount: 100},
			{ID: "x2", UserID: 1, Type: models.TransactionTypeWin, Amount: -100},
			{ID: "x3", UserID: 1, Type: "bonus", Amount: 100},
			{ID: "x4", UserID: 1, Type: models.TransactionTypeRollback, Amount: 100},
			{ID: "x5", UserID: 1, Type: models.TransactionTypeBet, Amount: 0},
		}
		for _, tx := range cases {
			res, err := l.Apply(ctx, tx)
			if err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if res.Status != ledger.StatusError || res.Code != ledger.CodeInvalidTransaction {
				t.Errorf("tx %q: expected INVALID_TRANSACTION, got %+v", tx.ID, res)
			}
		}

		balance, _ := l.Balance(ctx, 1)
		if balance != startingBalance {
			t.Errorf("invalid transactions moved the balance: %d", balance)
		}
	})

	t.Run("rollback restores the exact prior balance", func(t *testing.T) {
		l := newLedger()

		before, _ := l.Balance(ctx, 1)
		if _, err := l.Apply(ctx, bet(1, "rbet", 1000)); err != nil {
			t.Fatalf("bet failed: %v", err)
		}

		res, err := l.Rollback(ctx, "rbet")
		if err != nil || res.Status != ledger.StatusOK {
			t.Fatalf("rollback failed: %v %+v", err, res)
		}
		if res.Balance != before {
			t.Errorf("expected balance restored to %d, got %d", before, res.Balance)
		}
	})

	t.Run("rollback is idempotent", func(t *testing.T) {
		l := newLedger()

		if _, err := l.Apply(ctx, bet(1, "ri", 1000)); err != nil {
			t.Fatalf("bet failed: %v", err)
		}
		first, err := l.Rollback(ctx, "ri")
		if err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		second, err := l.Rollback(ctx, "ri")
		if err != nil {
			t.Fatalf("rollback replay failed: %v", err)
		}
		if second.Status != ledger.StatusOK || !second.Duplicate {
			t.Errorf("rollback replay should be success-idempotent, got %+v", second)
		}
		if second.Balance != first.Balance {
			t.Errorf("rollback replay balance %d != original %d", second.Balance, first.Balance)
		}
	})

	t.Run("rollback of bet and win restores the original balance bit for bit", func(t *testing.T) {
		l := newLedger()

		before, _ := l.Balance(ctx, 1)

		if _, err := l.Apply(ctx, bet(1, "txA", 1000)); err != nil {
			t.Fatalf("bet failed: %v", err)
		}
		if _, err := l.Apply(ctx, win(1, "txB", 2500)); err != nil {
			t.Fatalf("win failed: %v", err)
		}
		// Unrelated activity on another round in between.
		if _, err := l.Apply(ctx, bet(1, "other", 500)); err != nil {
			t.Fatalf("unrelated bet failed: %v", err)
		}

		if res, _ := l.Rollback(ctx, "txB"); res.Status != ledger.StatusOK {
			t.Fatalf("rollback txB failed: %+v", res)
		}
		if res, _ := l.Rollback(ctx, "txA"); res.Status != ledger.StatusOK {
			t.Fatalf("rollback txA failed: %+v", res)
		}

		balance, _ := l.Balance(ctx, 1)
		if balance != before-500 {
			t.Errorf("expected %d (original minus the unrelated bet), got %d", before-500, balance)
		}
	})

	t.Run("rollback of unknown id is a structured status", func(t *testing.T) {
		l := newLedger()

		res, err := l.Rollback(ctx, "never-existed")
		if err != nil {
			t.Fatalf("rollback should not fail hard: %v", err)
		}
		if res.Status != ledger.StatusError || res.Code != ledger.CodeRollbackNotFound {
			t.Errorf("expected ROLLBACK_NOT_FOUND, got %+v", res)
		}
	})

	t.Run("rollback of a rollback is rejected", func(t *testing.T) {
		l := newLedger()

		if _, err := l.Apply(ctx, bet(1, "rr", 1000)); err != nil {
			t.Fatalf("bet failed: %v", err)
		}
		if res, _ := l.Rollback(ctx, "rr"); res.Status != ledger.StatusOK {
			t.Fatalf("rollback failed: %+v", res)
		}
		res, err := l.Rollback(ctx, "rb:rr")
		if err != nil {
			t.Fatalf("rollback failed hard: %v", err)
		}
		if res.Status != ledger.StatusError {
			t.Errorf("rolling back a rollback entry should be rejected, got %+v", res)
		}
	})

	t.Run("concurrent bets never pass a stale funds check", func(t *testing.T) {
		l := newLedger()

		// Balance covers exactly 10 of 20 concurrent bets.
		const betSize = startingBalance / 10
		const attempts = 20

		var wg sync.WaitGroup
		var mu sync.Mutex
		applied := 0
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := l.Apply(ctx, bet(7, fmt.Sprintf("conc-%d", i), betSize))
				if err != nil {
					t.Errorf("apply failed: %v", err)
					return
				}
				if res.Status == ledger.StatusOK {
					mu.Lock()
					applied++
					mu.Unlock()
				} else if res.Code != ledger.CodeInsufficientFunds {
					t.Errorf("unexpected failure: %+v", res)
				}
			}(i)
		}
		wg.Wait()

		if applied != 10 {
			t.Errorf("expected exactly 10 bets to clear, got %d", applied)
		}
		balance, _ := l.Balance(ctx, 7)
		if balance != 0 {
			t.Errorf("expected balance 0 after draining, got %d", balance)
		}
	})

	t.Run("history returns newest first", func(t *testing.T) {
		l := newLedger()

		for i := 0; i < 5; i++ {
			if _, err := l.Apply(ctx, bet(1, fmt.Sprintf("h%d", i), 100)); err != nil {
				t.Fatalf("bet failed: %v", err)
			}
		}
		history, err := l.History(ctx, 1, 3)
		if err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(history))
		}
		if history[0].ID != "h4" {
			t.Errorf("expected newest first, got %s", history[0].ID)
		}
	})
}
