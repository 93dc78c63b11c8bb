package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/sevenbit/faircore/internal/models"
)

const defaultLockWait = 2 * time.Second

// MemLedger is the in-process implementation: a per-user lock serializes
// BET/WIN/ROLLBACK so balance checks are race-free, exactly like the Redis
// scripts do in production. Backs tests and single-node deployments.
type MemLedger struct {
	starting int64
	lockWait time.Duration

	mu       sync.Mutex
	locks    map[int64]chan struct{}
	balances map[int64]int64
	txs      map[string]*models.Transaction
	history  map[int64][]string
}

func NewMemLedger(startingBalance int64) *MemLedger {
	return &MemLedger{
		starting: startingBalance,
		lockWait: defaultLockWait,
		locks:    make(map[int64]chan struct{}),
		balances: make(map[int64]int64),
		txs:      make(map[string]*models.Transaction),
		history:  make(map[int64][]string),
	}
}

// acquire takes the user's wallet lock with a bounded wait. The timeout
// surfaces as a retryable condition, never an indefinite block.
func (l *MemLedger) acquire(userID int64) (release func(), err error) {
	l.mu.Lock()
	sem, ok := l.locks[userID]
	if !ok {
		sem = make(chan struct{}, 1)
		l.locks[userID] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-time.After(l.lockWait):
		return nil, ErrLockTimeout
	}
}

func (l *MemLedger) balanceLocked(userID int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[userID]; ok {
		return b
	}
	l.balances[userID] = l.starting
	return l.starting
}

func (l *MemLedger) Balance(ctx context.Context, userID int64) (int64, error) {
	return l.balanceLocked(userID), nil
}

func (l *MemLedger) Apply(ctx context.Context, tx *models.Transaction) (Result, error) {
	if err := validate(tx); err != nil {
		return errResult(CodeInvalidTransaction, 0), nil
	}

	release, err := l.acquire(tx.UserID)
	if err != nil {
		return errResult(CodeLockTimeout, 0), nil
	}
	defer release()

	l.mu.Lock()
	if prior, ok := l.txs[tx.ID]; ok {
		l.mu.Unlock()
		return okResult(prior.BalanceAfter, true), nil
	}
	l.mu.Unlock()

	balance := l.balanceLocked(tx.UserID)
	if tx.Amount < 0 && balance+tx.Amount < 0 {
		return errResult(CodeInsufficientFunds, balance), nil
	}

	rec := *tx
	rec.BalanceAfter = balance + tx.Amount
	rec.CreatedAt = time.Now()

	l.mu.Lock()
	l.balances[tx.UserID] = rec.BalanceAfter
	l.txs[rec.ID] = &rec
	l.history[tx.UserID] = append(l.history[tx.UserID], rec.ID)
	l.mu.Unlock()

	return okResult(rec.BalanceAfter, false), nil
}

func (l *MemLedger) Rollback(ctx context.Context, txID string) (Result, error) {
	l.mu.Lock()
	orig, ok := l.txs[txID]
	l.mu.Unlock()
	if !ok {
		return errResult(CodeRollbackNotFound, 0), nil
	}
	if orig.Type == models.TransactionTypeRollback {
		return errResult(CodeInvalidTransaction, 0), nil
	}

	release, err := l.acquire(orig.UserID)
	if err != nil {
		return errResult(CodeLockTimeout, 0), nil
	}
	defer release()

	rbID := rollbackID(txID)
	l.mu.Lock()
	if prior, ok := l.txs[rbID]; ok {
		l.mu.Unlock()
		return okResult(prior.BalanceAfter, true), nil
	}
	l.mu.Unlock()

	// Invert only this transaction's signed amount; intervening activity on
	// other rounds is untouched. Inverting a spent credit may leave the
	// balance negative, which is the payment provider's reconciliation
	// problem, not ours to block.
	balance := l.balanceLocked(orig.UserID) - orig.Amount

	rec := &models.Transaction{
		ID:               rbID,
		UserID:           orig.UserID,
		Type:             models.TransactionTypeRollback,
		Amount:           -orig.Amount,
		BalanceAfter:     balance,
		RoundID:          orig.RoundID,
		RefTransactionID: orig.ID,
		CreatedAt:        time.Now(),
	}

	l.mu.Lock()
	l.balances[orig.UserID] = balance
	l.txs[rbID] = rec
	l.history[orig.UserID] = append(l.history[orig.UserID], rbID)
	l.mu.Unlock()

	return okResult(balance, false), nil
}

func (l *MemLedger) History(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ids := l.history[userID]
	out := make([]*models.Transaction, 0, limit)
	for i := len(ids) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		cp := *l.txs[ids[i]]
		out = append(out, &cp)
	}
	return out, nil
}
