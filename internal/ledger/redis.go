package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sevenbit/faircore/internal/models"
)

const (
	keyTransaction = "ledger:tx:%s"
	keyWallet      = "ledger:wallet:%d"
	keyUserHistory = "ledger:user:%d:txs"
)

// Script reply codes shared by both Lua scripts.
const (
	replyOK = iota
	replyDuplicate
	replyInsufficient
	replyNotFound
	replyInvalid
)

// applyScript runs the whole debit/credit as one atomic unit inside Redis:
// the duplicate check, the insufficient-funds check and the balance write
// can never interleave with a concurrent bet from the same user.
var applyScript = redis.NewScript(`
	local existing = redis.call("GET", KEYS[1])
	if existing then
		return {1, cjson.decode(existing).balance_after}
	end

	local balance = redis.call("GET", KEYS[2])
	if not balance then
		balance = tonumber(ARGV[7])
		redis.call("SET", KEYS[2], balance)
	else
		balance = tonumber(balance)
	end

	local amount = tonumber(ARGV[4])
	if amount < 0 and balance + amount < 0 then
		return {2, balance}
	end

	balance = balance + amount
	redis.call("SET", KEYS[2], balance)

	local tx = {
		id = ARGV[1],
		user_id = tonumber(ARGV[2]),
		type = ARGV[3],
		amount = amount,
		balance_after = balance,
		round_id = ARGV[5],
		created_at = tonumber(ARGV[6]),
	}
	redis.call("SET", KEYS[1], cjson.encode(tx))
	redis.call("ZADD", KEYS[3], tonumber(ARGV[6]), ARGV[1])

	return {0, balance}
`)

var rollbackScript = redis.NewScript(`
	local prior = redis.call("GET", KEYS[2])
	if prior then
		return {1, cjson.decode(prior).balance_after}
	end

	local orig = redis.call("GET", KEYS[1])
	if not orig then
		return {3, 0}
	end
	local otx = cjson.decode(orig)
	if otx.type == "rollback" then
		return {4, 0}
	end

	local balance = tonumber(redis.call("GET", KEYS[3]) or "0")
	balance = balance - otx.amount
	redis.call("SET", KEYS[3], balance)

	local rb = {
		id = ARGV[1],
		user_id = otx.user_id,
		type = "rollback",
		amount = -otx.amount,
		balance_after = balance,
		round_id = otx.round_id,
		ref_transaction_id = otx.id,
		created_at = tonumber(ARGV[2]),
	}
	redis.call("SET", KEYS[2], cjson.encode(rb))
	redis.call("ZADD", KEYS[4], tonumber(ARGV[2]), ARGV[1])

	return {0, balance}
`)

// RedisLedger is the production implementation. Redis executes each script
// single-threaded, which is the per-user serialization point: apply and
// rollback for one wallet are strictly ordered and balance checks are
// race-free without any client-side locking.
type RedisLedger struct {
	client   *redis.Client
	starting int64
}

func NewRedisLedger(client *redis.Client, startingBalance int64) *RedisLedger {
	return &RedisLedger{client: client, starting: startingBalance}
}

// redisTx is the cjson shape written by the scripts; created_at is a unix
// timestamp there, so it cannot unmarshal straight into models.Transaction.
type redisTx struct {
	ID               string                 `json:"id"`
	UserID           int64                  `json:"user_id"`
	Type             models.TransactionType `json:"type"`
	Amount           int64                  `json:"amount"`
	BalanceAfter     int64                  `json:"balance_after"`
	RoundID          string                 `json:"round_id"`
	RefTransactionID string                 `json:"ref_transaction_id"`
	CreatedAt        int64                  `json:"created_at"`
}

func (r redisTx) toModel() *models.Transaction {
	return &models.Transaction{
		ID:               r.ID,
		UserID:           r.UserID,
		Type:             r.Type,
		Amount:           r.Amount,
		BalanceAfter:     r.BalanceAfter,
		RoundID:          r.RoundID,
		RefTransactionID: r.RefTransactionID,
		CreatedAt:        time.Unix(r.CreatedAt, 0),
	}
}

func (l *RedisLedger) Balance(ctx context.Context, userID int64) (int64, error) {
	key := fmt.Sprintf(keyWallet, userID)
	balance, err := l.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		if err := l.client.SetNX(ctx, key, l.starting, 0).Err(); err != nil {
			return 0, fmt.Errorf("failed to create wallet: %w", err)
		}
		return l.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func scriptResult(raw interface{}) (code int64, balance int64, err error) {
	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 2 {
		return 0, 0, fmt.Errorf("unexpected script reply: %v", raw)
	}
	code, _ = reply[0].(int64)
	balance, _ = reply[1].(int64)
	return code, balance, nil
}

func (l *RedisLedger) Apply(ctx context.Context, tx *models.Transaction) (Result, error) {
	if err := validate(tx); err != nil {
		return errResult(CodeInvalidTransaction, 0), nil
	}

	keys := []string{
		fmt.Sprintf(keyTransaction, tx.ID),
		fmt.Sprintf(keyWallet, tx.UserID),
		fmt.Sprintf(keyUserHistory, tx.UserID),
	}
	raw, err := applyScript.Run(ctx, l.client, keys,
		tx.ID, tx.UserID, string(tx.Type), tx.Amount, tx.RoundID,
		time.Now().Unix(), l.starting,
	).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ledger apply script failed: %w", err)
	}

	code, balance, err := scriptResult(raw)
	if err != nil {
		return Result{}, err
	}
	switch code {
	case replyOK:
		return okResult(balance, false), nil
	case replyDuplicate:
		return okResult(balance, true), nil
	case replyInsufficient:
		return errResult(CodeInsufficientFunds, balance), nil
	default:
		return Result{}, fmt.Errorf("ledger apply script returned code %d", code)
	}
}

func (l *RedisLedger) Rollback(ctx context.Context, txID string) (Result, error) {
	// The wallet key depends on the transaction's owner, so resolve the
	// record first; the script re-validates atomically.
	data, err := l.client.Get(ctx, fmt.Sprintf(keyTransaction, txID)).Result()
	if err == redis.Nil {
		return errResult(CodeRollbackNotFound, 0), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to load transaction: %w", err)
	}
	var orig redisTx
	if err := json.Unmarshal([]byte(data), &orig); err != nil {
		return Result{}, fmt.Errorf("corrupt transaction record: %w", err)
	}

	rbID := rollbackID(txID)
	keys := []string{
		fmt.Sprintf(keyTransaction, txID),
		fmt.Sprintf(keyTransaction, rbID),
		fmt.Sprintf(keyWallet, orig.UserID),
		fmt.Sprintf(keyUserHistory, orig.UserID),
	}
	raw, err := rollbackScript.Run(ctx, l.client, keys, rbID, time.Now().Unix()).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ledger rollback script failed: %w", err)
	}

	code, balance, err := scriptResult(raw)
	if err != nil {
		return Result{}, err
	}
	switch code {
	case replyOK:
		return okResult(balance, false), nil
	case replyDuplicate:
		return okResult(balance, true), nil
	case replyNotFound:
		return errResult(CodeRollbackNotFound, 0), nil
	case replyInvalid:
		return errResult(CodeInvalidTransaction, 0), nil
	default:
		return Result{}, fmt.Errorf("ledger rollback script returned code %d", code)
	}
}

func (l *RedisLedger) History(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	ids, err := l.client.ZRevRange(ctx, fmt.Sprintf(keyUserHistory, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction ids: %w", err)
	}

	out := make([]*models.Transaction, 0, len(ids))
	for _, id := range ids {
		data, err := l.client.Get(ctx, fmt.Sprintf(keyTransaction, id)).Result()
		if err != nil {
			continue
		}
		var tx redisTx
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}
		out = append(out, tx.toModel())
	}
	return out, nil
}
