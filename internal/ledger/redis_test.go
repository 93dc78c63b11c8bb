package ledger_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/sevenbit/faircore/internal/ledger"
)

// TestRedisLedgerContract runs the shared contract against the production
// implementation. Every subtest starts from a wiped keyspace so the
// idempotency records of a previous run cannot leak in.
func TestRedisLedgerContract(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() {
		wipeLedgerKeys(t, client)
		client.Close()
	})

	testLedgerContract(t, func() ledger.Ledger {
		wipeLedgerKeys(t, client)
		return ledger.NewRedisLedger(client, startingBalance)
	})
}

func wipeLedgerKeys(t *testing.T, client *redis.Client) {
	t.Helper()
	ctx := context.Background()

	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, "ledger:*", 200).Result()
		if err != nil {
			t.Fatalf("failed to scan ledger keys: %v", err)
		}
		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				t.Fatalf("failed to delete ledger keys: %v", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
