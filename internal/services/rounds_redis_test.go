package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sevenbit/faircore/internal/models"
	"github.com/sevenbit/faircore/internal/services"
)

func TestRedisRoundStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	store := services.NewRedisRoundStore(client)
	userID := int64(999999)
	roundID := "round_store_test_1"

	defer func() {
		client.Del(ctx, "round:"+roundID)
		client.Del(ctx, "round:active:999999:mines")
		client.Del(ctx, "round:history:999999")
		client.Del(ctx, "ratelimit:999999:bet")
	}()

	claimed, err := store.TryClaimActive(ctx, userID, models.GameTypeMines, roundID)
	if err != nil || !claimed {
		t.Fatalf("failed to claim active slot: claimed=%v err=%v", claimed, err)
	}
	claimed, err = store.TryClaimActive(ctx, userID, models.GameTypeMines, "round_other")
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claimed {
		t.Error("second claim should fail while the slot is held")
	}

	holder, err := store.ActiveRoundID(ctx, userID, models.GameTypeMines)
	if err != nil || holder != roundID {
		t.Errorf("expected %s to hold the slot, got %q err=%v", roundID, holder, err)
	}

	round := &models.Round{
		ID:        roundID,
		UserID:    userID,
		GameType:  models.GameTypeMines,
		Stake:     1000,
		Status:    models.RoundActive,
		MineCount: 3,
		Mines:     []int{1, 5, 9},
		Revealed:  []int{},
		CreatedAt: time.Now().Unix(),
	}
	if err := store.Save(ctx, round); err != nil {
		t.Fatalf("failed to save round: %v", err)
	}

	got, err := store.Get(ctx, roundID)
	if err != nil {
		t.Fatalf("failed to get round: %v", err)
	}
	if got.ID != roundID || got.MineCount != 3 || len(got.Mines) != 3 {
		t.Errorf("round did not round-trip: %+v", got)
	}

	round.Status = models.RoundWon
	round.EndedAt = time.Now().Unix()
	if err := store.Complete(ctx, round); err != nil {
		t.Fatalf("failed to complete round: %v", err)
	}

	// Completing released the slot.
	claimed, err = store.TryClaimActive(ctx, userID, models.GameTypeMines, "round_other")
	if err != nil || !claimed {
		t.Errorf("slot should be free after completion: claimed=%v err=%v", claimed, err)
	}
	store.ReleaseActive(ctx, userID, models.GameTypeMines)

	history, err := store.History(ctx, userID, 10)
	if err != nil {
		t.Fatalf("failed to get history: %v", err)
	}
	if len(history) != 1 || history[0].ID != roundID {
		t.Errorf("expected completed round in history, got %+v", history)
	}

	allowed, err := store.Allow(ctx, userID, "bet", 5, time.Minute)
	if err != nil {
		t.Fatalf("rate limit check failed: %v", err)
	}
	if !allowed {
		t.Error("first action should be allowed")
	}
}
