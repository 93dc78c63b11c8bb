package fair_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/sevenbit/faircore/internal/fair"
)

func newTestManager() *fair.Manager {
	return fair.NewManager(fair.NewMemStore(), 1000000)
}

func TestCommitmentMatchesSeed(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	pair, err := m.Active(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get active seed: %v", err)
	}

	raw, err := pair.SeedBytes()
	if err != nil {
		t.Fatalf("failed to decode seed: %v", err)
	}
	sum := sha256.Sum256(raw)
	if hex.EncodeToString(sum[:]) != pair.ServerSeedHash {
		t.Error("published hash is not SHA256 of the server seed")
	}
}

func TestRevealOnlyAfterRotation(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	pair, err := m.Active(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get active seed: %v", err)
	}

	if _, err := m.Reveal(ctx, pair.ID); !errors.Is(err, fair.ErrSeedNotRevealed) {
		t.Errorf("active seed should not be revealable, got %v", err)
	}

	revealed, next, err := m.Rotate(ctx, 1)
	if err != nil {
		t.Fatalf("rotation failed: %v", err)
	}
	if revealed.ID != pair.ID {
		t.Errorf("rotation should reveal the previously active seed")
	}
	if next.ID == pair.ID || next.ServerSeedHash == pair.ServerSeedHash {
		t.Errorf("rotation should commit a fresh seed")
	}
	if revealed.ServerSeed != pair.ServerSeed {
		t.Errorf("revealed seed altered: commit-reveal broken")
	}

	got, err := m.Reveal(ctx, pair.ID)
	if err != nil {
		t.Fatalf("retired seed should be revealable: %v", err)
	}
	if got.ServerSeed != pair.ServerSeed {
		t.Errorf("revealed seed does not match the committed one")
	}
}

func TestRotationPreservesClientSeed(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	if _, err := m.Active(ctx, 1); err != nil {
		t.Fatalf("failed to get active seed: %v", err)
	}
	if err := m.SetClientSeed(ctx, 1, "my-lucky-words"); err != nil {
		t.Fatalf("failed to set client seed: %v", err)
	}

	_, next, err := m.Rotate(ctx, 1)
	if err != nil {
		t.Fatalf("rotation failed: %v", err)
	}
	if next.ClientSeed != "my-lucky-words" {
		t.Errorf("client seed should survive rotation, got %q", next.ClientSeed)
	}
}

func TestNonceStrictlyIncreases(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	var last uint64
	for i := 0; i < 100; i++ {
		pair, err := m.Draw(ctx, 1)
		if err != nil {
			t.Fatalf("draw %d failed: %v", i, err)
		}
		if i > 0 && pair.Nonce != last+1 {
			t.Fatalf("nonce jumped from %d to %d", last, pair.Nonce)
		}
		last = pair.Nonce
	}
}

// No two concurrent draws may ever observe the same nonce.
func TestNonceUniqueUnderConcurrency(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	seen := make(map[uint64]bool)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				pair, err := m.Draw(ctx, 42)
				if err != nil {
					t.Errorf("draw failed: %v", err)
					return
				}
				mu.Lock()
				if seen[pair.Nonce] {
					t.Errorf("nonce %d allocated twice", pair.Nonce)
				}
				seen[pair.Nonce] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Errorf("expected %d distinct nonces, got %d", workers*perWorker, len(seen))
	}
}

// A rotation swaps the active pair in two store steps. A draw racing it must
// never end up pinned to a pair that is neither active nor retired afterwards,
// since such a bet could never be verified.
func TestRotateDuringDrawsKeepsSeedsRevealable(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	var mu sync.Mutex
	drawn := make(map[string]bool)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				pair, err := m.Draw(ctx, 7)
				if err != nil {
					t.Errorf("draw failed: %v", err)
					return
				}
				mu.Lock()
				drawn[pair.ID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, _, err := m.Rotate(ctx, 7); err != nil {
				t.Errorf("rotation failed: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	// Retire whatever is still active; every drawn-against seed must now be
	// revealable.
	if _, _, err := m.Rotate(ctx, 7); err != nil {
		t.Fatalf("final rotation failed: %v", err)
	}
	for id := range drawn {
		if _, err := m.Reveal(ctx, id); err != nil {
			t.Errorf("seed %s was drawn against but lost to a rotation: %v", id, err)
		}
	}
}

func TestSeedExhaustion(t *testing.T) {
	m := fair.NewManager(fair.NewMemStore(), 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.Draw(ctx, 1); err != nil {
			t.Fatalf("draw %d should succeed: %v", i, err)
		}
	}
	if _, err := m.Draw(ctx, 1); !errors.Is(err, fair.ErrSeedExhausted) {
		t.Errorf("expected ErrSeedExhausted, got %v", err)
	}

	// Rotation opens a fresh nonce space.
	if _, _, err := m.Rotate(ctx, 1); err != nil {
		t.Fatalf("rotation failed: %v", err)
	}
	pair, err := m.Draw(ctx, 1)
	if err != nil {
		t.Fatalf("draw after rotation failed: %v", err)
	}
	if pair.Nonce != 0 {
		t.Errorf("fresh seed should start at nonce 0, got %d", pair.Nonce)
	}
}

func TestDistinctUsersGetDistinctSeeds(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	a, err := m.Active(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get seed: %v", err)
	}
	b, err := m.Active(ctx, 2)
	if err != nil {
		t.Fatalf("failed to get seed: %v", err)
	}
	if a.ServerSeed == b.ServerSeed {
		t.Error("two users share a server seed")
	}
}
