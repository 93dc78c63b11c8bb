package games_test

import (
	"testing"

	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/games"
	"github.com/sevenbit/faircore/internal/models"
)

func TestLimboResultBounds(t *testing.T) {
	for nonce := uint64(0); nonce < 5000; nonce++ {
		s := fair.NewStream(gameSeed, "limbo-bounds", nonce)
		r := games.LimboResult(s.Float64(), 0.04)
		if r < 1.0 || r > models.LimboMaxTarget {
			t.Fatalf("nonce %d: result %v outside [1.00, max]", nonce, r)
		}
	}
}

func TestLimboDegenerateDraw(t *testing.T) {
	if r := games.LimboResult(0, 0.04); r != models.LimboMaxTarget {
		t.Errorf("u=0 should map to the maximum target, got %v", r)
	}
	// Draws above 1-houseEdge land below 1.00x and clamp up.
	if r := games.LimboResult(0.99, 0.04); r != 1.0 {
		t.Errorf("large u should clamp to 1.00, got %v", r)
	}
}

func TestLimboWinAtTarget(t *testing.T) {
	p := &models.LimboParams{Target: 2.0}
	for nonce := uint64(0); nonce < 2000; nonce++ {
		s := fair.NewStream(gameSeed, "limbo-win", nonce)
		result := games.LimboResult(s.Float64(), 0.04)

		out := games.PlayLimbo(fair.NewStream(gameSeed, "limbo-win", nonce), p, 0.04)
		if out.Win != (result >= 2.0) {
			t.Fatalf("nonce %d: result %v but win=%v", nonce, result, out.Win)
		}
		if out.Win && out.Multiplier != 2.0 {
			t.Fatalf("limbo pays the target multiplier, got %v", out.Multiplier)
		}
	}
}
