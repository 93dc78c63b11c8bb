package games_test

import (
	"testing"

	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/games"
	"github.com/sevenbit/faircore/internal/models"
)

func TestMineLayoutValidPermutationPrefix(t *testing.T) {
	for nonce := uint64(0); nonce < 2000; nonce++ {
		s := fair.NewStream(gameSeed, "mines-perm", nonce)
		mines := games.MineLayout(s, 5)

		if len(mines) != 5 {
			t.Fatalf("expected 5 mines, got %d", len(mines))
		}
		seen := make(map[int]bool)
		for _, m := range mines {
			if m < 0 || m >= models.MinesGridSize {
				t.Fatalf("mine position %d out of grid", m)
			}
			if seen[m] {
				t.Fatalf("duplicate mine position %d", m)
			}
			seen[m] = true
		}
	}
}

func TestMineLayoutDeterminism(t *testing.T) {
	a := games.MineLayout(fair.NewStream(gameSeed, "mines-det", 3), 10)
	b := games.MineLayout(fair.NewStream(gameSeed, "mines-det", 3), 10)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("layouts differ at %d: %v vs %v", i, a, b)
		}
	}
}

// Every cell should carry a mine with probability mineCount/25.
func TestMineLayoutUniformity(t *testing.T) {
	const trials = 20000
	const mineCount = 5

	counts := make([]int, models.MinesGridSize)
	for nonce := uint64(0); nonce < trials; nonce++ {
		s := fair.NewStream(gameSeed, "mines-uniform", nonce)
		for _, m := range games.MineLayout(s, mineCount) {
			counts[m]++
		}
	}

	want := float64(trials) * mineCount / models.MinesGridSize // 4000
	for cell, c := range counts {
		if float64(c) < want*0.9 || float64(c) > want*1.1 {
			t.Errorf("cell %d mined %d times, expected near %.0f", cell, c, want)
		}
	}
}

func TestMinesMultiplierMonotonic(t *testing.T) {
	for _, mineCount := range []int{1, 3, 5, 10, 24} {
		safe := models.MinesGridSize - mineCount
		prev := 0.0
		for revealed := 1; revealed <= safe; revealed++ {
			m := games.MinesMultiplier(0.04, mineCount, revealed)
			if m <= prev {
				t.Fatalf("mines=%d revealed=%d: multiplier %v not increasing past %v",
					mineCount, revealed, m, prev)
			}
			prev = m
		}
	}
}

// Cashing out after k reveals has survival probability P(k), and the
// multiplier is (1-houseEdge)/P(k): the product stays at the RTP.
func TestMinesMultiplierExpectedValue(t *testing.T) {
	for _, mineCount := range []int{1, 3, 10} {
		safe := models.MinesGridSize - mineCount
		for revealed := 1; revealed <= safe && revealed <= 10; revealed++ {
			survive := 1.0
			for i := 0; i < revealed; i++ {
				survive *= float64(safe-i) / float64(models.MinesGridSize-i)
			}
			ev := survive * games.MinesMultiplier(0.04, mineCount, revealed)
			if ev > 0.96+1e-9 || ev < 0.96-0.01 {
				t.Errorf("mines=%d revealed=%d: ev %v, expected near 0.96", mineCount, revealed, ev)
			}
		}
	}
}

func TestMinesMultiplierBeforeFirstReveal(t *testing.T) {
	if m := games.MinesMultiplier(0.04, 3, 0); m != 1.0 {
		t.Errorf("no reveals should mean 1.0x, got %v", m)
	}
}

func TestIsMine(t *testing.T) {
	mines := []int{3, 17, 24}
	if !games.IsMine(mines, 17) {
		t.Error("17 should be a mine")
	}
	if games.IsMine(mines, 0) {
		t.Error("0 should be safe")
	}
}
