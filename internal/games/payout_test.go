package games_test

import (
	"testing"

	"github.com/sevenbit/faircore/internal/games"
)

// Every formula-driven bet must return 1 - houseEdge in expectation:
// multiplier * winChance/100 stays within truncation distance of the RTP.
func TestChanceMultiplierLaw(t *testing.T) {
	houseEdges := []float64{0, 0.01, 0.04, 0.10, 0.20}
	winChances := []float64{0.01, 0.5, 1, 2, 10, 25, 49.5, 50, 75, 90, 98, 99.99}

	for _, he := range houseEdges {
		for _, wc := range winChances {
			m := games.ChanceMultiplier(he, wc)
			if m <= 0 {
				t.Fatalf("he=%v wc=%v: non-positive multiplier %v", he, wc, m)
			}
			rtp := m * wc / 100
			want := 1 - he
			if rtp > want+1e-9 {
				t.Errorf("he=%v wc=%v: rtp %v exceeds %v (rounded up?)", he, wc, rtp, want)
			}
			if rtp < want-2e-4 {
				t.Errorf("he=%v wc=%v: rtp %v too far below %v", he, wc, rtp, want)
			}
		}
	}
}

func TestChanceMultiplierDegenerateChances(t *testing.T) {
	if m := games.ChanceMultiplier(0.04, 0); m != 0 {
		t.Errorf("zero win chance should yield zero multiplier, got %v", m)
	}
	if m := games.ChanceMultiplier(0.04, 100); m != 0 {
		t.Errorf("certain win should yield zero multiplier, got %v", m)
	}
}

func TestChanceMultiplierWorkedExample(t *testing.T) {
	// 4% edge, 50% chance: floor((96/50)*10^4)/10^4 = 1.9200 exactly.
	if m := games.ChanceMultiplier(0.04, 50); m != 1.92 {
		t.Errorf("expected 1.9200, got %v", m)
	}
}

func TestPayoutTruncates(t *testing.T) {
	if p := games.Payout(1000, 1.92); p != 1920 {
		t.Errorf("expected 1920, got %d", p)
	}
	// 999 * 1.9999 = 1997.9001 -> 1997, never rounded up.
	if p := games.Payout(999, 1.9999); p != 1997 {
		t.Errorf("expected 1997, got %d", p)
	}
	if pr := games.Profit(1000, 1920); pr != 920 {
		t.Errorf("expected profit 920, got %d", pr)
	}
}
