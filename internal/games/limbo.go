package games

import (
	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/models"
)

// LimboResult maps one uniform draw to the revealed multiplier:
// clamp(1.00, (1-houseEdge)/u, max), floored to two decimals. The degenerate
// u=0 draw maps to the maximum.
func LimboResult(u, houseEdge float64) float64 {
	if u == 0 {
		return models.LimboMaxTarget
	}
	result := truncate((1-houseEdge)/u, 2)
	if result < 1.0 {
		return 1.0
	}
	if result > models.LimboMaxTarget {
		return models.LimboMaxTarget
	}
	return result
}

// PlayLimbo wins when the revealed multiplier reaches the chosen target. The
// payout multiplier is the target itself: P(result >= target) is
// (1-houseEdge)/target, so the expected value is exactly 1-houseEdge.
func PlayLimbo(s *fair.Stream, p *models.LimboParams, houseEdge float64) Outcome {
	result := LimboResult(s.Float64(), houseEdge)

	return Outcome{
		Win:        result >= p.Target,
		Multiplier: truncate(p.Target, MultiplierPrecision),
		Value:      result,
		Label:      "result",
		Details: map[string]any{
			"result": result,
			"target": p.Target,
		},
	}
}
