package games

import (
	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/models"
)

// dicePrecision gives the roll two decimal places: 10000 buckets over
// [0.00, 99.99], each with exactly equal probability mass.
const dicePrecision = 10000

// DiceRoll reduces the draw to a roll in [0.00, 99.99].
func DiceRoll(s *fair.Stream) float64 {
	return float64(s.Uint32()%dicePrecision) / 100
}

// PlayDice maps one draw to a dice outcome. "under" wins strictly below the
// target, "over" strictly above; rolling the target exactly always loses.
func PlayDice(s *fair.Stream, p *models.DiceParams, houseEdge float64) Outcome {
	roll := DiceRoll(s)

	var win bool
	var winChance float64
	if p.Condition == models.DiceUnder {
		win = roll < p.Target
		winChance = p.Target
	} else {
		win = roll > p.Target
		winChance = 100 - p.Target
	}

	return Outcome{
		Win:        win,
		Multiplier: ChanceMultiplier(houseEdge, winChance),
		Value:      roll,
		Label:      "roll",
		Details: map[string]any{
			"roll":       roll,
			"target":     p.Target,
			"condition":  p.Condition,
			"win_chance": winChance,
		},
	}
}
