package games

import (
	"fmt"

	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/models"
)

// Outcome is a pure function of the draw stream, the bet parameters and the
// house-edge configuration. It is computed exactly once per bet and the same
// value settles and displays the result.
type Outcome struct {
	Win        bool
	Multiplier float64 // payout multiplier applied when the bet pays
	Value      float64 // headline metric: roll, result, crash point, bucket
	Label      string
	Details    map[string]any

	// AlwaysPays marks games (plinko) that pay the bucket multiplier on
	// every drop, even below 1x; Win then only flags a net-positive drop.
	AlwaysPays bool
}

// PayoutFor prices the outcome against a stake in minor units.
func (o Outcome) PayoutFor(stake int64) int64 {
	if !o.Win && !o.AlwaysPays {
		return 0
	}
	return Payout(stake, o.Multiplier)
}

// Play maps a draw stream to the outcome of a single-shot game. Crash and
// mines rounds are interactive; their mappers (CrashPoint, MineLayout) are
// consumed by the settlement engine instead.
func Play(s *fair.Stream, req *models.BetRequest, houseEdge float64) (Outcome, error) {
	switch req.GameType {
	case models.GameTypeDice:
		return PlayDice(s, req.Dice, houseEdge), nil
	case models.GameTypeLimbo:
		return PlayLimbo(s, req.Limbo, houseEdge), nil
	case models.GameTypePlinko:
		return PlayPlinko(s, req.Plinko, houseEdge), nil
	case models.GameTypeCrash, models.GameTypeMines:
		return Outcome{}, fmt.Errorf("%s rounds are interactive and not settled in one shot", req.GameType)
	default:
		return Outcome{}, fmt.Errorf("invalid game type: %s", req.GameType)
	}
}
