package games

import "github.com/sevenbit/faircore/internal/fair"

const (
	CrashMinPoint = 1.0
	CrashMaxPoint = 10000.0

	// crashCoefficient scales the continuous curve. Kept explicit so the
	// formula reads the same as the published verification procedure.
	crashCoefficient = 1.0
)

// CrashPoint derives the predetermined bust multiplier for one round. Both
// draws come from the same HMAC stream: the first eight bytes feed the
// continuous curve, the next eight the instant-bust check, so the
// fixed-probability floor stays verifiable from the committed seed alone.
//
// The curve itself is the fair 1/(1-u); the instant-bust floor is the sole
// carrier of the house edge, so a cashout targeted at multiplier t wins with
// probability (1-bustChance)/t and the bet's expected value is exactly
// (1-bustChance) times the stake.
func CrashPoint(s *fair.Stream, bustChance float64) float64 {
	u := s.Float64()
	bust := s.Float64()

	if bust < bustChance {
		return CrashMinPoint
	}

	point := truncate(1/(1-u)*crashCoefficient, 2)
	if point < CrashMinPoint {
		return CrashMinPoint
	}
	if point > CrashMaxPoint {
		return CrashMaxPoint
	}
	return point
}
