package games

import (
	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/models"
)

// PlinkoPath derives one left/right bit per row from successive stream bytes.
// The bucket index is the count of rightward bounces.
func PlinkoPath(s *fair.Stream, rows int) (bucket int, path []int) {
	path = make([]int, rows)
	for i := range path {
		path[i] = s.Bit()
		bucket += path[i]
	}
	return bucket, path
}

// PlayPlinko drops one ball. Plinko always pays the bucket multiplier, which
// may be below 1x; a "win" here means the payout at least returns the stake.
func PlayPlinko(s *fair.Stream, p *models.PlinkoParams, houseEdge float64) Outcome {
	bucket, path := PlinkoPath(s, p.Rows)
	table := PlinkoTable(p.Risk, p.Rows, houseEdge)
	multiplier := table[bucket]

	return Outcome{
		Win:        multiplier >= 1.0,
		Multiplier: multiplier,
		Value:      float64(bucket),
		Label:      "bucket",
		Details: map[string]any{
			"bucket": bucket,
			"path":   path,
			"rows":   p.Rows,
			"risk":   p.Risk,
		},
		AlwaysPays: true,
	}
}
