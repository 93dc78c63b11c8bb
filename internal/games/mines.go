package games

import (
	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/models"
)

// MineLayout derives the mine positions for a round: a Fisher-Yates shuffle
// of the 25-cell grid, using the stream as the index source at every step,
// with the first mineCount shuffled positions becoming mines. Each swap index
// consumes fresh stream bytes, so no digest bits are reused.
func MineLayout(s *fair.Stream, mineCount int) []int {
	cells := make([]int, models.MinesGridSize)
	for i := range cells {
		cells[i] = i
	}
	for i := len(cells) - 1; i > 0; i-- {
		j := s.IntN(i + 1)
		cells[i], cells[j] = cells[j], cells[i]
	}
	return cells[:mineCount]
}

// MinesMultiplier is the cashout multiplier after revealed safe tiles:
// (1-houseEdge) over the probability of surviving that many picks. It grows
// with every reveal and is truncated at the shared multiplier precision.
func MinesMultiplier(houseEdge float64, mineCount, revealed int) float64 {
	if revealed <= 0 {
		return 1.0
	}
	safe := models.MinesGridSize - mineCount
	if revealed > safe {
		revealed = safe
	}

	survive := 1.0
	for i := 0; i < revealed; i++ {
		survive *= float64(safe-i) / float64(models.MinesGridSize-i)
	}
	return truncate((1-houseEdge)/survive, MultiplierPrecision)
}

// IsMine reports whether a cell is mined under the given layout.
func IsMine(mines []int, cell int) bool {
	for _, m := range mines {
		if m == cell {
			return true
		}
	}
	return false
}
