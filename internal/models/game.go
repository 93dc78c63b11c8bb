package models

import "fmt"

type GameType string

const (
	GameTypeDice   GameType = "dice"
	GameTypeLimbo  GameType = "limbo"
	GameTypeCrash  GameType = "crash"
	GameTypeMines  GameType = "mines"
	GameTypePlinko GameType = "plinko"
)

type DiceCondition string

const (
	DiceUnder DiceCondition = "under"
	DiceOver  DiceCondition = "over"
)

type PlinkoRisk string

const (
	PlinkoRiskLow    PlinkoRisk = "low"
	PlinkoRiskMedium PlinkoRisk = "medium"
	PlinkoRiskHigh   PlinkoRisk = "high"
)

const (
	MinesGridSize = 25

	// Dice targets carry two decimal places, so the playable range is
	// 0.01..99.98 for "under" and 0.01..99.98 for "over" mirrored.
	DiceMinTarget = 0.01
	DiceMaxTarget = 99.98

	LimboMinTarget = 1.01
	LimboMaxTarget = 1000000.0

	PlinkoMinRows = 8
	PlinkoMaxRows = 16
)

type DiceParams struct {
	Target    float64       `json:"target"`
	Condition DiceCondition `json:"condition"`
}

type LimboParams struct {
	Target float64 `json:"target"`
}

type MinesParams struct {
	MineCount int `json:"mine_count"`
}

type PlinkoParams struct {
	Rows int        `json:"rows"`
	Risk PlinkoRisk `json:"risk"`
}

// BetRequest is what a play action submits. Stake is in minor units (cents).
// Exactly one params block matching GameType must be set.
type BetRequest struct {
	GameType GameType `json:"game_type" binding:"required"`
	Stake    int64    `json:"stake" binding:"required"`

	Dice   *DiceParams   `json:"dice,omitempty"`
	Limbo  *LimboParams  `json:"limbo,omitempty"`
	Mines  *MinesParams  `json:"mines,omitempty"`
	Plinko *PlinkoParams `json:"plinko,omitempty"`
}

func (br *BetRequest) Validate(minBet, maxBet int64) error {
	if br.Stake < minBet {
		return fmt.Errorf("minimum stake is %d minor units", minBet)
	}
	if br.Stake > maxBet {
		return fmt.Errorf("maximum stake is %d minor units", maxBet)
	}

	switch br.GameType {
	case GameTypeDice:
		if br.Dice == nil {
			return fmt.Errorf("dice params required")
		}
		if br.Dice.Condition != DiceUnder && br.Dice.Condition != DiceOver {
			return fmt.Errorf("dice condition must be under or over")
		}
		if br.Dice.Target < DiceMinTarget || br.Dice.Target > DiceMaxTarget {
			return fmt.Errorf("dice target must be within [%.2f, %.2f]", DiceMinTarget, DiceMaxTarget)
		}
	case GameTypeLimbo:
		if br.Limbo == nil {
			return fmt.Errorf("limbo params required")
		}
		if br.Limbo.Target < LimboMinTarget || br.Limbo.Target > LimboMaxTarget {
			return fmt.Errorf("limbo target must be within [%.2f, %.2f]", LimboMinTarget, LimboMaxTarget)
		}
	case GameTypeCrash:
		// No params: cashout point is chosen live.
	case GameTypeMines:
		if br.Mines == nil {
			return fmt.Errorf("mines params required")
		}
		if br.Mines.MineCount < 1 || br.Mines.MineCount > MinesGridSize-1 {
			return fmt.Errorf("mine count must be within [1, %d]", MinesGridSize-1)
		}
	case GameTypePlinko:
		if br.Plinko == nil {
			return fmt.Errorf("plinko params required")
		}
		if br.Plinko.Rows < PlinkoMinRows || br.Plinko.Rows > PlinkoMaxRows {
			return fmt.Errorf("plinko rows must be within [%d, %d]", PlinkoMinRows, PlinkoMaxRows)
		}
		switch br.Plinko.Risk {
		case PlinkoRiskLow, PlinkoRiskMedium, PlinkoRiskHigh:
		default:
			return fmt.Errorf("invalid plinko risk: %s", br.Plinko.Risk)
		}
	default:
		return fmt.Errorf("invalid game type: %s", br.GameType)
	}

	return nil
}
