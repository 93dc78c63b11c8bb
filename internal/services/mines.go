package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/games"
	"github.com/sevenbit/faircore/internal/ledger"
	"github.com/sevenbit/faircore/internal/models"
)

// MinesReveal is the response to one tile pick. Mine positions stay hidden
// until the round is over.
type MinesReveal struct {
	RoundID    string  `json:"round_id"`
	Cell       int     `json:"cell"`
	IsMine     bool    `json:"is_mine"`
	Revealed   []int   `json:"revealed"`
	Multiplier float64 `json:"multiplier"`
	GameOver   bool    `json:"game_over"`
	Mines      []int   `json:"mines,omitempty"`
	Payout     int64   `json:"payout,omitempty"`
	Balance    int64   `json:"balance,omitempty"`

	Status models.RoundStatus `json:"status"`
}

func (e *Engine) startMines(ctx context.Context, userID int64, req *models.BetRequest) (*models.BetResult, error) {
	roundID := models.NewRoundID()

	claimed, err := e.rounds.TryClaimActive(ctx, userID, models.GameTypeMines, roundID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrActiveRound
	}

	pair, err := e.seeds.Draw(ctx, userID)
	if err != nil {
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeMines)
		return nil, err
	}
	seed, err := pair.SeedBytes()
	if err != nil {
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeMines)
		return nil, err
	}

	res, err := e.ledger.Apply(ctx, betTx(userID, roundID, req.Stake))
	if err != nil {
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeMines)
		return nil, err
	}
	if res.Status != ledger.StatusOK {
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeMines)
		return nil, ledgerReject(res)
	}

	stream := fair.NewStream(seed, pair.ClientSeed, pair.Nonce)
	mines := games.MineLayout(stream, req.Mines.MineCount)

	round := &models.Round{
		ID:             roundID,
		UserID:         userID,
		GameType:       models.GameTypeMines,
		Stake:          req.Stake,
		Status:         models.RoundActive,
		Multiplier:     1.0,
		SeedID:         pair.ID,
		ClientSeed:     pair.ClientSeed,
		ServerSeedHash: pair.ServerSeedHash,
		Nonce:          pair.Nonce,
		MineCount:      req.Mines.MineCount,
		Mines:          mines,
		Revealed:       []int{},
		CreatedAt:      time.Now().Unix(),
	}
	if err := e.rounds.Save(ctx, round); err != nil {
		e.refundBet(ctx, roundID)
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeMines)
		return nil, err
	}

	e.bcast.BalanceUpdate(userID, res.Balance)

	return &models.BetResult{
		RoundID:  roundID,
		GameType: models.GameTypeMines,
		Label:    "reveals",
		Details: map[string]any{
			"mine_count": req.Mines.MineCount,
			"grid_size":  models.MinesGridSize,
			"status":     models.RoundActive,
		},
		Multiplier:     1.0,
		Stake:          req.Stake,
		Balance:        res.Balance,
		ServerSeedHash: pair.ServerSeedHash,
		ClientSeed:     pair.ClientSeed,
		Nonce:          pair.Nonce,
	}, nil
}

// activeMinesRound loads a mines round and checks it may be advanced by this
// user. Callers hold minesMu.
func (e *Engine) activeMinesRound(ctx context.Context, userID int64, roundID string) (*models.Round, error) {
	round, err := e.rounds.Get(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.GameType != models.GameTypeMines {
		return nil, fmt.Errorf("%w: round %s is not a mines round", ErrInvalidBet, roundID)
	}
	if round.UserID != userID {
		return nil, ErrNotRoundOwner
	}
	if round.Status != models.RoundActive {
		return nil, ErrRoundNotActive
	}
	return round, nil
}

// RevealMines picks one tile. A safe pick raises the cashout multiplier; a
// mine ends the round with the stake lost. Revealing every safe tile cashes
// out automatically.
func (e *Engine) RevealMines(ctx context.Context, userID int64, roundID string, cell int) (*MinesReveal, error) {
	if cell < 0 || cell >= models.MinesGridSize {
		return nil, fmt.Errorf("%w: cell must be within [0, %d]", ErrInvalidBet, models.MinesGridSize-1)
	}

	e.minesMu.Lock()
	defer e.minesMu.Unlock()

	round, err := e.activeMinesRound(ctx, userID, roundID)
	if err != nil {
		return nil, err
	}
	for _, r := range round.Revealed {
		if r == cell {
			return nil, ErrCellRevealed
		}
	}

	if games.IsMine(round.Mines, cell) {
		round.Status = models.RoundLost
		round.Multiplier = 0
		round.Payout = 0
		round.EndedAt = time.Now().Unix()
		if err := e.rounds.Complete(ctx, round); err != nil {
			return nil, err
		}

		balance, _ := e.ledger.Balance(ctx, userID)
		return &MinesReveal{
			RoundID:  roundID,
			Cell:     cell,
			IsMine:   true,
			Revealed: round.Revealed,
			GameOver: true,
			Mines:    round.Mines,
			Balance:  balance,
			Status:   round.Status,
		}, nil
	}

	round.Revealed = append(round.Revealed, cell)
	round.Multiplier = games.MinesMultiplier(e.cfg.HouseEdge, round.MineCount, len(round.Revealed))

	if len(round.Revealed) == models.MinesGridSize-round.MineCount {
		return e.settleMines(ctx, round, cell)
	}

	if err := e.rounds.Update(ctx, round); err != nil {
		return nil, err
	}
	return &MinesReveal{
		RoundID:    roundID,
		Cell:       cell,
		Revealed:   round.Revealed,
		Multiplier: round.Multiplier,
		Status:     round.Status,
	}, nil
}

// CashoutMines closes an active mines round at its current multiplier.
func (e *Engine) CashoutMines(ctx context.Context, userID int64, roundID string) (*MinesReveal, error) {
	e.minesMu.Lock()
	defer e.minesMu.Unlock()

	round, err := e.activeMinesRound(ctx, userID, roundID)
	if err != nil {
		return nil, err
	}
	if len(round.Revealed) == 0 {
		return nil, ErrNothingRevealed
	}

	return e.settleMines(ctx, round, -1)
}

// settleMines pays out an active round at its current multiplier. Callers
// hold minesMu.
func (e *Engine) settleMines(ctx context.Context, round *models.Round, lastCell int) (*MinesReveal, error) {
	payout := games.Payout(round.Stake, round.Multiplier)

	res, err := e.ledger.Apply(ctx, winTx(round.UserID, round.ID, payout))
	if err != nil {
		return nil, err
	}
	if res.Status != ledger.StatusOK {
		return nil, ledgerReject(res)
	}

	round.Status = models.RoundWon
	round.Payout = payout
	round.EndedAt = time.Now().Unix()
	if err := e.rounds.Complete(ctx, round); err != nil {
		e.log.WithError(err).WithField("round_id", round.ID).Error("failed to persist settled mines round")
	}

	e.bcast.BalanceUpdate(round.UserID, res.Balance)

	return &MinesReveal{
		RoundID:    round.ID,
		Cell:       lastCell,
		Revealed:   round.Revealed,
		Multiplier: round.Multiplier,
		GameOver:   true,
		Mines:      round.Mines,
		Payout:     payout,
		Balance:    res.Balance,
		Status:     round.Status,
	}, nil
}
