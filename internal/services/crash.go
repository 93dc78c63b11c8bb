package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/games"
	"github.com/sevenbit/faircore/internal/ledger"
	"github.com/sevenbit/faircore/internal/models"
)

const (
	crashTickInterval = 100 * time.Millisecond
	crashTickStep     = 0.01
)

// crashRun is the live state of one crash round. The runner goroutine and the
// cashout request race for settlement through the settled flag; a cashout
// whose credit fails clears the flag again, so the round stays settleable
// until exactly one credit or bust lands.
type crashRun struct {
	round *models.Round
	done  chan struct{}

	mu         sync.Mutex
	multiplier float64
	settled    bool
}

func (e *Engine) startCrash(ctx context.Context, userID int64, req *models.BetRequest) (*models.BetResult, error) {
	roundID := models.NewRoundID()

	claimed, err := e.rounds.TryClaimActive(ctx, userID, models.GameTypeCrash, roundID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// The slot may be held by a round whose runner died with the
		// process; settle it out before rejecting the bet.
		if !e.recoverStaleCrash(ctx, userID) {
			return nil, ErrActiveRound
		}
		claimed, err = e.rounds.TryClaimActive(ctx, userID, models.GameTypeCrash, roundID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, ErrActiveRound
		}
	}

	pair, err := e.seeds.Draw(ctx, userID)
	if err != nil {
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeCrash)
		return nil, err
	}
	seed, err := pair.SeedBytes()
	if err != nil {
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeCrash)
		return nil, err
	}

	res, err := e.ledger.Apply(ctx, betTx(userID, roundID, req.Stake))
	if err != nil {
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeCrash)
		return nil, err
	}
	if res.Status != ledger.StatusOK {
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeCrash)
		return nil, ledgerReject(res)
	}

	stream := fair.NewStream(seed, pair.ClientSeed, pair.Nonce)
	crashPoint := games.CrashPoint(stream, e.cfg.BustChance())

	round := &models.Round{
		ID:             roundID,
		UserID:         userID,
		GameType:       models.GameTypeCrash,
		Stake:          req.Stake,
		Status:         models.RoundActive,
		Multiplier:     1.0,
		SeedID:         pair.ID,
		ClientSeed:     pair.ClientSeed,
		ServerSeedHash: pair.ServerSeedHash,
		Nonce:          pair.Nonce,
		CrashPoint:     crashPoint,
		CreatedAt:      time.Now().Unix(),
	}
	if err := e.rounds.Save(ctx, round); err != nil {
		e.refundBet(ctx, roundID)
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeCrash)
		return nil, err
	}

	run := &crashRun{
		round:      round,
		done:       make(chan struct{}),
		multiplier: 1.0,
	}
	e.mu.Lock()
	e.live[roundID] = run
	e.mu.Unlock()
	go e.runCrash(run)

	e.bcast.BalanceUpdate(userID, res.Balance)

	return &models.BetResult{
		RoundID:        roundID,
		GameType:       models.GameTypeCrash,
		Value:          1.0,
		Label:          "multiplier",
		Details:        map[string]any{"status": models.RoundActive},
		Multiplier:     1.0,
		Stake:          req.Stake,
		Balance:        res.Balance,
		ServerSeedHash: pair.ServerSeedHash,
		ClientSeed:     pair.ClientSeed,
		Nonce:          pair.Nonce,
	}, nil
}

// runCrash ticks the live multiplier until the predetermined crash point or a
// cashout stops it.
func (e *Engine) runCrash(run *crashRun) {
	ticker := time.NewTicker(crashTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			run.mu.Lock()
			if run.settled {
				// A cashout holds the round. It closes done after the
				// credit lands, or clears settled so ticking resumes.
				run.mu.Unlock()
				continue
			}
			run.multiplier += crashTickStep
			m := run.multiplier
			crashed := m >= run.round.CrashPoint
			if crashed {
				run.settled = true
			}
			run.mu.Unlock()

			if crashed {
				e.bustCrash(run)
				return
			}
			e.bcast.CrashTick(run.round.ID, m)

		case <-run.done:
			return
		}
	}
}

func (e *Engine) bustCrash(run *crashRun) {
	round := run.round
	round.Status = models.RoundLost
	round.Multiplier = 0
	round.Payout = 0
	round.EndedAt = time.Now().Unix()

	ctx := context.Background()
	if err := e.rounds.Complete(ctx, round); err != nil {
		e.log.WithError(err).WithField("round_id", round.ID).Error("failed to persist busted crash round")
	}

	e.mu.Lock()
	delete(e.live, round.ID)
	e.mu.Unlock()

	e.bcast.CrashBust(round.ID, round.CrashPoint)
}

// CashoutCrash settles a live crash round at its current multiplier.
func (e *Engine) CashoutCrash(ctx context.Context, userID int64, roundID string) (*models.BetResult, error) {
	e.mu.Lock()
	run := e.live[roundID]
	e.mu.Unlock()

	if run == nil {
		round, err := e.rounds.Get(ctx, roundID)
		if err != nil {
			return nil, err
		}
		if round.UserID != userID {
			return nil, ErrNotRoundOwner
		}
		if round.Status == models.RoundActive {
			// Persisted as active with no runner: the process restarted
			// mid-round. Refund the stake and close the round out.
			return e.refundOrphanCrash(ctx, round)
		}
		return nil, ErrRoundNotActive
	}
	if run.round.UserID != userID {
		return nil, ErrNotRoundOwner
	}

	run.mu.Lock()
	if run.settled {
		run.mu.Unlock()
		return nil, ErrRoundNotActive
	}
	run.settled = true
	multiplier := run.multiplier
	run.mu.Unlock()

	round := run.round
	payout := games.Payout(round.Stake, multiplier)

	// The round is finalized only once the credit lands. On failure the
	// settled flag is cleared so a retry, or the runner's bust, can still
	// settle the round; the deterministic win tx id keeps a replay of a
	// credit that did land idempotent.
	res, err := e.ledger.Apply(ctx, winTx(userID, roundID, payout))
	if err != nil || res.Status != ledger.StatusOK {
		run.mu.Lock()
		run.settled = false
		run.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return nil, ledgerReject(res)
	}
	close(run.done)

	round.Status = models.RoundWon
	round.Multiplier = multiplier
	round.Payout = payout
	round.EndedAt = time.Now().Unix()
	if err := e.rounds.Complete(ctx, round); err != nil {
		e.log.WithError(err).WithField("round_id", roundID).Error("failed to persist cashed-out crash round")
	}

	e.mu.Lock()
	delete(e.live, roundID)
	e.mu.Unlock()

	e.bcast.BalanceUpdate(userID, res.Balance)

	return &models.BetResult{
		RoundID:        roundID,
		GameType:       models.GameTypeCrash,
		Value:          multiplier,
		Label:          "multiplier",
		Details:        map[string]any{"crash_point": round.CrashPoint},
		IsWin:          true,
		Multiplier:     multiplier,
		Stake:          round.Stake,
		Payout:         payout,
		Profit:         games.Profit(round.Stake, payout),
		Balance:        res.Balance,
		ServerSeedHash: round.ServerSeedHash,
		ClientSeed:     round.ClientSeed,
		Nonce:          round.Nonce,
	}, nil
}

// refundOrphanCrash closes a crash round that lost its runner: the stake is
// rolled back, the round is completed and the active slot released.
func (e *Engine) refundOrphanCrash(ctx context.Context, round *models.Round) (*models.BetResult, error) {
	res, err := e.ledger.Rollback(ctx, betTxID(round.ID))
	if err != nil {
		return nil, err
	}
	if res.Status != ledger.StatusOK && res.Code != ledger.CodeRollbackNotFound {
		return nil, ledgerReject(res)
	}
	balance := res.Balance
	if res.Status != ledger.StatusOK {
		if balance, err = e.ledger.Balance(ctx, round.UserID); err != nil {
			return nil, err
		}
	}

	round.Status = models.RoundCompleted
	round.Multiplier = 0
	round.Payout = 0
	round.EndedAt = time.Now().Unix()
	if err := e.rounds.Complete(ctx, round); err != nil {
		e.log.WithError(err).WithField("round_id", round.ID).Error("failed to persist refunded crash round")
	}

	e.log.WithField("round_id", round.ID).Info("refunded orphaned crash round")
	e.bcast.BalanceUpdate(round.UserID, balance)

	return &models.BetResult{
		RoundID:        round.ID,
		GameType:       models.GameTypeCrash,
		Value:          0,
		Label:          "multiplier",
		Details:        map[string]any{"refunded": true},
		Stake:          round.Stake,
		Balance:        balance,
		ServerSeedHash: round.ServerSeedHash,
		ClientSeed:     round.ClientSeed,
		Nonce:          round.Nonce,
	}, nil
}

// recoverStaleCrash frees the crash active slot when the round holding it has
// no live runner, reporting whether the slot was cleared.
func (e *Engine) recoverStaleCrash(ctx context.Context, userID int64) bool {
	roundID, err := e.rounds.ActiveRoundID(ctx, userID, models.GameTypeCrash)
	if err != nil || roundID == "" {
		return false
	}

	e.mu.Lock()
	_, running := e.live[roundID]
	e.mu.Unlock()
	if running {
		return false
	}

	round, err := e.rounds.Get(ctx, roundID)
	if errors.Is(err, ErrRoundNotFound) {
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeCrash)
		return true
	}
	if err != nil {
		return false
	}
	if round.Status != models.RoundActive {
		e.rounds.ReleaseActive(ctx, userID, models.GameTypeCrash)
		return true
	}

	if _, err := e.refundOrphanCrash(ctx, round); err != nil {
		e.log.WithError(err).WithField("round_id", roundID).Error("failed to refund orphaned crash round")
		return false
	}
	return true
}
