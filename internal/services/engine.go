package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sevenbit/faircore/internal/config"
	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/games"
	"github.com/sevenbit/faircore/internal/ledger"
	"github.com/sevenbit/faircore/internal/models"
)

var (
	ErrInvalidBet        = errors.New("invalid bet")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletBusy        = errors.New("wallet busy, retry")
	ErrActiveRound       = errors.New("an active round already exists for this game")
	ErrRoundNotActive    = errors.New("round is not active")
	ErrNotRoundOwner     = errors.New("round belongs to another user")
	ErrCellRevealed      = errors.New("cell already revealed")
	ErrNothingRevealed   = errors.New("cashout requires at least one revealed cell")
)

// Engine settles bets: draw, map, price and ledger-apply as one logical unit.
// Dice, limbo and plinko settle within the bet request; crash and mines open
// an interactive round that later requests advance and close.
type Engine struct {
	cfg    *config.Config
	seeds  *fair.Manager
	ledger ledger.Ledger
	rounds RoundStore
	bcast  Broadcaster
	log    *logrus.Logger

	mu   sync.Mutex
	live map[string]*crashRun

	// minesMu serializes the read-modify-write of mines round state.
	minesMu sync.Mutex
}

func NewEngine(cfg *config.Config, seeds *fair.Manager, lg ledger.Ledger, rounds RoundStore, bcast Broadcaster, log *logrus.Logger) *Engine {
	if bcast == nil {
		bcast = NopBroadcaster{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		cfg:    cfg,
		seeds:  seeds,
		ledger: lg,
		rounds: rounds,
		bcast:  bcast,
		log:    log,
		live:   make(map[string]*crashRun),
	}
}

func betTxID(roundID string) string { return "tx_bet_" + roundID }
func winTxID(roundID string) string { return "tx_win_" + roundID }

func betTx(userID int64, roundID string, stake int64) *models.Transaction {
	return &models.Transaction{
		ID:      betTxID(roundID),
		UserID:  userID,
		Type:    models.TransactionTypeBet,
		Amount:  -stake,
		RoundID: roundID,
	}
}

func winTx(userID int64, roundID string, payout int64) *models.Transaction {
	return &models.Transaction{
		ID:      winTxID(roundID),
		UserID:  userID,
		Type:    models.TransactionTypeWin,
		Amount:  payout,
		RoundID: roundID,
	}
}

// ledgerReject maps a structured ledger rejection onto the engine's error set.
func ledgerReject(res ledger.Result) error {
	switch res.Code {
	case ledger.CodeInsufficientFunds:
		return ErrInsufficientFunds
	case ledger.CodeLockTimeout:
		return ErrWalletBusy
	default:
		return fmt.Errorf("ledger rejected transaction: %s", res.Code)
	}
}

func (e *Engine) Balance(ctx context.Context, userID int64) (int64, error) {
	return e.ledger.Balance(ctx, userID)
}

func (e *Engine) PlaceBet(ctx context.Context, userID int64, req *models.BetRequest) (*models.BetResult, error) {
	if err := req.Validate(e.cfg.MinBet, e.cfg.MaxBet); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}

	switch req.GameType {
	case models.GameTypeCrash:
		return e.startCrash(ctx, userID, req)
	case models.GameTypeMines:
		return e.startMines(ctx, userID, req)
	default:
		return e.settleInstant(ctx, userID, req)
	}
}

// settleInstant runs the whole bet lifecycle for single-shot games. The BET
// debit lands first; if anything after it fails, the debit is rolled back so
// a failed bet never costs the player.
func (e *Engine) settleInstant(ctx context.Context, userID int64, req *models.BetRequest) (*models.BetResult, error) {
	pair, err := e.seeds.Draw(ctx, userID)
	if err != nil {
		return nil, err
	}

	roundID := models.NewRoundID()
	res, err := e.ledger.Apply(ctx, betTx(userID, roundID, req.Stake))
	if err != nil {
		return nil, err
	}
	if res.Status != ledger.StatusOK {
		return nil, ledgerReject(res)
	}

	seed, err := pair.SeedBytes()
	if err != nil {
		e.refundBet(ctx, roundID)
		return nil, err
	}

	stream := fair.NewStream(seed, pair.ClientSeed, pair.Nonce)
	out, err := games.Play(stream, req, e.cfg.HouseEdge)
	if err != nil {
		e.refundBet(ctx, roundID)
		return nil, err
	}

	balance := res.Balance
	payout := out.PayoutFor(req.Stake)
	if payout > 0 {
		wres, err := e.ledger.Apply(ctx, winTx(userID, roundID, payout))
		if err != nil {
			e.refundBet(ctx, roundID)
			return nil, err
		}
		if wres.Status != ledger.StatusOK {
			e.refundBet(ctx, roundID)
			return nil, ledgerReject(wres)
		}
		balance = wres.Balance
	}

	status := models.RoundLost
	if out.Win {
		status = models.RoundWon
	}
	now := time.Now().Unix()
	round := &models.Round{
		ID:             roundID,
		UserID:         userID,
		GameType:       req.GameType,
		Stake:          req.Stake,
		Status:         status,
		Multiplier:     out.Multiplier,
		Payout:         payout,
		SeedID:         pair.ID,
		ClientSeed:     pair.ClientSeed,
		ServerSeedHash: pair.ServerSeedHash,
		Nonce:          pair.Nonce,
		CreatedAt:      now,
		EndedAt:        now,
	}
	if err := e.rounds.Complete(ctx, round); err != nil {
		e.log.WithError(err).WithField("round_id", roundID).Error("failed to persist settled round")
	}

	e.bcast.BalanceUpdate(userID, balance)

	return &models.BetResult{
		RoundID:        roundID,
		GameType:       req.GameType,
		Value:          out.Value,
		Label:          out.Label,
		Details:        out.Details,
		IsWin:          out.Win,
		Multiplier:     out.Multiplier,
		Stake:          req.Stake,
		Payout:         payout,
		Profit:         games.Profit(req.Stake, payout),
		Balance:        balance,
		ServerSeedHash: pair.ServerSeedHash,
		ClientSeed:     pair.ClientSeed,
		Nonce:          pair.Nonce,
	}, nil
}

// refundBet undoes the BET debit of a round that failed mid-settlement.
func (e *Engine) refundBet(ctx context.Context, roundID string) {
	if res, err := e.ledger.Rollback(ctx, betTxID(roundID)); err != nil || res.Status != ledger.StatusOK {
		e.log.WithField("round_id", roundID).Error("failed to roll back bet after settlement failure")
	}
}

// SeedInfo is the public verification state of a user's active seed.
type SeedInfo struct {
	SeedID         string `json:"seed_id"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	NextNonce      uint64 `json:"next_nonce"`
}

func seedInfo(pair *fair.SeedPair) *SeedInfo {
	return &SeedInfo{
		SeedID:         pair.ID,
		ServerSeedHash: pair.ServerSeedHash,
		ClientSeed:     pair.ClientSeed,
		NextNonce:      pair.Nonce,
	}
}

func (e *Engine) VerificationData(ctx context.Context, userID int64) (*SeedInfo, error) {
	pair, err := e.seeds.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	return seedInfo(pair), nil
}

// RotateSeeds reveals the user's current server seed and commits a fresh one.
func (e *Engine) RotateSeeds(ctx context.Context, userID int64) (revealed *fair.SeedPair, next *SeedInfo, err error) {
	revealed, nextPair, err := e.seeds.Rotate(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return revealed, seedInfo(nextPair), nil
}

func (e *Engine) SetClientSeed(ctx context.Context, userID int64, clientSeed string) error {
	return e.seeds.SetClientSeed(ctx, userID, clientSeed)
}

func (e *Engine) RoundHistory(ctx context.Context, userID int64, limit int64) ([]*models.Round, error) {
	return e.rounds.History(ctx, userID, limit)
}

func (e *Engine) TransactionHistory(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error) {
	return e.ledger.History(ctx, userID, limit)
}

// VerifyRequest is a replay of one draw from a revealed server seed.
type VerifyRequest struct {
	ServerSeed string          `json:"server_seed" binding:"required"`
	ClientSeed string          `json:"client_seed" binding:"required"`
	Nonce      uint64          `json:"nonce"`
	GameType   models.GameType `json:"game_type" binding:"required"`

	// Mines and plinko replays need the round's shape parameters.
	MineCount int               `json:"mine_count,omitempty"`
	Rows      int               `json:"rows,omitempty"`
	Risk      models.PlinkoRisk `json:"risk,omitempty"`
}

// Verify recomputes the drawn value for a revealed seed so any player can
// check a settled round from first principles.
func (e *Engine) Verify(req *VerifyRequest) (map[string]any, error) {
	seed, err := hex.DecodeString(req.ServerSeed)
	if err != nil {
		return nil, fmt.Errorf("server seed must be hex: %w", err)
	}

	s := fair.NewStream(seed, req.ClientSeed, req.Nonce)
	out := map[string]any{
		"server_seed_hash": fair.Hash(seed),
		"client_seed":      req.ClientSeed,
		"nonce":            req.Nonce,
		"game_type":        req.GameType,
	}

	switch req.GameType {
	case models.GameTypeDice:
		out["roll"] = games.DiceRoll(s)
	case models.GameTypeLimbo:
		out["result"] = games.LimboResult(s.Float64(), e.cfg.HouseEdge)
	case models.GameTypeCrash:
		out["crash_point"] = games.CrashPoint(s, e.cfg.BustChance())
	case models.GameTypeMines:
		if req.MineCount < 1 || req.MineCount > models.MinesGridSize-1 {
			return nil, fmt.Errorf("mine count must be within [1, %d]", models.MinesGridSize-1)
		}
		out["mines"] = games.MineLayout(s, req.MineCount)
	case models.GameTypePlinko:
		if req.Rows < models.PlinkoMinRows || req.Rows > models.PlinkoMaxRows {
			return nil, fmt.Errorf("plinko rows must be within [%d, %d]", models.PlinkoMinRows, models.PlinkoMaxRows)
		}
		bucket, path := games.PlinkoPath(s, req.Rows)
		out["bucket"] = bucket
		out["path"] = path
		if req.Risk != "" {
			table := games.PlinkoTable(req.Risk, req.Rows, e.cfg.HouseEdge)
			out["multiplier"] = table[bucket]
		}
	default:
		return nil, fmt.Errorf("invalid game type: %s", req.GameType)
	}

	return out, nil
}
