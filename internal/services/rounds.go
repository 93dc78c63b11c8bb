package services

import (
	"context"
	"errors"
	"time"

	"github.com/sevenbit/faircore/internal/models"
)

const (
	keyRound        = "round:%s"
	keyActiveRound  = "round:active:%d:%s"
	keyRoundHistory = "round:history:%d"
	keyRateLimit    = "ratelimit:%d:%s"

	roundTTL   = 7 * 24 * time.Hour
	historyCap = 100

	RateLimitBets     = 30  // bets per minute
	RateLimitCashouts = 60  // cashouts per minute
	RateLimitReveals  = 120 // mine reveals per minute
)

var ErrRoundNotFound = errors.New("round not found")

// RoundStore persists round state across requests. The active-round slot is
// the single-flight guard for interactive games: TryClaimActive must be
// atomic, so two concurrent bets can never both open a round for the same
// (user, game) pair.
type RoundStore interface {
	Save(ctx context.Context, round *models.Round) error
	Get(ctx context.Context, roundID string) (*models.Round, error)
	Update(ctx context.Context, round *models.Round) error

	// TryClaimActive reserves the active-round slot for (user, game),
	// reporting false when another round already holds it.
	TryClaimActive(ctx context.Context, userID int64, game models.GameType, roundID string) (bool, error)
	ReleaseActive(ctx context.Context, userID int64, game models.GameType) error

	// ActiveRoundID returns the round id holding the active slot for
	// (user, game), or "" when the slot is free.
	ActiveRoundID(ctx context.Context, userID int64, game models.GameType) (string, error)

	// Complete stores the final round state, releases the active slot and
	// appends the round to the user's history.
	Complete(ctx context.Context, round *models.Round) error

	// History returns settled rounds, newest first.
	History(ctx context.Context, userID int64, limit int64) ([]*models.Round, error)
}

// RateLimiter counts actions per user in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error)
}
