package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sevenbit/faircore/internal/models"
)

type RedisRoundStore struct {
	client *redis.Client
}

func NewRedisRoundStore(client *redis.Client) *RedisRoundStore {
	return &RedisRoundStore{client: client}
}

func (s *RedisRoundStore) Save(ctx context.Context, round *models.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}
	return s.client.Set(ctx, fmt.Sprintf(keyRound, round.ID), data, roundTTL).Err()
}

func (s *RedisRoundStore) Get(ctx context.Context, roundID string) (*models.Round, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(keyRound, roundID)).Result()
	if err == redis.Nil {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	var round models.Round
	if err := json.Unmarshal([]byte(data), &round); err != nil {
		return nil, fmt.Errorf("corrupt round record: %w", err)
	}
	return &round, nil
}

func (s *RedisRoundStore) Update(ctx context.Context, round *models.Round) error {
	return s.Save(ctx, round)
}

func (s *RedisRoundStore) TryClaimActive(ctx context.Context, userID int64, game models.GameType, roundID string) (bool, error) {
	key := fmt.Sprintf(keyActiveRound, userID, game)
	ok, err := s.client.SetNX(ctx, key, roundID, roundTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim active round: %w", err)
	}
	return ok, nil
}

func (s *RedisRoundStore) ActiveRoundID(ctx context.Context, userID int64, game models.GameType) (string, error) {
	id, err := s.client.Get(ctx, fmt.Sprintf(keyActiveRound, userID, game)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read active round: %w", err)
	}
	return id, nil
}

func (s *RedisRoundStore) ReleaseActive(ctx context.Context, userID int64, game models.GameType) error {
	return s.client.Del(ctx, fmt.Sprintf(keyActiveRound, userID, game)).Err()
}

func (s *RedisRoundStore) Complete(ctx context.Context, round *models.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	historyKey := fmt.Sprintf(keyRoundHistory, round.UserID)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(keyRound, round.ID), data, roundTTL)
	pipe.Del(ctx, fmt.Sprintf(keyActiveRound, round.UserID, round.GameType))
	pipe.ZAdd(ctx, historyKey, redis.Z{Score: float64(round.EndedAt), Member: round.ID})
	pipe.ZRemRangeByRank(ctx, historyKey, 0, -(historyCap + 1))
	pipe.Expire(ctx, historyKey, roundTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to complete round: %w", err)
	}
	return nil
}

func (s *RedisRoundStore) History(ctx context.Context, userID int64, limit int64) ([]*models.Round, error) {
	if limit <= 0 || limit > historyCap {
		limit = 50
	}

	ids, err := s.client.ZRevRange(ctx, fmt.Sprintf(keyRoundHistory, userID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get round ids: %w", err)
	}

	out := make([]*models.Round, 0, len(ids))
	for _, id := range ids {
		round, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, round)
	}
	return out, nil
}

// Allow counts one action against a fixed per-user window via INCR; the first
// hit arms the window's expiry.
func (s *RedisRoundStore) Allow(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(keyRateLimit, userID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count == 1 {
		s.client.Expire(ctx, key, window)
	}
	return count <= int64(limit), nil
}
