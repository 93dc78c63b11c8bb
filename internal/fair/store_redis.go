package fair

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keySeedActive = "seed:active:%d"
	keySeedPair   = "seed:pair:%s"
	keySeedNonce  = "seed:nonce:%d:%s"
)

// RedisStore persists seed state in Redis. Nonce allocation is a plain INCR,
// which gives the single atomic, globally ordered increment the draw path
// relies on.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Active(ctx context.Context, userID int64) (*SeedPair, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(keySeedActive, userID)).Result()
	if err == redis.Nil {
		return nil, ErrSeedNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active seed: %w", err)
	}

	var pair SeedPair
	if err := json.Unmarshal([]byte(data), &pair); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed pair: %w", err)
	}

	// The pair JSON is written once at creation; the live nonce counter is
	// authoritative.
	n, err := s.client.Get(ctx, fmt.Sprintf(keySeedNonce, userID, pair.ID)).Uint64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get nonce counter: %w", err)
	}
	pair.Nonce = n
	return &pair, nil
}

func (s *RedisStore) Create(ctx context.Context, pair *SeedPair) error {
	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal seed pair: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(keySeedActive, pair.UserID), data, 0)
	pipe.Set(ctx, fmt.Sprintf(keySeedPair, pair.ID), data, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store seed pair: %w", err)
	}
	return nil
}

func (s *RedisStore) NextNonce(ctx context.Context, userID int64, seedID string) (uint64, error) {
	n, err := s.client.Incr(ctx, fmt.Sprintf(keySeedNonce, userID, seedID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate nonce: %w", err)
	}
	return uint64(n - 1), nil
}

func (s *RedisStore) Retire(ctx context.Context, userID int64) (*SeedPair, error) {
	pair, err := s.Active(ctx, userID)
	if err != nil {
		return nil, err
	}

	pair.Revealed = true
	pair.RevealedAt = time.Now().Unix()
	data, err := json.Marshal(pair)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal seed pair: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(keySeedActive, userID))
	pipe.Set(ctx, fmt.Sprintf(keySeedPair, pair.ID), data, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to retire seed pair: %w", err)
	}
	return pair, nil
}

func (s *RedisStore) SetClientSeed(ctx context.Context, userID int64, clientSeed string) error {
	pair, err := s.Active(ctx, userID)
	if err != nil {
		return err
	}
	pair.ClientSeed = clientSeed

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to marshal seed pair: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(keySeedActive, userID), data, 0)
	pipe.Set(ctx, fmt.Sprintf(keySeedPair, pair.ID), data, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update client seed: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, seedID string) (*SeedPair, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(keySeedPair, seedID)).Result()
	if err == redis.Nil {
		return nil, ErrSeedNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find seed pair: %w", err)
	}

	var pair SeedPair
	if err := json.Unmarshal([]byte(data), &pair); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed pair: %w", err)
	}
	return &pair, nil
}
