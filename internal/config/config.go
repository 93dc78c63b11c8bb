package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the service reads from the environment. House-edge
// and bet-limit values come from the operator config store and are read once
// at startup; bets snapshot them per request.
type Config struct {
	Env  string `envconfig:"ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8080"`

	RedisURL  string `envconfig:"REDIS_URL" default:"localhost:6379"`
	RedisPass string `envconfig:"REDIS_PASS" default:""`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`

	// HouseEdge is the fraction of total stake retained in expectation,
	// shared by every game formula. RTP = 1 - HouseEdge.
	HouseEdge float64 `envconfig:"HOUSE_EDGE" default:"0.04"`

	// InstantBustChance is the fixed-probability floor of the crash game and
	// the sole carrier of its house edge. Zero means "use HouseEdge".
	InstantBustChance float64 `envconfig:"INSTANT_BUST_CHANCE" default:"0"`

	// Bet limits in minor units (cents).
	MinBet int64 `envconfig:"MIN_BET" default:"1"`
	MaxBet int64 `envconfig:"MAX_BET" default:"1000000"`

	// StartingBalance seeds a wallet on first touch, in minor units.
	StartingBalance int64 `envconfig:"STARTING_BALANCE" default:"10000"`

	// MaxNonce bounds the nonce space of a single server seed; reaching it
	// forces rotation.
	MaxNonce uint64 `envconfig:"MAX_NONCE" default:"1000000"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HouseEdge < 0 || c.HouseEdge > 0.20 {
		return fmt.Errorf("house edge must be within [0, 0.20], got %v", c.HouseEdge)
	}
	if c.InstantBustChance < 0 || c.InstantBustChance > 0.20 {
		return fmt.Errorf("instant bust chance must be within [0, 0.20], got %v", c.InstantBustChance)
	}
	if c.MinBet < 1 {
		return fmt.Errorf("min bet must be at least 1 minor unit")
	}
	if c.MaxBet < c.MinBet {
		return fmt.Errorf("max bet %d below min bet %d", c.MaxBet, c.MinBet)
	}
	if c.MaxNonce == 0 {
		return fmt.Errorf("max nonce must be positive")
	}
	return nil
}

// BustChance returns the effective instant-bust probability for crash.
func (c *Config) BustChance() float64 {
	if c.InstantBustChance > 0 {
		return c.InstantBustChance
	}
	return c.HouseEdge
}
