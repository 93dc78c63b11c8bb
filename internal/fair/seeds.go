package fair

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrSeedExhausted means the nonce space of the active seed is used up;
	// the round fails and the seed must be rotated.
	ErrSeedExhausted = errors.New("server seed nonce space exhausted")

	ErrSeedNotFound = errors.New("seed not found")

	// ErrSeedNotRevealed guards against handing out a seed that is still
	// committed: a rotated-but-unrevealed seed is data corruption.
	ErrSeedNotRevealed = errors.New("seed not yet revealed")

	ErrBadClientSeed = errors.New("client seed must be 1..64 characters")
)

// SeedPair is the commit-reveal state for one user: the secret server seed,
// its published hash, the user-controlled client seed and the strictly
// increasing nonce.
type SeedPair struct {
	ID             string `json:"id" redis:"id"`
	UserID         int64  `json:"user_id" redis:"user_id"`
	ServerSeed     string `json:"server_seed" redis:"server_seed"` // hex, secret until revealed
	ServerSeedHash string `json:"server_seed_hash" redis:"server_seed_hash"`
	ClientSeed     string `json:"client_seed" redis:"client_seed"`
	Nonce          uint64 `json:"nonce" redis:"nonce"`
	Revealed       bool   `json:"revealed" redis:"revealed"`
	CreatedAt      int64  `json:"created_at" redis:"created_at"`
	RevealedAt     int64  `json:"revealed_at,omitempty" redis:"revealed_at"`
}

// SeedBytes decodes the secret server seed for use as an HMAC key.
func (p *SeedPair) SeedBytes() ([]byte, error) {
	b, err := hex.DecodeString(p.ServerSeed)
	if err != nil {
		return nil, fmt.Errorf("corrupt server seed: %w", err)
	}
	return b, nil
}

// Store owns per-user seed state. NextNonce must be a single atomic increment
// per (user, seed), globally ordered, so two concurrent draws can never
// observe the same nonce.
type Store interface {
	// Active returns the user's current seed pair, or ErrSeedNotFound.
	Active(ctx context.Context, userID int64) (*SeedPair, error)
	// Create installs a fresh seed pair as the user's active one.
	Create(ctx context.Context, pair *SeedPair) error
	// NextNonce atomically allocates the next nonce for the given seed,
	// starting at 0.
	NextNonce(ctx context.Context, userID int64, seedID string) (uint64, error)
	// Retire marks the active seed revealed, detaches it and returns it.
	Retire(ctx context.Context, userID int64) (*SeedPair, error)
	// SetClientSeed replaces the client seed on the active pair.
	SetClientSeed(ctx context.Context, userID int64, clientSeed string) error
	// Find returns a seed pair by its id, active or retired.
	Find(ctx context.Context, seedID string) (*SeedPair, error)
}

// Manager drives the commit-reveal lifecycle on top of a Store.
type Manager struct {
	store    Store
	maxNonce uint64

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewManager(store Store, maxNonce uint64) *Manager {
	return &Manager{store: store, maxNonce: maxNonce, locks: make(map[int64]*sync.Mutex)}
}

// lockUser serializes seed lifecycle operations for one user. Rotation swaps
// the active pair in two store steps; a draw landing between them would pin
// its bet to a pair that no store record will ever reveal.
func (m *Manager) lockUser(userID int64) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Hash is the public commitment of a server seed.
func Hash(serverSeed []byte) string {
	sum := sha256.Sum256(serverSeed)
	return hex.EncodeToString(sum[:])
}

func generateServerSeed() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate server seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func newSeedPair(userID int64, clientSeed string) (*SeedPair, error) {
	seed, err := generateServerSeed()
	if err != nil {
		return nil, err
	}
	raw, _ := hex.DecodeString(seed)
	return &SeedPair{
		ID:             hex.EncodeToString(raw[:8]) + fmt.Sprintf("-%d", time.Now().UnixNano()),
		UserID:         userID,
		ServerSeed:     seed,
		ServerSeedHash: Hash(raw),
		ClientSeed:     clientSeed,
		CreatedAt:      time.Now().Unix(),
	}, nil
}

// Active returns the user's current seed pair, committing a fresh one on
// first use.
func (m *Manager) Active(ctx context.Context, userID int64) (*SeedPair, error) {
	unlock := m.lockUser(userID)
	defer unlock()
	return m.activeLocked(ctx, userID)
}

func (m *Manager) activeLocked(ctx context.Context, userID int64) (*SeedPair, error) {
	pair, err := m.store.Active(ctx, userID)
	if err == nil {
		return pair, nil
	}
	if !errors.Is(err, ErrSeedNotFound) {
		return nil, err
	}

	clientSeed, err := randomClientSeed()
	if err != nil {
		return nil, err
	}
	pair, err = newSeedPair(userID, clientSeed)
	if err != nil {
		return nil, err
	}
	if err := m.store.Create(ctx, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

func randomClientSeed() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate client seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Draw allocates a nonce against the user's active seed and returns both.
// The pair's Nonce field is set to the allocated value.
func (m *Manager) Draw(ctx context.Context, userID int64) (*SeedPair, error) {
	unlock := m.lockUser(userID)
	defer unlock()

	pair, err := m.activeLocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	nonce, err := m.store.NextNonce(ctx, userID, pair.ID)
	if err != nil {
		return nil, err
	}
	if nonce >= m.maxNonce {
		return nil, ErrSeedExhausted
	}
	pair.Nonce = nonce
	return pair, nil
}

// Rotate reveals the current seed and commits a fresh one. The revealed pair
// lets clients recompute every draw made under it; the new pair's hash is the
// commitment for all bets that follow.
func (m *Manager) Rotate(ctx context.Context, userID int64) (revealed, next *SeedPair, err error) {
	unlock := m.lockUser(userID)
	defer unlock()

	revealed, err = m.store.Retire(ctx, userID)
	if err != nil && !errors.Is(err, ErrSeedNotFound) {
		return nil, nil, err
	}

	clientSeed := ""
	if revealed != nil {
		clientSeed = revealed.ClientSeed
	} else if clientSeed, err = randomClientSeed(); err != nil {
		return nil, nil, err
	}

	next, err = newSeedPair(userID, clientSeed)
	if err != nil {
		return nil, nil, err
	}
	if err := m.store.Create(ctx, next); err != nil {
		return nil, nil, err
	}
	return revealed, next, nil
}

// SetClientSeed replaces the client seed on the user's active pair.
func (m *Manager) SetClientSeed(ctx context.Context, userID int64, clientSeed string) error {
	if clientSeed == "" || len(clientSeed) > 64 {
		return ErrBadClientSeed
	}

	unlock := m.lockUser(userID)
	defer unlock()

	if _, err := m.activeLocked(ctx, userID); err != nil {
		return err
	}
	return m.store.SetClientSeed(ctx, userID, clientSeed)
}

// Reveal returns a retired seed pair. Still-active seeds are withheld: the
// commitment only proves anything if the secret stays secret until rotation.
func (m *Manager) Reveal(ctx context.Context, seedID string) (*SeedPair, error) {
	pair, err := m.store.Find(ctx, seedID)
	if err != nil {
		return nil, err
	}
	if !pair.Revealed {
		return nil, ErrSeedNotRevealed
	}
	return pair, nil
}
