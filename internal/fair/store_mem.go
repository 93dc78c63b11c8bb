package fair

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemStore keeps seed state in memory. It backs tests and single-process
// deployments; Redis is the production store.
type MemStore struct {
	mu      sync.Mutex
	active  map[int64]*SeedPair
	retired map[string]*SeedPair
	nonces  map[string]uint64
}

func NewMemStore() *MemStore {
	return &MemStore{
		active:  make(map[int64]*SeedPair),
		retired: make(map[string]*SeedPair),
		nonces:  make(map[string]uint64),
	}
}

func (s *MemStore) Active(ctx context.Context, userID int64) (*SeedPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair, ok := s.active[userID]
	if !ok {
		return nil, ErrSeedNotFound
	}
	cp := *pair
	return &cp, nil
}

func (s *MemStore) Create(ctx context.Context, pair *SeedPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pair
	s.active[pair.UserID] = &cp
	return nil
}

func (s *MemStore) NextNonce(ctx context.Context, userID int64, seedID string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%d:%s", userID, seedID)
	n := s.nonces[key]
	s.nonces[key] = n + 1
	if pair, ok := s.active[userID]; ok && pair.ID == seedID {
		pair.Nonce = n + 1
	}
	return n, nil
}

func (s *MemStore) Retire(ctx context.Context, userID int64) (*SeedPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair, ok := s.active[userID]
	if !ok {
		return nil, ErrSeedNotFound
	}
	delete(s.active, userID)
	pair.Revealed = true
	pair.RevealedAt = time.Now().Unix()
	s.retired[pair.ID] = pair
	cp := *pair
	return &cp, nil
}

func (s *MemStore) SetClientSeed(ctx context.Context, userID int64, clientSeed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair, ok := s.active[userID]
	if !ok {
		return ErrSeedNotFound
	}
	pair.ClientSeed = clientSeed
	return nil
}

func (s *MemStore) Find(ctx context.Context, seedID string) (*SeedPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pair, ok := s.retired[seedID]; ok {
		cp := *pair
		return &cp, nil
	}
	for _, pair := range s.active {
		if pair.ID == seedID {
			cp := *pair
			return &cp, nil
		}
	}
	return nil, ErrSeedNotFound
}
