package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sevenbit/faircore/internal/models"
)

// MemRoundStore backs tests and single-node runs. Copies in, copies out.
type MemRoundStore struct {
	mu      sync.Mutex
	rounds  map[string]*models.Round
	active  map[string]string
	history map[int64][]string
	windows map[string]*rateWindow
}

type rateWindow struct {
	count int
	reset time.Time
}

func NewMemRoundStore() *MemRoundStore {
	return &MemRoundStore{
		rounds:  make(map[string]*models.Round),
		active:  make(map[string]string),
		history: make(map[int64][]string),
		windows: make(map[string]*rateWindow),
	}
}

func activeKey(userID int64, game models.GameType) string {
	return fmt.Sprintf("%d:%s", userID, game)
}

func (s *MemRoundStore) Save(ctx context.Context, round *models.Round) error {
	cp := *round
	s.mu.Lock()
	s.rounds[round.ID] = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemRoundStore) Get(ctx context.Context, roundID string) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	round, ok := s.rounds[roundID]
	if !ok {
		return nil, ErrRoundNotFound
	}
	cp := *round
	return &cp, nil
}

func (s *MemRoundStore) Update(ctx context.Context, round *models.Round) error {
	return s.Save(ctx, round)
}

func (s *MemRoundStore) TryClaimActive(ctx context.Context, userID int64, game models.GameType, roundID string) (bool, error) {
	key := activeKey(userID, game)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.active[key]; held {
		return false, nil
	}
	s.active[key] = roundID
	return true, nil
}

func (s *MemRoundStore) ActiveRoundID(ctx context.Context, userID int64, game models.GameType) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[activeKey(userID, game)], nil
}

func (s *MemRoundStore) ReleaseActive(ctx context.Context, userID int64, game models.GameType) error {
	s.mu.Lock()
	delete(s.active, activeKey(userID, game))
	s.mu.Unlock()
	return nil
}

func (s *MemRoundStore) Complete(ctx context.Context, round *models.Round) error {
	cp := *round
	s.mu.Lock()
	s.rounds[round.ID] = &cp
	delete(s.active, activeKey(round.UserID, round.GameType))
	s.history[round.UserID] = append(s.history[round.UserID], round.ID)
	s.mu.Unlock()
	return nil
}

func (s *MemRoundStore) History(ctx context.Context, userID int64, limit int64) ([]*models.Round, error) {
	if limit <= 0 || limit > historyCap {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.history[userID]
	out := make([]*models.Round, 0, limit)
	for i := len(ids) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		cp := *s.rounds[ids[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemRoundStore) Allow(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf("%d:%s", userID, action)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.After(w.reset) {
		s.windows[key] = &rateWindow{count: 1, reset: now.Add(window)}
		return true, nil
	}
	w.count++
	return w.count <= limit, nil
}
