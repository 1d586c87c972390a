package memory

import (
	"context"
	"sort"
	"sync"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// ResultStore is an in-memory implementation of storage.ResultStore.
type ResultStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.StrategyResult // run_id -> key -> result
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		data: make(map[string]map[string]*domain.StrategyResult),
	}
}

// Insert adds a result. Returns ErrDuplicateKey if (run_id, key) exists.
func (s *ResultStore) Insert(_ context.Context, runID string, r *domain.StrategyResult) error {
	if runID == "" || r == nil || r.Key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.data[runID]
	if !ok {
		run = make(map[string]*domain.StrategyResult)
		s.data[runID] = run
	}
	if _, exists := run[r.Key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *r
	copy.Trades = nil
	run[r.Key] = &copy
	return nil
}

// Get retrieves one result. Returns ErrNotFound if not exists.
func (s *ResultStore) Get(_ context.Context, runID, key string) (*domain.StrategyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[runID][key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *r
	return &copy, nil
}

// GetByRun retrieves all results of a run, ordered by key.
func (s *ResultStore) GetByRun(_ context.Context, runID string) ([]*domain.StrategyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StrategyResult
	for _, r := range s.data[runID] {
		copy := *r
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result, nil
}

var _ storage.ResultStore = (*ResultStore)(nil)
