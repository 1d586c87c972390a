package memory

import (
	"context"
	"sync"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// SelectionStore is an in-memory implementation of storage.SelectionStore.
type SelectionStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.Selection
	order []string // insertion order
}

// NewSelectionStore creates a new in-memory selection store.
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{
		data: make(map[string]*domain.Selection),
	}
}

// Insert adds a selection. Returns ErrDuplicateKey if run_id exists.
func (s *SelectionStore) Insert(_ context.Context, sel *domain.Selection) error {
	if sel == nil || sel.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sel.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *sel
	s.data[sel.RunID] = &copy
	s.order = append(s.order, sel.RunID)
	return nil
}

// Get retrieves a selection by run ID. Returns ErrNotFound if not exists.
func (s *SelectionStore) Get(_ context.Context, runID string) (*domain.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sel, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *sel
	return &copy, nil
}

// Latest retrieves the most recently created selection. Returns ErrNotFound if none.
// Ties on CreatedAt resolve to the later insert.
func (s *SelectionStore) Latest(_ context.Context) (*domain.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Selection
	for _, id := range s.order {
		sel := s.data[id]
		if latest == nil || sel.CreatedAt >= latest.CreatedAt {
			latest = sel
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	copy := *latest
	return &copy, nil
}

var _ storage.SelectionStore = (*SelectionStore)(nil)
