package app

import (
	"sync"

	"github.com/dexforge/dexcore/business/arbitrage/domain"
	"github.com/dexforge/dexcore/internal/apperror"
)

// OpportunityStore holds detected opportunities between scan and execution.
// Records are single-use: Take removes the record so no opportunity can be
// executed twice.
type OpportunityStore struct {
	mu     sync.Mutex
	nextID uint64
	items  map[uint64]*domain.Opportunity
}

// NewOpportunityStore creates an empty store.
func NewOpportunityStore() *OpportunityStore {
	return &OpportunityStore{
		nextID: 1,
		items:  make(map[uint64]*domain.Opportunity),
	}
}

// Put assigns an ID and stores the opportunity.
func (s *OpportunityStore) Put(o *domain.Opportunity) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.ID = s.nextID
	s.nextID++
	s.items[o.ID] = o
	return o.ID
}

// Take removes and returns the opportunity. After Take the record is gone
// regardless of how execution ends.
func (s *OpportunityStore) Take(id uint64) (*domain.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.items[id]
	if !ok {
		return nil, apperror.New(apperror.CodeOpportunityNotFound,
			apperror.WithContextf("opportunity %d", id))
	}
	delete(s.items, id)
	return o, nil
}

// All returns a snapshot of pending opportunities.
func (s *OpportunityStore) All() []*domain.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Opportunity, 0, len(s.items))
	for _, o := range s.items {
		out = append(out, o)
	}
	return out
}

// Len returns the number of pending opportunities.
func (s *OpportunityStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
