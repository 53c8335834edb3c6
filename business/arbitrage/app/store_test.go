package app

import (
	"math/big"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/dexforge/dexcore/business/arbitrage/domain"
	"github.com/dexforge/dexcore/internal/apperror"
)

func testOpportunity() *domain.Opportunity {
	return &domain.Opportunity{
		Kind:           domain.KindCrossDEX,
		Direction:      domain.BuySelfSellExternal,
		NetProfit:      uint256.NewInt(100),
		ProfitAfterGas: big.NewInt(80),
		Confidence:     95,
		CreatedAt:      time.Now(),
	}
}

func TestStoreAssignsMonotonicIDs(t *testing.T) {
	s := NewOpportunityStore()

	first := s.Put(testOpportunity())
	second := s.Put(testOpportunity())

	if first != 1 || second != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", first, second)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestTakeConsumesRecord(t *testing.T) {
	s := NewOpportunityStore()
	id := s.Put(testOpportunity())

	got, err := s.Take(id)
	if err != nil {
		t.Fatalf("Take error = %v", err)
	}
	if got.ID != id {
		t.Errorf("taken ID = %d, want %d", got.ID, id)
	}
	if s.Len() != 0 {
		t.Errorf("Len after Take = %d, want 0", s.Len())
	}

	// A second Take of the same id must fail: records are single-use.
	_, err = s.Take(id)
	if !apperror.IsCode(err, apperror.CodeOpportunityNotFound) {
		t.Errorf("second Take error = %v, want OPPORTUNITY_NOT_FOUND", err)
	}
}

func TestTakeUnknownID(t *testing.T) {
	s := NewOpportunityStore()

	_, err := s.Take(42)
	if !apperror.IsCode(err, apperror.CodeOpportunityNotFound) {
		t.Errorf("error = %v, want OPPORTUNITY_NOT_FOUND", err)
	}
}

func TestAllSnapshots(t *testing.T) {
	s := NewOpportunityStore()
	s.Put(testOpportunity())
	s.Put(testOpportunity())

	if got := len(s.All()); got != 2 {
		t.Errorf("All returned %d records, want 2", got)
	}
}
