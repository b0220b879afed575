package memory

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/storage"
)

// LiquidityEventStore is an in-memory implementation of storage.LiquidityEventStore.
type LiquidityEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LiquidityChange // keyed by composite key
}

// NewLiquidityEventStore creates a new in-memory liquidity event store.
func NewLiquidityEventStore() *LiquidityEventStore {
	return &LiquidityEventStore{
		data: make(map[string]*domain.LiquidityChange),
	}
}

// liquidityEventKey generates a unique key for a liquidity event.
func liquidityEventKey(token, owner domain.Address, blockNumber uint64, logIndex uint32) string {
	return fmt.Sprintf("%s|%s|%d|%d", token, owner, blockNumber, logIndex)
}

// Insert adds a new liquidity event. Returns ErrDuplicateKey if exists.
func (s *LiquidityEventStore) Insert(_ context.Context, e *domain.LiquidityChange) error {
	if e == nil || e.DepositedBalanceChange == nil {
		return storage.ErrInvalidInput
	}

	key := liquidityEventKey(e.Token, e.Owner, e.BlockNumber, e.LogIndex)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = copyLiquidityChange(e)
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *LiquidityEventStore) InsertBulk(_ context.Context, events []*domain.LiquidityChange) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(events))

	for _, e := range events {
		if e == nil || e.DepositedBalanceChange == nil {
			return storage.ErrInvalidInput
		}
		key := liquidityEventKey(e.Token, e.Owner, e.BlockNumber, e.LogIndex)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range events {
		s.data[liquidityEventKey(e.Token, e.Owner, e.BlockNumber, e.LogIndex)] = copyLiquidityChange(e)
	}

	return nil
}

// GetByToken retrieves all events of a token, ordered by block_number ASC, log_index ASC.
func (s *LiquidityEventStore) GetByToken(_ context.Context, token domain.Address) ([]*domain.LiquidityChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LiquidityChange
	for _, e := range s.data {
		if e.Token == token {
			result = append(result, copyLiquidityChange(e))
		}
	}

	sortLiquidityChanges(result)
	return result, nil
}

// GetByBlockRange retrieves events of a token within [start, end] (inclusive).
func (s *LiquidityEventStore) GetByBlockRange(_ context.Context, token domain.Address, start, end uint64) ([]*domain.LiquidityChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LiquidityChange
	for _, e := range s.data {
		if e.Token == token && e.BlockNumber >= start && e.BlockNumber <= end {
			result = append(result, copyLiquidityChange(e))
		}
	}

	sortLiquidityChanges(result)
	return result, nil
}

func sortLiquidityChanges(events []*domain.LiquidityChange) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})
}

func copyLiquidityChange(e *domain.LiquidityChange) *domain.LiquidityChange {
	c := *e
	c.DepositedBalanceChange = new(big.Int).Set(e.DepositedBalanceChange)
	if e.LiquidityChange != nil {
		c.LiquidityChange = new(big.Int).Set(e.LiquidityChange)
	}
	return &c
}

var _ storage.LiquidityEventStore = (*LiquidityEventStore)(nil)
