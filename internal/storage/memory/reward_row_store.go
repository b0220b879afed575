package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/storage"
)

// RewardRowStore is an in-memory implementation of storage.RewardRowStore.
type RewardRowStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RewardRow // keyed by epoch|token|account
}

// NewRewardRowStore creates a new in-memory reward row store.
func NewRewardRowStore() *RewardRowStore {
	return &RewardRowStore{
		data: make(map[string]*domain.RewardRow),
	}
}

func rewardRowKey(epochID, token, account string) string {
	return fmt.Sprintf("%s|%s|%s", epochID, token, account)
}

// Insert adds a new reward row. Returns ErrDuplicateKey if exists.
func (s *RewardRowStore) Insert(_ context.Context, row *domain.RewardRow) error {
	if row == nil || row.EpochID == "" {
		return storage.ErrInvalidInput
	}

	key := rewardRowKey(row.EpochID, row.Token, row.Account)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	rowCopy := *row
	s.data[key] = &rowCopy
	return nil
}

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *RewardRowStore) InsertBulk(_ context.Context, rows []*domain.RewardRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		if row == nil || row.EpochID == "" {
			return storage.ErrInvalidInput
		}
		key := rewardRowKey(row.EpochID, row.Token, row.Account)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, row := range rows {
		rowCopy := *row
		s.data[rewardRowKey(row.EpochID, row.Token, row.Account)] = &rowCopy
	}

	return nil
}

// GetByEpoch retrieves all rows settled in an epoch, ordered by token then account.
func (s *RewardRowStore) GetByEpoch(_ context.Context, epochID string) ([]*domain.RewardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RewardRow
	for _, row := range s.data {
		if row.EpochID == epochID {
			rowCopy := *row
			result = append(result, &rowCopy)
		}
	}

	sortRewardRows(result)
	return result, nil
}

// GetByAccount retrieves all rows for an account across epochs.
func (s *RewardRowStore) GetByAccount(_ context.Context, account string) ([]*domain.RewardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RewardRow
	for _, row := range s.data {
		if row.Account == account {
			rowCopy := *row
			result = append(result, &rowCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EpochID != result[j].EpochID {
			return result[i].EpochID < result[j].EpochID
		}
		return result[i].Token < result[j].Token
	})
	return result, nil
}

func sortRewardRows(rows []*domain.RewardRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Token != rows[j].Token {
			return rows[i].Token < rows[j].Token
		}
		return rows[i].Account < rows[j].Account
	})
}

var _ storage.RewardRowStore = (*RewardRowStore)(nil)
