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

// TransferStore is an in-memory implementation of storage.TransferStore.
type TransferStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Transfer // keyed by composite key
}

// NewTransferStore creates a new in-memory transfer store.
func NewTransferStore() *TransferStore {
	return &TransferStore{
		data: make(map[string]*domain.Transfer),
	}
}

// transferKey generates a unique key for a transfer.
func transferKey(token domain.Address, blockNumber uint64, logIndex uint32) string {
	return fmt.Sprintf("%s|%d|%d", token, blockNumber, logIndex)
}

// Insert adds a new transfer. Returns ErrDuplicateKey if exists.
func (s *TransferStore) Insert(_ context.Context, t *domain.Transfer) error {
	if t == nil || t.Value == nil {
		return storage.ErrInvalidInput
	}

	key := transferKey(t.Token, t.BlockNumber, t.LogIndex)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = copyTransfer(t)
	return nil
}

// InsertBulk adds multiple transfers atomically. Fails entire batch on any duplicate.
func (s *TransferStore) InsertBulk(_ context.Context, transfers []*domain.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(transfers))

	for _, t := range transfers {
		if t == nil || t.Value == nil {
			return storage.ErrInvalidInput
		}
		key := transferKey(t.Token, t.BlockNumber, t.LogIndex)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, t := range transfers {
		s.data[transferKey(t.Token, t.BlockNumber, t.LogIndex)] = copyTransfer(t)
	}

	return nil
}

// GetByToken retrieves all transfers of a token, ordered by block_number ASC, log_index ASC.
func (s *TransferStore) GetByToken(_ context.Context, token domain.Address) ([]*domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transfer
	for _, t := range s.data {
		if t.Token == token {
			result = append(result, copyTransfer(t))
		}
	}

	sortTransfers(result)
	return result, nil
}

// GetByBlockRange retrieves transfers of a token within [start, end] (inclusive).
func (s *TransferStore) GetByBlockRange(_ context.Context, token domain.Address, start, end uint64) ([]*domain.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transfer
	for _, t := range s.data {
		if t.Token == token && t.BlockNumber >= start && t.BlockNumber <= end {
			result = append(result, copyTransfer(t))
		}
	}

	sortTransfers(result)
	return result, nil
}

func sortTransfers(transfers []*domain.Transfer) {
	sort.Slice(transfers, func(i, j int) bool {
		if transfers[i].BlockNumber != transfers[j].BlockNumber {
			return transfers[i].BlockNumber < transfers[j].BlockNumber
		}
		return transfers[i].LogIndex < transfers[j].LogIndex
	})
}

func copyTransfer(t *domain.Transfer) *domain.Transfer {
	c := *t
	c.Value = new(big.Int).Set(t.Value)
	return &c
}

var _ storage.TransferStore = (*TransferStore)(nil)
