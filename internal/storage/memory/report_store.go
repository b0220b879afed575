package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/storage"
)

// ReportStore is an in-memory implementation of storage.ReportStore.
type ReportStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Report // keyed by reporter|cheater
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		data: make(map[string]*domain.Report),
	}
}

func reportKey(reporter, cheater domain.Address) string {
	return fmt.Sprintf("%s|%s", reporter, cheater)
}

// Insert adds a new report. Returns ErrDuplicateKey if (reporter, cheater) exists.
func (s *ReportStore) Insert(_ context.Context, r *domain.Report) error {
	if r == nil {
		return storage.ErrInvalidInput
	}

	key := reportKey(r.Reporter, r.Cheater)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	reportCopy := *r
	s.data[key] = &reportCopy
	return nil
}

// InsertBulk adds multiple reports atomically. Fails entire batch on any duplicate.
func (s *ReportStore) InsertBulk(_ context.Context, reports []*domain.Report) error {
	if len(reports) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(reports))

	for _, r := range reports {
		if r == nil {
			return storage.ErrInvalidInput
		}
		key := reportKey(r.Reporter, r.Cheater)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range reports {
		reportCopy := *r
		s.data[reportKey(r.Reporter, r.Cheater)] = &reportCopy
	}

	return nil
}

// GetAll retrieves every report, ordered by reporter then cheater.
func (s *ReportStore) GetAll(_ context.Context) ([]*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Report, 0, len(s.data))
	for _, r := range s.data {
		reportCopy := *r
		result = append(result, &reportCopy)
	}

	sortReports(result)
	return result, nil
}

// GetByCheater retrieves all reports filed against an address.
func (s *ReportStore) GetByCheater(_ context.Context, cheater domain.Address) ([]*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Report
	for _, r := range s.data {
		if r.Cheater == cheater {
			reportCopy := *r
			result = append(result, &reportCopy)
		}
	}

	sortReports(result)
	return result, nil
}

func sortReports(reports []*domain.Report) {
	sort.Slice(reports, func(i, j int) bool {
		if c := bytes.Compare(reports[i].Reporter[:], reports[j].Reporter[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(reports[i].Cheater[:], reports[j].Cheater[:]) < 0
	})
}

var _ storage.ReportStore = (*ReportStore)(nil)
