package memory

import (
	"context"
	"errors"
	"testing"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/storage"
)

var (
	reporterA = domain.MustAddress("0x0000000000000000000000000000000000000011")
	reporterB = domain.MustAddress("0x0000000000000000000000000000000000000012")
	cheaterC  = domain.MustAddress("0x0000000000000000000000000000000000000021")
	cheaterD  = domain.MustAddress("0x0000000000000000000000000000000000000022")
)

func TestReportStore_InsertAndGetAll(t *testing.T) {
	store := NewReportStore()
	ctx := context.Background()

	reports := []*domain.Report{
		{Reporter: reporterB, Cheater: cheaterC},
		{Reporter: reporterA, Cheater: cheaterD},
		{Reporter: reporterA, Cheater: cheaterC},
	}
	if err := store.InsertBulk(ctx, reports); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 reports, got %d", len(result))
	}

	// Ordered by reporter then cheater.
	if result[0].Reporter != reporterA || result[0].Cheater != cheaterC {
		t.Errorf("Unexpected first report: %s -> %s", result[0].Reporter, result[0].Cheater)
	}
	if result[2].Reporter != reporterB {
		t.Errorf("Unexpected last reporter: %s", result[2].Reporter)
	}
}

func TestReportStore_DuplicatePairRejected(t *testing.T) {
	store := NewReportStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.Report{Reporter: reporterA, Cheater: cheaterC}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, &domain.Report{Reporter: reporterA, Cheater: cheaterC})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Same reporter against a different cheater is a distinct report.
	if err := store.Insert(ctx, &domain.Report{Reporter: reporterA, Cheater: cheaterD}); err != nil {
		t.Errorf("Distinct pair must insert: %v", err)
	}
}

func TestReportStore_GetByCheater(t *testing.T) {
	store := NewReportStore()
	ctx := context.Background()

	reports := []*domain.Report{
		{Reporter: reporterA, Cheater: cheaterC},
		{Reporter: reporterB, Cheater: cheaterC},
		{Reporter: reporterA, Cheater: cheaterD},
	}
	if err := store.InsertBulk(ctx, reports); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByCheater(ctx, cheaterC)
	if err != nil {
		t.Fatalf("GetByCheater failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 reports against cheater, got %d", len(result))
	}
}

func TestReportStore_InvalidInput(t *testing.T) {
	store := NewReportStore()

	if err := store.Insert(context.Background(), nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
}
