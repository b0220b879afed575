// Package settlement provides end-to-end settlement orchestration.
// It coordinates: event loading → ledger replay → range correction →
// eligibility → allocation
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sort"

	"token-reward-lab/internal/allocation"
	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/eligibility"
	"token-reward-lab/internal/ledger"
	"token-reward-lab/internal/liquidity"
	"token-reward-lab/internal/oracle"
	"token-reward-lab/internal/storage"
)

// ErrNoSnapshots is returned when the runner is configured without snapshot
// boundaries.
var ErrNoSnapshots = errors.New("no snapshot blocks configured")

// Runner coordinates one settlement run over a closed epoch.
// Flow: load events → replay in block order → range corrections →
// eligibility summaries → pool allocation.
type Runner struct {
	// Stores
	transferStore       storage.TransferStore
	liquidityEventStore storage.LiquidityEventStore
	reportStore         storage.ReportStore

	// Collaborators
	approver ledger.SourceApprover
	oracle   oracle.TickOracle

	// Round parameters
	tokens         []domain.Address
	snapshotBlocks []uint64
	rewardPool     *big.Int
	pools          []domain.Address

	verbose bool
}

// Options for creating Runner.
type Options struct {
	// Required stores
	TransferStore       storage.TransferStore
	LiquidityEventStore storage.LiquidityEventStore
	ReportStore         storage.ReportStore

	// Source approval and V3 tick lookups
	Approver ledger.SourceApprover
	Oracle   oracle.TickOracle

	// Round parameters
	Tokens         []domain.Address
	SnapshotBlocks []uint64
	RewardPool     *big.Int

	// Pools restricts range-correction tick queries to the listed pools.
	// Empty means every pool observed in position events.
	Pools []domain.Address

	Verbose bool
}

// New creates a new Runner.
func New(opts Options) *Runner {
	return &Runner{
		transferStore:       opts.TransferStore,
		liquidityEventStore: opts.LiquidityEventStore,
		reportStore:         opts.ReportStore,
		approver:            opts.Approver,
		oracle:              opts.Oracle,
		tokens:              opts.Tokens,
		snapshotBlocks:      opts.SnapshotBlocks,
		rewardPool:          opts.RewardPool,
		pools:               opts.Pools,
		verbose:             opts.Verbose,
	}
}

// RunResult contains results from one settlement run.
type RunResult struct {
	Ledger    *ledger.Ledger
	Summaries map[domain.Address]map[domain.Address]*domain.TokenBalanceSummary
	Rewards   *allocation.Result

	TransfersApplied int
	LiquidityApplied int
	ReportsApplied   int
}

// Run executes the full settlement pipeline.
// Phases:
//  1. Load transfer and liquidity events for every eligible token
//  2. Replay the merged stream in ascending block order
//  3. Apply out-of-range corrections at each snapshot boundary
//  4. Compute eligibility summaries, netting penalties and bounties
//  5. Allocate the reward pool
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if len(r.snapshotBlocks) == 0 {
		return nil, ErrNoSnapshots
	}

	result := &RunResult{}

	// Phase 1: Load events
	r.log("Phase 1: Loading events for %d tokens...", len(r.tokens))
	transfers, events, err := r.loadEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load events) failed: %w", err)
	}
	result.TransfersApplied = len(transfers)
	result.LiquidityApplied = len(events)
	r.log("  Loaded %d transfers, %d liquidity events", len(transfers), len(events))

	// Phase 2: Replay
	r.log("Phase 2: Replaying events...")
	l := ledger.New(r.tokens, r.snapshotBlocks, r.approver)
	tracker := liquidity.NewTracker(l, r.oracle, liquidity.WithPoolScope(r.pools))
	r.replay(ctx, l, tracker, transfers, events)
	result.Ledger = l
	r.log("  Replayed onto %d accounts", len(l.Accounts()))

	// Phase 3: Range corrections
	r.log("Phase 3: Applying range corrections...")
	if err := tracker.ApplyRangeCorrections(ctx); err != nil {
		return nil, fmt.Errorf("phase 3 (range corrections) failed: %w", err)
	}

	// Phase 4: Eligibility
	r.log("Phase 4: Computing eligibility...")
	reports, err := r.loadReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 4 (load reports) failed: %w", err)
	}
	result.ReportsApplied = len(reports)
	result.Summaries = eligibility.Compute(l, reports)
	r.log("  Summarized %d tokens, %d reports", len(result.Summaries), len(reports))

	// Phase 5: Allocation
	r.log("Phase 5: Allocating reward pool...")
	result.Rewards = allocation.Allocate(r.rewardPool, result.Summaries)
	r.log("  Distributed %s of %s", result.Rewards.TotalDistributed(), r.rewardPool)

	return result, nil
}

// loadEvents fetches all transfers and liquidity events for the configured
// tokens, each sorted by block then log index.
func (r *Runner) loadEvents(ctx context.Context) ([]*domain.Transfer, []*domain.LiquidityChange, error) {
	var transfers []*domain.Transfer
	var events []*domain.LiquidityChange

	for _, token := range r.tokens {
		ts, err := r.transferStore.GetByToken(ctx, token)
		if err != nil {
			return nil, nil, fmt.Errorf("load transfers for %s: %w", token, err)
		}
		transfers = append(transfers, ts...)

		es, err := r.liquidityEventStore.GetByToken(ctx, token)
		if err != nil {
			return nil, nil, fmt.Errorf("load liquidity events for %s: %w", token, err)
		}
		events = append(events, es...)
	}

	// Per-token results are already ordered; the cross-token merge is not.
	sort.SliceStable(transfers, func(i, j int) bool {
		if transfers[i].BlockNumber != transfers[j].BlockNumber {
			return transfers[i].BlockNumber < transfers[j].BlockNumber
		}
		return transfers[i].LogIndex < transfers[j].LogIndex
	})
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber < events[j].BlockNumber
		}
		return events[i].LogIndex < events[j].LogIndex
	})

	return transfers, events, nil
}

// replay applies the merged event stream in ascending block order. At equal
// block numbers transfers apply before liquidity changes.
func (r *Runner) replay(ctx context.Context, l *ledger.Ledger, tracker *liquidity.Tracker, transfers []*domain.Transfer, events []*domain.LiquidityChange) {
	ti, li := 0, 0
	for ti < len(transfers) || li < len(events) {
		if li >= len(events) ||
			(ti < len(transfers) && transfers[ti].BlockNumber <= events[li].BlockNumber) {
			l.ApplyTransfer(ctx, transfers[ti])
			ti++
			continue
		}
		tracker.ApplyLiquidityChange(ctx, events[li])
		li++
	}
}

// loadReports fetches all cheating reports.
func (r *Runner) loadReports(ctx context.Context) ([]domain.Report, error) {
	stored, err := r.reportStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]domain.Report, len(stored))
	for i, rep := range stored {
		reports[i] = *rep
	}
	return reports, nil
}

func (r *Runner) log(format string, args ...interface{}) {
	if r.verbose {
		log.Printf("[settlement] "+format, args...)
	}
}
