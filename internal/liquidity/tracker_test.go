package liquidity

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/ledger"
)

var (
	tokenX = domain.MustAddress("0x00000000000000000000000000000000000000aa")
	owner  = domain.MustAddress("0x0000000000000000000000000000000000000001")
	poolV3 = domain.MustAddress("0x00000000000000000000000000000000000000cc")
)

// stubOracle returns fixed ticks per (pool, block).
type stubOracle struct {
	ticks map[uint64]map[domain.Address]int32
	err   error
	calls int
}

func (s *stubOracle) TicksAt(_ context.Context, pools []domain.Address, block uint64) (map[domain.Address]int32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[domain.Address]int32)
	for _, p := range pools {
		if tick, ok := s.ticks[block][p]; ok {
			out[p] = tick
		}
	}
	return out, nil
}

// allowAll approves every source; the tracker never consults it but the
// ledger requires one.
type allowAll struct{}

func (allowAll) IsApprovedSource(context.Context, domain.Address) bool { return true }

func newFixture(o *stubOracle, snapshots ...uint64) (*ledger.Ledger, *Tracker) {
	l := ledger.New([]domain.Address{tokenX}, snapshots, allowAll{})
	return l, NewTracker(l, o)
}

func v3Change(value int64, block uint64, lower, upper int32) *domain.LiquidityChange {
	return &domain.LiquidityChange{
		Token:                  tokenX,
		Owner:                  owner,
		ChangeType:             domain.LiquidityChangeDeposit,
		DepositedBalanceChange: big.NewInt(value),
		BlockNumber:            block,
		Concentrated:           true,
		PositionID:             7,
		Pool:                   poolV3,
		LowerTick:              lower,
		UpperTick:              upper,
	}
}

func TestApplyLiquidityChange_DepositAndWithdraw(t *testing.T) {
	l, tr := newFixture(&stubOracle{}, 100)
	ctx := context.Background()

	tr.ApplyLiquidityChange(ctx, &domain.LiquidityChange{
		Token:                  tokenX,
		Owner:                  owner,
		ChangeType:             domain.LiquidityChangeDeposit,
		DepositedBalanceChange: big.NewInt(100),
		BlockNumber:            10,
	})
	tr.ApplyLiquidityChange(ctx, &domain.LiquidityChange{
		Token:                  tokenX,
		Owner:                  owner,
		ChangeType:             domain.LiquidityChangeWithdraw,
		DepositedBalanceChange: big.NewInt(-130),
		BlockNumber:            20,
	})

	e, _ := l.Lookup(tokenX, owner)
	if e.CurrentNetBalance.Int64() != -30 {
		t.Errorf("expected -30 (no clamp on liquidity path), got %s", e.CurrentNetBalance)
	}
}

func TestApplyRangeCorrections_OutOfRangeExcluded(t *testing.T) {
	// Two snapshots; tick in range at snapshot 1, out of range at snapshot 0.
	o := &stubOracle{ticks: map[uint64]map[domain.Address]int32{
		100: {poolV3: 500},
		200: {poolV3: 0},
	}}
	l, tr := newFixture(o, 100, 200)
	ctx := context.Background()

	tr.ApplyLiquidityChange(ctx, v3Change(70, 10, -100, 100))
	if err := tr.ApplyRangeCorrections(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e, _ := l.Lookup(tokenX, owner)
	if e.NetBalanceAtSnapshots[0].Sign() != 0 {
		t.Errorf("out-of-range snapshot: expected 0, got %s", e.NetBalanceAtSnapshots[0])
	}
	if e.NetBalanceAtSnapshots[1].Int64() != 70 {
		t.Errorf("in-range snapshot must be unaffected, got %s", e.NetBalanceAtSnapshots[1])
	}
}

func TestApplyRangeCorrections_NonPositiveValueSkipped(t *testing.T) {
	o := &stubOracle{ticks: map[uint64]map[domain.Address]int32{
		100: {poolV3: 5000},
	}}
	l, tr := newFixture(o, 100)
	ctx := context.Background()

	// Deposit then fully withdraw before the boundary: net track value 0.
	tr.ApplyLiquidityChange(ctx, v3Change(50, 10, -100, 100))
	tr.ApplyLiquidityChange(ctx, v3Change(-50, 20, -100, 100))

	if err := tr.ApplyRangeCorrections(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, _ := l.Lookup(tokenX, owner)
	if e.NetBalanceAtSnapshots[0].Sign() != 0 {
		t.Errorf("expected 0 after full withdrawal, got %s", e.NetBalanceAtSnapshots[0])
	}
}

func TestApplyRangeCorrections_MissingTickSkipped(t *testing.T) {
	o := &stubOracle{ticks: map[uint64]map[domain.Address]int32{}}
	l, tr := newFixture(o, 100)
	ctx := context.Background()

	tr.ApplyLiquidityChange(ctx, v3Change(70, 10, -100, 100))
	if err := tr.ApplyRangeCorrections(ctx); err != nil {
		t.Fatalf("missing tick must not error: %v", err)
	}

	e, _ := l.Lookup(tokenX, owner)
	if e.NetBalanceAtSnapshots[0].Int64() != 70 {
		t.Errorf("position without tick must be left as credited, got %s", e.NetBalanceAtSnapshots[0])
	}
}

func TestApplyRangeCorrections_OracleFailureFatal(t *testing.T) {
	o := &stubOracle{err: errors.New("rpc down")}
	_, tr := newFixture(o, 100)
	ctx := context.Background()

	tr.ApplyLiquidityChange(ctx, v3Change(70, 10, -100, 100))
	if err := tr.ApplyRangeCorrections(ctx); err == nil {
		t.Fatal("oracle failure must propagate")
	}
}

func TestApplyLiquidityChange_TrackAccumulatesPerBoundary(t *testing.T) {
	o := &stubOracle{ticks: map[uint64]map[domain.Address]int32{
		100: {poolV3: 9999},
		200: {poolV3: 9999},
	}}
	l, tr := newFixture(o, 100, 200)
	ctx := context.Background()

	// First event lands before both boundaries, second only before the last.
	tr.ApplyLiquidityChange(ctx, v3Change(40, 10, -100, 100))
	tr.ApplyLiquidityChange(ctx, v3Change(25, 150, -100, 100))

	if err := tr.ApplyRangeCorrections(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e, _ := l.Lookup(tokenX, owner)
	// Snapshot 0 credited 40, snapshot 1 credited 65; both out of range.
	if e.NetBalanceAtSnapshots[0].Sign() != 0 {
		t.Errorf("snapshot 0: expected full exclusion, got %s", e.NetBalanceAtSnapshots[0])
	}
	if e.NetBalanceAtSnapshots[1].Sign() != 0 {
		t.Errorf("snapshot 1: expected full exclusion, got %s", e.NetBalanceAtSnapshots[1])
	}
}

func TestApplyRangeCorrections_NoTracksNoOracleCalls(t *testing.T) {
	o := &stubOracle{}
	_, tr := newFixture(o, 100, 200)

	if err := tr.ApplyRangeCorrections(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.calls != 0 {
		t.Errorf("no tracked positions, expected no oracle calls, got %d", o.calls)
	}
}

func TestApplyRangeCorrections_PoolScope(t *testing.T) {
	otherPool := domain.MustAddress("0x00000000000000000000000000000000000000dd")

	// Tick out of range, so an unscoped run would exclude the position.
	o := &stubOracle{ticks: map[uint64]map[domain.Address]int32{
		100: {poolV3: 500},
	}}
	l := ledger.New([]domain.Address{tokenX}, []uint64{100}, allowAll{})
	tr := NewTracker(l, o, WithPoolScope([]domain.Address{otherPool}))
	ctx := context.Background()

	tr.ApplyLiquidityChange(ctx, v3Change(70, 10, -100, 100))
	if err := tr.ApplyRangeCorrections(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e, _ := l.Lookup(tokenX, owner)
	if e.NetBalanceAtSnapshots[0].Int64() != 70 {
		t.Errorf("out-of-scope pool must not be corrected, got %s", e.NetBalanceAtSnapshots[0])
	}

	// Same events with the pool in scope: the position is excluded.
	l2 := ledger.New([]domain.Address{tokenX}, []uint64{100}, allowAll{})
	tr2 := NewTracker(l2, o, WithPoolScope([]domain.Address{poolV3}))

	tr2.ApplyLiquidityChange(ctx, v3Change(70, 10, -100, 100))
	if err := tr2.ApplyRangeCorrections(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e2, _ := l2.Lookup(tokenX, owner)
	if e2.NetBalanceAtSnapshots[0].Sign() != 0 {
		t.Errorf("in-scope pool must be corrected, got %s", e2.NetBalanceAtSnapshots[0])
	}
}

func TestApplyLiquidityChange_IneligibleTokenSkipped(t *testing.T) {
	l, tr := newFixture(&stubOracle{}, 100)
	otherToken := domain.MustAddress("0x00000000000000000000000000000000000000ee")

	ev := v3Change(50, 10, -100, 100)
	ev.Token = otherToken
	tr.ApplyLiquidityChange(context.Background(), ev)

	if _, ok := l.Lookup(otherToken, owner); ok {
		t.Error("ineligible token must not create ledger entries")
	}
}
