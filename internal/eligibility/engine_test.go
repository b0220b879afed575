package eligibility

import (
	"context"
	"math/big"
	"testing"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/ledger"
)

var (
	tokenX   = domain.MustAddress("0x00000000000000000000000000000000000000aa")
	alice    = domain.MustAddress("0x0000000000000000000000000000000000000001")
	bob      = domain.MustAddress("0x0000000000000000000000000000000000000002")
	carol    = domain.MustAddress("0x0000000000000000000000000000000000000003")
	approved = domain.MustAddress("0x00000000000000000000000000000000000000f1")
)

type allowAll struct{}

func (allowAll) IsApprovedSource(context.Context, domain.Address) bool { return true }

// fund credits an account so its average across all snapshots equals value.
func fund(l *ledger.Ledger, account domain.Address, value int64) {
	l.ApplyTransfer(context.Background(), &domain.Transfer{
		Token:       tokenX,
		From:        approved,
		To:          account,
		Value:       big.NewInt(value),
		BlockNumber: 1,
	})
}

func TestCompute_AverageIsFloorOfSnapshots(t *testing.T) {
	l := ledger.New([]domain.Address{tokenX}, []uint64{100, 200, 300}, allowAll{})
	ctx := context.Background()

	// 10 at all three snapshots, then 5 more after the first boundary:
	// snapshots are [10, 15, 15], average = floor(40/3) = 13.
	l.ApplyTransfer(ctx, &domain.Transfer{Token: tokenX, From: approved, To: alice, Value: big.NewInt(10), BlockNumber: 50})
	l.ApplyTransfer(ctx, &domain.Transfer{Token: tokenX, From: approved, To: alice, Value: big.NewInt(5), BlockNumber: 150})

	summaries := Compute(l, nil)
	s := summaries[tokenX][alice]
	if s.Average.Int64() != 13 {
		t.Errorf("average: expected 13, got %s", s.Average)
	}
	if s.Final.Cmp(s.Average) != 0 {
		t.Errorf("final without reports must equal average, got %s", s.Final)
	}
}

func TestCompute_ReporterAndCheaterNetting(t *testing.T) {
	l := ledger.New([]domain.Address{tokenX}, []uint64{100}, allowAll{})
	fund(l, bob, 1000)  // cheater average 1000
	fund(l, alice, 50)  // reporter average 50

	summaries := Compute(l, []domain.Report{{Reporter: alice, Cheater: bob}})

	cheater := summaries[tokenX][bob]
	if cheater.Penalty.Int64() != 1000 {
		t.Errorf("penalty: expected 1000, got %s", cheater.Penalty)
	}
	if cheater.Final.Sign() != 0 {
		t.Errorf("cheater final: expected 0, got %s", cheater.Final)
	}

	reporter := summaries[tokenX][alice]
	if reporter.Bounty.Int64() != 100 {
		t.Errorf("bounty: expected 100 (10%% of 1000), got %s", reporter.Bounty)
	}
	if reporter.Final.Int64() != 150 {
		t.Errorf("reporter final: expected 150 (50 avg + 100 bounty), got %s", reporter.Final)
	}
}

func TestCompute_FinalIdentityHoldsExactly(t *testing.T) {
	l := ledger.New([]domain.Address{tokenX}, []uint64{100}, allowAll{})
	fund(l, alice, 500)
	fund(l, bob, 120)

	summaries := Compute(l, []domain.Report{{Reporter: alice, Cheater: bob}})
	for addr, s := range summaries[tokenX] {
		want := new(big.Int).Sub(s.Average, s.Penalty)
		want.Add(want, s.Bounty)
		if want.Sign() < 0 {
			want.SetInt64(0)
		}
		if s.Final.Cmp(want) != 0 {
			t.Errorf("%s: final = %s, want %s", addr, s.Final, want)
		}
	}
}

func TestCompute_StackedPenaltiesFloorAtZero(t *testing.T) {
	l := ledger.New([]domain.Address{tokenX}, []uint64{100}, allowAll{})
	fund(l, bob, 100)

	// Two independent reports against the same cheater: cumulative penalty
	// 200 exceeds the average of 100.
	reports := []domain.Report{
		{Reporter: alice, Cheater: bob},
		{Reporter: carol, Cheater: bob},
	}
	summaries := Compute(l, reports)

	cheater := summaries[tokenX][bob]
	if cheater.Penalty.Int64() != 200 {
		t.Errorf("stacked penalty: expected 200, got %s", cheater.Penalty)
	}
	if cheater.Final.Sign() != 0 {
		t.Errorf("final floors at zero, got %s", cheater.Final)
	}

	// Each reporter earns 10% of the penalty they triggered.
	for _, reporter := range []domain.Address{alice, carol} {
		if got := summaries[tokenX][reporter].Bounty.Int64(); got != 10 {
			t.Errorf("%s bounty: expected 10, got %d", reporter, got)
		}
	}
}

func TestCompute_RepeatReporterAccumulatesBounty(t *testing.T) {
	l := ledger.New([]domain.Address{tokenX}, []uint64{100}, allowAll{})
	fund(l, bob, 100)
	fund(l, carol, 300)

	reports := []domain.Report{
		{Reporter: alice, Cheater: bob},
		{Reporter: alice, Cheater: carol},
	}
	summaries := Compute(l, reports)

	if got := summaries[tokenX][alice].Bounty.Int64(); got != 40 {
		t.Errorf("bounty: expected 40 (10 + 30), got %d", got)
	}
}

func TestCompute_ReportAgainstUnknownAddressIgnored(t *testing.T) {
	l := ledger.New([]domain.Address{tokenX}, []uint64{100}, allowAll{})
	fund(l, alice, 50)

	// Bob has no balance entry: no penalty, no bounty.
	summaries := Compute(l, []domain.Report{{Reporter: alice, Cheater: bob}})
	if summaries[tokenX][alice].Bounty.Sign() != 0 {
		t.Errorf("no bounty for reporting a balance-less address, got %s", summaries[tokenX][alice].Bounty)
	}
}

func TestCompute_ReporterWithoutBalanceIncluded(t *testing.T) {
	l := ledger.New([]domain.Address{tokenX}, []uint64{100}, allowAll{})
	fund(l, bob, 100)

	// Carol never appears in the ledger but reports bob.
	summaries := Compute(l, []domain.Report{{Reporter: carol, Cheater: bob}})
	reporter, ok := summaries[tokenX][carol]
	if !ok {
		t.Fatal("reporter must be part of the address union")
	}
	if reporter.Final.Int64() != 10 {
		t.Errorf("balance-less reporter final: expected 10, got %s", reporter.Final)
	}
}
