// Package eligibility derives per-token, per-account balance summaries from
// the settled ledger and nets cheating penalties against whistle-blower
// bounties.
package eligibility

import (
	"math/big"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/ledger"
)

// bountyNumerator/bountyDenominator: a reporter earns 10% of each penalty
// they trigger, floored.
const (
	bountyNumerator   = 10
	bountyDenominator = 100
)

// Compute builds the eligibility summary for every token and every address:
// all addresses with a ledger entry in any token, plus all reporters.
//
// For each report {reporter, cheater} and each token where the cheater holds
// a balance entry, the cheater's average is added to their cumulative penalty
// and a tenth of it (floored) to the reporter's cumulative bounty. Multiple
// reports against the same cheater stack the penalty once per report;
// multiple reports by the same reporter stack the bounty additively.
func Compute(l *ledger.Ledger, reports []domain.Report) map[domain.Address]map[domain.Address]*domain.TokenBalanceSummary {
	addresses := unionAddresses(l, reports)
	tokens := l.Tokens()
	n := len(l.SnapshotBlocks())

	summaries := make(map[domain.Address]map[domain.Address]*domain.TokenBalanceSummary, len(tokens))
	for _, token := range tokens {
		perAccount := make(map[domain.Address]*domain.TokenBalanceSummary, len(addresses))
		for _, addr := range addresses {
			perAccount[addr] = summarize(l, token, addr, n)
		}
		summaries[token] = perAccount
	}

	for _, report := range reports {
		for _, token := range tokens {
			// Penalties only attach where the cheater actually held balance.
			if _, ok := l.Lookup(token, report.Cheater); !ok {
				continue
			}
			cheater := summaries[token][report.Cheater]
			reporter := summaries[token][report.Reporter]

			penalty := new(big.Int).Set(cheater.Average)
			cheater.Penalty.Add(cheater.Penalty, penalty)

			bounty := new(big.Int).Mul(penalty, big.NewInt(bountyNumerator))
			bounty.Div(bounty, big.NewInt(bountyDenominator))
			reporter.Bounty.Add(reporter.Bounty, bounty)
		}
	}

	for _, perAccount := range summaries {
		for _, s := range perAccount {
			finalize(s)
		}
	}

	return summaries
}

// summarize samples the ledger entry (zeros when absent) and computes the
// floor average across snapshot slots.
func summarize(l *ledger.Ledger, token, addr domain.Address, n int) *domain.TokenBalanceSummary {
	s := &domain.TokenBalanceSummary{
		Snapshots: make([]*big.Int, n),
		Average:   new(big.Int),
		Penalty:   new(big.Int),
		Bounty:    new(big.Int),
		Final:     new(big.Int),
	}

	entry, ok := l.Lookup(token, addr)
	sum := new(big.Int)
	for i := 0; i < n; i++ {
		if ok {
			s.Snapshots[i] = new(big.Int).Set(entry.NetBalanceAtSnapshots[i])
		} else {
			s.Snapshots[i] = new(big.Int)
		}
		sum.Add(sum, s.Snapshots[i])
	}
	if n > 0 {
		// Euclidean division: floors toward negative infinity for the
		// negative sums a liquidity-driven snapshot can produce.
		s.Average.Div(sum, big.NewInt(int64(n)))
	}
	return s
}

// finalize computes final = average - penalty + bounty, floored at zero.
// Stacked penalties can exceed the average; a negative eligible balance has
// no meaning in allocation and settles to zero.
func finalize(s *domain.TokenBalanceSummary) {
	s.Final.Sub(s.Average, s.Penalty)
	s.Final.Add(s.Final, s.Bounty)
	if s.Final.Sign() < 0 {
		s.Final.SetInt64(0)
	}
}

// unionAddresses merges every ledger account with every reporter address.
func unionAddresses(l *ledger.Ledger, reports []domain.Report) []domain.Address {
	accounts := l.Accounts()
	seen := make(map[domain.Address]struct{}, len(accounts))
	for _, a := range accounts {
		seen[a] = struct{}{}
	}
	for _, r := range reports {
		if _, ok := seen[r.Reporter]; !ok {
			seen[r.Reporter] = struct{}{}
			accounts = append(accounts, r.Reporter)
		}
	}
	return accounts
}
