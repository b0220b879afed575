// Package reporting renders settlement results as CSV and Markdown and
// produces the reward rows persisted after each run.
package reporting

import (
	"bytes"
	"math/big"
	"sort"
	"time"

	"token-reward-lab/internal/allocation"
	"token-reward-lab/internal/domain"
)

// Generator produces settlement reports.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the full settlement report from the eligibility summaries
// and the pool allocation. Tokens and addresses are sorted; accounts with no
// summary for a token get zero-valued cells so every row has the same shape.
func (g *Generator) Generate(
	epochID string,
	pool *big.Int,
	summaries map[domain.Address]map[domain.Address]*domain.TokenBalanceSummary,
	rewards *allocation.Result,
) *SettlementReport {
	tokens := sortedTokens(summaries)
	addresses := sortedAddresses(summaries)
	snapshotCount := snapshotCount(summaries)

	report := &SettlementReport{
		GeneratedAt:   g.now(),
		EpochID:       epochID,
		SnapshotCount: snapshotCount,
		PoolSize:      pool.String(),
	}

	for _, token := range tokens {
		report.Tokens = append(report.Tokens, token.String())
	}
	for _, addr := range addresses {
		report.Addresses = append(report.Addresses, addr.String())
	}

	for _, addr := range addresses {
		row := AccountRow{Address: addr.String()}
		for _, token := range tokens {
			row.PerToken = append(row.PerToken, cellsFor(token, addr, snapshotCount, summaries, rewards))
		}
		report.Rows = append(report.Rows, row)
	}

	distributed := new(big.Int)
	for _, token := range tokens {
		plan, ok := rewards.Plans[token]
		if !ok {
			continue
		}
		report.TokenTotals = append(report.TokenTotals, TokenTotalRow{
			Token:            token.String(),
			TotalEligible:    plan.TotalEligible.String(),
			TokenRewardShare: plan.TokenRewardShare.String(),
		})
	}
	if rewards != nil {
		distributed = rewards.TotalDistributed()
	}
	report.PoolDistributed = distributed.String()

	return report
}

// RewardRows converts the eligibility and allocation output into storage
// rows, one per (token, account), sorted by token then account.
func RewardRows(
	epochID string,
	summaries map[domain.Address]map[domain.Address]*domain.TokenBalanceSummary,
	rewards *allocation.Result,
) []*domain.RewardRow {
	var rows []*domain.RewardRow
	for _, token := range sortedTokens(summaries) {
		perAccount := summaries[token]

		accounts := make([]domain.Address, 0, len(perAccount))
		for addr := range perAccount {
			accounts = append(accounts, addr)
		}
		sort.Slice(accounts, func(i, j int) bool {
			return bytes.Compare(accounts[i][:], accounts[j][:]) < 0
		})

		for _, addr := range accounts {
			s := perAccount[addr]
			rows = append(rows, &domain.RewardRow{
				EpochID: epochID,
				Token:   token.String(),
				Account: addr.String(),
				Average: s.Average.String(),
				Penalty: s.Penalty.String(),
				Bounty:  s.Bounty.String(),
				Final:   s.Final.String(),
				Reward:  rewardFor(token, addr, rewards).String(),
			})
		}
	}
	return rows
}

func cellsFor(
	token, addr domain.Address,
	snapshotCount int,
	summaries map[domain.Address]map[domain.Address]*domain.TokenBalanceSummary,
	rewards *allocation.Result,
) TokenCells {
	cells := TokenCells{
		Snapshots: make([]string, snapshotCount),
		Average:   "0",
		Penalty:   "0",
		Bounty:    "0",
		Final:     "0",
	}
	for i := range cells.Snapshots {
		cells.Snapshots[i] = "0"
	}

	if s, ok := summaries[token][addr]; ok {
		for i, snap := range s.Snapshots {
			cells.Snapshots[i] = snap.String()
		}
		cells.Average = s.Average.String()
		cells.Penalty = s.Penalty.String()
		cells.Bounty = s.Bounty.String()
		cells.Final = s.Final.String()
	}
	cells.Reward = rewardFor(token, addr, rewards).String()
	return cells
}

func rewardFor(token, addr domain.Address, rewards *allocation.Result) *big.Int {
	if rewards == nil {
		return new(big.Int)
	}
	if reward, ok := rewards.Rewards[token][addr]; ok {
		return reward
	}
	return new(big.Int)
}

func sortedTokens(summaries map[domain.Address]map[domain.Address]*domain.TokenBalanceSummary) []domain.Address {
	tokens := make([]domain.Address, 0, len(summaries))
	for token := range summaries {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return bytes.Compare(tokens[i][:], tokens[j][:]) < 0
	})
	return tokens
}

func sortedAddresses(summaries map[domain.Address]map[domain.Address]*domain.TokenBalanceSummary) []domain.Address {
	seen := make(map[domain.Address]struct{})
	var addresses []domain.Address
	for _, perAccount := range summaries {
		for addr := range perAccount {
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			addresses = append(addresses, addr)
		}
	}
	sort.Slice(addresses, func(i, j int) bool {
		return bytes.Compare(addresses[i][:], addresses[j][:]) < 0
	})
	return addresses
}

func snapshotCount(summaries map[domain.Address]map[domain.Address]*domain.TokenBalanceSummary) int {
	for _, perAccount := range summaries {
		for _, s := range perAccount {
			return len(s.Snapshots)
		}
	}
	return 0
}
