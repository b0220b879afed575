package reporting

import (
	"fmt"
	"math/big"
	"strings"
)

// RenderSettlementCSV renders the full settlement table as a CSV string.
// One row per address; per token (sorted) the columns are
// <token>_snapshot_<i>, <token>_average, <token>_penalty, <token>_bounty,
// <token>_final, <token>_reward.
func RenderSettlementCSV(r *SettlementReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("address")
	for _, token := range r.Tokens {
		for i := 0; i < r.SnapshotCount; i++ {
			sb.WriteString(fmt.Sprintf(",%s_snapshot_%d", token, i))
		}
		sb.WriteString(fmt.Sprintf(",%s_average,%s_penalty,%s_bounty,%s_final,%s_reward",
			token, token, token, token, token))
	}
	sb.WriteString("\n")

	// Rows
	for _, row := range r.Rows {
		sb.WriteString(row.Address)
		for _, cells := range row.PerToken {
			for _, snap := range cells.Snapshots {
				sb.WriteString(",")
				sb.WriteString(snap)
			}
			sb.WriteString(fmt.Sprintf(",%s,%s,%s,%s,%s",
				cells.Average, cells.Penalty, cells.Bounty, cells.Final, cells.Reward))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderRewardCSV renders the distribution list: one row per recipient with a
// non-zero total reward across all tokens, sorted by address.
func RenderRewardCSV(r *SettlementReport) string {
	var sb strings.Builder
	sb.WriteString("address,amount\n")

	for _, row := range r.Rows {
		total := new(big.Int)
		for _, cells := range row.PerToken {
			amount, ok := new(big.Int).SetString(cells.Reward, 10)
			if !ok {
				continue
			}
			total.Add(total, amount)
		}
		if total.Sign() == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s,%s\n", row.Address, total))
	}

	return sb.String()
}
