package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a human-readable settlement summary as Markdown.
func RenderMarkdown(r *SettlementReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Settlement Report %s\n\n", r.EpochID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Tokens: %d | Addresses: %d | Snapshots: %d\n\n",
		len(r.Tokens), len(r.Addresses), r.SnapshotCount))

	// Pool accounting
	sb.WriteString("## Pool\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Pool Size | %s |\n", r.PoolSize))
	sb.WriteString(fmt.Sprintf("| Distributed | %s |\n", r.PoolDistributed))
	sb.WriteString("\n")

	// Per-token totals
	sb.WriteString("## Token Shares\n\n")
	if len(r.TokenTotals) > 0 {
		sb.WriteString("| Token | Total Eligible | Pool Share |\n")
		sb.WriteString("|-------|----------------|------------|\n")
		for _, t := range r.TokenTotals {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
				t.Token, t.TotalEligible, t.TokenRewardShare))
		}
	} else {
		sb.WriteString("No token had a positive eligible total.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
