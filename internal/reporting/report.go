package reporting

import "time"

// SettlementReport is the rendered view of one settlement run: every address
// crossed with every token, plus per-token totals. All amounts are decimal
// strings to keep full uint256 precision in the output.
type SettlementReport struct {
	// Metadata
	GeneratedAt   time.Time
	EpochID       string
	SnapshotCount int

	// Tokens and addresses, both sorted, 0x-lowercase hex. Every row's
	// PerToken slice is aligned with Tokens.
	Tokens    []string
	Addresses []string

	// One row per address (sorted by address).
	Rows []AccountRow

	// One row per token (sorted by token).
	TokenTotals []TokenTotalRow

	// Pool accounting
	PoolSize        string
	PoolDistributed string
}

// AccountRow is one address's settlement outcome across all tokens.
type AccountRow struct {
	Address  string
	PerToken []TokenCells
}

// TokenCells is one (address, token) cell group of the settlement table.
type TokenCells struct {
	Snapshots []string
	Average   string
	Penalty   string
	Bounty    string
	Final     string
	Reward    string
}

// TokenTotalRow summarizes one token's slice of the reward pool.
type TokenTotalRow struct {
	Token            string
	TotalEligible    string
	TokenRewardShare string
}
