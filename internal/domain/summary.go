package domain

import "math/big"

// TokenBalanceSummary is the derived per-token, per-account eligibility
// record. Final floors at zero: cumulative penalties from multiple reports
// can exceed the average, and a negative eligible balance has no meaning in
// allocation.
type TokenBalanceSummary struct {
	Snapshots []*big.Int // sampled net balances, one per snapshot boundary
	Average   *big.Int   // floor(sum(Snapshots) / len(Snapshots))
	Penalty   *big.Int   // cumulative penalty from reports naming this account
	Bounty    *big.Int   // cumulative bounty from reports filed by this account
	Final     *big.Int   // max(0, Average - Penalty + Bounty)
}

// RewardPoolPlan is the derived per-token slice of the global reward pool.
type RewardPoolPlan struct {
	TotalEligible    *big.Int // sum of Final across accounts
	TokenRewardShare *big.Int // this token's slice of the pool
}

// RewardRow is one persisted settlement output row: what one account earned
// for one token in one epoch. Amounts are stored as decimal strings to keep
// full uint256 precision across storage backends.
type RewardRow struct {
	EpochID string // settlement run identifier, e.g. "2026-08"
	Token   string // token address, 0x-lowercase hex
	Account string // account address, 0x-lowercase hex
	Average string
	Penalty string
	Bounty  string
	Final   string
	Reward  string
}
