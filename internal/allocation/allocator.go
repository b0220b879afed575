// Package allocation splits a fixed reward pool across tokens and accounts.
// Tokens are weighted by the inverse of their total eligible balance so the
// per-unit reward rate is equalized across tokens; within a token the split
// is proportional to each account's final eligible balance. All arithmetic is
// floor division, multiply before divide.
package allocation

import (
	"math/big"

	"token-reward-lab/internal/domain"
)

// Scale is the fixed-point scale for inverse fractions, matching the
// on-chain 18-decimal convention.
var Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Result holds the allocation output: per-token plans and per-token,
// per-account rewards.
type Result struct {
	Plans   map[domain.Address]*domain.RewardPoolPlan
	Rewards map[domain.Address]map[domain.Address]*big.Int
}

// Allocate distributes pool across the given summaries. Tokens whose total
// eligible balance is zero are excluded from the round entirely, which also
// keeps every later division away from zero. The total distributed is within
// [pool - K, pool] where K is the number of (token, account) reward entries.
func Allocate(pool *big.Int, summaries map[domain.Address]map[domain.Address]*domain.TokenBalanceSummary) *Result {
	result := &Result{
		Plans:   make(map[domain.Address]*domain.RewardPoolPlan),
		Rewards: make(map[domain.Address]map[domain.Address]*big.Int),
	}

	// Stage 1: total eligible balance per token, dropping empty tokens.
	totals := make(map[domain.Address]*big.Int)
	grandTotal := new(big.Int)
	for token, perAccount := range summaries {
		total := new(big.Int)
		for _, s := range perAccount {
			total.Add(total, s.Final)
		}
		if total.Sign() == 0 {
			continue
		}
		totals[token] = total
		grandTotal.Add(grandTotal, total)
	}
	if len(totals) == 0 {
		return result
	}

	// Stage 2: inverse fractions. Smaller totals get larger multipliers.
	inverses := make(map[domain.Address]*big.Int, len(totals))
	inverseSum := new(big.Int)
	for token, total := range totals {
		inv := new(big.Int).Mul(grandTotal, Scale)
		inv.Div(inv, total)
		inverses[token] = inv
		inverseSum.Add(inverseSum, inv)
	}

	// Stage 3: token shares of the pool, then per-account proportional split.
	for token, inv := range inverses {
		share := new(big.Int).Mul(inv, pool)
		share.Div(share, inverseSum)

		result.Plans[token] = &domain.RewardPoolPlan{
			TotalEligible:    totals[token],
			TokenRewardShare: share,
		}

		perAccount := make(map[domain.Address]*big.Int)
		for account, s := range summaries[token] {
			if s.Final.Sign() == 0 {
				continue
			}
			reward := new(big.Int).Mul(s.Final, share)
			reward.Div(reward, totals[token])
			perAccount[account] = reward
		}
		result.Rewards[token] = perAccount
	}

	return result
}

// TotalDistributed sums every (token, account) reward in the result.
func (r *Result) TotalDistributed() *big.Int {
	total := new(big.Int)
	for _, perAccount := range r.Rewards {
		for _, reward := range perAccount {
			total.Add(total, reward)
		}
	}
	return total
}
