// Package liquidity applies LP deposit/withdraw events to the balance ledger
// and retroactively excludes out-of-range concentrated positions from the
// snapshots they were credited to.
package liquidity

import (
	"context"
	"fmt"
	"math/big"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/ledger"
	"token-reward-lab/internal/oracle"
)

// Tracker applies liquidity events and runs the range-correction pass.
type Tracker struct {
	ledger *ledger.Ledger
	oracle oracle.TickOracle

	// tracks[i] accumulates concentrated positions credited to snapshot i.
	tracks []map[domain.PositionKey]*domain.LiquidityPositionTrack

	// poolScope restricts which pools are queried for tick corrections.
	// Empty means every tracked pool.
	poolScope map[domain.Address]struct{}
}

// Option configures Tracker.
type Option func(*Tracker)

// WithPoolScope limits the range-correction pass to the given pools.
// Positions in pools outside the scope are never queried and therefore never
// corrected, same as a pool the oracle returns no tick for.
func WithPoolScope(pools []domain.Address) Option {
	return func(t *Tracker) {
		if len(pools) == 0 {
			return
		}
		t.poolScope = make(map[domain.Address]struct{}, len(pools))
		for _, p := range pools {
			t.poolScope[p] = struct{}{}
		}
	}
}

// NewTracker creates a tracker bound to the ledger's snapshot boundaries.
func NewTracker(l *ledger.Ledger, o oracle.TickOracle, opts ...Option) *Tracker {
	tracks := make([]map[domain.PositionKey]*domain.LiquidityPositionTrack, len(l.SnapshotBlocks()))
	for i := range tracks {
		tracks[i] = make(map[domain.PositionKey]*domain.LiquidityPositionTrack)
	}
	t := &Tracker{
		ledger: l,
		oracle: o,
		tracks: tracks,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ApplyLiquidityChange applies one liquidity event. The signed
// depositedBalanceChange is applied as supplied; no clamp, no re-derivation.
// Concentrated (V3) events additionally accumulate into the position track of
// every snapshot boundary the event precedes, carrying the tick range forward.
func (t *Tracker) ApplyLiquidityChange(_ context.Context, ev *domain.LiquidityChange) {
	if !t.ledger.Eligible(ev.Token) {
		return
	}

	t.ledger.ApplyLiquidityDelta(ev.Token, ev.Owner, ev.DepositedBalanceChange, ev.BlockNumber)

	if !ev.Concentrated {
		return
	}

	key := domain.PositionKey{
		Token:      ev.Token,
		Owner:      ev.Owner,
		Pool:       ev.Pool,
		PositionID: ev.PositionID,
	}
	for i, boundary := range t.ledger.SnapshotBlocks() {
		if ev.BlockNumber > boundary {
			continue
		}
		track, ok := t.tracks[i][key]
		if !ok {
			track = &domain.LiquidityPositionTrack{
				Value:     new(big.Int),
				Pool:      ev.Pool,
				LowerTick: ev.LowerTick,
				UpperTick: ev.UpperTick,
			}
			t.tracks[i][key] = track
		}
		track.Value.Add(track.Value, ev.DepositedBalanceChange)
		track.LowerTick = ev.LowerTick
		track.UpperTick = ev.UpperTick
	}
}

// ApplyRangeCorrections runs the second pass, once, after all transfer and
// liquidity events are applied. For each snapshot boundary it queries the
// oracle once for every tracked pool at that block, then subtracts each
// positive out-of-range position value from that snapshot's balance slot.
// Positions with non-positive value, and pools the oracle returns no tick
// for, are skipped. Oracle failure is fatal: there is no safe substitute for
// a missing tick.
func (t *Tracker) ApplyRangeCorrections(ctx context.Context) error {
	boundaries := t.ledger.SnapshotBlocks()

	for i, boundary := range boundaries {
		if len(t.tracks[i]) == 0 {
			continue
		}

		pools := t.poolsAt(i)
		ticks, err := t.oracle.TicksAt(ctx, pools, boundary)
		if err != nil {
			return fmt.Errorf("range correction at snapshot %d (block %d): %w", i, boundary, err)
		}

		for key, track := range t.tracks[i] {
			if track.Value.Sign() <= 0 {
				continue
			}
			tick, ok := ticks[track.Pool]
			if !ok {
				continue
			}
			if tick >= track.LowerTick && tick <= track.UpperTick {
				continue
			}
			// Out of range: the position carries no exposure to the program
			// asset at this boundary, exclude it from the eligible balance.
			t.ledger.CorrectSnapshot(key.Token, key.Owner, i, track.Value)
		}
	}

	return nil
}

// poolsAt collects the distinct pools tracked at snapshot i, filtered to the
// configured scope when one is set.
func (t *Tracker) poolsAt(i int) []domain.Address {
	seen := make(map[domain.Address]struct{})
	var pools []domain.Address
	for _, track := range t.tracks[i] {
		if _, ok := seen[track.Pool]; ok {
			continue
		}
		seen[track.Pool] = struct{}{}
		if t.poolScope != nil {
			if _, ok := t.poolScope[track.Pool]; !ok {
				continue
			}
		}
		pools = append(pools, track.Pool)
	}
	return pools
}
