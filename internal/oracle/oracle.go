// Package oracle resolves a concentrated-liquidity pool's current tick at a
// historical block, for the liquidity tracker's range-correction pass.
package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/ethereum"
)

// slot0Selector is the 4-byte selector of the V3 pool slot0() view function.
var slot0Selector = []byte{0x38, 0x50, 0xc7, 0xbd}

// Default configuration values.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// TickOracle returns pool ticks at a historical block, batched per snapshot.
type TickOracle interface {
	// TicksAt returns the current tick for each pool that exposes one at the
	// given block. Pools whose lookup reverts are omitted from the result;
	// a transport failure after retries is returned as an error.
	TicksAt(ctx context.Context, pools []domain.Address, blockNumber uint64) (map[domain.Address]int32, error)
}

// RPCOracle implements TickOracle over an EVM contract caller, with fixed
// retry delay and per-run memoization keyed by (pool, block).
type RPCOracle struct {
	caller      ethereum.ContractCaller
	maxAttempts int
	retryDelay  time.Duration
	sleep       func(time.Duration)
	memo        map[memoKey]int32
	misses      map[memoKey]struct{} // pools known to expose no tick at a block
}

type memoKey struct {
	Pool  domain.Address
	Block uint64
}

// Option configures RPCOracle.
type Option func(*RPCOracle)

// WithMaxAttempts sets the retry bound for the per-snapshot batch.
func WithMaxAttempts(n int) Option {
	return func(o *RPCOracle) {
		o.maxAttempts = n
	}
}

// WithRetryDelay sets the fixed delay between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(o *RPCOracle) {
		o.retryDelay = d
	}
}

// WithSleep replaces the delay primitive, for deterministic tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *RPCOracle) {
		o.sleep = sleep
	}
}

// NewRPCOracle creates a tick oracle over the given caller.
func NewRPCOracle(caller ethereum.ContractCaller, opts ...Option) *RPCOracle {
	o := &RPCOracle{
		caller:      caller,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		sleep:       time.Sleep,
		memo:        make(map[memoKey]int32),
		misses:      make(map[memoKey]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Compile-time interface check.
var _ TickOracle = (*RPCOracle)(nil)

// TicksAt resolves ticks for all pools at the given block. The batch is
// retried as a whole, up to maxAttempts with a fixed delay between attempts;
// pools resolved on an earlier attempt are served from the memo, so a retry
// only re-queries the pools that failed.
func (o *RPCOracle) TicksAt(ctx context.Context, pools []domain.Address, blockNumber uint64) (map[domain.Address]int32, error) {
	var lastErr error

	for attempt := 0; attempt < o.maxAttempts; attempt++ {
		if attempt > 0 {
			o.sleep(o.retryDelay)
		}

		ticks, err := o.batch(ctx, pools, blockNumber)
		if err == nil {
			return ticks, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("tick batch at block %d: max attempts exceeded: %w", blockNumber, lastErr)
}

// batch runs one pass over the pools. A pool without slot0 records a
// permanent miss and is omitted; any other call or decode failure aborts the
// pass so the caller can retry it.
func (o *RPCOracle) batch(ctx context.Context, pools []domain.Address, blockNumber uint64) (map[domain.Address]int32, error) {
	ticks := make(map[domain.Address]int32, len(pools))

	for _, pool := range pools {
		key := memoKey{Pool: pool, Block: blockNumber}
		if tick, ok := o.memo[key]; ok {
			ticks[pool] = tick
			continue
		}
		if _, ok := o.misses[key]; ok {
			continue
		}

		ret, err := o.caller.CallContract(ctx, pool, slot0Selector, blockNumber)
		if err != nil {
			if ethereum.IsNoMethodError(err) {
				o.misses[key] = struct{}{}
				continue
			}
			return nil, fmt.Errorf("slot0 for pool %s: %w", pool, err)
		}

		tick, err := decodeTick(ret)
		if err != nil {
			return nil, fmt.Errorf("slot0 for pool %s: %w", pool, err)
		}
		o.memo[key] = tick
		ticks[pool] = tick
	}

	return ticks, nil
}

// decodeTick extracts the int24 tick from slot0 return data. The tick is the
// second 32-byte word, ABI-encoded as a sign-extended two's complement word.
func decodeTick(ret []byte) (int32, error) {
	if len(ret) < 64 {
		return 0, fmt.Errorf("slot0 return too short: %d bytes", len(ret))
	}

	word := new(big.Int).SetBytes(ret[32:64])
	// Two's complement for negative ticks.
	if word.Bit(255) == 1 {
		word.Sub(word, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return int32(word.Int64()), nil
}
