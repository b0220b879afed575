// Package approval resolves whether an address is an approved reward source:
// either allow-listed directly, or deployed by an allow-listed factory.
package approval

import (
	"context"
	"log"
	"time"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/ethereum"
)

// factorySelector is the 4-byte selector of the factory() view function.
var factorySelector = []byte{0xc4, 0x5a, 0x01, 0x55}

// Default configuration values.
const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 500 * time.Millisecond
)

// Resolver answers approved-source lookups. Results are cached for the
// lifetime of one run; inputs are immutable for a batch so the cache is
// never invalidated.
type Resolver struct {
	caller           ethereum.ContractCaller
	allowedSources   map[domain.Address]struct{}
	allowedFactories map[domain.Address]struct{}
	cache            map[domain.Address]bool
	maxAttempts      int
	baseDelay        time.Duration
	sleep            func(time.Duration) // injectable for tests
	logger           *log.Logger
}

// Option configures Resolver.
type Option func(*Resolver)

// WithMaxAttempts sets the retry bound for transient lookup failures.
func WithMaxAttempts(n int) Option {
	return func(r *Resolver) {
		r.maxAttempts = n
	}
}

// WithBaseDelay sets the initial backoff delay; it doubles per attempt.
func WithBaseDelay(d time.Duration) Option {
	return func(r *Resolver) {
		r.baseDelay = d
	}
}

// WithSleep replaces the delay primitive, for deterministic tests.
func WithSleep(sleep func(time.Duration)) Option {
	return func(r *Resolver) {
		r.sleep = sleep
	}
}

// WithLogger sets the warning logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver over the given caller and allow-lists.
func NewResolver(caller ethereum.ContractCaller, sources, factories []domain.Address, opts ...Option) *Resolver {
	r := &Resolver{
		caller:           caller,
		allowedSources:   make(map[domain.Address]struct{}, len(sources)),
		allowedFactories: make(map[domain.Address]struct{}, len(factories)),
		cache:            make(map[domain.Address]bool),
		maxAttempts:      DefaultMaxAttempts,
		baseDelay:        DefaultBaseDelay,
		sleep:            time.Sleep,
		logger:           log.Default(),
	}
	for _, a := range sources {
		r.allowedSources[a] = struct{}{}
	}
	for _, a := range factories {
		r.allowedFactories[a] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsApprovedSource reports whether addr is a legitimate origin of token
// transfers. It never fails: exhausted retries resolve to false, the
// reward-safe default.
func (r *Resolver) IsApprovedSource(ctx context.Context, addr domain.Address) bool {
	if approved, ok := r.cache[addr]; ok {
		return approved
	}

	if _, ok := r.allowedSources[addr]; ok {
		r.cache[addr] = true
		return true
	}

	approved := r.lookupFactory(ctx, addr)
	r.cache[addr] = approved
	return approved
}

// lookupFactory queries addr's factory() view function and checks the result
// against the factory allow-list. Permanent no-factory signatures resolve to
// false without retrying.
func (r *Resolver) lookupFactory(ctx context.Context, addr domain.Address) bool {
	delay := r.baseDelay
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			r.sleep(delay)
			delay *= 2
		}

		ret, err := r.caller.CallContract(ctx, addr, factorySelector, 0)
		if err != nil {
			if ethereum.IsNoMethodError(err) {
				// The contract has no factory() function: not a factory
				// deployment, permanently unapproved.
				return false
			}
			lastErr = err
			continue
		}

		factory, ok := decodeAddressWord(ret)
		if !ok {
			return false
		}
		_, approved := r.allowedFactories[factory]
		return approved
	}

	r.logger.Printf("[approval] WARN: factory lookup for %s failed after %d attempts, treating as unapproved: %v",
		addr, r.maxAttempts, lastErr)
	return false
}

// decodeAddressWord extracts an address from a 32-byte ABI return word.
func decodeAddressWord(ret []byte) (domain.Address, bool) {
	var a domain.Address
	if len(ret) < 32 {
		return a, false
	}
	copy(a[:], ret[12:32])
	return a, true
}
