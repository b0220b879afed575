// Package ledger maintains per-token, per-account balance state over one
// settlement run. Events are applied in ascending block order; each event
// forward-fills every not-yet-closed snapshot slot with the current balance,
// so after the last event each slot holds the balance truth at its boundary
// without a second pass over history.
package ledger

import (
	"bytes"
	"context"
	"math/big"
	"sort"

	"token-reward-lab/internal/domain"
)

// SourceApprover resolves whether an address is an approved reward source.
type SourceApprover interface {
	IsApprovedSource(ctx context.Context, addr domain.Address) bool
}

// AccountTokenBalance is the mutable ledger entry for one (token, account)
// pair. Created lazily on first touch, never deleted; mutated only by the
// ledger itself and the liquidity tracker's correction pass.
type AccountTokenBalance struct {
	TransfersInFromApproved *big.Int // cumulative value received from approved sources
	TransfersOut            *big.Int // cumulative value sent, regardless of source approval
	LiquidityNet            *big.Int // signed accumulator of liquidity-path deltas
	CurrentNetBalance       *big.Int // clamp0(in - out) + LiquidityNet
	NetBalanceAtSnapshots   []*big.Int

	// Audit detail, used only for reporting, never for reward math.
	TransfersIn     []domain.TransferDetail
	TransfersOutLog []domain.TransferDetail
}

// Ledger holds all account state for the configured eligible tokens.
type Ledger struct {
	eligible  map[domain.Address]struct{}
	snapshots []uint64 // ascending snapshot boundary blocks
	approver  SourceApprover
	balances  map[domain.Address]map[domain.Address]*AccountTokenBalance // token -> account
}

// New creates a ledger for the given eligible tokens and snapshot boundaries.
func New(tokens []domain.Address, snapshotBlocks []uint64, approver SourceApprover) *Ledger {
	eligible := make(map[domain.Address]struct{}, len(tokens))
	for _, t := range tokens {
		eligible[t] = struct{}{}
	}
	return &Ledger{
		eligible:  eligible,
		snapshots: snapshotBlocks,
		approver:  approver,
		balances:  make(map[domain.Address]map[domain.Address]*AccountTokenBalance),
	}
}

// Eligible reports whether token is part of this distribution round.
func (l *Ledger) Eligible(token domain.Address) bool {
	_, ok := l.eligible[token]
	return ok
}

// SnapshotBlocks returns the ascending snapshot boundary blocks.
func (l *Ledger) SnapshotBlocks() []uint64 {
	return l.snapshots
}

// Entry returns the ledger entry for (token, account), creating a zeroed one
// on first touch.
func (l *Ledger) Entry(token, account domain.Address) *AccountTokenBalance {
	accounts, ok := l.balances[token]
	if !ok {
		accounts = make(map[domain.Address]*AccountTokenBalance)
		l.balances[token] = accounts
	}
	e, ok := accounts[account]
	if !ok {
		e = newEntry(len(l.snapshots))
		accounts[account] = e
	}
	return e
}

// Lookup returns the ledger entry for (token, account) without creating one.
func (l *Ledger) Lookup(token, account domain.Address) (*AccountTokenBalance, bool) {
	e, ok := l.balances[token][account]
	return e, ok
}

// Tokens returns the configured eligible tokens, sorted for deterministic
// iteration.
func (l *Ledger) Tokens() []domain.Address {
	tokens := make([]domain.Address, 0, len(l.eligible))
	for t := range l.eligible {
		tokens = append(tokens, t)
	}
	sortAddresses(tokens)
	return tokens
}

// Accounts returns every address with a ledger entry in any token, sorted.
func (l *Ledger) Accounts() []domain.Address {
	seen := make(map[domain.Address]struct{})
	for _, accounts := range l.balances {
		for a := range accounts {
			seen[a] = struct{}{}
		}
	}
	all := make([]domain.Address, 0, len(seen))
	for a := range seen {
		all = append(all, a)
	}
	sortAddresses(all)
	return all
}

// ApplyTransfer applies one transfer event. Transfers of tokens outside the
// configured set are skipped silently: out of scope, not malformed.
func (l *Ledger) ApplyTransfer(ctx context.Context, t *domain.Transfer) {
	if !l.Eligible(t.Token) {
		return
	}

	approved := l.approver.IsApprovedSource(ctx, t.From)

	to := l.Entry(t.Token, t.To)
	from := l.Entry(t.Token, t.From)

	// Credit only flows from approved sources.
	if approved {
		to.TransfersInFromApproved.Add(to.TransfersInFromApproved, t.Value)
		l.recompute(to)
		l.forwardFill(to, t.BlockNumber)
	}
	to.TransfersIn = append(to.TransfersIn, domain.TransferDetail{
		Counterparty: t.From,
		Value:        new(big.Int).Set(t.Value),
		BlockNumber:  t.BlockNumber,
		Approved:     approved,
	})

	// Debits apply regardless of source approval.
	from.TransfersOut.Add(from.TransfersOut, t.Value)
	l.recompute(from)
	l.forwardFill(from, t.BlockNumber)
	from.TransfersOutLog = append(from.TransfersOutLog, domain.TransferDetail{
		Counterparty: t.To,
		Value:        new(big.Int).Set(t.Value),
		BlockNumber:  t.BlockNumber,
		Approved:     approved,
	})
}

// ApplyLiquidityDelta applies a signed liquidity-path balance change.
// Unlike the transfer path, the delta is not floor-clamped at zero: an
// out-of-range withdrawal sequence can drive the balance negative, and that
// asymmetry is intentional.
func (l *Ledger) ApplyLiquidityDelta(token, owner domain.Address, delta *big.Int, blockNumber uint64) {
	e := l.Entry(token, owner)
	e.LiquidityNet.Add(e.LiquidityNet, delta)
	l.recompute(e)
	l.forwardFill(e, blockNumber)
}

// CorrectSnapshot subtracts amount from one snapshot slot of (token, owner).
// Used by the liquidity tracker's out-of-range correction pass; other
// boundaries are unaffected.
func (l *Ledger) CorrectSnapshot(token, owner domain.Address, snapshotIndex int, amount *big.Int) {
	e := l.Entry(token, owner)
	slot := e.NetBalanceAtSnapshots[snapshotIndex]
	slot.Sub(slot, amount)
}

// recompute derives the current balance: the transfer-path net floors at
// zero, the liquidity-path net does not.
func (l *Ledger) recompute(e *AccountTokenBalance) {
	net := new(big.Int).Sub(e.TransfersInFromApproved, e.TransfersOut)
	if net.Sign() < 0 {
		net.SetInt64(0)
	}
	e.CurrentNetBalance = net.Add(net, e.LiquidityNet)
}

// forwardFill writes the current balance into every snapshot slot whose
// boundary has not yet closed (boundary >= event block). Because events
// arrive in ascending block order, each slot ends the run holding the
// balance at its boundary.
func (l *Ledger) forwardFill(e *AccountTokenBalance, blockNumber uint64) {
	for i, boundary := range l.snapshots {
		if blockNumber <= boundary {
			e.NetBalanceAtSnapshots[i] = new(big.Int).Set(e.CurrentNetBalance)
		}
	}
}

func newEntry(snapshotCount int) *AccountTokenBalance {
	e := &AccountTokenBalance{
		TransfersInFromApproved: new(big.Int),
		TransfersOut:            new(big.Int),
		LiquidityNet:            new(big.Int),
		CurrentNetBalance:       new(big.Int),
		NetBalanceAtSnapshots:   make([]*big.Int, snapshotCount),
	}
	for i := range e.NetBalanceAtSnapshots {
		e.NetBalanceAtSnapshots[i] = new(big.Int)
	}
	return e
}

func sortAddresses(addrs []domain.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}
