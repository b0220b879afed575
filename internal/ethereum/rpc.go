package ethereum

import (
	"context"
	"errors"
	"strings"

	"token-reward-lab/internal/domain"
)

// ContractCaller defines the read-only EVM contract call interface.
type ContractCaller interface {
	// CallContract executes eth_call against the contract at `to` with the
	// given calldata, at the given historical block (0 means latest).
	// Returns the raw return data.
	CallContract(ctx context.Context, to domain.Address, data []byte, blockNumber uint64) ([]byte, error)
}

// ErrEmptyReturn is returned when a call succeeds but yields no return data,
// which for a view function means the contract does not implement it.
var ErrEmptyReturn = errors.New("empty return data")

// noMethodSignatures are error message fragments that indicate the target
// contract has no such function, as opposed to a transient transport failure.
var noMethodSignatures = []string{
	"execution reverted",
	"invalid opcode",
	"invalid parameters",
	"out of gas",
}

// IsNoMethodError reports whether err indicates the contract does not expose
// the called function. Such failures are permanent and must not be retried.
func IsNoMethodError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyReturn) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range noMethodSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
