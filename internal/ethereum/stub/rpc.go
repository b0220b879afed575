package stub

import (
	"context"
	"encoding/hex"
	"fmt"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/ethereum"
)

// call identifies one stubbed contract call.
type call struct {
	To    domain.Address
	Data  string // hex-encoded calldata
	Block uint64
}

// ContractCaller implements ethereum.ContractCaller for testing.
type ContractCaller struct {
	Returns map[call][]byte
	Errors  map[call]error
	Calls   int // total calls observed, including failing ones
}

// NewContractCaller creates a new stub contract caller.
func NewContractCaller() *ContractCaller {
	return &ContractCaller{
		Returns: make(map[call][]byte),
		Errors:  make(map[call]error),
	}
}

// Compile-time interface check.
var _ ethereum.ContractCaller = (*ContractCaller)(nil)

// SetReturn registers return data for a (contract, calldata, block) triple.
func (c *ContractCaller) SetReturn(to domain.Address, data []byte, block uint64, ret []byte) {
	c.Returns[call{To: to, Data: hex.EncodeToString(data), Block: block}] = ret
}

// SetError registers an error for a (contract, calldata, block) triple.
func (c *ContractCaller) SetError(to domain.Address, data []byte, block uint64, err error) {
	c.Errors[call{To: to, Data: hex.EncodeToString(data), Block: block}] = err
}

// CallContract returns the stubbed result for the call.
func (c *ContractCaller) CallContract(_ context.Context, to domain.Address, data []byte, block uint64) ([]byte, error) {
	c.Calls++
	k := call{To: to, Data: hex.EncodeToString(data), Block: block}
	if err, ok := c.Errors[k]; ok {
		return nil, err
	}
	if ret, ok := c.Returns[k]; ok {
		return ret, nil
	}
	return nil, fmt.Errorf("stub: no return registered for %s at block %d", to, block)
}
