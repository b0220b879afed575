package domain

import "math/big"

// Transfer represents a single on-chain token transfer event.
// Inputs are pre-sorted by block number and immutable for a run.
type Transfer struct {
	Token       Address  // token contract address
	From        Address  // sender
	To          Address  // receiver
	Value       *big.Int // transferred amount, non-negative
	BlockNumber uint64   // block the transfer was mined in
	Timestamp   int64    // Unix timestamp in seconds
	LogIndex    uint32   // index of the log within the block
}

// TransferDetail is an audit-log entry kept per account. It feeds the
// settlement report only, never the reward math.
type TransferDetail struct {
	Counterparty Address
	Value        *big.Int
	BlockNumber  uint64
	Approved     bool // whether the sending side was an approved source
}
