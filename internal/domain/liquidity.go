package domain

import "math/big"

// Liquidity change type constants
const (
	LiquidityChangeDeposit  = "DEPOSIT"
	LiquidityChangeTransfer = "TRANSFER"
	LiquidityChangeWithdraw = "WITHDRAW"
)

// LiquidityChange represents an LP deposit/withdraw/transfer event.
// DepositedBalanceChange carries its own sign (positive for deposits,
// negative for withdrawals and transfers out) and is applied as supplied.
type LiquidityChange struct {
	Token                  Address  // program token the position is denominated in
	LP                     Address  // LP token / position contract address
	Owner                  Address  // position owner
	ChangeType             string   // "DEPOSIT" | "TRANSFER" | "WITHDRAW"
	LiquidityChange        *big.Int // raw liquidity units moved
	DepositedBalanceChange *big.Int // signed deposited-balance equivalent
	BlockNumber            uint64   // block the event was mined in
	Timestamp              int64    // Unix timestamp in seconds
	LogIndex               uint32   // index of the log within the block

	// Concentrated (V3) position fields; zero-valued for full-range events.
	Concentrated bool
	PositionID   uint64  // NFT token id of the position
	Pool         Address // pool the position belongs to
	Fee          uint32  // pool fee tier
	LowerTick    int32
	UpperTick    int32
}

// PositionKey identifies a concentrated-liquidity position track within one
// snapshot boundary.
type PositionKey struct {
	Token      Address
	Owner      Address
	Pool       Address
	PositionID uint64
}

// LiquidityPositionTrack accumulates the signed deposited-balance equivalent
// of one concentrated position credited to one snapshot boundary.
type LiquidityPositionTrack struct {
	Value     *big.Int // accumulated signed deposited-balance equivalent
	Pool      Address
	LowerTick int32
	UpperTick int32
}
