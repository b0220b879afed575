package storage

import (
	"context"

	"token-reward-lab/internal/domain"
)

// TransferStore provides access to token transfer event storage.
type TransferStore interface {
	// Insert adds a new transfer. Returns ErrDuplicateKey if (token, block_number, log_index) exists.
	Insert(ctx context.Context, t *domain.Transfer) error

	// InsertBulk adds multiple transfers atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, transfers []*domain.Transfer) error

	// GetByToken retrieves all transfers of a token, ordered by block_number ASC, log_index ASC.
	GetByToken(ctx context.Context, token domain.Address) ([]*domain.Transfer, error)

	// GetByBlockRange retrieves transfers of a token within [start, end] (inclusive),
	// ordered by block_number ASC, log_index ASC.
	GetByBlockRange(ctx context.Context, token domain.Address, start, end uint64) ([]*domain.Transfer, error)
}

// LiquidityEventStore provides access to LP deposit/withdraw event storage.
type LiquidityEventStore interface {
	// Insert adds a new liquidity event. Returns ErrDuplicateKey if (token, owner, block_number, log_index) exists.
	Insert(ctx context.Context, e *domain.LiquidityChange) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.LiquidityChange) error

	// GetByToken retrieves all events of a token, ordered by block_number ASC, log_index ASC.
	GetByToken(ctx context.Context, token domain.Address) ([]*domain.LiquidityChange, error)

	// GetByBlockRange retrieves events of a token within [start, end] (inclusive),
	// ordered by block_number ASC, log_index ASC.
	GetByBlockRange(ctx context.Context, token domain.Address, start, end uint64) ([]*domain.LiquidityChange, error)
}

// ReportStore provides access to cheating report storage.
type ReportStore interface {
	// Insert adds a new report. Returns ErrDuplicateKey if (reporter, cheater) exists.
	Insert(ctx context.Context, r *domain.Report) error

	// InsertBulk adds multiple reports atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, reports []*domain.Report) error

	// GetAll retrieves every report, ordered by reporter then cheater.
	GetAll(ctx context.Context) ([]*domain.Report, error)

	// GetByCheater retrieves all reports filed against an address.
	GetByCheater(ctx context.Context, cheater domain.Address) ([]*domain.Report, error)
}

// RewardRowStore provides access to settled reward row storage.
type RewardRowStore interface {
	// Insert adds a new reward row. Returns ErrDuplicateKey if (epoch_id, token, account) exists.
	Insert(ctx context.Context, row *domain.RewardRow) error

	// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, rows []*domain.RewardRow) error

	// GetByEpoch retrieves all rows settled in an epoch, ordered by token then account.
	GetByEpoch(ctx context.Context, epochID string) ([]*domain.RewardRow, error)

	// GetByAccount retrieves all rows for an account across epochs.
	GetByAccount(ctx context.Context, account string) ([]*domain.RewardRow, error)
}
