package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/storage"
)

// LiquidityEventStore implements storage.LiquidityEventStore using PostgreSQL.
type LiquidityEventStore struct {
	pool *Pool
}

// NewLiquidityEventStore creates a new LiquidityEventStore.
func NewLiquidityEventStore(pool *Pool) *LiquidityEventStore {
	return &LiquidityEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LiquidityEventStore = (*LiquidityEventStore)(nil)

const insertLiquidityEventQuery = `
	INSERT INTO liquidity_events (
		token, lp_address, owner, change_type, liquidity_change, deposited_balance_change,
		block_number, timestamp, log_index, concentrated, position_id, pool_address, fee,
		lower_tick, upper_tick
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`

// Insert adds a new liquidity event. Returns ErrDuplicateKey if exists.
func (s *LiquidityEventStore) Insert(ctx context.Context, e *domain.LiquidityChange) error {
	if e == nil || e.DepositedBalanceChange == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertLiquidityEventQuery, liquidityEventArgs(e)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert liquidity event: %w", err)
	}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *LiquidityEventStore) InsertBulk(ctx context.Context, events []*domain.LiquidityChange) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range events {
		if e == nil || e.DepositedBalanceChange == nil {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertLiquidityEventQuery, liquidityEventArgs(e)...)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert liquidity event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func liquidityEventArgs(e *domain.LiquidityChange) []any {
	liquidityChange := "0"
	if e.LiquidityChange != nil {
		liquidityChange = e.LiquidityChange.String()
	}
	return []any{
		e.Token.String(),
		e.LP.String(),
		e.Owner.String(),
		e.ChangeType,
		liquidityChange,
		e.DepositedBalanceChange.String(),
		e.BlockNumber,
		e.Timestamp,
		e.LogIndex,
		e.Concentrated,
		e.PositionID,
		e.Pool.String(),
		e.Fee,
		e.LowerTick,
		e.UpperTick,
	}
}

const selectLiquidityEventColumns = `
	SELECT token, lp_address, owner, change_type, liquidity_change::text,
	       deposited_balance_change::text, block_number, timestamp, log_index,
	       concentrated, position_id, pool_address, fee, lower_tick, upper_tick
	FROM liquidity_events
`

// GetByToken retrieves all events of a token, ordered by block_number ASC, log_index ASC.
func (s *LiquidityEventStore) GetByToken(ctx context.Context, token domain.Address) ([]*domain.LiquidityChange, error) {
	query := selectLiquidityEventColumns + `
		WHERE token = $1
		ORDER BY block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, token.String())
	if err != nil {
		return nil, fmt.Errorf("get liquidity events by token: %w", err)
	}
	defer rows.Close()

	return scanLiquidityEvents(rows)
}

// GetByBlockRange retrieves events of a token within [start, end] (inclusive).
func (s *LiquidityEventStore) GetByBlockRange(ctx context.Context, token domain.Address, start, end uint64) ([]*domain.LiquidityChange, error) {
	query := selectLiquidityEventColumns + `
		WHERE token = $1 AND block_number >= $2 AND block_number <= $3
		ORDER BY block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, token.String(), start, end)
	if err != nil {
		return nil, fmt.Errorf("get liquidity events by block range: %w", err)
	}
	defer rows.Close()

	return scanLiquidityEvents(rows)
}

// scanLiquidityEvents scans multiple rows into a slice of LiquidityChange.
func scanLiquidityEvents(rows pgx.Rows) ([]*domain.LiquidityChange, error) {
	var events []*domain.LiquidityChange

	for rows.Next() {
		var (
			e                      domain.LiquidityChange
			token, lp, owner, pool string
			liqChange, depChange   string
		)

		err := rows.Scan(&token, &lp, &owner, &e.ChangeType, &liqChange, &depChange,
			&e.BlockNumber, &e.Timestamp, &e.LogIndex, &e.Concentrated,
			&e.PositionID, &pool, &e.Fee, &e.LowerTick, &e.UpperTick)
		if err != nil {
			return nil, fmt.Errorf("scan liquidity event row: %w", err)
		}

		if e.Token, err = domain.ParseAddress(token); err != nil {
			return nil, fmt.Errorf("parse stored token: %w", err)
		}
		if e.LP, err = domain.ParseAddress(lp); err != nil {
			return nil, fmt.Errorf("parse stored lp address: %w", err)
		}
		if e.Owner, err = domain.ParseAddress(owner); err != nil {
			return nil, fmt.Errorf("parse stored owner: %w", err)
		}
		if e.Concentrated {
			if e.Pool, err = domain.ParseAddress(pool); err != nil {
				return nil, fmt.Errorf("parse stored pool address: %w", err)
			}
		}
		lc, ok := new(big.Int).SetString(liqChange, 10)
		if !ok {
			return nil, fmt.Errorf("parse stored liquidity change %q", liqChange)
		}
		dc, ok := new(big.Int).SetString(depChange, 10)
		if !ok {
			return nil, fmt.Errorf("parse stored deposited balance change %q", depChange)
		}
		e.LiquidityChange = lc
		e.DepositedBalanceChange = dc

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liquidity event rows: %w", err)
	}

	return events, nil
}
