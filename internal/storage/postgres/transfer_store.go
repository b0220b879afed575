package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/storage"
)

// TransferStore implements storage.TransferStore using PostgreSQL.
// Amounts are stored as NUMERIC(78,0) and crossed the wire as decimal
// strings, preserving full uint256 precision.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

const insertTransferQuery = `
	INSERT INTO transfers (
		token, from_address, to_address, value, block_number, timestamp, log_index
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// Insert adds a new transfer. Returns ErrDuplicateKey if exists.
func (s *TransferStore) Insert(ctx context.Context, t *domain.Transfer) error {
	if t == nil || t.Value == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTransferQuery,
		t.Token.String(),
		t.From.String(),
		t.To.String(),
		t.Value.String(),
		t.BlockNumber,
		t.Timestamp,
		t.LogIndex,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// InsertBulk adds multiple transfers atomically. Fails entire batch on any duplicate.
func (s *TransferStore) InsertBulk(ctx context.Context, transfers []*domain.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range transfers {
		if t == nil || t.Value == nil {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertTransferQuery,
			t.Token.String(),
			t.From.String(),
			t.To.String(),
			t.Value.String(),
			t.BlockNumber,
			t.Timestamp,
			t.LogIndex,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert transfer in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

const selectTransferColumns = `
	SELECT token, from_address, to_address, value::text, block_number, timestamp, log_index
	FROM transfers
`

// GetByToken retrieves all transfers of a token, ordered by block_number ASC, log_index ASC.
func (s *TransferStore) GetByToken(ctx context.Context, token domain.Address) ([]*domain.Transfer, error) {
	query := selectTransferColumns + `
		WHERE token = $1
		ORDER BY block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, token.String())
	if err != nil {
		return nil, fmt.Errorf("get transfers by token: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// GetByBlockRange retrieves transfers of a token within [start, end] (inclusive).
func (s *TransferStore) GetByBlockRange(ctx context.Context, token domain.Address, start, end uint64) ([]*domain.Transfer, error) {
	query := selectTransferColumns + `
		WHERE token = $1 AND block_number >= $2 AND block_number <= $3
		ORDER BY block_number ASC, log_index ASC
	`

	rows, err := s.pool.Query(ctx, query, token.String(), start, end)
	if err != nil {
		return nil, fmt.Errorf("get transfers by block range: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// scanTransfers scans multiple rows into a slice of Transfer.
func scanTransfers(rows pgx.Rows) ([]*domain.Transfer, error) {
	var transfers []*domain.Transfer

	for rows.Next() {
		var (
			t                      domain.Transfer
			token, from, to, value string
		)

		err := rows.Scan(&token, &from, &to, &value, &t.BlockNumber, &t.Timestamp, &t.LogIndex)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}

		if t.Token, err = domain.ParseAddress(token); err != nil {
			return nil, fmt.Errorf("parse stored token: %w", err)
		}
		if t.From, err = domain.ParseAddress(from); err != nil {
			return nil, fmt.Errorf("parse stored from address: %w", err)
		}
		if t.To, err = domain.ParseAddress(to); err != nil {
			return nil, fmt.Errorf("parse stored to address: %w", err)
		}
		v, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return nil, fmt.Errorf("parse stored value %q", value)
		}
		t.Value = v

		transfers = append(transfers, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return transfers, nil
}
