package clickhouse

import (
	"context"
	"fmt"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/storage"
)

// RewardRowStore implements storage.RewardRowStore using ClickHouse.
// MergeTree does not enforce uniqueness at insert time, so append-only
// semantics are guarded by explicit existence checks before each insert.
type RewardRowStore struct {
	conn *Conn
}

// NewRewardRowStore creates a new RewardRowStore.
func NewRewardRowStore(conn *Conn) *RewardRowStore {
	return &RewardRowStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RewardRowStore = (*RewardRowStore)(nil)

const insertRewardRowQuery = `
	INSERT INTO reward_rows (
		epoch_id, token, account, average, penalty, bounty, final, reward
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Insert adds a new reward row. Returns ErrDuplicateKey if (epoch_id, token, account) exists.
func (s *RewardRowStore) Insert(ctx context.Context, row *domain.RewardRow) error {
	if row == nil || row.EpochID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, row.EpochID, row.Token, row.Account)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	err = s.conn.Exec(ctx, insertRewardRowQuery,
		row.EpochID, row.Token, row.Account,
		row.Average, row.Penalty, row.Bounty, row.Final, row.Reward,
	)
	if err != nil {
		return fmt.Errorf("insert reward row: %w", err)
	}
	return nil
}

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *RewardRowStore) InsertBulk(ctx context.Context, rows []*domain.RewardRow) error {
	if len(rows) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row == nil || row.EpochID == "" {
			return storage.ErrInvalidInput
		}
		key := row.EpochID + "|" + row.Token + "|" + row.Account
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, row := range rows {
		exists, err := s.exists(ctx, row.EpochID, row.Token, row.Account)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO reward_rows (
			epoch_id, token, account, average, penalty, bounty, final, reward
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, row := range rows {
		err = batch.Append(
			row.EpochID, row.Token, row.Account,
			row.Average, row.Penalty, row.Bounty, row.Final, row.Reward,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByEpoch retrieves all rows settled in an epoch, ordered by token then account.
func (s *RewardRowStore) GetByEpoch(ctx context.Context, epochID string) ([]*domain.RewardRow, error) {
	query := `
		SELECT epoch_id, token, account, average, penalty, bounty, final, reward
		FROM reward_rows
		WHERE epoch_id = ?
		ORDER BY token ASC, account ASC
	`

	rows, err := s.conn.Query(ctx, query, epochID)
	if err != nil {
		return nil, fmt.Errorf("get reward rows by epoch: %w", err)
	}
	defer rows.Close()

	return scanRewardRows(rows)
}

// GetByAccount retrieves all rows for an account across epochs.
func (s *RewardRowStore) GetByAccount(ctx context.Context, account string) ([]*domain.RewardRow, error) {
	query := `
		SELECT epoch_id, token, account, average, penalty, bounty, final, reward
		FROM reward_rows
		WHERE account = ?
		ORDER BY epoch_id ASC, token ASC
	`

	rows, err := s.conn.Query(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("get reward rows by account: %w", err)
	}
	defer rows.Close()

	return scanRewardRows(rows)
}

// exists checks whether a row with this composite key is already stored.
func (s *RewardRowStore) exists(ctx context.Context, epochID, token, account string) (bool, error) {
	query := `
		SELECT count() FROM reward_rows
		WHERE epoch_id = ? AND token = ? AND account = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, epochID, token, account).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanRewardRows scans multiple rows into a slice of RewardRow.
func scanRewardRows(rows rowScanner) ([]*domain.RewardRow, error) {
	var result []*domain.RewardRow

	for rows.Next() {
		var r domain.RewardRow
		err := rows.Scan(
			&r.EpochID, &r.Token, &r.Account,
			&r.Average, &r.Penalty, &r.Bounty, &r.Final, &r.Reward,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reward row: %w", err)
		}
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reward rows: %w", err)
	}

	return result, nil
}
