package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/storage"
)

// ReportStore implements storage.ReportStore using PostgreSQL.
type ReportStore struct {
	pool *Pool
}

// NewReportStore creates a new ReportStore.
func NewReportStore(pool *Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

const insertReportQuery = `
	INSERT INTO reports (reporter, cheater) VALUES ($1, $2)
`

// Insert adds a new report. Returns ErrDuplicateKey if (reporter, cheater) exists.
func (s *ReportStore) Insert(ctx context.Context, r *domain.Report) error {
	if r == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertReportQuery, r.Reporter.String(), r.Cheater.String())
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// InsertBulk adds multiple reports atomically. Fails entire batch on any duplicate.
func (s *ReportStore) InsertBulk(ctx context.Context, reports []*domain.Report) error {
	if len(reports) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range reports {
		if r == nil {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertReportQuery, r.Reporter.String(), r.Cheater.String())
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert report in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAll retrieves every report, ordered by reporter then cheater.
func (s *ReportStore) GetAll(ctx context.Context) ([]*domain.Report, error) {
	query := `
		SELECT reporter, cheater
		FROM reports
		ORDER BY reporter ASC, cheater ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all reports: %w", err)
	}
	defer rows.Close()

	return scanReports(rows)
}

// GetByCheater retrieves all reports filed against an address.
func (s *ReportStore) GetByCheater(ctx context.Context, cheater domain.Address) ([]*domain.Report, error) {
	query := `
		SELECT reporter, cheater
		FROM reports
		WHERE cheater = $1
		ORDER BY reporter ASC
	`

	rows, err := s.pool.Query(ctx, query, cheater.String())
	if err != nil {
		return nil, fmt.Errorf("get reports by cheater: %w", err)
	}
	defer rows.Close()

	return scanReports(rows)
}

// scanReports scans multiple rows into a slice of Report.
func scanReports(rows pgx.Rows) ([]*domain.Report, error) {
	var reports []*domain.Report

	for rows.Next() {
		var reporter, cheater string
		if err := rows.Scan(&reporter, &cheater); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}

		var (
			r   domain.Report
			err error
		)
		if r.Reporter, err = domain.ParseAddress(reporter); err != nil {
			return nil, fmt.Errorf("parse stored reporter: %w", err)
		}
		if r.Cheater, err = domain.ParseAddress(cheater); err != nil {
			return nil, fmt.Errorf("parse stored cheater: %w", err)
		}

		reports = append(reports, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}

	return reports, nil
}
