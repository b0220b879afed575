package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"token-reward-lab/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the reward_rows table by applying the
// embedded SQL files in lexical order. The driver does not support multiquery
// Exec, so each file is split on semicolons and the statements run one by
// one; empty statements are skipped.
func RunClickhouseMigrations(ctx context.Context, conn *clickhouse.Conn) error {
	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		return fmt.Errorf("read embedded clickhouse migrations: %w", err)
	}

	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		for _, stmt := range strings.Split(string(data), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
	}

	return nil
}
