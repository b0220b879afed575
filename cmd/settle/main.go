// Package main provides the settlement entry point.
// Executes: ingestion → replay → range correction → eligibility → allocation → reporting
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"token-reward-lab/internal/approval"
	"token-reward-lab/internal/domain"
	"token-reward-lab/internal/epoch"
	"token-reward-lab/internal/ethereum"
	"token-reward-lab/internal/ingestion"
	"token-reward-lab/internal/oracle"
	"token-reward-lab/internal/reporting"
	"token-reward-lab/internal/settlement"
	"token-reward-lab/internal/storage"
	"token-reward-lab/internal/storage/clickhouse"
	"token-reward-lab/internal/storage/memory"
	"token-reward-lab/internal/storage/migrations"
	"token-reward-lab/internal/storage/postgres"
)

func main() {
	// Input files
	transfersPath := flag.String("transfers", "", "Transfer event CSV (required)")
	liquidityPath := flag.String("liquidity", "", "Liquidity event CSV")
	reportsPath := flag.String("reports", "", "Cheating report pairs file")
	approvedSourcesPath := flag.String("approved-sources", "", "Approved-source allow-list JSON")
	poolsPath := flag.String("pools", "", "JSON list of pools to query for tick corrections (default: all pools seen in position events)")

	// Round parameters
	tokensFlag := flag.String("tokens", "", "Comma-separated eligible token addresses (required)")
	factoriesFlag := flag.String("factories", "", "Comma-separated approved factory addresses")
	rewardPoolFlag := flag.String("pool", "", "Reward pool size in base units (required)")
	epochID := flag.String("epoch", "", "Epoch identifier, e.g. 2026-08 (required)")

	// Snapshot selection
	startBlock := flag.Uint64("start-block", 0, "First block of the epoch window")
	endBlock := flag.Uint64("end-block", 0, "Last block of the epoch window")
	startTime := flag.Int64("start-time", 0, "Unix seconds of the first block")
	endTime := flag.Int64("end-time", 0, "Unix seconds of the last block")
	seed := flag.Int64("seed", 0, "Snapshot selection seed")
	snapshotCount := flag.Int("snapshots", 3, "Number of snapshot boundaries to draw")

	// Infrastructure
	rpcEndpoint := flag.String("rpc", "", "Ethereum JSON-RPC endpoint for factory() and slot0() lookups")
	postgresDSN := flag.String("postgres-dsn", "", "Optional Postgres DSN for event persistence")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "Optional ClickHouse DSN for reward row persistence")
	outputDir := flag.String("output-dir", "out", "Output directory for generated files")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling settlement...\n", sig)
		cancel()
	}()

	if *transfersPath == "" || *tokensFlag == "" || *rewardPoolFlag == "" || *epochID == "" {
		fmt.Fprintln(os.Stderr, "Required flags: -transfers, -tokens, -pool, -epoch")
		flag.Usage()
		os.Exit(2)
	}

	tokens, err := parseAddressList(*tokensFlag)
	if err != nil {
		fatal("parse -tokens: %v", err)
	}
	factories, err := parseAddressList(*factoriesFlag)
	if err != nil {
		fatal("parse -factories: %v", err)
	}
	rewardPool, ok := new(big.Int).SetString(*rewardPoolFlag, 10)
	if !ok || rewardPool.Sign() <= 0 {
		fatal("-pool must be a positive integer, got %q", *rewardPoolFlag)
	}

	snapshots, err := epoch.Snapshots(epoch.Epoch{
		ID:            *epochID,
		StartBlock:    *startBlock,
		EndBlock:      *endBlock,
		StartTime:     *startTime,
		EndTime:       *endTime,
		Seed:          *seed,
		SnapshotCount: *snapshotCount,
	})
	if err != nil {
		fatal("derive snapshots: %v", err)
	}
	snapshotBlocks := epoch.Blocks(snapshots)
	fmt.Printf("=== Settlement %s ===\n", *epochID)
	fmt.Printf("Snapshot blocks: %v\n", snapshotBlocks)

	// Load inputs
	transfers, err := ingestion.LoadTransfersFile(*transfersPath)
	if err != nil {
		fatal("load transfers: %v", err)
	}
	var liquidityChanges []*domain.LiquidityChange
	if *liquidityPath != "" {
		if liquidityChanges, err = ingestion.LoadLiquidityChangesFile(*liquidityPath); err != nil {
			fatal("load liquidity events: %v", err)
		}
	}
	var reports []*domain.Report
	if *reportsPath != "" {
		if reports, err = ingestion.LoadReportsFile(*reportsPath); err != nil {
			fatal("load reports: %v", err)
		}
	}
	var allowedSources []domain.Address
	if *approvedSourcesPath != "" {
		if allowedSources, err = ingestion.LoadAddressListFile(*approvedSourcesPath); err != nil {
			fatal("load approved sources: %v", err)
		}
	}
	var correctionPools []domain.Address
	if *poolsPath != "" {
		if correctionPools, err = ingestion.LoadAddressListFile(*poolsPath); err != nil {
			fatal("load pools: %v", err)
		}
	}

	// Event stores: Postgres when configured, in-memory otherwise.
	stores, storesCleanup, err := buildEventStores(ctx, *postgresDSN)
	if err != nil {
		fatal("%v", err)
	}
	defer storesCleanup()

	// A duplicate key here means the input overlaps events already persisted
	// for another run. The stores are append-only and the batch inserts are
	// atomic, so continuing would settle against a partial event set.
	if err := stores.transfers.InsertBulk(ctx, transfers); err != nil {
		fatal("persist transfers: %v", err)
	}
	if err := stores.liquidity.InsertBulk(ctx, liquidityChanges); err != nil {
		fatal("persist liquidity events: %v", err)
	}
	if err := stores.reports.InsertBulk(ctx, reports); err != nil {
		fatal("persist reports: %v", err)
	}

	// RPC-backed lookups, or a dead caller when no endpoint is configured.
	var caller ethereum.ContractCaller = noRPC{}
	if *rpcEndpoint != "" {
		caller = ethereum.NewHTTPClient(*rpcEndpoint)
	}
	resolver := approval.NewResolver(caller, allowedSources, factories)
	tickOracle := oracle.NewRPCOracle(caller)

	runner := settlement.New(settlement.Options{
		TransferStore:       stores.transfers,
		LiquidityEventStore: stores.liquidity,
		ReportStore:         stores.reports,
		Approver:            resolver,
		Oracle:              tickOracle,
		Tokens:              tokens,
		SnapshotBlocks:      snapshotBlocks,
		RewardPool:          rewardPool,
		Pools:               correctionPools,
		Verbose:             *verbose,
	})

	result, err := runner.Run(ctx)
	if err != nil {
		fatal("settlement failed: %v", err)
	}

	fmt.Printf("Settlement completed:\n")
	fmt.Printf("  Transfers: %d\n", result.TransfersApplied)
	fmt.Printf("  Liquidity events: %d\n", result.LiquidityApplied)
	fmt.Printf("  Reports: %d\n", result.ReportsApplied)
	fmt.Printf("  Distributed: %s of %s\n", result.Rewards.TotalDistributed(), rewardPool)

	// Render and write outputs
	report := reporting.NewGenerator().Generate(*epochID, rewardPool, result.Summaries, result.Rewards)
	if err := writeOutputs(*outputDir, report); err != nil {
		fatal("write outputs: %v", err)
	}

	// Persist reward rows when ClickHouse is configured
	if *clickhouseDSN != "" {
		rows := reporting.RewardRows(*epochID, result.Summaries, result.Rewards)
		if err := persistRewardRows(ctx, *clickhouseDSN, rows); err != nil {
			fatal("persist reward rows: %v", err)
		}
		fmt.Printf("  Persisted %d reward rows\n", len(rows))
	}

	fmt.Println("\nOutputs:")
	fmt.Printf("  - %s/settlement_%s.csv\n", *outputDir, *epochID)
	fmt.Printf("  - %s/rewards_%s.csv\n", *outputDir, *epochID)
	fmt.Printf("  - %s/REPORT_%s.md\n", *outputDir, *epochID)
}

// eventStores groups the three input stores behind their interfaces.
type eventStores struct {
	transfers storage.TransferStore
	liquidity storage.LiquidityEventStore
	reports   storage.ReportStore
}

// buildEventStores wires Postgres-backed stores when a DSN is given and
// in-memory stores otherwise.
func buildEventStores(ctx context.Context, dsn string) (*eventStores, func(), error) {
	if dsn == "" {
		return &eventStores{
			transfers: memory.NewTransferStore(),
			liquidity: memory.NewLiquidityEventStore(),
			reports:   memory.NewReportStore(),
		}, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}
	return &eventStores{
		transfers: postgres.NewTransferStore(pool),
		liquidity: postgres.NewLiquidityEventStore(pool),
		reports:   postgres.NewReportStore(pool),
	}, pool.Close, nil
}

// persistRewardRows writes the settled rows to ClickHouse, applying
// migrations first.
func persistRewardRows(ctx context.Context, dsn string, rows []*domain.RewardRow) error {
	conn, err := clickhouse.NewConn(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect clickhouse: %w", err)
	}
	defer conn.Close()

	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		return fmt.Errorf("run clickhouse migrations: %w", err)
	}

	if err := clickhouse.NewRewardRowStore(conn).InsertBulk(ctx, rows); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("epoch already settled: %w", err)
		}
		return err
	}
	return nil
}

// writeOutputs renders the settlement CSV, the reward CSV and the Markdown
// summary into outputDir.
func writeOutputs(outputDir string, report *reporting.SettlementReport) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	files := map[string]string{
		fmt.Sprintf("settlement_%s.csv", report.EpochID): reporting.RenderSettlementCSV(report),
		fmt.Sprintf("rewards_%s.csv", report.EpochID):    reporting.RenderRewardCSV(report),
		fmt.Sprintf("REPORT_%s.md", report.EpochID):      reporting.RenderMarkdown(report),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(outputDir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// parseAddressList splits a comma-separated address list.
func parseAddressList(s string) ([]domain.Address, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var addrs []domain.Address
	for _, part := range strings.Split(s, ",") {
		addr, err := domain.ParseAddress(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// noRPC is used when no -rpc endpoint is configured: every factory() and
// slot0() lookup behaves like a contract without the method, so approval
// falls back to the allow-lists and no range corrections are applied.
type noRPC struct{}

func (noRPC) CallContract(context.Context, domain.Address, []byte, uint64) ([]byte, error) {
	return nil, ethereum.ErrEmptyReturn
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
