// Package ingestion parses settlement input files: transfer and liquidity
// event CSVs, whitespace-separated report pairs, and JSON address lists (the
// approved-source allow-list and the range-correction pool list).
// Malformed records are fatal; a settlement run must never proceed on a
// partially read event log.
package ingestion

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"token-reward-lab/internal/domain"
)

// Transfer CSV columns.
const (
	transferColFrom = iota
	transferColTo
	transferColValue
	transferColBlockNumber
	transferColTimestamp
	transferColToken
	transferColCount
)

// Liquidity CSV columns. The last five are empty for non-concentrated events.
const (
	liqColToken = iota
	liqColLP
	liqColOwner
	liqColChangeType
	liqColLiquidityChange
	liqColDepositedChange
	liqColBlockNumber
	liqColTimestamp
	liqColPositionID
	liqColPool
	liqColFee
	liqColLowerTick
	liqColUpperTick
	liqColCount
)

// ParseTransfers reads a transfer event CSV. A leading header row is skipped.
// Log indexes are assigned in file order within each block's original
// position, preserving the log's ordering for replay.
func ParseTransfers(r io.Reader) ([]*domain.Transfer, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = transferColCount

	var transfers []*domain.Transfer
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("transfers: %w", err)
		}
		line++
		if line == 1 && record[transferColFrom] == "from" {
			continue
		}

		from, err := domain.ParseAddress(record[transferColFrom])
		if err != nil {
			return nil, fmt.Errorf("transfers line %d: from: %w", line, err)
		}
		to, err := domain.ParseAddress(record[transferColTo])
		if err != nil {
			return nil, fmt.Errorf("transfers line %d: to: %w", line, err)
		}
		token, err := domain.ParseAddress(record[transferColToken])
		if err != nil {
			return nil, fmt.Errorf("transfers line %d: tokenAddress: %w", line, err)
		}
		value, err := parseBigInt(record[transferColValue])
		if err != nil {
			return nil, fmt.Errorf("transfers line %d: value: %w", line, err)
		}
		if value.Sign() < 0 {
			return nil, fmt.Errorf("transfers line %d: value: negative amount %s", line, value)
		}
		blockNumber, err := strconv.ParseUint(record[transferColBlockNumber], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("transfers line %d: blockNumber: %w", line, err)
		}
		timestamp, err := strconv.ParseInt(record[transferColTimestamp], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("transfers line %d: timestamp: %w", line, err)
		}

		transfers = append(transfers, &domain.Transfer{
			Token:       token,
			From:        from,
			To:          to,
			Value:       value,
			BlockNumber: blockNumber,
			Timestamp:   timestamp,
			LogIndex:    uint32(len(transfers)),
		})
	}

	return transfers, nil
}

// ParseLiquidityChanges reads an LP event CSV. A leading header row is
// skipped. The five concentrated-position columns must be all present or all
// empty; mixed rows are malformed.
func ParseLiquidityChanges(r io.Reader) ([]*domain.LiquidityChange, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = liqColCount

	var events []*domain.LiquidityChange
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("liquidity: %w", err)
		}
		line++
		if line == 1 && record[liqColToken] == "tokenAddress" {
			continue
		}

		ev, err := parseLiquidityRecord(record, uint32(len(events)))
		if err != nil {
			return nil, fmt.Errorf("liquidity line %d: %w", line, err)
		}
		events = append(events, ev)
	}

	return events, nil
}

func parseLiquidityRecord(record []string, logIndex uint32) (*domain.LiquidityChange, error) {
	token, err := domain.ParseAddress(record[liqColToken])
	if err != nil {
		return nil, fmt.Errorf("tokenAddress: %w", err)
	}
	lp, err := domain.ParseAddress(record[liqColLP])
	if err != nil {
		return nil, fmt.Errorf("lpAddress: %w", err)
	}
	owner, err := domain.ParseAddress(record[liqColOwner])
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}

	changeType := record[liqColChangeType]
	switch changeType {
	case domain.LiquidityChangeDeposit, domain.LiquidityChangeTransfer, domain.LiquidityChangeWithdraw:
	default:
		return nil, fmt.Errorf("changeType: unknown value %q", changeType)
	}

	liquidityChange, err := parseBigInt(record[liqColLiquidityChange])
	if err != nil {
		return nil, fmt.Errorf("liquidityChange: %w", err)
	}
	depositedChange, err := parseBigInt(record[liqColDepositedChange])
	if err != nil {
		return nil, fmt.Errorf("depositedBalanceChange: %w", err)
	}
	blockNumber, err := strconv.ParseUint(record[liqColBlockNumber], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("blockNumber: %w", err)
	}
	timestamp, err := strconv.ParseInt(record[liqColTimestamp], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}

	ev := &domain.LiquidityChange{
		Token:                  token,
		LP:                     lp,
		Owner:                  owner,
		ChangeType:             changeType,
		LiquidityChange:        liquidityChange,
		DepositedBalanceChange: depositedChange,
		BlockNumber:            blockNumber,
		Timestamp:              timestamp,
		LogIndex:               logIndex,
	}

	concentratedCols := record[liqColPositionID:liqColCount]
	if allEmpty(concentratedCols) {
		return ev, nil
	}
	if anyEmpty(concentratedCols) {
		return nil, fmt.Errorf("concentrated columns must be all present or all empty")
	}

	positionID, err := strconv.ParseUint(record[liqColPositionID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("tokenId: %w", err)
	}
	pool, err := domain.ParseAddress(record[liqColPool])
	if err != nil {
		return nil, fmt.Errorf("poolAddress: %w", err)
	}
	fee, err := strconv.ParseUint(record[liqColFee], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}
	lowerTick, err := strconv.ParseInt(record[liqColLowerTick], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("lowerTick: %w", err)
	}
	upperTick, err := strconv.ParseInt(record[liqColUpperTick], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("upperTick: %w", err)
	}
	if lowerTick > upperTick {
		return nil, fmt.Errorf("tick range inverted: [%d, %d]", lowerTick, upperTick)
	}

	ev.Concentrated = true
	ev.PositionID = positionID
	ev.Pool = pool
	ev.Fee = uint32(fee)
	ev.LowerTick = int32(lowerTick)
	ev.UpperTick = int32(upperTick)
	return ev, nil
}

// ParseReports reads whitespace-separated "reporter cheater" pairs, one per
// line. Blank lines and lines starting with # are ignored. A repeated pair is
// malformed input: each report stacks one penalty, so a duplicate would
// either double-punish or be silently collapsed by the append-only store.
func ParseReports(r io.Reader) ([]*domain.Report, error) {
	scanner := bufio.NewScanner(r)
	var reports []*domain.Report
	seen := make(map[domain.Report]struct{})
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("reports line %d: expected 2 fields, got %d", line, len(fields))
		}
		reporter, err := domain.ParseAddress(fields[0])
		if err != nil {
			return nil, fmt.Errorf("reports line %d: reporter: %w", line, err)
		}
		cheater, err := domain.ParseAddress(fields[1])
		if err != nil {
			return nil, fmt.Errorf("reports line %d: cheater: %w", line, err)
		}
		pair := domain.Report{Reporter: reporter, Cheater: cheater}
		if _, dup := seen[pair]; dup {
			return nil, fmt.Errorf("reports line %d: duplicate pair %s %s", line, reporter, cheater)
		}
		seen[pair] = struct{}{}
		reports = append(reports, &pair)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reports: %w", err)
	}

	return reports, nil
}

// ParseAddressList reads a JSON array of hex addresses. Both the
// approved-source allow-list and the range-correction pool list use this
// format.
func ParseAddressList(r io.Reader) ([]domain.Address, error) {
	var raw []string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("address list: %w", err)
	}

	addrs := make([]domain.Address, len(raw))
	for i, s := range raw {
		addr, err := domain.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("address list[%d]: %w", i, err)
		}
		addrs[i] = addr
	}
	return addrs, nil
}

// LoadTransfersFile parses a transfer CSV from disk.
func LoadTransfersFile(path string) ([]*domain.Transfer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTransfers(f)
}

// LoadLiquidityChangesFile parses an LP event CSV from disk.
func LoadLiquidityChangesFile(path string) ([]*domain.LiquidityChange, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseLiquidityChanges(f)
}

// LoadReportsFile parses a report pair file from disk.
func LoadReportsFile(path string) ([]*domain.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseReports(f)
}

// LoadAddressListFile parses a JSON address-list file from disk.
func LoadAddressListFile(path string) ([]domain.Address, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseAddressList(f)
}

func parseBigInt(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("malformed integer %q", s)
	}
	return v, nil
}

func allEmpty(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}

func anyEmpty(fields []string) bool {
	for _, f := range fields {
		if f == "" {
			return true
		}
	}
	return false
}
