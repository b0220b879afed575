package ingestion

import (
	"strings"
	"testing"

	"token-reward-lab/internal/domain"
)

const transfersCSV = `from,to,value,blockNumber,timestamp,tokenAddress
0x00000000000000000000000000000000000000f1,0x0000000000000000000000000000000000000001,2500,100,1704067200,0x00000000000000000000000000000000000000aa
0x0000000000000000000000000000000000000001,0x0000000000000000000000000000000000000002,1000,150,1704067260,0x00000000000000000000000000000000000000aa
`

func TestParseTransfers(t *testing.T) {
	transfers, err := ParseTransfers(strings.NewReader(transfersCSV))
	if err != nil {
		t.Fatalf("ParseTransfers failed: %v", err)
	}
	if len(transfers) != 2 {
		t.Fatalf("Expected 2 transfers, got %d", len(transfers))
	}

	first := transfers[0]
	if first.Value.Int64() != 2500 {
		t.Errorf("value: expected 2500, got %s", first.Value)
	}
	if first.BlockNumber != 100 {
		t.Errorf("blockNumber: expected 100, got %d", first.BlockNumber)
	}
	if first.Token != domain.MustAddress("0x00000000000000000000000000000000000000aa") {
		t.Errorf("token mismatch: %s", first.Token)
	}
	if transfers[1].LogIndex != 1 {
		t.Errorf("log index must follow file order, got %d", transfers[1].LogIndex)
	}
}

func TestParseTransfers_NoHeader(t *testing.T) {
	csv := "0x00000000000000000000000000000000000000f1,0x0000000000000000000000000000000000000001,5,1,0,0x00000000000000000000000000000000000000aa\n"
	transfers, err := ParseTransfers(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseTransfers failed: %v", err)
	}
	if len(transfers) != 1 {
		t.Errorf("Expected 1 transfer without header, got %d", len(transfers))
	}
}

func TestParseTransfers_Malformed(t *testing.T) {
	cases := map[string]string{
		"bad value":       "0x00000000000000000000000000000000000000f1,0x0000000000000000000000000000000000000001,abc,1,0,0x00000000000000000000000000000000000000aa\n",
		"negative value":  "0x00000000000000000000000000000000000000f1,0x0000000000000000000000000000000000000001,-5,1,0,0x00000000000000000000000000000000000000aa\n",
		"bad address":     "0xzz,0x0000000000000000000000000000000000000001,5,1,0,0x00000000000000000000000000000000000000aa\n",
		"missing columns": "0x00000000000000000000000000000000000000f1,5,1\n",
	}
	for name, csv := range cases {
		if _, err := ParseTransfers(strings.NewReader(csv)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

const liquidityCSV = `tokenAddress,lpAddress,owner,changeType,liquidityChange,depositedBalanceChange,blockNumber,timestamp,tokenId,poolAddress,fee,lowerTick,upperTick
0x00000000000000000000000000000000000000aa,0x00000000000000000000000000000000000000dd,0x0000000000000000000000000000000000000001,DEPOSIT,500,1000,100,1704067200,,,,,
0x00000000000000000000000000000000000000aa,0x00000000000000000000000000000000000000dd,0x0000000000000000000000000000000000000001,WITHDRAW,-200,-400,150,1704067260,42,0x00000000000000000000000000000000000000cc,3000,-887220,887220
`

func TestParseLiquidityChanges(t *testing.T) {
	events, err := ParseLiquidityChanges(strings.NewReader(liquidityCSV))
	if err != nil {
		t.Fatalf("ParseLiquidityChanges failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	v2 := events[0]
	if v2.Concentrated {
		t.Error("empty position columns must parse as non-concentrated")
	}
	if v2.ChangeType != domain.LiquidityChangeDeposit {
		t.Errorf("changeType: got %s", v2.ChangeType)
	}
	if v2.DepositedBalanceChange.Int64() != 1000 {
		t.Errorf("depositedBalanceChange: got %s", v2.DepositedBalanceChange)
	}

	v3 := events[1]
	if !v3.Concentrated {
		t.Fatal("populated position columns must parse as concentrated")
	}
	if v3.DepositedBalanceChange.Int64() != -400 {
		t.Errorf("signed withdraw: got %s", v3.DepositedBalanceChange)
	}
	if v3.PositionID != 42 || v3.Fee != 3000 {
		t.Errorf("position: got id %d fee %d", v3.PositionID, v3.Fee)
	}
	if v3.LowerTick != -887220 || v3.UpperTick != 887220 {
		t.Errorf("ticks: got [%d, %d]", v3.LowerTick, v3.UpperTick)
	}
}

func TestParseLiquidityChanges_PartialPositionColumns(t *testing.T) {
	csv := "0x00000000000000000000000000000000000000aa,0x00000000000000000000000000000000000000dd,0x0000000000000000000000000000000000000001,DEPOSIT,1,1,1,0,42,,,,\n"
	if _, err := ParseLiquidityChanges(strings.NewReader(csv)); err == nil {
		t.Error("partially filled position columns must be rejected")
	}
}

func TestParseLiquidityChanges_UnknownChangeType(t *testing.T) {
	csv := "0x00000000000000000000000000000000000000aa,0x00000000000000000000000000000000000000dd,0x0000000000000000000000000000000000000001,BURN,1,1,1,0,,,,,\n"
	if _, err := ParseLiquidityChanges(strings.NewReader(csv)); err == nil {
		t.Error("unknown change type must be rejected")
	}
}

func TestParseLiquidityChanges_InvertedTickRange(t *testing.T) {
	csv := "0x00000000000000000000000000000000000000aa,0x00000000000000000000000000000000000000dd,0x0000000000000000000000000000000000000001,DEPOSIT,1,1,1,0,42,0x00000000000000000000000000000000000000cc,3000,100,-100\n"
	if _, err := ParseLiquidityChanges(strings.NewReader(csv)); err == nil {
		t.Error("inverted tick range must be rejected")
	}
}

func TestParseReports(t *testing.T) {
	input := `# epoch 2026-07 reports
0x0000000000000000000000000000000000000001 0x0000000000000000000000000000000000000002

0x0000000000000000000000000000000000000003   0x0000000000000000000000000000000000000001
`
	reports, err := ParseReports(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReports failed: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(reports))
	}
	if reports[0].Reporter != domain.MustAddress("0x0000000000000000000000000000000000000001") {
		t.Errorf("reporter mismatch: %s", reports[0].Reporter)
	}
	if reports[1].Cheater != domain.MustAddress("0x0000000000000000000000000000000000000001") {
		t.Errorf("cheater mismatch: %s", reports[1].Cheater)
	}
}

func TestParseReports_WrongFieldCount(t *testing.T) {
	input := "0x0000000000000000000000000000000000000001\n"
	if _, err := ParseReports(strings.NewReader(input)); err == nil {
		t.Error("single-field line must be rejected")
	}
}

func TestParseReports_DuplicatePairRejected(t *testing.T) {
	input := `0x0000000000000000000000000000000000000001 0x0000000000000000000000000000000000000002
0x0000000000000000000000000000000000000003 0x0000000000000000000000000000000000000002
0x0000000000000000000000000000000000000001 0x0000000000000000000000000000000000000002
`
	_, err := ParseReports(strings.NewReader(input))
	if err == nil {
		t.Fatal("repeated reporter/cheater pair must be rejected")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error must name the duplicate line, got: %v", err)
	}

	// The same cheater named by different reporters is legitimate stacking.
	distinct := `0x0000000000000000000000000000000000000001 0x0000000000000000000000000000000000000002
0x0000000000000000000000000000000000000003 0x0000000000000000000000000000000000000002
`
	reports, err := ParseReports(strings.NewReader(distinct))
	if err != nil {
		t.Fatalf("ParseReports failed: %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("Expected 2 reports, got %d", len(reports))
	}
}

func TestParseAddressList(t *testing.T) {
	input := `["0x00000000000000000000000000000000000000cc", "0x00000000000000000000000000000000000000dd"]`
	addrs, err := ParseAddressList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseAddressList failed: %v", err)
	}
	if len(addrs) != 2 {
		t.Fatalf("Expected 2 addresses, got %d", len(addrs))
	}
	if addrs[0] != domain.MustAddress("0x00000000000000000000000000000000000000cc") {
		t.Errorf("address mismatch: %s", addrs[0])
	}
}

func TestParseAddressList_BadAddress(t *testing.T) {
	if _, err := ParseAddressList(strings.NewReader(`["0x1234"]`)); err == nil {
		t.Error("short address must be rejected")
	}
}
