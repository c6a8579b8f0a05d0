package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sniper/internal/config"
	"sniper/internal/engine"
	"sniper/internal/errs"
	"sniper/internal/models"
)

func dryRunConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "runtime:\n  dry_run: true\n  env_file: \"\"\n  paper_price: 100\n  paper_equity: 10000\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--config", dryRunConfig(t), "--log-level", "error"}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestPlace_MirrorsToPaperAccounts(t *testing.T) {
	out, err := execute(t, "place", "--side", "long", "--size", "1", "--sl", "5", "--tp", "2,4")
	if err != nil {
		t.Fatalf("place: %v\n%s", err, out)
	}
	for _, want := range []string{"paper-1 BTCUSDT: 4/4 orders accepted, ok", "paper-2 BTCUSDT: 4/4 orders accepted, ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPlace_JSONAndRiskSizing(t *testing.T) {
	out, err := execute(t, "--json", "place", "--side", "short", "--risk", "1", "--sl", "2", "--tp", "1")
	if err != nil {
		t.Fatalf("place: %v\n%s", err, out)
	}
	var lines []placeLine
	if err := json.Unmarshal([]byte(out), &lines); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(lines) != 2 || !lines[0].Master || lines[0].Accepted != 3 || lines[1].Error != "" {
		t.Fatalf("unexpected results %+v", lines)
	}
}

func TestPlace_RejectsBadFlags(t *testing.T) {
	if _, err := execute(t, "place", "--side", "sideways", "--size", "1"); !errors.Is(err, errs.ErrInvalidIntent) {
		t.Fatalf("bad side should be an invalid intent, got %v", err)
	}
	if _, err := execute(t, "place", "--side", "long", "--size", "1", "--risk", "1", "--sl", "2"); err == nil {
		t.Fatal("--size with --risk should fail")
	}
	if _, err := execute(t, "place", "--side", "long", "--size", "1", "--tp", "4,2"); !errors.Is(err, errs.ErrInvalidIntent) {
		t.Fatalf("descending targets should be rejected, got %v", err)
	}
}

func TestPlaceFlags_Intent(t *testing.T) {
	cfg := &config.Config{Trading: config.TradingConfig{DefaultSymbol: "BTCUSDT", DefaultLeverage: 10, MarginMode: "cross"}}

	f := &placeFlags{symbol: " ethusdt", side: "short", size: 2, price: 3000, takeProfits: []float64{1, 2}, rangeSplits: 5, rangeBand: 0.5}
	intent, err := f.intent(cfg)
	if err != nil {
		t.Fatalf("intent: %v", err)
	}
	if intent.Symbol != "ETHUSDT" || intent.Side != models.Short || intent.Style != models.OrderStyleLimit {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if intent.Leverage != 10 || intent.MarginMode != models.MarginCross || intent.Price != 3000 {
		t.Fatalf("defaults not applied: %+v", intent)
	}
	if intent.RangeEntry == nil || intent.RangeEntry.SplitCount != 5 {
		t.Fatalf("range entry missing: %+v", intent.RangeEntry)
	}

	market := &placeFlags{side: "buy", size: 1, price: 50, style: "market", margin: "isolated"}
	intent, err = market.intent(cfg)
	if err != nil {
		t.Fatalf("intent: %v", err)
	}
	if intent.Style != models.OrderStyleMarket || intent.Price != 0 || intent.MarginMode != models.MarginIsolated {
		t.Fatalf("market intent should drop the price: %+v", intent)
	}

	if _, err := (&placeFlags{side: "long", margin: "portfolio"}).intent(cfg); err == nil {
		t.Fatal("unknown margin mode should fail")
	}
}

func TestAccountsAndActions(t *testing.T) {
	out, err := execute(t, "--json", "accounts")
	if err != nil {
		t.Fatalf("accounts: %v\n%s", err, out)
	}
	var statuses []engine.AccountStatus
	if err := json.Unmarshal([]byte(out), &statuses); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(statuses) != 2 || statuses[0].Equity != 10000 || !statuses[0].Master {
		t.Fatalf("unexpected statuses %+v", statuses)
	}

	out, err = execute(t, "cancel-all")
	if err != nil || strings.Count(out, "open orders cancelled") != 2 {
		t.Fatalf("cancel-all: %v\n%s", err, out)
	}
	out, err = execute(t, "close-all")
	if err != nil || strings.Count(out, "no open position") != 2 {
		t.Fatalf("close-all: %v\n%s", err, out)
	}
	out, err = execute(t, "reset-tps")
	if err != nil || strings.Count(out, "0 take profits cancelled") != 2 {
		t.Fatalf("reset-tps: %v\n%s", err, out)
	}
}
