package grid

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/sdk/core"
	"github.com/zintix-labs/slot666/sdk/game"
	"github.com/zintix-labs/slot666/setting"
)

func testConfig(t *testing.T) *game.Config {
	t.Helper()
	pts := []int64{10, 7, 4, 3, 2, 0}
	wts := []int{5, 10, 20, 25, 40, 1}
	symbols := make([]game.SymbolConfig, setting.SymbolCount)
	for i := range symbols {
		symbols[i] = game.SymbolConfig{Symbol: setting.Symbol(i), BasePoints: decimal.NewFromInt(pts[i]), Weight: wts[i]}
	}
	patterns := make([]game.PatternMultiplier, setting.PatternKindCount)
	for i := range patterns {
		patterns[i] = game.PatternMultiplier{Kind: setting.PatternKind(i), Multiplier: decimal.NewFromInt(2)}
	}
	c, err := game.NewConfig("t", symbols, patterns, 1)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return c
}

func TestNormalNeverSix(t *testing.T) {
	cfg := testConfig(t)
	gen := NewGenerator(nil)
	rng := core.Default().New(5)
	for i := 0; i < 2000; i++ {
		g := gen.Generate(cfg, rng, false)
		if g.Count(setting.Six) != 0 {
			t.Fatalf("six in normal draw:\n%s", g)
		}
	}
}

func TestForcedLayout(t *testing.T) {
	cfg := testConfig(t)
	gen := NewGenerator(nil)
	rng := core.Default().New(6)
	for i := 0; i < 500; i++ {
		g := gen.Generate(cfg, rng, true)
		if g.Count(setting.Six) != 3 || !g.IsInstantLoss() {
			t.Fatalf("forced grid wrong:\n%s", g)
		}
	}
}

func TestForcedConsumesTwelveDraws(t *testing.T) {
	cfg := testConfig(t)
	s := core.NewScripted()
	NewGenerator(nil).Generate(cfg, s, true)
	if s.Draws() != 12 {
		t.Fatalf("forced draws: got %d want 12", s.Draws())
	}
	s2 := core.NewScripted()
	NewGenerator(nil).Generate(cfg, s2, false)
	if s2.Draws() != Cells {
		t.Fatalf("normal draws: got %d want %d", s2.Draws(), Cells)
	}
}

func TestRowMajorOrder(t *testing.T) {
	cfg := testConfig(t)
	// 第一格 seven (u=0)，第二格 diamond (u=5)，其餘 lemon (u=99)
	vals := []int{0, 5}
	for len(vals) < Cells {
		vals = append(vals, 99)
	}
	g := NewGenerator(nil).Generate(cfg, core.NewScripted(vals...), false)
	if g[0][0] != setting.Seven || g[0][1] != setting.Diamond || g[2][4] != setting.Lemon {
		t.Fatalf("unexpected order:\n%s", g)
	}
}

func TestZeroWeightFallbackLogs(t *testing.T) {
	cfg := testConfig(t)
	d := cfg.Draft()
	for i := range d.Symbols {
		d.Symbols[i].Weight = 0
	}
	zero, err := cfg.Derive(d)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	g := NewGenerator(log).Generate(zero, core.Default().New(1), false)
	if g.Count(setting.Six) != 0 {
		t.Fatalf("fallback must still exclude six")
	}
	if !strings.Contains(buf.String(), "uniform draw") {
		t.Fatalf("expected warn log, got %q", buf.String())
	}
}

func TestFromRows(t *testing.T) {
	g0 := Fill(setting.Coin)
	rows := g0.ToRows()
	g, err := FromRows(rows)
	if err != nil || g != Fill(setting.Coin) {
		t.Fatalf("round trip failed: %v", err)
	}
	if _, err := FromRows(rows[:2]); !errs.Is(err, errs.MalformedInput) {
		t.Fatalf("expected malformed on short grid, got %v", err)
	}
	rows[1][2] = setting.Symbol(42)
	if _, err := FromRows(rows); !errs.Is(err, errs.MalformedInput) {
		t.Fatalf("expected malformed on bad symbol, got %v", err)
	}
}

func TestString(t *testing.T) {
	s := Fill(setting.Diamond).String()
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) != 2*Rows+1 {
		t.Fatalf("unexpected line count %d", len(lines))
	}
	if strings.Count(lines[1], "diamond") != Cols {
		t.Fatalf("unexpected row %q", lines[1])
	}
}
