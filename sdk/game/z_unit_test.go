package game

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/sdk/core"
	"github.com/zintix-labs/slot666/setting"
)

func testSymbols() []SymbolConfig {
	return []SymbolConfig{
		{Symbol: setting.Seven, BasePoints: decimal.NewFromInt(10), Weight: 5},
		{Symbol: setting.Diamond, BasePoints: decimal.NewFromInt(7), Weight: 10},
		{Symbol: setting.Cherry, BasePoints: decimal.NewFromInt(4), Weight: 20},
		{Symbol: setting.Coin, BasePoints: decimal.NewFromInt(3), Weight: 25},
		{Symbol: setting.Lemon, BasePoints: decimal.NewFromInt(2), Weight: 40},
		{Symbol: setting.Six, BasePoints: decimal.Zero, Weight: 1},
	}
}

func testPatterns() []PatternMultiplier {
	m := []float64{1.5, 2.5, 5, 1.5, 2, 10}
	out := make([]PatternMultiplier, len(m))
	for i, v := range m {
		out[i] = PatternMultiplier{Kind: setting.PatternKind(i), Multiplier: decimal.NewFromFloat(v)}
	}
	return out
}

func TestNewConfig(t *testing.T) {
	c, err := NewConfig("t", testSymbols(), testPatterns(), 1)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if n := len(c.Drawable()); n != 5 {
		t.Fatalf("drawable: got %d", n)
	}
	for _, s := range c.Drawable() {
		if s.Cursed() {
			t.Fatalf("six must not be drawable")
		}
	}
	if c.DrawableTotal() != 100 {
		t.Fatalf("total: got %d", c.DrawableTotal())
	}
	if !c.Multiplier(setting.H3).Equal(decimal.NewFromFloat(1.5)) {
		t.Fatalf("h3 multiplier: %s", c.Multiplier(setting.H3))
	}
}

func TestNewConfigRejects(t *testing.T) {
	bad := testSymbols()
	bad[0], bad[1] = bad[1], bad[0]
	if _, err := NewConfig("t", bad, testPatterns(), 1); !errs.Is(err, errs.ConfigInconsistency) {
		t.Fatalf("expected order error, got %v", err)
	}
	zero := testSymbols()
	zero[2].Weight = 0
	if _, err := NewConfig("t", zero, testPatterns(), 1); err == nil {
		t.Fatalf("expected zero weight error")
	}
	low := testPatterns()
	low[0].Multiplier = decimal.NewFromFloat(0.9)
	if _, err := NewConfig("t", testSymbols(), low, 1); err == nil {
		t.Fatalf("expected multiplier error")
	}
}

func TestDeriveLeavesBaseUntouched(t *testing.T) {
	c, _ := NewConfig("t", testSymbols(), testPatterns(), 1)
	d := c.Draft()
	d.Symbols[setting.Cherry].Weight = 200
	d.Multipliers[setting.H3] = decimal.NewFromInt(3)
	n, err := c.Derive(d)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if c.Weight(setting.Cherry) != 20 || !c.Multiplier(setting.H3).Equal(decimal.NewFromFloat(1.5)) {
		t.Fatalf("base config mutated")
	}
	if n.Weight(setting.Cherry) != 200 || c.Equal(n) {
		t.Fatalf("derived config not applied")
	}
	same, _ := c.Derive(c.Draft())
	if !c.Equal(same) {
		t.Fatalf("derive of own draft must be equal")
	}
}

func TestDrawZeroTotalFallsBack(t *testing.T) {
	c, _ := NewConfig("t", testSymbols(), testPatterns(), 1)
	d := c.Draft()
	for i := range d.Symbols {
		d.Symbols[i].Weight = 0
	}
	n, err := c.Derive(d)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	s, ok := n.Draw(core.NewScripted(3))
	if ok {
		t.Fatalf("expected fallback flag")
	}
	if s != setting.Coin {
		t.Fatalf("uniform fallback: got %s", s)
	}
}

func TestDrawOrder(t *testing.T) {
	c, _ := NewConfig("t", testSymbols(), testPatterns(), 1)
	cases := map[int]setting.Symbol{0: setting.Seven, 4: setting.Seven, 5: setting.Diamond, 35: setting.Coin, 60: setting.Lemon, 99: setting.Lemon}
	for u, want := range cases {
		if got, _ := c.Draw(core.NewScripted(u)); got != want {
			t.Fatalf("u=%d: got %s want %s", u, got, want)
		}
	}
}
