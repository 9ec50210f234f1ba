package item

import (
	"slices"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/sdk/game"
	"github.com/zintix-labs/slot666/setting"
)

func testConfig(t *testing.T) *game.Config {
	t.Helper()
	pts := []int64{10, 7, 4, 3, 2, 0}
	wts := []int{5, 10, 20, 25, 40, 1}
	mul := []float64{1.5, 2.5, 5, 1.5, 2, 10}
	symbols := make([]game.SymbolConfig, setting.SymbolCount)
	for i := range symbols {
		symbols[i] = game.SymbolConfig{Symbol: setting.Symbol(i), BasePoints: decimal.NewFromInt(pts[i]), Weight: wts[i]}
	}
	patterns := make([]game.PatternMultiplier, setting.PatternKindCount)
	for i := range patterns {
		patterns[i] = game.PatternMultiplier{Kind: setting.PatternKind(i), Multiplier: decimal.NewFromFloat(mul[i])}
	}
	c, err := game.NewConfig("t", symbols, patterns, 1)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return c
}

func sym(s setting.Symbol) *setting.Symbol { return &s }

func own(id string, qty int, k setting.EffectKind, mag float64, target *setting.Symbol) OwnedItem {
	return OwnedItem{ItemID: id, Quantity: qty, Effect: k, Magnitude: decimal.NewFromFloat(mag), Target: target}
}

func TestResolveEmptyIsIdentity(t *testing.T) {
	b, err := Resolve(nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !b.IsIdentity() {
		t.Fatalf("expected identity, got %+v", b)
	}
	cfg := testConfig(t)
	out, err := Apply(cfg, b)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out.Equal(cfg) {
		t.Fatalf("apply identity must return an equal config")
	}
}

func TestScoreMultiplierComposes(t *testing.T) {
	b, err := Resolve([]OwnedItem{
		own("a", 1, setting.EffectScoreMultiplier, 100, nil),
		own("b", 2, setting.EffectScoreMultiplier, 25, nil),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// (1+100/100) * (1+50/100) = 3
	if !b.ScoreMultiplier.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("score multiplier: %s", b.ScoreMultiplier)
	}
}

func TestAdditiveKinds(t *testing.T) {
	b, err := Resolve([]OwnedItem{
		own("p", 2, setting.EffectPatternMultiplierBoost, 10, nil),
		own("d", 3, setting.EffectDirectScoreBonus, 1, nil),
		own("s", 1, setting.EffectSpinBonus, 2, nil),
		own("s2", 1, setting.EffectSpinBonus, 1, nil),
		own("l", 1, setting.EffectLevelProgressionBonus, 5, nil),
		own("c", 1, setting.EffectSymbolProbabilityBoost, 5, sym(setting.Cherry)),
		own("c2", 2, setting.EffectSymbolProbabilityBoost, 1, sym(setting.Cherry)),
		own("x", 1, setting.EffectSymbolPointBoost, 2, sym(setting.Seven)),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !b.PatternMultiplierBoostPercent.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("pattern boost: %s", b.PatternMultiplierBoostPercent)
	}
	if !b.DirectScoreBonus.Equal(decimal.NewFromInt(3)) || b.SpinBonus != 3 {
		t.Fatalf("direct/spin: %s %d", b.DirectScoreBonus, b.SpinBonus)
	}
	if !b.LevelProgressionDiscountPercent.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("level discount: %s", b.LevelProgressionDiscountPercent)
	}
	if b.PerSymbolProbabilityBoost[setting.Cherry] != 7 {
		t.Fatalf("probability boost: %v", b.PerSymbolProbabilityBoost)
	}
	if !b.PerSymbolPointBoost[setting.Seven].Equal(decimal.NewFromInt(2)) {
		t.Fatalf("point boost: %v", b.PerSymbolPointBoost)
	}
}

func TestZeroQuantityContributesNothing(t *testing.T) {
	b, err := Resolve([]OwnedItem{
		own("a", 0, setting.EffectScoreMultiplier, 100, nil),
		own("h", 0, setting.EffectSixSixSixProtection, 1, nil),
	})
	if err != nil || !b.IsIdentity() {
		t.Fatalf("expected identity, got %+v %v", b, err)
	}
}

func TestImmunity(t *testing.T) {
	b, _ := Resolve([]OwnedItem{
		own("holy", 1, setting.EffectSixSixSixProtection, 1, nil),
		own("holy2", 3, setting.EffectSixSixSixProtection, 1, nil),
	})
	if !b.HasInstantLossImmunity || b.ImmunityItemID != "holy" {
		t.Fatalf("immunity: %+v", b)
	}
}

func TestResolveRejects(t *testing.T) {
	cases := map[string]OwnedItem{
		"negative quantity":  own("a", -1, setting.EffectSpinBonus, 1, nil),
		"unknown kind":       own("a", 1, setting.EffectKind(99), 1, nil),
		"missing target":     own("a", 1, setting.EffectSymbolProbabilityBoost, 1, nil),
		"cursed target":      own("a", 1, setting.EffectSymbolPointBoost, 1, sym(setting.Six)),
		"negative magnitude": own("a", 1, setting.EffectDirectScoreBonus, -3, nil),
		"fractional weight":  own("a", 1, setting.EffectSymbolProbabilityBoost, 1.5, sym(setting.Coin)),
	}
	for name, it := range cases {
		if _, err := Resolve([]OwnedItem{it}); !errs.Is(err, errs.MalformedInput) {
			t.Fatalf("%s: expected malformed, got %v", name, err)
		}
	}
}

func TestApplyPatternBoost(t *testing.T) {
	cfg := testConfig(t)
	b, _ := Resolve([]OwnedItem{own("g", 1, setting.EffectPatternMultiplierBoost, 10, nil)})
	out, err := Apply(cfg, b)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out.Multiplier(setting.H3).Equal(decimal.NewFromFloat(1.65)) {
		t.Fatalf("h3 boosted: %s", out.Multiplier(setting.H3))
	}
	if !cfg.Multiplier(setting.H3).Equal(decimal.NewFromFloat(1.5)) {
		t.Fatalf("base config mutated")
	}
	if !slices.Equal(out.DrawableWeights(), cfg.DrawableWeights()) {
		t.Fatalf("weights must not change without probability boost")
	}
}

func TestApplyProbabilityBoostRenormalizes(t *testing.T) {
	cfg := testConfig(t)
	b, _ := Resolve([]OwnedItem{own("c", 1, setting.EffectSymbolProbabilityBoost, 5, sym(setting.Cherry))})
	out, err := Apply(cfg, b)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// [5,10,25,25,40] / 105 -> floor [4,9,23,23,38]，差額 3 給 lemon
	want := []int{4, 9, 23, 23, 41}
	if got := out.DrawableWeights(); !slices.Equal(got, want) {
		t.Fatalf("weights: got %v want %v", got, want)
	}
	if out.Weight(setting.Six) != cfg.Weight(setting.Six) {
		t.Fatalf("six weight must not be renormalized")
	}
}

func TestApplyPointBoost(t *testing.T) {
	cfg := testConfig(t)
	b, _ := Resolve([]OwnedItem{own("p", 1, setting.EffectSymbolPointBoost, 2, sym(setting.Seven))})
	out, err := Apply(cfg, b)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !out.BasePoints(setting.Seven).Equal(decimal.NewFromInt(12)) {
		t.Fatalf("seven points: %s", out.BasePoints(setting.Seven))
	}
}

func TestRenormalize(t *testing.T) {
	got := Renormalize([]int{1, 1, 1}, 100)
	// 33,33,33 差額 1 給平手中 index 最小者
	if !slices.Equal(got, []int{34, 33, 33}) {
		t.Fatalf("got %v", got)
	}
	if got := Renormalize([]int{0, 0}, 100); !slices.Equal(got, []int{0, 0}) {
		t.Fatalf("zero total: got %v", got)
	}
}

func TestRenormalizeKeepsPositiveWeights(t *testing.T) {
	// floor 後 [0,0,96,1,1]，保底補 1 後剛好 100
	got := Renormalize([]int{5, 10, 2025, 25, 40}, 100)
	if !slices.Equal(got, []int{1, 1, 96, 1, 1}) {
		t.Fatalf("got %v", got)
	}
	// floor 後 [0,0,99]，保底補 1 超出 1，從最大項扣回
	got = Renormalize([]int{1, 1, 1000}, 100)
	if !slices.Equal(got, []int{1, 1, 98}) {
		t.Fatalf("got %v", got)
	}
	got = Renormalize([]int{0, 3, 10000}, 100)
	if !slices.Equal(got, []int{0, 1, 99}) {
		t.Fatalf("zero weight must stay zero: got %v", got)
	}
}

func TestApplyStackedProbabilityBoostKeepsEverySymbolDrawable(t *testing.T) {
	cfg := testConfig(t)
	b, err := Resolve([]OwnedItem{own("c", 400, setting.EffectSymbolProbabilityBoost, 5, sym(setting.Cherry))})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out, err := Apply(cfg, b)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	sum := 0
	for i, w := range out.DrawableWeights() {
		if w <= 0 {
			t.Fatalf("symbol %d dropped out of the draw: %v", i, out.DrawableWeights())
		}
		sum += w
	}
	if sum != 100 {
		t.Fatalf("weights sum %d: %v", sum, out.DrawableWeights())
	}
}

func TestDecrement(t *testing.T) {
	items := []OwnedItem{own("h", 1, setting.EffectSixSixSixProtection, 1, nil), own("h", 2, setting.EffectSixSixSixProtection, 1, nil)}
	out, ok := Decrement(items, "h", 2)
	if !ok || Holding(out, "h") != 1 || Holding(items, "h") != 3 {
		t.Fatalf("decrement: %+v", out)
	}
	if _, ok := Decrement(items, "h", 4); ok {
		t.Fatalf("expected insufficient")
	}
}
