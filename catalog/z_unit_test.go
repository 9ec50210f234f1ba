package catalog

import (
	"testing"
	"testing/fstest"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/setting"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if !c.IsFrozen() {
		t.Fatalf("default catalog should be frozen")
	}
	if c.Len() != 8 {
		t.Fatalf("expected 8 items, got %d", c.Len())
	}
	d, ok := c.Definition("cherry_charm")
	if !ok || d.Effect != setting.EffectSymbolProbabilityBoost || d.Target == nil || *d.Target != setting.Cherry {
		t.Fatalf("unexpected cherry_charm %+v", d)
	}
	ids := c.IDs()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("ids not sorted: %v", ids)
		}
	}
}

func TestOwn(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	o, err := c.Own("lucky_clover", 2)
	if err != nil {
		t.Fatalf("own: %v", err)
	}
	if o.Quantity != 2 || !o.Magnitude.Equal(decimal.NewFromInt(100)) || o.Effect != setting.EffectScoreMultiplier {
		t.Fatalf("unexpected owned item %+v", o)
	}
	if _, err := c.Own("nope", 1); !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := c.Own("lucky_clover", -1); !errs.Is(err, errs.MalformedInput) {
		t.Fatalf("expected MalformedInput, got %v", err)
	}
}

func TestOwnCopiesTarget(t *testing.T) {
	c, _ := Default()
	o, _ := c.Own("seven_polish", 1)
	*o.Target = setting.Lemon
	d, _ := c.Definition("seven_polish")
	if *d.Target != setting.Seven {
		t.Fatalf("catalog definition mutated through owned item")
	}
}

func TestLoadFromMultipleFS(t *testing.T) {
	a := fstest.MapFS{"a.yaml": {Data: []byte("items:\n  - id: x\n    name: X\n    effect: spin_bonus\n    magnitude: 2\n")}}
	b := fstest.MapFS{"b.json": {Data: []byte(`{"items":[{"id":"y","name":"Y","effect":"direct_score_bonus","magnitude":1.5}]}`)}}
	c, err := New(a, b)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := c.Load("a.yaml", "b.json"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", c.Len())
	}
	if err := c.Load("a.yaml"); err == nil {
		t.Fatalf("reloading the same file should fail")
	}
	c.Freeze()
	if err := c.Register(Definition{ID: "z", Effect: setting.EffectSpinBonus, Magnitude: decimal.NewFromInt(1)}); err != ErrFrozen {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
}

func TestRejections(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatalf("expected error with no fs")
	}
	nested := fstest.MapFS{"dir/a.yaml": {Data: []byte("items: []\n")}}
	if _, err := New(nested); err == nil {
		t.Fatalf("expected flat fs error")
	}
	dup := fstest.MapFS{"a.yaml": {Data: []byte("items:\n  - id: x\n    name: X\n    effect: spin_bonus\n    magnitude: 1\n")}}
	dup2 := fstest.MapFS{"a.yaml": {Data: []byte("items: []\n")}}
	if _, err := New(dup, dup2); err == nil {
		t.Fatalf("expected duplicate file error")
	}
	c, _ := New(dup)
	if err := c.Load("../a.yaml"); err == nil {
		t.Fatalf("expected invalid file name error")
	}
	if err := c.Load("missing.yaml"); err == nil {
		t.Fatalf("expected missing file error")
	}
	if err := c.Load("a.yaml"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.Register(Definition{ID: "x", Effect: setting.EffectSpinBonus, Magnitude: decimal.NewFromInt(1)}); err != ErrDupID {
		t.Fatalf("expected ErrDupID, got %v", err)
	}
	if err := c.Register(Definition{ID: "bad", Effect: setting.EffectSpinBonus, Magnitude: decimal.RequireFromString("1.5")}); !errs.Is(err, errs.ConfigInconsistency) {
		t.Fatalf("expected ConfigInconsistency for fractional spin bonus, got %v", err)
	}
}
