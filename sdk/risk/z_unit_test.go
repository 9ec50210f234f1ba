package risk

import (
	"testing"

	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/setting"
)

func defaultCalc(t *testing.T) *Calculator {
	t.Helper()
	c, err := New(setting.RiskSetting{BasePercent: 1, SafeLevels: 5, TierLevels: 5, CapPercent: 20})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

func TestSchedule(t *testing.T) {
	c := defaultCalc(t)
	cases := map[int]float64{1: 0, 5: 0, 6: 1, 10: 1, 11: 2, 16: 4, 21: 8, 26: 16, 31: 20, 500: 20}
	for lv, want := range cases {
		if got := c.InstantLossProbability(lv); got != want {
			t.Fatalf("level %d: got %v want %v", lv, got, want)
		}
	}
}

func TestNonDecreasing(t *testing.T) {
	c := defaultCalc(t)
	prev := -1.0
	for _, e := range c.Table(200) {
		if e.Percent < prev {
			t.Fatalf("decreasing at level %d", e.Level)
		}
		if e.Percent > c.CapPercent() {
			t.Fatalf("cap exceeded at level %d", e.Level)
		}
		prev = e.Percent
	}
}

func TestInvalidLevel(t *testing.T) {
	c := defaultCalc(t)
	if _, err := c.Probability(0); !errs.Is(err, errs.MalformedInput) {
		t.Fatalf("expected malformed, got %v", err)
	}
	if c.InstantLossProbability(-3) != 0 {
		t.Fatalf("convenience accessor should treat level < 1 as level 1")
	}
	if len(c.Table(0)) != 0 {
		t.Fatalf("empty table expected")
	}
}

func TestNewRejects(t *testing.T) {
	if _, err := New(setting.RiskSetting{BasePercent: 5, SafeLevels: 5, TierLevels: 5, CapPercent: 1}); err == nil {
		t.Fatalf("cap below base must fail")
	}
	if _, err := New(setting.RiskSetting{BasePercent: 1, SafeLevels: 0, TierLevels: 5, CapPercent: 20}); err == nil {
		t.Fatalf("level 1 must be safe")
	}
}
