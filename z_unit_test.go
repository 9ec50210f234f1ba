package slot666

import (
	"errors"
	"testing"

	"github.com/zintix-labs/slot666/catalog"
	"github.com/zintix-labs/slot666/content"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/ledger"
	"github.com/zintix-labs/slot666/observe"
	"github.com/zintix-labs/slot666/sdk/core"
	"github.com/zintix-labs/slot666/sdk/game"
	"github.com/zintix-labs/slot666/sdk/grid"
	"github.com/zintix-labs/slot666/sdk/item"
	"github.com/zintix-labs/slot666/setting"
)

// 預設權重下 IntN(100) 的代表值：seven 0, diamond 5, cherry 15, coin 35, lemon 60
const (
	vSeven   = 0
	vDiamond = 5
	vCherry  = 15
	vCoin    = 35
	vLemon   = 60
)

// lemonH3 第一列為 lemon h3，其餘位置不構成任何連線
var lemonH3 = []int{
	vLemon, vLemon, vLemon, vCoin, vDiamond,
	vSeven, vDiamond, vCherry, vLemon, vCoin,
	vDiamond, vCherry, vCoin, vSeven, vCherry,
}

// lemonH5 第一列為 lemon h5，其餘位置不構成任何連線
var lemonH5 = []int{
	vLemon, vLemon, vLemon, vLemon, vLemon,
	vSeven, vDiamond, vCherry, vLemon, vCoin,
	vDiamond, vCherry, vCoin, vSeven, vCherry,
}

// noWin 不含任何連線
var noWin = []int{
	vSeven, vDiamond, vCherry, vCoin, vLemon,
	vCherry, vCoin, vLemon, vSeven, vDiamond,
	vLemon, vSeven, vDiamond, vCherry, vCoin,
}

func script(parts ...[]int) *core.Scripted {
	var vals []int
	for _, p := range parts {
		vals = append(vals, p...)
	}
	return core.NewScripted(vals...)
}

func previewEngine(t *testing.T, src core.RandomSource, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithPreview(), WithSource(src)}, opts...)
	e, err := NewDefault(opts...)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}

func owned(t *testing.T, id string, qty int) item.OwnedItem {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	o, err := c.Own(id, qty)
	if err != nil {
		t.Fatalf("own %s: %v", id, err)
	}
	return o
}

func TestStrictEngineRejectsWeakSource(t *testing.T) {
	if _, err := NewDefault(WithSource(core.NewPCG64(1))); !errs.Is(err, errs.ConfigInconsistency) {
		t.Fatalf("expected ConfigInconsistency, got %v", err)
	}
	e, err := NewDefault()
	if err != nil {
		t.Fatalf("strict engine with crypto default: %v", err)
	}
	if _, err := e.NewSessionWithSource("", nil, core.NewPCG64(1)); !errs.Is(err, errs.ConfigInconsistency) {
		t.Fatalf("strict engine must reject weak per-session source, got %v", err)
	}
	if _, err := e.NewSessionWithSource("", nil, core.NewCrypto()); err != nil {
		t.Fatalf("crypto per-session source: %v", err)
	}
}

func TestNewSessionInitialState(t *testing.T) {
	e := previewEngine(t, core.NewScripted())
	s, err := e.NewSession("", []item.OwnedItem{owned(t, "extra_coin", 2)})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if s.ID() == "" {
		t.Fatalf("expected generated id")
	}
	st := s.State()
	if st.Level != 1 || st.Score != 0 || st.TotalScore != 0 || !st.IsActive || st.SpinsRemaining != 7 {
		t.Fatalf("unexpected initial state %+v", st)
	}
	if s.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %s", s.Phase())
	}
	bad := owned(t, "extra_coin", 1)
	bad.Quantity = -1
	if _, err := e.NewSession("x", []item.OwnedItem{bad}); !errs.Is(err, errs.MalformedInput) {
		t.Fatalf("expected MalformedInput, got %v", err)
	}
}

func TestLemonH3AtLevelOne(t *testing.T) {
	e := previewEngine(t, script(lemonH3))
	s, _ := e.NewSession("s1", nil)
	out, err := s.Spin(nil)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if out.SpinScore != 9 {
		t.Fatalf("expected 9, got %d (patterns %+v)", out.SpinScore, out.Patterns)
	}
	if len(out.Patterns) != 1 || out.Patterns[0].Kind != setting.H3 || out.Patterns[0].Symbol != setting.Lemon {
		t.Fatalf("unexpected patterns %+v", out.Patterns)
	}
	st := s.State()
	if st.Score != 9 || st.TotalScore != 9 || st.SpinsRemaining != 4 || st.Level != 1 || !st.IsActive {
		t.Fatalf("unexpected state %+v", st)
	}
	if out.Ended || len(out.Events) != 0 || out.InstantLoss {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestScoreMultiplierDoubles(t *testing.T) {
	raw, err := content.FS.ReadFile(content.GameFile)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	gs, err := setting.GetGameSettingByYAML(raw)
	if err != nil {
		t.Fatalf("setting: %v", err)
	}
	for i := range gs.Patterns {
		if gs.Patterns[i].Kind == setting.H5 {
			gs.Patterns[i].Multiplier = 1
		}
	}
	build := func(src core.RandomSource) *Session {
		e, err := New(gs, WithPreview(), WithSource(src))
		if err != nil {
			t.Fatalf("engine: %v", err)
		}
		s, _ := e.NewSession("", nil)
		return s
	}

	plain, err := build(script(lemonH5)).Spin(nil)
	if err != nil || plain.SpinScore != 10 {
		t.Fatalf("expected base 10, got %d err=%v", plain.SpinScore, err)
	}
	boosted, err := build(script(lemonH5)).Spin([]item.OwnedItem{owned(t, "lucky_clover", 1)})
	if err != nil || boosted.SpinScore != 20 {
		t.Fatalf("expected 20 with +100%%, got %d err=%v", boosted.SpinScore, err)
	}
}

func TestInstantLossWithoutImmunity(t *testing.T) {
	mem := &observe.Memory{}
	// 0 < 10000 ppm (1%)，觸發 666
	e := previewEngine(t, script([]int{0}), WithSink(mem))
	s, err := e.RestoreSession(ledger.Snapshot{ID: "s1", Score: 40, TotalScore: 100, Level: 6, SpinsRemaining: 3, IsActive: true}, nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	out, err := s.Spin(nil)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if !out.InstantLoss || out.ImmunityUsed || !out.Ended || out.EndReason != observe.ReasonInstantLoss {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !out.Grid.IsInstantLoss() {
		t.Fatalf("expected forced grid, got\n%s", out.Grid)
	}
	st := s.State()
	if st.Score != 0 || st.TotalScore != 100 || st.IsActive || st.SpinsRemaining != 2 || st.Level != 6 {
		t.Fatalf("unexpected state %+v", st)
	}
	if s.Phase() != PhaseGameOver {
		t.Fatalf("expected game over, got %s", s.Phase())
	}
	evs := mem.Events()
	if len(evs) != 1 || evs[0].Kind != observe.EventSessionEnded || evs[0].Reason != observe.ReasonInstantLoss || evs[0].TotalScore != 100 {
		t.Fatalf("unexpected events %+v", evs)
	}
	if _, err := s.Spin(nil); !errs.Is(err, errs.IllegalSpin) {
		t.Fatalf("spin after game over should be IllegalSpin, got %v", err)
	}
}

func TestInstantLossWithImmunity(t *testing.T) {
	mem := &observe.Memory{}
	e := previewEngine(t, script([]int{0}, lemonH3), WithSink(mem))
	items := []item.OwnedItem{owned(t, "holy_water", 2)}
	s, err := e.RestoreSession(ledger.Snapshot{ID: "s1", Score: 40, TotalScore: 40, Level: 6, SpinsRemaining: 3, IsActive: true}, items)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	out, err := s.SpinHeld()
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if !out.InstantLoss || !out.ImmunityUsed || out.ConsumedItemID != "holy_water" || out.Ended {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.SpinScore != 9 {
		t.Fatalf("immunity spin should score normally, got %d", out.SpinScore)
	}
	st := s.State()
	if !st.IsActive || st.Score != 49 || st.SpinsRemaining != 2 {
		t.Fatalf("unexpected state %+v", st)
	}
	if got := item.Holding(s.Held(), "holy_water"); got != 1 {
		t.Fatalf("expected 1 holy_water left, got %d", got)
	}
	if len(mem.Events()) != 0 {
		t.Fatalf("no events expected, got %+v", mem.Events())
	}
}

func TestLevelUpResetsSpins(t *testing.T) {
	mem := &observe.Memory{}
	e := previewEngine(t, script(lemonH3), WithSink(mem))
	s, _ := e.RestoreSession(ledger.Snapshot{ID: "s1", Score: 30, TotalScore: 30, Level: 1, SpinsRemaining: 1, IsActive: true}, nil)
	out, err := s.Spin([]item.OwnedItem{owned(t, "extra_coin", 1)})
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	st := s.State()
	if st.Level != 2 || st.Score != 39 || st.SpinsRemaining != 6 || !st.IsActive {
		t.Fatalf("unexpected state %+v", st)
	}
	if len(out.Events) != 1 || out.Events[0].Kind != observe.EventLevelUp || out.Events[0].FromLevel != 1 || out.Events[0].Level != 2 {
		t.Fatalf("unexpected events %+v", out.Events)
	}
	if len(mem.Events()) != 1 {
		t.Fatalf("sink should receive the level-up event")
	}
}

func TestOutOfSpins(t *testing.T) {
	e := previewEngine(t, script(noWin, noWin, noWin, noWin, noWin))
	s, _ := e.NewSession("", nil)
	for i := 0; i < 4; i++ {
		out, err := s.Spin(nil)
		if err != nil || out.Ended || out.SpinScore != 0 {
			t.Fatalf("spin %d: unexpected %+v err=%v", i, out, err)
		}
	}
	out, err := s.Spin(nil)
	if err != nil {
		t.Fatalf("last spin: %v", err)
	}
	if !out.Ended || out.EndReason != observe.ReasonOutOfSpins {
		t.Fatalf("expected out_of_spins, got %+v", out)
	}
	if out.Events[len(out.Events)-1].Kind != observe.EventSessionEnded {
		t.Fatalf("expected session ended event")
	}
	if s.State().IsActive {
		t.Fatalf("session should be inactive")
	}
}

func TestIllegalSpins(t *testing.T) {
	e := previewEngine(t, core.NewScripted())

	s, _ := e.RestoreSession(ledger.Snapshot{ID: "a", Level: 1, SpinsRemaining: 0, IsActive: true}, nil)
	if _, err := s.Spin(nil); !errs.Is(err, errs.IllegalSpin) {
		t.Fatalf("no spins left should be IllegalSpin, got %v", err)
	}

	ended, _ := e.RestoreSession(ledger.Snapshot{ID: "b", Level: 4, SpinsRemaining: 2, IsActive: false}, nil)
	if ended.Phase() != PhaseGameOver {
		t.Fatalf("inactive snapshot should restore into game over")
	}
	if _, err := ended.Spin(nil); !errs.Is(err, errs.IllegalSpin) {
		t.Fatalf("inactive session should be IllegalSpin, got %v", err)
	}

	busy, _ := e.NewSession("c", nil)
	busy.inflight.Store(true)
	if _, err := busy.Spin(nil); !errs.Is(err, errs.IllegalSpin) {
		t.Fatalf("in-flight spin should be IllegalSpin, got %v", err)
	}
	busy.inflight.Store(false)
	if got := busy.State().SpinsRemaining; got != 5 {
		t.Fatalf("rejected spin must not mutate state, spins=%d", got)
	}
}

func TestMalformedItemsDoNotMutate(t *testing.T) {
	e := previewEngine(t, core.NewScripted())
	s, _ := e.NewSession("", nil)
	bad := owned(t, "cherry_charm", 1)
	bad.Target = nil
	if _, err := s.Spin([]item.OwnedItem{bad}); !errs.Is(err, errs.MalformedInput) {
		t.Fatalf("expected MalformedInput, got %v", err)
	}
	if st := s.State(); st.SpinsRemaining != 5 || s.Phase() != PhaseIdle {
		t.Fatalf("state mutated on rejection %+v", st)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	e := previewEngine(t, script(lemonH3))
	s, _ := e.NewSession("s1", nil)
	if _, err := s.Spin(nil); err != nil {
		t.Fatalf("spin: %v", err)
	}
	snap := s.Snapshot()
	r, err := e.RestoreSession(snap, nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if r.State() != s.State() {
		t.Fatalf("restore mismatch %+v vs %+v", r.State(), s.State())
	}
	if _, err := e.RestoreSession(ledger.Snapshot{ID: "x", Level: 0}, nil); !errs.Is(err, errs.MalformedInput) {
		t.Fatalf("expected MalformedInput for level 0, got %v", err)
	}
}

// brokenBoard 一般盤面含有未知符號，強制盤面照常產生
type brokenBoard struct{ real boardGenerator }

func (b brokenBoard) Generate(cfg *game.Config, rng core.RandomSource, force bool) grid.Grid {
	g := b.real.Generate(cfg, rng, force)
	if !force {
		g[2][4] = setting.Symbol(99)
	}
	return g
}

func TestSpinMalformedGridFailsWithoutMutation(t *testing.T) {
	e := previewEngine(t, script(lemonH3))
	e.gen = brokenBoard{real: e.gen}
	s, err := e.NewSession("g", []item.OwnedItem{owned(t, "extra_coin", 1)})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	before := s.State()

	_, err = s.SpinHeld()
	if !errs.Is(err, errs.ConfigInconsistency) {
		t.Fatalf("expected ConfigInconsistency, got %v", err)
	}
	var e2 *errs.E
	if !errors.As(err, &e2) || e2.ErrLv != errs.Fatal {
		t.Fatalf("expected fatal errs.E, got %#v", err)
	}
	if got := s.State(); got != before {
		t.Fatalf("state mutated: before %+v after %+v", before, got)
	}
	if s.Phase() != PhaseIdle {
		t.Fatalf("phase %v, want idle", s.Phase())
	}
	if h := item.Holding(s.Held(), "extra_coin"); h != 1 {
		t.Fatalf("held inventory changed: %d", h)
	}
}
