package slot666

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zintix-labs/slot666/catalog"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/ledger"
	"github.com/zintix-labs/slot666/sdk/core"
)

// strongScripted 讓 Scripted 通過權威引擎的強度檢查，只用於測試
type strongScripted struct{ *core.Scripted }

func (strongScripted) CryptoStrong() bool { return true }

var errOutage = errors.New("ledger offline")

// flakyLedger 可個別讓讀寫失敗
type flakyLedger struct {
	ledger.Ledger
	failCheckpoint atomic.Bool
	failOwned      atomic.Bool
}

func (f *flakyLedger) Checkpoint(ctx context.Context, snap ledger.Snapshot) error {
	if f.failCheckpoint.Load() {
		return errOutage
	}
	return f.Ledger.Checkpoint(ctx, snap)
}

func (f *flakyLedger) GetOwnedItems(ctx context.Context, id string) ([]ledger.Holding, error) {
	if f.failOwned.Load() {
		return nil, errOutage
	}
	return f.Ledger.GetOwnedItems(ctx, id)
}

func newTestRuntime(t *testing.T, l ledger.Ledger, src *core.Scripted) *Runtime {
	t.Helper()
	eng, err := NewDefault(WithSource(strongScripted{src}))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	rt, err := eng.NewRuntime(l, cat)
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	return rt
}

// seedLevel6 直接在 ledger 建立一個第 6 關的 session
func seedLevel6(t *testing.T, l ledger.Ledger, id string, grants ...Grant) {
	t.Helper()
	ctx := context.Background()
	snap := ledger.Snapshot{ID: id, Score: 100, TotalScore: 100, Level: 6, SpinsRemaining: 3, IsActive: true}
	if err := l.CreateSession(ctx, snap); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, g := range grants {
		if err := l.GrantItem(ctx, id, g.ItemID, g.Quantity); err != nil {
			t.Fatalf("grant: %v", err)
		}
	}
}

func TestRuntimeRejectsPreviewEngine(t *testing.T) {
	eng := previewEngine(t, core.NewPCG64(1))
	cat, _ := catalog.Default()
	if _, err := eng.NewRuntime(ledger.NewMemory(), cat); !errs.Is(err, errs.ConfigInconsistency) {
		t.Fatalf("expected ConfigInconsistency, got %v", err)
	}
}

func TestRuntimeCreateAndSpin(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	rt := newTestRuntime(t, mem, script(lemonH3))

	snap, err := rt.CreateSession(ctx, []Grant{{ItemID: "extra_coin", Quantity: 1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if snap.ID == "" || snap.SpinsRemaining != 6 || snap.Level != 1 || !snap.IsActive {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	res, err := rt.Spin(ctx, snap.ID)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if res.Pending || res.SpinScore != 9 {
		t.Fatalf("unexpected result: %+v", res)
	}

	got, err := mem.GetSession(ctx, snap.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 9 || got.TotalScore != 9 || got.SpinsRemaining != 5 || !got.IsActive {
		t.Fatalf("checkpoint not written: %+v", got)
	}
	hs, _ := mem.GetOwnedItems(ctx, snap.ID)
	if len(hs) != 1 || hs[0].ItemID != "extra_coin" || hs[0].Quantity != 1 {
		t.Fatalf("holdings changed: %+v", hs)
	}
	if m := rt.Metrics(); m.Spins != 1 || m.Table.Live != 1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestRuntimeCreateRejectsUnknownItem(t *testing.T) {
	mem := ledger.NewMemory()
	rt := newTestRuntime(t, mem, script())
	if _, err := rt.CreateSession(context.Background(), []Grant{{ItemID: "nope", Quantity: 1}}); !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := rt.CreateSession(context.Background(), []Grant{{ItemID: "tip_jar", Quantity: 0}}); !errs.Is(err, errs.MalformedInput) {
		t.Fatalf("expected MalformedInput, got %v", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("ledger should stay empty")
	}
}

// grantFailLedger 第 n 次 GrantItem 之後一律失敗
type grantFailLedger struct {
	ledger.Ledger
	okGrants int32
	grants   atomic.Int32
	onFail   func()
}

func (g *grantFailLedger) GrantItem(ctx context.Context, id string, itemID string, qty int) error {
	if g.grants.Add(1) > g.okGrants {
		if g.onFail != nil {
			g.onFail()
		}
		return errOutage
	}
	return g.Ledger.GrantItem(ctx, id, itemID, qty)
}

func TestRuntimeCreateRollsBackOnGrantFailure(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	gl := &grantFailLedger{Ledger: mem, okGrants: 1}
	rt := newTestRuntime(t, gl, script())

	grants := []Grant{{ItemID: "extra_coin", Quantity: 1}, {ItemID: "holy_water", Quantity: 1}}
	snap, err := rt.CreateSession(ctx, grants)
	if !errs.Is(err, errs.CollaboratorUnavailable) {
		t.Fatalf("expected CollaboratorUnavailable, got %v", err)
	}
	if snap.ID != "" {
		t.Fatalf("failed create returned a session id %q", snap.ID)
	}
	if mem.Len() != 0 {
		t.Fatalf("partial session left in ledger (%d)", mem.Len())
	}
	if rt.table.Len() != 0 {
		t.Fatalf("partial session cached in table")
	}
	if m := rt.Metrics(); m.Discarded != 1 {
		t.Fatalf("expected 1 discarded, got %+v", m)
	}

	// 協作者恢復後可正常建立
	gl.okGrants = 100
	if _, err := rt.CreateSession(ctx, grants); err != nil {
		t.Fatalf("create after recovery: %v", err)
	}
	if mem.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", mem.Len())
	}
}

func TestRuntimeCreateRollbackIgnoresCanceledContext(t *testing.T) {
	mem := ledger.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 呼叫端在 grant 途中放棄請求
	gl := &grantFailLedger{Ledger: mem, onFail: cancel}
	rt := newTestRuntime(t, gl, script())

	if _, err := rt.CreateSession(ctx, []Grant{{ItemID: "extra_coin", Quantity: 1}}); err == nil {
		t.Fatalf("expected grant failure")
	}
	if mem.Len() != 0 {
		t.Fatalf("partial session left in ledger")
	}
}

func TestRuntimeRestoresAfterSweep(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	rt := newTestRuntime(t, mem, script(lemonH3, lemonH3))

	snap, err := rt.CreateSession(ctx, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := rt.Spin(ctx, snap.ID); err != nil {
		t.Fatalf("spin: %v", err)
	}
	if n := rt.Sweep(time.Now().Add(2 * time.Hour)); n != 1 {
		t.Fatalf("expected 1 evicted, got %d", n)
	}
	res, err := rt.Spin(ctx, snap.ID)
	if err != nil {
		t.Fatalf("spin after sweep: %v", err)
	}
	if res.State.Score != 18 || res.State.SpinsRemaining != 3 {
		t.Fatalf("progress lost across restore: %+v", res.State)
	}
}

func TestRuntimeImmunityConsumesLedgerItem(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	rt := newTestRuntime(t, mem, script([]int{0}, lemonH3))
	seedLevel6(t, mem, "s6", Grant{ItemID: "holy_water", Quantity: 1})

	res, err := rt.Spin(ctx, "s6")
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if !res.InstantLoss || !res.ImmunityUsed || res.ConsumedItemID != "holy_water" || res.Ended {
		t.Fatalf("expected immunity: %+v", res)
	}
	if res.State.Score != 109 {
		t.Fatalf("score: got %d", res.State.Score)
	}
	hs, _ := mem.GetOwnedItems(ctx, "s6")
	if len(hs) != 0 {
		t.Fatalf("holy_water should be consumed: %+v", hs)
	}
}

func TestRuntimeInstantLossEndsSession(t *testing.T) {
	ctx := context.Background()
	mem := ledger.NewMemory()
	rt := newTestRuntime(t, mem, script([]int{0}))
	seedLevel6(t, mem, "s6")

	res, err := rt.Spin(ctx, "s6")
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if !res.Ended || !res.Settled || res.Pending {
		t.Fatalf("expected settled end: %+v", res)
	}
	got, _ := mem.GetSession(ctx, "s6")
	if got.IsActive || got.Score != 0 || got.TotalScore != 100 {
		t.Fatalf("ledger not ended: %+v", got)
	}
	if _, err := rt.Spin(ctx, "s6"); !errs.Is(err, errs.IllegalSpin) {
		t.Fatalf("expected IllegalSpin, got %v", err)
	}
	rt.Sweep(time.Now().Add(2 * time.Hour))
	if _, err := rt.Spin(ctx, "s6"); !errs.Is(err, errs.IllegalSpin) {
		t.Fatalf("expected IllegalSpin from ledger, got %v", err)
	}
	if m := rt.Metrics(); m.Settled != 1 {
		t.Fatalf("settled: %+v", m)
	}
}

func TestRuntimePendingWritesRetry(t *testing.T) {
	ctx := context.Background()
	fl := &flakyLedger{Ledger: ledger.NewMemory()}
	rt := newTestRuntime(t, fl, script(lemonH3, lemonH3))

	snap, err := rt.CreateSession(ctx, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fl.failCheckpoint.Store(true)
	res, err := rt.Spin(ctx, snap.ID)
	if err != nil {
		t.Fatalf("spin: %v", err)
	}
	if !res.Pending || res.SpinScore != 9 {
		t.Fatalf("expected pending result: %+v", res)
	}
	if n := rt.Sweep(time.Now().Add(2 * time.Hour)); n != 0 {
		t.Fatalf("pending session must not be evicted")
	}
	if _, err := rt.Spin(ctx, snap.ID); !errs.Is(err, errs.CollaboratorUnavailable) {
		t.Fatalf("expected CollaboratorUnavailable, got %v", err)
	}
	if _, err := rt.Settle(ctx, snap.ID); !errs.Is(err, errs.CollaboratorUnavailable) {
		t.Fatalf("expected CollaboratorUnavailable, got %v", err)
	}

	fl.failCheckpoint.Store(false)
	v, err := rt.Settle(ctx, snap.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if v.Pending || v.Score != 9 {
		t.Fatalf("unexpected view: %+v", v)
	}
	got, _ := fl.GetSession(ctx, snap.ID)
	if got.Score != 9 || got.SpinsRemaining != 4 {
		t.Fatalf("checkpoint not retried: %+v", got)
	}
	if m := rt.Metrics(); m.Pending != 1 || m.Spins != 1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestRuntimeOutageBeforeSpinDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	fl := &flakyLedger{Ledger: ledger.NewMemory()}
	rt := newTestRuntime(t, fl, script(lemonH3))

	snap, err := rt.CreateSession(ctx, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fl.failOwned.Store(true)
	if _, err := rt.Spin(ctx, snap.ID); !errs.Is(err, errs.CollaboratorUnavailable) {
		t.Fatalf("expected CollaboratorUnavailable, got %v", err)
	}
	s, ok := rt.Table().Get(snap.ID)
	if !ok {
		t.Fatalf("session should stay live")
	}
	if st := s.State(); st.SpinsRemaining != 5 || st.Score != 0 {
		t.Fatalf("state mutated: %+v", st)
	}
}

func TestRuntimeUnknownSession(t *testing.T) {
	rt := newTestRuntime(t, ledger.NewMemory(), script())
	if _, err := rt.Spin(context.Background(), "missing"); !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := rt.Session(context.Background(), "missing"); !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestRuntimeRejectsBusySession(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, ledger.NewMemory(), script(lemonH3))
	snap, err := rt.CreateSession(ctx, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ent, ok, err := rt.table.claim(snap.ID)
	if !ok || err != nil {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	if _, err := rt.Spin(ctx, snap.ID); !errs.Is(err, errs.IllegalSpin) {
		t.Fatalf("expected IllegalSpin, got %v", err)
	}
	ent.release(time.Now())
	if _, err := rt.Spin(ctx, snap.ID); err != nil {
		t.Fatalf("spin: %v", err)
	}
}

func TestRuntimeClaimedSessionSurvivesSweep(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, ledger.NewMemory(), script(lemonH3))
	snap, err := rt.CreateSession(ctx, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ent, ok, err := rt.table.claim(snap.ID)
	if !ok || err != nil {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	if n := rt.Sweep(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Fatalf("claimed session evicted (%d)", n)
	}
	// 還原路徑不能繞過仍在佔用中的 entry
	if _, err := rt.Spin(ctx, snap.ID); !errs.Is(err, errs.IllegalSpin) {
		t.Fatalf("expected IllegalSpin, got %v", err)
	}
	ent.release(time.Now().Add(-48 * time.Hour))
	if n := rt.Sweep(time.Now()); n != 1 {
		t.Fatalf("released session not evicted (%d)", n)
	}
}

// overlapLedger 記錄 GetOwnedItems 同時進行的最大數量
type overlapLedger struct {
	ledger.Ledger
	inflight atomic.Int32
	peak     atomic.Int32
}

func (o *overlapLedger) GetOwnedItems(ctx context.Context, id string) ([]ledger.Holding, error) {
	n := o.inflight.Add(1)
	defer o.inflight.Add(-1)
	for {
		p := o.peak.Load()
		if n <= p || o.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(200 * time.Microsecond)
	return o.Ledger.GetOwnedItems(ctx, id)
}

func TestRuntimeConcurrentSpinWithSweep(t *testing.T) {
	ctx := context.Background()
	ol := &overlapLedger{Ledger: ledger.NewMemory()}
	src := script()
	src.Fallback = core.NewPCG64(11)
	rt := newTestRuntime(t, ol, src)
	snap, err := rt.CreateSession(ctx, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				rt.Sweep(time.Now().Add(24 * time.Hour))
			}
		}
	}()

	var spinners sync.WaitGroup
	for range 8 {
		spinners.Add(1)
		go func() {
			defer spinners.Done()
			for range 50 {
				_, _ = rt.Spin(ctx, snap.ID)
			}
		}()
	}
	spinners.Wait()
	close(stop)
	wg.Wait()

	if p := ol.peak.Load(); p > 1 {
		t.Fatalf("%d spins ran concurrently on one session", p)
	}
	if ol.peak.Load() == 0 {
		t.Fatalf("no spin reached the ledger")
	}
}

func TestRuntimeClose(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, ledger.NewMemory(), script())
	rt.closeWithReason("shutdown")
	rt.Close()
	if !rt.Closed() || rt.ClosedReason() != "shutdown" {
		t.Fatalf("closed=%v reason=%q", rt.Closed(), rt.ClosedReason())
	}
	if _, err := rt.CreateSession(ctx, nil); !errs.Is(err, errs.Closed) {
		t.Fatalf("expected Closed, got %v", err)
	}
	if _, err := rt.Spin(ctx, "x"); !errs.Is(err, errs.Closed) {
		t.Fatalf("expected Closed, got %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	rt2 := newTestRuntime(t, ledger.NewMemory(), script())
	if _, err := rt2.Spin(cctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
