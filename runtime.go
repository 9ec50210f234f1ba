// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package slot666

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/slot666/catalog"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/ledger"
	"github.com/zintix-labs/slot666/sdk/item"
)

const defaultWriteTimeout = 5 * time.Second

// Runtime 是引擎的呼叫端（call site）：在 spin 前讀取 ledger 與 catalog，spin 後寫回。
//
// 規則：
//   - 任何在 spin 之前的協作者故障都以 CollaboratorUnavailable 回報，且不會修改 session。
//   - spin 之後的寫入失敗不會回滾結果：寫入被記為 pending，回傳 Pending=true，
//     之後由 Settle（或下一次 Spin）重試。
//   - 同一 session 的整個流程（含 I/O）以 busy 旗標互斥，第二個呼叫者直接被拒絕，
//     不持有 session 鎖跨越 I/O。
type Runtime struct {
	eng    *Engine
	ledger ledger.Ledger
	cat    *catalog.Catalog
	table  *SessionTable
	log    *slog.Logger

	writeTimeout time.Duration

	spins     atomic.Int64 // 成功的 spin
	panics    atomic.Int32 // spin 期間 panic 次數
	pending   atomic.Int64 // 寫入失敗而進入 pending 的次數
	settled   atomic.Int64 // 成功寫入 EndSession 的次數
	discarded atomic.Int64 // 建立失敗而撤銷的 session

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string
}

// RuntimeOption 設定 Runtime
type RuntimeOption func(*Runtime)

// WithTable 指定 session 表；預設 NewSessionTable(0, 0)
func WithTable(t *SessionTable) RuntimeOption {
	return func(rt *Runtime) {
		if t != nil {
			rt.table = t
		}
	}
}

// WithWriteTimeout 指定 spin 後 ledger 寫入的逾時
func WithWriteTimeout(d time.Duration) RuntimeOption {
	return func(rt *Runtime) {
		if d > 0 {
			rt.writeTimeout = d
		}
	}
}

// Grant 建立 session 時的起始道具
type Grant struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// SpinResult Runtime 的 spin 結果
type SpinResult struct {
	Outcome
	// Pending 為 true 表示部分 ledger 寫入尚未成功，需要 Settle
	Pending bool `json:"pending"`
	// Settled 為 true 表示 EndSession 已成功寫入
	Settled bool `json:"settled"`
}

// SessionView 讀取 session 的結果
type SessionView struct {
	ledger.Snapshot
	Phase   Phase            `json:"phase"`
	Live    bool             `json:"live"`
	Pending bool             `json:"pending"`
	Items   []ledger.Holding `json:"items"`
}

// RuntimeMetrics Runtime 觀測值
type RuntimeMetrics struct {
	Table     TableMetrics `json:"table"`
	Spins     int64        `json:"spins"`
	Panics    int32        `json:"panics"`
	Pending   int64        `json:"pending"`
	Settled   int64        `json:"settled"`
	Discarded int64        `json:"discarded"`
	Closed    bool         `json:"closed"`
	Reason    string       `json:"reason,omitempty"`
}

// NewRuntime 以 ledger 與 catalog 建立 Runtime。預覽引擎不可用於權威結算。
func (e *Engine) NewRuntime(l ledger.Ledger, cat *catalog.Catalog, opts ...RuntimeOption) (*Runtime, error) {
	if e.preview {
		return nil, errs.Inconsistent("runtime: preview engine cannot settle sessions")
	}
	if l == nil {
		return nil, errs.Inconsistent("runtime: nil ledger")
	}
	if cat == nil {
		return nil, errs.Inconsistent("runtime: nil catalog")
	}
	if !cat.IsFrozen() {
		cat.Freeze()
	}
	rt := &Runtime{
		eng:          e,
		ledger:       l,
		cat:          cat,
		log:          e.log,
		writeTimeout: defaultWriteTimeout,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.table == nil {
		rt.table = NewSessionTable(0, 0)
	}
	return rt, nil
}

func (rt *Runtime) Engine() *Engine          { return rt.eng }
func (rt *Runtime) Catalog() *catalog.Catalog { return rt.cat }
func (rt *Runtime) Table() *SessionTable      { return rt.table }

// CreateSession 建立 session 並寫入 ledger 與起始道具
func (rt *Runtime) CreateSession(ctx context.Context, grants []Grant) (ledger.Snapshot, error) {
	if err := rt.guard(ctx); err != nil {
		return ledger.Snapshot{}, err
	}
	items := make([]item.OwnedItem, 0, len(grants))
	for _, g := range grants {
		if g.Quantity <= 0 {
			return ledger.Snapshot{}, errs.Malformed("grant %s: quantity must > 0, got %d", g.ItemID, g.Quantity)
		}
		o, err := rt.cat.Own(g.ItemID, g.Quantity)
		if err != nil {
			return ledger.Snapshot{}, err
		}
		items = append(items, o)
	}
	if rt.table.Full() {
		return ledger.Snapshot{}, errs.Kindf(errs.CollaboratorUnavailable, "session table full (%d)", rt.table.capacity)
	}
	sess, err := rt.eng.NewSession("", items)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	snap := sess.Snapshot()
	if err := rt.ledger.CreateSession(ctx, snap); err != nil {
		return ledger.Snapshot{}, rt.collabErr(err, "ledger create session", snap.ID)
	}
	for _, g := range grants {
		if err := rt.ledger.GrantItem(ctx, snap.ID, g.ItemID, g.Quantity); err != nil {
			rt.discard(ctx, snap.ID)
			return ledger.Snapshot{}, rt.collabErr(err, "ledger grant item", snap.ID)
		}
	}
	if err := rt.table.Put(sess); err != nil {
		// ledger 已有資料，之後的 Spin 會從 ledger 載入
		rt.log.Warn("runtime: session not cached", "session_id", snap.ID, "err", err)
	}
	return snap, nil
}

// Session 讀取 session（live 優先，否則讀 ledger）
func (rt *Runtime) Session(ctx context.Context, id string) (SessionView, error) {
	if err := ctx.Err(); err != nil {
		return SessionView{}, err
	}
	hs, err := rt.ledger.GetOwnedItems(ctx, id)
	if err != nil {
		return SessionView{}, rt.collabErr(err, "ledger get owned items", id)
	}
	if ent, ok := rt.table.entry(id); ok {
		return SessionView{
			Snapshot: ent.sess.Snapshot(),
			Phase:    ent.sess.Phase(),
			Live:     true,
			Pending:  ent.hasPending(),
			Items:    hs,
		}, nil
	}
	snap, err := rt.ledger.GetSession(ctx, id)
	if err != nil {
		return SessionView{}, rt.collabErr(err, "ledger get session", id)
	}
	v := SessionView{Snapshot: snap, Phase: PhaseIdle, Items: hs}
	if !snap.IsActive {
		v.Phase = PhaseGameOver
	}
	return v, nil
}

// Spin 執行一次權威 spin。
func (rt *Runtime) Spin(ctx context.Context, id string) (res SpinResult, err error) {
	if err := rt.guard(ctx); err != nil {
		return SpinResult{}, err
	}
	ent, err := rt.acquire(ctx, id)
	if err != nil {
		return SpinResult{}, err
	}
	defer ent.release(rt.table.now())

	// 先補寫之前失敗的項目，避免用過期的道具數量再 spin 一次
	if !rt.flush(ctx, ent) {
		return SpinResult{}, errs.Kindf(errs.CollaboratorUnavailable, "session %s: pending ledger writes not settled", id)
	}

	hs, err := rt.ledger.GetOwnedItems(ctx, id)
	if err != nil {
		return SpinResult{}, rt.collabErr(err, "ledger get owned items", id)
	}
	items := rt.own(id, hs)

	out, err := rt.spinSafe(ctx, ent.sess, items)
	if err != nil {
		return SpinResult{}, err
	}
	rt.spins.Add(1)

	snap := ent.sess.Snapshot()
	ent.mu.Lock()
	if out.ConsumedItemID != "" {
		ent.pending.consume = append(ent.pending.consume, out.ConsumedItemID)
	}
	cp := snap
	cp.IsActive = true
	ent.pending.checkpoint = &cp
	if out.Ended {
		ent.pending.end = &snap
	}
	ent.mu.Unlock()

	res = SpinResult{Outcome: out}
	res.Pending = !rt.flush(ctx, ent)
	res.Settled = out.Ended && !res.Pending
	if res.Pending {
		rt.pending.Add(1)
	}
	return res, nil
}

// Settle 重試 session 尚未成功的 ledger 寫入，回傳最新狀態。
func (rt *Runtime) Settle(ctx context.Context, id string) (SessionView, error) {
	if err := ctx.Err(); err != nil {
		return SessionView{}, err
	}
	ent, live, err := rt.table.claim(id)
	if err != nil {
		return SessionView{}, err
	}
	if live {
		settled := rt.flush(ctx, ent)
		ent.release(rt.table.now())
		if !settled {
			return SessionView{}, errs.Kindf(errs.CollaboratorUnavailable, "session %s: ledger writes still pending", id)
		}
	}
	return rt.Session(ctx, id)
}

// Metrics 回傳觀測快照
func (rt *Runtime) Metrics() RuntimeMetrics {
	return RuntimeMetrics{
		Table:     rt.table.Metrics(),
		Spins:     rt.spins.Load(),
		Panics:    rt.panics.Load(),
		Pending:   rt.pending.Load(),
		Settled:   rt.settled.Load(),
		Discarded: rt.discarded.Load(),
		Closed:    rt.Closed(),
		Reason:    rt.ClosedReason(),
	}
}

// Sweep 清除閒置 session
func (rt *Runtime) Sweep(now time.Time) int {
	return rt.table.Sweep(now)
}

// Close transitions the runtime into a closed state. It is safe to call multiple times.
func (rt *Runtime) Close() {
	rt.closeWithReason("closed")
}

// closeWithReason closes the runtime and records the reason (written once).
func (rt *Runtime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		rt.table.closeWithReason(reason)
		close(rt.done)
	})
}

// Closed reports whether the runtime has been closed.
func (rt *Runtime) Closed() bool {
	return rt.closed.Load()
}

func (rt *Runtime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (rt *Runtime) guard(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errs.Wrap(ctx.Err(), "runtime: canceled/timeout")
	case <-rt.done:
		rt.closed.Store(true)
		return errs.NewKind(errs.Closed, "runtime closed: "+rt.ClosedReason())
	default:
	}
	return nil
}

// acquire 取得並佔用 live session（busy）；不在表中時由 ledger 還原。
// 呼叫端必須 release
func (rt *Runtime) acquire(ctx context.Context, id string) (*tableEntry, error) {
	if ent, ok, err := rt.table.claim(id); ok || err != nil {
		return ent, err
	}
	snap, err := rt.ledger.GetSession(ctx, id)
	if err != nil {
		return nil, rt.collabErr(err, "ledger get session", id)
	}
	if !snap.IsActive {
		return nil, errs.Illegal("session %s: already ended", id)
	}
	sess, err := rt.eng.RestoreSession(snap, nil)
	if err != nil {
		return nil, errs.Wrap(err, "runtime: restore session")
	}
	// 同時還原的請求之間只有一個能佔用，另一個拿到 IllegalSpin
	return rt.table.claimPut(sess)
}

// discard 撤銷建立到一半的 session。ctx 已取消時仍要清掉，所以不繼承取消
func (rt *Runtime) discard(ctx context.Context, id string) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultWriteTimeout)
	defer cancel()
	if err := rt.ledger.DeleteSession(dctx, id); err != nil && !errs.Is(err, errs.NotFound) {
		rt.log.Error("runtime: partial session left in ledger", "session_id", id, "err", err)
		return
	}
	rt.discarded.Add(1)
}

// own 把 ledger 持有量轉成 OwnedItem；目錄中不存在的道具略過並記錄
func (rt *Runtime) own(id string, hs []ledger.Holding) []item.OwnedItem {
	items := make([]item.OwnedItem, 0, len(hs))
	for _, h := range hs {
		o, err := rt.cat.Own(h.ItemID, h.Quantity)
		if err != nil {
			rt.log.Warn("runtime: skip unknown holding", "session_id", id, "item_id", h.ItemID, "err", err)
			continue
		}
		items = append(items, o)
	}
	return items
}

// spinSafe 執行 spin 並攔截 panic；panic 後 session 狀態不可信，自表中移除
func (rt *Runtime) spinSafe(ctx context.Context, s *Session, items []item.OwnedItem) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			rt.panics.Add(1)
			rt.table.Remove(s.ID())
			rt.log.Error("runtime: spin panic", "session_id", s.ID(), "panic", fmt.Sprint(r))
			out = Outcome{}
			err = errs.NewFatal(fmt.Sprintf("session %s: spin panic: %v", s.ID(), r))
		}
	}()
	return s.SpinContext(ctx, items)
}

// flush 依序寫入 pending：consume -> checkpoint -> end。回傳是否全部完成。
//
// 寫入不受請求取消影響，以 writeTimeout 為上限。
func (rt *Runtime) flush(ctx context.Context, ent *tableEntry) bool {
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.pending.empty() {
		return true
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rt.writeTimeout)
	defer cancel()
	id := ent.sess.ID()

	for len(ent.pending.consume) > 0 {
		itemID := ent.pending.consume[0]
		err := rt.ledger.ConsumeItem(wctx, id, itemID, 1)
		if err != nil && !errs.Is(err, errs.IllegalSpin) {
			rt.log.Error("runtime: ledger consume item failed", "session_id", id, "item_id", itemID, "err", err)
			return false
		}
		if err != nil {
			// 數量已不足：ledger 與 session 不一致，只能記錄
			rt.log.Warn("runtime: consume skipped", "session_id", id, "item_id", itemID, "err", err)
		}
		ent.pending.consume = ent.pending.consume[1:]
	}
	if cp := ent.pending.checkpoint; cp != nil {
		if err := rt.ledger.Checkpoint(wctx, *cp); err != nil {
			rt.log.Error("runtime: ledger checkpoint failed", "session_id", id, "err", err)
			return false
		}
		ent.pending.checkpoint = nil
	}
	if end := ent.pending.end; end != nil {
		if err := rt.ledger.EndSession(wctx, id, end.Score, end.Level); err != nil {
			rt.log.Error("runtime: ledger end session failed", "session_id", id, "err", err)
			return false
		}
		ent.pending.end = nil
		rt.settled.Add(1)
	}
	return true
}

// collabErr 保留 NotFound 與 context 錯誤，其餘一律視為協作者不可用
func (rt *Runtime) collabErr(err error, op string, id string) error {
	switch errs.KindOf(err) {
	case errs.NotFound:
		return errs.WrapWithExtra(err, op, id)
	case errs.MalformedInput, errs.IllegalSpin:
		return errs.WrapWithExtra(err, op, id)
	}
	rt.log.Error("runtime: collaborator failure", "op", op, "session_id", id, "err", err)
	e := errs.Unavailable(err, op)
	e.Extra = id
	return e
}
