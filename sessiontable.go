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
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/ledger"
)

const (
	defaultTableCapacity = 10_000
	defaultIdleTimeout   = 30 * time.Minute
)

// SessionTable 管理記憶體中的 live session。
//
//   - 以 RWMutex 保護 map，計數器皆為 atomic，Metrics 不需要寫鎖
//   - 容量滿時拒絕新 session（CollaboratorUnavailable）
//   - Sweep 移除閒置超時、沒有進行中 spin、沒有待結算寫入的 session
type SessionTable struct {
	mu       sync.RWMutex
	m        map[string]*tableEntry
	capacity int
	idle     time.Duration
	now      func() time.Time

	created  atomic.Int64 // Put 成功次數
	removed  atomic.Int64 // Remove 次數
	evicted  atomic.Int64 // Sweep 移除次數
	rejected atomic.Int64 // 容量已滿被拒絕次數

	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string
}

// tableEntry 一個 live session 與其呼叫端狀態
type tableEntry struct {
	sess     *Session
	lastUsed atomic.Int64 // unix nano
	busy     atomic.Bool  // Runtime 流程（含 ledger I/O）進行中

	mu      sync.Mutex // 保護 pending
	pending pendingWrites
}

// pendingWrites spin 之後尚未成功寫入 ledger 的項目，依序重試
type pendingWrites struct {
	consume    []string
	checkpoint *ledger.Snapshot
	end        *ledger.Snapshot
}

func (p *pendingWrites) empty() bool {
	return len(p.consume) == 0 && p.checkpoint == nil && p.end == nil
}

// TableMetrics SessionTable 觀測值
type TableMetrics struct {
	Live     int    `json:"live"`
	Capacity int    `json:"capacity"`
	Busy     int    `json:"busy"`
	Pending  int    `json:"pending"`
	Created  int64  `json:"created"`
	Removed  int64  `json:"removed"`
	Evicted  int64  `json:"evicted"`
	Rejected int64  `json:"rejected"`
	Closed   bool   `json:"closed"`
	Reason   string `json:"reason,omitempty"`
}

// NewSessionTable 建立 session 表；capacity <= 0 或 idle <= 0 時使用預設值
func NewSessionTable(capacity int, idle time.Duration) *SessionTable {
	if capacity <= 0 {
		capacity = defaultTableCapacity
	}
	if idle <= 0 {
		idle = defaultIdleTimeout
	}
	return &SessionTable{
		m:        make(map[string]*tableEntry, min(capacity, 1024)),
		capacity: capacity,
		idle:     idle,
		now:      time.Now,
	}
}

// Put 加入 session；id 已存在時保留既有的 session
func (t *SessionTable) Put(s *Session) error {
	_, err := t.put(s)
	return err
}

func (t *SessionTable) put(s *Session) (*tableEntry, error) {
	if t.Closed() {
		return nil, errs.NewKind(errs.Closed, "session table closed: "+t.ClosedReason())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.m[s.ID()]; ok {
		return e, nil
	}
	if len(t.m) >= t.capacity {
		t.rejected.Add(1)
		return nil, errs.Kindf(errs.CollaboratorUnavailable, "session table full (%d)", t.capacity)
	}
	e := &tableEntry{sess: s}
	e.lastUsed.Store(t.now().UnixNano())
	t.m[s.ID()] = e
	t.created.Add(1)
	return e, nil
}

// Get 回傳 live session
func (t *SessionTable) Get(id string) (*Session, bool) {
	e, ok := t.entry(id)
	if !ok {
		return nil, false
	}
	return e.sess, true
}

func (t *SessionTable) entry(id string) (*tableEntry, bool) {
	t.mu.RLock()
	e, ok := t.m[id]
	t.mu.RUnlock()
	if ok {
		e.lastUsed.Store(t.now().UnixNano())
	}
	return e, ok
}

// claim 在讀鎖下取得 entry 並設 busy。Sweep 持寫鎖檢查 busy，
// 因此 claim 成功的 entry 在 release 前不會被移出表。
// 不存在回傳 (nil, false, nil)；已被佔用回傳 IllegalSpin
func (t *SessionTable) claim(id string) (*tableEntry, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.m[id]
	if !ok {
		return nil, false, nil
	}
	if !e.busy.CompareAndSwap(false, true) {
		return nil, true, errs.Illegal("session %s: spin already in flight", id)
	}
	e.lastUsed.Store(t.now().UnixNano())
	return e, true, nil
}

// claimPut 加入 session（已存在則沿用既有的）並設 busy，整段持寫鎖
func (t *SessionTable) claimPut(s *Session) (*tableEntry, error) {
	if t.Closed() {
		return nil, errs.NewKind(errs.Closed, "session table closed: "+t.ClosedReason())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.m[s.ID()]
	if !ok {
		if len(t.m) >= t.capacity {
			t.rejected.Add(1)
			return nil, errs.Kindf(errs.CollaboratorUnavailable, "session table full (%d)", t.capacity)
		}
		e = &tableEntry{sess: s}
		t.m[s.ID()] = e
		t.created.Add(1)
	}
	if !e.busy.CompareAndSwap(false, true) {
		return nil, errs.Illegal("session %s: spin already in flight", s.ID())
	}
	e.lastUsed.Store(t.now().UnixNano())
	return e, nil
}

// release 結束 claim，並刷新 lastUsed 讓閒置時間從流程結束起算
func (e *tableEntry) release(now time.Time) {
	e.lastUsed.Store(now.UnixNano())
	e.busy.Store(false)
}

// Remove 移除 session，回傳是否存在
func (t *SessionTable) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.m[id]; !ok {
		return false
	}
	delete(t.m, id)
	t.removed.Add(1)
	return true
}

// Full 回傳是否已達容量
func (t *SessionTable) Full() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m) >= t.capacity
}

func (t *SessionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}

// Sweep 移除在 now 之前閒置超過 idle 的 session，回傳移除數量。
func (t *SessionTable) Sweep(now time.Time) int {
	cutoff := now.Add(-t.idle).UnixNano()
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, e := range t.m {
		if e.lastUsed.Load() > cutoff || e.busy.Load() || e.hasPending() {
			continue
		}
		delete(t.m, id)
		n++
	}
	t.evicted.Add(int64(n))
	return n
}

// Metrics 回傳觀測快照
func (t *SessionTable) Metrics() TableMetrics {
	t.mu.RLock()
	m := TableMetrics{Live: len(t.m), Capacity: t.capacity}
	for _, e := range t.m {
		if e.busy.Load() {
			m.Busy++
		}
		if e.hasPending() {
			m.Pending++
		}
	}
	t.mu.RUnlock()
	m.Created = t.created.Load()
	m.Removed = t.removed.Load()
	m.Evicted = t.evicted.Load()
	m.Rejected = t.rejected.Load()
	m.Closed = t.Closed()
	m.Reason = t.ClosedReason()
	return m
}

// Idle 閒置超時設定
func (t *SessionTable) Idle() time.Duration { return t.idle }

// Close 關閉後不再接受新 session；既有 session 保留供讀取與結算。
func (t *SessionTable) Close() {
	t.closeWithReason("closed")
}

func (t *SessionTable) closeWithReason(reason string) {
	t.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		t.reason.Store(reason)
		t.closed.Store(true)
	})
}

func (t *SessionTable) Closed() bool {
	return t.closed.Load()
}

func (t *SessionTable) ClosedReason() string {
	if v := t.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (e *tableEntry) hasPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.pending.empty()
}
