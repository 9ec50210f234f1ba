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

package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zintix-labs/slot666/errs"
)

// Memory 以 map 實作 Ledger，用於測試、模擬與開發環境
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]Snapshot
	items    map[string]map[string]int
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		sessions: map[string]Snapshot{},
		items:    map[string]map[string]int{},
		now:      time.Now,
	}
}

func (m *Memory) CreateSession(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(snap.ID) == "" {
		return errs.Malformed("ledger: session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[snap.ID]; ok {
		return ErrExists
	}
	snap.UpdatedAt = m.now().UTC()
	m.sessions[snap.ID] = snap
	m.items[snap.ID] = map[string]int{}
	return nil
}

func (m *Memory) GetSession(ctx context.Context, id string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) Checkpoint(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[snap.ID]
	if !ok {
		return ErrNotFound
	}
	if !cur.IsActive {
		return ErrEnded
	}
	// 結束與否只由 EndSession 決定
	snap.IsActive = true
	snap.UpdatedAt = m.now().UTC()
	m.sessions[snap.ID] = snap
	return nil
}

// GetOwnedItems 依 item id 排序回傳數量 > 0 的道具
func (m *Memory) GetOwnedItems(ctx context.Context, id string) ([]Holding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Holding, 0, len(inv))
	for itemID, q := range inv {
		if q > 0 {
			out = append(out, Holding{ItemID: itemID, Quantity: q})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (m *Memory) GrantItem(ctx context.Context, id string, itemID string, qty int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if qty <= 0 {
		return errs.Malformed("ledger: grant quantity must > 0, got %d", qty)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	inv[itemID] += qty
	return nil
}

func (m *Memory) ConsumeItem(ctx context.Context, id string, itemID string, qty int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if qty <= 0 {
		return errs.Malformed("ledger: consume quantity must > 0, got %d", qty)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	if inv[itemID] < qty {
		return ErrInsufficient
	}
	inv[itemID] -= qty
	return nil
}

func (m *Memory) EndSession(ctx context.Context, id string, finalScore int, finalLevel int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if !s.IsActive {
		if s.Score == finalScore && s.Level == finalLevel {
			return nil
		}
		return ErrEnded
	}
	s.Score = finalScore
	s.Level = finalLevel
	s.IsActive = false
	s.UpdatedAt = m.now().UTC()
	m.sessions[id] = s
	return nil
}

func (m *Memory) DeleteSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	delete(m.items, id)
	return nil
}

// Len 回傳目前保存的 session 數
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
