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

// Package ledger 定義 Session 的持久化介面與記憶體實作。
//
// Ledger 是引擎外部的協作者：引擎本身不做任何 I/O，由呼叫端 (Runtime) 在 spin
// 前後讀寫。
package ledger

import (
	"context"
	"time"

	"github.com/zintix-labs/slot666/errs"
)

var (
	// ErrNotFound session 或道具不存在
	ErrNotFound = errs.NewKind(errs.NotFound, "ledger: not found")
	// ErrInsufficient 道具數量不足以扣除
	ErrInsufficient = errs.NewKind(errs.IllegalSpin, "ledger: insufficient quantity")
	// ErrExists 重複建立
	ErrExists = errs.NewKind(errs.MalformedInput, "ledger: session already exists")
	// ErrEnded session 已結算，不接受任何寫入
	ErrEnded = errs.NewKind(errs.IllegalSpin, "ledger: session already ended")
)

// Snapshot 為 Ledger 保存的 Session 狀態
type Snapshot struct {
	ID             string    `json:"id"`
	Score          int       `json:"score"`
	TotalScore     int       `json:"total_score"`
	Level          int       `json:"level"`
	SpinsRemaining int       `json:"spins_remaining"`
	IsActive       bool      `json:"is_active"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Holding 為持有的道具與數量
type Holding struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Ledger 為 Session 狀態與持有道具的權威來源。
//
// EndSession 對同一 id 重複呼叫且參數相同時必須成功（可重試）。
type Ledger interface {
	CreateSession(ctx context.Context, snap Snapshot) error
	GetSession(ctx context.Context, id string) (Snapshot, error)
	// Checkpoint 保存進度（不改變 IsActive）；已結算的 session 回傳 ErrEnded
	Checkpoint(ctx context.Context, snap Snapshot) error
	GetOwnedItems(ctx context.Context, id string) ([]Holding, error)
	GrantItem(ctx context.Context, id string, itemID string, qty int) error
	ConsumeItem(ctx context.Context, id string, itemID string, qty int) error
	EndSession(ctx context.Context, id string, finalScore int, finalLevel int) error
	// DeleteSession 移除 session 與其持有道具；不存在時回傳 ErrNotFound。
	// 只用於撤銷建立到一半的 session
	DeleteSession(ctx context.Context, id string) error
}
