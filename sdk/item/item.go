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

// Package item 把持有的道具彙整成加成包 (Bundle)，並推導加成後的 game.Config。
package item

import (
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/setting"
)

// OwnedItem 持有的道具，唯讀輸入
type OwnedItem struct {
	ItemID    string
	Quantity  int
	Effect    setting.EffectKind
	Magnitude decimal.Decimal
	Target    *setting.Symbol
}

// Value 單一堆疊的數值：magnitude * quantity
func (o OwnedItem) Value() decimal.Decimal {
	return o.Magnitude.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// Bundle 每轉的加成包
type Bundle struct {
	ScoreMultiplier                 decimal.Decimal
	PatternMultiplierBoostPercent   decimal.Decimal
	DirectScoreBonus                decimal.Decimal
	LevelProgressionDiscountPercent decimal.Decimal
	SpinBonus                       int
	PerSymbolProbabilityBoost       map[setting.Symbol]int
	PerSymbolPointBoost             map[setting.Symbol]decimal.Decimal
	HasInstantLossImmunity          bool
	ImmunityItemID                  string // 觸發 666 免疫時要消耗的道具
}

// Identity 回傳沒有任何加成的 Bundle
func Identity() Bundle {
	return Bundle{
		ScoreMultiplier:                 decimal.NewFromInt(1),
		PatternMultiplierBoostPercent:   decimal.Zero,
		DirectScoreBonus:                decimal.Zero,
		LevelProgressionDiscountPercent: decimal.Zero,
		PerSymbolProbabilityBoost:       map[setting.Symbol]int{},
		PerSymbolPointBoost:             map[setting.Symbol]decimal.Decimal{},
	}
}

// IsIdentity 是否等同 Identity()
func (b Bundle) IsIdentity() bool {
	return b.ScoreMultiplier.Equal(decimal.NewFromInt(1)) &&
		b.PatternMultiplierBoostPercent.IsZero() &&
		b.DirectScoreBonus.IsZero() &&
		b.LevelProgressionDiscountPercent.IsZero() &&
		b.SpinBonus == 0 &&
		!b.hasProbabilityBoost() &&
		!b.hasPointBoost() &&
		!b.HasInstantLossImmunity
}

// ChangesConfig 是否需要推導新的 Config
func (b Bundle) ChangesConfig() bool {
	return !b.PatternMultiplierBoostPercent.IsZero() || b.hasProbabilityBoost() || b.hasPointBoost()
}

func (b Bundle) hasProbabilityBoost() bool {
	for _, v := range b.PerSymbolProbabilityBoost {
		if v != 0 {
			return true
		}
	}
	return false
}

func (b Bundle) hasPointBoost() bool {
	for _, v := range b.PerSymbolPointBoost {
		if !v.IsZero() {
			return true
		}
	}
	return false
}

// Holding 回傳 id 在 items 中的總數量
func Holding(items []OwnedItem, id string) int {
	n := 0
	for _, it := range items {
		if it.ItemID == id {
			n += it.Quantity
		}
	}
	return n
}

// Decrement 回傳扣除 n 個 id 後的副本；數量不足時回傳 false 且不修改
func Decrement(items []OwnedItem, id string, n int) ([]OwnedItem, bool) {
	if Holding(items, id) < n {
		return items, false
	}
	out := make([]OwnedItem, len(items))
	copy(out, items)
	for i := range out {
		if n == 0 {
			break
		}
		if out[i].ItemID != id || out[i].Quantity <= 0 {
			continue
		}
		take := min(out[i].Quantity, n)
		out[i].Quantity -= take
		n -= take
	}
	return out, true
}
