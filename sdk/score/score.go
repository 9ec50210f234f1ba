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

package score

import (
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/sdk/game"
	"github.com/zintix-labs/slot666/sdk/item"
	"github.com/zintix-labs/slot666/sdk/pattern"
)

// Of 單一連線分數 = basePoints(symbol) * cellCount * multiplier(kind)
//
// 倍率取自 cfg（不看 p.Multiplier），結果不取整，小於 0 時回傳 0。
func Of(p pattern.Pattern, cfg *game.Config) decimal.Decimal {
	v := cfg.BasePoints(p.Symbol).
		Mul(decimal.NewFromInt(int64(len(p.Cells)))).
		Mul(cfg.Multiplier(p.Kind))
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// Sum 所有連線分數總和，不取整
func Sum(ps []pattern.Pattern, cfg *game.Config) decimal.Decimal {
	total := decimal.Zero
	for _, p := range ps {
		total = total.Add(Of(p, cfg))
	}
	return total
}

// Spin 一轉的最終分數 floor(Sum * ScoreMultiplier + DirectScoreBonus)，最小為 0。
// 取整只在這裡發生一次。
func Spin(ps []pattern.Pattern, cfg *game.Config, b item.Bundle) int {
	m := b.ScoreMultiplier
	if m.IsZero() {
		// Resolve 產出的倍率恆 >= 1，0 只代表零值 Bundle
		m = decimal.NewFromInt(1)
	}
	v := Sum(ps, cfg).Mul(m).Add(b.DirectScoreBonus).Floor()
	if v.IsNegative() {
		return 0
	}
	return int(v.IntPart())
}
