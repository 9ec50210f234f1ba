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

// Package risk 依等級計算 666 機率（capped doubling）。
package risk

import (
	"math"

	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/setting"
)

// Calculator 666 機率表
type Calculator struct {
	base float64
	cap  float64
	safe int
	tier int
}

// Entry 機率表中的一列
type Entry struct {
	Level   int     `json:"level"    yaml:"level"`
	Percent float64 `json:"percent"  yaml:"percent"`
}

// New 以 RiskSetting 建立 Calculator
func New(rs setting.RiskSetting) (*Calculator, error) {
	if rs.BasePercent < 0 || rs.CapPercent < rs.BasePercent || rs.CapPercent > 100 || rs.SafeLevels < 1 || rs.TierLevels < 1 {
		return nil, errs.Inconsistent("risk: invalid setting %+v", rs)
	}
	return &Calculator{base: rs.BasePercent, cap: rs.CapPercent, safe: rs.SafeLevels, tier: rs.TierLevels}, nil
}

// Probability 回傳 level 的 666 機率（百分比），level < 1 回傳 MalformedInput
//
//	level <= safe : 0
//	k = (level-safe-1)/tier
//	p = min(base * 2^k, cap)
func (c *Calculator) Probability(level int) (float64, error) {
	if level < 1 {
		return 0, errs.Malformed("risk: level must be >= 1, got %d", level)
	}
	if level <= c.safe {
		return 0, nil
	}
	k := (level - c.safe - 1) / c.tier
	// 2^k 超過 cap 之後就不用再算
	if k >= 64 {
		return c.cap, nil
	}
	return math.Min(math.Ldexp(c.base, k), c.cap), nil
}

// InstantLossProbability 與 Probability 相同，level < 1 視為 level 1
func (c *Calculator) InstantLossProbability(level int) float64 {
	p, err := c.Probability(max(level, 1))
	if err != nil {
		return 0
	}
	return p
}

// Table 回傳 1..maxLevel 的機率表
func (c *Calculator) Table(maxLevel int) []Entry {
	out := make([]Entry, 0, max(maxLevel, 0))
	for lv := 1; lv <= maxLevel; lv++ {
		out = append(out, Entry{Level: lv, Percent: c.InstantLossProbability(lv)})
	}
	return out
}

// SafeLevels 不會觸發 666 的最高等級
func (c *Calculator) SafeLevels() int { return c.safe }

// CapPercent 機率上限
func (c *Calculator) CapPercent() float64 { return c.cap }
