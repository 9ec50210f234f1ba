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

// Package level 升級門檻表
package level

import (
	"slices"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/setting"
)

// Schedule 升級門檻。thresholds[i] 為離開 level i+1 所需分數
type Schedule struct {
	thresholds  []int
	overflow    int
	maxDiscount int
}

// Entry 門檻表中的一列
type Entry struct {
	Level     int `json:"level"      yaml:"level"`
	Threshold int `json:"threshold"  yaml:"threshold"`
}

// NewSchedule 以已初始化的 LevelSetting 建立門檻表
func NewSchedule(ls setting.LevelSetting) (*Schedule, error) {
	th := ls.Thresholds
	if len(th) == 0 {
		for _, p := range ls.Phases {
			th = append(th, p...)
		}
	}
	if len(th) == 0 {
		return nil, errs.Inconsistent("level: empty thresholds")
	}
	for i := range th {
		if th[i] <= 0 || (i > 0 && th[i] <= th[i-1]) {
			return nil, errs.Inconsistent("level: thresholds must be positive and strictly increasing at level %d", i+1)
		}
	}
	if ls.OverflowStep <= 0 {
		return nil, errs.Inconsistent("level: overflow_step must be > 0")
	}
	if ls.MaxDiscountPercent < 0 || ls.MaxDiscountPercent >= 100 {
		return nil, errs.Inconsistent("level: max_discount_percent must be within [0,100)")
	}
	return &Schedule{thresholds: slices.Clone(th), overflow: ls.OverflowStep, maxDiscount: ls.MaxDiscountPercent}, nil
}

// Threshold 離開 level 所需分數；超出表格後每級加 overflow，level < 1 視為 1
func (s *Schedule) Threshold(level int) int {
	level = max(level, 1)
	n := len(s.thresholds)
	if level <= n {
		return s.thresholds[level-1]
	}
	return s.thresholds[n-1] + (level-n)*s.overflow
}

// ThresholdWithDiscount floor(base * (100-pct) / 100)，pct 限制在 [0, maxDiscount]，最小為 1
func (s *Schedule) ThresholdWithDiscount(level int, pct decimal.Decimal) int {
	base := s.Threshold(level)
	p := s.clamp(pct)
	if p.IsZero() {
		return base
	}
	hundred := decimal.NewFromInt(100)
	v := decimal.NewFromInt(int64(base)).Mul(hundred.Sub(p)).Div(hundred).Floor()
	return max(int(v.IntPart()), 1)
}

// Advance 只要 score 達到門檻就升級，回傳新等級；永不降級
func (s *Schedule) Advance(level, score int, pct decimal.Decimal) int {
	level = max(level, 1)
	for score >= s.ThresholdWithDiscount(level, pct) {
		level++
	}
	return level
}

// Table 回傳 1..maxLevel 的門檻
func (s *Schedule) Table(maxLevel int, pct decimal.Decimal) []Entry {
	out := make([]Entry, 0, max(maxLevel, 0))
	for lv := 1; lv <= maxLevel; lv++ {
		out = append(out, Entry{Level: lv, Threshold: s.ThresholdWithDiscount(lv, pct)})
	}
	return out
}

// MaxDiscountPercent 折扣上限
func (s *Schedule) MaxDiscountPercent() int { return s.maxDiscount }

func (s *Schedule) clamp(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if m := decimal.NewFromInt(int64(s.maxDiscount)); pct.GreaterThan(m) {
		return m
	}
	return pct
}
