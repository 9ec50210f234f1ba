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

package setting

import (
	"math"
	"slices"

	"github.com/zintix-labs/slot666/errs"
)

// GameSetting 包含建立引擎所需的所有內容表：圖標、連線倍率、風險、升級門檻與 session 規則。
type GameSetting struct {
	GameName string           `yaml:"game_name"  json:"game_name"`
	Symbols  []SymbolSetting  `yaml:"symbols"    json:"symbols"`
	Patterns []PatternSetting `yaml:"patterns"   json:"patterns"`
	Risk     RiskSetting      `yaml:"risk"       json:"risk"`
	Level    LevelSetting     `yaml:"level"      json:"level"`
	Session  SessionSetting   `yaml:"session"    json:"session"`
}

// SymbolSetting 單一圖標的基礎分數與抽樣權重
type SymbolSetting struct {
	Name   string  `yaml:"symbol"  json:"symbol"`
	Points float64 `yaml:"points"  json:"points"`
	Weight int     `yaml:"weight"  json:"weight"`
	Symbol Symbol  `yaml:"-"       json:"-"`
}

// PatternSetting 單一連線種類的倍率
type PatternSetting struct {
	Name       string      `yaml:"kind"        json:"kind"`
	Multiplier float64     `yaml:"multiplier"  json:"multiplier"`
	Kind       PatternKind `yaml:"-"           json:"-"`
}

// RiskSetting 666 機率表參數（capped doubling）
//
//	level <= safe_levels           : 0
//	tier = (level-safe_levels-1)/tier_levels
//	p = min(base_percent * 2^tier, cap_percent)
type RiskSetting struct {
	BasePercent float64 `yaml:"base_percent"  json:"base_percent"`
	SafeLevels  int     `yaml:"safe_levels"   json:"safe_levels"`
	TierLevels  int     `yaml:"tier_levels"   json:"tier_levels"`
	CapPercent  float64 `yaml:"cap_percent"   json:"cap_percent"`
}

// LevelSetting 升級門檻。Phases 依序攤平後為 level 1.. 的門檻，
// 超出表格後每級增加 OverflowStep。
type LevelSetting struct {
	Phases             [][]int `yaml:"phases"                json:"phases"`
	OverflowStep       int     `yaml:"overflow_step"         json:"overflow_step"`
	MaxDiscountPercent int     `yaml:"max_discount_percent"  json:"max_discount_percent"`
	Thresholds         []int   `yaml:"-"                     json:"-"`
}

// SessionSetting session 規則
type SessionSetting struct {
	SpinsPerLevel int `yaml:"spins_per_level"  json:"spins_per_level"`
}

// init
func (gs *GameSetting) init() error {
	if err := gs.initSymbols(); err != nil {
		return err
	}
	if err := gs.initPatterns(); err != nil {
		return err
	}
	if err := gs.Level.init(); err != nil {
		return errs.Wrap(err, "game_name: "+gs.GameName)
	}
	return gs.valid()
}

// initSymbols 解析圖標名稱並依列舉順序重排，每個圖標必須恰好出現一次
func (gs *GameSetting) initSymbols() error {
	seen := [SymbolCount]bool{}
	for i := range gs.Symbols {
		ss := &gs.Symbols[i]
		sym, ok := ParseSymbol(ss.Name)
		if !ok {
			return errs.Inconsistent("game_name: %s err:unknown symbol %q", gs.GameName, ss.Name)
		}
		if seen[sym] {
			return errs.Inconsistent("game_name: %s err:duplicated symbol %s", gs.GameName, ss.Name)
		}
		seen[sym] = true
		ss.Symbol = sym
	}
	for s, ok := range seen {
		if !ok {
			return errs.Inconsistent("game_name: %s err:missing symbol %s", gs.GameName, Symbol(s))
		}
	}
	slices.SortFunc(gs.Symbols, func(a, b SymbolSetting) int { return int(a.Symbol) - int(b.Symbol) })
	return nil
}

func (gs *GameSetting) initPatterns() error {
	seen := [PatternKindCount]bool{}
	for i := range gs.Patterns {
		ps := &gs.Patterns[i]
		k, ok := ParsePatternKind(ps.Name)
		if !ok {
			return errs.Inconsistent("game_name: %s err:unknown pattern kind %q", gs.GameName, ps.Name)
		}
		if seen[k] {
			return errs.Inconsistent("game_name: %s err:duplicated pattern kind %s", gs.GameName, ps.Name)
		}
		seen[k] = true
		ps.Kind = k
	}
	for k, ok := range seen {
		if !ok {
			return errs.Inconsistent("game_name: %s err:missing pattern kind %s", gs.GameName, PatternKind(k))
		}
	}
	slices.SortFunc(gs.Patterns, func(a, b PatternSetting) int { return int(a.Kind) - int(b.Kind) })
	return nil
}

// valid 執行數值範圍檢查
func (gs *GameSetting) valid() error {
	drawable := 0
	for _, ss := range gs.Symbols {
		if ss.Points < 0 || math.IsNaN(ss.Points) || math.IsInf(ss.Points, 0) {
			return errs.Inconsistent("game_name: %s err:invalid points for %s", gs.GameName, ss.Name)
		}
		if ss.Symbol.Cursed() {
			if ss.Weight < 0 {
				return errs.Inconsistent("game_name: %s err:negative weight for six", gs.GameName)
			}
			continue
		}
		if ss.Weight <= 0 {
			return errs.Inconsistent("game_name: %s err:weight must be > 0 for %s", gs.GameName, ss.Name)
		}
		drawable += ss.Weight
	}
	if drawable <= 0 {
		return errs.Inconsistent("game_name: %s err:drawable weight sum is 0", gs.GameName)
	}

	for _, ps := range gs.Patterns {
		if ps.Multiplier < 1 || math.IsInf(ps.Multiplier, 0) {
			return errs.Inconsistent("game_name: %s err:multiplier must be >= 1 for %s", gs.GameName, ps.Name)
		}
	}

	if err := gs.Risk.valid(); err != nil {
		return errs.Wrap(err, "game_name: "+gs.GameName)
	}

	if gs.Session.SpinsPerLevel < 1 {
		return errs.Inconsistent("game_name: %s err:spins_per_level must be >= 1", gs.GameName)
	}
	return nil
}

func (rs *RiskSetting) valid() error {
	if rs.BasePercent < 0 || rs.BasePercent > 100 || math.IsNaN(rs.BasePercent) {
		return errs.Inconsistent("risk: base_percent out of range %v", rs.BasePercent)
	}
	if rs.CapPercent < rs.BasePercent || rs.CapPercent > 100 {
		return errs.Inconsistent("risk: cap_percent %v must be within [base_percent, 100]", rs.CapPercent)
	}
	if rs.SafeLevels < 1 {
		return errs.Inconsistent("risk: safe_levels must be >= 1")
	}
	if rs.TierLevels < 1 {
		return errs.Inconsistent("risk: tier_levels must be >= 1")
	}
	return nil
}

// init 攤平 Phases 並檢查門檻嚴格遞增
func (ls *LevelSetting) init() error {
	ls.Thresholds = ls.Thresholds[:0]
	for _, phase := range ls.Phases {
		ls.Thresholds = append(ls.Thresholds, phase...)
	}
	if len(ls.Thresholds) == 0 {
		return errs.Inconsistent("level: empty thresholds")
	}
	prev := 0
	for i, v := range ls.Thresholds {
		if v <= prev {
			return errs.Inconsistent("level: thresholds must be strictly increasing (level %d = %d)", i+1, v)
		}
		prev = v
	}
	if ls.OverflowStep <= 0 {
		return errs.Inconsistent("level: overflow_step must be > 0")
	}
	if ls.MaxDiscountPercent < 0 || ls.MaxDiscountPercent >= 100 {
		return errs.Inconsistent("level: max_discount_percent must be within [0, 100)")
	}
	return nil
}
