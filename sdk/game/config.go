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

// Package game 定義不可變的遊戲設定 Config。
//
// 基礎 Config 由內容表建立；每一轉的加成版本只能透過 Derive 產生新的副本，原本的 Config 永遠不變。
// 分數與倍率一律使用 decimal，避免多次疊加後在不同副本間產生誤差。
package game

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/sdk/core"
	"github.com/zintix-labs/slot666/sdk/sampler"
	"github.com/zintix-labs/slot666/setting"
)

// SymbolConfig 圖標的基礎分數與抽樣權重
type SymbolConfig struct {
	Symbol     setting.Symbol
	BasePoints decimal.Decimal
	Weight     int
}

// PatternMultiplier 連線種類倍率
type PatternMultiplier struct {
	Kind       setting.PatternKind
	Multiplier decimal.Decimal
}

// Config 不可變遊戲設定
type Config struct {
	name        string
	symbols     [setting.SymbolCount]SymbolConfig
	multipliers [setting.PatternKindCount]decimal.Decimal
	baseProb    float64

	// 以下為衍生欄位：一般抽樣的圖標池（排除 six，依列舉順序）
	drawable []setting.Symbol
	weights  []int
	lut      sampler.LUT
}

// NewConfig 以內容表建立基礎 Config。
//
// symbols 必須依列舉順序、每個圖標一筆；可抽樣圖標的權重必須 > 0。
// patterns 必須每種連線一筆且倍率 >= 1。
func NewConfig(name string, symbols []SymbolConfig, patterns []PatternMultiplier, baseProbPercent float64) (*Config, error) {
	if len(symbols) != setting.SymbolCount {
		return nil, errs.Inconsistent("game %s: need %d symbols, got %d", name, setting.SymbolCount, len(symbols))
	}
	if len(patterns) != setting.PatternKindCount {
		return nil, errs.Inconsistent("game %s: need %d pattern multipliers, got %d", name, setting.PatternKindCount, len(patterns))
	}
	if baseProbPercent < 0 || baseProbPercent > 100 || math.IsNaN(baseProbPercent) {
		return nil, errs.Inconsistent("game %s: base probability out of range %v", name, baseProbPercent)
	}
	d := Draft{}
	for i, sc := range symbols {
		if sc.Symbol != setting.Symbol(i) {
			return nil, errs.Inconsistent("game %s: symbols must follow enum order, got %s at %d", name, sc.Symbol, i)
		}
		if !sc.Symbol.Cursed() && sc.Weight <= 0 {
			return nil, errs.Inconsistent("game %s: weight of %s must be > 0", name, sc.Symbol)
		}
		d.Symbols[i] = sc
	}
	for i, pm := range patterns {
		if pm.Kind != setting.PatternKind(i) {
			return nil, errs.Inconsistent("game %s: pattern multipliers must follow kind order, got %s at %d", name, pm.Kind, i)
		}
		d.Multipliers[i] = pm.Multiplier
	}
	c := &Config{name: name, baseProb: baseProbPercent}
	if err := c.assign(d); err != nil {
		return nil, err
	}
	return c, nil
}

// FromSetting 由已初始化的 GameSetting 建立基礎 Config
func FromSetting(gs *setting.GameSetting) (*Config, error) {
	symbols := make([]SymbolConfig, len(gs.Symbols))
	for i, ss := range gs.Symbols {
		symbols[i] = SymbolConfig{Symbol: ss.Symbol, BasePoints: decimal.NewFromFloat(ss.Points), Weight: ss.Weight}
	}
	patterns := make([]PatternMultiplier, len(gs.Patterns))
	for i, ps := range gs.Patterns {
		patterns[i] = PatternMultiplier{Kind: ps.Kind, Multiplier: decimal.NewFromFloat(ps.Multiplier)}
	}
	return NewConfig(gs.GameName, symbols, patterns, gs.Risk.BasePercent)
}

// assign 驗證 Draft 並寫入，同時重建抽樣表
func (c *Config) assign(d Draft) error {
	for i, sc := range d.Symbols {
		if sc.Symbol != setting.Symbol(i) {
			return errs.Inconsistent("game %s: symbol order broken at %d", c.name, i)
		}
		if sc.BasePoints.IsNegative() {
			return errs.Inconsistent("game %s: negative points for %s", c.name, sc.Symbol)
		}
		if sc.Weight < 0 {
			return errs.Inconsistent("game %s: negative weight for %s", c.name, sc.Symbol)
		}
	}
	one := decimal.NewFromInt(1)
	for k, m := range d.Multipliers {
		if m.LessThan(one) {
			return errs.Inconsistent("game %s: multiplier of %s must be >= 1", c.name, setting.PatternKind(k))
		}
	}
	c.symbols = d.Symbols
	c.multipliers = d.Multipliers
	c.drawable = c.drawable[:0]
	c.weights = c.weights[:0]
	for _, sc := range c.symbols {
		if sc.Symbol.Cursed() {
			continue
		}
		c.drawable = append(c.drawable, sc.Symbol)
		c.weights = append(c.weights, sc.Weight)
	}
	// 總和為 0 或過大時 lut 為 nil，Draw 會退回 Cumulative
	c.lut, _ = sampler.BuildLUT(c.weights)
	return nil
}

func (c *Config) Name() string { return c.name }

// Symbol 回傳單一圖標設定，超出範圍時回傳零值
func (c *Config) Symbol(s setting.Symbol) SymbolConfig {
	if !s.Valid() {
		return SymbolConfig{}
	}
	return c.symbols[s]
}

// Symbols 回傳依列舉順序的圖標設定副本
func (c *Config) Symbols() []SymbolConfig {
	out := make([]SymbolConfig, len(c.symbols))
	copy(out, c.symbols[:])
	return out
}

func (c *Config) BasePoints(s setting.Symbol) decimal.Decimal { return c.Symbol(s).BasePoints }

func (c *Config) Weight(s setting.Symbol) int { return c.Symbol(s).Weight }

// Multiplier 回傳連線倍率，超出範圍時回傳 0
func (c *Config) Multiplier(k setting.PatternKind) decimal.Decimal {
	if !k.Valid() {
		return decimal.Zero
	}
	return c.multipliers[k]
}

func (c *Config) Multipliers() []PatternMultiplier {
	out := make([]PatternMultiplier, len(c.multipliers))
	for k, m := range c.multipliers {
		out[k] = PatternMultiplier{Kind: setting.PatternKind(k), Multiplier: m}
	}
	return out
}

// InstantLossBaseProbability 666 基礎機率（百分比）
func (c *Config) InstantLossBaseProbability() float64 { return c.baseProb }

// Drawable 回傳一般抽樣的圖標池（不含 six）
func (c *Config) Drawable() []setting.Symbol {
	out := make([]setting.Symbol, len(c.drawable))
	copy(out, c.drawable)
	return out
}

// DrawableWeights 與 Drawable 對齊的權重
func (c *Config) DrawableWeights() []int {
	out := make([]int, len(c.weights))
	copy(out, c.weights)
	return out
}

// DrawableTotal 一般抽樣權重總和
func (c *Config) DrawableTotal() int { return sampler.Total(c.weights) }

// Draw 抽一個一般圖標，只消耗一次 IntN。
// 權重總和為 0 時改為均勻抽樣並回傳 ok=false。
func (c *Config) Draw(rng core.RandomSource) (setting.Symbol, bool) {
	if c.lut != nil {
		return c.drawable[c.lut.Pick(rng)], true
	}
	idx, ok := sampler.Cumulative(rng, c.weights)
	return c.drawable[idx], ok
}

// Equal 比較兩份 Config 的內容（不含名稱）
func (c *Config) Equal(o *Config) bool {
	if c == o {
		return true
	}
	if c == nil || o == nil {
		return false
	}
	if c.baseProb != o.baseProb {
		return false
	}
	for i := range c.symbols {
		a, b := c.symbols[i], o.symbols[i]
		if a.Symbol != b.Symbol || a.Weight != b.Weight || !a.BasePoints.Equal(b.BasePoints) {
			return false
		}
	}
	for i := range c.multipliers {
		if !c.multipliers[i].Equal(o.multipliers[i]) {
			return false
		}
	}
	return true
}
