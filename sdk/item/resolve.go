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

package item

import (
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/sdk/game"
	"github.com/zintix-labs/slot666/setting"
)

var hundred = decimal.NewFromInt(100)

// Resolve 彙整持有道具。
//
// 每個數值型效果先計算 magnitude * quantity；quantity 為 0 的道具不貢獻任何效果。
// 負數量、未知效果、負 magnitude、缺少或指向 six 的目標、非整數的權重/轉數加成都回傳 MalformedInput。
func Resolve(items []OwnedItem) (Bundle, error) {
	b := Identity()
	one := decimal.NewFromInt(1)
	for _, it := range items {
		if err := validate(it); err != nil {
			return Identity(), err
		}
		if it.Quantity == 0 {
			continue
		}
		v := it.Value()
		switch it.Effect {
		case setting.EffectScoreMultiplier:
			b.ScoreMultiplier = b.ScoreMultiplier.Mul(one.Add(v.Div(hundred)))
		case setting.EffectPatternMultiplierBoost:
			b.PatternMultiplierBoostPercent = b.PatternMultiplierBoostPercent.Add(v)
		case setting.EffectSymbolProbabilityBoost:
			b.PerSymbolProbabilityBoost[*it.Target] += int(v.IntPart())
		case setting.EffectDirectScoreBonus:
			b.DirectScoreBonus = b.DirectScoreBonus.Add(v)
		case setting.EffectSymbolPointBoost:
			b.PerSymbolPointBoost[*it.Target] = b.PerSymbolPointBoost[*it.Target].Add(v)
		case setting.EffectSpinBonus:
			b.SpinBonus += int(v.IntPart())
		case setting.EffectLevelProgressionBonus:
			b.LevelProgressionDiscountPercent = b.LevelProgressionDiscountPercent.Add(v)
		case setting.EffectSixSixSixProtection:
			if !b.HasInstantLossImmunity {
				b.HasInstantLossImmunity = true
				b.ImmunityItemID = it.ItemID
			}
		}
	}
	return b, nil
}

func validate(it OwnedItem) error {
	if it.Quantity < 0 {
		return errs.Malformed("item %s: negative quantity %d", it.ItemID, it.Quantity)
	}
	if !it.Effect.Valid() {
		return errs.Malformed("item %s: unknown effect kind %d", it.ItemID, int(it.Effect))
	}
	if it.Magnitude.IsNegative() {
		return errs.Malformed("item %s: negative magnitude %s", it.ItemID, it.Magnitude)
	}
	switch it.Effect {
	case setting.EffectSymbolProbabilityBoost, setting.EffectSpinBonus:
		if !it.Magnitude.IsInteger() {
			return errs.Malformed("item %s: %s magnitude must be integral, got %s", it.ItemID, it.Effect, it.Magnitude)
		}
	}
	if it.Effect.Targeted() {
		if it.Target == nil {
			return errs.Malformed("item %s: %s needs a target symbol", it.ItemID, it.Effect)
		}
		if !it.Target.Valid() || it.Target.Cursed() {
			return errs.Malformed("item %s: invalid target %s", it.ItemID, *it.Target)
		}
	}
	return nil
}

// Apply 由 cfg 推導加成後的 Config，cfg 本身不變。
//
// 沒有任何改變 Config 的加成時直接回傳 cfg；
// 沒有權重加成時不做正規化。
func Apply(cfg *game.Config, b Bundle) (*game.Config, error) {
	if !b.ChangesConfig() {
		return cfg, nil
	}
	d := cfg.Draft()

	for s, v := range b.PerSymbolPointBoost {
		if !s.Valid() || s.Cursed() || v.IsNegative() {
			return nil, errs.Malformed("apply: invalid point boost %s=%s", s, v)
		}
		d.Symbols[s].BasePoints = d.Symbols[s].BasePoints.Add(v)
	}

	if !b.PatternMultiplierBoostPercent.IsZero() {
		if b.PatternMultiplierBoostPercent.IsNegative() {
			return nil, errs.Malformed("apply: negative pattern boost %s", b.PatternMultiplierBoostPercent)
		}
		f := decimal.NewFromInt(1).Add(b.PatternMultiplierBoostPercent.Div(hundred))
		for k := range d.Multipliers {
			d.Multipliers[k] = d.Multipliers[k].Mul(f)
		}
	}

	if b.hasProbabilityBoost() {
		idx := make([]setting.Symbol, 0, setting.SymbolCount)
		weights := make([]int, 0, setting.SymbolCount)
		for _, sc := range d.Symbols {
			if sc.Symbol.Cursed() {
				continue
			}
			w := sc.Weight + b.PerSymbolProbabilityBoost[sc.Symbol]
			if w < 0 {
				return nil, errs.Malformed("apply: negative weight for %s", sc.Symbol)
			}
			idx = append(idx, sc.Symbol)
			weights = append(weights, w)
		}
		for s := range b.PerSymbolProbabilityBoost {
			if !s.Valid() || s.Cursed() {
				return nil, errs.Malformed("apply: invalid probability boost target %s", s)
			}
		}
		for i, w := range Renormalize(weights, 100) {
			d.Symbols[idx[i]].Weight = w
		}
	}

	out, err := cfg.Derive(d)
	if err != nil {
		return nil, errs.Wrap(err, "apply: derive config")
	}
	return out, nil
}

// Renormalize 把權重等比例縮放為總和 target。
//
// 每項取 floor(w*target/total)；原本 > 0 的項目至少保留 1，不會被縮放到抽不到。
// 剩餘差額加到縮放前最大的權重（平手取 index 最小者），
// 保底造成的超出則從目前最大的項目逐一扣回。正值項目多於 target 時總和可能大於 target。
// total 為 0 時原樣回傳副本。
func Renormalize(weights []int, target int) []int {
	out := make([]int, len(weights))
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		copy(out, weights)
		return out
	}
	sum, largest := 0, 0
	for i, w := range weights {
		out[i] = w * target / total
		if w > 0 && out[i] == 0 {
			out[i] = 1
		}
		sum += out[i]
		if w > weights[largest] {
			largest = i
		}
	}
	if sum <= target {
		out[largest] += target - sum
		return out
	}
	for ; sum > target; sum-- {
		j := -1
		for i, v := range out {
			if v > 1 && (j < 0 || v > out[j]) {
				j = i
			}
		}
		if j < 0 {
			break
		}
		out[j]--
	}
	return out
}
