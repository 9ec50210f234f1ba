package setting

import (
	"fmt"

	"github.com/zintix-labs/slot666/errs"
)

// EffectKind 道具效果種類
type EffectKind int

const (
	EffectUnknown                EffectKind = iota
	EffectScoreMultiplier                   // 分數倍率，乘法疊加
	EffectPatternMultiplierBoost            // 連線倍率百分比，加法疊加
	EffectSymbolProbabilityBoost            // 指定圖標權重，加法疊加後正規化
	EffectDirectScoreBonus                  // 每轉固定加分
	EffectSymbolPointBoost                  // 指定圖標基礎分數
	EffectSpinBonus                         // 建立 session / 升級時額外轉數
	EffectLevelProgressionBonus             // 升級門檻折扣百分比
	EffectSixSixSixProtection               // 666 免疫，觸發一次消耗一個
)

var effectNames = map[EffectKind]string{
	EffectScoreMultiplier:        "score_multiplier",
	EffectPatternMultiplierBoost: "pattern_multiplier_boost",
	EffectSymbolProbabilityBoost: "symbol_probability_boost",
	EffectDirectScoreBonus:       "direct_score_bonus",
	EffectSymbolPointBoost:       "symbol_point_boost",
	EffectSpinBonus:              "spin_bonus",
	EffectLevelProgressionBonus:  "level_progression_bonus",
	EffectSixSixSixProtection:    "six_six_six_protection",
}

var effectMap = func() map[string]EffectKind {
	m := make(map[string]EffectKind, len(effectNames))
	for k, v := range effectNames {
		m[v] = k
	}
	return m
}()

func ParseEffectKind(s string) (EffectKind, bool) {
	k, ok := effectMap[s]
	return k, ok
}

func (k EffectKind) Valid() bool {
	_, ok := effectNames[k]
	return ok
}

// Targeted 回傳此效果是否需要指定圖標
func (k EffectKind) Targeted() bool {
	return k == EffectSymbolProbabilityBoost || k == EffectSymbolPointBoost
}

func (k EffectKind) String() string {
	if s, ok := effectNames[k]; ok {
		return s
	}
	return fmt.Sprintf("effect(%d)", int(k))
}

func (k EffectKind) MarshalText() ([]byte, error) {
	s, ok := effectNames[k]
	if !ok {
		return nil, errs.Malformed("unknown effect kind %d", int(k))
	}
	return []byte(s), nil
}

func (k *EffectKind) UnmarshalText(b []byte) error {
	v, ok := ParseEffectKind(string(b))
	if !ok {
		return errs.Malformed("unknown effect kind %q", string(b))
	}
	*k = v
	return nil
}
