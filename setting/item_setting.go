package setting

import (
	"math"

	"github.com/zintix-labs/slot666/errs"
)

// ItemsSetting 道具目錄檔
type ItemsSetting struct {
	Items []ItemSetting `yaml:"items"  json:"items"`
}

// ItemSetting 單一道具定義
type ItemSetting struct {
	ID          string     `yaml:"id"                     json:"id"`
	Name        string     `yaml:"name"                   json:"name"`
	Description string     `yaml:"description,omitempty"  json:"description,omitempty"`
	Effect      string     `yaml:"effect"                 json:"effect"`
	Magnitude   float64    `yaml:"magnitude"              json:"magnitude"`
	Target      string     `yaml:"target,omitempty"       json:"target,omitempty"`
	EffectKind  EffectKind `yaml:"-"                      json:"-"`
	TargetSym   *Symbol    `yaml:"-"                      json:"-"`
}

func (is *ItemsSetting) init() error {
	ids := make(map[string]struct{}, len(is.Items))
	for i := range is.Items {
		it := &is.Items[i]
		if err := it.init(); err != nil {
			return err
		}
		if _, dup := ids[it.ID]; dup {
			return errs.Inconsistent("items: duplicated id %q", it.ID)
		}
		ids[it.ID] = struct{}{}
	}
	return nil
}

func (it *ItemSetting) init() error {
	if it.ID == "" {
		return errs.Inconsistent("items: empty id")
	}
	k, ok := ParseEffectKind(it.Effect)
	if !ok {
		return errs.Inconsistent("item %s: unknown effect %q", it.ID, it.Effect)
	}
	it.EffectKind = k
	if it.Magnitude < 0 || math.IsNaN(it.Magnitude) || math.IsInf(it.Magnitude, 0) {
		return errs.Inconsistent("item %s: invalid magnitude %v", it.ID, it.Magnitude)
	}
	if k == EffectSymbolProbabilityBoost && it.Magnitude != math.Trunc(it.Magnitude) {
		return errs.Inconsistent("item %s: probability boost must be integral", it.ID)
	}
	if !k.Targeted() {
		if it.Target != "" {
			return errs.Inconsistent("item %s: effect %s takes no target", it.ID, k)
		}
		return nil
	}
	sym, ok := ParseSymbol(it.Target)
	if !ok {
		return errs.Inconsistent("item %s: unknown target %q", it.ID, it.Target)
	}
	if sym.Cursed() {
		return errs.Inconsistent("item %s: six cannot be targeted", it.ID)
	}
	it.TargetSym = &sym
	return nil
}
