package game

import (
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/setting"
)

// Draft 是 Config 的可變副本，只用來推導加成後的 Config。
type Draft struct {
	Symbols     [setting.SymbolCount]SymbolConfig
	Multipliers [setting.PatternKindCount]decimal.Decimal
}

// Draft 取得目前內容的可變副本
func (c *Config) Draft() Draft {
	return Draft{Symbols: c.symbols, Multipliers: c.multipliers}
}

// Derive 以 Draft 產生新的 Config，原 Config 不受影響。
//
// 與 NewConfig 不同，推導後的權重允許為 0（正規化的 floor 可能把小權重壓成 0）。
func (c *Config) Derive(d Draft) (*Config, error) {
	n := &Config{name: c.name, baseProb: c.baseProb}
	if err := n.assign(d); err != nil {
		return nil, err
	}
	return n, nil
}
