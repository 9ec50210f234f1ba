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
	"fmt"

	"github.com/zintix-labs/slot666/errs"
)

// Symbol 盤面圖標，順序固定（權重抽樣與平手判定都依此順序）。
type Symbol int

const (
	Seven   Symbol = iota // 最高分圖標
	Diamond               // 高分圖標
	Cherry                // 中分圖標
	Coin                  // 中分圖標
	Lemon                 // 低分圖標
	Six                   // 詛咒圖標：只出現在強制 666 盤面
)

// SymbolCount 圖標總數（含 Six）
const SymbolCount = int(Six) + 1

var symbolNames = [SymbolCount]string{"seven", "diamond", "cherry", "coin", "lemon", "six"}

var symbolMap = map[string]Symbol{
	"seven":   Seven,
	"diamond": Diamond,
	"cherry":  Cherry,
	"coin":    Coin,
	"lemon":   Lemon,
	"six":     Six,
}

// ParseSymbol 以小寫名稱解析圖標
func ParseSymbol(s string) (Symbol, bool) {
	sym, ok := symbolMap[s]
	return sym, ok
}

// Symbols 回傳依列舉順序排列的所有圖標
func Symbols() []Symbol {
	out := make([]Symbol, SymbolCount)
	for i := range out {
		out[i] = Symbol(i)
	}
	return out
}

// Valid 回傳圖標是否在列舉範圍內
func (s Symbol) Valid() bool { return s >= Seven && s <= Six }

// Cursed 回傳是否為詛咒圖標（一般抽樣永遠排除）
func (s Symbol) Cursed() bool { return s == Six }

func (s Symbol) String() string {
	if !s.Valid() {
		return fmt.Sprintf("symbol(%d)", int(s))
	}
	return symbolNames[s]
}

func (s Symbol) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, errs.Malformed("unknown symbol %d", int(s))
	}
	return []byte(symbolNames[s]), nil
}

func (s *Symbol) UnmarshalText(b []byte) error {
	sym, ok := ParseSymbol(string(b))
	if !ok {
		return errs.Malformed("unknown symbol %q", string(b))
	}
	*s = sym
	return nil
}
