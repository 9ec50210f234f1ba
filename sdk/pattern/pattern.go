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

// Package pattern 掃描盤面上的連線。
//
// 輸出順序固定：橫向（row 0..2）、直向（col 0..4）、斜向、jackpot。
// 偵測不看倍率，倍率由 Resolve 依當轉（可能加成過的）Config 填入。
package pattern

import (
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/slot666/sdk/game"
	"github.com/zintix-labs/slot666/sdk/grid"
	"github.com/zintix-labs/slot666/setting"
)

// Pattern 單一連線
type Pattern struct {
	Kind       setting.PatternKind
	Cells      []grid.Cell
	Symbol     setting.Symbol
	Multiplier decimal.Decimal // Resolve 之前為 0
}

// Detect 回傳盤面上所有連線，盤面含非法圖標時回傳 MalformedInput 且不回傳部分結果
func Detect(g grid.Grid) ([]Pattern, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	out := make([]Pattern, 0, 8)
	for r := 0; r < grid.Rows; r++ {
		if p, ok := horizontal(&g, r); ok {
			out = append(out, p)
		}
	}
	for c := 0; c < grid.Cols; c++ {
		if p, ok := vertical(&g, c); ok {
			out = append(out, p)
		}
	}
	// 右下：(0,c),(1,c+1),(2,c+2)
	for c := 0; c <= grid.Cols-grid.Rows; c++ {
		if p, ok := diagonal(&g, c, 1); ok {
			out = append(out, p)
		}
	}
	// 左下：(0,c),(1,c-1),(2,c-2)
	for c := grid.Rows - 1; c < grid.Cols; c++ {
		if p, ok := diagonal(&g, c, -1); ok {
			out = append(out, p)
		}
	}
	if p, ok := jackpot(&g); ok {
		out = append(out, p)
	}
	return out, nil
}

// horizontal 每列最多一條，優先序 5 > 4 > 3，同長度取最小起始欄
func horizontal(g *grid.Grid, r int) (Pattern, bool) {
	for _, w := range [...]struct {
		n    int
		kind setting.PatternKind
	}{{5, setting.H5}, {4, setting.H4}, {3, setting.H3}} {
		for start := 0; start+w.n <= grid.Cols; start++ {
			if runEqual(g[r][start : start+w.n]) {
				cells := make([]grid.Cell, w.n)
				for i := range cells {
					cells[i] = grid.Cell{Row: r, Col: start + i}
				}
				return Pattern{Kind: w.kind, Cells: cells, Symbol: g[r][start]}, true
			}
		}
	}
	return Pattern{}, false
}

func vertical(g *grid.Grid, c int) (Pattern, bool) {
	s := g[0][c]
	if g[1][c] != s || g[2][c] != s {
		return Pattern{}, false
	}
	cells := []grid.Cell{{Row: 0, Col: c}, {Row: 1, Col: c}, {Row: 2, Col: c}}
	return Pattern{Kind: setting.V3, Cells: cells, Symbol: s}, true
}

func diagonal(g *grid.Grid, c, step int) (Pattern, bool) {
	s := g[0][c]
	if g[1][c+step] != s || g[2][c+2*step] != s {
		return Pattern{}, false
	}
	cells := []grid.Cell{{Row: 0, Col: c}, {Row: 1, Col: c + step}, {Row: 2, Col: c + 2*step}}
	return Pattern{Kind: setting.D3, Cells: cells, Symbol: s}, true
}

func jackpot(g *grid.Grid) (Pattern, bool) {
	s := g[0][0]
	if g.Count(s) != grid.Cells {
		return Pattern{}, false
	}
	cells := make([]grid.Cell, 0, grid.Cells)
	for r := 0; r < grid.Rows; r++ {
		for c := 0; c < grid.Cols; c++ {
			cells = append(cells, grid.Cell{Row: r, Col: c})
		}
	}
	return Pattern{Kind: setting.Jackpot, Cells: cells, Symbol: s}, true
}

func runEqual(row []setting.Symbol) bool {
	for _, s := range row[1:] {
		if s != row[0] {
			return false
		}
	}
	return true
}

// Resolve 依 cfg 填入倍率，回傳新的 slice，不修改輸入
func Resolve(ps []Pattern, cfg *game.Config) []Pattern {
	out := make([]Pattern, len(ps))
	for i, p := range ps {
		p.Multiplier = cfg.Multiplier(p.Kind)
		out[i] = p
	}
	return out
}

// CountByKind 統計各連線種類數量
func CountByKind(ps []Pattern) [setting.PatternKindCount]int {
	var out [setting.PatternKindCount]int
	for _, p := range ps {
		if p.Kind.Valid() {
			out[p.Kind]++
		}
	}
	return out
}
