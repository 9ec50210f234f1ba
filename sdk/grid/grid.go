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

package grid

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/setting"
)

const (
	Rows  = 3
	Cols  = 5
	Cells = Rows * Cols
)

// Grid 3x5 盤面，值型別，每轉重新產生
type Grid [Rows][Cols]setting.Symbol

// Cell 盤面座標
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ForcedCells 強制 666 盤面中 six 的固定位置
var ForcedCells = [3]Cell{{1, 1}, {1, 2}, {1, 3}}

// FromRows 從外部輸入建立 Grid，形狀必須是 3x5 且圖標在列舉範圍內
func FromRows(rows [][]setting.Symbol) (Grid, error) {
	var g Grid
	if len(rows) != Rows {
		return g, errs.Malformed("grid: need %d rows, got %d", Rows, len(rows))
	}
	for r, row := range rows {
		if len(row) != Cols {
			return g, errs.Malformed("grid: row %d needs %d cols, got %d", r, Cols, len(row))
		}
		for c, s := range row {
			if !s.Valid() {
				return g, errs.Malformed("grid: unknown symbol %d at (%d,%d)", int(s), r, c)
			}
			g[r][c] = s
		}
	}
	return g, nil
}

// Fill 回傳全部為 s 的盤面
func Fill(s setting.Symbol) Grid {
	var g Grid
	for r := range g {
		for c := range g[r] {
			g[r][c] = s
		}
	}
	return g
}

// At 回傳座標上的圖標
func (g *Grid) At(c Cell) setting.Symbol { return g[c.Row][c.Col] }

// Validate 檢查每一格都是合法圖標
func (g *Grid) Validate() error {
	for r := range g {
		for c, s := range g[r] {
			if !s.Valid() {
				return errs.Malformed("grid: unknown symbol %d at (%d,%d)", int(s), r, c)
			}
		}
	}
	return nil
}

// Count 回傳盤面上 s 的數量
func (g *Grid) Count(s setting.Symbol) int {
	n := 0
	for r := range g {
		for _, v := range g[r] {
			if v == s {
				n++
			}
		}
	}
	return n
}

// IsInstantLoss 是否為強制 666 盤面
func (g *Grid) IsInstantLoss() bool {
	for _, c := range ForcedCells {
		if g.At(c) != setting.Six {
			return false
		}
	}
	return true
}

// ToRows 回傳 [][]Symbol 副本，供 dto 使用
func (g *Grid) ToRows() [][]setting.Symbol {
	out := make([][]setting.Symbol, Rows)
	for r := range g {
		out[r] = append([]setting.Symbol(nil), g[r][:]...)
	}
	return out
}

// String 以等寬格子輸出盤面
func (g Grid) String() string {
	w := 0
	for _, s := range setting.Symbols() {
		w = max(w, runewidth.StringWidth(s.String()))
	}
	sep := "+" + strings.Repeat(strings.Repeat("-", w+2)+"+", Cols) + "\n"
	var sb strings.Builder
	sb.WriteString(sep)
	for r := range g {
		sb.WriteString("|")
		for _, s := range g[r] {
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(s.String(), w))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
		sb.WriteString(sep)
	}
	return sb.String()
}
