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
	"io"
	"log/slog"

	"github.com/zintix-labs/slot666/sdk/core"
	"github.com/zintix-labs/slot666/sdk/game"
	"github.com/zintix-labs/slot666/setting"
)

// Generator 盤面生成器，本身無狀態，可多 goroutine 共用
type Generator struct {
	log *slog.Logger
}

// NewGenerator 建立生成器，log 為 nil 時不輸出
func NewGenerator(log *slog.Logger) *Generator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{log: log}
}

// Generate 依 cfg 的權重產生盤面。
//
// 依 row-major 順序逐格抽樣，每格消耗一次 IntN。
// force 為 true 時 (1,1),(1,2),(1,3) 固定為 six 且不消耗亂數，其它格照常抽樣（不含 six）。
func (gen *Generator) Generate(cfg *game.Config, rng core.RandomSource, force bool) Grid {
	var g Grid
	fallback := false
	for r := 0; r < Rows; r++ {
		for c := 0; c < Cols; c++ {
			if force && r == 1 && c >= 1 && c <= 3 {
				g[r][c] = setting.Six
				continue
			}
			s, ok := cfg.Draw(rng)
			if !ok {
				fallback = true
			}
			g[r][c] = s
		}
	}
	if fallback {
		gen.log.Warn("grid: drawable weight sum is zero, using uniform draw",
			slog.String("game", cfg.Name()),
			slog.Any("weights", cfg.DrawableWeights()),
		)
	}
	return g
}
