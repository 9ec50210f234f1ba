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

package sampler

import (
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/sdk/core"
)

// 圖標權重正規化後總和為 100，上限留給自訂內容表
const maxLUTCap = 1_000_000

// LUT 查找表加權抽樣
//
// 建表時把 index i 展開 weights[i] 次，依 index 順序排列：
//
//	[3,5,0] -> [0,0,0,1,1,1,1,1]
//
// lut[u] 恰好等於 Locate(weights, u)，所以 Pick 與 Cumulative 對同一個亂數序列結果相同，
// 只是抽樣從 O(n) 降為 O(1)。
type LUT []int

// BuildLUT 根據權重列表建立查找表。負權重視同 0；權重總和為 0 或超過上限時回傳錯誤。
func BuildLUT[T Integers](src []T) (LUT, error) {
	acc := Total(src)
	if acc == 0 {
		return nil, errs.Inconsistent("lut: all weights are zero")
	}
	if acc > maxLUTCap {
		return nil, errs.Inconsistent("lut: total weight %d exceeds limit %d", acc, maxLUTCap)
	}
	lut := make(LUT, 0, acc)
	for i, v := range src {
		for j := T(0); j < v; j++ {
			lut = append(lut, i)
		}
	}
	return lut, nil
}

// Pick 消耗一次 IntN(len)，若 lut 為空回傳 -1 且不消耗亂數
func (l LUT) Pick(rng core.RandomSource) int {
	if len(l) == 0 {
		return -1
	}
	return l[rng.IntN(len(l))]
}
