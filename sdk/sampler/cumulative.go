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

import "github.com/zintix-labs/slot666/sdk/core"

// Cumulative 累減法加權抽樣
//
// 抽 u ∈ [0,total)，依序減去 weights[i]，第一個讓餘數 < 0 的 index 入選；
// 平手依 index 順序。負權重視同 0。
//
// 若 total <= 0，改為在 len(weights) 之間均勻抽樣並回傳 ok=false，由呼叫端記錄設定異常。
// weights 為空時回傳 (-1, false) 且不消耗亂數。
func Cumulative[T Integers](rng core.RandomSource, weights []T) (idx int, ok bool) {
	if len(weights) == 0 {
		return -1, false
	}
	total := Total(weights)
	if total <= 0 {
		return rng.IntN(len(weights)), false
	}
	return Locate(weights, rng.IntN(total)), true
}

// Locate 回傳 u 在累減規則下落到的 index，u 超出範圍時回傳最後一個正權重的 index
func Locate[T Integers](weights []T, u int) int {
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		u -= int(w)
		if u < 0 {
			return i
		}
	}
	return last
}

// Total 回傳正權重總和
func Total[T Integers](weights []T) int {
	total := 0
	for _, w := range weights {
		if w > 0 {
			total += int(w)
		}
	}
	return total
}
