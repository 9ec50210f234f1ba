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

package stats

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// betaBounds 回傳 k/n 的 Clopper-Pearson 上下界 p。k==0 時下界為 0，k==n 時上界為 1
func betaBounds(k, n int, alpha float64) (lo, hi float64) {
	lo, hi = 0, 1
	if k > 0 {
		lo = distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}.Quantile(alpha / 2)
	}
	if k < n {
		hi = distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}.Quantile(1 - alpha/2)
	}
	return lo, hi
}

// proportionCICP k/n 的點估計與 exact CI；n == 0 時回傳 [0,1]
func proportionCICP(k int, n int, confidence float64) (float64, CI) {
	if n == 0 {
		return 0, CI{Lo: 0, Hi: 1}
	}
	lo, hi := betaBounds(k, n, 1-confidence)
	return float64(k) / float64(n), CI{Lo: lo, Hi: hi}
}

// quantileCI 第 q 分位的 distribution-free CI：秩 k 視為二項，反推 p 的範圍後轉回樣本索引。
// sorted 必須已排序且 len > 1
func quantileCI(sorted []float64, q, confidence float64) (float64, float64) {
	n := len(sorted)
	if n == 0 {
		return 0, 0
	}
	k := min(max(int(q*float64(n)), 1), n-1)
	pLo, pHi := betaBounds(k, n, 1-confidence)
	// 兩端都是 (0,1) 內部的秩，所以 betaBounds 的兩個 Quantile 都會被計算
	li := clampIndex(int(pLo*float64(n)), n)
	ui := clampIndex(int(pHi*float64(n))-1, n)
	return sorted[li], sorted[ui]
}

func clampIndex(i, n int) int {
	return min(max(i, 0), n-1)
}
