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

// Package core 提供引擎使用的亂數來源抽象與實作。
//
// 亂數來源一律以注入方式提供：權威路徑（server/ledger）使用 CryptoSource，
// 預覽、模擬與測試使用可重現的 PCG 或 Scripted。
package core

import "math"

// RandomSource 定義引擎所需的取樣能力。
type RandomSource interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	Snapshot() ([]byte, error)
	Restore([]byte) error
}

// PRNG 是可重現、可快照的亂數來源。
type PRNG interface {
	RandomSource
	Restorable
}

// Strong 標記密碼學強度的來源；權威引擎只接受實作此介面且回傳 true 的來源。
type Strong interface {
	CryptoStrong() bool
}

// IsStrong 判斷來源是否為密碼學強度
func IsStrong(src RandomSource) bool {
	if s, ok := src.(Strong); ok {
		return s.CryptoStrong()
	}
	return false
}

// PRNGFactory 以 seed 建立 PRNG。
//
// 合約：同一實作同一版本下，New(seed) 必須是決定性的。
type PRNGFactory interface {
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory (PCG64)
type DefaultPRNG struct{}

func (d *DefaultPRNG) New(seed int64) PRNG {
	return NewPCG64(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// ppm 為機率抽樣的解析度（百萬分之一）
const ppm = 1_000_000

// Core 封裝 RandomSource，並提供常用取樣方法。
type Core struct {
	RandomSource
}

func New(src RandomSource) *Core {
	return &Core{src}
}

// Chance 以百分比 percent 進行一次 Bernoulli 取樣。
//
// 抽樣以整數 ppm 進行，讓不同平台得到完全相同的結果：
// percent <= 0 永不成立且不消耗亂數，percent >= 100 永遠成立且不消耗亂數。
func (c *Core) Chance(percent float64) bool {
	if percent <= 0 || math.IsNaN(percent) {
		return false
	}
	if percent >= 100 {
		return true
	}
	limit := int(math.Round(percent * (ppm / 100)))
	return c.IntN(ppm) < limit
}

// Pick 從列表中隨機選取一個元素，若列表為空回傳 -1
func (c *Core) Pick(src []int) int {
	if len(src) == 0 {
		return -1
	}
	return src[c.IntN(len(src))]
}

// ShuffleInts Fisher-Yates 就地重排
func (c *Core) ShuffleInts(src []int) {
	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}
