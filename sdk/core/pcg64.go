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

package core

import r2 "math/rand/v2"

// PCG64 可重現的亂數來源，狀態可快照。
// 有界取樣交給 math/rand/v2 的 Rand，與 CryptoSource 共用同一套無偏演算法
type PCG64 struct {
	pcg *r2.PCG
	r   *r2.Rand
}

// NewPCG64 以指定 seed 建立 PCG64，供預覽與模擬使用。
func NewPCG64(seed int64) *PCG64 {
	// 以 splitmix 展開成兩個 64-bit 狀態，相鄰 seed 不會得到相近序列
	x := uint64(seed) ^ 0x9e3779b97f4a7c15
	pcg := r2.NewPCG(splitmix64(x), splitmix64(x^0xDA942042E4DD58B5))
	return &PCG64{pcg: pcg, r: r2.New(pcg)}
}

func (p *PCG64) Uint64() uint64 { return p.pcg.Uint64() }

func (p *PCG64) UintN(max uint) uint {
	if max == 0 {
		return 0
	}
	return uint(p.r.Uint64N(uint64(max)))
}

func (p *PCG64) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	return p.r.IntN(max)
}

func (p *PCG64) Float64() float64 { return p.r.Float64() }

func (p *PCG64) Snapshot() ([]byte, error) { return p.pcg.MarshalBinary() }

func (p *PCG64) Restore(data []byte) error { return p.pcg.UnmarshalBinary(data) }

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
