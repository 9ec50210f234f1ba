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

import (
	"crypto/rand"
	"encoding/binary"
	r2 "math/rand/v2"
	"sync"
)

// CryptoSource 以 crypto/rand 為底的亂數來源，供權威結果使用。
//
// 內部以 512 bytes 為單位批次讀取，可多 goroutine 共用。
type CryptoSource struct {
	src *cryptoReader
	r   *r2.Rand
}

// NewCrypto 建立 CryptoSource
func NewCrypto() *CryptoSource {
	src := &cryptoReader{off: 512}
	return &CryptoSource{src: src, r: r2.New(src)}
}

func (c *CryptoSource) CryptoStrong() bool { return true }

func (c *CryptoSource) Uint64() uint64 { return c.src.Uint64() }

func (c *CryptoSource) UintN(max uint) uint {
	if max == 0 {
		return 0
	}
	return uint(c.r.Uint64N(uint64(max)))
}

func (c *CryptoSource) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	return c.r.IntN(max)
}

func (c *CryptoSource) Float64() float64 { return c.r.Float64() }

// cryptoReader 實作 rand.Source；r2.Rand 本身不帶狀態，鎖在這一層
type cryptoReader struct {
	mu  sync.Mutex
	buf [512]byte
	off int
}

func (c *cryptoReader) Uint64() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.off+8 > len(c.buf) {
		// crypto/rand.Read 在 Go 1.24 之後不會回傳錯誤
		_, _ = rand.Read(c.buf[:])
		c.off = 0
	}
	v := binary.LittleEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v
}
