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

package svrcfg

import (
	"io"
	"log/slog"
	"time"

	"github.com/zintix-labs/slot666"
	"github.com/zintix-labs/slot666/dto"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/server/logger"
)

const (
	defaultAddr           = ":5808"
	defaultSweepEvery     = time.Minute
	defaultRequestTimeout = 5 * time.Second
	maxRequestTimeout     = time.Minute
	defaultSimSessions    = 100_000
	defaultSimWorkers     = 8
	defaultSimSpins       = 10_000
)

// SvrCfg 是 server 組裝所需的全部依賴，皆由呼叫端明確注入
type SvrCfg struct {
	Log            *slog.Logger
	Addr           string
	Runtime        *slot666.Runtime
	Sim            dto.SimLimits
	SweepEvery     time.Duration
	RequestTimeout time.Duration // 單一請求對 Runtime 的超時；/v1/sim 不受此限
	CORSOrigins    []string
	Closers        []io.Closer // Runtime 關閉後依序關閉（sink、ledger、async log）
}

// Valid 檢查必要依賴並把數值限制在合理範圍
func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 保持安靜、合法
		sc.Log = logger.NewDefaultLogger(logger.ModeSilence)
	}
	if sc.Runtime == nil {
		return errs.NewFatal("runtime is required")
	}
	if sc.Addr == "" {
		sc.Addr = defaultAddr
	}
	if sc.SweepEvery <= 0 {
		sc.SweepEvery = defaultSweepEvery
	}
	if sc.RequestTimeout <= 0 {
		sc.RequestTimeout = defaultRequestTimeout
	}
	sc.RequestTimeout = min(sc.RequestTimeout, maxRequestTimeout)

	// 1 <= workers <= 64，避免單一請求吃光 CPU
	if sc.Sim.MaxSessions <= 0 {
		sc.Sim.MaxSessions = defaultSimSessions
	}
	if sc.Sim.MaxWorkers <= 0 {
		sc.Sim.MaxWorkers = defaultSimWorkers
	}
	sc.Sim.MaxWorkers = min(sc.Sim.MaxWorkers, 64)
	if sc.Sim.MaxSpins <= 0 {
		sc.Sim.MaxSpins = defaultSimSpins
	}
	if len(sc.CORSOrigins) == 0 {
		sc.CORSOrigins = []string{"*"}
	}
	return nil
}

// Close 關閉 Runtime 後依序關閉 Closers，回傳第一個錯誤
func (sc *SvrCfg) Close() error {
	if sc.Runtime != nil {
		sc.Runtime.Close()
	}
	var first error
	for _, c := range sc.Closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CloserFunc 把無回傳值的 Close 包成 io.Closer
type CloserFunc func()

func (f CloserFunc) Close() error {
	f()
	return nil
}
