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

package slot666

import (
	"context"
	"crypto/rand"
	"io"
	"math"
	"math/big"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/recorder"
	"github.com/zintix-labs/slot666/sdk/item"
	"github.com/zintix-labs/slot666/sdk/pattern"
	"github.com/zintix-labs/slot666/stats"
)

const defaultSimMaxSpins = 10_000

// SimRequest 模擬參數
type SimRequest struct {
	Sessions int              // 模擬局數
	Workers  int              // 併發 worker 數
	MaxSpins int              // 每局最多轉數，到達後以 truncated 結束；預設 10000
	Items    []item.OwnedItem // 每局起始道具（每局各自一份）
	Progress bool             // 是否顯示進度條
}

// Simulator 以多個 worker 平行跑完整局並紀錄統計。
//
// 每局使用由 seedMaker 依序產生的種子建立 PRNG，結果與 worker 數量無關。
type Simulator struct {
	eng      *Engine
	initSeed int64
}

// NewSimulator 以隨機種子建立模擬器
func (e *Engine) NewSimulator() (*Simulator, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, err
	}
	return e.NewSimulatorWithSeed(seed.Int64()), nil
}

// NewSimulatorWithSeed 以指定種子建立模擬器
func (e *Engine) NewSimulatorWithSeed(seed int64) *Simulator {
	return &Simulator{eng: e, initSeed: seed}
}

func (s *Simulator) Seed() int64 { return s.initSeed }

type simJob struct {
	idx  int
	seed int64
}

// Run 執行模擬，回傳統計結果與用時。ctx 取消時停止派發並回傳已完成局數的統計與錯誤。
func (s *Simulator) Run(ctx context.Context, req SimRequest) (*stats.SimReport, time.Duration, error) {
	if req.Sessions < 1 {
		return nil, 0, errs.NewWarn("sessions must > 0")
	}
	if req.Workers < 1 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if req.MaxSpins == 0 {
		req.MaxSpins = defaultSimMaxSpins
	}
	if req.MaxSpins < 0 {
		return nil, 0, errs.NewWarn("max spins must > 0")
	}
	if _, err := item.Resolve(req.Items); err != nil {
		return nil, 0, errs.Wrap(err, "sim: resolve items")
	}
	mp := min(req.Workers, req.Sessions)
	// 每次 Run 重新由初始種子開始，同一個 Simulator 可重現
	sm := newSeedMaker(s.initSeed)

	rBuf := make([]*recorder.SessionRecorder, mp)
	for i := range rBuf {
		r, err := recorder.NewSessionRecorder(s.eng.Name(), req.MaxSpins)
		if err != nil {
			return nil, 0, err
		}
		rBuf[i] = r
	}

	// 作一個2048大小的緩衝channel 使session依序處理
	jobs := make(chan simJob, 2048)
	var (
		errOnce sync.Once
		failed  error
	)

	bar := pb.New(req.Sessions)
	if !req.Progress {
		bar.SetWriter(io.Discard)
	}
	bar.Start()
	wg := new(sync.WaitGroup)
	wg.Add(mp)
	for w := 0; w < mp; w++ {
		go func(r *recorder.SessionRecorder) {
			defer wg.Done()
			for j := range jobs {
				if err := s.play(j, req, r); err != nil {
					errOnce.Do(func() { failed = err })
				}
				bar.Increment()
			}
		}(rBuf[w])
	}

	var ctxErr error
dispatch:
	for i := 0; i < req.Sessions; i++ {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		case jobs <- simJob{idx: i, seed: sm.next()}:
		}
	}
	close(jobs)
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	record, err := recorder.Merge(rBuf)
	if err != nil {
		return nil, used, err
	}
	result := record.Done()
	result.Summary.Seed = s.initSeed
	result.Summary.Workers = mp
	result.Summary.Elapsed = used.Seconds()
	result.Done()

	if failed != nil {
		return result, used, failed
	}
	if ctxErr != nil {
		return result, used, errs.Wrap(ctxErr, "sim: canceled")
	}
	return result, used, nil
}

// play 跑完一局；事件不送往 Sink
func (s *Simulator) play(j simJob, req SimRequest, r *recorder.SessionRecorder) error {
	sess, err := s.eng.newSession("sim-"+strconv.Itoa(j.idx), req.Items, s.eng.factory.New(j.seed))
	if err != nil {
		return err
	}
	for range req.MaxSpins {
		out, err := sess.spin(sess.held)
		if err != nil {
			return err
		}
		r.Record(recorder.SpinRecord{
			Score:        out.SpinScore,
			Patterns:     pattern.CountByKind(out.Patterns),
			InstantLoss:  out.InstantLoss,
			ImmunityUsed: out.ImmunityUsed,
		})
		if out.Ended {
			r.End(recorder.EndRecord{TotalScore: out.State.TotalScore, Level: out.State.Level, Reason: out.EndReason})
			return nil
		}
	}
	st := sess.State()
	r.End(recorder.EndRecord{TotalScore: st.TotalScore, Level: st.Level, Reason: recorder.EndTruncated})
	return nil
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// next 可能被多個 goroutine 同時呼叫，state 的推進以 CAS 迴圈保證唯一。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
