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

package recorder

import (
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/setting"
	"github.com/zintix-labs/slot666/stats"
)

// 結束原因
const (
	EndInstantLoss = "instant_loss"
	EndOutOfSpins  = "out_of_spins"
	EndTruncated   = "truncated"
)

// SpinRecord 單轉紀錄所需的欄位
type SpinRecord struct {
	Score        int
	Patterns     [setting.PatternKindCount]int
	InstantLoss  bool // 抽中 666（含被免疫）
	ImmunityUsed bool
}

// EndRecord 一局結束時的狀態
type EndRecord struct {
	TotalScore int
	Level      int
	Reason     string
}

// SessionRecorder 模擬紀錄員
//
// SessionRecorder 逐轉累積 int 計數，每局結束呼叫 End，最後透過 Done 輸出統計報表。
// 非併發安全：每個 worker 持有自己的 SessionRecorder，結束後以 Merge 合併。
type SessionRecorder struct {
	GameName string
	MaxSpins int
	Basic    *BasicRecord
	Dist     *DistRecord
	Ending   *EndingRecord

	saved bool // 本局是否發生過免疫
}

// BasicRecord 基本紀錄
type BasicRecord struct {
	Sessions   int
	Spins      int
	WinSpins   int
	ScoreSum   int
	DrawnLoss  int // 抽中 666 的轉數
	Immunities int
	TotalMax   int
	LevelMax   int
	Patterns   [setting.PatternKindCount]int
}

// DistRecord 分布紀錄
type DistRecord struct {
	Collect     []int     // 最終總分分桶
	LevelEnded  []int     // LevelEnded[i] 為結束在 level i+1 的局數
	Finals      []float64 // 每局最終總分
	FinalLevels []float64
}

// EndingRecord 結束原因計數
type EndingRecord struct {
	InstantLoss   int
	OutOfSpins    int
	Truncated     int
	ImmunitySaved int
}

func NewSessionRecorder(name string, maxSpins int) (*SessionRecorder, error) {
	s := new(SessionRecorder)
	if maxSpins <= 0 {
		return s, errs.Warnf("max spins must > 0, got: %d", maxSpins)
	}
	s.GameName = name
	s.MaxSpins = maxSpins
	s.Basic = new(BasicRecord)
	s.Dist = &DistRecord{Collect: make([]int, stats.Buckets.Len())}
	s.Ending = new(EndingRecord)
	return s, nil
}

// Merge 合併多個紀錄員；名稱或 MaxSpins 不同時回傳錯誤
func Merge(r []*SessionRecorder) (*SessionRecorder, error) {
	if len(r) == 0 {
		return nil, errs.NewWarn("merge session record err : empty input")
	}
	r0 := r[0]
	s, err := NewSessionRecorder(r0.GameName, r0.MaxSpins)
	if err != nil {
		return s, err
	}
	for _, v := range r {
		if v.GameName != r0.GameName {
			return s, errs.NewFatal("merge session record err : different game name")
		}
		if v.MaxSpins != r0.MaxSpins {
			return s, errs.NewFatal("merge session record err : different max spins")
		}
		b := s.Basic
		b.Sessions += v.Basic.Sessions
		b.Spins += v.Basic.Spins
		b.WinSpins += v.Basic.WinSpins
		b.ScoreSum += v.Basic.ScoreSum
		b.DrawnLoss += v.Basic.DrawnLoss
		b.Immunities += v.Basic.Immunities
		b.TotalMax = max(b.TotalMax, v.Basic.TotalMax)
		b.LevelMax = max(b.LevelMax, v.Basic.LevelMax)
		for i := range b.Patterns {
			b.Patterns[i] += v.Basic.Patterns[i]
		}

		for i := range v.Dist.Collect {
			s.Dist.Collect[i] += v.Dist.Collect[i]
		}
		s.Dist.LevelEnded = growTo(s.Dist.LevelEnded, len(v.Dist.LevelEnded))
		for i, c := range v.Dist.LevelEnded {
			s.Dist.LevelEnded[i] += c
		}
		s.Dist.Finals = append(s.Dist.Finals, v.Dist.Finals...)
		s.Dist.FinalLevels = append(s.Dist.FinalLevels, v.Dist.FinalLevels...)

		s.Ending.InstantLoss += v.Ending.InstantLoss
		s.Ending.OutOfSpins += v.Ending.OutOfSpins
		s.Ending.Truncated += v.Ending.Truncated
		s.Ending.ImmunitySaved += v.Ending.ImmunitySaved
	}
	return s, nil
}

// Record 紀錄單轉
func (s *SessionRecorder) Record(sr SpinRecord) {
	b := s.Basic
	b.Spins++
	b.ScoreSum += sr.Score
	if sr.Score > 0 {
		b.WinSpins++
	}
	if sr.InstantLoss {
		b.DrawnLoss++
	}
	if sr.ImmunityUsed {
		b.Immunities++
		s.saved = true
	}
	for i, c := range sr.Patterns {
		b.Patterns[i] += c
	}
}

// End 紀錄一局結束
func (s *SessionRecorder) End(er EndRecord) {
	b := s.Basic
	b.Sessions++
	b.TotalMax = max(b.TotalMax, er.TotalScore)
	b.LevelMax = max(b.LevelMax, er.Level)

	d := s.Dist
	d.Collect[stats.Buckets.Index(er.TotalScore)]++
	if er.Level >= 1 {
		d.LevelEnded = growTo(d.LevelEnded, er.Level)
		d.LevelEnded[er.Level-1]++
	}
	d.Finals = append(d.Finals, float64(er.TotalScore))
	d.FinalLevels = append(d.FinalLevels, float64(er.Level))

	switch er.Reason {
	case EndInstantLoss:
		s.Ending.InstantLoss++
	case EndOutOfSpins:
		s.Ending.OutOfSpins++
	default:
		s.Ending.Truncated++
	}
	if s.saved {
		s.Ending.ImmunitySaved++
	}
	s.saved = false
}

// Done 輸出統計報表（尚未計算比例，需再呼叫 SimReport.Done）
func (s *SessionRecorder) Done() *stats.SimReport {
	kinds := make([]string, setting.PatternKindCount)
	counts := make([]int, setting.PatternKindCount)
	for i := range kinds {
		kinds[i] = setting.PatternKind(i).String()
		counts[i] = s.Basic.Patterns[i]
	}
	return &stats.SimReport{
		Summary: &stats.SummaryReport{
			GameName: s.GameName,
			Sessions: s.Basic.Sessions,
			Spins:    s.Basic.Spins,
			MaxSpins: s.MaxSpins,
			ScoreSum: s.Basic.ScoreSum,
			WinSpins: s.Basic.WinSpins,
			TotalMax: s.Basic.TotalMax,
			LevelMax: s.Basic.LevelMax,
		},
		Score: &stats.ScoreReport{
			Bucket:  stats.Buckets.Labels(),
			Collect: append([]int(nil), s.Dist.Collect...),
		},
		Levels: &stats.LevelReport{
			Ended: append([]int(nil), s.Dist.LevelEnded...),
		},
		Endings: &stats.EndingReport{
			InstantLoss:   s.Ending.InstantLoss,
			OutOfSpins:    s.Ending.OutOfSpins,
			Truncated:     s.Ending.Truncated,
			ImmunitySaved: s.Ending.ImmunitySaved,
		},
		Patterns: &stats.PatternReport{
			Kinds:  kinds,
			Counts: counts,
		},
		Finals:      append([]float64(nil), s.Dist.Finals...),
		FinalLevels: append([]float64(nil), s.Dist.FinalLevels...),
	}
}

func growTo(xs []int, n int) []int {
	for len(xs) < n {
		xs = append(xs, 0)
	}
	return xs
}
