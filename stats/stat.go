package stats

import (
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64 `json:"Hat"`
	CI  CI      `json:"CI"`
}

// SimReport 模擬統計報告
type SimReport struct {
	Summary  *SummaryReport `json:"Summary"`
	Score    *ScoreReport   `json:"Score"`
	Levels   *LevelReport   `json:"Levels"`
	Endings  *EndingReport  `json:"Endings"`
	Patterns *PatternReport `json:"Patterns"`

	// 原始樣本：每局最終總分與最終關卡，Done 之後才會用到
	Finals      []float64 `json:"-" yaml:"-"`
	FinalLevels []float64 `json:"-" yaml:"-"`
	isDone      bool
}

type SummaryReport struct {
	GameName   string  `json:"GameName"`
	Seed       int64   `json:"Seed"`
	Workers    int     `json:"Workers"`
	Sessions   int     `json:"Sessions"`
	Spins      int     `json:"Spins"`
	MaxSpins   int     `json:"MaxSpins"`
	ScoreSum   int     `json:"ScoreSum"`
	WinSpins   int     `json:"WinSpins"`
	HitRate    float64 `json:"HitRate"`
	SpinMean   float64 `json:"SpinMean"` // 單轉平均得分
	TotalMean  float64 `json:"TotalMean"`
	TotalStd   float64 `json:"TotalStd"`
	TotalMed   float64 `json:"TotalMedian"`
	TotalP10   float64 `json:"TotalP10"`
	TotalP90   float64 `json:"TotalP90"`
	TotalMedCI CI      `json:"TotalMedianCI"`
	TotalMax   int     `json:"TotalMax"`
	SpinsMean  float64 `json:"SpinsMean"` // 每局平均轉數
	LevelMean  float64 `json:"LevelMean"`
	LevelMax   int     `json:"LevelMax"`
	Elapsed    float64 `json:"ElapsedSeconds"`
}

// ScoreReport 最終總分區間落點統計
type ScoreReport struct {
	Bucket  []string  `json:"Bucket"`
	Collect []int     `json:"Collect"`
	Dist    []float64 `json:"Dist"`
}

// LevelReport 關卡分布
//
// Ended[i] 為結束在 level i+1 的局數；Reached[i] 為最終關卡 >= i+1 的比例
type LevelReport struct {
	Ended   []int       `json:"Ended"`
	Reached []PointStat `json:"Reached"`
}

// EndingReport 結束原因
type EndingReport struct {
	InstantLoss      int       `json:"InstantLoss"`
	OutOfSpins       int       `json:"OutOfSpins"`
	Truncated        int       `json:"Truncated"` // 到達 MaxSpins 仍未結束
	ImmunitySaved    int       `json:"ImmunitySaved"`
	InstantLossRate  PointStat `json:"InstantLossRate"`
	OutOfSpinsRate   PointStat `json:"OutOfSpinsRate"`
	TruncatedRate    PointStat `json:"TruncatedRate"`
	ImmunitySaveRate PointStat `json:"ImmunitySavedRate"` // 至少一次免疫的局數比例
}

// PatternReport 各連線種類出現次數
type PatternReport struct {
	Kinds   []string  `json:"Kinds"`
	Counts  []int     `json:"Counts"`
	PerSpin []float64 `json:"PerSpin"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
//
// 紀錄過程只處理 int，統計完成後一次性計算比例、分位數與信賴區間。
func (s *SimReport) Done() {
	if s.isDone {
		return
	}
	sm := s.Summary
	n := sm.Sessions

	if sm.Spins > 0 {
		sm.HitRate = float64(sm.WinSpins) / float64(sm.Spins)
		sm.SpinMean = float64(sm.ScoreSum) / float64(sm.Spins)
	}
	if n > 0 {
		sm.SpinsMean = float64(sm.Spins) / float64(n)
	}

	// 總分
	if len(s.Finals) > 0 {
		sorted := make([]float64, len(s.Finals))
		copy(sorted, s.Finals)
		sort.Float64s(sorted)
		sm.TotalMed = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		sm.TotalP10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
		sm.TotalP90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
		if len(sorted) > 1 {
			sm.TotalMean, sm.TotalStd = stat.MeanStdDev(sorted, nil)
			lo, hi := quantileCI(sorted, 0.5, 0.95)
			sm.TotalMedCI = CI{Lo: lo, Hi: hi}
		} else {
			sm.TotalMean = sorted[0]
			sm.TotalMedCI = CI{Lo: sorted[0], Hi: sorted[0]}
		}
	}
	if len(s.FinalLevels) > 0 {
		sm.LevelMean = stat.Mean(s.FinalLevels, nil)
	}

	// 分桶比例
	if n > 0 {
		s.Score.Dist = make([]float64, len(s.Score.Collect))
		for i, c := range s.Score.Collect {
			s.Score.Dist[i] = float64(c) / float64(n)
		}
	}

	// 關卡：由結束關卡推算到達比例
	s.Levels.Reached = make([]PointStat, len(s.Levels.Ended))
	reached := n
	for i, c := range s.Levels.Ended {
		hat, ci := proportionCICP(reached, n, 0.95)
		s.Levels.Reached[i] = PointStat{Hat: hat, CI: ci}
		reached -= c
	}

	e := s.Endings
	e.InstantLossRate = pointCP(e.InstantLoss, n)
	e.OutOfSpinsRate = pointCP(e.OutOfSpins, n)
	e.TruncatedRate = pointCP(e.Truncated, n)
	e.ImmunitySaveRate = pointCP(e.ImmunitySaved, n)

	p := s.Patterns
	p.PerSpin = make([]float64, len(p.Counts))
	if sm.Spins > 0 {
		for i, c := range p.Counts {
			p.PerSpin[i] = float64(c) / float64(sm.Spins)
		}
	}

	s.isDone = true
}

func (s *SimReport) WriteWith(w io.Writer, rep SimReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

func pointCP(k, n int) PointStat {
	hat, ci := proportionCICP(k, n, 0.95)
	return PointStat{Hat: hat, CI: ci}
}
