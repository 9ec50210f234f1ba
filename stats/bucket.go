package stats

// ScoreBuckets
//
// 用來快速定位最終總分 -> ScoreReport 位置 O(1)
//
// 請勿修改預設值
//   - 分數區間: [0,0], (0,10), [10,50), [50,100), ..., [5000,20000), [20000, +inf)
type ScoreBuckets struct {
	bounds    []int
	labels    []string
	lut       []int
	lutMax    int
	overIdx   int
	maxCheck  int
	outIdx    int
	bucketCnt int
}

// Buckets 預設的最終總分分桶
var Buckets *ScoreBuckets = newScoreBuckets(
	[]int{0, 10, 50, 100, 300, 500, 1000, 2000, 5000, 20000},
	[]string{"[0,0]", "(0,10)", "[10,50)", "[50,100)", "[100,300)", "[300,500)", "[500,1000)", "[1000,2000)", "[2000,5000)", "[5000,20000)", "[20000,+inf)"},
)

func (b *ScoreBuckets) Labels() []string {
	return b.labels
}

// Len 分桶數量
func (b *ScoreBuckets) Len() int { return b.bucketCnt }

func newScoreBuckets(bounds []int, labels []string) *ScoreBuckets {
	last := len(bounds) - 1
	// 我們只建到倒數第二個邊界，更高的分數走比較
	lutMax := bounds[last-1]
	lut := make([]int, lutMax)

	// 由 (0,10) 這個區間開始
	idx := 1
	lut[0] = 0
	for i := 1; i < lutMax; i++ {
		for idx < last && i >= bounds[idx] {
			idx++
		}
		lut[i] = idx
	}
	return &ScoreBuckets{
		bounds:    bounds,
		labels:    labels,
		lut:       lut,
		lutMax:    lutMax,
		overIdx:   last,
		maxCheck:  bounds[last],
		outIdx:    last + 1,
		bucketCnt: len(labels),
	}
}

// Index 回傳分數所屬分桶，負分視為 0
func (b *ScoreBuckets) Index(score int) int {
	if score <= 0 {
		return 0
	}
	if score >= b.lutMax {
		if score >= b.maxCheck {
			return b.outIdx
		}
		return b.overIdx
	}
	return b.lut[score]
}
