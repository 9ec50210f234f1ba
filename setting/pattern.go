package setting

import (
	"fmt"

	"github.com/zintix-labs/slot666/errs"
)

// PatternKind 連線種類
type PatternKind int

const (
	H3 PatternKind = iota // 橫向 3 連
	H4                    // 橫向 4 連
	H5                    // 橫向 5 連（整列）
	V3                    // 直向 3 連（整欄）
	D3                    // 斜向 3 連
	Jackpot               // 全盤同圖
)

const PatternKindCount = int(Jackpot) + 1

var patternNames = [PatternKindCount]string{"h3", "h4", "h5", "v3", "d3", "jackpot"}

var patternMap = map[string]PatternKind{
	"h3":      H3,
	"h4":      H4,
	"h5":      H5,
	"v3":      V3,
	"d3":      D3,
	"jackpot": Jackpot,
}

func ParsePatternKind(s string) (PatternKind, bool) {
	k, ok := patternMap[s]
	return k, ok
}

func (k PatternKind) Valid() bool { return k >= H3 && k <= Jackpot }

func (k PatternKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("pattern(%d)", int(k))
	}
	return patternNames[k]
}

func (k PatternKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, errs.Malformed("unknown pattern kind %d", int(k))
	}
	return []byte(patternNames[k]), nil
}

func (k *PatternKind) UnmarshalText(b []byte) error {
	v, ok := ParsePatternKind(string(b))
	if !ok {
		return errs.Malformed("unknown pattern kind %q", string(b))
	}
	*k = v
	return nil
}
