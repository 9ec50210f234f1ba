package core

// Scripted 依序回放預先指定的整數，用於重現特定盤面與風險判定。
//
// IntN(max) 取出下一個值並對 max 取餘數；腳本用完後回傳 Fallback 的結果，
// 若 Fallback 為 nil 則回傳 0。
type Scripted struct {
	Values   []int
	Fallback RandomSource
	pos      int
	draws    int
}

// NewScripted 以指定序列建立 Scripted
func NewScripted(values ...int) *Scripted {
	return &Scripted{Values: values}
}

// Draws 回傳目前已被抽取的次數
func (s *Scripted) Draws() int { return s.draws }

// Remaining 回傳尚未使用的腳本數量
func (s *Scripted) Remaining() int { return len(s.Values) - s.pos }

func (s *Scripted) next() (int, bool) {
	s.draws++
	if s.pos < len(s.Values) {
		v := s.Values[s.pos]
		s.pos++
		return v, true
	}
	return 0, false
}

func (s *Scripted) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	v, ok := s.next()
	if !ok {
		if s.Fallback != nil {
			return s.Fallback.IntN(max)
		}
		return 0
	}
	if v < 0 {
		v = -v
	}
	return v % max
}

func (s *Scripted) UintN(max uint) uint {
	if max == 0 {
		return 0
	}
	v, ok := s.next()
	if !ok {
		if s.Fallback != nil {
			return s.Fallback.UintN(max)
		}
		return 0
	}
	if v < 0 {
		v = -v
	}
	return uint(v) % max
}

func (s *Scripted) Uint64() uint64 {
	v, ok := s.next()
	if !ok && s.Fallback != nil {
		return s.Fallback.Uint64()
	}
	return uint64(v)
}

func (s *Scripted) Float64() float64 {
	v, ok := s.next()
	if !ok {
		if s.Fallback != nil {
			return s.Fallback.Float64()
		}
		return 0
	}
	if v < 0 {
		v = -v
	}
	return float64(v%ppm) / ppm
}
