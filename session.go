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
	"sync"
	"sync/atomic"
	"time"

	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/ledger"
	"github.com/zintix-labs/slot666/observe"
	"github.com/zintix-labs/slot666/sdk/core"
	"github.com/zintix-labs/slot666/sdk/game"
	"github.com/zintix-labs/slot666/sdk/grid"
	"github.com/zintix-labs/slot666/sdk/item"
	"github.com/zintix-labs/slot666/sdk/pattern"
	"github.com/zintix-labs/slot666/sdk/score"
)

// Phase Session 所處階段
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseSpinning
	PhaseGameOver
)

var phaseMap = map[Phase]string{
	PhaseIdle:     "idle",
	PhaseSpinning: "spinning",
	PhaseGameOver: "game_over",
}

func (p Phase) String() string {
	if s, ok := phaseMap[p]; ok {
		return s
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State 為 Session 的可觀測狀態，只由 Session 修改
type State struct {
	Score          int  `json:"score"`
	TotalScore     int  `json:"total_score"`
	Level          int  `json:"level"`
	SpinsRemaining int  `json:"spins_remaining"`
	IsActive       bool `json:"is_active"`
}

// Outcome 單次 Spin 的完整結果
type Outcome struct {
	SessionID   string            `json:"session_id"`
	Grid        grid.Grid         `json:"grid"`
	Patterns    []pattern.Pattern `json:"patterns"`
	SpinScore   int               `json:"spin_score"`
	Probability float64           `json:"instant_loss_probability"`
	// InstantLoss 本轉抽中 666（無論是否被免疫）
	InstantLoss    bool            `json:"instant_loss"`
	ImmunityUsed   bool            `json:"immunity_used"`
	ConsumedItemID string          `json:"consumed_item_id,omitempty"`
	LevelBefore    int             `json:"level_before"`
	State          State           `json:"state"`
	Ended          bool            `json:"ended"`
	EndReason      string          `json:"end_reason,omitempty"`
	Events         []observe.Event `json:"events,omitempty"`
}

// Session 單一玩家的一局。
//
// 同時最多一個 Spin：第二個呼叫者會以 IllegalSpin 被拒絕，不會排隊等待。
type Session struct {
	id   string
	eng  *Engine
	core *core.Core

	inflight atomic.Bool
	phase    atomic.Uint32 // Phase；不需持鎖即可觀察 Spinning
	mu       sync.Mutex
	st       State
	held     []item.OwnedItem
}

func (s *Session) ID() string { return s.id }

func (s *Session) setPhase(p Phase) { s.phase.Store(uint32(p)) }

// State 回傳狀態快照
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Phase 回傳目前階段
func (s *Session) Phase() Phase {
	return Phase(s.phase.Load())
}

// Held 回傳 Session 持有的道具副本（免疫觸發後已扣除）
func (s *Session) Held() []item.OwnedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.held)
}

// Snapshot 回傳 Ledger 形狀的狀態
func (s *Session) Snapshot() ledger.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger.Snapshot{
		ID:             s.id,
		Score:          s.st.Score,
		TotalScore:     s.st.TotalScore,
		Level:          s.st.Level,
		SpinsRemaining: s.st.SpinsRemaining,
		IsActive:       s.st.IsActive,
	}
}

// Spin 以 items 作為本轉的持有道具執行一次旋轉。
func (s *Session) Spin(items []item.OwnedItem) (Outcome, error) {
	return s.SpinContext(context.Background(), items)
}

// SpinHeld 以 Session 目前持有的道具旋轉
func (s *Session) SpinHeld() (Outcome, error) {
	return s.SpinContext(context.Background(), s.Held())
}

// SpinContext 與 Spin 相同；ctx 只用於傳遞給 Sink。
func (s *Session) SpinContext(ctx context.Context, items []item.OwnedItem) (Outcome, error) {
	if !s.inflight.CompareAndSwap(false, true) {
		return Outcome{}, errs.Illegal("session %s: spin already in flight", s.id)
	}
	defer s.inflight.Store(false)

	out, err := s.spin(items)
	if err != nil {
		return Outcome{}, err
	}
	// 事件在釋放狀態鎖之後才送出
	for _, ev := range out.Events {
		s.eng.sink.Emit(ctx, ev)
	}
	return out, nil
}

func (s *Session) spin(items []item.OwnedItem) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. guard：任何拒絕都不得修改狀態
	if s.Phase() == PhaseGameOver || !s.st.IsActive {
		return Outcome{}, errs.Illegal("session %s: game over", s.id)
	}
	if s.st.SpinsRemaining <= 0 {
		return Outcome{}, errs.Illegal("session %s: no spins remaining", s.id)
	}
	b, err := item.Resolve(items)
	if err != nil {
		return Outcome{}, errs.Wrap(err, "spin: resolve items")
	}
	cfg, err := item.Apply(s.eng.cfg, b)
	if err != nil {
		return Outcome{}, errs.Wrap(err, "spin: apply items")
	}

	s.setPhase(PhaseSpinning)
	prev, prevHeld := s.st, s.held
	s.held = cloneItems(items)
	out := Outcome{SessionID: s.id, LevelBefore: s.st.Level}
	// 盤面不合法時還原，spin 不算數
	abort := func(err error) (Outcome, error) {
		s.st, s.held = prev, prevHeld
		s.setPhase(PhaseIdle)
		s.eng.log.Error("session: spin aborted", "session_id", s.id, "err", err)
		e := errs.Wrap(err, "spin: detect patterns")
		e.Kind, e.ErrLv = errs.ConfigInconsistency, errs.Fatal
		return Outcome{}, e
	}

	// 2.
	s.st.SpinsRemaining--

	// 3.
	out.Probability = s.eng.risk.InstantLossProbability(s.st.Level)
	out.InstantLoss = s.core.Chance(out.Probability)

	reason := ""
	switch {
	case out.InstantLoss && b.HasInstantLossImmunity:
		// 4. 免疫：扣一個道具，照一般 spin 繼續
		held, ok := item.Decrement(s.held, b.ImmunityItemID, 1)
		if !ok {
			s.eng.log.Warn("session: immunity item missing from held inventory",
				"session_id", s.id, "item_id", b.ImmunityItemID)
		}
		s.held = held
		out.ImmunityUsed = true
		out.ConsumedItemID = b.ImmunityItemID
		if err := s.play(&out, cfg, b); err != nil {
			return abort(err)
		}
	case out.InstantLoss:
		// 5. 666：強制盤面，本局分數歸零，總分保留
		out.Grid = s.eng.gen.Generate(cfg, s.core, true)
		s.st.Score = 0
		reason = observe.ReasonInstantLoss
	default:
		// 6.
		if err := s.play(&out, cfg, b); err != nil {
			return abort(err)
		}
	}

	now := time.Now().UTC()
	if reason == "" {
		// 7. 8.
		next := s.eng.levels.Advance(s.st.Level, s.st.Score, b.LevelProgressionDiscountPercent)
		if next > s.st.Level {
			from := s.st.Level
			s.st.Level = next
			s.st.SpinsRemaining = s.eng.spinsPerLevel + b.SpinBonus
			out.Events = append(out.Events, s.event(observe.EventLevelUp, now, from, ""))
		}
		// 9.
		if s.st.SpinsRemaining <= 0 {
			reason = observe.ReasonOutOfSpins
		}
	}

	// 10.
	if reason != "" {
		s.st.IsActive = false
		s.setPhase(PhaseGameOver)
		out.Ended = true
		out.EndReason = reason
		out.Events = append(out.Events, s.event(observe.EventSessionEnded, now, 0, reason))
	} else {
		s.setPhase(PhaseIdle)
	}
	out.State = s.st
	return out, nil
}

// play 一般盤面：產生、判定、計分並累加。判定失敗時不累加分數
func (s *Session) play(out *Outcome, cfg *game.Config, b item.Bundle) error {
	out.Grid = s.eng.gen.Generate(cfg, s.core, false)
	ps, err := pattern.Detect(out.Grid)
	if err != nil {
		return err
	}
	out.Patterns = pattern.Resolve(ps, cfg)
	out.SpinScore = score.Spin(out.Patterns, cfg, b)
	s.st.Score += out.SpinScore
	s.st.TotalScore += out.SpinScore
	return nil
}

func (s *Session) event(kind observe.EventKind, at time.Time, from int, reason string) observe.Event {
	return observe.Event{
		Kind:           kind,
		SessionID:      s.id,
		At:             at,
		FromLevel:      from,
		Level:          s.st.Level,
		Score:          s.st.Score,
		TotalScore:     s.st.TotalScore,
		SpinsRemaining: s.st.SpinsRemaining,
		Reason:         reason,
	}
}
