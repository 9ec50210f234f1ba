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

// Package observe 定義 Session 對外發送事件的 Sink 與常用實作。
//
// Sink 為 fire-and-forget：Emit 不回傳錯誤，也不得阻塞呼叫端太久。
package observe

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventKind 事件種類
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventLevelUp
	EventSessionEnded
)

var eventKindMap = map[EventKind]string{
	EventUnknown:      "unknown",
	EventLevelUp:      "level_up",
	EventSessionEnded: "session_ended",
}

func (k EventKind) String() string {
	if s, ok := eventKindMap[k]; ok {
		return s
	}
	return "unknown"
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// 結束原因
const (
	ReasonInstantLoss = "instant_loss"
	ReasonOutOfSpins  = "out_of_spins"
)

// Event 為 Session 狀態轉換時發出的事件。
//
// LevelUp: FromLevel -> Level；SessionEnded: Reason 為結束原因，Score/Level 為最終值。
type Event struct {
	Kind           EventKind `json:"kind"`
	SessionID      string    `json:"session_id"`
	At             time.Time `json:"at"`
	FromLevel      int       `json:"from_level,omitempty"`
	Level          int       `json:"level"`
	Score          int       `json:"score"`
	TotalScore     int       `json:"total_score"`
	SpinsRemaining int       `json:"spins_remaining"`
	Reason         string    `json:"reason,omitempty"`
}

// Sink 接收事件
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// Discard 丟棄所有事件
type Discard struct{}

func (Discard) Emit(context.Context, Event) {}

// LogSink 以 slog 紀錄事件
type LogSink struct {
	log   *slog.Logger
	level slog.Level
}

// NewLogSink 建立 LogSink；log 為 nil 時使用 slog.Default()
func NewLogSink(log *slog.Logger, level slog.Level) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log, level: level}
}

func (s *LogSink) Emit(ctx context.Context, ev Event) {
	attrs := []slog.Attr{
		slog.String("session_id", ev.SessionID),
		slog.Int("level", ev.Level),
		slog.Int("score", ev.Score),
		slog.Int("total_score", ev.TotalScore),
		slog.Int("spins_remaining", ev.SpinsRemaining),
	}
	switch ev.Kind {
	case EventLevelUp:
		attrs = append(attrs, slog.Int("from_level", ev.FromLevel))
	case EventSessionEnded:
		attrs = append(attrs, slog.String("reason", ev.Reason))
	}
	s.log.LogAttrs(ctx, s.level, "session."+ev.Kind.String(), attrs...)
}

// Multi 依序轉發給多個 Sink（nil 會被略過）
type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

// Memory 將事件保存在記憶體中，測試用
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Emit(_ context.Context, ev Event) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
}

// Events 回傳目前收到的事件副本
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Reset 清空
func (m *Memory) Reset() {
	m.mu.Lock()
	m.events = m.events[:0]
	m.mu.Unlock()
}
