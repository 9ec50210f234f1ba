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

package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// enum LogMode
type LogMode uint8

const (
	ModeDev     LogMode = iota // text, debug, stderr
	ModeProd                   // json, info, stdout
	ModeSilence                // 全部丟棄
)

// ParseMode 解析 dev|prod|silence（大小寫不拘，也接受 ModeDev 形式）；未知值回傳 false
func ParseMode(s string) (LogMode, bool) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(s, "Mode"), "mode")) {
	case "dev", "":
		return ModeDev, true
	case "prod":
		return ModeProd, true
	case "silence", "silent":
		return ModeSilence, true
	default:
		return ModeDev, false
	}
}

func (m LogMode) String() string {
	switch m {
	case ModeProd:
		return "prod"
	case ModeSilence:
		return "silence"
	default:
		return "dev"
	}
}

// Handler 依 mode 建立寫往 w 的 handler；w 為 nil 時 dev 用 stderr、prod 用 stdout
func Handler(mode LogMode, w io.Writer) slog.Handler {
	switch mode {
	case ModeSilence:
		return slog.DiscardHandler
	case ModeProd:
		if w == nil {
			w = os.Stdout
		}
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	default:
		if w == nil {
			w = os.Stderr
		}
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}

// NewDefaultLogger 同步 logger，輸出到 mode 的預設位置
func NewDefaultLogger(mode LogMode) *slog.Logger {
	return slog.New(Handler(mode, nil))
}

// NewAsync 以 mode 的預設 handler 建立非同步 logger；
// 回傳的 *AsyncHandler 必須在程式結束前 Close，否則尾端的紀錄會遺失
func NewAsync(buf int, mode LogMode) (*slog.Logger, *AsyncHandler) {
	ah := NewAsyncHandler(Handler(mode, nil), buf)
	return slog.New(ah), ah
}

// AsyncHandler 把 Record 丟進 queue 由單一 goroutine 寫出。
// queue 滿或已 Close 時直接丟棄並計數，呼叫端永遠不會被 I/O 卡住
type AsyncHandler struct {
	next slog.Handler
	q    *queue
}

type entry struct {
	ctx context.Context
	h   slog.Handler
	rec slog.Record
}

// queue 由 WithAttrs/WithGroup 衍生出的 handler 共用
type queue struct {
	mu      sync.RWMutex
	closed  bool
	ch      chan entry
	done    chan struct{}
	dropped atomic.Uint64
}

func NewAsyncHandler(next slog.Handler, buf int) *AsyncHandler {
	if next == nil {
		next = Handler(ModeDev, nil)
	}
	if buf <= 0 {
		buf = 1024
	}
	q := &queue{ch: make(chan entry, buf), done: make(chan struct{})}
	go q.drain()
	return &AsyncHandler{next: next, q: q}
}

func (q *queue) drain() {
	defer close(q.done)
	for e := range q.ch {
		_ = e.h.Handle(e.ctx, e.rec)
	}
}

// push 在讀鎖下送出，Close 拿寫鎖後才關 channel
func (q *queue) push(e entry) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	select {
	case q.ch <- e:
	default:
		q.dropped.Add(1)
	}
}

func (h *AsyncHandler) Ready() bool {
	return h != nil && h.q != nil
}

// Dropped 因 queue 滿或 Close 之後被丟棄的筆數
func (h *AsyncHandler) Dropped() uint64 {
	if !h.Ready() {
		return 0
	}
	return h.q.dropped.Load()
}

// Close 停止接收並等待 queue 寫完；可重複呼叫
func (h *AsyncHandler) Close() {
	if !h.Ready() {
		return
	}
	q := h.q
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	<-q.done
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle 複製 Record 後入列；slog.Logger 不理會回傳的 error，所以一律回 nil
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Ready() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.q.push(entry{ctx: context.WithoutCancel(ctx), h: h.next, rec: r.Clone()})
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{next: h.next.WithAttrs(attrs), q: h.q}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{next: h.next.WithGroup(name), q: h.q}
}
