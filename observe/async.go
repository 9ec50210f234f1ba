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

package observe

import (
	"context"
	"sync"
	"sync/atomic"
)

// AsyncSink 把任何 Sink 變成非阻塞：
//   - Emit 只做 enqueue，channel 滿時 drop 並計數
//   - 背景 goroutine 逐筆轉發給 next
//   - Close 後不再接受新事件，並 drain 剩餘事件
type AsyncSink struct {
	next   Sink
	ch     chan asyncEvent
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	dropCount atomic.Uint64
}

type asyncEvent struct {
	ctx context.Context
	ev  Event
}

// NewAsyncSink 建立 AsyncSink；buf <= 0 時使用 1024
func NewAsyncSink(next Sink, buf int) *AsyncSink {
	if next == nil {
		next = Discard{}
	}
	if buf <= 0 {
		buf = 1024
	}
	s := &AsyncSink{
		next:   next,
		ch:     make(chan asyncEvent, buf),
		closed: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.worker()
	return s
}

func (s *AsyncSink) Emit(ctx context.Context, ev Event) {
	select {
	case <-s.closed:
		s.dropCount.Add(1)
		return
	default:
	}
	// 事件在請求結束後才被處理，不沿用請求的取消訊號
	it := asyncEvent{ctx: context.WithoutCancel(ctx), ev: ev}
	select {
	case s.ch <- it:
	default:
		s.dropCount.Add(1)
	}
}

// Dropped 回傳因 buffer 滿或已關閉而丟棄的事件數
func (s *AsyncSink) Dropped() uint64 {
	return s.dropCount.Load()
}

// Close 停止接收並 drain 已排隊的事件
func (s *AsyncSink) Close() {
	s.once.Do(func() { close(s.closed) })
	s.wg.Wait()
}

func (s *AsyncSink) worker() {
	defer s.wg.Done()
	for {
		select {
		case it := <-s.ch:
			s.next.Emit(it.ctx, it.ev)
		case <-s.closed:
			for {
				select {
				case it := <-s.ch:
					s.next.Emit(it.ctx, it.ev)
				default:
					return
				}
			}
		}
	}
}
