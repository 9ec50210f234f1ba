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

package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Sweepable 可被定期清理的對象，回傳本次移除數量
type Sweepable interface {
	Sweep(now time.Time) int
}

// Sweeper 每隔 every 呼叫一次 Sweep，直到 Shutdown
type Sweeper struct {
	target Sweepable
	every  time.Duration
	log    *slog.Logger
	now    func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSweeper every <= 0 時使用 1 分鐘
func NewSweeper(target Sweepable, every time.Duration, log *slog.Logger) *Sweeper {
	if every <= 0 {
		every = time.Minute
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sweeper{
		target: target,
		every:  every,
		log:    log,
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *Sweeper) Run() error {
	defer close(s.done)
	tk := time.NewTicker(s.every)
	defer tk.Stop()
	for {
		select {
		case <-s.stop:
			return nil
		case <-tk.C:
			if n := s.target.Sweep(s.now()); n > 0 {
				s.log.Info("sweep idle sessions", slog.Int("removed", n))
			}
		}
	}
}

func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Closer 在 Shutdown 時呼叫 io.Closer；Run 只是等待。
// 註冊在最後，讓 server 先停止接收請求。
type Closer struct {
	c    io.Closer
	stop chan struct{}
	once sync.Once
}

func NewCloser(c io.Closer) *Closer {
	return &Closer{c: c, stop: make(chan struct{})}
}

func (c *Closer) Run() error {
	<-c.stop
	return nil
}

func (c *Closer) Shutdown(context.Context) error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		if c.c != nil {
			err = c.c.Close()
		}
	})
	return err
}
