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

// Package app 管理長期運行元件的啟動與關閉：HTTP server、sweeper 與最後的資源釋放。
package app

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

const defaultGrace = 5 * time.Second

// Component 長期運行的元件。
// Run 阻塞到元件停止；Shutdown 要求停止，需尊重 ctx 的期限
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// App 並行 Run 所有元件，任一元件結束或收到 SIGINT/SIGTERM 時依註冊順序 Shutdown
type App struct {
	comps []Component
	log   *slog.Logger
	grace time.Duration
}

func New() *App { return &App{grace: defaultGrace, log: slog.New(slog.DiscardHandler)} }

// NewWith 建立並依序註冊元件；順序即關閉順序
func NewWith(comps ...Component) *App {
	a := New()
	for _, c := range comps {
		a.Register(c)
	}
	return a
}

func (a *App) WithLog(log *slog.Logger) *App {
	if log != nil {
		a.log = log
	}
	return a
}

// WithGrace 優雅關閉的總時限
func (a *App) WithGrace(d time.Duration) *App {
	if d > 0 {
		a.grace = d
	}
	return a
}

func (a *App) Register(c Component) {
	a.comps = append(a.comps, c)
}

// Run 阻塞到收到終止信號（回 nil）或第一個元件結束（回其錯誤）
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext 同 Run，但以 ctx 取消取代 OS 信號
func (a *App) RunContext(ctx context.Context) error {
	exited := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func() { exited <- c.Run() }()
	}

	var err error
	select {
	case <-ctx.Done():
		a.log.Info("app: stop requested")
	case err = <-exited:
		if err != nil {
			a.log.Error("app: component exited", slog.Any("err", err))
		}
	}
	a.shutdown()
	return err
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.grace)
	defer cancel()
	for i, c := range a.comps {
		if err := c.Shutdown(ctx); err != nil {
			a.log.Error("app: shutdown", slog.Int("component", i), slog.Any("err", err))
		}
	}
}
