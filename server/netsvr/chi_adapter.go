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

package netsvr

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/server/httperr"
)

const defaultAddr string = ":5808"

// chiRouter 以 chi.Router 實作 NetRouter；Group 回呼拿到的也是它
type chiRouter struct {
	r chi.Router
}

func (c chiRouter) Use(mw func(http.Handler) http.Handler) { c.r.Use(mw) }

func (c chiRouter) Get(path string, h http.HandlerFunc) { c.r.Get(path, h) }

func (c chiRouter) Post(path string, h http.HandlerFunc) { c.r.Post(path, h) }

func (c chiRouter) Group(path string, fn func(NetRouter)) {
	c.r.Route(path, func(sub chi.Router) { fn(chiRouter{r: sub}) })
}

// ChiAdapter 以 chi 與 net/http 實作 NetSvr
type ChiAdapter struct {
	chiRouter
	server *http.Server
}

// Option 調整 http.Server
type Option func(*http.Server)

// WithWriteTimeout 模擬請求可能較久，需放寬寫出超時
func WithWriteTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.WriteTimeout = d
		}
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.ReadTimeout = d
		}
	}
}

// NewChiServer 建立 ChiAdapter；addr 為空時監聽 :5808。
// 未註冊的路徑與方法一律回 JSON 錯誤
func NewChiServer(addr string, opts ...Option) *ChiAdapter {
	if addr == "" {
		addr = defaultAddr
	}
	cr := chi.NewRouter()
	cr.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperr.Errs(w, errs.Kindf(errs.NotFound, "no route for %s", r.URL.Path))
	})
	cr.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(httperr.Body{Status: http.StatusMethodNotAllowed, Error: "method " + r.Method + " not allowed"})
	})
	svr := &http.Server{
		Addr:              addr,
		Handler:           cr,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	for _, opt := range opts {
		opt(svr)
	}
	return &ChiAdapter{chiRouter: chiRouter{r: cr}, server: svr}
}

// Ready 路由與 server 皆已建立且位址含 port
func (c *ChiAdapter) Ready() bool {
	if c == nil || c.r == nil || c.server == nil {
		return false
	}
	_, _, err := net.SplitHostPort(c.server.Addr)
	return err == nil
}

// Run 阻塞直到 Shutdown；正常關閉回傳 nil
func (c *ChiAdapter) Run() error {
	if err := c.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *ChiAdapter) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

func (c *ChiAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.r.ServeHTTP(w, r)
}

func (c *ChiAdapter) Address() string {
	return c.server.Addr
}

// URLParam 取得路由參數，例如 /sessions/{id}
func URLParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
