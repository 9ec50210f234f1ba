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

package server

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/server/api"
	"github.com/zintix-labs/slot666/server/app"
	"github.com/zintix-labs/slot666/server/netsvr"
	"github.com/zintix-labs/slot666/server/svrcfg"
)

// 模擬請求可能跑數十秒，寫出超時需放寬
const simWriteTimeout = 2 * time.Minute

// Run 是 server 套件的「組裝器（assembler）」與「啟動入口（runtime entry）」。
//
// 它負責：
//  1. 驗證 SvrCfg（logger、Runtime 與各項上限）。
//  2. 建立 HTTP server（netsvr）並註冊路由與 middleware。
//  3. 以 app.App 管理 server、idle sweeper 與資源關閉，直到收到終止信號。
//
// Run 不綁定任何「檔案路徑」或「環境變數」策略；所有依賴都透過 SvrCfg 明確注入。
func Run(sCfg *svrcfg.SvrCfg) error {
	if err := sCfg.Valid(); err != nil {
		// 防止外層傳入的logger不可用
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	svr := netsvr.NewChiServer(sCfg.Addr, netsvr.WithWriteTimeout(simWriteTimeout))
	return RunWithSvr(sCfg, svr)
}

// RunWithSvr 與 Run() 相同，但允許呼叫端注入自訂的 NetSvr
// （自己包裝的 adapter、listener 或 TLS 設定）。
//
//   - svr 必須非 nil；若是 ChiAdapter 會要求 Ready() 為 true。
//   - 關閉順序：先停 server，再停 sweeper，最後關閉 Runtime 與 sCfg.Closers。
func RunWithSvr(sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr) error {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		err := errs.NewFatal("svr is required")
		sCfg.Log.Error(err.Error())
		return err
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		err := errs.NewFatal("default server is not ready")
		sCfg.Log.Error(err.Error())
		return err
	}

	// 註冊 Api
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		sCfg.Log.Error("register routes", slog.Any("err", err))
		return err
	}

	// 運行
	a := app.NewWith(
		svr,
		app.NewSweeper(sCfg.Runtime, sCfg.SweepEvery, sCfg.Log),
		app.NewCloser(sCfg),
	).WithLog(sCfg.Log)

	addr := ""
	if s, ok := svr.(*netsvr.ChiAdapter); ok {
		addr = s.Address()
	}
	sCfg.Log.Info("[slot666] listening", slog.String("addr", addr), slog.String("game", sCfg.Runtime.Engine().Name()))
	if err := a.Run(); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
		return err
	}
	return nil
}

// NewHandler 組裝完整路由但不啟動，供 httptest 或嵌入既有服務使用
func NewHandler(sCfg *svrcfg.SvrCfg) (netsvr.NetSvr, error) {
	if err := sCfg.Valid(); err != nil {
		return nil, err
	}
	svr := netsvr.NewChiServer(sCfg.Addr)
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		return nil, err
	}
	return svr, nil
}
