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

package api

import (
	"encoding/json"
	"net/http"

	v1 "github.com/zintix-labs/slot666/server/api/v1"
	"github.com/zintix-labs/slot666/server/netsvr"
	"github.com/zintix-labs/slot666/server/netsvr/middleware"
	"github.com/zintix-labs/slot666/server/svrcfg"
)

// RegisterRoutes 註冊；sCfg 必須已通過 Valid
func RegisterRoutes(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg)   // 1. 註冊 middleware
	registerIndex(svr, sCfg)        // 2. 註冊主頁與健康檢查
	return registerV1API(svr, sCfg) // 3. 註冊 v1 api
}

// 註冊 middleware
func registerMiddleware(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(sCfg.Log))
	svr.Use(middleware.Recover(sCfg.Log))
	svr.Use(middleware.CORS(sCfg.CORSOrigins))
	svr.Use(middleware.Compression)
}

type index struct {
	Name   string `json:"name"`
	Game   string `json:"game"`
	Health string `json:"health"`
	API    string `json:"api"`
}

// 註冊主頁
func registerIndex(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) {
	rt := sCfg.Runtime
	svr.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(index{Name: "slot666", Game: rt.Engine().Name(), Health: "/healthz", API: "/v1"})
	})
	// Runtime 關閉後回 503，讓負載平衡器摘除
	svr.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if rt.Closed() {
			http.Error(w, "closed: "+rt.ClosedReason(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetSvr, sCfg *svrcfg.SvrCfg) error {
	h, err := v1.NewHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Group("/v1", h.Register)
	return nil
}
