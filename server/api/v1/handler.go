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

// Package v1 實作 /v1 HTTP 端點；只做解碼、超時與序列化，規則都在 Runtime。
package v1

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/zintix-labs/slot666"
	"github.com/zintix-labs/slot666/dto"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/server/httperr"
	"github.com/zintix-labs/slot666/server/netsvr"
	"github.com/zintix-labs/slot666/server/svrcfg"
)

// Handler 持有 Runtime 與請求上限
type Handler struct {
	rt      *slot666.Runtime
	log     *slog.Logger
	lim     dto.SimLimits
	timeout time.Duration
}

// NewHandler 以已驗證的 SvrCfg 建立 Handler
func NewHandler(sCfg *svrcfg.SvrCfg) (*Handler, error) {
	if sCfg == nil || sCfg.Runtime == nil {
		return nil, errs.NewFatal("v1: runtime is required")
	}
	return &Handler{
		rt:      sCfg.Runtime,
		log:     sCfg.Log.With(slog.String("component", "api.v1")),
		lim:     sCfg.Sim,
		timeout: sCfg.RequestTimeout,
	}, nil
}

// Register 掛載所有 /v1 路由
func (h *Handler) Register(vOne netsvr.NetRouter) {
	vOne.Post("/sessions", h.CreateSession)
	vOne.Get("/sessions/{id}", h.GetSession)
	vOne.Post("/sessions/{id}/spin", h.Spin)
	vOne.Post("/sessions/{id}/settle", h.Settle)

	vOne.Get("/risk", h.Risk)
	vOne.Get("/risk/table", h.RiskTable)
	vOne.Get("/levels", h.Levels)
	vOne.Get("/items", h.Items)
	vOne.Get("/metrics", h.Metrics)

	vOne.Get("/sim", h.Sim)
	vOne.Post("/sim", h.Sim)
}

// writeJSON 先寫入 buffer 再送出，保證不會寫到一半才 error
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	var b bytes.Buffer
	if err := json.NewEncoder(&b).Encode(v); err != nil {
		h.fail(w, "encode response", errs.Wrap(err, "encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b.Bytes())
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	httperr.Log(h.log, msg, err)
	httperr.Errs(w, err)
}
