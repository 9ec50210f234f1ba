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

package dto

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/slot666"
	"github.com/zintix-labs/slot666/catalog"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/sdk/item"
)

// 防止 body 過大（1MiB）
const maxBody = 1 << 20

// CreateSessionRequest POST /v1/sessions
type CreateSessionRequest struct {
	Items []slot666.Grant `json:"items,omitempty"` // 起始道具，可省略
}

// SimRequest POST /v1/sim（或 GET 以 query string）
type SimRequest struct {
	Sessions int             `json:"sessions"`
	Workers  int             `json:"workers,omitempty"`
	MaxSpins int             `json:"max_spins,omitempty"`
	Seed     *int64          `json:"seed,omitempty"` // 省略時隨機
	Items    []slot666.Grant `json:"items,omitempty"`
}

// SimLimits 伺服器端對模擬請求的上限
type SimLimits struct {
	MaxSessions int
	MaxWorkers  int
	MaxSpins    int
}

// DecodeCreateSessionRequest 解碼建立 session 的請求；空 body 視為沒有起始道具。
//
// 開啟 DisallowUnknownFields()，對未知欄位採用嚴格拒絕，以避免靜默丟資料。
func DecodeCreateSessionRequest(r *http.Request) (*CreateSessionRequest, error) {
	if r == nil {
		return nil, errs.Malformed("nil request")
	}
	req := new(CreateSessionRequest)
	if r.Body == nil || r.ContentLength == 0 {
		return req, nil
	}
	if err := decodeJSON(r.Body, req); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeSimRequest 會把 HTTP 請求解碼成 SimRequest。
//
// 支援：
//   - GET：從 query string 讀取 sessions/workers/max_spins/seed（不支援 items）。
//   - POST：從 JSON body 反序列化。
//
// 這裡只負責解碼與基本型別轉換，數值範圍由 Parse 決定。
func DecodeSimRequest(r *http.Request) (*SimRequest, error) {
	if r == nil {
		return nil, errs.Malformed("nil request")
	}
	req := new(SimRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		var err error
		if req.Sessions, err = QueryInt(q.Get("sessions"), "sessions", 0); err != nil {
			return nil, err
		}
		if req.Workers, err = QueryInt(q.Get("workers"), "workers", 0); err != nil {
			return nil, err
		}
		if req.MaxSpins, err = QueryInt(q.Get("max_spins"), "max_spins", 0); err != nil {
			return nil, err
		}
		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, errs.Malformed("invalid seed: %v", err)
			}
			req.Seed = &v
		}
		return req, nil

	case http.MethodPost:
		if err := decodeJSON(r.Body, req); err != nil {
			return nil, err
		}
		return req, nil

	default:
		return nil, errs.Malformed("method not allowed")
	}
}

// Parse 套用上限並以目錄解析道具，回傳引擎的模擬參數
func (sr *SimRequest) Parse(cat *catalog.Catalog, lim SimLimits) (slot666.SimRequest, error) {
	if sr.Sessions < 1 {
		return slot666.SimRequest{}, errs.Malformed("sessions must > 0, got %d", sr.Sessions)
	}
	if lim.MaxSessions > 0 && sr.Sessions > lim.MaxSessions {
		return slot666.SimRequest{}, errs.Malformed("sessions must <= %d, got %d", lim.MaxSessions, sr.Sessions)
	}
	if sr.Workers < 0 || sr.MaxSpins < 0 {
		return slot666.SimRequest{}, errs.Malformed("workers and max_spins must not be negative")
	}
	req := slot666.SimRequest{Sessions: sr.Sessions, Workers: sr.Workers, MaxSpins: sr.MaxSpins}
	if req.Workers == 0 {
		req.Workers = 1
	}
	if lim.MaxWorkers > 0 {
		req.Workers = min(req.Workers, lim.MaxWorkers)
	}
	if lim.MaxSpins > 0 && (req.MaxSpins == 0 || req.MaxSpins > lim.MaxSpins) {
		req.MaxSpins = lim.MaxSpins
	}
	items, err := OwnAll(cat, sr.Items)
	if err != nil {
		return slot666.SimRequest{}, err
	}
	req.Items = items
	return req, nil
}

// OwnAll 以目錄把 Grant 轉為 OwnedItem
func OwnAll(cat *catalog.Catalog, gs []slot666.Grant) ([]item.OwnedItem, error) {
	if len(gs) == 0 {
		return nil, nil
	}
	out := make([]item.OwnedItem, 0, len(gs))
	for _, g := range gs {
		o, err := cat.Own(g.ItemID, g.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// QueryInt 解析 query 參數；空字串回傳 def
func QueryInt(s string, name string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errs.Malformed("invalid %s: %v", name, err)
	}
	return v, nil
}

func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errs.Wrap(errs.Malformed("invalid json: %v", err), "decode request")
	}
	return nil
}
