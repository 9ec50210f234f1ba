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

package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/slot666/errs"
)

// StatusCode 將錯誤映射成 HTTP status code。
//
// 規則（邊界層最小映射、可預期）：
//   - ctx timeout/cancel → 504/408（請求生命週期問題）
//   - errs.Kind          → 409/400/404/503
//   - 無 Kind 時依 ErrLv：Warn → 400，Fatal → 500
//
// 注意：本函數屬於 HTTP 邊界層，因此放在 server/*（而不是 core errs）。
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout // 504
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout // 408
	}

	switch errs.KindOf(err) {
	case errs.IllegalSpin:
		return http.StatusConflict // 409
	case errs.MalformedInput:
		return http.StatusBadRequest // 400
	case errs.NotFound:
		return http.StatusNotFound // 404
	case errs.CollaboratorUnavailable, errs.Closed:
		return http.StatusServiceUnavailable // 503
	}

	var e *errs.E
	if errors.As(err, &e) && e.ErrLv == errs.Warn {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Body 錯誤回應
type Body struct {
	Status int    `json:"status"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error"`
}

// Errs 以 JSON 寫回錯誤
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	b := Body{Status: status, Error: err.Error()}
	if k := errs.KindOf(err); k != errs.KindUnknown {
		b.Kind = k.String()
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(b)
}

// Log 依 status 決定 log 等級；4xx 的請求錯誤不記錄
func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	status := StatusCode(err)
	if (status == 408) || (status == 409) || (status == 429) {
		log.Warn(msg, slog.Any("err", err))
	} else if (status >= 500) && (status < 600) {
		log.Error(msg, slog.Any("err", err))
	}
}
