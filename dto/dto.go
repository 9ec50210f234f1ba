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

// Package dto 定義 HTTP 對外的序列化結構，與引擎內部型別解耦。
package dto

import (
	"time"

	"github.com/zintix-labs/slot666"
	"github.com/zintix-labs/slot666/catalog"
	"github.com/zintix-labs/slot666/observe"
	"github.com/zintix-labs/slot666/sdk/grid"
	"github.com/zintix-labs/slot666/sdk/pattern"
	"github.com/zintix-labs/slot666/setting"
)

type SpinResult struct {
	SessionID   string       `json:"session_id"`
	Grid        [][]string   `json:"grid"`                     // 3x5 圖標名稱
	Patterns    []PatternDTO `json:"patterns"`                 // 本轉連線
	SpinScore   int          `json:"spin_score"`               // 本轉得分
	Probability float64      `json:"instant_loss_probability"` // 本轉 666 機率（百分比）
	InstantLoss bool         `json:"instant_loss"`
	Immunity    bool         `json:"immunity_used"`
	Consumed    string       `json:"consumed_item_id,omitempty"`
	LevelBefore int          `json:"level_before"`
	State       StateDTO     `json:"state"`
	Ended       bool         `json:"ended"`
	EndReason   string       `json:"end_reason,omitempty"`
	Events      []EventDTO   `json:"events,omitempty"`
	Pending     bool         `json:"pending"` // ledger 寫入尚未完成，需 settle
	Settled     bool         `json:"settled"`
}

// PatternDTO 單一連線
type PatternDTO struct {
	Kind       setting.PatternKind `json:"kind"`
	Symbol     setting.Symbol      `json:"symbol"`
	Cells      []grid.Cell         `json:"cells"`
	Multiplier string              `json:"multiplier"` // decimal 字串，避免浮點誤差
}

type StateDTO struct {
	Score          int  `json:"score"`
	TotalScore     int  `json:"total_score"`
	Level          int  `json:"level"`
	SpinsRemaining int  `json:"spins_remaining"`
	IsActive       bool `json:"is_active"`
}

type EventDTO struct {
	Kind      observe.EventKind `json:"kind"`
	FromLevel int               `json:"from_level,omitempty"`
	Level     int               `json:"level"`
	Reason    string            `json:"reason,omitempty"`
	At        time.Time         `json:"at"`
}

// Session GET /v1/sessions/{id} 的回應
type Session struct {
	ID        string       `json:"id"`
	State     StateDTO     `json:"state"`
	Phase     string       `json:"phase"`
	Live      bool         `json:"live"`
	Pending   bool         `json:"pending"`
	Items     []HoldingDTO `json:"items"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
}

type HoldingDTO struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Item 目錄中的道具
type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Effect      string  `json:"effect"`
	Magnitude   string  `json:"magnitude"`
	Target      *string `json:"target,omitempty"`
}

func NewSpinResultDTO(res slot666.SpinResult) SpinResult {
	out := SpinResult{
		SessionID:   res.SessionID,
		Grid:        gridNames(res.Grid),
		Patterns:    newPatternDTOs(res.Patterns),
		SpinScore:   res.SpinScore,
		Probability: res.Probability,
		InstantLoss: res.InstantLoss,
		Immunity:    res.ImmunityUsed,
		Consumed:    res.ConsumedItemID,
		LevelBefore: res.LevelBefore,
		State:       newStateDTO(res.State),
		Ended:       res.Ended,
		EndReason:   res.EndReason,
		Pending:     res.Pending,
		Settled:     res.Settled,
	}
	if len(res.Events) > 0 {
		out.Events = make([]EventDTO, len(res.Events))
		for i, ev := range res.Events {
			out.Events[i] = EventDTO{Kind: ev.Kind, FromLevel: ev.FromLevel, Level: ev.Level, Reason: ev.Reason, At: ev.At}
		}
	}
	return out
}

func NewSessionDTO(v slot666.SessionView) Session {
	out := Session{
		ID: v.ID,
		State: StateDTO{
			Score:          v.Score,
			TotalScore:     v.TotalScore,
			Level:          v.Level,
			SpinsRemaining: v.SpinsRemaining,
			IsActive:       v.IsActive,
		},
		Phase:   v.Phase.String(),
		Live:    v.Live,
		Pending: v.Pending,
		Items:   make([]HoldingDTO, 0, len(v.Items)),
	}
	for _, h := range v.Items {
		out.Items = append(out.Items, HoldingDTO{ItemID: h.ItemID, Quantity: h.Quantity})
	}
	if !v.UpdatedAt.IsZero() {
		t := v.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

func NewItemDTOs(defs []catalog.Definition) []Item {
	out := make([]Item, len(defs))
	for i, d := range defs {
		out[i] = Item{
			ID:          d.ID,
			Name:        d.Name,
			Description: d.Description,
			Effect:      d.Effect.String(),
			Magnitude:   d.Magnitude.String(),
		}
		if d.Target != nil {
			s := d.Target.String()
			out[i].Target = &s
		}
	}
	return out
}

func newStateDTO(st slot666.State) StateDTO {
	return StateDTO{
		Score:          st.Score,
		TotalScore:     st.TotalScore,
		Level:          st.Level,
		SpinsRemaining: st.SpinsRemaining,
		IsActive:       st.IsActive,
	}
}

func newPatternDTOs(ps []pattern.Pattern) []PatternDTO {
	out := make([]PatternDTO, len(ps))
	for i, p := range ps {
		out[i] = PatternDTO{
			Kind:       p.Kind,
			Symbol:     p.Symbol,
			Cells:      append([]grid.Cell(nil), p.Cells...),
			Multiplier: p.Multiplier.String(),
		}
	}
	return out
}

func gridNames(g grid.Grid) [][]string {
	rows := g.ToRows()
	out := make([][]string, len(rows))
	for r, row := range rows {
		out[r] = make([]string, len(row))
		for c, s := range row {
			out[r][c] = s.String()
		}
	}
	return out
}
