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

// Package slot666 提供 666 老虎機引擎的「組裝入口（assembler）」與 Session 狀態機。
//
// Engine 把下列地基組裝在一起，並提供建立 Session 的入口：
//  1. game.Config：不可變的基礎遊戲設定（圖標分數、權重、連線倍率）。
//  2. risk.Calculator / level.Schedule：666 機率表與升級門檻表，皆為資料。
//  3. RandomSource：亂數來源一律注入。權威引擎只接受 core.Strong 來源；
//     預覽引擎（WithPreview）可使用可重現的 PRNG。
//  4. observe.Sink：狀態轉換事件（LevelUp / SessionEnded）的輸出口。
//
// 設計重點：
//   - 引擎（本包與 sdk/*）不做任何 I/O，也不啟動 goroutine。Ledger、Catalog 等協作者由
//     Runtime 在 spin 前後讀寫。
//   - Session 是對外提供 Spin 的最小單位；同一 Session 同時最多一個 Spin。
//
// 典型使用情境：
//   - 後端服務（HTTP）：由 Engine 建立 Runtime，Runtime 負責 ledger 讀寫與 session 表。
//   - 模擬器（sim）：由 Engine 建立 Simulator，以多個 worker 平行跑完整局。
package slot666

import (
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/zintix-labs/slot666/content"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/ledger"
	"github.com/zintix-labs/slot666/observe"
	"github.com/zintix-labs/slot666/sdk/core"
	"github.com/zintix-labs/slot666/sdk/game"
	"github.com/zintix-labs/slot666/sdk/grid"
	"github.com/zintix-labs/slot666/sdk/item"
	"github.com/zintix-labs/slot666/sdk/level"
	"github.com/zintix-labs/slot666/sdk/risk"
	"github.com/zintix-labs/slot666/setting"
)

// boardGenerator 產生盤面，預設為 *grid.Generator
type boardGenerator interface {
	Generate(cfg *game.Config, rng core.RandomSource, force bool) grid.Grid
}

// Engine 是組裝器：持有不可變的遊戲設定與注入的協作者。Engine 建立後即不再變動，
// 可安全地被多個 goroutine 共用。
type Engine struct {
	gs            *setting.GameSetting
	cfg           *game.Config
	risk          *risk.Calculator
	levels        *level.Schedule
	spinsPerLevel int
	gen           boardGenerator
	log           *slog.Logger
	sink          observe.Sink
	src           core.RandomSource
	factory       core.PRNGFactory
	preview       bool
}

// Option 設定 Engine
type Option func(*Engine)

// WithLogger 注入 logger；預設為靜默
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithSink 注入事件輸出口；預設丟棄
func WithSink(sink observe.Sink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithSource 注入 NewSession 預設使用的亂數來源（必須可被多個 session 並行使用）。
// 權威引擎只接受 core.Strong 來源。
func WithSource(src core.RandomSource) Option {
	return func(e *Engine) {
		if src != nil {
			e.src = src
		}
	}
}

// WithPRNGFactory 注入模擬器使用的 PRNG 工廠；預設 PCG64
func WithPRNGFactory(f core.PRNGFactory) Option {
	return func(e *Engine) {
		if f != nil {
			e.factory = f
		}
	}
}

// WithPreview 允許非密碼學來源，用於預覽與測試；預覽結果不得被結算。
func WithPreview() Option {
	return func(e *Engine) { e.preview = true }
}

// New 以已初始化的 GameSetting 組裝 Engine。
func New(gs *setting.GameSetting, opts ...Option) (*Engine, error) {
	if gs == nil {
		return nil, errs.Inconsistent("engine: nil game setting")
	}
	cfg, err := game.FromSetting(gs)
	if err != nil {
		return nil, errs.Wrap(err, "engine: build game config")
	}
	rc, err := risk.New(gs.Risk)
	if err != nil {
		return nil, errs.Wrap(err, "engine: build risk table")
	}
	ls, err := level.NewSchedule(gs.Level)
	if err != nil {
		return nil, errs.Wrap(err, "engine: build level schedule")
	}
	if gs.Session.SpinsPerLevel < 1 {
		return nil, errs.Inconsistent("engine: spins_per_level must >= 1, got %d", gs.Session.SpinsPerLevel)
	}
	e := &Engine{
		gs:            gs,
		cfg:           cfg,
		risk:          rc,
		levels:        ls,
		spinsPerLevel: gs.Session.SpinsPerLevel,
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		sink:          observe.Discard{},
		factory:       core.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.src == nil {
		e.src = core.NewCrypto()
	}
	if !e.preview && !core.IsStrong(e.src) {
		return nil, errs.Inconsistent("engine: authoritative engine requires a crypto-strong random source")
	}
	e.gen = grid.NewGenerator(e.log)
	return e, nil
}

// NewFromFS 讀取 fsys 中的遊戲設定檔（.yaml/.yml/.json）後組裝 Engine。
func NewFromFS(fsys fs.FS, name string, opts ...Option) (*Engine, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errs.Wrap(err, "engine: read game setting")
	}
	var gs *setting.GameSetting
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		gs, err = setting.GetGameSettingByYAML(raw)
	case ".json":
		gs, err = setting.GetGameSettingByJSON(raw)
	default:
		return nil, errs.Inconsistent("engine: unsupported setting format %q", name)
	}
	if err != nil {
		return nil, err
	}
	return New(gs, opts...)
}

// NewDefault 以內建的 content/slot666.yaml 組裝 Engine。
func NewDefault(opts ...Option) (*Engine, error) {
	return NewFromFS(content.FS, content.GameFile, opts...)
}

func (e *Engine) Name() string                  { return e.cfg.Name() }
func (e *Engine) Config() *game.Config          { return e.cfg }
func (e *Engine) Risk() *risk.Calculator        { return e.risk }
func (e *Engine) Levels() *level.Schedule       { return e.levels }
func (e *Engine) SpinsPerLevel() int            { return e.spinsPerLevel }
func (e *Engine) Setting() *setting.GameSetting { return e.gs }
func (e *Engine) Logger() *slog.Logger          { return e.log }
func (e *Engine) Preview() bool                 { return e.preview }

// NewSession 建立新 Session，使用 Engine 的亂數來源。id 為空時產生 uuid。
//
// 道具只在建立時解析一次，用於起始的 SpinBonus；不發出任何事件。
func (e *Engine) NewSession(id string, items []item.OwnedItem) (*Session, error) {
	return e.newSession(id, items, e.src)
}

// NewSessionWithSource 與 NewSession 相同，但使用專屬亂數來源。
// 權威引擎只接受 core.Strong 來源。
func (e *Engine) NewSessionWithSource(id string, items []item.OwnedItem, src core.RandomSource) (*Session, error) {
	if src == nil {
		return nil, errs.Malformed("session: nil random source")
	}
	if !e.preview && !core.IsStrong(src) {
		return nil, errs.Inconsistent("session: authoritative engine requires a crypto-strong random source")
	}
	return e.newSession(id, items, src)
}

func (e *Engine) newSession(id string, items []item.OwnedItem, src core.RandomSource) (*Session, error) {
	b, err := item.Resolve(items)
	if err != nil {
		return nil, errs.Wrap(err, "session: resolve starter items")
	}
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{
		id:   id,
		eng:  e,
		core: core.New(src),
		held: cloneItems(items),
		st: State{
			Level:          1,
			SpinsRemaining: e.spinsPerLevel + b.SpinBonus,
			IsActive:       true,
		},
	}
	return s, nil
}

// RestoreSession 由 Ledger 快照重建 Session；已結束的快照還原為 GameOver。
func (e *Engine) RestoreSession(snap ledger.Snapshot, items []item.OwnedItem) (*Session, error) {
	return e.restore(snap, items, e.src)
}

func (e *Engine) restore(snap ledger.Snapshot, items []item.OwnedItem, src core.RandomSource) (*Session, error) {
	if snap.ID == "" {
		return nil, errs.Malformed("session: snapshot without id")
	}
	if snap.Level < 1 || snap.SpinsRemaining < 0 || snap.Score < 0 || snap.TotalScore < 0 {
		return nil, errs.Malformed("session %s: invalid snapshot %+v", snap.ID, snap)
	}
	s := &Session{
		id:   snap.ID,
		eng:  e,
		core: core.New(src),
		held: cloneItems(items),
		st: State{
			Score:          snap.Score,
			TotalScore:     snap.TotalScore,
			Level:          snap.Level,
			SpinsRemaining: snap.SpinsRemaining,
			IsActive:       snap.IsActive,
		},
	}
	if !snap.IsActive {
		s.setPhase(PhaseGameOver)
	}
	return s, nil
}

func cloneItems(items []item.OwnedItem) []item.OwnedItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]item.OwnedItem, len(items))
	copy(out, items)
	return out
}
