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

package svrcfg

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/zintix-labs/slot666"
	"github.com/zintix-labs/slot666/catalog"
	"github.com/zintix-labs/slot666/dto"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/ledger"
	"github.com/zintix-labs/slot666/ledger/sqlite"
	"github.com/zintix-labs/slot666/observe"
	"github.com/zintix-labs/slot666/server/logger"
)

const (
	LedgerMemory = "memory"
	LedgerSQLite = "sqlite"
)

// Env 由 SLOT666_* 環境變數讀入的 server 設定；cmd/svr 的 flag 會覆寫同名欄位
type Env struct {
	Addr           string        `env:"SLOT666_ADDR"            envDefault:":5808"`
	LogMode        string        `env:"SLOT666_LOG_MODE"        envDefault:"dev"`
	Ledger         string        `env:"SLOT666_LEDGER"          envDefault:"memory"`
	SQLitePath     string        `env:"SLOT666_SQLITE_PATH"     envDefault:"slot666.db"`
	TableCapacity  int           `env:"SLOT666_TABLE_CAPACITY"  envDefault:"10000"`
	IdleTimeout    time.Duration `env:"SLOT666_IDLE_TIMEOUT"    envDefault:"30m"`
	SweepEvery     time.Duration `env:"SLOT666_SWEEP_INTERVAL"  envDefault:"1m"`
	WriteTimeout   time.Duration `env:"SLOT666_WRITE_TIMEOUT"   envDefault:"5s"`
	RequestTimeout time.Duration `env:"SLOT666_REQUEST_TIMEOUT" envDefault:"5s"`
	SinkBuffer     int           `env:"SLOT666_SINK_BUFFER"     envDefault:"4096"`
	SimSessions    int           `env:"SLOT666_SIM_MAX_SESSIONS" envDefault:"100000"`
	SimWorkers     int           `env:"SLOT666_SIM_MAX_WORKERS"  envDefault:"8"`
	SimSpins       int           `env:"SLOT666_SIM_MAX_SPINS"    envDefault:"10000"`
	CORSOrigins    []string      `env:"SLOT666_CORS_ORIGINS"    envDefault:"*" envSeparator:","`
	GameFile       string        `env:"SLOT666_GAME_FILE"`  // 空值使用內建設定
	ItemsFile      string        `env:"SLOT666_ITEMS_FILE"` // 空值使用內建道具；所在目錄必須為 flat
}

// LoadEnv 讀取環境變數
func LoadEnv() (*Env, error) {
	e := new(Env)
	if err := env.Parse(e); err != nil {
		return nil, errs.Wrap(errs.Inconsistent("parse env: %v", err), "svrcfg")
	}
	return e, nil
}

// Build 依 Env 組裝 logger、Engine、Catalog、Ledger 與 Runtime
func (e *Env) Build() (*SvrCfg, error) {
	mode, ok := logger.ParseMode(e.LogMode)
	if !ok {
		return nil, errs.Inconsistent("svrcfg: unknown log mode %q", e.LogMode)
	}
	log, ah := logger.NewAsync(4096, mode)
	sc := &SvrCfg{
		Log:            log,
		Addr:           e.Addr,
		SweepEvery:     e.SweepEvery,
		RequestTimeout: e.RequestTimeout,
		CORSOrigins:    e.CORSOrigins,
		Sim:            dto.SimLimits{MaxSessions: e.SimSessions, MaxWorkers: e.SimWorkers, MaxSpins: e.SimSpins},
	}
	// 失敗時把已開啟的資源關掉
	fail := func(err error) (*SvrCfg, error) {
		_ = sc.Close()
		ah.Close()
		return nil, err
	}

	sink := observe.NewAsyncSink(observe.NewLogSink(log.With(slog.String("component", "observe")), slog.LevelInfo), e.SinkBuffer)
	sc.Closers = append(sc.Closers, CloserFunc(sink.Close))

	eng, err := e.engine(slot666.WithLogger(log), slot666.WithSink(sink))
	if err != nil {
		return fail(err)
	}
	cat, err := e.catalog()
	if err != nil {
		return fail(err)
	}
	l, closer, err := e.ledger()
	if err != nil {
		return fail(err)
	}
	if closer != nil {
		sc.Closers = append(sc.Closers, closer)
	}
	rt, err := eng.NewRuntime(l, cat,
		slot666.WithTable(slot666.NewSessionTable(e.TableCapacity, e.IdleTimeout)),
		slot666.WithWriteTimeout(e.WriteTimeout),
	)
	if err != nil {
		return fail(err)
	}
	sc.Runtime = rt
	// async log 最後關，確保關閉過程的 log 能寫出
	sc.Closers = append(sc.Closers, CloserFunc(ah.Close))
	return sc, nil
}

func (e *Env) engine(opts ...slot666.Option) (*slot666.Engine, error) {
	if e.GameFile == "" {
		return slot666.NewDefault(opts...)
	}
	dir, name := splitPath(e.GameFile)
	return slot666.NewFromFS(osDirFS(dir), name, opts...)
}

func (e *Env) catalog() (*catalog.Catalog, error) {
	if e.ItemsFile == "" {
		return catalog.Default()
	}
	dir, name := splitPath(e.ItemsFile)
	cat, err := catalog.New(osDirFS(dir))
	if err != nil {
		return nil, err
	}
	if err := cat.Load(name); err != nil {
		return nil, err
	}
	return cat, nil
}

func (e *Env) ledger() (ledger.Ledger, io.Closer, error) {
	switch strings.ToLower(e.Ledger) {
	case "", LedgerMemory:
		return ledger.NewMemory(), nil, nil
	case LedgerSQLite:
		st, err := sqlite.Open(e.SQLitePath)
		if err != nil {
			return nil, nil, errs.Wrap(err, "svrcfg: open sqlite ledger")
		}
		return st, st, nil
	default:
		return nil, nil, errs.Inconsistent("svrcfg: unknown ledger %q", e.Ledger)
	}
}

func splitPath(p string) (string, string) {
	dir, name := filepath.Split(filepath.Clean(p))
	if dir == "" {
		dir = "."
	}
	return dir, name
}

func osDirFS(dir string) fs.FS { return os.DirFS(dir) }
