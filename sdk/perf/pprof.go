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

// Package perf 用 runtime/pprof 包住一次模擬執行，輸出 cpu/heap/allocs profile。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/slot666/errs"
)

// DefaultDir pprof 檔案預設寫入路徑
const DefaultDir = "build/profiling"

// Mode profiling 種類
type Mode string

const (
	ModeNone   Mode = ""
	ModeCPU    Mode = "cpu"
	ModeHeap   Mode = "heap"
	ModeAllocs Mode = "allocs"
)

// ParseMode 未知的值回傳 MalformedInput
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNone, ModeCPU, ModeHeap, ModeAllocs:
		return m, nil
	default:
		return ModeNone, errs.Malformed("pprof mode must be one of '', cpu, heap, allocs: got %q", s)
	}
}

// Run 根據 mode 決定執行哪種 Profiling；exe 的錯誤優先回傳
//
// Usage like:
//
//	go run ./cmd/sim -p cpu
//	go tool pprof build/profiling/cpu.pprof
func Run(exe func() error, mode Mode, dir string) error {
	if mode == ModeNone {
		return exe()
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(err, "perf: create profiling dir")
	}
	switch mode {
	case ModeCPU:
		return cpu(exe, dir)
	case ModeHeap:
		return snapshot(exe, dir, "heap")
	case ModeAllocs:
		return snapshot(exe, dir, "allocs")
	default:
		return exe()
	}
}

// cpu 可以作性能分析，也可以拿來做構建時給 pgo 的優化 blueprint
func cpu(exe func() error, dir string) error {
	f, err := os.Create(filepath.Join(dir, "cpu.pprof"))
	if err != nil {
		return errs.Wrap(err, "perf: create cpu.pprof")
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "perf: start cpu profile")
	}
	err = exe()
	pprof.StopCPUProfile()
	return err
}

// snapshot 在 exe() 執行完後寫出一次 profile。
//   - heap: in-use memory，寫出前先 GC，貼近 live objects
//   - allocs: 累積配置，需搭配 -alloc_space / -alloc_objects 查看
func snapshot(exe func() error, dir string, name string) error {
	if err := exe(); err != nil {
		return err
	}
	if name == "heap" {
		runtime.GC()
	}
	f, err := os.Create(filepath.Join(dir, name+".pprof"))
	if err != nil {
		return errs.Wrap(err, "perf: create "+name+".pprof")
	}
	defer f.Close()
	prof := pprof.Lookup(name)
	if prof == nil {
		return errs.NewFatal("perf: unknown profile " + name)
	}
	if err := prof.WriteTo(f, 0); err != nil {
		return errs.Wrap(err, "perf: write "+name+" profile")
	}
	return nil
}
