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

// ops 是開發用的任務入口：go run ./scripts [task]
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type task struct {
	desc string
	run  func() error
}

var tasks = map[string]task{
	"test":        {"go test ./... -cover -count=1，只顯示 ok/FAIL", runTest},
	"test-detail": {"go test ./... -v -count=1，過濾 [no test files]", runTestDetail},
	"race":        {"go test ./... -race -count=1（Runtime、SessionTable、Simulator 的併發）", runRace},
	"sim":         {"跑一次預設模擬並輸出表格", runSim},
	"pgo":         {"以 cmd/sim 的 cpu profile 產生 default.pgo", runPGO},
}

func main() {
	// 如果沒有送任何參數進來，我們告訴用戶需要帶上 task
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	t, ok := tasks[os.Args[1]]
	if !ok {
		PrintYellow(fmt.Sprintf("Unknown task: %s", os.Args[1]))
		usage()
		os.Exit(1)
	}
	if err := t.run(); err != nil {
		PrintRed(err.Error())
		os.Exit(1) // 告訴 Makefile 失敗了
	}
}

func usage() {
	fmt.Println("Usage: go run ./scripts [task]")
	for name, t := range tasks {
		fmt.Printf("  %-12s %s\n", name, t.desc)
	}
}

func runTest() error {
	PrintGreen("running tests")
	cleanCache()
	return goFiltered(func(line string) {
		switch {
		case strings.HasPrefix(line, "ok"):
			PrintGreen(line)
		case strings.HasPrefix(line, "FAIL"):
			PrintRed(line)
		case strings.Contains(line, "build failed") || strings.Contains(line, "setup failed"):
			// 捕捉嚴重錯誤關鍵字，不然過濾太乾淨會看不出為什麼沒反應
			PrintRed(line)
		}
	}, "test", "./...", "-cover", "-count=1")
}

func runTestDetail() error {
	PrintGreen("running tests (detail)")
	cleanCache()
	return goFiltered(func(line string) {
		switch {
		case strings.Contains(line, "[no test files]"):
		case strings.HasPrefix(line, "ok"):
			PrintGreen(line)
		case strings.HasPrefix(line, "FAIL"):
			PrintRed(line)
		default:
			fmt.Println(line)
		}
	}, "test", "./...", "-v", "-count=1")
}

func runRace() error {
	PrintGreen("running tests (race)")
	return goPassthrough("test", "./...", "-race", "-count=1")
}

func runSim() error {
	return goPassthrough("run", "./cmd/sim", "-sessions", "100000", "-workers", "8", "-seed", "1")
}

func runPGO() error {
	PrintGreen("profiling cmd/sim")
	if err := goPassthrough("run", "./cmd/sim", "-sessions", "200000", "-workers", "4", "-seed", "1", "-progress=false", "-p", "cpu"); err != nil {
		return err
	}
	src, err := os.Open(filepath.Join("build", "profiling", "cpu.pprof"))
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(filepath.Join("cmd", "svr", "default.pgo"))
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	PrintGreen("wrote cmd/svr/default.pgo")
	return nil
}

// 清 cache 失敗不中斷
func cleanCache() {
	if err := exec.Command("go", "clean", "-testcache").Run(); err != nil {
		PrintYellow("go clean -testcache: " + err.Error())
	}
}

func goPassthrough(args ...string) error {
	cmd := exec.Command("go", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go %s: %w", args[0], err)
	}
	return nil
}

// goFiltered 合併 stdout/stderr（2>&1），逐行交給 fn
func goFiltered(fn func(string), args ...string) error {
	cmd := exec.Command("go", args...)
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start go %s: %w", args[0], err)
	}
	sc := bufio.NewScanner(pipe)
	for sc.Scan() {
		fn(sc.Text())
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("go %s finished with errors", args[0])
	}
	return sc.Err()
}
