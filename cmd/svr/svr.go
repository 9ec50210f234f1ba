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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zintix-labs/slot666/server"
	"github.com/zintix-labs/slot666/server/svrcfg"
)

// 設定來源：SLOT666_* 環境變數為預設，flag 有給時覆寫。
func main() {
	env, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	sCfg, err := env.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := server.Run(sCfg); err != nil {
		os.Exit(1)
	}
}

func loadConfig(args []string) (*svrcfg.Env, error) {
	env, err := svrcfg.LoadEnv()
	if err != nil {
		return nil, err
	}
	fs := flag.NewFlagSet("svr", flag.ContinueOnError)
	fs.StringVar(&env.Addr, "addr", env.Addr, "listen address")
	fs.StringVar(&env.LogMode, "log-mode", env.LogMode, "log mode: dev|prod|silence")
	fs.StringVar(&env.Ledger, "ledger", env.Ledger, "ledger backend: memory|sqlite")
	fs.StringVar(&env.SQLitePath, "sqlite", env.SQLitePath, "sqlite ledger file")
	fs.IntVar(&env.TableCapacity, "capacity", env.TableCapacity, "max live sessions")
	fs.DurationVar(&env.IdleTimeout, "idle", env.IdleTimeout, "evict live sessions idle longer than this")
	fs.DurationVar(&env.SweepEvery, "sweep", env.SweepEvery, "idle sweep interval")
	fs.StringVar(&env.GameFile, "game", env.GameFile, "game setting file (yaml/json); empty uses the embedded one")
	fs.StringVar(&env.ItemsFile, "items", env.ItemsFile, "items file (yaml/json); empty uses the embedded one")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return env, nil
}
