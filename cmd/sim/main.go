package main

import (
	"fmt"
	"os"

	"github.com/zintix-labs/slot666/sdk/perf"
)

// makefile runner
func main() {
	cfg, err := bindVar(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := perf.Run(func() error { return executeSimulator(cfg, os.Stdout) }, cfg.pprofmode, ""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
