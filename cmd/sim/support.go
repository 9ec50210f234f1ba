package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/zintix-labs/slot666"
	"github.com/zintix-labs/slot666/catalog"
	"github.com/zintix-labs/slot666/errs"
	"github.com/zintix-labs/slot666/sdk/item"
	"github.com/zintix-labs/slot666/sdk/perf"
	"github.com/zintix-labs/slot666/stats"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type config struct {
	sessions  int
	workers   int
	maxSpins  int
	seed      int64
	items     string
	format    string
	progress  bool
	pprofmode perf.Mode
}

func bindVar(args []string) (*config, error) {
	cfg := new(config)
	fs := flag.NewFlagSet("sim", flag.ContinueOnError)
	fs.IntVar(&cfg.sessions, "sessions", 10000, "number of simulated sessions")
	fs.IntVar(&cfg.workers, "workers", 1, "number of workers")
	fs.IntVar(&cfg.maxSpins, "max-spins", 10000, "spin cap per session; reaching it ends as truncated")
	fs.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator; < 0 means random")
	fs.StringVar(&cfg.items, "items", "", "starting loadout per session, e.g. holy_water:2,tip_jar:1")
	fs.StringVar(&cfg.format, "format", "table", "output: table|json|yaml")
	fs.BoolVar(&cfg.progress, "progress", true, "show progress bar")
	p := fs.String("p", "", "pprof: '', cpu, heap, allocs")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	m, err := perf.ParseMode(*p)
	if err != nil {
		return nil, err
	}
	cfg.pprofmode = m
	return cfg, cfg.valid()
}

func (cfg *config) valid() error {
	// 工作協程檢查(併發數)
	if cfg.workers < 1 {
		return errs.Malformed("value err : workers must > 0")
	}
	if cfg.sessions < 1 {
		return errs.Malformed("value err : sessions must > 0")
	}
	if cfg.maxSpins < 1 {
		return errs.Malformed("value err : max-spins must > 0")
	}
	switch cfg.format {
	case "table", "json", "yaml":
	default:
		return errs.Malformed("value err : format must be table|json|yaml, got %q", cfg.format)
	}
	return nil
}

// parseItems 解析 id:qty 清單；省略 qty 視為 1
func parseItems(cat *catalog.Catalog, s string) ([]item.OwnedItem, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []item.OwnedItem
	for _, part := range strings.Split(s, ",") {
		id, qs, found := strings.Cut(strings.TrimSpace(part), ":")
		qty := 1
		if found {
			v, err := strconv.Atoi(qs)
			if err != nil || v < 1 {
				return nil, errs.Malformed("invalid quantity in %q", part)
			}
			qty = v
		}
		o, err := cat.Own(id, qty)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// 這裡解析並執行模擬器
func executeSimulator(cfg *config, w io.Writer) error {
	eng, err := slot666.NewDefault()
	if err != nil {
		return err
	}
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	items, err := parseItems(cat, cfg.items)
	if err != nil {
		return err
	}

	var sim *slot666.Simulator
	if cfg.seed < 0 {
		if sim, err = eng.NewSimulator(); err != nil {
			return err
		}
	} else {
		sim = eng.NewSimulatorWithSeed(cfg.seed)
	}

	// Ctrl-C 時停止派發並輸出已完成的部分
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 至此確保可執行
	if cfg.format == "table" {
		green := "\033[1;32m"
		reset := "\033[0m"
		p := message.NewPrinter(language.English)
		p.Fprintf(w, "%s[GAME:%s] [WORKERS:%d] [SESSIONS:%d] [MAX SPINS:%d] [SEED:%d]%s\n",
			green, eng.Name(), cfg.workers, cfg.sessions, cfg.maxSpins, sim.Seed(), reset)
	}
	rep, used, err := sim.Run(ctx, slot666.SimRequest{
		Sessions: cfg.sessions,
		Workers:  cfg.workers,
		MaxSpins: cfg.maxSpins,
		Items:    items,
		Progress: cfg.progress && cfg.format == "table",
	})
	if rep == nil {
		return err
	}

	render, rerr := stats.RenderFor(cfg.format, used)
	if rerr != nil {
		return rerr
	}
	if werr := rep.WriteWith(w, render); werr != nil {
		return werr
	}
	return err
}
