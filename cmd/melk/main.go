// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Command melk is the reference command-line front end for the melk
// scripting engine: `melk -e 'expr'` evaluates one expression and
// prints its value (plus heap usage at -v 3 or above), `melk file.js`
// evaluates a file,
// and bare `melk` drops into an interactive REPL.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/naoina/toml"
	"github.com/peterh/liner"
	"github.com/shirou/gopsutil/mem"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/probechain/melk/engine"
	"github.com/probechain/melk/internal/elog"
	"github.com/probechain/melk/stdlib/cryptofn"
	"github.com/probechain/melk/stdlib/iofn"
	"github.com/probechain/melk/stdlib/mathfn"
)

// config holds the fields melk.toml may set; a CLI flag given
// explicitly on the command line overrides the config file, which in
// turn overrides these built-in defaults.
type config struct {
	HeapSize int `toml:"heap_size"`
	GCT      int `toml:"gct"`
}

var defaultConfig = config{HeapSize: 1 << 16, GCT: 0}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "melk"
	app.Usage = "run or explore melk scripts"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "e", Usage: "evaluate `EXPR` instead of reading a file or starting the REPL"},
		cli.BoolFlag{Name: "d", Usage: "dump the global scope after evaluation"},
		cli.StringFlag{Name: "v", Value: "2", Usage: "log level 0 (crit) through 5 (trace); 3 (info) and up also prints run stats"},
		cli.IntFlag{Name: "gct", Value: 0, Usage: "GC threshold percent; 0 collects after every statement"},
		cli.StringFlag{Name: "config", Usage: "path to a melk.toml config file"},
	}
	app.Action = run
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "melk:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("gct") {
		cfg.GCT = c.Int("gct")
	}
	lvl, err := elog.LvlFromString(c.String("v"))
	if err != nil {
		return err
	}

	e, err := engine.Create(make([]byte, cfg.HeapSize))
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer e.Close()
	e.SetGCThreshold(cfg.GCT)
	e.SetLogLevel(lvl)

	cryptofn.Register(e)
	mathfn.Register(e)
	iofn.Register(e)

	switch {
	case c.IsSet("e"):
		return runOne(e, c, "-e", c.String("e"), lvl)
	case c.NArg() > 0:
		src, err := os.ReadFile(c.Args().First())
		if err != nil {
			return err
		}
		return runOne(e, c, c.Args().First(), string(src), lvl)
	default:
		return repl(e, c)
	}
}

func runOne(e *engine.Engine, c *cli.Context, filename, source string, lvl elog.Lvl) error {
	start := time.Now()
	res := e.Eval(filename, source)
	elapsed := time.Since(start)

	fmt.Println(e.Str(res))
	if c.Bool("d") {
		fmt.Println(e.Dump(e.Glob()))
	}
	if lvl >= elog.LvlInfo {
		fmt.Printf("Executed in %v. Heap usage %d%%.\n", elapsed, e.Usage())
		printHostStats()
	}
	if e.HasError() {
		return fmt.Errorf("eval: %s", e.ErrMsg())
	}
	return nil
}

func printHostStats() {
	v, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	fmt.Printf("Host memory: %d%% used (%d/%d bytes).\n", int(v.UsedPercent), v.Used, v.Total)
}

func repl(e *engine.Engine, c *cli.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("melk REPL. Ctrl-D to exit.")
	for {
		input, err := line.Prompt("melk> ")
		if err == io.EOF || err == liner.ErrPromptAborted {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		res := e.Eval("<repl>", input)
		fmt.Println(e.Str(res))
		if c.Bool("d") {
			fmt.Println(e.Dump(e.Glob()))
		}
	}
}
