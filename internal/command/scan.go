// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/scanner/scanner/internal/config"
	"github.com/scanner/scanner/internal/dispatch"
	"github.com/scanner/scanner/internal/filter"
	"github.com/scanner/scanner/internal/log"
	"github.com/scanner/scanner/internal/metrics"
	"github.com/scanner/scanner/internal/report"
	"github.com/scanner/scanner/internal/stream"
	"github.com/scanner/scanner/internal/version"
	"github.com/scanner/scanner/internal/wiki"
)

// scanAction wires the pipeline and runs it until interrupted. Everything
// before Run is startup: any failure here returns an error and a non-zero
// exit before the loop is entered.
func scanAction(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("a filter name is required (usage: scanner <filtername> [-v])")
	}
	verbose := cmd.Bool("verbose")

	log.Debugf("scanner %s starting", version.Version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	registry, err := filter.NewRegistry(cfg.Filters)
	if err != nil {
		return err
	}
	def, err := registry.Resolve(name)
	if err != nil {
		return err
	}

	level, err := report.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	rep, err := report.New(cfg.Log.Dir, level)
	if err != nil {
		return err
	}
	defer rep.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := stream.New(cfg.Stream)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	metrics.Serve(cfg.Metrics.Addr)

	opts := []dispatch.Option{dispatch.WithVerbose(verbose)}
	if def.MaxEditCount > 0 {
		opts = append(opts,
			dispatch.WithEditCounter(wiki.New(cfg.Site, cfg.Stream.ConnectTimeout.Std())))
	}

	printSettings(cfg, def, verbose)

	return dispatch.New(client, def, rep, opts...).Run(ctx)
}

// printSettings echoes the effective configuration, the way long scans get
// sanity-checked before being left unattended.
func printSettings(cfg config.Type, def *filter.Definition, verbose bool) {
	fmt.Println("Current settings:")
	if verbose {
		fmt.Println("verbose -> true")
	}
	fmt.Printf("filter = %s (fields %v, pattern %s)\n", def.Name, def.Fields, def.Pattern())
	fmt.Printf("stream = %s\n", cfg.Stream.URL)
	fmt.Printf("log = %s (level %s)\n", cfg.Log.Dir, cfg.Log.Level)
	if def.MaxEditCount > 0 {
		fmt.Printf("max edit count = %d\n", def.MaxEditCount)
	}
	fmt.Println("Waiting for first edit.")
}
