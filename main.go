// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/scanner/scanner/internal/command"
	"github.com/scanner/scanner/internal/log"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	log.InitLogger()

	args := os.Args
	log.Debugf("args captured: args=%v", args)

	// A bare invocation can't do anything useful, so show the help text.
	if len(args) <= 1 {
		args = append(args, "--help")
	}

	return initAndRunApp(args)
}

// initAndRunApp initializes the app and runs it, returning the exit code.
// A clean interrupt-driven shutdown exits 0; startup failures and
// unrecoverable stream errors exit non-zero.
func initAndRunApp(args []string) int {
	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Debugf("app init err: err=%v", err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Debugf("app run err: err=%v", err)
		return 2
	}

	return 0
}
