// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/urfave/cli/v3"
)

// InitApp builds the CLI. The scanner takes exactly one positional argument
// (the filter name) and one flag, so there are no subcommands.
func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	app := &cli.Command{
		Name:            "scanner",
		Usage:           "scan a wiki edit stream for regular-expression matches",
		ArgsUsage:       "<filtername>",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print all changes, even ones that don't match",
			},
		},
		Action: scanAction,
	}
	return app, nil
}
