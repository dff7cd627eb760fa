// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Command ubifs-rec recovers (data from) a broken UBIFS filesystem image by
// scanning it node-by-node, rebuilding the directory hierarchy from the
// surviving nodes, and materializing the result to a directory, a FUSE
// mount, or an in-memory listing.
package main

import (
	"context"
	"os"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ubifs-rec/ubifs-rec/lib/profile"
	"github.com/ubifs-rec/ubifs-rec/lib/textui"
)

type logLevelFlag struct {
	logrus.Level
}

func (lvl *logLevelFlag) Type() string { return "loglevel" }
func (lvl *logLevelFlag) Set(str string) error {
	var err error
	lvl.Level, err = logrus.ParseLevel(str)
	return err
}

var _ pflag.Value = (*logLevelFlag)(nil)

// subcommand pairs a cobra.Command with a RunE that additionally receives
// the image path (the first positional argument, not yet opened), so every
// subcommand shares flag parsing and logging setup instead of duplicating it.
type subcommand struct {
	cobra.Command
	RunE func(ctx context.Context, imagePath string, cmd *cobra.Command, args []string) error
}

var subcommands []subcommand

func main() {
	logLvl := logLevelFlag{Level: logrus.InfoLevel}

	argparser := &cobra.Command{
		Use:   "ubifs-rec {[flags]|SUBCOMMAND} IMAGE",
		Short: "Recover (data from) a broken UBIFS filesystem image",

		Args: cliutil.WrapPositionalArgs(cliutil.OnlySubcommands),
		RunE: cliutil.RunSubcommands,

		SilenceErrors: true,
		SilenceUsage:  true,

		CompletionOptions: cobra.CompletionOptions{ //nolint:exhaustruct
			DisableDefaultCmd: true,
		},
	}
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
	argparser.PersistentFlags().Var(&logLvl, "verbosity", "set the verbosity")
	stopProfiling := profile.AddProfileFlags(argparser.PersistentFlags(), "profile-")
	defer func() {
		if err := stopProfiling(); err != nil {
			textui.Fprintf(os.Stderr, "%v: error stopping profiler: %v\n", argparser.CommandPath(), err)
		}
	}()

	for _, child := range subcommands {
		cmd := child.Command
		runE := child.RunE
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return cmd.Usage()
			}
			imagePath := args[0]
			args = args[1:]

			logger := logrus.New()
			logger.SetLevel(logLvl.Level)
			ctx := dlog.WithLogger(cmd.Context(), dlog.WrapLogrus(logger))

			grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
				EnableSignalHandling: true,
			})
			grp.Go("main", func(ctx context.Context) error {
				return runE(ctx, imagePath, cmd, args)
			})
			return grp.Wait()
		}
		argparser.AddCommand(&cmd)
	}

	if err := argparser.ExecuteContext(context.Background()); err != nil {
		textui.Fprintf(os.Stderr, "%v: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}
