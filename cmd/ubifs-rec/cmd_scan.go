// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"

	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/reconstruct"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifsnode"
)

func init() {
	var dumpRaw bool

	cmd := cobra.Command{
		Use:   "scan IMAGE",
		Short: "List every node found by the resynchronizing scanner",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
	}
	cmd.Flags().BoolVar(&dumpRaw, "dump-raw", false, "dump the full decoded value of every node, including Unknown/inert ones")

	subcommands = append(subcommands, subcommand{
		Command: cmd,
		RunE: func(ctx context.Context, imagePath string, cmd *cobra.Command, _ []string) error {
			res, raw, err := runReconstruct(ctx, imagePath, reconstruct.Options{DumpRaw: dumpRaw})
			if err != nil && res == nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dumpRaw {
				cfg := spew.ConfigState{Indent: "  ", DisableMethods: true}
				for _, rec := range raw {
					fmt.Fprintf(out, "offset=%d sqnum=%d type=%s len=%d\n",
						rec.Offset, rec.Header.Sqnum, ubifsnode.NodeType(rec.Header.NodeType), rec.Header.Len)
					cfg.Fdump(out, rec.Node)
				}
			}
			fmt.Fprintf(out, "scanned %d bytes of skipped/corrupt data, %d diagnostics\n",
				res.SkippedBytes, len(res.Diagnostics))
			for _, diag := range res.Diagnostics {
				fmt.Fprintf(out, "  %v\n", diag)
			}
			return nil
		},
	})
}
