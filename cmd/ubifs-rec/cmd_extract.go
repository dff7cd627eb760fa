// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/content"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/materialize"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/reconstruct"
)

func init() {
	var outputRoot string

	cmd := cobra.Command{
		Use:   "extract IMAGE",
		Short: "Reconstruct a UBIFS image and write the result to a directory",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
	}
	cmd.Flags().StringVar(&outputRoot, "output", "", "directory to extract into (default: IMAGE with its extension stripped)")

	subcommands = append(subcommands, subcommand{
		Command: cmd,
		RunE: func(ctx context.Context, imagePath string, cmd *cobra.Command, _ []string) error {
			root := outputRoot
			if root == "" {
				root = strings.TrimSuffix(imagePath, filepath.Ext(imagePath))
			}

			res, _, err := runReconstruct(ctx, imagePath, reconstruct.Options{})
			if err != nil {
				if res == nil {
					// The image itself couldn't be opened/scanned at
					// all; there is no partial inventory to salvage.
					return err
				}
				// A terminal scan error (e.g. TruncatedNode) still
				// leaves res.Inventory/res.Tree populated with
				// whatever was observed up to the break; per
				// spec.md §5/§7 a corrupted image is extracted
				// as far as it goes rather than producing nothing.
				dlog.Errorf(ctx, "scan ended early: %v; materializing partial results", err)
			}
			for _, diag := range res.Diagnostics {
				dlog.Warnln(ctx, diag)
			}

			sink := materialize.NewDiskSink(root)
			reg := content.DefaultRegistry()
			errs := materialize.Materialize(ctx, res.Tree, res.Inventory, reg, sink)
			for _, e := range errs {
				dlog.Warnln(ctx, e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d inodes to %s (%d diagnostics, %d materialization errors)\n",
				len(res.Tree.PathsByInum), root, len(res.Diagnostics), len(errs))
			return nil
		},
	})
}
