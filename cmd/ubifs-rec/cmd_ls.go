// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"github.com/ubifs-rec/ubifs-rec/lib/maps"
	"github.com/ubifs-rec/ubifs-rec/lib/posixmode"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/inventory"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/reconstruct"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/tree"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifsnode"
)

const (
	tS = "    "
	tl = "│   "
	tT = "├── "
	tL = "└── "
)

func printLsLine(out io.Writer, prefix string, isLast bool, name, text string) {
	branch := tT
	if isLast {
		branch = tL
	}
	_, _ = io.WriteString(out, prefix)
	_, _ = io.WriteString(out, branch)
	fmt.Fprintf(out, "%s %s\n", name, text)
}

func fmtInode(ino inventory.InodeRecord) string {
	return fmt.Sprintf("ino mode=%s size=%d nlink=%d flags=%s",
		posixmode.Mode(ino.Mode), ino.Size, ino.NLink, ubifsnode.FormatFlags(ino.Flags))
}

func printLsTree(out io.Writer, inv *inventory.Inventory, t *tree.Tree, prefix string, isLast bool, name string, inum uint64) {
	ino, ok := inv.Inodes[inum]
	if !ok {
		printLsLine(out, prefix, isLast, name, "err=missing inode")
		return
	}
	printLsLine(out, prefix, isLast, name, fmtInode(ino))

	children := t.ChildrenByInum[inum]
	if len(children) == 0 {
		return
	}
	childPrefix := prefix + tS
	if !isLast {
		childPrefix = prefix + tl
	}
	names := maps.SortedKeys(children)
	for i, childName := range names {
		printLsTree(out, inv, t, childPrefix, i == len(names)-1, childName, children[childName])
	}
}

func init() {
	cmd := cobra.Command{
		Use:   "ls IMAGE",
		Short: "Print the reconstructed directory tree",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(1)),
	}

	subcommands = append(subcommands, subcommand{
		Command: cmd,
		RunE: func(ctx context.Context, imagePath string, cmd *cobra.Command, _ []string) error {
			res, _, err := runReconstruct(ctx, imagePath, reconstruct.Options{})
			if err != nil {
				if res == nil {
					return err
				}
				dlog.Errorf(ctx, "scan ended early: %v; listing partial results", err)
			}
			for _, diag := range res.Diagnostics {
				dlog.Debugf(ctx, "%v", diag)
			}

			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush()
			fmt.Fprintln(out, "/")
			children := res.Tree.ChildrenByInum[tree.RootInum]
			names := maps.SortedKeys(children)
			for i, name := range names {
				printLsTree(out, res.Inventory, res.Tree, "", i == len(names)-1, name, children[name])
			}
			return nil
		},
	})
}
