// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package materialize

import (
	"context"
	"sort"

	"github.com/datawire/dlib/dlog"

	"github.com/ubifs-rec/ubifs-rec/lib/posixmode"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/content"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/inventory"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/tree"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifserr"
)

// Materialize walks t (built from inv) and drives sink through three
// ordered passes: directories first, then each regular file at its
// canonical path followed right away by its additional hard-link paths
// (written as copies where the sink cannot link), then symlinks. Sink
// failures are collected as *ubifserr.MaterializationError and
// decompression failures as the *ubifserr.DecompressionError values that
// content.AssembleFile reports, rather than aborting the run — "the run
// continues with remaining paths" (spec.md §7).
func Materialize(ctx context.Context, t *tree.Tree, inv *inventory.Inventory, reg *content.Registry, sink Sink) []error {
	var errs []error
	record := func(path, op string, err error) {
		if err == nil {
			return
		}
		wrapped := &ubifserr.MaterializationError{Path: path, Op: op, Err: err}
		errs = append(errs, wrapped)
		dlog.Warnln(ctx, wrapped)
	}

	for _, inum := range sortedInums(t) {
		ino, ok := inv.Inodes[inum]
		if !ok {
			continue
		}
		mode := posixmode.Mode(ino.Mode)
		if !mode.IsDir() {
			continue
		}
		canonical := t.PathsByInum[inum][0]
		record(canonical, "mkdir_p", sink.MkdirP(ctx, canonical))
	}

	for _, inum := range sortedInums(t) {
		ino, ok := inv.Inodes[inum]
		if !ok {
			continue
		}
		mode := posixmode.Mode(ino.Mode)
		if !mode.IsRegular() {
			continue
		}
		canonical := t.PathsByInum[inum][0]

		res := content.AssembleFile(reg, inv, inum, ino.Size)
		for _, derr := range res.Errors {
			errs = append(errs, derr)
			dlog.Warnln(ctx, derr)
		}
		record(canonical, "write_file", sink.WriteFile(ctx, canonical, res.Data))
		record(canonical, "set_mode", sink.SetMode(ctx, canonical, uint32(mode.Perm())))
		record(canonical, "set_times", sink.SetTimes(ctx, canonical, ino.ATimeSec, ino.MTimeSec))

		for _, linkPath := range t.PathsByInum[inum][1:] {
			if err := sink.CreateHardlink(ctx, linkPath, canonical); err != nil {
				dlog.Debugf(ctx, "hardlink %q -> %q unsupported, falling back to copy: %v", linkPath, canonical, err)
				record(linkPath, "write_file", sink.WriteFile(ctx, linkPath, res.Data))
				record(linkPath, "set_mode", sink.SetMode(ctx, linkPath, uint32(mode.Perm())))
				record(linkPath, "set_times", sink.SetTimes(ctx, linkPath, ino.ATimeSec, ino.MTimeSec))
			}
		}
	}

	for _, inum := range sortedInums(t) {
		ino, ok := inv.Inodes[inum]
		if !ok {
			continue
		}
		mode := posixmode.Mode(ino.Mode)
		if !mode.IsSymlink() {
			continue
		}
		canonical := t.PathsByInum[inum][0]
		target, err := content.AssembleSymlink(reg, inv, inum, ino)
		if err != nil {
			record(canonical, "create_symlink", err)
			continue
		}
		record(canonical, "create_symlink", sink.CreateSymlink(ctx, canonical, target))
	}

	return errs
}

func sortedInums(t *tree.Tree) []uint64 {
	inums := make([]uint64, 0, len(t.PathsByInum))
	for inum := range t.PathsByInum {
		inums = append(inums, inum)
	}
	sort.Slice(inums, func(i, j int) bool {
		return t.PathsByInum[inums[i]][0] < t.PathsByInum[inums[j]][0]
	})
	return inums
}
