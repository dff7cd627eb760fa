// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"sync/atomic"

	"github.com/datawire/dlib/dcontext"
	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/spf13/cobra"

	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/content"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/materialize"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/reconstruct"
)

func fuseMount(ctx context.Context, mountpoint string, server fuse.Server, cfg *fuse.MountConfig) error {
	grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
		ShutdownOnNonError: true,
	})
	mounted := uint32(1)
	grp.Go("unmount", func(ctx context.Context) error {
		<-ctx.Done()
		var err error
		var gotNil bool
		for atomic.LoadUint32(&mounted) != 0 {
			if _err := fuse.Unmount(mountpoint); _err == nil {
				gotNil = true
			} else if !gotNil {
				err = _err
			}
		}
		if gotNil {
			return nil
		}
		return err
	})
	grp.Go("mount", func(ctx context.Context) error {
		defer atomic.StoreUint32(&mounted, 0)

		cfg.OpContext = ctx
		cfg.ErrorLogger = dlog.StdLogger(ctx, dlog.LogLevelError)
		cfg.DebugLogger = dlog.StdLogger(ctx, dlog.LogLevelDebug)

		mountHandle, err := fuse.Mount(mountpoint, server, cfg)
		if err != nil {
			return err
		}
		dlog.Infof(ctx, "mounted %q", mountpoint)
		return mountHandle.Join(dcontext.HardContext(ctx))
	})
	return grp.Wait()
}

func init() {
	cmd := cobra.Command{
		Use:   "mount IMAGE MOUNTPOINT",
		Short: "Mount the reconstructed filesystem read-only via FUSE",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(2)),
	}

	subcommands = append(subcommands, subcommand{
		Command: cmd,
		RunE: func(ctx context.Context, imagePath string, cmd *cobra.Command, args []string) error {
			mountpoint := args[0]

			res, _, err := runReconstruct(ctx, imagePath, reconstruct.Options{})
			if err != nil {
				if res == nil {
					return err
				}
				dlog.Errorf(ctx, "scan ended early: %v; mounting partial results read-only", err)
			}
			for _, diag := range res.Diagnostics {
				dlog.Warnln(ctx, diag)
			}

			reg := content.DefaultRegistry()
			sink := materialize.NewFuseSink(res.Tree, res.Inventory, reg)
			server := fuseutil.NewFileSystemServer(sink)

			return fuseMount(ctx, mountpoint, server, &fuse.MountConfig{
				FSName:   imagePath,
				Subtype:  "ubifs-rec",
				ReadOnly: true,
				Options: map[string]string{
					"allow_other": "",
				},
			})
		},
	})
}
