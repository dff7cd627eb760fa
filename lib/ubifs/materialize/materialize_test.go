// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package materialize_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubifs-rec/ubifs-rec/lib/posixmode"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/content"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/inventory"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/materialize"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/tree"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifsnode"
)

func dirMode() uint32 { return uint32(posixmode.ModeFmtDir | 0o755) }
func regMode() uint32 { return uint32(posixmode.ModeFmtRegular | 0o644) }
func symMode() uint32 { return uint32(posixmode.ModeFmtSymlink | 0o777) }

func TestMaterializeToMemorySink(t *testing.T) {
	inv := inventory.New()
	inv.Inodes[tree.RootInum] = inventory.InodeRecord{Sqnum: 1, Mode: dirMode(), NLink: 3}
	inv.Inodes[2] = inventory.InodeRecord{Sqnum: 1, Mode: regMode(), Size: 5, NLink: 2}
	inv.Inodes[3] = inventory.InodeRecord{Sqnum: 1, Mode: symMode(), InlineData: []byte("target.txt")}

	inv.DirEntries[tree.RootInum] = map[string]inventory.DirEntryRecord{
		"hello.txt": {Sqnum: 1, ParentInum: tree.RootInum, TargetInum: 2, Type: ubifsnode.DentReg, Name: "hello.txt"},
		"link.txt":  {Sqnum: 1, ParentInum: tree.RootInum, TargetInum: 2, Type: ubifsnode.DentReg, Name: "link.txt"},
		"sym":       {Sqnum: 1, ParentInum: tree.RootInum, TargetInum: 3, Type: ubifsnode.DentSymlink, Name: "sym"},
	}
	inv.DataBlocks[2] = map[uint32]inventory.DataBlockRecord{
		0: {Inum: 2, BlockIndex: 0, Size: 5, ComprType: content.ComprNone, Payload: []byte("hello")},
	}

	ctx := context.Background()
	tr := tree.Build(ctx, inv, 0)
	sink := materialize.NewMemorySink()
	reg := content.DefaultRegistry()

	errs := materialize.Materialize(ctx, tr, inv, reg, sink)
	require.Empty(t, errs)

	root, ok := sink.Objects["/"]
	require.True(t, ok)
	assert.Equal(t, materialize.KindDirectory, root.Kind)

	hello, ok := sink.Objects["/hello.txt"]
	require.True(t, ok)
	assert.Equal(t, materialize.KindRegular, hello.Kind)
	assert.Equal(t, []byte("hello"), hello.Content)

	link, ok := sink.Objects["/link.txt"]
	require.True(t, ok)
	assert.Same(t, hello, link)

	sym, ok := sink.Objects["/sym"]
	require.True(t, ok)
	assert.Equal(t, materialize.KindSymlink, sym.Kind)
	assert.Equal(t, "target.txt", sym.Target)
}
