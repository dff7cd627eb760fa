// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package materialize_test

import (
	"context"
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/content"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/inventory"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/materialize"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/tree"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifsnode"
)

func TestFuseSinkLookUpAndReadFile(t *testing.T) {
	inv := inventory.New()
	inv.Inodes[tree.RootInum] = inventory.InodeRecord{Sqnum: 1, Mode: dirMode(), NLink: 2}
	inv.Inodes[2] = inventory.InodeRecord{Sqnum: 1, Mode: regMode(), Size: 3, NLink: 1}
	inv.DirEntries[tree.RootInum] = map[string]inventory.DirEntryRecord{
		"a.txt": {Sqnum: 1, ParentInum: tree.RootInum, TargetInum: 2, Type: ubifsnode.DentReg, Name: "a.txt"},
	}
	inv.DataBlocks[2] = map[uint32]inventory.DataBlockRecord{
		0: {Inum: 2, BlockIndex: 0, Size: 3, ComprType: content.ComprNone, Payload: []byte("abc")},
	}

	ctx := context.Background()
	tr := tree.Build(ctx, inv, 0)
	reg := content.DefaultRegistry()
	fs := materialize.NewFuseSink(tr, inv, reg)

	lookup := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "a.txt"}
	require.NoError(t, fs.LookUpInode(ctx, lookup))
	assert.EqualValues(t, 2, lookup.Entry.Child)

	openOp := &fuseops.OpenFileOp{Inode: fuseops.InodeID(2)}
	require.NoError(t, fs.OpenFile(ctx, openOp))

	readOp := &fuseops.ReadFileOp{
		Inode:  fuseops.InodeID(2),
		Handle: openOp.Handle,
		Offset: 0,
		Size:   3,
		Dst:    make([]byte, 3),
	}
	require.NoError(t, fs.ReadFile(ctx, readOp))
	assert.Equal(t, 3, readOp.BytesRead)
	assert.Equal(t, []byte("abc"), readOp.Dst)
}
