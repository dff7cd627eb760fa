// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package tree_test

import (
	"context"
	"io"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubifs-rec/ubifs-rec/lib/posixmode"
	"github.com/ubifs-rec/ubifs-rec/lib/textui"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/inventory"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/tree"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifsnode"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	return dlog.WithLogger(context.Background(), textui.NewLogger(io.Discard, dlog.LogLevelInfo))
}

func dirMode() uint32 { return uint32(posixmode.ModeFmtDir | 0o755) }
func regMode() uint32 { return uint32(posixmode.ModeFmtRegular | 0o644) }

func addDir(inv *inventory.Inventory, sqnum, inum uint64) {
	inv.Inodes[inum] = inventory.InodeRecord{Sqnum: sqnum, Mode: dirMode(), NLink: 2}
}

func addFile(inv *inventory.Inventory, sqnum, inum uint64) {
	inv.Inodes[inum] = inventory.InodeRecord{Sqnum: sqnum, Mode: regMode(), NLink: 1}
}

func addDent(inv *inventory.Inventory, sqnum, parent, target uint64, name string) {
	byName, ok := inv.DirEntries[parent]
	if !ok {
		byName = make(map[string]inventory.DirEntryRecord)
		inv.DirEntries[parent] = byName
	}
	byName[name] = inventory.DirEntryRecord{
		Sqnum:      sqnum,
		ParentInum: parent,
		TargetInum: target,
		Type:       ubifsnode.DentReg,
		Name:       name,
	}
}

func TestBuildSimpleTree(t *testing.T) {
	inv := inventory.New()
	addDir(inv, 1, tree.RootInum)
	addDir(inv, 2, 2)
	addFile(inv, 3, 3)
	addDent(inv, 10, tree.RootInum, 2, "sub")
	addDent(inv, 11, tree.RootInum, 3, "file.txt")
	addDent(inv, 12, 2, 3, "hardlink.txt")

	tr := tree.Build(testCtx(t), inv, 0)

	assert.Equal(t, []string{"/"}, tr.PathsByInum[tree.RootInum])
	assert.Equal(t, []string{"/sub"}, tr.PathsByInum[2])
	require.Contains(t, tr.PathsByInum, uint64(3))
	assert.ElementsMatch(t, []string{"/file.txt", "/sub/hardlink.txt"}, tr.PathsByInum[3])
	assert.Empty(t, tr.Warnings)
}

func TestBuildCycleDetected(t *testing.T) {
	inv := inventory.New()
	addDir(inv, 1, tree.RootInum)
	addDir(inv, 2, 2)
	addDent(inv, 10, tree.RootInum, 2, "a")
	addDent(inv, 11, 2, tree.RootInum, "loop")

	tr := tree.Build(testCtx(t), inv, 0)

	require.Len(t, tr.Warnings, 1)
	assert.Contains(t, tr.Warnings[0].Error(), "cycle detected")
	// the root is not re-walked, so it keeps exactly its one path
	assert.Equal(t, []string{"/"}, tr.PathsByInum[tree.RootInum])
}

func TestBuildOrphanEntry(t *testing.T) {
	inv := inventory.New()
	addDir(inv, 1, tree.RootInum)
	addDent(inv, 10, tree.RootInum, 99, "dangling")

	tr := tree.Build(testCtx(t), inv, 0)

	require.Len(t, tr.Warnings, 1)
	assert.Contains(t, tr.Warnings[0].Error(), "orphan dir entry")
	assert.NotContains(t, tr.PathsByInum, uint64(99))
}

func TestBuildPathTooDeep(t *testing.T) {
	inv := inventory.New()
	addDir(inv, 1, tree.RootInum)
	const depth = 5
	for i := uint64(0); i < depth; i++ {
		parent := tree.RootInum + i
		child := tree.RootInum + i + 1
		addDir(inv, 1, child)
		addDent(inv, uint64(10+i), parent, child, "d")
	}

	tr := tree.Build(testCtx(t), inv, 2)

	require.NotEmpty(t, tr.Warnings)
	assert.Contains(t, tr.Warnings[0].Error(), "path too deep")
}

func TestBuildMissingRoot(t *testing.T) {
	inv := inventory.New()
	tr := tree.Build(testCtx(t), inv, 0)
	assert.Empty(t, tr.PathsByInum)
	assert.Empty(t, tr.Warnings)
}
