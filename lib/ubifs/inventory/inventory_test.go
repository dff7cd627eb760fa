// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package inventory_test

import (
	"context"
	"io"
	"testing"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubifs-rec/ubifs-rec/lib/textui"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/inventory"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifsnode"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	return dlog.WithLogger(context.Background(), textui.NewLogger(io.Discard, dlog.LogLevelInfo))
}

func TestObserveInoHigherSqnumWins(t *testing.T) {
	ctx := testCtx(t)
	inv := inventory.New()

	inv.Observe(ctx, 5, ubifsnode.Ino{Inum: 7, Size: 100})
	inv.Observe(ctx, 3, ubifsnode.Ino{Inum: 7, Size: 999}) // lower sqnum, must lose
	inv.Observe(ctx, 10, ubifsnode.Ino{Inum: 7, Size: 200}) // higher sqnum, must win

	require.Contains(t, inv.Inodes, uint64(7))
	assert.EqualValues(t, 200, inv.Inodes[7].Size)
	assert.EqualValues(t, 10, inv.Inodes[7].Sqnum)
}

func TestObserveInoEqualSqnumKeepsExisting(t *testing.T) {
	ctx := testCtx(t)
	inv := inventory.New()

	inv.Observe(ctx, 5, ubifsnode.Ino{Inum: 7, Size: 100})
	inv.Observe(ctx, 5, ubifsnode.Ino{Inum: 7, Size: 999})

	assert.EqualValues(t, 100, inv.Inodes[7].Size, "a duplicate at the same sqnum must not displace the existing record")
}

func TestObserveDentHigherSqnumWins(t *testing.T) {
	ctx := testCtx(t)
	inv := inventory.New()

	inv.Observe(ctx, 1, ubifsnode.Dent{KeyInum: 1, Inum: 10, Type: ubifsnode.DentReg, Name: []byte("a.txt")})
	inv.Observe(ctx, 2, ubifsnode.Dent{KeyInum: 1, Inum: 20, Type: ubifsnode.DentReg, Name: []byte("a.txt")})

	entry, ok := inv.DirEntries[1]["a.txt"]
	require.True(t, ok)
	assert.EqualValues(t, 20, entry.TargetInum)
	assert.EqualValues(t, 2, entry.Sqnum)
}

func TestObserveDentLowerSqnumIgnored(t *testing.T) {
	ctx := testCtx(t)
	inv := inventory.New()

	inv.Observe(ctx, 5, ubifsnode.Dent{KeyInum: 1, Inum: 20, Type: ubifsnode.DentReg, Name: []byte("a.txt")})
	inv.Observe(ctx, 2, ubifsnode.Dent{KeyInum: 1, Inum: 999, Type: ubifsnode.DentReg, Name: []byte("a.txt")})

	entry, ok := inv.DirEntries[1]["a.txt"]
	require.True(t, ok)
	assert.EqualValues(t, 20, entry.TargetInum)
}

func TestObserveDentUnlinkRemovesEntry(t *testing.T) {
	ctx := testCtx(t)
	inv := inventory.New()

	inv.Observe(ctx, 1, ubifsnode.Dent{KeyInum: 1, Inum: 10, Type: ubifsnode.DentReg, Name: []byte("a.txt")})
	require.Contains(t, inv.DirEntries[1], "a.txt")

	inv.Observe(ctx, 2, ubifsnode.Dent{KeyInum: 1, Inum: 0, Name: []byte("a.txt")}) // target_inum==0: unlink
	assert.NotContains(t, inv.DirEntries[1], "a.txt")
}

func TestObserveDentUnlinkAtLowerSqnumIgnored(t *testing.T) {
	ctx := testCtx(t)
	inv := inventory.New()

	inv.Observe(ctx, 5, ubifsnode.Dent{KeyInum: 1, Inum: 10, Type: ubifsnode.DentReg, Name: []byte("a.txt")})
	inv.Observe(ctx, 1, ubifsnode.Dent{KeyInum: 1, Inum: 0, Name: []byte("a.txt")}) // stale unlink, must not apply

	entry, ok := inv.DirEntries[1]["a.txt"]
	require.True(t, ok, "a stale (lower-sqnum) unlink must not remove a newer dentry")
	assert.EqualValues(t, 10, entry.TargetInum)
}

func TestObserveDentSkipsDotAndDotDot(t *testing.T) {
	ctx := testCtx(t)
	inv := inventory.New()

	inv.Observe(ctx, 1, ubifsnode.Dent{KeyInum: 5, Inum: 5, Type: ubifsnode.DentDir, Name: []byte(".")})
	inv.Observe(ctx, 1, ubifsnode.Dent{KeyInum: 5, Inum: 1, Type: ubifsnode.DentDir, Name: []byte("..")})

	assert.Empty(t, inv.DirEntries[5])
}

func TestObserveDataHigherSqnumWins(t *testing.T) {
	ctx := testCtx(t)
	inv := inventory.New()

	inv.Observe(ctx, 1, ubifsnode.Data{Inum: 4, Block: 0, Size: 4, Payload: []byte("AAAA")})
	inv.Observe(ctx, 9, ubifsnode.Data{Inum: 4, Block: 0, Size: 4, Payload: []byte("BBBB")})

	rec, ok := inv.DataBlocks[4][0]
	require.True(t, ok)
	assert.Equal(t, []byte("BBBB"), rec.Payload)
	assert.EqualValues(t, 9, rec.Sqnum)
}

func TestObserveDataLowerSqnumIgnored(t *testing.T) {
	ctx := testCtx(t)
	inv := inventory.New()

	inv.Observe(ctx, 9, ubifsnode.Data{Inum: 4, Block: 0, Size: 4, Payload: []byte("BBBB")})
	inv.Observe(ctx, 1, ubifsnode.Data{Inum: 4, Block: 0, Size: 4, Payload: []byte("AAAA")})

	rec := inv.DataBlocks[4][0]
	assert.Equal(t, []byte("BBBB"), rec.Payload)
}

func TestOrphanDataInums(t *testing.T) {
	ctx := testCtx(t)
	inv := inventory.New()

	inv.Observe(ctx, 1, ubifsnode.Ino{Inum: 4, Size: 4})
	inv.Observe(ctx, 1, ubifsnode.Data{Inum: 4, Block: 0, Size: 4, Payload: []byte("AAAA")})
	inv.Observe(ctx, 1, ubifsnode.Data{Inum: 99, Block: 0, Size: 4, Payload: []byte("ZZZZ")}) // no inode 99

	assert.Equal(t, []uint64{99}, inv.OrphanDataInums())
}
