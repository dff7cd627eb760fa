// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package content_test

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/content"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/inventory"
)

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestAssembleFileSparseAndTruncate(t *testing.T) {
	inv := inventory.New()
	const inum = 42
	inv.DataBlocks[inum] = map[uint32]inventory.DataBlockRecord{
		0: {Inum: inum, BlockIndex: 0, Size: 4, ComprType: content.ComprNone, Payload: []byte("AAAA")},
		// block 1 is missing entirely: sparse gap, stays zero-filled.
		2: {Inum: inum, BlockIndex: 2, Size: 4, ComprType: content.ComprNone, Payload: []byte("CCCC")},
	}

	const declaredSize = 2*content.DefaultBlockSize + 2
	reg := content.DefaultRegistry()
	res := content.AssembleFile(reg, inv, inum, declaredSize)

	require.False(t, res.Degraded)
	expected := make([]byte, declaredSize)
	copy(expected[0:4], "AAAA")
	copy(expected[2*content.DefaultBlockSize:2*content.DefaultBlockSize+2], "CC")
	assert.Equal(t, expected, res.Data)
}

// TestAssembleFileBlockSizeFloor exercises spec.md §4.6's worked example
// S4 literally: an 8192-byte file whose only observed data block is
// block index 1 with a short 4-byte payload. The logical block size must
// floor at DefaultBlockSize (4096) rather than degenerate to the tiny
// observed payload size, so block 1 lands at byte offset 4096, not 4.
func TestAssembleFileBlockSizeFloor(t *testing.T) {
	inv := inventory.New()
	const inum = 4
	inv.DataBlocks[inum] = map[uint32]inventory.DataBlockRecord{
		1: {Inum: inum, BlockIndex: 1, Size: 4, ComprType: content.ComprNone, Payload: []byte("XXXX")},
	}

	require.EqualValues(t, content.DefaultBlockSize, content.BlockSize(inv, inum))

	const declaredSize = 8192
	reg := content.DefaultRegistry()
	res := content.AssembleFile(reg, inv, inum, declaredSize)

	require.False(t, res.Degraded)
	expected := make([]byte, declaredSize)
	copy(expected[content.DefaultBlockSize:content.DefaultBlockSize+4], "XXXX")
	assert.Equal(t, expected, res.Data)
}

func TestAssembleFileZlib(t *testing.T) {
	inv := inventory.New()
	const inum = 7
	plain := []byte("hello world")
	compressed := zlibCompress(t, plain)
	inv.DataBlocks[inum] = map[uint32]inventory.DataBlockRecord{
		0: {Inum: inum, BlockIndex: 0, Size: uint32(len(plain)), ComprType: content.ComprZlib, Payload: compressed},
	}

	reg := content.DefaultRegistry()
	res := content.AssembleFile(reg, inv, inum, uint64(len(plain)))

	require.False(t, res.Degraded)
	assert.Equal(t, plain, res.Data)
}

func TestAssembleFileDecompressionErrorDegrades(t *testing.T) {
	inv := inventory.New()
	const inum = 9
	inv.DataBlocks[inum] = map[uint32]inventory.DataBlockRecord{
		0: {Inum: inum, BlockIndex: 0, Size: 8, ComprType: content.ComprLZO, Payload: []byte("garbage!")},
	}

	reg := content.DefaultRegistry()
	res := content.AssembleFile(reg, inv, inum, 8)

	assert.True(t, res.Degraded)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, make([]byte, 8), res.Data)
}

func TestAssembleSymlinkInline(t *testing.T) {
	inv := inventory.New()
	reg := content.DefaultRegistry()
	ino := inventory.InodeRecord{InlineData: []byte("../target\x00\x00")}

	target, err := content.AssembleSymlink(reg, inv, 1, ino)
	require.NoError(t, err)
	assert.Equal(t, "../target", target)
}

func TestBlockSizeDefaultsWhenNoBlocksObserved(t *testing.T) {
	inv := inventory.New()
	assert.EqualValues(t, content.DefaultBlockSize, content.BlockSize(inv, 123))
}
