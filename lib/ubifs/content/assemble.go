// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package content implements the Content Assembler of spec.md §4.6: it
// reconstructs a regular file's byte stream from its sparse, possibly
// compressed data blocks, and decodes symlink targets. Grounded on the
// teacher's btrfsitem file-extent handling (offset/length placement of
// each extent into a logical byte range) generalized from btrfs's
// variable-length extent-range arithmetic to spec.md's fixed-block-size
// arithmetic.
package content

import (
	"strings"
	"unicode/utf8"

	"github.com/ubifs-rec/ubifs-rec/lib/maps"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/inventory"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifserr"
)

// DefaultBlockSize is used when an inode has no observed data blocks at
// all (spec.md §4.6: "if none observed, B = 4096").
const DefaultBlockSize = 4096

// Result is the outcome of assembling one regular file's content.
type Result struct {
	Data     []byte
	Degraded bool
	Errors   []error
}

// BlockSize returns the logical block size B for inum: DefaultBlockSize,
// or the maximum observed data_len among its data blocks if that's
// larger (spec.md §4.6 step 2). A block's data_len is the length of that
// block's own payload, which is short (and so a poor estimate of the
// stride between block offsets) for any sparse or trailing block that
// isn't full-size — DefaultBlockSize is therefore a floor, not merely a
// fallback for the no-blocks-observed case, so placement still puts
// block i at DefaultBlockSize*i even when every observed block happens
// to be small.
func BlockSize(inv *inventory.Inventory, inum uint64) uint32 {
	max := uint32(DefaultBlockSize)
	for _, rec := range inv.DataBlocks[inum] {
		if rec.Size > max {
			max = rec.Size
		}
	}
	return max
}

// AssembleFile reconstructs the content of a regular-file inum, using reg
// as the decompression registry. declaredSize is inodes[inum].size.
func AssembleFile(reg *Registry, inv *inventory.Inventory, inum uint64, declaredSize uint64) Result {
	blockSize := uint64(BlockSize(inv, inum))
	byBlock := inv.DataBlocks[inum]

	buf := make([]byte, declaredSize)
	var res Result

	for _, idx := range sortedBlockIndices(byBlock) {
		rec := byBlock[idx]
		start := uint64(idx) * blockSize
		if start >= declaredSize {
			continue
		}

		payload, err := reg.Decompress(rec.ComprType, rec.Payload, int(blockSize))
		if err != nil {
			res.Degraded = true
			res.Errors = append(res.Errors, &ubifserr.DecompressionError{
				Inum:      inum,
				Block:     idx,
				ComprType: rec.ComprType,
				Err:       err,
			})
			continue
		}

		end := start + uint64(len(payload))
		if end > declaredSize {
			end = declaredSize
			payload = payload[:end-start]
		}
		copy(buf[start:end], payload)
	}

	res.Data = buf
	return res
}

func sortedBlockIndices(byBlock map[uint32]inventory.DataBlockRecord) []uint32 {
	return maps.SortedKeys(byBlock)
}

// AssembleSymlink decodes a symlink's target (spec.md §4.6): if the
// inode's inline_data is non-empty, it is the target (UTF-8, trailing NULs
// stripped); otherwise the target is assembled as a regular file and
// decoded the same way.
func AssembleSymlink(reg *Registry, inv *inventory.Inventory, inum uint64, ino inventory.InodeRecord) (string, error) {
	var raw []byte
	if len(ino.InlineData) > 0 {
		raw = ino.InlineData
	} else {
		res := AssembleFile(reg, inv, inum, ino.Size)
		raw = res.Data
	}
	raw = stripTrailingNULs(raw)
	if !utf8.Valid(raw) {
		return "", &ubifserr.DecodeError{Reason: errInvalidSymlinkUTF8}
	}
	return string(raw), nil
}

func stripTrailingNULs(b []byte) []byte {
	return []byte(strings.TrimRight(string(b), "\x00"))
}

var errInvalidSymlinkUTF8 = symlinkUTF8Error{}

type symlinkUTF8Error struct{}

func (symlinkUTF8Error) Error() string { return "symlink target is not valid UTF-8" }
