// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package inventory builds the three keyed, append-only collections of
// spec.md §4.4 from the decoded node stream: inodes by inode number,
// directory entries grouped by parent inode, and data blocks grouped by
// inode. Conflicting records for the same key are resolved by keeping the
// one with the greater sqnum — the UBIFS log permits updates in place,
// and the higher sequence number wins, independent of scan/read order
// (spec.md §5: "Inventory resolution depends only on sqnum, not on
// observation order").
package inventory

import (
	"context"

	"github.com/datawire/dlib/dlog"

	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifsnode"
)

// InodeRecord is the resolved, immutable view of one inode (spec.md §3).
type InodeRecord struct {
	Sqnum      uint64
	Size       uint64
	Mode       uint32
	UID, GID   uint32
	ATimeSec   uint64
	CTimeSec   uint64
	MTimeSec   uint64
	ATimeNs    uint32
	CTimeNs    uint32
	MTimeNs    uint32
	NLink      uint32
	Flags      uint32
	ComprType  uint16
	InlineData []byte
}

// DirEntryRecord is the resolved view of one directory entry (spec.md §3),
// keyed by (ParentInum, Name) in the owning Inventory.
type DirEntryRecord struct {
	Sqnum      uint64
	ParentInum uint64
	TargetInum uint64
	Type       ubifsnode.DentType
	Name       string
}

// DataBlockRecord is the resolved view of one data block (spec.md §3),
// keyed by (Inum, BlockIndex) in the owning Inventory.
type DataBlockRecord struct {
	Sqnum      uint64
	Inum       uint64
	BlockIndex uint32
	Size       uint32
	ComprType  uint16
	Payload    []byte
}

// Inventory holds the three keyed collections built from a node stream.
type Inventory struct {
	Inodes     map[uint64]InodeRecord
	DirEntries map[uint64]map[string]DirEntryRecord  // parent_inum -> name -> entry
	DataBlocks map[uint64]map[uint32]DataBlockRecord // inum -> block_index -> block
}

// New returns an empty Inventory ready to be fed via Observe.
func New() *Inventory {
	return &Inventory{
		Inodes:     make(map[uint64]InodeRecord),
		DirEntries: make(map[uint64]map[string]DirEntryRecord),
		DataBlocks: make(map[uint64]map[uint32]DataBlockRecord),
	}
}

// Observe folds one decoded node into the inventory, applying
// sqnum-dominance on key conflicts. sqnum is the node's common-header
// sequence number (not necessarily the node's own internal creat_sqnum
// field, which some payloads also carry separately). Non-INO/DENT/DATA
// nodes are no-ops here — the inventory only models the three record
// kinds spec.md §4.4 names.
func (inv *Inventory) Observe(ctx context.Context, sqnum uint64, node ubifsnode.Node) {
	switch n := node.(type) {
	case ubifsnode.Ino:
		inv.observeIno(sqnum, n)
	case ubifsnode.Dent:
		inv.observeDent(ctx, sqnum, n)
	case ubifsnode.Data:
		inv.observeData(sqnum, n)
	}
}

func (inv *Inventory) observeIno(sqnum uint64, n ubifsnode.Ino) {
	inum := uint64(n.Inum)
	if existing, ok := inv.Inodes[inum]; ok && existing.Sqnum >= sqnum {
		return
	}
	inv.Inodes[inum] = InodeRecord{
		Sqnum:      sqnum,
		Size:       n.Size,
		Mode:       uint32(n.Mode),
		UID:        n.UID,
		GID:        n.GID,
		ATimeSec:   n.ATimeSec,
		CTimeSec:   n.CTimeSec,
		MTimeSec:   n.MTimeSec,
		ATimeNs:    n.ATimeNs,
		CTimeNs:    n.CTimeNs,
		MTimeNs:    n.MTimeNs,
		NLink:      n.NLink,
		Flags:      n.Flags,
		ComprType:  n.ComprType,
		InlineData: n.InlineData,
	}
}

func (inv *Inventory) observeDent(ctx context.Context, sqnum uint64, n ubifsnode.Dent) {
	if n.IsDotOrDotDot() {
		return
	}
	parent := uint64(n.KeyInum)
	name := string(n.Name)

	byName, ok := inv.DirEntries[parent]
	if !ok {
		byName = make(map[string]DirEntryRecord)
		inv.DirEntries[parent] = byName
	}
	if existing, ok := byName[name]; ok && existing.Sqnum >= sqnum {
		return
	}

	if n.Inum == 0 {
		// target_inum == 0 is an unlink: remove the prior entry for
		// this name, if any (spec.md §4.4).
		delete(byName, name)
		dlog.Debugf(ctx, "unlink: parent=%d name=%q", parent, name)
		return
	}

	byName[name] = DirEntryRecord{
		Sqnum:      sqnum,
		ParentInum: parent,
		TargetInum: n.Inum,
		Type:       n.Type,
		Name:       name,
	}
}

func (inv *Inventory) observeData(sqnum uint64, n ubifsnode.Data) {
	inum := uint64(n.Inum)
	byBlock, ok := inv.DataBlocks[inum]
	if !ok {
		byBlock = make(map[uint32]DataBlockRecord)
		inv.DataBlocks[inum] = byBlock
	}
	if existing, ok := byBlock[n.Block]; ok && existing.Sqnum >= sqnum {
		return
	}
	byBlock[n.Block] = DataBlockRecord{
		Sqnum:      sqnum,
		Inum:       inum,
		BlockIndex: n.Block,
		Size:       n.Size,
		ComprType:  n.ComprType,
		Payload:    n.Payload,
	}
}

// OrphanDataInums returns inums present in DataBlocks but absent from
// Inodes (spec.md §7 OrphanData).
func (inv *Inventory) OrphanDataInums() []uint64 {
	var out []uint64
	for inum := range inv.DataBlocks {
		if _, ok := inv.Inodes[inum]; !ok {
			out = append(out, inum)
		}
	}
	return out
}
