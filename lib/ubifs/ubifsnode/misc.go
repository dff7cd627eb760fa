// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package ubifsnode

import (
	"encoding/binary"
	"fmt"

	"github.com/ubifs-rec/ubifs-rec/lib/binstruct/binutil"
)

// The node types in this file are recognized and decoded (per spec.md §9's
// instruction that XENT/TRUN/ORPH/REF/PAD/SB/MST/CS still be decoded even
// though none currently affect reconstruction) but have no effect on the
// reconstructed tree. IDX_NODE is deliberately absent from this file: its
// upstream decoder is broken (spec.md §9), so the dispatch table in
// registry.go routes it straight to Unknown instead of attempting a
// dedicated layout.

// Xent is a decoded XENT_NODE (extended-attribute directory entry).
// Structurally similar to Dent; grounded on explorer.py's UBIFSXentNode.
type Xent struct {
	Inum     uint64
	Type     uint8
	NameHash uint32
	Name     []byte
}

var _ Node = Xent{}

func (Xent) nodeType() NodeType { return TypeXent }

func (n *Xent) UnmarshalBinary(dat []byte) (int, error) {
	const fixed = 16
	if err := binutil.NeedNBytes(dat, fixed); err != nil {
		return 0, fmt.Errorf("xent_node: %w", err)
	}
	le := binary.LittleEndian
	n.Inum = le.Uint64(dat[0:8])
	n.Type = dat[8]
	nlen := dat[9]
	// dat[10:12] is padding.
	n.NameHash = le.Uint32(dat[12:16])
	if err := binutil.NeedNBytes(dat[fixed:], int(nlen)); err != nil {
		return fixed, fmt.Errorf("xent_node: name: %w", err)
	}
	n.Name = append([]byte(nil), dat[fixed:fixed+int(nlen)]...)
	return fixed + int(nlen), nil
}

func (n Xent) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 16)
	le := binary.LittleEndian
	le.PutUint64(buf[0:8], n.Inum)
	buf[8] = n.Type
	buf[9] = byte(len(n.Name))
	le.PutUint32(buf[12:16], n.NameHash)
	return append(buf, n.Name...), nil
}

// Trun is a decoded TRUN_NODE (file-truncation record): inum, old_size,
// new_size.
type Trun struct {
	Inum    uint64
	OldSize uint64
	NewSize uint64
}

var _ Node = Trun{}

func (Trun) nodeType() NodeType { return TypeTrun }

func (n *Trun) UnmarshalBinary(dat []byte) (int, error) {
	const fixed = 24
	if err := binutil.NeedNBytes(dat, fixed); err != nil {
		return 0, fmt.Errorf("trun_node: %w", err)
	}
	le := binary.LittleEndian
	n.Inum = le.Uint64(dat[0:8])
	n.OldSize = le.Uint64(dat[8:16])
	n.NewSize = le.Uint64(dat[16:24])
	return fixed, nil
}

func (n Trun) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 24)
	le := binary.LittleEndian
	le.PutUint64(buf[0:8], n.Inum)
	le.PutUint64(buf[8:16], n.OldSize)
	le.PutUint64(buf[16:24], n.NewSize)
	return buf, nil
}

// Pad is a decoded PAD_NODE: a pad_len field plus that many bytes of fill,
// used by UBIFS to pad unused space in a logical erase block.
type Pad struct {
	PadLen uint32
	Fill   []byte
}

var _ Node = Pad{}

func (Pad) nodeType() NodeType { return TypePad }

func (n *Pad) UnmarshalBinary(dat []byte) (int, error) {
	if err := binutil.NeedNBytes(dat, 4); err != nil {
		return 0, fmt.Errorf("pad_node: %w", err)
	}
	n.PadLen = binary.LittleEndian.Uint32(dat[0:4])
	n.Fill = append([]byte(nil), dat[4:]...)
	return len(dat), nil
}

func (n Pad) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf[0:4], n.PadLen)
	return append(buf, n.Fill...), nil
}

// SB is a decoded SB_NODE (superblock): filesystem-wide parameters.
// Inert for reconstruction (spec.md §1: no wandering-tree/commit logic),
// decoded for completeness and forensic inspection (scan --dump-raw).
type SB struct {
	KeyHash      uint8
	KeyFmt       uint8
	Flags        uint16
	MinIOSize    uint32
	LEBSize      uint32
	LEBCnt       uint32
	MaxLEBCnt    uint32
	LogLEBs      uint32
	LPTLEBs      uint32
	OrphLEBs     uint32
	JHeadCnt     uint32
	Fanout       uint32
	LSaveCnt     uint32
	FmtVersion   uint32
	DefaultCompr uint16
	RPUID        uint32
	RPGID        uint32
	RPSize       uint64
	TimeGran     uint32
	UUID         [16]byte
	Label        []byte
}

var _ Node = SB{}

func (SB) nodeType() NodeType { return TypeSB }

func (n *SB) UnmarshalBinary(dat []byte) (int, error) {
	const fixed = 88
	if err := binutil.NeedNBytes(dat, fixed); err != nil {
		return 0, fmt.Errorf("sb_node: %w", err)
	}
	le := binary.LittleEndian
	n.KeyHash = dat[0]
	n.KeyFmt = dat[1]
	n.Flags = le.Uint16(dat[2:4])
	n.MinIOSize = le.Uint32(dat[4:8])
	n.LEBSize = le.Uint32(dat[8:12])
	n.LEBCnt = le.Uint32(dat[12:16])
	n.MaxLEBCnt = le.Uint32(dat[16:20])
	n.LogLEBs = le.Uint32(dat[20:24])
	n.LPTLEBs = le.Uint32(dat[24:28])
	n.OrphLEBs = le.Uint32(dat[28:32])
	n.JHeadCnt = le.Uint32(dat[32:36])
	n.Fanout = le.Uint32(dat[36:40])
	n.LSaveCnt = le.Uint32(dat[40:44])
	n.FmtVersion = le.Uint32(dat[44:48])
	n.DefaultCompr = le.Uint16(dat[48:50])
	// dat[50:52] is padding.
	n.RPUID = le.Uint32(dat[52:56])
	n.RPGID = le.Uint32(dat[56:60])
	n.RPSize = le.Uint64(dat[60:68])
	n.TimeGran = le.Uint32(dat[68:72])
	copy(n.UUID[:], dat[72:88])
	n.Label = append([]byte(nil), dat[fixed:]...)
	return len(dat), nil
}

func (n SB) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 88)
	le := binary.LittleEndian
	buf[0] = n.KeyHash
	buf[1] = n.KeyFmt
	le.PutUint16(buf[2:4], n.Flags)
	le.PutUint32(buf[4:8], n.MinIOSize)
	le.PutUint32(buf[8:12], n.LEBSize)
	le.PutUint32(buf[12:16], n.LEBCnt)
	le.PutUint32(buf[16:20], n.MaxLEBCnt)
	le.PutUint32(buf[20:24], n.LogLEBs)
	le.PutUint32(buf[24:28], n.LPTLEBs)
	le.PutUint32(buf[28:32], n.OrphLEBs)
	le.PutUint32(buf[32:36], n.JHeadCnt)
	le.PutUint32(buf[36:40], n.Fanout)
	le.PutUint32(buf[40:44], n.LSaveCnt)
	le.PutUint32(buf[44:48], n.FmtVersion)
	le.PutUint16(buf[48:50], n.DefaultCompr)
	le.PutUint32(buf[52:56], n.RPUID)
	le.PutUint32(buf[56:60], n.RPGID)
	le.PutUint64(buf[60:68], n.RPSize)
	le.PutUint32(buf[68:72], n.TimeGran)
	copy(buf[72:88], n.UUID[:])
	return append(buf, n.Label...), nil
}

// Mst is a decoded MST_NODE (master node): bookkeeping pointers into the
// B+-tree index and log, which this reconstructor never traverses
// (spec.md §1 Non-goals). Decoded for completeness only.
type Mst struct {
	HighestInum uint64
	CmtNo       uint64
	LogLnum     uint32
	RootLnum    uint32
	RootOffs    uint32
	RootLen     uint32
	GCLnum      uint32
	IheadLnum   uint32
	IheadOffs   uint32
	IndexSize   uint64
}

var _ Node = Mst{}

func (Mst) nodeType() NodeType { return TypeMst }

func (n *Mst) UnmarshalBinary(dat []byte) (int, error) {
	const fixed = 52
	if err := binutil.NeedNBytes(dat, fixed); err != nil {
		return 0, fmt.Errorf("mst_node: %w", err)
	}
	le := binary.LittleEndian
	n.HighestInum = le.Uint64(dat[0:8])
	n.CmtNo = le.Uint64(dat[8:16])
	n.LogLnum = le.Uint32(dat[16:20])
	n.RootLnum = le.Uint32(dat[20:24])
	n.RootOffs = le.Uint32(dat[24:28])
	n.RootLen = le.Uint32(dat[28:32])
	n.GCLnum = le.Uint32(dat[32:36])
	n.IheadLnum = le.Uint32(dat[36:40])
	n.IheadOffs = le.Uint32(dat[40:44])
	n.IndexSize = le.Uint64(dat[44:52])
	return len(dat), nil
}

func (n Mst) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 52)
	le := binary.LittleEndian
	le.PutUint64(buf[0:8], n.HighestInum)
	le.PutUint64(buf[8:16], n.CmtNo)
	le.PutUint32(buf[16:20], n.LogLnum)
	le.PutUint32(buf[20:24], n.RootLnum)
	le.PutUint32(buf[24:28], n.RootOffs)
	le.PutUint32(buf[28:32], n.RootLen)
	le.PutUint32(buf[32:36], n.GCLnum)
	le.PutUint32(buf[36:40], n.IheadLnum)
	le.PutUint32(buf[40:44], n.IheadOffs)
	le.PutUint64(buf[44:52], n.IndexSize)
	return buf, nil
}

// Ref is a decoded REF_NODE (journal log reference): offs, lnum, jhead.
type Ref struct {
	Offs  uint32
	Lnum  uint32
	JHead uint8
}

var _ Node = Ref{}

func (Ref) nodeType() NodeType { return TypeRef }

func (n *Ref) UnmarshalBinary(dat []byte) (int, error) {
	const fixed = 12
	if err := binutil.NeedNBytes(dat, fixed); err != nil {
		return 0, fmt.Errorf("ref_node: %w", err)
	}
	le := binary.LittleEndian
	n.Offs = le.Uint32(dat[0:4])
	n.Lnum = le.Uint32(dat[4:8])
	n.JHead = dat[8]
	return fixed, nil
}

func (n Ref) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 12)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], n.Offs)
	le.PutUint32(buf[4:8], n.Lnum)
	buf[8] = n.JHead
	return buf, nil
}

// CS is a decoded CS_NODE (commit-start marker). Parsed-and-discarded: a
// no-op input per spec.md §9.
type CS struct {
	CmtNo   uint64
	LogHash [32]byte
}

var _ Node = CS{}

func (CS) nodeType() NodeType { return TypeCS }

func (n *CS) UnmarshalBinary(dat []byte) (int, error) {
	const fixed = 40
	if err := binutil.NeedNBytes(dat, fixed); err != nil {
		return 0, fmt.Errorf("cs_node: %w", err)
	}
	n.CmtNo = binary.LittleEndian.Uint64(dat[0:8])
	copy(n.LogHash[:], dat[8:40])
	return len(dat), nil
}

func (n CS) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 40)
	binary.LittleEndian.PutUint64(buf[0:8], n.CmtNo)
	copy(buf[8:40], n.LogHash[:])
	return buf, nil
}

// Orph is a decoded ORPH_NODE: a list of inode numbers awaiting deletion.
type Orph struct {
	CmtNo   uint32
	OrphCnt uint32
	Inums   []uint64
}

var _ Node = Orph{}

func (Orph) nodeType() NodeType { return TypeOrph }

func (n *Orph) UnmarshalBinary(dat []byte) (int, error) {
	const fixed = 8
	if err := binutil.NeedNBytes(dat, fixed); err != nil {
		return 0, fmt.Errorf("orph_node: %w", err)
	}
	le := binary.LittleEndian
	n.CmtNo = le.Uint32(dat[0:4])
	n.OrphCnt = le.Uint32(dat[4:8])
	rest := dat[fixed:]
	count := len(rest) / 8
	n.Inums = make([]uint64, 0, count)
	for i := 0; i < count; i++ {
		n.Inums = append(n.Inums, le.Uint64(rest[i*8:i*8+8]))
	}
	return len(dat), nil
}

func (n Orph) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 8+8*len(n.Inums))
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], n.CmtNo)
	le.PutUint32(buf[4:8], n.OrphCnt)
	for i, inum := range n.Inums {
		le.PutUint64(buf[8+i*8:16+i*8], inum)
	}
	return buf, nil
}
