// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package ubifsnode

import (
	"encoding/binary"
	"fmt"

	"github.com/ubifs-rec/ubifs-rec/lib/binstruct/binutil"
	"github.com/ubifs-rec/ubifs-rec/lib/posixmode"
)

// inoStubLen is the size of the mandatory stub prefix
// (inum, block, key_tail, creat_sqnum, size): the minimum an INO_NODE
// payload must have for anything to be decoded at all.
const inoStubLen = 32

// inoFullPrefixLen is the size of the "full" fixed prefix through the mode
// field (inum..mode). Per the testable boundary in spec.md §8 property 10,
// a payload of exactly this length decodes with zero trailing inline data;
// one byte more yields one byte of inline data. See DESIGN.md for how this
// reconciles with the longer field list spec.md §4.1 enumerates for
// flags/data_len/xattr_*/compr_type: those fields are read only when a full
// additional inoExtLen bytes are present beyond inoFullPrefixLen, and any
// shorter remainder is exposed directly as InlineData instead.
const inoFullPrefixLen = 84

// inoExtLen is the length of the extended fixed fields (flags through the
// final 26-byte padding) that follow the full prefix when present.
const inoExtLen = 52

// Ino is a decoded INO_NODE payload.
type Ino struct {
	Inum       uint32
	Block      uint32
	KeyTail    [8]byte
	CreatSqnum uint64
	Size       uint64

	// The following are zero-valued for a stub (payload of at most
	// inoFullPrefixLen bytes).
	ATimeSec   uint64
	CTimeSec   uint64
	MTimeSec   uint64
	ATimeNs    uint32
	CTimeNs    uint32
	MTimeNs    uint32
	NLink      uint32
	UID        uint32
	GID        uint32
	Mode       posixmode.Mode

	// The following are additionally zero-valued unless the payload is
	// at least inoFullPrefixLen+inoExtLen bytes.
	Flags       uint32
	DataLen     uint32
	XattrCnt    uint32
	XattrSize   uint32
	XattrNames  uint32
	ComprType   uint16

	// InlineData holds whatever bytes trail the fixed portion actually
	// consumed; for a symlink this is the link target, for a stub it is
	// empty. A payload longer than inoFullPrefixLen but shorter than
	// inoFullPrefixLen+inoExtLen keeps its whole remainder here.
	InlineData []byte

	// Stub reports whether this payload was at most inoFullPrefixLen bytes
	// long, so that only the stub prefix was decoded (degraded per
	// spec.md §4.1).
	Stub bool
}

var _ Node = Ino{}

func (Ino) nodeType() NodeType { return TypeIno }

// UnmarshalBinary implements binstruct.Unmarshaler. It is hand-written
// rather than tag-declarative because the degrade-to-stub behavior is
// conditional on payload length, which the static binstruct schema
// mechanism cannot express (mirrors btrfsitem.DirEntry.UnmarshalBinary's
// manual variable-tail slicing in the teacher repo).
func (n *Ino) UnmarshalBinary(dat []byte) (int, error) {
	if err := binutil.NeedNBytes(dat, inoStubLen); err != nil {
		return 0, fmt.Errorf("ino_node: %w", err)
	}
	le := binary.LittleEndian
	n.Inum = le.Uint32(dat[0:4])
	n.Block = le.Uint32(dat[4:8])
	copy(n.KeyTail[:], dat[8:16])
	n.CreatSqnum = le.Uint64(dat[16:24])
	n.Size = le.Uint64(dat[24:32])

	if len(dat) <= inoFullPrefixLen {
		n.Stub = true
		return len(dat), nil
	}

	n.ATimeSec = le.Uint64(dat[32:40])
	n.CTimeSec = le.Uint64(dat[40:48])
	n.MTimeSec = le.Uint64(dat[48:56])
	n.ATimeNs = le.Uint32(dat[56:60])
	n.CTimeNs = le.Uint32(dat[60:64])
	n.MTimeNs = le.Uint32(dat[64:68])
	n.NLink = le.Uint32(dat[68:72])
	n.UID = le.Uint32(dat[72:76])
	n.GID = le.Uint32(dat[76:80])
	n.Mode = posixmode.Mode(le.Uint32(dat[80:84]))

	rest := dat[inoFullPrefixLen:]
	if len(rest) < inoExtLen {
		n.InlineData = append([]byte(nil), rest...)
		return len(dat), nil
	}

	n.Flags = le.Uint32(rest[0:4])
	n.DataLen = le.Uint32(rest[4:8])
	n.XattrCnt = le.Uint32(rest[8:12])
	n.XattrSize = le.Uint32(rest[12:16])
	// rest[16:20] is 4 bytes of padding.
	n.XattrNames = le.Uint32(rest[20:24])
	n.ComprType = le.Uint16(rest[24:26])
	// rest[26:52] is 26 bytes of padding.

	n.InlineData = append([]byte(nil), rest[inoExtLen:]...)
	return len(dat), nil
}

func (n Ino) MarshalBinary() ([]byte, error) {
	buf := make([]byte, inoStubLen)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], n.Inum)
	le.PutUint32(buf[4:8], n.Block)
	copy(buf[8:16], n.KeyTail[:])
	le.PutUint64(buf[16:24], n.CreatSqnum)
	le.PutUint64(buf[24:32], n.Size)
	if n.Stub {
		return buf, nil
	}
	full := make([]byte, inoFullPrefixLen)
	copy(full, buf)
	le.PutUint64(full[32:40], n.ATimeSec)
	le.PutUint64(full[40:48], n.CTimeSec)
	le.PutUint64(full[48:56], n.MTimeSec)
	le.PutUint32(full[56:60], n.ATimeNs)
	le.PutUint32(full[60:64], n.CTimeNs)
	le.PutUint32(full[64:68], n.MTimeNs)
	le.PutUint32(full[68:72], n.NLink)
	le.PutUint32(full[72:76], n.UID)
	le.PutUint32(full[76:80], n.GID)
	le.PutUint32(full[80:84], uint32(n.Mode))
	if len(n.InlineData) == 0 && n.Flags == 0 && n.DataLen == 0 && n.XattrCnt == 0 {
		return append(full, n.InlineData...), nil
	}
	ext := make([]byte, inoExtLen)
	le.PutUint32(ext[0:4], n.Flags)
	le.PutUint32(ext[4:8], n.DataLen)
	le.PutUint32(ext[8:12], n.XattrCnt)
	le.PutUint32(ext[12:16], n.XattrSize)
	le.PutUint32(ext[20:24], n.XattrNames)
	le.PutUint16(ext[24:26], n.ComprType)
	out := append(full, ext...)
	out = append(out, n.InlineData...)
	return out, nil
}
