// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package ubifsnode declares the on-media byte layout of every UBIFS node
// variant and the dispatch table that turns a (node_type, payload) pair
// into a typed node. Header carries binstruct `bin:` tags describing its
// layout; the payload types decode and encode with hand-written fixed
// offsets and are not described through binstruct tags.
package ubifsnode

import "github.com/ubifs-rec/ubifs-rec/lib/binstruct"

// Magic is the little-endian magic number every valid node header begins
// with.
const Magic uint32 = 0x06101831

// HeaderLen is the fixed size, in bytes, of the common node header.
const HeaderLen = 24

// NodeType selects which payload schema a node's bytes should be decoded as.
type NodeType uint8

const (
	TypeIno NodeType = iota
	TypeData
	TypeDent
	TypeXent
	TypeTrun
	TypePad
	TypeSB
	TypeMst
	TypeRef
	TypeIdx
	TypeCS
	TypeOrph
)

func (t NodeType) String() string {
	switch t {
	case TypeIno:
		return "INO"
	case TypeData:
		return "DATA"
	case TypeDent:
		return "DENT"
	case TypeXent:
		return "XENT"
	case TypeTrun:
		return "TRUN"
	case TypePad:
		return "PAD"
	case TypeSB:
		return "SB"
	case TypeMst:
		return "MST"
	case TypeRef:
		return "REF"
	case TypeIdx:
		return "IDX"
	case TypeCS:
		return "CS"
	case TypeOrph:
		return "ORPH"
	default:
		return "UNKNOWN"
	}
}

// Header is the 24-byte common header every node begins with.
type Header struct {
	Magic         uint32        `bin:"off=0,siz=4"`
	CRC32         uint32        `bin:"off=4,siz=4"`
	Sqnum         uint64        `bin:"off=8,siz=8"`
	Len           uint32        `bin:"off=16,siz=4"`
	NodeType      uint8         `bin:"off=20,siz=1"`
	GroupType     uint8         `bin:"off=21,siz=1"`
	Padding       [2]byte       `bin:"off=22,siz=2"`
	binstruct.End `bin:"off=24"`
}

// PayloadLen returns the declared length of the node's payload, i.e. the
// portion following the 24-byte common header.
func (h Header) PayloadLen() (int, bool) {
	if h.Len < HeaderLen {
		return 0, false
	}
	return int(h.Len - HeaderLen), true
}
