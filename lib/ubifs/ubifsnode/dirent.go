// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package ubifsnode

import (
	"encoding/binary"
	"fmt"

	"github.com/ubifs-rec/ubifs-rec/lib/binstruct/binutil"
)

// dentFixedLen is DENT_NODE's fixed prefix length, before the
// variable-length name.
const dentFixedLen = 32

// DentType is the dirent-type tag carried in a DENT_NODE.
type DentType uint8

const (
	DentUnknown DentType = iota
	DentReg
	DentDir
	DentChrdev
	DentBlkdev
	DentFifo
	DentSock
	DentSymlink
)

// Dent is a decoded DENT_NODE payload. KeyInum is the *parent* directory's
// inode number (spec.md §4.1: "key_inum is the parent directory's inode").
type Dent struct {
	KeyInum uint32
	Block   uint32
	KeyTail [8]byte
	Inum    uint64
	Type    DentType
	Cookie  uint32
	Name    []byte
}

var _ Node = Dent{}

func (Dent) nodeType() NodeType { return TypeDent }

func (n *Dent) UnmarshalBinary(dat []byte) (int, error) {
	if err := binutil.NeedNBytes(dat, dentFixedLen); err != nil {
		return 0, fmt.Errorf("dent_node: %w", err)
	}
	le := binary.LittleEndian
	n.KeyInum = le.Uint32(dat[0:4])
	n.Block = le.Uint32(dat[4:8])
	copy(n.KeyTail[:], dat[8:16])
	n.Inum = le.Uint64(dat[16:24])
	// dat[24] is 1 byte of padding.
	n.Type = DentType(dat[25])
	nlen := le.Uint16(dat[26:28])
	n.Cookie = le.Uint32(dat[28:32])

	if err := binutil.NeedNBytes(dat[dentFixedLen:], int(nlen)); err != nil {
		return dentFixedLen, fmt.Errorf("dent_node: name: %w", err)
	}
	n.Name = append([]byte(nil), dat[dentFixedLen:dentFixedLen+int(nlen)]...)
	return dentFixedLen + int(nlen), nil
}

func (n Dent) MarshalBinary() ([]byte, error) {
	buf := make([]byte, dentFixedLen)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], n.KeyInum)
	le.PutUint32(buf[4:8], n.Block)
	copy(buf[8:16], n.KeyTail[:])
	le.PutUint64(buf[16:24], n.Inum)
	buf[25] = byte(n.Type)
	le.PutUint16(buf[26:28], uint16(len(n.Name)))
	le.PutUint32(buf[28:32], n.Cookie)
	return append(buf, n.Name...), nil
}

// IsDotOrDotDot reports whether this entry is "." or "..", which per
// spec.md §3 are always discarded when the inventory is built.
func (n Dent) IsDotOrDotDot() bool {
	return string(n.Name) == "." || string(n.Name) == ".."
}
