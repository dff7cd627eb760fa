// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package ubifsnode

import (
	"encoding/binary"
	"fmt"

	"github.com/ubifs-rec/ubifs-rec/lib/binstruct/binutil"
)

// dataFixedLen is the size of DATA_NODE's fixed prefix: inum, block,
// key_tail, size, compr_type, compr_size.
const dataFixedLen = 24

// Data is a decoded DATA_NODE payload: inum u32, block u32, key_tail[8],
// size u32, compr_type u16, compr_size u16, data[..].
type Data struct {
	Inum      uint32
	Block     uint32
	KeyTail   [8]byte
	Size      uint32
	ComprType uint16
	ComprSize uint16
	Payload   []byte
}

var _ Node = Data{}

func (Data) nodeType() NodeType { return TypeData }

func (n *Data) UnmarshalBinary(dat []byte) (int, error) {
	if err := binutil.NeedNBytes(dat, dataFixedLen); err != nil {
		return 0, fmt.Errorf("data_node: %w", err)
	}
	le := binary.LittleEndian
	n.Inum = le.Uint32(dat[0:4])
	n.Block = le.Uint32(dat[4:8])
	copy(n.KeyTail[:], dat[8:16])
	n.Size = le.Uint32(dat[16:20])
	n.ComprType = le.Uint16(dat[20:22])
	n.ComprSize = le.Uint16(dat[22:24])
	n.Payload = append([]byte(nil), dat[dataFixedLen:]...)
	return len(dat), nil
}

func (n Data) MarshalBinary() ([]byte, error) {
	buf := make([]byte, dataFixedLen)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], n.Inum)
	le.PutUint32(buf[4:8], n.Block)
	copy(buf[8:16], n.KeyTail[:])
	le.PutUint32(buf[16:20], n.Size)
	le.PutUint16(buf[20:22], n.ComprType)
	le.PutUint16(buf[22:24], n.ComprSize)
	return append(buf, n.Payload...), nil
}
