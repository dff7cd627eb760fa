// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package ubifsnode

import "github.com/ubifs-rec/ubifs-rec/lib/binstruct"

// Node is the tagged-sum-type interface every decoded node payload
// satisfies (spec.md §9: "replace duck-typing with tagged sum types").
// nodeType is unexported so the set of variants is closed to this package;
// callers switch on the concrete type or read Unknown's RawType field.
type Node interface {
	nodeType() NodeType
}

// Unknown wraps the raw bytes of a node whose node_type the decoder does
// not recognize (0..11 are recognized; anything else falls here) or whose
// type is recognized but intentionally not modeled (IDX_NODE — see
// registry.go).
type Unknown struct {
	RawType NodeType
	Bytes   []byte
}

var _ Node = Unknown{}

func (u Unknown) nodeType() NodeType { return u.RawType }

var (
	_ binstruct.Marshaler   = Ino{}
	_ binstruct.Unmarshaler = (*Ino)(nil)
	_ binstruct.Marshaler   = Data{}
	_ binstruct.Unmarshaler = (*Data)(nil)
	_ binstruct.Marshaler   = Dent{}
	_ binstruct.Unmarshaler = (*Dent)(nil)
)
