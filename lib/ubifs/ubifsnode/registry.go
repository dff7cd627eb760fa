// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package ubifsnode

import (
	"github.com/ubifs-rec/ubifs-rec/lib/binstruct"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifserr"
)

// Decode dispatches on node_type and decodes payload into a tagged Node
// variant, or an Unknown wrapper for unrecognized/unmodeled types
// (spec.md §4.3). This is the registry's single operation:
// decode(node_type, payload_bytes) → TypedNode | DecodeError.
//
// Offset is only used to annotate returned errors; it does not affect
// decoding.
func Decode(offset int64, rawType uint8, payload []byte) (Node, error) {
	if rawType > uint8(TypeOrph) {
		return Unknown{RawType: NodeType(rawType), Bytes: payload}, &ubifserr.UnknownNodeType{
			Offset: offset,
			Type:   rawType,
		}
	}

	nt := NodeType(rawType)

	// IDX_NODE's upstream decoder is broken (spec.md §9); it is never
	// given a dedicated layout and always decodes as Unknown.
	if nt == TypeIdx {
		return Unknown{RawType: nt, Bytes: payload}, nil
	}

	var dst Node
	switch nt {
	case TypeIno:
		dst = &Ino{}
	case TypeData:
		dst = &Data{}
	case TypeDent:
		dst = &Dent{}
	case TypeXent:
		dst = &Xent{}
	case TypeTrun:
		dst = &Trun{}
	case TypePad:
		dst = &Pad{}
	case TypeSB:
		dst = &SB{}
	case TypeMst:
		dst = &Mst{}
	case TypeRef:
		dst = &Ref{}
	case TypeCS:
		dst = &CS{}
	case TypeOrph:
		dst = &Orph{}
	default:
		return Unknown{RawType: nt, Bytes: payload}, &ubifserr.UnknownNodeType{Offset: offset, Type: rawType}
	}

	unmar := dst.(binstruct.Unmarshaler)
	if _, err := unmar.UnmarshalBinary(payload); err != nil {
		return Unknown{RawType: nt, Bytes: payload}, &ubifserr.DecodeError{Offset: offset, Reason: err}
	}

	// dereference the pointer so callers get the value type, matching
	// the other (value-receiver) Node implementations.
	switch v := dst.(type) {
	case *Ino:
		return *v, nil
	case *Data:
		return *v, nil
	case *Dent:
		return *v, nil
	case *Xent:
		return *v, nil
	case *Trun:
		return *v, nil
	case *Pad:
		return *v, nil
	case *SB:
		return *v, nil
	case *Mst:
		return *v, nil
	case *Ref:
		return *v, nil
	case *CS:
		return *v, nil
	case *Orph:
		return *v, nil
	default:
		return dst, nil
	}
}
