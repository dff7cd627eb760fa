// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package bitflags formats bitfield-typed values (e.g. INO_NODE.flags) as
// human-readable strings, for diagnostics and the scan --dump-raw path.
package bitflags

import (
	"fmt"
	"strings"
)

type HexFormat uint8

const (
	HexNone = HexFormat(iota)
	HexLower
	HexUpper
)

// String renders bitfield as "name1|name2" (or "0xNN(name1|name2)" per cfg),
// falling back to "(1<<i)" for bits with no name in bitnames.
func String[T ~uint8 | ~uint16 | ~uint32 | ~uint64](bitfield T, bitnames []string, cfg HexFormat) string {
	var out strings.Builder
	switch cfg {
	case HexLower:
		fmt.Fprintf(&out, "0x%0x(", uint64(bitfield))
	case HexUpper:
		fmt.Fprintf(&out, "0x%0X(", uint64(bitfield))
	}
	if bitfield == 0 {
		out.WriteString("none")
	} else {
		rest := bitfield
		first := true
		for i := 0; rest != 0; i++ {
			if rest&(1<<i) != 0 {
				if !first {
					out.WriteRune('|')
				}
				if i < len(bitnames) {
					out.WriteString(bitnames[i])
				} else {
					fmt.Fprintf(&out, "(1<<%d)", i)
				}
				first = false
			}
			rest &^= 1 << i
		}
	}
	if cfg != HexNone {
		out.WriteRune(')')
	}
	return out.String()
}
