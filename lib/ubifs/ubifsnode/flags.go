// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package ubifsnode

import "github.com/ubifs-rec/ubifs-rec/lib/bitflags"

// Inode flag bits, per the on-disk UBIFS_*_FL constants. These are fixed
// by the on-disk format, not by this spec; only their presentation
// (bitflags.String) is project-specific.
const (
	FlagCompr = 1 << iota
	FlagSync
	FlagImmutable
	FlagAppend
	FlagDirSync
	FlagXattr
	FlagCrypt
)

var inodeFlagNames = []string{
	"compr",
	"sync",
	"immutable",
	"append",
	"dirsync",
	"xattr",
	"crypt",
}

// FormatFlags renders an INO_NODE's flags field as a human-readable
// "0xN(name|name)" string, e.g. "0x21(compr|xattr)".
func FormatFlags(flags uint32) string {
	return bitflags.String(flags, inodeFlagNames, bitflags.HexLower)
}
