// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package materialize implements the Materializer of spec.md §4.7: given
// a built Tree, an Inventory, and the Content Assembler, it walks the
// reconstructed hierarchy and writes it to one of several sinks (an
// in-memory map for tests, a real directory tree, or a read-only FUSE
// mount). Grounded on the teacher's cmd/btrfs-rec/inspect/mount package
// for the FUSE sink's fuseutil.FileSystem adaption, and on
// lib/btrfs/io4_fs.go's File/Dir abstractions for the memory sink's
// FileObject shape.
package materialize

import (
	"context"

	"github.com/ubifs-rec/ubifs-rec/lib/posixmode"
)

// Kind classifies a reconstructed filesystem entry.
type Kind int

const (
	KindRegular Kind = iota
	KindDirectory
	KindSymlink
	KindOther
)

// FileObject is one reconstructed path's content, as the memory sink
// records it (spec.md §4.7: "in-memory map path -> FileObject").
type FileObject struct {
	Kind     Kind
	Mode     posixmode.Mode
	UID, GID uint32
	ATimeSec uint64
	MTimeSec uint64
	Size     uint64
	Degraded bool

	Content  []byte           // KindRegular
	Target   string           // KindSymlink
	Children map[string]uint64 // KindDirectory: name -> child inum
}

// Sink is the materializer's output abstraction (spec.md §6: "Operations
// the materializer requires from its host").
type Sink interface {
	MkdirP(ctx context.Context, path string) error
	WriteFile(ctx context.Context, path string, data []byte) error
	SetMode(ctx context.Context, path string, mode uint32) error
	SetTimes(ctx context.Context, path string, atimeSec, mtimeSec uint64) error
	CreateSymlink(ctx context.Context, path, target string) error
	CreateHardlink(ctx context.Context, path, existingPath string) error
}
