// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package tree implements the DFS tree builder of spec.md §4.5: it walks
// an Inventory from the root inode and assigns every reachable inode a
// canonical path, recording extra paths as hard links. Grounded on the
// arena-by-inum, index-not-pointer storage style of the teacher's
// lib/btrfs/io4_fs.go loadDir/AbsPath machinery, adapted from bottom-up
// parent-walking to the spec's required top-down DFS-from-root.
package tree

import (
	"context"

	"github.com/datawire/dlib/dlog"

	"github.com/ubifs-rec/ubifs-rec/lib/maps"
	"github.com/ubifs-rec/ubifs-rec/lib/posixmode"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/inventory"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifserr"
)

// RootInum is the well-known inode number of "/" (spec.md §3).
const RootInum uint64 = 1

// DefaultMaxDepth bounds the recursive DFS (spec.md §9: "bound depth by a
// configurable limit (default 1024)").
const DefaultMaxDepth = 1024

// Tree is the result of building a directory hierarchy from an Inventory.
type Tree struct {
	// PathsByInum holds every path reachable from root, per inum; the
	// first entry is the canonical (first-discovered-in-DFS) path, any
	// further entries are hard links to the same inode.
	PathsByInum map[uint64][]string

	// ChildrenByInum holds, for each directory inum, its resolved
	// name->child-inum map.
	ChildrenByInum map[uint64]map[string]uint64

	// Warnings accumulates non-fatal diagnostics raised during the
	// walk (CycleDetected, OrphanEntry, PathTooDeep); the walk never
	// aborts because of these.
	Warnings []error
}

// Build walks inv from RootInum and returns the resulting Tree. maxDepth
// <= 0 selects DefaultMaxDepth.
func Build(ctx context.Context, inv *inventory.Inventory, maxDepth int) *Tree {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	t := &Tree{
		PathsByInum:    make(map[uint64][]string),
		ChildrenByInum: make(map[uint64]map[string]uint64),
	}

	if _, ok := inv.Inodes[RootInum]; !ok {
		// No root inode observed at all; nothing to walk, not an error
		// in its own right (an empty or heavily corrupted image may
		// simply have no INO_NODE for inum 1).
		return t
	}

	visiting := make(map[uint64]bool)
	t.PathsByInum[RootInum] = []string{"/"}
	t.walk(ctx, inv, RootInum, "/", visiting, 1, maxDepth)
	return t
}

func (t *Tree) walk(ctx context.Context, inv *inventory.Inventory, parentInum uint64, parentPath string, visiting map[uint64]bool, depth, maxDepth int) {
	if depth > maxDepth {
		err := &ubifserr.PathTooDeep{Path: parentPath, Limit: maxDepth}
		t.Warnings = append(t.Warnings, err)
		dlog.Warnln(ctx, err)
		return
	}

	visiting[parentInum] = true
	defer delete(visiting, parentInum)

	byName := inv.DirEntries[parentInum]
	if len(byName) == 0 {
		return
	}

	children := make(map[string]uint64, len(byName))
	t.ChildrenByInum[parentInum] = children

	for _, name := range maps.SortedKeys(byName) {
		entry := byName[name]
		childInum := entry.TargetInum

		if _, ok := inv.Inodes[childInum]; !ok {
			err := &ubifserr.OrphanEntry{
				ParentInum: parentInum,
				Name:       name,
				TargetInum: childInum,
			}
			t.Warnings = append(t.Warnings, err)
			dlog.Warnln(ctx, err)
			children[name] = childInum
			continue
		}

		childMode := posixmode.Mode(inv.Inodes[childInum].Mode)
		if childMode.IsDir() && visiting[childInum] {
			// This edge closes a cycle back to an ancestor directory;
			// per spec.md §4.5 step 3, report it and drop the edge
			// entirely rather than adding it to the tree.
			err := &ubifserr.CycleDetected{
				Inum:       childInum,
				ParentPath: parentPath,
				Name:       name,
			}
			t.Warnings = append(t.Warnings, err)
			dlog.Warnln(ctx, err)
			continue
		}

		childPath := name
		if parentPath != "/" {
			childPath = parentPath + "/" + name
		} else {
			childPath = "/" + name
		}

		children[name] = childInum
		t.PathsByInum[childInum] = append(t.PathsByInum[childInum], childPath)

		if !childMode.IsDir() {
			continue
		}

		// Only recurse into a directory the first time we assign it a
		// path (first-seen-wins canonical path, spec.md §9); a
		// directory inode with multiple dentries pointing to it that
		// isn't an ancestor cycle (e.g. two hardlink-style dentries to
		// the same directory) is still only walked once.
		if len(t.PathsByInum[childInum]) == 1 {
			t.walk(ctx, inv, childInum, childPath, visiting, depth+1, maxDepth)
		}
	}
}
