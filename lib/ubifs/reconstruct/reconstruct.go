// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package reconstruct wires the Scanner, node registry, Inventory, and
// Tree Builder into the single serial pipeline spec.md §2 and §5 describe,
// so that every cmd/ubifs-rec subcommand drives the same code path instead
// of each re-implementing scan-decode-observe-build.
package reconstruct

import (
	"context"

	"github.com/datawire/dlib/dlog"
	"github.com/pkg/errors"

	"github.com/ubifs-rec/ubifs-rec/lib/diskio"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/inventory"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/scanner"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/tree"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifsnode"
)

// Result holds everything downstream consumers (the Content Assembler,
// the Materializer, `scan --dump-raw`) need from a completed pass over an
// image.
type Result struct {
	Inventory    *inventory.Inventory
	Tree         *tree.Tree
	SkippedBytes int64

	// Diagnostics accumulates the non-fatal errors/warnings surfaced
	// while scanning, decoding, and tree-building (spec.md §7:
	// "the scanner yields diagnostics inline with successful nodes").
	Diagnostics []error
}

// Options configures a Run.
type Options struct {
	MaxDepth int  // tree builder recursion bound; 0 selects tree.DefaultMaxDepth
	DumpRaw  bool // if set, every node (including Unknown) is returned in Run's []RawRecord result
}

// RawRecord pairs a decoded node with its scan offset and header, for
// `scan --dump-raw` style inspection.
type RawRecord struct {
	Offset int64
	Header ubifsnode.Header
	Node   ubifsnode.Node
}

// Run scans img end-to-end and returns the built Inventory and Tree.
func Run(ctx context.Context, img diskio.File[int64], opts Options) (*Result, []RawRecord, error) {
	res := &Result{Inventory: inventory.New()}
	var raw []RawRecord

	sc := scanner.New(ctx, img)
	defer sc.Close()

	var scanErr error
	for {
		rec, err := sc.Next()
		if err != nil {
			scanErr = errors.Wrap(err, "scan: terminal error")
			res.Diagnostics = append(res.Diagnostics, scanErr)
			break
		}
		if rec == nil {
			break
		}

		node, decErr := ubifsnode.Decode(rec.Offset, rec.Header.NodeType, rec.Payload)
		if decErr != nil {
			res.Diagnostics = append(res.Diagnostics, decErr)
			dlog.Debugf(ctx, "decode: %v", decErr)
		}

		res.Inventory.Observe(ctx, rec.Header.Sqnum, node)

		if opts.DumpRaw {
			raw = append(raw, RawRecord{Offset: rec.Offset, Header: rec.Header, Node: node})
		}
	}

	// Build the tree from whatever was observed so far even when the
	// scan ended on a terminal error (spec.md §5/§7: a truncated or
	// corrupted image still yields the partial inventory collected up
	// to the break, and callers may materialize it rather than get
	// nothing at all).
	res.SkippedBytes = sc.SkippedBytes
	res.Tree = tree.Build(ctx, res.Inventory, opts.MaxDepth)
	res.Diagnostics = append(res.Diagnostics, res.Tree.Warnings...)

	return res, raw, scanErr
}
