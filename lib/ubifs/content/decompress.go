// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package content

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ComprType names the compr_type tag carried by a DATA_NODE or inode
// (spec.md §6): 0=NONE, 1=LZO, 2=ZLIB, 3=ZSTD.
type ComprType = uint16

const (
	ComprNone ComprType = 0
	ComprLZO  ComprType = 1
	ComprZlib ComprType = 2
	ComprZstd ComprType = 3
)

// Decompressor is the pluggable decompressor-plugin interface of spec.md
// §6: decompress(compr_type, input_bytes, expected_size) -> output_bytes |
// error. A core build may register only a subset and leave the rest
// unregistered; Decompress returns an error for any unregistered type.
type Decompressor interface {
	Decompress(input []byte, expectedSize int) ([]byte, error)
}

// Registry maps compr_type tags to Decompressor plugins.
type Registry struct {
	plugins map[ComprType]Decompressor
}

// DefaultRegistry returns the registry this core ships with: NONE, ZLIB,
// and ZSTD (both backed by klauspost/compress, which the teacher's sibling
// example repos depend on for their own compressed-stream handling). LZO is
// deliberately left unregistered — spec.md §6 explicitly permits shipping a
// subset and declaring the rest pluggable, and no maintained pure-Go LZO
// decoder appears anywhere in the example corpus.
func DefaultRegistry() *Registry {
	r := &Registry{plugins: make(map[ComprType]Decompressor)}
	r.Register(ComprNone, noneDecompressor{})
	r.Register(ComprZlib, zlibDecompressor{})
	r.Register(ComprZstd, zstdDecompressor{})
	return r
}

// Register installs (or replaces) the plugin for a compr_type.
func (r *Registry) Register(ct ComprType, d Decompressor) {
	r.plugins[ct] = d
}

// Decompress dispatches to the registered plugin for ct, or returns an
// error if none is registered (covers LZO in the default registry, and any
// unrecognized tag).
func (r *Registry) Decompress(ct ComprType, input []byte, expectedSize int) ([]byte, error) {
	d, ok := r.plugins[ct]
	if !ok {
		return nil, fmt.Errorf("no decompressor registered for compr_type %d", ct)
	}
	return d.Decompress(input, expectedSize)
}

type noneDecompressor struct{}

func (noneDecompressor) Decompress(input []byte, _ int) ([]byte, error) {
	return input, nil
}

type zlibDecompressor struct{}

func (zlibDecompressor) Decompress(input []byte, expectedSize int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, 0, expectedSize)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type zstdDecompressor struct{}

func (zstdDecompressor) Decompress(input []byte, expectedSize int) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, 0, expectedSize)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LZODecompressor is a placeholder satisfying the Decompressor interface
// for compr_type LZO(1); it always fails. A caller with access to a real
// LZO implementation may Register a replacement on a Registry built from
// DefaultRegistry.
type LZODecompressor struct{}

func (LZODecompressor) Decompress(_ []byte, _ int) ([]byte, error) {
	return nil, fmt.Errorf("lzo decompression is not implemented; register a replacement plugin")
}
