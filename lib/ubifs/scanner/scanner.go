// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package scanner implements the resynchronizing linear parser of
// spec.md §4.2: it streams an image, locates node boundaries by magic and
// declared length, and yields (offset, header, payload) records in
// increasing offset order, tolerating corruption by skipping ahead to the
// next occurrence of the node magic until a plausible header is found
// again.
package scanner

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/datawire/dlib/dlog"

	"github.com/ubifs-rec/ubifs-rec/lib/diskio"
	"github.com/ubifs-rec/ubifs-rec/lib/textui"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifsnode"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifserr"
)

// MaxNodeLen is the sanity bound on a node's declared length (spec.md
// §4.2: "an implementer-chosen sanity bound, e.g., 8 MiB").
const MaxNodeLen = 8 << 20

// Record is one decoded-header node emitted by the scanner, paired with
// its raw payload bytes (decoding into a typed Node happens in the
// decoder, not here — spec.md keeps scanning and decoding as separate
// components).
type Record struct {
	Offset  int64
	Header  ubifsnode.Header
	Payload []byte
}

// Scanner streams Records from an image, one at a time, resynchronizing
// past corruption. It is single-threaded and cooperative (spec.md §5):
// Next is not safe for concurrent use, and honors ctx cancellation,
// checked once per node.
type Scanner struct {
	ctx      context.Context //nolint:containedctx // checked between nodes, per spec.md §5
	img      diskio.File[int64]
	off      int64
	size     int64
	progress *textui.Progress[textui.Portion[int64]]

	// candidates holds every offset at which the node magic occurs in
	// img, found in one streaming pass (findMagicOffsets); resync uses
	// it to jump straight to the next plausible header instead of
	// re-reading a header's worth of bytes at every single offset.
	// nil until the first resync actually needs it.
	candidates []int64

	// SkippedBytes counts bytes skipped over by resync (i.e. not
	// part of any emitted node); spec.md §8 invariant 2 requires
	// sum(header.len) + skipped_bytes == image.len().
	SkippedBytes int64

	done        bool
	terminalErr error
}

// New wraps img for scanning, starting at offset 0.
func New(ctx context.Context, img diskio.File[int64]) *Scanner {
	return &Scanner{
		ctx:      ctx,
		img:      img,
		size:     int64(img.Size()),
		progress: textui.NewProgress[textui.Portion[int64]](ctx, dlog.LogLevelInfo, textui.Tunable(1*time.Second)),
	}
}

// Close releases the scanner's progress reporter. It does not close img;
// the caller owns that.
func (s *Scanner) Close() {
	s.progress.Done()
}

// Next returns the next Record in increasing offset order, or (nil, nil)
// at clean end-of-image (including a header cut short by the end of the
// image). A *ubifserr.TruncatedNode, a *ubifserr.IoError or ctx
// cancellation ends the scan: Next returns (nil, err) and all subsequent
// calls also return that same terminal condition. Next never returns an
// error together with a non-nil Record. The header's CRC-32 is not
// checked here or by any later stage, so no ChecksumMismatch is reported.
func (s *Scanner) Next() (*Record, error) {
	if s.done {
		return nil, s.terminalErr
	}
	for {
		if err := s.ctx.Err(); err != nil {
			s.done = true
			s.terminalErr = err
			return nil, err
		}

		s.progress.Set(textui.Portion[int64]{N: s.off, D: s.size})

		var hdrBuf [ubifsnode.HeaderLen]byte
		n, err := s.img.ReadAt(hdrBuf[:], s.off)
		if err != nil && !errors.Is(err, io.EOF) {
			s.done = true
			s.terminalErr = &ubifserr.IoError{Op: "read node header", Err: err}
			return nil, s.terminalErr
		}
		if n < ubifsnode.HeaderLen {
			// Short read at a header boundary: clean end-of-image,
			// not an error, per spec.md §4.2 step 1.
			s.done = true
			return nil, nil
		}
		if err != nil && n == ubifsnode.HeaderLen {
			// ReadAt may return (n, io.EOF) when it reads exactly
			// up to the end of the file; that's still a full header.
			err = nil
		}

		magic := binary.LittleEndian.Uint32(hdrBuf[0:4])
		if magic != ubifsnode.Magic {
			s.resync()
			continue
		}

		hdr, decErr := decodeHeader(hdrBuf[:])
		if decErr != nil || hdr.Len < ubifsnode.HeaderLen || hdr.Len > MaxNodeLen {
			// Magic matched by coincidence; treat as noise and
			// resync past it, same as a magic mismatch.
			s.resync()
			continue
		}

		payloadLen := int(hdr.Len - ubifsnode.HeaderLen)
		payload := make([]byte, payloadLen)
		have, _ := s.img.ReadAt(payload, s.off+ubifsnode.HeaderLen)
		if have < payloadLen {
			s.done = true
			s.terminalErr = &ubifserr.TruncatedNode{
				Offset:   s.off,
				Declared: payloadLen,
				Have:     have,
			}
			return nil, s.terminalErr
		}

		rec := &Record{
			Offset:  s.off,
			Header:  hdr,
			Payload: payload,
		}
		s.off += int64(hdr.Len)
		return rec, nil
	}
}

// resync advances s.off past the current (bad) position. The first time
// it's called it computes every remaining offset at which the magic
// number occurs, via a single streaming Knuth-Morris-Pratt pass
// (findMagicOffsets), so that this and every subsequent call can jump
// straight to the next plausible header instead of re-reading a header's
// worth of bytes at each intervening offset.
func (s *Scanner) resync() {
	if s.candidates == nil {
		offs, err := findMagicOffsets(s.img, s.off)
		if err != nil {
			// Fall back to the byte-at-a-time behavior if the
			// streaming pass itself failed partway through; a
			// single failed ReadByte shouldn't abort the scan.
			s.off++
			s.SkippedBytes++
			return
		}
		// Sentinel so a subsequent resync with no further matches
		// doesn't redo the streaming pass.
		offs = append(offs, s.size)
		s.candidates = offs
	}

	next := s.off + 1
	for len(s.candidates) > 0 && s.candidates[0] <= s.off {
		s.candidates = s.candidates[1:]
	}
	if len(s.candidates) > 0 {
		next = s.candidates[0]
	}
	s.SkippedBytes += next - s.off
	s.off = next
}

// findMagicOffsets streams img from off to find every occurrence of the
// node magic number, using diskio.FindAll (Knuth-Morris-Pratt) against a
// diskio.NewStatefulFile view of img so FindAll sees a plain
// io.ByteReader instead of needing random access.
func findMagicOffsets(img diskio.File[int64], off int64) ([]int64, error) {
	var magicBytes [4]byte
	binary.LittleEndian.PutUint32(magicBytes[:], ubifsnode.Magic)

	sf := diskio.NewStatefulFile[int64](&offsetView{img: img, base: off})
	offs, err := diskio.FindAll(sf, magicBytes[:])
	if err != nil {
		return nil, err
	}
	for i, rel := range offs {
		offs[i] = rel + off
	}
	return offs, nil
}

// offsetView re-bases a diskio.File so reads starting at 0 actually read
// from img at base; it exists only so findMagicOffsets can hand
// diskio.NewStatefulFile a view starting exactly at the scanner's current
// offset, without copying the remainder of the image.
type offsetView struct {
	img  diskio.File[int64]
	base int64
}

func (v *offsetView) Name() string { return v.img.Name() }
func (v *offsetView) Size() int64  { return v.img.Size() - v.base }
func (v *offsetView) Close() error { return nil }
func (v *offsetView) ReadAt(dat []byte, off int64) (int, error) {
	return v.img.ReadAt(dat, off+v.base)
}
func (v *offsetView) WriteAt(dat []byte, off int64) (int, error) {
	return v.img.WriteAt(dat, off+v.base)
}

var _ diskio.File[int64] = (*offsetView)(nil)

func decodeHeader(dat []byte) (ubifsnode.Header, error) {
	var hdr ubifsnode.Header
	le := binary.LittleEndian
	hdr.Magic = le.Uint32(dat[0:4])
	hdr.CRC32 = le.Uint32(dat[4:8])
	hdr.Sqnum = le.Uint64(dat[8:16])
	hdr.Len = le.Uint32(dat[16:20])
	hdr.NodeType = dat[20]
	hdr.GroupType = dat[21]
	copy(hdr.Padding[:], dat[22:24])
	return hdr, nil
}
