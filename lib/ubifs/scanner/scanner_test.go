// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package scanner_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubifs-rec/ubifs-rec/lib/diskio"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/scanner"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/ubifsnode"
)

type memFile struct {
	name string
	data []byte
}

func (f *memFile) Name() string { return f.name }
func (f *memFile) Size() int64  { return int64(len(f.data)) }
func (f *memFile) Close() error { return nil }
func (f *memFile) ReadAt(dat []byte, off int64) (int, error) {
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(dat, f.data[off:])
	var err error
	if n < len(dat) {
		err = io.EOF
	}
	return n, err
}
func (f *memFile) WriteAt([]byte, int64) (int, error) {
	panic("not implemented")
}

var _ diskio.File[int64] = (*memFile)(nil)

// node encodes one valid 24-byte header followed by payload, with a
// correct declared length (checksum is not validated by the scanner).
func node(sqnum uint64, nodeType ubifsnode.NodeType, payload []byte) []byte {
	buf := make([]byte, ubifsnode.HeaderLen+len(payload))
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], ubifsnode.Magic)
	le.PutUint32(buf[4:8], 0xdeadbeef) // CRC32 is not checked by the scanner
	le.PutUint64(buf[8:16], sqnum)
	le.PutUint32(buf[16:20], uint32(ubifsnode.HeaderLen+len(payload)))
	buf[20] = byte(nodeType)
	copy(buf[ubifsnode.HeaderLen:], payload)
	return buf
}

func scanAll(t *testing.T, data []byte) ([]*scanner.Record, int64) {
	t.Helper()
	img := &memFile{name: t.Name(), data: data}
	sc := scanner.New(context.Background(), img)
	defer sc.Close()

	var recs []*scanner.Record
	for {
		rec, err := sc.Next()
		require.NoError(t, err)
		if rec == nil {
			break
		}
		recs = append(recs, rec)
	}
	return recs, sc.SkippedBytes
}

func TestScanCleanImage(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(node(1, ubifsnode.TypePad, []byte("aaaa")))
	buf.Write(node(2, ubifsnode.TypePad, []byte("bbbbbb")))

	recs, skipped := scanAll(t, buf.Bytes())
	require.Len(t, recs, 2)
	assert.EqualValues(t, 0, skipped)
	assert.Equal(t, uint64(1), recs[0].Header.Sqnum)
	assert.Equal(t, uint64(2), recs[1].Header.Sqnum)
	assert.Equal(t, []byte("aaaa"), recs[0].Payload)
	assert.Equal(t, []byte("bbbbbb"), recs[1].Payload)
}

func TestScanResyncsPastGarbage(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(node(1, ubifsnode.TypePad, []byte("aaaa")))
	garbage := []byte("this is not a valid node header at all, just noise")
	buf.Write(garbage)
	buf.Write(node(2, ubifsnode.TypePad, []byte("cc")))

	recs, skipped := scanAll(t, buf.Bytes())
	require.Len(t, recs, 2)
	assert.EqualValues(t, len(garbage), skipped)
	assert.Equal(t, uint64(1), recs[0].Header.Sqnum)
	assert.Equal(t, uint64(2), recs[1].Header.Sqnum)
}

func TestScanResyncsPastEmbeddedMagicCoincidence(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(node(1, ubifsnode.TypePad, []byte("aaaa")))

	// A stray occurrence of the magic number with a garbage length that
	// must be rejected and skipped past, not mistaken for a real header.
	var coincidence [24]byte
	binary.LittleEndian.PutUint32(coincidence[0:4], ubifsnode.Magic)
	binary.LittleEndian.PutUint32(coincidence[16:20], 0xffffffff) // implausible Len
	buf.Write(coincidence[:])

	buf.Write(node(2, ubifsnode.TypePad, []byte("dd")))

	recs, skipped := scanAll(t, buf.Bytes())
	require.Len(t, recs, 2)
	assert.EqualValues(t, len(coincidence), skipped, "the whole bogus header should be skipped, same as byte-at-a-time resync would")
	assert.Equal(t, uint64(2), recs[1].Header.Sqnum)
}

func TestScanTruncatedNodeEndsTheScan(t *testing.T) {
	full := node(1, ubifsnode.TypePad, []byte("aaaaaaaa"))
	truncated := full[:len(full)-4]

	img := &memFile{name: t.Name(), data: truncated}
	sc := scanner.New(context.Background(), img)
	defer sc.Close()

	rec, err := sc.Next()
	assert.Nil(t, rec)
	require.Error(t, err)

	// The terminal condition is sticky.
	rec2, err2 := sc.Next()
	assert.Nil(t, rec2)
	assert.Equal(t, err, err2)
}

func TestScanEmptyImage(t *testing.T) {
	recs, skipped := scanAll(t, nil)
	assert.Empty(t, recs)
	assert.EqualValues(t, 0, skipped)
}
