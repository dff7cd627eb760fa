// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package materialize

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// DiskSink is the "disk" sink of spec.md §4.7: it writes the reconstructed
// hierarchy under Root on the host filesystem.
type DiskSink struct {
	Root string
}

var _ Sink = (*DiskSink)(nil)

// NewDiskSink returns a DiskSink rooted at root.
func NewDiskSink(root string) *DiskSink {
	return &DiskSink{Root: root}
}

func (s *DiskSink) resolve(p string) string {
	return filepath.Join(s.Root, filepath.FromSlash(p))
}

func (s *DiskSink) MkdirP(_ context.Context, p string) error {
	return os.MkdirAll(s.resolve(p), 0o755)
}

func (s *DiskSink) WriteFile(_ context.Context, p string, data []byte) error {
	return os.WriteFile(s.resolve(p), data, 0o644)
}

func (s *DiskSink) SetMode(_ context.Context, p string, mode uint32) error {
	return os.Chmod(s.resolve(p), os.FileMode(mode&0o7777))
}

func (s *DiskSink) SetTimes(_ context.Context, p string, atimeSec, mtimeSec uint64) error {
	atime := time.Unix(int64(atimeSec), 0)
	mtime := time.Unix(int64(mtimeSec), 0)
	return os.Chtimes(s.resolve(p), atime, mtime)
}

func (s *DiskSink) CreateSymlink(_ context.Context, p, target string) error {
	dst := s.resolve(p)
	_ = os.Remove(dst)
	return os.Symlink(target, dst)
}

func (s *DiskSink) CreateHardlink(_ context.Context, p, existingPath string) error {
	return os.Link(s.resolve(existingPath), s.resolve(p))
}
