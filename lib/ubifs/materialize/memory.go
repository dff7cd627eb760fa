// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package materialize

import (
	"context"
	"fmt"
	"path"

	"github.com/ubifs-rec/ubifs-rec/lib/posixmode"
)

// MemorySink is the "memory" sink of spec.md §4.7: it populates an
// in-memory path -> FileObject map, suitable for assertions in tests.
type MemorySink struct {
	Objects map[string]*FileObject
}

var _ Sink = (*MemorySink)(nil)

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{Objects: make(map[string]*FileObject)}
}

func (s *MemorySink) object(p string) *FileObject {
	obj, ok := s.Objects[p]
	if !ok {
		obj = &FileObject{}
		s.Objects[p] = obj
	}
	return obj
}

func (s *MemorySink) MkdirP(_ context.Context, p string) error {
	for cur := p; ; cur = path.Dir(cur) {
		obj := s.object(cur)
		obj.Kind = KindDirectory
		if obj.Children == nil {
			obj.Children = make(map[string]uint64)
		}
		if cur == "/" || cur == "." {
			break
		}
	}
	return nil
}

func (s *MemorySink) WriteFile(_ context.Context, p string, data []byte) error {
	obj := s.object(p)
	obj.Kind = KindRegular
	obj.Content = append([]byte(nil), data...)
	obj.Size = uint64(len(data))
	return nil
}

func (s *MemorySink) SetMode(_ context.Context, p string, mode uint32) error {
	obj := s.object(p)
	obj.Mode = obj.Mode&^posixmode.ModePermAll | (posixmode.Mode(mode) & posixmode.ModePermAll)
	return nil
}

func (s *MemorySink) SetTimes(_ context.Context, p string, atimeSec, mtimeSec uint64) error {
	obj := s.object(p)
	obj.ATimeSec = atimeSec
	obj.MTimeSec = mtimeSec
	return nil
}

func (s *MemorySink) CreateSymlink(_ context.Context, p, target string) error {
	obj := s.object(p)
	obj.Kind = KindSymlink
	obj.Target = target
	return nil
}

func (s *MemorySink) CreateHardlink(_ context.Context, p, existingPath string) error {
	existing, ok := s.Objects[existingPath]
	if !ok {
		return fmt.Errorf("hardlink source %q does not exist", existingPath)
	}
	// Share the same FileObject pointer: both paths refer to the same
	// inode, same as a real hard link (spec.md §8 invariant 5).
	s.Objects[p] = existing
	return nil
}
