// Copyright (C) 2022-2026  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package materialize

import (
	"context"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/datawire/dlib/dlog"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/ubifs-rec/ubifs-rec/lib/maps"
	"github.com/ubifs-rec/ubifs-rec/lib/posixmode"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/content"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/inventory"
	"github.com/ubifs-rec/ubifs-rec/lib/ubifs/tree"
)

// FuseSink presents a built Tree/Inventory as a read-only FUSE filesystem
// (spec.md §4.7's third sink kind, beyond memory/disk). Because UBIFS
// inode numbers are already dense small integers starting at 1 — matching
// fuseops.RootInodeID exactly — no inode-number remapping table is needed,
// unlike the teacher's btrfs mount package (which must remap because btrfs
// object IDs and subvolume trees don't share one flat inode space).
type FuseSink struct {
	fuseutil.NotImplementedFileSystem

	Tree *tree.Tree
	Inv  *inventory.Inventory
	Reg  *content.Registry

	lastHandle  uint64
	mu          sync.Mutex
	dirHandles  map[fuseops.HandleID][]dirent
	fileHandles map[fuseops.HandleID][]byte
}

type dirent struct {
	name string
	inum uint64
}

// NewFuseSink returns a FuseSink ready to be wrapped with
// fuseutil.NewFileSystemServer and mounted.
func NewFuseSink(t *tree.Tree, inv *inventory.Inventory, reg *content.Registry) *FuseSink {
	return &FuseSink{
		Tree:        t,
		Inv:         inv,
		Reg:         reg,
		dirHandles:  make(map[fuseops.HandleID][]dirent),
		fileHandles: make(map[fuseops.HandleID][]byte),
	}
}

func (fs *FuseSink) newHandle() fuseops.HandleID {
	return fuseops.HandleID(atomic.AddUint64(&fs.lastHandle, 1))
}

func inodeToAttrs(ino inventory.InodeRecord) fuseops.InodeAttributes {
	mode := posixmode.Mode(ino.Mode)
	fuseMode := uint32(mode.Perm())
	switch {
	case mode.IsDir():
		fuseMode |= syscall.S_IFDIR
	case mode.IsSymlink():
		fuseMode |= syscall.S_IFLNK
	default:
		fuseMode |= syscall.S_IFREG
	}
	return fuseops.InodeAttributes{
		Size:  ino.Size,
		Nlink: ino.NLink,
		Mode:  fuseMode,
		Atime: time.Unix(int64(ino.ATimeSec), int64(ino.ATimeNs)),
		Mtime: time.Unix(int64(ino.MTimeSec), int64(ino.MTimeNs)),
		Ctime: time.Unix(int64(ino.CTimeSec), int64(ino.CTimeNs)),
		Uid:   ino.UID,
		Gid:   ino.GID,
	}
}

func (fs *FuseSink) StatFS(_ context.Context, op *fuseops.StatFSOp) error {
	op.BlockSize = content.DefaultBlockSize
	op.IoSize = content.DefaultBlockSize
	op.Blocks = 0
	op.Inodes = uint64(len(fs.Inv.Inodes))
	return nil
}

func (fs *FuseSink) LookUpInode(_ context.Context, op *fuseops.LookUpInodeOp) error {
	children := fs.Tree.ChildrenByInum[uint64(op.Parent)]
	childInum, ok := children[op.Name]
	if !ok {
		return syscall.ENOENT
	}
	ino, ok := fs.Inv.Inodes[childInum]
	if !ok {
		return syscall.ENOENT
	}
	op.Entry = fuseops.ChildInodeEntry{
		Child:      fuseops.InodeID(childInum),
		Attributes: inodeToAttrs(ino),
	}
	return nil
}

func (fs *FuseSink) GetInodeAttributes(_ context.Context, op *fuseops.GetInodeAttributesOp) error {
	ino, ok := fs.Inv.Inodes[uint64(op.Inode)]
	if !ok {
		return syscall.ENOENT
	}
	op.Attributes = inodeToAttrs(ino)
	return nil
}

func (fs *FuseSink) OpenDir(_ context.Context, op *fuseops.OpenDirOp) error {
	children, ok := fs.Tree.ChildrenByInum[uint64(op.Inode)]
	if !ok {
		return syscall.ENOENT
	}
	entries := make([]dirent, 0, len(children))
	for _, name := range maps.SortedKeys(children) {
		entries = append(entries, dirent{name: name, inum: children[name]})
	}

	fs.mu.Lock()
	handle := fs.newHandle()
	fs.dirHandles[handle] = entries
	fs.mu.Unlock()

	op.Handle = handle
	return nil
}

func (fs *FuseSink) ReadDir(_ context.Context, op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	entries, ok := fs.dirHandles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return syscall.EBADF
	}

	for i := int(op.Offset); i < len(entries); i++ {
		e := entries[i]
		ino := fs.Inv.Inodes[e.inum]
		mode := posixmode.Mode(ino.Mode)
		dtype := fuseutil.DT_File
		switch {
		case mode.IsDir():
			dtype = fuseutil.DT_Directory
		case mode.IsSymlink():
			dtype = fuseutil.DT_Link
		}
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  fuseops.InodeID(e.inum),
			Name:   e.name,
			Type:   dtype,
		})
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func (fs *FuseSink) ReleaseDirHandle(_ context.Context, op *fuseops.ReleaseDirHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.dirHandles[op.Handle]; !ok {
		return syscall.EBADF
	}
	delete(fs.dirHandles, op.Handle)
	return nil
}

func (fs *FuseSink) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	ino, ok := fs.Inv.Inodes[uint64(op.Inode)]
	if !ok {
		return syscall.ENOENT
	}
	res := content.AssembleFile(fs.Reg, fs.Inv, uint64(op.Inode), ino.Size)
	for _, derr := range res.Errors {
		dlog.Warnln(ctx, derr)
	}

	fs.mu.Lock()
	handle := fs.newHandle()
	fs.fileHandles[handle] = res.Data
	fs.mu.Unlock()

	op.Handle = handle
	op.KeepPageCache = true
	return nil
}

func (fs *FuseSink) ReadFile(_ context.Context, op *fuseops.ReadFileOp) error {
	fs.mu.Lock()
	data, ok := fs.fileHandles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return syscall.EBADF
	}
	if op.Offset >= int64(len(data)) {
		op.BytesRead = 0
		return nil
	}
	n := copy(op.Dst, data[op.Offset:])
	op.BytesRead = n
	return nil
}

func (fs *FuseSink) ReleaseFileHandle(_ context.Context, op *fuseops.ReleaseFileHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.fileHandles[op.Handle]; !ok {
		return syscall.EBADF
	}
	delete(fs.fileHandles, op.Handle)
	return nil
}

func (fs *FuseSink) ReadSymlink(_ context.Context, op *fuseops.ReadSymlinkOp) error {
	ino, ok := fs.Inv.Inodes[uint64(op.Inode)]
	if !ok {
		return syscall.ENOENT
	}
	target, err := content.AssembleSymlink(fs.Reg, fs.Inv, uint64(op.Inode), ino)
	if err != nil {
		return syscall.EIO
	}
	op.Target = target
	return nil
}

func (*FuseSink) Destroy() {}
