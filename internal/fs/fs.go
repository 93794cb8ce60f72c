// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"syscall"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/timeutil"
	"github.com/pathfuse/pathfuse/internal/logger"
	"github.com/pathfuse/pathfuse/metrics"
	"github.com/pathfuse/pathfuse/pathfs"
)

// unknownInode is reported in directory entries, whose inode numbers are not
// known to the kernel until it looks the entry up.
const unknownInode fuseops.InodeID = 0xffffffff

// Invalidator drops kernel caches. *fuse.Notifier implements it.
type Invalidator interface {
	InvalidateInode(inode fuseops.InodeID, offset int64, length int64) error
	InvalidateEntry(parent fuseops.InodeID, name string) error
}

type ServerConfig struct {
	// The dispatcher every op is routed through.
	Dispatcher *pathfs.Dispatcher

	// A clock used for attribute and entry expirations.
	CacheClock timeutil.Clock

	// How long the kernel may cache inode attributes and name lookups.
	AttrTimeout  time.Duration
	EntryTimeout time.Duration

	// Receives cache invalidations. May be nil, in which case Invalidate
	// fails with ENOSYS.
	Notifier Invalidator

	// The maximum number of ops served concurrently by a multi-threaded
	// loop. Zero means DefaultMaxThreads.
	MaxThreads int64

	MetricHandle metrics.MetricHandle

	// Log every op and its outcome.
	DebugFuse bool

	// Create a span for every op.
	EnableTracing bool
}

// newFileSystem creates the fuseutil.FileSystem that serves ops through
// cfg.Dispatcher.
func newFileSystem(cfg *ServerConfig) (*fileSystem, error) {
	if cfg.Dispatcher == nil {
		return nil, errors.New("no dispatcher")
	}
	clock := cfg.CacheClock
	if clock == nil {
		clock = timeutil.RealClock()
	}
	fs := &fileSystem{
		dispatcher:   cfg.Dispatcher,
		clock:        clock,
		attrTimeout:  cfg.AttrTimeout,
		entryTimeout: cfg.EntryTimeout,
		notifier:     cfg.Notifier,
		inodes:       newInodeTable(),
		handles:      newHandleTable(),
	}
	return fs, nil
}

type fileSystem struct {
	fuseutil.NotImplementedFileSystem

	/////////////////////////
	// Constant data
	/////////////////////////

	dispatcher   *pathfs.Dispatcher
	clock        timeutil.Clock
	attrTimeout  time.Duration
	entryTimeout time.Duration
	notifier     Invalidator

	/////////////////////////
	// Mutable state
	/////////////////////////

	// Each table carries its own lock. No method holds both.
	inodes  *inodeTable
	handles *handleTable
}

////////////////////////////////////////////////////////////////////////
// Helpers
////////////////////////////////////////////////////////////////////////

func (fs *fileSystem) inodeAttributes(a *pathfs.Attributes) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:   a.Size,
		Nlink:  a.Nlink,
		Mode:   a.Mode,
		Atime:  pathfs.NanosToTime(a.Atime),
		Mtime:  pathfs.NanosToTime(a.Mtime),
		Ctime:  pathfs.NanosToTime(a.Ctime),
		Crtime: pathfs.NanosToTime(a.Ctime),
		Uid:    a.Uid,
		Gid:    a.Gid,
	}
}

// lookUpChild asks the handler for the attributes of p and, when it exists,
// records a kernel lookup of it in e.
func (fs *fileSystem) lookUpChild(ctx context.Context, rc pathfs.RequestContext, p string, e *fuseops.ChildInodeEntry) error {
	attrs, err := fs.dispatcher.GetAttr(ctx, rc, p)
	if err != nil {
		return err
	}
	now := fs.clock.Now()
	e.Child = fs.inodes.LookUp(p)
	e.Attributes = fs.inodeAttributes(attrs)
	e.AttributesExpiration = now.Add(fs.attrTimeout)
	e.EntryExpiration = now.Add(fs.entryTimeout)
	return nil
}

func (fs *fileSystem) handlePath(h fuseops.HandleID) (handleEntry, string, error) {
	e, err := fs.handles.Get(h)
	if err != nil {
		return handleEntry{}, "", err
	}
	p, err := fs.inodes.Path(e.inode)
	if err != nil {
		return handleEntry{}, "", err
	}
	return e, p, nil
}

func direntType(a *pathfs.Attributes) fuseutil.DirentType {
	if a == nil {
		return fuseutil.DT_Unknown
	}
	switch {
	case a.Mode.IsDir():
		return fuseutil.DT_Directory
	case a.Mode&os.ModeSymlink != 0:
		return fuseutil.DT_Link
	case a.Mode&os.ModeNamedPipe != 0:
		return fuseutil.DT_FIFO
	case a.Mode&os.ModeSocket != 0:
		return fuseutil.DT_Socket
	case a.Mode&os.ModeCharDevice != 0:
		return fuseutil.DT_Char
	case a.Mode&os.ModeDevice != 0:
		return fuseutil.DT_Block
	case a.Mode.IsRegular():
		return fuseutil.DT_File
	}
	return fuseutil.DT_Unknown
}

// Invalidate drops the kernel's cached data and attributes for p and its
// entry in the parent directory.
func (fs *fileSystem) Invalidate(p string) error {
	if fs.notifier == nil {
		return syscall.ENOSYS
	}
	id, ok := fs.inodes.Find(p)
	if !ok {
		return syscall.ENOENT
	}
	if err := fs.notifier.InvalidateInode(id, 0, 0); err != nil {
		return fmt.Errorf("InvalidateInode: %w", err)
	}
	if id == fuseops.RootInodeID {
		return nil
	}
	dir, name := splitPath(p)
	parent, ok := fs.inodes.Find(dir)
	if !ok {
		return nil
	}
	if err := fs.notifier.InvalidateEntry(parent, name); err != nil {
		return fmt.Errorf("InvalidateEntry: %w", err)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////
// fuseutil.FileSystem methods
////////////////////////////////////////////////////////////////////////

func (fs *fileSystem) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	return fs.dispatcher.Unsupported(pathfs.OpStatFS)
}

func (fs *fileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	p, err := fs.inodes.ChildPath(op.Parent, op.Name)
	if err != nil {
		return err
	}
	return fs.lookUpChild(ctx, requestContext(op.OpContext), p, &op.Entry)
}

func (fs *fileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	p, err := fs.inodes.Path(op.Inode)
	if err != nil {
		return err
	}
	attrs, err := fs.dispatcher.GetAttr(ctx, requestContext(op.OpContext), p)
	if err != nil {
		return err
	}
	op.Attributes = fs.inodeAttributes(attrs)
	op.AttributesExpiration = fs.clock.Now().Add(fs.attrTimeout)
	return nil
}

// SetInodeAttributes applies the requested changes in the order chmod,
// chown, truncate, utimens and stops at the first failure.
func (fs *fileSystem) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) (err error) {
	p, err := fs.inodes.Path(op.Inode)
	if err != nil {
		return err
	}
	rc := requestContext(op.OpContext)

	if op.Mode != nil {
		if err = fs.dispatcher.Chmod(ctx, rc, p, *op.Mode); err != nil {
			return err
		}
	}

	if op.Uid != nil || op.Gid != nil {
		uid, gid := -1, -1
		if op.Uid != nil {
			uid = int(*op.Uid)
		}
		if op.Gid != nil {
			gid = int(*op.Gid)
		}
		if err = fs.dispatcher.Chown(ctx, rc, p, uid, gid); err != nil {
			return err
		}
	}

	if op.Size != nil {
		if *op.Size > math.MaxInt64 {
			return syscall.EFBIG
		}
		if err = fs.dispatcher.Truncate(ctx, rc, p, int64(*op.Size)); err != nil {
			return err
		}
	}

	if op.Atime != nil || op.Mtime != nil {
		if err = fs.setTimes(ctx, rc, p, op.Atime, op.Mtime); err != nil {
			return err
		}
	}

	attrs, err := fs.dispatcher.GetAttr(ctx, rc, p)
	if err != nil {
		return err
	}
	op.Attributes = fs.inodeAttributes(attrs)
	op.AttributesExpiration = fs.clock.Now().Add(fs.attrTimeout)
	return nil
}

// setTimes fills a missing time from the current attributes and falls back
// to second resolution when the handler does not serve utimens.
func (fs *fileSystem) setTimes(ctx context.Context, rc pathfs.RequestContext, p string, atime, mtime *time.Time) error {
	var a, m int64
	if atime == nil || mtime == nil {
		cur, err := fs.dispatcher.GetAttr(ctx, rc, p)
		if err != nil {
			return err
		}
		a, m = cur.Atime, cur.Mtime
	}
	if atime != nil {
		a = pathfs.TimeToNanos(*atime)
	}
	if mtime != nil {
		m = pathfs.TimeToNanos(*mtime)
	}

	err := fs.dispatcher.Utimens(ctx, rc, p, a, m)
	if err != syscall.ENOSYS {
		return err
	}
	return fs.dispatcher.Utime(ctx, rc, p, a/int64(time.Second), m/int64(time.Second))
}

func (fs *fileSystem) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	fs.inodes.Forget(op.Inode, op.N)
	return nil
}

func (fs *fileSystem) BatchForget(ctx context.Context, op *fuseops.BatchForgetOp) error {
	for _, e := range op.Entries {
		fs.inodes.Forget(e.Inode, e.N)
	}
	return nil
}

func (fs *fileSystem) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	p, err := fs.inodes.ChildPath(op.Parent, op.Name)
	if err != nil {
		return err
	}
	rc := requestContext(op.OpContext)
	if err = fs.dispatcher.Mkdir(ctx, rc, p, op.Mode); err != nil {
		return err
	}
	return fs.lookUpChild(ctx, rc, p, &op.Entry)
}

func (fs *fileSystem) MkNode(ctx context.Context, op *fuseops.MkNodeOp) error {
	p, err := fs.inodes.ChildPath(op.Parent, op.Name)
	if err != nil {
		return err
	}
	rc := requestContext(op.OpContext)
	if err = fs.dispatcher.Mknod(ctx, rc, p, op.Mode, op.Rdev); err != nil {
		return err
	}
	return fs.lookUpChild(ctx, rc, p, &op.Entry)
}

func (fs *fileSystem) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	return fs.dispatcher.Unsupported(pathfs.OpCreate)
}

func (fs *fileSystem) CreateSymlink(ctx context.Context, op *fuseops.CreateSymlinkOp) error {
	p, err := fs.inodes.ChildPath(op.Parent, op.Name)
	if err != nil {
		return err
	}
	rc := requestContext(op.OpContext)
	if err = fs.dispatcher.Symlink(ctx, rc, op.Target, p); err != nil {
		return err
	}
	return fs.lookUpChild(ctx, rc, p, &op.Entry)
}

func (fs *fileSystem) CreateLink(ctx context.Context, op *fuseops.CreateLinkOp) error {
	from, err := fs.inodes.Path(op.Target)
	if err != nil {
		return err
	}
	p, err := fs.inodes.ChildPath(op.Parent, op.Name)
	if err != nil {
		return err
	}
	rc := requestContext(op.OpContext)
	if err = fs.dispatcher.Link(ctx, rc, from, p); err != nil {
		return err
	}
	return fs.lookUpChild(ctx, rc, p, &op.Entry)
}

func (fs *fileSystem) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	from, err := fs.inodes.ChildPath(op.OldParent, op.OldName)
	if err != nil {
		return err
	}
	to, err := fs.inodes.ChildPath(op.NewParent, op.NewName)
	if err != nil {
		return err
	}
	if err = fs.dispatcher.Rename(ctx, requestContext(op.OpContext), from, to); err != nil {
		return err
	}
	fs.inodes.Rename(from, to)
	return nil
}

func (fs *fileSystem) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	p, err := fs.inodes.ChildPath(op.Parent, op.Name)
	if err != nil {
		return err
	}
	if err = fs.dispatcher.Rmdir(ctx, requestContext(op.OpContext), p); err != nil {
		return err
	}
	fs.inodes.Detach(p)
	return nil
}

func (fs *fileSystem) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	p, err := fs.inodes.ChildPath(op.Parent, op.Name)
	if err != nil {
		return err
	}
	if err = fs.dispatcher.Unlink(ctx, requestContext(op.OpContext), p); err != nil {
		return err
	}
	fs.inodes.Detach(p)
	return nil
}

func (fs *fileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	p, err := fs.inodes.Path(op.Inode)
	if err != nil {
		return err
	}
	fh, err := fs.dispatcher.OpenDir(ctx, requestContext(op.OpContext), p)
	if err != nil {
		return err
	}
	op.Handle = fs.handles.Add(handleEntry{inode: op.Inode, fh: fh, dir: true, listing: &dirListing{}})
	return nil
}

// ReadDir lists the directory into the handle's listing at offset 0 and
// encodes entries from that listing into op.Dst until it has no room for the
// next one. A handle with no listing is read straight from the handler.
func (fs *fileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	e, p, err := fs.handlePath(op.Handle)
	if err != nil {
		return err
	}
	rc := requestContext(op.OpContext)

	direct := func() error {
		filler := pathfs.NewFuncFiller(func(d pathfs.DirEntry) bool {
			return writeDirent(op, d)
		})
		return fs.dispatcher.ReadDir(ctx, rc, p, e.fh, filler, int64(op.Offset))
	}

	l := e.listing
	if l == nil {
		return direct()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if op.Offset == 0 {
		var entries []pathfs.DirEntry
		filler := pathfs.NewFuncFiller(func(d pathfs.DirEntry) bool {
			entries = append(entries, d)
			return true
		})
		if err = fs.dispatcher.ReadDir(ctx, rc, p, e.fh, filler, 0); err != nil {
			return err
		}
		l.entries = entries
		l.taken = true
	} else if !l.taken {
		return direct()
	}

	for _, d := range l.entries[l.after(int64(op.Offset)):] {
		if !writeDirent(op, d) {
			break
		}
	}
	return nil
}

// writeDirent appends d to op.Dst and reports whether it fit.
func writeDirent(op *fuseops.ReadDirOp, d pathfs.DirEntry) bool {
	n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseutil.Dirent{
		Offset: fuseops.DirOffset(d.Offset),
		Inode:  unknownInode,
		Name:   d.Name,
		Type:   direntType(d.Attrs),
	})
	if n == 0 {
		return false
	}
	op.BytesRead += n
	return true
}

func (fs *fileSystem) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	e, err := fs.handles.Remove(op.Handle)
	if err != nil {
		return err
	}
	p, err := fs.inodes.Path(e.inode)
	if err != nil {
		return err
	}
	return fs.dispatcher.ReleaseDir(ctx, requestContext(op.OpContext), p, e.fh)
}

func (fs *fileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	p, err := fs.inodes.Path(op.Inode)
	if err != nil {
		return err
	}
	fh, err := fs.dispatcher.Open(ctx, requestContext(op.OpContext), p, uint32(op.OpenFlags))
	if err != nil {
		return err
	}
	op.Handle = fs.handles.Add(handleEntry{inode: op.Inode, fh: fh})
	return nil
}

func (fs *fileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	e, p, err := fs.handlePath(op.Handle)
	if err != nil {
		return err
	}
	size := len(op.Dst)
	if op.Dst == nil {
		size = int(op.Size)
	}
	data, err := fs.dispatcher.Read(ctx, requestContext(op.OpContext), p, e.fh, size, op.Offset)
	if err != nil {
		return err
	}
	if op.Dst != nil {
		op.BytesRead = copy(op.Dst, data)
		return nil
	}
	op.Data = [][]byte{data}
	op.BytesRead = len(data)
	return nil
}

// WriteFile fails with EIO when the handler accepts fewer bytes than
// offered, since the kernel protocol has no short write reply here.
func (fs *fileSystem) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	e, p, err := fs.handlePath(op.Handle)
	if err != nil {
		return err
	}
	n, err := fs.dispatcher.Write(ctx, requestContext(op.OpContext), p, e.fh, op.Data, op.Offset)
	if err != nil {
		return err
	}
	if n != len(op.Data) {
		logger.Warnf("WriteFile: %q accepted %d of %d bytes", p, n, len(op.Data))
		return syscall.EIO
	}
	return nil
}

// SyncFile serves fsyncdir on directory handles. File fsync is not routed to
// the handler.
func (fs *fileSystem) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	e, p, err := fs.handlePath(op.Handle)
	if err != nil || !e.dir {
		return fs.dispatcher.Unsupported(pathfs.OpFsync)
	}
	return fs.dispatcher.FsyncDir(ctx, requestContext(op.OpContext), p, e.fh, false)
}

func (fs *fileSystem) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	e, p, err := fs.handlePath(op.Handle)
	if err != nil {
		return err
	}
	return fs.dispatcher.Flush(ctx, requestContext(op.OpContext), p, e.fh)
}

func (fs *fileSystem) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	e, err := fs.handles.Remove(op.Handle)
	if err != nil {
		return err
	}
	p, err := fs.inodes.Path(e.inode)
	if err != nil {
		return err
	}
	return fs.dispatcher.Release(ctx, requestContext(op.OpContext), p, e.fh)
}

func (fs *fileSystem) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	p, err := fs.inodes.Path(op.Inode)
	if err != nil {
		return err
	}
	op.Target, err = fs.dispatcher.Readlink(ctx, requestContext(op.OpContext), p)
	return err
}

func (fs *fileSystem) SetXattr(ctx context.Context, op *fuseops.SetXattrOp) error {
	p, err := fs.inodes.Path(op.Inode)
	if err != nil {
		return err
	}
	return fs.dispatcher.SetXattr(ctx, requestContext(op.OpContext), p, op.Name, op.Value, op.Flags)
}

// GetXattr answers a size query when op.Dst is empty.
func (fs *fileSystem) GetXattr(ctx context.Context, op *fuseops.GetXattrOp) error {
	p, err := fs.inodes.Path(op.Inode)
	if err != nil {
		return err
	}
	op.BytesRead, err = fs.dispatcher.GetXattr(ctx, requestContext(op.OpContext), p, op.Name, op.Dst)
	return err
}

func (fs *fileSystem) ListXattr(ctx context.Context, op *fuseops.ListXattrOp) error {
	p, err := fs.inodes.Path(op.Inode)
	if err != nil {
		return err
	}
	op.BytesRead, err = fs.dispatcher.ListXattr(ctx, requestContext(op.OpContext), p, op.Dst)
	return err
}

func (fs *fileSystem) RemoveXattr(ctx context.Context, op *fuseops.RemoveXattrOp) error {
	p, err := fs.inodes.Path(op.Inode)
	if err != nil {
		return err
	}
	return fs.dispatcher.RemoveXattr(ctx, requestContext(op.OpContext), p, op.Name)
}

func (fs *fileSystem) Fallocate(ctx context.Context, op *fuseops.FallocateOp) error {
	return fs.dispatcher.Unsupported(pathfs.OpFallocate)
}

func (fs *fileSystem) SyncFS(ctx context.Context, op *fuseops.SyncFSOp) error {
	return fs.dispatcher.Unsupported(pathfs.OpSyncFS)
}

func (fs *fileSystem) Destroy() {
}
