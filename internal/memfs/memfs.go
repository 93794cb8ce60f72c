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

// Package memfs is a path-based in-memory pathfs.Handler. It backs the
// sample mount of the pathfuse command and the tests of the runtime adapter.
package memfs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
	"github.com/pathfuse/pathfuse/pathfs"
	"golang.org/x/sys/unix"
)

const (
	// Permission and special bits chmod may change.
	chmodBits = os.ModePerm | os.ModeSetuid | os.ModeSetgid | os.ModeSticky

	// Largest file the sample keeps in memory.
	maxFileSize = 1 << 30
)

type FileSystem struct {
	clock timeutil.Clock

	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	root *node

	// INVARIANT: nextHandle > id for every key of handles
	//
	// GUARDED_BY(mu)
	handles    map[pathfs.HandleID]*node
	nextHandle pathfs.HandleID
}

var _ pathfs.Handler = &FileSystem{}

// New creates an empty file system whose root directory has the given
// owner and permissions.
func New(clock timeutil.Clock, uid, gid uint32, rootPerms os.FileMode) *FileSystem {
	fs := &FileSystem{
		clock:      clock,
		handles:    make(map[pathfs.HandleID]*node),
		nextHandle: 1,
	}
	fs.root = newNode(fs.newAttrs(os.ModeDir|rootPerms.Perm(), uid, gid))
	fs.root.attrs.Nlink = 2
	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)
	return fs
}

// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) checkInvariants() {
	if !fs.root.isDir() {
		panic("root is not a directory")
	}
	for id := range fs.handles {
		if id >= fs.nextHandle {
			panic(fmt.Sprintf("handle %d not below %d", id, fs.nextHandle))
		}
	}
}

func (fs *FileSystem) now() int64 {
	return pathfs.TimeToNanos(fs.clock.Now())
}

func (fs *FileSystem) newAttrs(mode os.FileMode, uid, gid uint32) pathfs.Attributes {
	now := fs.now()
	return pathfs.Attributes{
		Mode:  mode,
		Nlink: 1,
		Uid:   uid,
		Gid:   gid,
		Atime: now,
		Mtime: now,
		Ctime: now,
	}
}

func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}

// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) resolve(p string) (*node, error) {
	n := fs.root
	for _, name := range splitPath(p) {
		if !n.isDir() {
			return nil, syscall.ENOTDIR
		}
		c, ok := n.lookUp(name)
		if !ok {
			return nil, syscall.ENOENT
		}
		n = c
	}
	return n, nil
}

// resolveParent returns the directory holding p and the last component of
// p.
//
// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) resolveParent(p string) (*node, string, error) {
	parts := splitPath(p)
	if len(parts) == 0 {
		return nil, "", syscall.EBUSY
	}
	dir, err := fs.resolve(strings.Join(parts[:len(parts)-1], "/"))
	if err != nil {
		return nil, "", err
	}
	if !dir.isDir() {
		return nil, "", syscall.ENOTDIR
	}
	return dir, parts[len(parts)-1], nil
}

// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) create(rc pathfs.RequestContext, p string, n *node) error {
	dir, name, err := fs.resolveParent(p)
	if err != nil {
		return err
	}
	if _, ok := dir.lookUp(name); ok {
		return syscall.EEXIST
	}
	if n.isDir() {
		n.attrs.Nlink = 2
	}
	dir.addChild(name, n)
	dir.attrs.Mtime = n.attrs.Ctime
	dir.attrs.Ctime = n.attrs.Ctime
	return nil
}

// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) addHandle(n *node) pathfs.HandleID {
	id := fs.nextHandle
	fs.nextHandle++
	fs.handles[id] = n
	return id
}

// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) handle(fh pathfs.HandleID) (*node, error) {
	n, ok := fs.handles[fh]
	if !ok {
		return nil, syscall.EBADF
	}
	return n, nil
}

////////////////////////////////////////////////////////////////////////
// pathfs.Handler methods
////////////////////////////////////////////////////////////////////////

func (fs *FileSystem) GetAttr(ctx context.Context, rc pathfs.RequestContext, p string) (*pathfs.Attributes, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return nil, err
	}
	attrs := n.attrs
	if n.contents != nil {
		attrs.Size = uint64(len(n.contents))
	}
	if n.isSymlink() {
		attrs.Size = uint64(len(n.target))
	}
	return &attrs, nil
}

func (fs *FileSystem) Readlink(ctx context.Context, rc pathfs.RequestContext, p string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return "", err
	}
	if !n.isSymlink() {
		return "", syscall.EINVAL
	}
	return n.target, nil
}

func (fs *FileSystem) Mknod(ctx context.Context, rc pathfs.RequestContext, p string, mode os.FileMode, rdev uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if mode.IsDir() || mode&os.ModeSymlink != 0 {
		return syscall.EINVAL
	}
	n := newNode(fs.newAttrs(mode, rc.Uid, rc.Gid))
	n.attrs.Rdev = rdev
	if mode.IsRegular() {
		n.contents = []byte{}
	}
	return fs.create(rc, p, n)
}

func (fs *FileSystem) Mkdir(ctx context.Context, rc pathfs.RequestContext, p string, mode os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.create(rc, p, newNode(fs.newAttrs(os.ModeDir|mode&chmodBits, rc.Uid, rc.Gid)))
}

func (fs *FileSystem) Unlink(ctx context.Context, rc pathfs.RequestContext, p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir, name, err := fs.resolveParent(p)
	if err != nil {
		return err
	}
	n, ok := dir.lookUp(name)
	if !ok {
		return syscall.ENOENT
	}
	if n.isDir() {
		return syscall.EISDIR
	}
	dir.removeChild(name)
	now := fs.now()
	n.attrs.Nlink--
	n.attrs.Ctime = now
	dir.attrs.Mtime = now
	dir.attrs.Ctime = now
	return nil
}

func (fs *FileSystem) Rmdir(ctx context.Context, rc pathfs.RequestContext, p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir, name, err := fs.resolveParent(p)
	if err != nil {
		return err
	}
	n, ok := dir.lookUp(name)
	if !ok {
		return syscall.ENOENT
	}
	if !n.isDir() {
		return syscall.ENOTDIR
	}
	if n.children.Len() > 0 {
		return syscall.ENOTEMPTY
	}
	dir.removeChild(name)
	now := fs.now()
	n.attrs.Nlink = 0
	dir.attrs.Mtime = now
	dir.attrs.Ctime = now
	return nil
}

func (fs *FileSystem) Symlink(ctx context.Context, rc pathfs.RequestContext, target string, p string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n := newNode(fs.newAttrs(os.ModeSymlink|0777, rc.Uid, rc.Gid))
	n.target = target
	return fs.create(rc, p, n)
}

func (fs *FileSystem) Rename(ctx context.Context, rc pathfs.RequestContext, from string, to string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	oldDir, oldName, err := fs.resolveParent(from)
	if err != nil {
		return err
	}
	n, ok := oldDir.lookUp(oldName)
	if !ok {
		return syscall.ENOENT
	}
	newDir, newName, err := fs.resolveParent(to)
	if err != nil {
		return err
	}
	if n.isDir() && strings.HasPrefix(to+"/", strings.TrimSuffix(from, "/")+"/") {
		if to == from {
			return nil
		}
		return syscall.EINVAL
	}

	if existing, ok := newDir.lookUp(newName); ok {
		if existing == n {
			return nil
		}
		switch {
		case n.isDir() && !existing.isDir():
			return syscall.ENOTDIR
		case !n.isDir() && existing.isDir():
			return syscall.EISDIR
		case existing.isDir() && existing.children.Len() > 0:
			return syscall.ENOTEMPTY
		}
		newDir.removeChild(newName)
		if existing.isDir() {
			existing.attrs.Nlink = 0
		} else {
			existing.attrs.Nlink--
		}
	}

	oldDir.removeChild(oldName)
	newDir.addChild(newName, n)
	now := fs.now()
	n.attrs.Ctime = now
	for _, d := range []*node{oldDir, newDir} {
		d.attrs.Mtime = now
		d.attrs.Ctime = now
	}
	return nil
}

func (fs *FileSystem) Link(ctx context.Context, rc pathfs.RequestContext, from string, to string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(from)
	if err != nil {
		return err
	}
	if n.isDir() {
		return syscall.EPERM
	}
	dir, name, err := fs.resolveParent(to)
	if err != nil {
		return err
	}
	if _, ok := dir.lookUp(name); ok {
		return syscall.EEXIST
	}
	dir.addChild(name, n)
	now := fs.now()
	n.attrs.Nlink++
	n.attrs.Ctime = now
	dir.attrs.Mtime = now
	dir.attrs.Ctime = now
	return nil
}

func (fs *FileSystem) Chmod(ctx context.Context, rc pathfs.RequestContext, p string, mode os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return err
	}
	n.attrs.Mode = n.attrs.Mode&^chmodBits | mode&chmodBits
	n.attrs.Ctime = fs.now()
	return nil
}

func (fs *FileSystem) Chown(ctx context.Context, rc pathfs.RequestContext, p string, uid int, gid int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return err
	}
	if uid != -1 {
		n.attrs.Uid = uint32(uid)
	}
	if gid != -1 {
		n.attrs.Gid = uint32(gid)
	}
	n.attrs.Ctime = fs.now()
	return nil
}

func (fs *FileSystem) Truncate(ctx context.Context, rc pathfs.RequestContext, p string, size int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return err
	}
	return fs.truncate(n, size)
}

// LOCKS_REQUIRED(fs.mu)
func (fs *FileSystem) truncate(n *node, size int64) error {
	if n.isDir() {
		return syscall.EISDIR
	}
	if n.contents == nil {
		return syscall.EINVAL
	}
	if size > maxFileSize {
		return syscall.EFBIG
	}
	switch {
	case size < int64(len(n.contents)):
		n.contents = n.contents[:size]
	case size > int64(len(n.contents)):
		n.contents = append(n.contents, make([]byte, size-int64(len(n.contents)))...)
	}
	now := fs.now()
	n.attrs.Mtime = now
	n.attrs.Ctime = now
	return nil
}

func (fs *FileSystem) Utime(ctx context.Context, rc pathfs.RequestContext, p string, atime int64, mtime int64) error {
	return fs.Utimens(ctx, rc, p, atime*1e9, mtime*1e9)
}

func (fs *FileSystem) Utimens(ctx context.Context, rc pathfs.RequestContext, p string, atime int64, mtime int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return err
	}
	n.attrs.Atime = atime
	n.attrs.Mtime = mtime
	n.attrs.Ctime = fs.now()
	return nil
}

func (fs *FileSystem) Open(ctx context.Context, rc pathfs.RequestContext, p string, flags uint32) (pathfs.HandleID, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return 0, err
	}
	if n.isDir() && flags&unix.O_ACCMODE != unix.O_RDONLY {
		return 0, syscall.EISDIR
	}
	return fs.addHandle(n), nil
}

func (fs *FileSystem) Read(ctx context.Context, rc pathfs.RequestContext, p string, fh pathfs.HandleID, size int, offset int64) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.handle(fh)
	if err != nil {
		return nil, err
	}
	if n.isDir() {
		return nil, syscall.EISDIR
	}
	if offset >= int64(len(n.contents)) {
		return nil, nil
	}
	end := offset + int64(size)
	if end > int64(len(n.contents)) {
		end = int64(len(n.contents))
	}
	n.attrs.Atime = fs.now()
	return bytes.Clone(n.contents[offset:end]), nil
}

func (fs *FileSystem) Write(ctx context.Context, rc pathfs.RequestContext, p string, fh pathfs.HandleID, data []byte, offset int64) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.handle(fh)
	if err != nil {
		return 0, err
	}
	if n.contents == nil {
		return 0, syscall.EINVAL
	}
	end := offset + int64(len(data))
	if end > maxFileSize {
		return 0, syscall.EFBIG
	}
	if end > int64(len(n.contents)) {
		if err := fs.truncate(n, end); err != nil {
			return 0, err
		}
	}
	copy(n.contents[offset:], data)
	now := fs.now()
	n.attrs.Mtime = now
	n.attrs.Ctime = now
	return len(data), nil
}

func (fs *FileSystem) Flush(ctx context.Context, rc pathfs.RequestContext, p string, fh pathfs.HandleID) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, err := fs.handle(fh)
	return err
}

func (fs *FileSystem) Release(ctx context.Context, rc pathfs.RequestContext, p string, fh pathfs.HandleID) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := fs.handle(fh); err != nil {
		return err
	}
	delete(fs.handles, fh)
	return nil
}

func (fs *FileSystem) SetXattr(ctx context.Context, rc pathfs.RequestContext, p string, name string, value []byte, flags uint32) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return err
	}
	_, exists := n.xattrs[name]
	switch {
	case flags&unix.XATTR_CREATE != 0 && exists:
		return syscall.EEXIST
	case flags&unix.XATTR_REPLACE != 0 && !exists:
		return syscall.ENODATA
	}
	n.xattrs[name] = bytes.Clone(value)
	n.attrs.Ctime = fs.now()
	return nil
}

func (fs *FileSystem) GetXattr(ctx context.Context, rc pathfs.RequestContext, p string, name string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return nil, err
	}
	v, ok := n.xattrs[name]
	if !ok {
		return nil, syscall.ENODATA
	}
	return bytes.Clone(v), nil
}

func (fs *FileSystem) ListXattr(ctx context.Context, rc pathfs.RequestContext, p string) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return nil, err
	}
	return n.xattrNames(), nil
}

func (fs *FileSystem) RemoveXattr(ctx context.Context, rc pathfs.RequestContext, p string, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return err
	}
	if _, ok := n.xattrs[name]; !ok {
		return syscall.ENODATA
	}
	delete(n.xattrs, name)
	n.attrs.Ctime = fs.now()
	return nil
}

func (fs *FileSystem) OpenDir(ctx context.Context, rc pathfs.RequestContext, p string) (pathfs.HandleID, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.resolve(p)
	if err != nil {
		return 0, err
	}
	if !n.isDir() {
		return 0, syscall.ENOTDIR
	}
	return fs.addHandle(n), nil
}

// ReadDir lists ".", ".." and the children in name order, leaving the
// numbering of entries to the filler.
func (fs *FileSystem) ReadDir(ctx context.Context, rc pathfs.RequestContext, p string, fh pathfs.HandleID, filler *pathfs.DirFiller, offset int64) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	n, err := fs.handle(fh)
	if err != nil {
		return err
	}
	if !n.isDir() {
		return syscall.ENOTDIR
	}

	dot := n.attrs
	if filler.Add(".", &dot, 0) || filler.Add("..", nil, 0) {
		return nil
	}
	n.children.Ascend(func(c child) bool {
		attrs := c.node.attrs
		return !filler.Add(c.name, &attrs, 0)
	})
	n.attrs.Atime = fs.now()
	return nil
}

func (fs *FileSystem) ReleaseDir(ctx context.Context, rc pathfs.RequestContext, p string, fh pathfs.HandleID) error {
	return fs.Release(ctx, rc, p, fh)
}

func (fs *FileSystem) FsyncDir(ctx context.Context, rc pathfs.RequestContext, p string, fh pathfs.HandleID, dataOnly bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, err := fs.handle(fh)
	return err
}

// HandleCount reports the number of open file and directory handles.
func (fs *FileSystem) HandleCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return len(fs.handles)
}
