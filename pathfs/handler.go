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

// Package pathfs adapts kernel filesystem operations to a path-based
// Handler. A Dispatcher validates arguments, calls the handler under a
// recover boundary and turns the outcome into the errno the kernel expects.
// The runtime adapter in internal/fs drives a Dispatcher from jacobsa/fuse ops.
package pathfs

import (
	"context"
	"os"
)

// HandleID is an opaque value chosen by the Handler in Open and OpenDir. It is
// passed back unchanged on every later operation on the same handle.
type HandleID uint64

// RequestContext identifies the process that issued an operation.
type RequestContext struct {
	Uid uint32
	Gid uint32
	Pid uint32
}

// Attributes describe one inode. Times are nanoseconds since the Unix epoch;
// see TimeToNanos.
type Attributes struct {
	Mode  os.FileMode
	Nlink uint32
	Uid   uint32
	Gid   uint32
	Rdev  uint32
	Size  uint64
	Atime int64
	Mtime int64
	Ctime int64
}

// Handler is implemented by the application. Each method serves one kernel
// operation addressed by path. Returning a syscall.Errno, an error wrapping
// one, or an error with an Errno() syscall.Errno method reports that code to
// the kernel; any other error is answered with the Dispatcher's default errno.
//
// Embed NotImplementedHandler to answer ENOSYS for operations the filesystem
// does not serve.
type Handler interface {
	GetAttr(ctx context.Context, rc RequestContext, path string) (*Attributes, error)
	Readlink(ctx context.Context, rc RequestContext, path string) (string, error)
	Mknod(ctx context.Context, rc RequestContext, path string, mode os.FileMode, rdev uint32) error
	Mkdir(ctx context.Context, rc RequestContext, path string, mode os.FileMode) error
	Unlink(ctx context.Context, rc RequestContext, path string) error
	Rmdir(ctx context.Context, rc RequestContext, path string) error
	Symlink(ctx context.Context, rc RequestContext, target string, path string) error
	Rename(ctx context.Context, rc RequestContext, from string, to string) error
	Link(ctx context.Context, rc RequestContext, from string, to string) error
	Chmod(ctx context.Context, rc RequestContext, path string, mode os.FileMode) error

	// Chown changes ownership. -1 leaves the corresponding id unchanged.
	Chown(ctx context.Context, rc RequestContext, path string, uid int, gid int) error
	Truncate(ctx context.Context, rc RequestContext, path string, size int64) error

	// Utime sets access and modification times in whole seconds.
	Utime(ctx context.Context, rc RequestContext, path string, atime int64, mtime int64) error

	// Utimens sets access and modification times in nanoseconds since the
	// Unix epoch.
	Utimens(ctx context.Context, rc RequestContext, path string, atime int64, mtime int64) error

	Open(ctx context.Context, rc RequestContext, path string, flags uint32) (HandleID, error)

	// Read returns up to size bytes at offset. Longer results are clipped.
	Read(ctx context.Context, rc RequestContext, path string, fh HandleID, size int, offset int64) ([]byte, error)

	// Write stores data at offset and returns the number of bytes written.
	Write(ctx context.Context, rc RequestContext, path string, fh HandleID, data []byte, offset int64) (int, error)
	Flush(ctx context.Context, rc RequestContext, path string, fh HandleID) error
	Release(ctx context.Context, rc RequestContext, path string, fh HandleID) error

	SetXattr(ctx context.Context, rc RequestContext, path string, name string, value []byte, flags uint32) error

	// GetXattr returns the full value. Size negotiation with the kernel is
	// done by the Dispatcher.
	GetXattr(ctx context.Context, rc RequestContext, path string, name string) ([]byte, error)
	ListXattr(ctx context.Context, rc RequestContext, path string) ([]string, error)
	RemoveXattr(ctx context.Context, rc RequestContext, path string, name string) error

	OpenDir(ctx context.Context, rc RequestContext, path string) (HandleID, error)

	// ReadDir emits entries into filler starting at offset. Emitting stops
	// without error once filler.Add reports the sink is full.
	ReadDir(ctx context.Context, rc RequestContext, path string, fh HandleID, filler *DirFiller, offset int64) error
	ReleaseDir(ctx context.Context, rc RequestContext, path string, fh HandleID) error
	FsyncDir(ctx context.Context, rc RequestContext, path string, fh HandleID, dataOnly bool) error
}
