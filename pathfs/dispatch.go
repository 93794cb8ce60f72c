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

package pathfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/pathfuse/pathfuse/internal/logger"
	"github.com/pathfuse/pathfuse/metrics"
)

// OpKind enumerates the kernel operation kinds known to the Dispatcher.
type OpKind int

const (
	OpGetAttr OpKind = iota
	OpReadlink
	OpMknod
	OpMkdir
	OpUnlink
	OpRmdir
	OpSymlink
	OpRename
	OpLink
	OpChmod
	OpChown
	OpTruncate
	OpUtime
	OpOpen
	OpRead
	OpWrite
	OpFlush
	OpRelease
	OpSetXattr
	OpGetXattr
	OpListXattr
	OpRemoveXattr
	OpOpenDir
	OpReadDir
	OpReleaseDir
	OpFsyncDir
	OpUtimens

	// Kinds below are answered with ENOSYS.
	OpStatFS
	OpFsync
	OpInit
	OpDestroy
	OpAccess
	OpCreate
	OpFtruncate
	OpFgetattr
	OpLock
	OpBmap
	OpIoctl
	OpPoll
	OpFallocate
	OpSyncFS

	numOpKinds
)

var opNames = [numOpKinds]string{
	OpGetAttr:     "getattr",
	OpReadlink:    "readlink",
	OpMknod:       "mknod",
	OpMkdir:       "mkdir",
	OpUnlink:      "unlink",
	OpRmdir:       "rmdir",
	OpSymlink:     "symlink",
	OpRename:      "rename",
	OpLink:        "link",
	OpChmod:       "chmod",
	OpChown:       "chown",
	OpTruncate:    "truncate",
	OpUtime:       "utime",
	OpOpen:        "open",
	OpRead:        "read",
	OpWrite:       "write",
	OpFlush:       "flush",
	OpRelease:     "release",
	OpSetXattr:    "setxattr",
	OpGetXattr:    "getxattr",
	OpListXattr:   "listxattr",
	OpRemoveXattr: "removexattr",
	OpOpenDir:     "opendir",
	OpReadDir:     "readdir",
	OpReleaseDir:  "releasedir",
	OpFsyncDir:    "fsyncdir",
	OpUtimens:     "utimens",
	OpStatFS:      "statfs",
	OpFsync:       "fsync",
	OpInit:        "init",
	OpDestroy:     "destroy",
	OpAccess:      "access",
	OpCreate:      "create",
	OpFtruncate:   "ftruncate",
	OpFgetattr:    "fgetattr",
	OpLock:        "lock",
	OpBmap:        "bmap",
	OpIoctl:       "ioctl",
	OpPoll:        "poll",
	OpFallocate:   "fallocate",
	OpSyncFS:      "syncfs",
}

func (k OpKind) String() string {
	if k < 0 || k >= numOpKinds {
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
	return opNames[k]
}

// AllOpKinds returns every kind in declaration order.
func AllOpKinds() []OpKind {
	kinds := make([]OpKind, numOpKinds)
	for i := range kinds {
		kinds[i] = OpKind(i)
	}
	return kinds
}

var errNoAttributes = errors.New("handler returned no attributes")

type opEntry struct {
	supported    bool
	defaultErrno syscall.Errno
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDefaultErrno sets the errno answering unclassified failures of every
// operation.
func WithDefaultErrno(errno syscall.Errno) Option {
	return func(d *Dispatcher) {
		d.defaultErrno = errno
	}
}

// WithOpDefaultErrno overrides the default errno for a single kind.
func WithOpDefaultErrno(kind OpKind, errno syscall.Errno) Option {
	return func(d *Dispatcher) {
		d.overrides[kind] = errno
	}
}

// WithMetricHandle records handler panics and unclassified failures.
func WithMetricHandle(m metrics.MetricHandle) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// Dispatcher runs each operation through argument checks, a recover
// boundary and errno translation. It is immutable after NewDispatcher and
// safe for concurrent use; per-call state lives on the caller's stack.
//
// Every returned error is nil or a non-zero syscall.Errno.
type Dispatcher struct {
	h            Handler
	defaultErrno syscall.Errno
	overrides    map[OpKind]syscall.Errno
	metrics      metrics.MetricHandle
	table        [numOpKinds]opEntry
}

// NewDispatcher builds the operation table for h.
func NewDispatcher(h Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		h:            h,
		defaultErrno: DefaultErrno,
		overrides:    make(map[OpKind]syscall.Errno),
		metrics:      metrics.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(d)
	}

	for k := OpKind(0); k < numOpKinds; k++ {
		e := opEntry{supported: k < OpStatFS, defaultErrno: d.defaultErrno}
		if errno, ok := d.overrides[k]; ok {
			e.defaultErrno = errno
		}
		d.table[k] = e
	}
	d.overrides = nil
	return d
}

// Supported reports whether kind is routed to the Handler.
func (d *Dispatcher) Supported(kind OpKind) bool {
	return kind >= 0 && kind < numOpKinds && d.table[kind].supported
}

// Unsupported returns the answer for a kind that is not routed to the
// Handler.
func (d *Dispatcher) Unsupported(kind OpKind) error {
	return syscall.ENOSYS
}

// DefaultErrno returns the errno that answers unclassified failures of kind.
func (d *Dispatcher) DefaultErrno(kind OpKind) syscall.Errno {
	if kind < 0 || kind >= numOpKinds {
		return d.defaultErrno
	}
	return d.table[kind].defaultErrno
}

// fail turns a handler error into the errno returned to the caller.
func (d *Dispatcher) fail(kind OpKind, err error) error {
	def := d.table[kind].defaultErrno
	if _, ok := err.(*HandlerPanicError); ok {
		d.metrics.HandlerPanicCount(1, kind.String())
		return def
	}
	errno, ok := classify(err, def)
	if !ok {
		d.metrics.HandlerUnclassifiedErrorCount(1, kind.String())
		logUnclassified(kind.String(), err, def)
	}
	return errno
}

func (d *Dispatcher) GetAttr(ctx context.Context, rc RequestContext, path string) (*Attributes, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	attrs, err := invoke(OpGetAttr, func() (*Attributes, error) {
		return d.h.GetAttr(ctx, rc, path)
	})
	if err == nil && attrs == nil {
		err = errNoAttributes
	}
	if err != nil {
		return nil, d.fail(OpGetAttr, err)
	}
	return attrs, nil
}

func (d *Dispatcher) Readlink(ctx context.Context, rc RequestContext, path string) (string, error) {
	if err := checkPath(path); err != nil {
		return "", err
	}
	target, err := invoke(OpReadlink, func() (string, error) {
		return d.h.Readlink(ctx, rc, path)
	})
	if err != nil {
		return "", d.fail(OpReadlink, err)
	}
	if err := checkPath(target); err != nil {
		logger.Warnf("pathfs: readlink %q returned a target that is not valid text", path)
		return "", err
	}
	return target, nil
}

func (d *Dispatcher) Mknod(ctx context.Context, rc RequestContext, path string, mode os.FileMode, rdev uint32) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if err := invokeErr(OpMknod, func() error {
		return d.h.Mknod(ctx, rc, path, mode, rdev)
	}); err != nil {
		return d.fail(OpMknod, err)
	}
	return nil
}

func (d *Dispatcher) Mkdir(ctx context.Context, rc RequestContext, path string, mode os.FileMode) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if err := invokeErr(OpMkdir, func() error {
		return d.h.Mkdir(ctx, rc, path, mode)
	}); err != nil {
		return d.fail(OpMkdir, err)
	}
	return nil
}

func (d *Dispatcher) Unlink(ctx context.Context, rc RequestContext, path string) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if err := invokeErr(OpUnlink, func() error {
		return d.h.Unlink(ctx, rc, path)
	}); err != nil {
		return d.fail(OpUnlink, err)
	}
	return nil
}

func (d *Dispatcher) Rmdir(ctx context.Context, rc RequestContext, path string) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if err := invokeErr(OpRmdir, func() error {
		return d.h.Rmdir(ctx, rc, path)
	}); err != nil {
		return d.fail(OpRmdir, err)
	}
	return nil
}

func (d *Dispatcher) Symlink(ctx context.Context, rc RequestContext, target string, path string) error {
	if err := checkPaths(target, path); err != nil {
		return err
	}
	if err := invokeErr(OpSymlink, func() error {
		return d.h.Symlink(ctx, rc, target, path)
	}); err != nil {
		return d.fail(OpSymlink, err)
	}
	return nil
}

func (d *Dispatcher) Rename(ctx context.Context, rc RequestContext, from string, to string) error {
	if err := checkPaths(from, to); err != nil {
		return err
	}
	if err := invokeErr(OpRename, func() error {
		return d.h.Rename(ctx, rc, from, to)
	}); err != nil {
		return d.fail(OpRename, err)
	}
	return nil
}

func (d *Dispatcher) Link(ctx context.Context, rc RequestContext, from string, to string) error {
	if err := checkPaths(from, to); err != nil {
		return err
	}
	if err := invokeErr(OpLink, func() error {
		return d.h.Link(ctx, rc, from, to)
	}); err != nil {
		return d.fail(OpLink, err)
	}
	return nil
}

func (d *Dispatcher) Chmod(ctx context.Context, rc RequestContext, path string, mode os.FileMode) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if err := invokeErr(OpChmod, func() error {
		return d.h.Chmod(ctx, rc, path, mode)
	}); err != nil {
		return d.fail(OpChmod, err)
	}
	return nil
}

// Chown changes ownership; -1 leaves an id unchanged.
func (d *Dispatcher) Chown(ctx context.Context, rc RequestContext, path string, uid int, gid int) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if uid < -1 || gid < -1 {
		return syscall.EINVAL
	}
	if err := invokeErr(OpChown, func() error {
		return d.h.Chown(ctx, rc, path, uid, gid)
	}); err != nil {
		return d.fail(OpChown, err)
	}
	return nil
}

func (d *Dispatcher) Truncate(ctx context.Context, rc RequestContext, path string, size int64) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if size < 0 {
		return syscall.EINVAL
	}
	if err := invokeErr(OpTruncate, func() error {
		return d.h.Truncate(ctx, rc, path, size)
	}); err != nil {
		return d.fail(OpTruncate, err)
	}
	return nil
}

// Utime sets times in whole seconds since the epoch.
func (d *Dispatcher) Utime(ctx context.Context, rc RequestContext, path string, atime int64, mtime int64) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if err := invokeErr(OpUtime, func() error {
		return d.h.Utime(ctx, rc, path, atime, mtime)
	}); err != nil {
		return d.fail(OpUtime, err)
	}
	return nil
}

// Utimens sets times in nanoseconds since the epoch.
func (d *Dispatcher) Utimens(ctx context.Context, rc RequestContext, path string, atime int64, mtime int64) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if err := invokeErr(OpUtimens, func() error {
		return d.h.Utimens(ctx, rc, path, atime, mtime)
	}); err != nil {
		return d.fail(OpUtimens, err)
	}
	return nil
}

func (d *Dispatcher) Open(ctx context.Context, rc RequestContext, path string, flags uint32) (HandleID, error) {
	if err := checkPath(path); err != nil {
		return 0, err
	}
	fh, err := invoke(OpOpen, func() (HandleID, error) {
		return d.h.Open(ctx, rc, path, flags)
	})
	if err != nil {
		return 0, d.fail(OpOpen, err)
	}
	return fh, nil
}

// Read returns at most size bytes. A longer handler result is clipped before
// it is handed back.
func (d *Dispatcher) Read(ctx context.Context, rc RequestContext, path string, fh HandleID, size int, offset int64) ([]byte, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	if size < 0 || offset < 0 {
		return nil, syscall.EINVAL
	}
	data, err := invoke(OpRead, func() ([]byte, error) {
		return d.h.Read(ctx, rc, path, fh, size, offset)
	})
	if err != nil {
		return nil, d.fail(OpRead, err)
	}
	return clip(data, size), nil
}

// Write hands the handler its own copy of data and returns the byte count it
// reports, bounded by len(data).
func (d *Dispatcher) Write(ctx context.Context, rc RequestContext, path string, fh HandleID, data []byte, offset int64) (int, error) {
	if err := checkPath(path); err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, syscall.EINVAL
	}
	payload := copyPayload(data)
	n, err := invoke(OpWrite, func() (int, error) {
		return d.h.Write(ctx, rc, path, fh, payload, offset)
	})
	if err != nil {
		return 0, d.fail(OpWrite, err)
	}
	if n < 0 || n > len(data) {
		logger.Warnf("pathfs: write %q reported %d bytes for a %d byte payload", path, n, len(data))
		return 0, syscall.EIO
	}
	return n, nil
}

func (d *Dispatcher) Flush(ctx context.Context, rc RequestContext, path string, fh HandleID) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if err := invokeErr(OpFlush, func() error {
		return d.h.Flush(ctx, rc, path, fh)
	}); err != nil {
		return d.fail(OpFlush, err)
	}
	return nil
}

func (d *Dispatcher) Release(ctx context.Context, rc RequestContext, path string, fh HandleID) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if err := invokeErr(OpRelease, func() error {
		return d.h.Release(ctx, rc, path, fh)
	}); err != nil {
		return d.fail(OpRelease, err)
	}
	return nil
}

func (d *Dispatcher) SetXattr(ctx context.Context, rc RequestContext, path string, name string, value []byte, flags uint32) error {
	if err := checkPaths(path, name); err != nil {
		return err
	}
	payload := copyPayload(value)
	if err := invokeErr(OpSetXattr, func() error {
		return d.h.SetXattr(ctx, rc, path, name, payload, flags)
	}); err != nil {
		return d.fail(OpSetXattr, err)
	}
	return nil
}

// GetXattr copies the value of name into dst and returns its length. An
// empty dst only measures the value. ERANGE is returned when dst is too small.
func (d *Dispatcher) GetXattr(ctx context.Context, rc RequestContext, path string, name string, dst []byte) (int, error) {
	if err := checkPaths(path, name); err != nil {
		return 0, err
	}
	value, err := invoke(OpGetXattr, func() ([]byte, error) {
		return d.h.GetXattr(ctx, rc, path, name)
	})
	if err != nil {
		return 0, d.fail(OpGetXattr, err)
	}
	return fitXattr(value, dst)
}

// ListXattr writes the NUL-terminated attribute names into dst under the same
// size rules as GetXattr.
func (d *Dispatcher) ListXattr(ctx context.Context, rc RequestContext, path string, dst []byte) (int, error) {
	if err := checkPath(path); err != nil {
		return 0, err
	}
	names, err := invoke(OpListXattr, func() ([]string, error) {
		return d.h.ListXattr(ctx, rc, path)
	})
	if err != nil {
		return 0, d.fail(OpListXattr, err)
	}
	encoded, err := encodeXattrNames(names)
	if err != nil {
		return 0, err
	}
	return fitXattr(encoded, dst)
}

func (d *Dispatcher) RemoveXattr(ctx context.Context, rc RequestContext, path string, name string) error {
	if err := checkPaths(path, name); err != nil {
		return err
	}
	if err := invokeErr(OpRemoveXattr, func() error {
		return d.h.RemoveXattr(ctx, rc, path, name)
	}); err != nil {
		return d.fail(OpRemoveXattr, err)
	}
	return nil
}

func (d *Dispatcher) OpenDir(ctx context.Context, rc RequestContext, path string) (HandleID, error) {
	if err := checkPath(path); err != nil {
		return 0, err
	}
	fh, err := invoke(OpOpenDir, func() (HandleID, error) {
		return d.h.OpenDir(ctx, rc, path)
	})
	if err != nil {
		return 0, d.fail(OpOpenDir, err)
	}
	return fh, nil
}

// ReadDir lets the handler fill filler from offset and closes it when the
// handler returns. A full filler is not an error.
func (d *Dispatcher) ReadDir(ctx context.Context, rc RequestContext, path string, fh HandleID, filler *DirFiller, offset int64) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if filler == nil || offset < 0 {
		return syscall.EINVAL
	}
	defer filler.Close()
	filler.setStart(offset)
	if err := invokeErr(OpReadDir, func() error {
		return d.h.ReadDir(ctx, rc, path, fh, filler, offset)
	}); err != nil {
		return d.fail(OpReadDir, err)
	}
	return nil
}

func (d *Dispatcher) ReleaseDir(ctx context.Context, rc RequestContext, path string, fh HandleID) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if err := invokeErr(OpReleaseDir, func() error {
		return d.h.ReleaseDir(ctx, rc, path, fh)
	}); err != nil {
		return d.fail(OpReleaseDir, err)
	}
	return nil
}

func (d *Dispatcher) FsyncDir(ctx context.Context, rc RequestContext, path string, fh HandleID, dataOnly bool) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if err := invokeErr(OpFsyncDir, func() error {
		return d.h.FsyncDir(ctx, rc, path, fh, dataOnly)
	}); err != nil {
		return d.fail(OpFsyncDir, err)
	}
	return nil
}
