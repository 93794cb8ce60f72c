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
	"os"
	"syscall"
)

// NotImplementedHandler answers ENOSYS to every operation.
type NotImplementedHandler struct{}

var _ Handler = &NotImplementedHandler{}

func (h *NotImplementedHandler) GetAttr(ctx context.Context, rc RequestContext, path string) (*Attributes, error) {
	return nil, syscall.ENOSYS
}

func (h *NotImplementedHandler) Readlink(ctx context.Context, rc RequestContext, path string) (string, error) {
	return "", syscall.ENOSYS
}

func (h *NotImplementedHandler) Mknod(ctx context.Context, rc RequestContext, path string, mode os.FileMode, rdev uint32) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Mkdir(ctx context.Context, rc RequestContext, path string, mode os.FileMode) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Unlink(ctx context.Context, rc RequestContext, path string) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Rmdir(ctx context.Context, rc RequestContext, path string) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Symlink(ctx context.Context, rc RequestContext, target string, path string) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Rename(ctx context.Context, rc RequestContext, from string, to string) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Link(ctx context.Context, rc RequestContext, from string, to string) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Chmod(ctx context.Context, rc RequestContext, path string, mode os.FileMode) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Chown(ctx context.Context, rc RequestContext, path string, uid int, gid int) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Truncate(ctx context.Context, rc RequestContext, path string, size int64) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Utime(ctx context.Context, rc RequestContext, path string, atime int64, mtime int64) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Utimens(ctx context.Context, rc RequestContext, path string, atime int64, mtime int64) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Open(ctx context.Context, rc RequestContext, path string, flags uint32) (HandleID, error) {
	return 0, syscall.ENOSYS
}

func (h *NotImplementedHandler) Read(ctx context.Context, rc RequestContext, path string, fh HandleID, size int, offset int64) ([]byte, error) {
	return nil, syscall.ENOSYS
}

func (h *NotImplementedHandler) Write(ctx context.Context, rc RequestContext, path string, fh HandleID, data []byte, offset int64) (int, error) {
	return 0, syscall.ENOSYS
}

func (h *NotImplementedHandler) Flush(ctx context.Context, rc RequestContext, path string, fh HandleID) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) Release(ctx context.Context, rc RequestContext, path string, fh HandleID) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) SetXattr(ctx context.Context, rc RequestContext, path string, name string, value []byte, flags uint32) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) GetXattr(ctx context.Context, rc RequestContext, path string, name string) ([]byte, error) {
	return nil, syscall.ENOSYS
}

func (h *NotImplementedHandler) ListXattr(ctx context.Context, rc RequestContext, path string) ([]string, error) {
	return nil, syscall.ENOSYS
}

func (h *NotImplementedHandler) RemoveXattr(ctx context.Context, rc RequestContext, path string, name string) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) OpenDir(ctx context.Context, rc RequestContext, path string) (HandleID, error) {
	return 0, syscall.ENOSYS
}

func (h *NotImplementedHandler) ReadDir(ctx context.Context, rc RequestContext, path string, fh HandleID, filler *DirFiller, offset int64) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) ReleaseDir(ctx context.Context, rc RequestContext, path string, fh HandleID) error {
	return syscall.ENOSYS
}

func (h *NotImplementedHandler) FsyncDir(ctx context.Context, rc RequestContext, path string, fh HandleID, dataOnly bool) error {
	return syscall.ENOSYS
}
