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
	"errors"
	"fmt"
	"io/fs"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pathfuse/pathfuse/internal/logger"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

// DefaultErrno answers handler failures that carry no errno.
const DefaultErrno = syscall.ENOENT

var (
	// At most a burst of diagnostics per second; the rest are counted and
	// reported with the next one logged.
	diagLimiter    = rate.NewLimiter(rate.Every(time.Second), 5)
	diagSuppressed atomic.Int64
)

// errnoer is implemented by errors that carry their own kernel code.
type errnoer interface {
	Errno() syscall.Errno
}

// HandlerPanicError records a panic recovered from a handler call.
type HandlerPanicError struct {
	Op    OpKind
	Value any
	Stack []byte
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("%s handler panicked: %v", e.Op, e.Value)
}

// Translate maps err to the errno reported to the kernel. nil maps to 0 and
// an error without a recognizable code maps to def. Unclassified errors are
// logged.
func Translate(err error, def syscall.Errno) syscall.Errno {
	errno, ok := classify(err, def)
	if !ok {
		logUnclassified("", err, def)
	}
	return errno
}

// Code returns the negated errno, the form the kernel protocol carries.
func Code(errno syscall.Errno) int32 {
	return -int32(errno)
}

// classify reports whether err carries a kernel code. It never panics: a
// misbehaving Error, Unwrap, Is, As or Errno method yields (def, false).
func classify(err error, def syscall.Errno) (errno syscall.Errno, ok bool) {
	if err == nil {
		return 0, true
	}
	defer func() {
		if r := recover(); r != nil {
			errno, ok = def, false
		}
	}()

	var e syscall.Errno
	if errors.As(err, &e) {
		if e == 0 {
			return def, false
		}
		return e, true
	}
	var c errnoer
	if errors.As(err, &c) {
		if e = c.Errno(); e == 0 {
			return def, false
		}
		return e, true
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return syscall.ENOENT, true
	case errors.Is(err, fs.ErrExist):
		return syscall.EEXIST, true
	case errors.Is(err, fs.ErrPermission):
		return syscall.EACCES, true
	case errors.Is(err, fs.ErrInvalid):
		return syscall.EINVAL, true
	}
	return def, false
}

func logUnclassified(op string, err error, def syscall.Errno) {
	if !diagLimiter.Allow() {
		diagSuppressed.Add(1)
		return
	}
	prefix := "pathfs"
	if op != "" {
		prefix = "pathfs: " + op
	}
	msg := fmt.Sprintf("%s: unclassified error %q answered with %s", prefix, describe(err), unix.ErrnoName(def))
	if n := diagSuppressed.Swap(0); n > 0 {
		msg = fmt.Sprintf("%s (%d similar messages suppressed)", msg, n)
	}
	logger.Warnf("%s", msg)
}

// describe returns err.Error(), or the dynamic type when Error panics.
func describe(err error) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("%T", err)
		}
	}()
	return err.Error()
}
