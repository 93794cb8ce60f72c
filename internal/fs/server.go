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
	"io"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/pathfuse/pathfuse/cfg"
	"github.com/pathfuse/pathfuse/internal/fs/wrappers"
	"github.com/pathfuse/pathfuse/internal/logger"
	"github.com/pathfuse/pathfuse/metrics"
	"golang.org/x/sync/semaphore"
)

// LoopMode selects how a loop serves ops.
type LoopMode int

const (
	// SingleThreaded completes each op before reading the next.
	SingleThreaded LoopMode = iota

	// MultiThreaded serves each op on its own goroutine.
	MultiThreaded
)

func (m LoopMode) String() string {
	if m == MultiThreaded {
		return "multi-threaded"
	}
	return "single-threaded"
}

// OpSource is the part of *fuse.Connection the server uses.
type OpSource interface {
	ReadOp() (context.Context, interface{}, error)
	Reply(ctx context.Context, err error)
}

type connSource struct {
	c *fuse.Connection
}

func (s connSource) ReadOp() (context.Context, interface{}, error) {
	return s.c.ReadOp()
}

func (s connSource) Reply(ctx context.Context, err error) {
	s.c.Reply(ctx, err)
}

type queuedOp struct {
	ctx context.Context
	op  interface{}
}

type loopRequest struct {
	mode LoopMode
	done chan error
}

// Server is a fuse.Server that reads ops only while a loop is running. Ops
// are handed to the wrapped file system built by NewServer.
type Server struct {
	fs         *fileSystem
	wrapped    fuseutil.FileSystem
	maxThreads int64

	loops     chan loopRequest
	exit      atomic.Bool
	closed    chan struct{}
	closeOnce sync.Once

	// Closed when ServeOps returns.
	served chan struct{}
}

// NewServer creates a fuse file system server according to the supplied
// configuration.
func NewServer(c *ServerConfig) (*Server, error) {
	fs, err := newFileSystem(c)
	if err != nil {
		return nil, fmt.Errorf("create file system: %w", err)
	}

	mh := c.MetricHandle
	if mh == nil {
		mh = metrics.NewNoopMetrics()
	}
	maxThreads := c.MaxThreads
	if maxThreads <= 0 {
		maxThreads = cfg.DefaultMaxThreads
	}

	var wrapped fuseutil.FileSystem = fs
	wrapped = wrappers.WithErrorMapping(wrapped)
	if c.DebugFuse {
		wrapped = wrappers.WithDebugLogging(wrapped)
	}
	wrapped = wrappers.WithMonitoring(wrapped, mh)
	if c.EnableTracing {
		wrapped = wrappers.WithTracing(wrapped)
	}

	return &Server{
		fs:         fs,
		wrapped:    wrapped,
		maxThreads: maxThreads,
		loops:      make(chan loopRequest),
		closed:     make(chan struct{}),
		served:     make(chan struct{}),
	}, nil
}

// ServeOps implements fuse.Server. It returns once the connection reports
// the file system unmounted or Close is called.
func (s *Server) ServeOps(c *fuse.Connection) {
	s.Serve(connSource{c})
}

// Serve answers ops read from src while loops run. It returns once src
// reports the file system unmounted or Close is called.
func (s *Server) Serve(src OpSource) {
	var pending *queuedOp
	for {
		select {
		case req := <-s.loops:
			unmounted, err := s.run(src, req.mode, &pending)
			if unmounted {
				s.finish()
			}
			req.done <- err
			if unmounted {
				return
			}

		case <-s.closed:
			if pending != nil {
				src.Reply(pending.ctx, syscall.ENOTCONN)
			}
			s.finish()
			return
		}
	}
}

// finish runs before a loop ended by unmounting returns, so that Done is
// already closed when it does.
func (s *Server) finish() {
	s.wrapped.Destroy()
	close(s.served)
}

// run serves ops until exit is requested or the connection ends. An op read
// after exit was requested is left in pending for the next loop.
func (s *Server) run(src OpSource, mode LoopMode, pending **queuedOp) (unmounted bool, err error) {
	var wg sync.WaitGroup
	defer wg.Wait()
	sem := semaphore.NewWeighted(s.maxThreads)

	serveOne := func(q queuedOp) {
		if mode == SingleThreaded {
			s.handleOp(src, q)
			return
		}
		if err := sem.Acquire(context.Background(), 1); err != nil {
			s.handleOp(src, q)
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			s.handleOp(src, q)
		}()
	}

	if *pending != nil {
		q := **pending
		*pending = nil
		serveOne(q)
	}

	for {
		if s.exit.CompareAndSwap(true, false) {
			return false, nil
		}

		ctx, op, err := src.ReadOp()
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return true, fmt.Errorf("ReadOp: %w", err)
		}

		q := queuedOp{ctx: ctx, op: op}
		if s.exit.CompareAndSwap(true, false) {
			*pending = &q
			return false, nil
		}
		serveOne(q)
	}
}

// Loop serves ops until RequestExit is called, ctx is done or the file
// system is unmounted. Loops run one at a time.
func (s *Server) Loop(ctx context.Context, mode LoopMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := loopRequest{mode: mode, done: make(chan error, 1)}
	select {
	case s.loops <- req:
	case <-s.served:
		return nil
	case <-s.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	stop := context.AfterFunc(ctx, s.RequestExit)
	defer stop()

	logger.Debugf("Serving ops (%v)", mode)
	return <-req.done
}

// RequestExit asks the running loop to return once its in-flight ops are
// answered. It takes effect when the loop next reads an op; that op is held
// for the next loop.
func (s *Server) RequestExit() {
	s.exit.Store(true)
}

// Close stops serving. Ops held since the last loop are answered with
// ENOTCONN.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// Done is closed once ServeOps has returned.
func (s *Server) Done() <-chan struct{} {
	return s.served
}

// Invalidate drops the kernel's caches for p. It fails with ENOENT when the
// kernel never looked p up.
func (s *Server) Invalidate(p string) error {
	return s.fs.Invalidate(p)
}

func (s *Server) handleOp(src OpSource, q queuedOp) {
	err := s.dispatchOp(q.ctx, q.op)
	src.Reply(q.ctx, err)
}

func (s *Server) dispatchOp(ctx context.Context, op interface{}) error {
	fs := s.wrapped
	switch typed := op.(type) {
	case *fuseops.StatFSOp:
		return fs.StatFS(ctx, typed)
	case *fuseops.LookUpInodeOp:
		return fs.LookUpInode(ctx, typed)
	case *fuseops.GetInodeAttributesOp:
		return fs.GetInodeAttributes(ctx, typed)
	case *fuseops.SetInodeAttributesOp:
		return fs.SetInodeAttributes(ctx, typed)
	case *fuseops.ForgetInodeOp:
		return fs.ForgetInode(ctx, typed)
	case *fuseops.BatchForgetOp:
		return fs.BatchForget(ctx, typed)
	case *fuseops.MkDirOp:
		return fs.MkDir(ctx, typed)
	case *fuseops.MkNodeOp:
		return fs.MkNode(ctx, typed)
	case *fuseops.CreateFileOp:
		return fs.CreateFile(ctx, typed)
	case *fuseops.CreateLinkOp:
		return fs.CreateLink(ctx, typed)
	case *fuseops.CreateSymlinkOp:
		return fs.CreateSymlink(ctx, typed)
	case *fuseops.RenameOp:
		return fs.Rename(ctx, typed)
	case *fuseops.RmDirOp:
		return fs.RmDir(ctx, typed)
	case *fuseops.UnlinkOp:
		return fs.Unlink(ctx, typed)
	case *fuseops.OpenDirOp:
		return fs.OpenDir(ctx, typed)
	case *fuseops.ReadDirOp:
		return fs.ReadDir(ctx, typed)
	case *fuseops.ReleaseDirHandleOp:
		return fs.ReleaseDirHandle(ctx, typed)
	case *fuseops.OpenFileOp:
		return fs.OpenFile(ctx, typed)
	case *fuseops.ReadFileOp:
		return fs.ReadFile(ctx, typed)
	case *fuseops.WriteFileOp:
		return fs.WriteFile(ctx, typed)
	case *fuseops.SyncFileOp:
		return fs.SyncFile(ctx, typed)
	case *fuseops.FlushFileOp:
		return fs.FlushFile(ctx, typed)
	case *fuseops.ReleaseFileHandleOp:
		return fs.ReleaseFileHandle(ctx, typed)
	case *fuseops.ReadSymlinkOp:
		return fs.ReadSymlink(ctx, typed)
	case *fuseops.RemoveXattrOp:
		return fs.RemoveXattr(ctx, typed)
	case *fuseops.GetXattrOp:
		return fs.GetXattr(ctx, typed)
	case *fuseops.ListXattrOp:
		return fs.ListXattr(ctx, typed)
	case *fuseops.SetXattrOp:
		return fs.SetXattr(ctx, typed)
	case *fuseops.FallocateOp:
		return fs.Fallocate(ctx, typed)
	case *fuseops.SyncFSOp:
		return fs.SyncFS(ctx, typed)
	}
	return syscall.ENOSYS
}
