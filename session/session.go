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

// Package session mounts a pathfs.Handler and controls the loops that serve
// it.
//
// A typical use:
//
//	s, err := session.Start(ctx, "/mnt/demo", []string{"allow_other"}, nil, h, nil)
//	if err != nil {
//		return err
//	}
//	defer s.Unmount()
//	return s.LoopMT(ctx)
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/timeutil"
	"github.com/pathfuse/pathfuse/cfg"
	"github.com/pathfuse/pathfuse/internal/fs"
	"github.com/pathfuse/pathfuse/internal/logger"
	"github.com/pathfuse/pathfuse/internal/mount"
	"github.com/pathfuse/pathfuse/metrics"
	"github.com/pathfuse/pathfuse/pathfs"
)

var (
	// ErrSessionActive is returned by Start while another session is mounted.
	ErrSessionActive = errors.New("a session is already active")

	// ErrNotActive is returned for operations on an unmounted session.
	ErrNotActive = errors.New("session is not active")

	// ErrNotMounted is returned by MountName once the session is unmounted.
	ErrNotMounted = errors.New("session is not mounted")
)

// State is the lifecycle stage of a session.
type State int

const (
	Mounted State = iota
	Looping
	Exiting
	Unmounted
)

func (s State) String() string {
	switch s {
	case Mounted:
		return "mounted"
	case Looping:
		return "looping"
	case Exiting:
		return "exiting"
	case Unmounted:
		return "unmounted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configure Start. The zero value is usable.
type Options struct {
	// Identifies the session. A random ID is chosen when nil.
	ID uuid.UUID

	// Values for settings the library option tokens leave unset. Zero
	// fields take the package defaults.
	Defaults mount.LibOptions

	// Used for fsname, subtype and volname when the kernel options leave
	// them unset. Defaults to "pathfuse".
	Name string

	MetricHandle  metrics.MetricHandle
	EnableTracing bool

	// Clock for attribute and entry expirations. Defaults to the real clock.
	CacheClock timeutil.Clock
}

const defaultName = "pathfuse"

func defaultLibOptions(d mount.LibOptions) mount.LibOptions {
	if d.MaxThreads <= 0 {
		d.MaxThreads = cfg.DefaultMaxThreads
	}
	if d.AttrTimeout == 0 {
		d.AttrTimeout = time.Second
	}
	if d.EntryTimeout == 0 {
		d.EntryTimeout = time.Second
	}
	if d.DefaultErrno == 0 {
		d.DefaultErrno = pathfs.DefaultErrno
	}
	return d
}

// mountedFS is the part of *fuse.MountedFileSystem a session uses.
type mountedFS interface {
	Dir() string
	Join(ctx context.Context) error
}

// Replaced in tests.
var (
	mountFunc = func(dir string, server *fs.Server, n *fuse.Notifier, mc *fuse.MountConfig) (mountedFS, error) {
		return fuse.Mount(dir, fuse.NewServerWithNotifier(n, server), mc)
	}
	unmountFunc = fuse.Unmount
)

// Session is a mounted file system together with the dispatcher serving
// it.
type Session struct {
	id         uuid.UUID
	mountPoint string
	kernelOpts []string
	libOpts    mount.LibOptions

	dispatcher *pathfs.Dispatcher
	server     *fs.Server
	mfs        mountedFS

	mu sync.Mutex

	// GUARDED_BY(mu)
	loops     int
	exiting   bool
	unmounted bool
}

// Start mounts h at mountPoint. kernelOpts are passed to the kernel and
// libOpts configure the library (see mount.ParseLibOptions). It fails with
// ErrSessionActive while another session is active.
func Start(
	ctx context.Context,
	mountPoint string,
	kernelOpts []string,
	libOpts []string,
	h pathfs.Handler,
	opts *Options) (*Session, error) {
	if h == nil {
		return nil, errors.New("nil handler")
	}
	if opts == nil {
		opts = &Options{}
	}
	name := opts.Name
	if name == "" {
		name = defaultName
	}

	fi, err := os.Stat(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("mount point: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("mount point %q: %w", mountPoint, syscall.ENOTDIR)
	}

	lib, err := mount.ParseLibOptions(libOpts, defaultLibOptions(opts.Defaults))
	if err != nil {
		return nil, fmt.Errorf("library options: %w", err)
	}
	kernel := mount.ParseKernelOptions(kernelOpts)

	mh := opts.MetricHandle
	if mh == nil {
		mh = metrics.NewNoopMetrics()
	}

	id := opts.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	s := &Session{
		id:         id,
		mountPoint: mountPoint,
		kernelOpts: append([]string(nil), kernelOpts...),
		libOpts:    lib,
		dispatcher: pathfs.NewDispatcher(h,
			pathfs.WithDefaultErrno(lib.DefaultErrno),
			pathfs.WithMetricHandle(mh)),
	}
	if err := sessions.reserve(s); err != nil {
		return nil, err
	}

	notifier := fuse.NewNotifier()
	s.server, err = fs.NewServer(&fs.ServerConfig{
		Dispatcher:    s.dispatcher,
		CacheClock:    opts.CacheClock,
		AttrTimeout:   lib.AttrTimeout,
		EntryTimeout:  lib.EntryTimeout,
		Notifier:      notifier,
		MaxThreads:    lib.MaxThreads,
		MetricHandle:  mh,
		DebugFuse:     lib.Debug,
		EnableTracing: opts.EnableTracing,
	})
	if err != nil {
		sessions.release(s)
		return nil, fmt.Errorf("create server: %w", err)
	}

	mc := kernel.MountConfig(name)
	mc.OpContext = context.WithoutCancel(ctx)
	mc.ErrorLogger = logger.NewLegacyLogger(logger.LevelError, "fuse: ")
	if lib.Debug {
		mc.DebugLogger = logger.NewLegacyLogger(logger.LevelTrace, "fuse_debug: ")
	}

	logger.Infof("Mounting %s at %q (session %s)", mc.FSName, mountPoint, s.id)
	s.mfs, err = mountFunc(mountPoint, s.server, notifier, mc)
	if err != nil {
		s.server.Close()
		sessions.release(s)
		return nil, fmt.Errorf("mount: %w", err)
	}
	return s, nil
}

// ID identifies the session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State reports where the session is in its lifecycle.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.unmounted:
		return Unmounted
	case s.exiting:
		return Exiting
	case s.loops > 0:
		return Looping
	}
	return Mounted
}

// MountName returns the directory the session is mounted at.
func (s *Session) MountName() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmounted {
		return "", ErrNotMounted
	}
	return s.mountPoint, nil
}

// KernelOptions returns the kernel option tokens given to Start.
func (s *Session) KernelOptions() []string {
	return append([]string(nil), s.kernelOpts...)
}

// LibOptions returns the effective library options.
func (s *Session) LibOptions() mount.LibOptions {
	return s.libOpts
}

// Loop serves ops one at a time until RequestExit is called, ctx is done or
// the file system is unmounted.
func (s *Session) Loop(ctx context.Context) error {
	return s.loop(ctx, fs.SingleThreaded)
}

// LoopMT is like Loop but serves each op on its own goroutine, at most
// max_threads at once.
func (s *Session) LoopMT(ctx context.Context) error {
	return s.loop(ctx, fs.MultiThreaded)
}

func (s *Session) loop(ctx context.Context, mode fs.LoopMode) error {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.loops++
	s.mu.Unlock()

	err := s.server.Loop(ctx, mode)

	s.mu.Lock()
	s.loops--
	if s.loops == 0 {
		s.exiting = false
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%v loop: %w", mode, err)
	}
	return nil
}

// RequestExit asks the running loop to return once its in-flight ops are
// answered. Ops read afterwards are held for the next loop.
func (s *Session) RequestExit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmounted {
		return ErrNotActive
	}
	if s.loops > 0 {
		s.exiting = true
	}
	s.server.RequestExit()
	return nil
}

// Invalidate drops the kernel's cached attributes, data and directory entry
// for path. It fails with ENOENT when the kernel never looked path up.
func (s *Session) Invalidate(path string) error {
	s.mu.Lock()
	unmounted := s.unmounted
	s.mu.Unlock()
	if unmounted {
		return ErrNotActive
	}
	return s.server.Invalidate(path)
}

// Unmount detaches the file system, waits for it to stop serving and
// releases the session. A busy file system stays mounted.
func (s *Session) Unmount() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmounted {
		return ErrNotActive
	}

	select {
	case <-s.server.Done():
		// Already unmounted from outside.
	default:
		if err := unmountFunc(s.mountPoint); err != nil {
			return fmt.Errorf("unmount %q: %w", s.mountPoint, err)
		}
	}

	s.server.Close()
	if err := s.mfs.Join(context.Background()); err != nil {
		logger.Warnf("Session %s: serving ended with: %v", s.id, err)
	}

	s.unmounted = true
	sessions.release(s)
	logger.Infof("Unmounted %q (session %s)", s.mountPoint, s.id)
	return nil
}
