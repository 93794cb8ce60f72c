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

package session

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/timeutil"
	"github.com/pathfuse/pathfuse/internal/fs"
	"github.com/pathfuse/pathfuse/internal/memfs"
	"github.com/pathfuse/pathfuse/pathfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const waitTimeout = 5 * time.Second

type opKey struct{}

type reply struct {
	op  interface{}
	err error
}

// fakeMount stands in for a kernel mount. Closing ops unmounts.
type fakeMount struct {
	dir     string
	server  *fs.Server
	ops     chan interface{}
	replies chan reply
	config  *fuse.MountConfig
}

func (m *fakeMount) ReadOp() (context.Context, interface{}, error) {
	op, ok := <-m.ops
	if !ok {
		return nil, nil, io.EOF
	}
	return context.WithValue(context.Background(), opKey{}, op), op, nil
}

func (m *fakeMount) Reply(ctx context.Context, err error) {
	m.replies <- reply{op: ctx.Value(opKey{}), err: err}
}

func (m *fakeMount) Dir() string {
	return m.dir
}

func (m *fakeMount) Join(ctx context.Context) error {
	select {
	case <-m.server.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// failingHandler fails every GetAttr with an error carrying no errno.
type failingHandler struct {
	pathfs.NotImplementedHandler
}

func (h *failingHandler) GetAttr(ctx context.Context, rc pathfs.RequestContext, p string) (*pathfs.Attributes, error) {
	return nil, errors.New("backend unavailable")
}

type SessionTest struct {
	suite.Suite
	ctx      context.Context
	dir      string
	handler  pathfs.Handler
	mount    *fakeMount
	mountErr error

	unmountErr   error
	unmountCalls int
	unmounted    bool

	origMount   func(string, *fs.Server, *fuse.Notifier, *fuse.MountConfig) (mountedFS, error)
	origUnmount func(string) error
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTest))
}

func (t *SessionTest) SetupTest() {
	t.ctx = context.Background()
	t.dir = t.T().TempDir()
	t.handler = memfs.New(timeutil.RealClock(), 0, 0, 0755)
	t.mount = nil
	t.mountErr = nil
	t.unmountErr = nil
	t.unmountCalls = 0
	t.unmounted = false

	t.origMount, t.origUnmount = mountFunc, unmountFunc
	mountFunc = func(dir string, server *fs.Server, n *fuse.Notifier, mc *fuse.MountConfig) (mountedFS, error) {
		if t.mountErr != nil {
			return nil, t.mountErr
		}
		t.mount = &fakeMount{
			dir:     dir,
			server:  server,
			ops:     make(chan interface{}),
			replies: make(chan reply, 16),
			config:  mc,
		}
		go server.Serve(t.mount)
		return t.mount, nil
	}
	unmountFunc = func(dir string) error {
		t.unmountCalls++
		if t.unmountErr != nil {
			return t.unmountErr
		}
		t.externalUnmount()
		return nil
	}
}

func (t *SessionTest) TearDownTest() {
	if s := Active(); s != nil {
		t.unmountErr = nil
		assert.NoError(t.T(), s.Unmount())
	}
	mountFunc, unmountFunc = t.origMount, t.origUnmount
}

func (t *SessionTest) externalUnmount() {
	if !t.unmounted {
		close(t.mount.ops)
		t.unmounted = true
	}
}

func (t *SessionTest) start(kernelOpts, libOpts []string) *Session {
	s, err := Start(t.ctx, t.dir, kernelOpts, libOpts, t.handler, nil)
	require.NoError(t.T(), err)
	return s
}

func (t *SessionTest) send(op interface{}) {
	select {
	case t.mount.ops <- op:
	case <-time.After(waitTimeout):
		t.FailNow("op was not read")
	}
}

func (t *SessionTest) nextReply() reply {
	select {
	case r := <-t.mount.replies:
		return r
	case <-time.After(waitTimeout):
		t.FailNow("no reply")
	}
	return reply{}
}

func (t *SessionTest) loop(s *Session, multi bool) <-chan error {
	done := make(chan error, 1)
	go func() {
		if multi {
			done <- s.LoopMT(t.ctx)
		} else {
			done <- s.Loop(t.ctx)
		}
	}()
	return done
}

func (t *SessionTest) loopResult(done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-time.After(waitTimeout):
		t.FailNow("loop did not return")
	}
	return nil
}

func lookUp(name string) *fuseops.LookUpInodeOp {
	return &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: name}
}

////////////////////////////////////////////////////////////////////////
// Start
////////////////////////////////////////////////////////////////////////

func (t *SessionTest) TestStart() {
	s := t.start(nil, nil)

	name, err := s.MountName()
	require.NoError(t.T(), err)
	assert.Equal(t.T(), t.dir, name)
	assert.Equal(t.T(), Mounted, s.State())
	assert.Same(t.T(), s, Active())
	found, ok := Lookup(s.ID())
	assert.True(t.T(), ok)
	assert.Same(t.T(), s, found)
}

func (t *SessionTest) TestStartWhileActive() {
	t.start(nil, nil)
	other := t.T().TempDir()

	_, err := Start(t.ctx, other, nil, nil, t.handler, nil)

	assert.ErrorIs(t.T(), err, ErrSessionActive)
}

func (t *SessionTest) TestStartMissingMountPoint() {
	_, err := Start(t.ctx, filepath.Join(t.dir, "missing"), nil, nil, t.handler, nil)

	assert.ErrorIs(t.T(), err, os.ErrNotExist)
	assert.Nil(t.T(), Active())
}

func (t *SessionTest) TestStartMountPointIsFile() {
	f := filepath.Join(t.dir, "file")
	require.NoError(t.T(), os.WriteFile(f, nil, 0644))

	_, err := Start(t.ctx, f, nil, nil, t.handler, nil)

	assert.ErrorIs(t.T(), err, syscall.ENOTDIR)
	assert.Nil(t.T(), Active())
}

func (t *SessionTest) TestStartNilHandler() {
	_, err := Start(t.ctx, t.dir, nil, nil, nil, nil)

	assert.Error(t.T(), err)
}

func (t *SessionTest) TestStartBadLibOption() {
	_, err := Start(t.ctx, t.dir, nil, []string{"max_threads=none"}, t.handler, nil)

	assert.Error(t.T(), err)
	assert.Nil(t.T(), Active())
}

func (t *SessionTest) TestMountFailureReleasesSlot() {
	t.mountErr = syscall.EPERM

	_, err := Start(t.ctx, t.dir, nil, nil, t.handler, nil)

	assert.ErrorIs(t.T(), err, syscall.EPERM)
	assert.Nil(t.T(), Active())
}

func (t *SessionTest) TestMountConfig() {
	t.start([]string{"fsname=demo,ro", "allow_other"}, nil)

	mc := t.mount.config
	assert.Equal(t.T(), "demo", mc.FSName)
	assert.Equal(t.T(), "pathfuse", mc.Subtype)
	assert.True(t.T(), mc.ReadOnly)
	assert.Equal(t.T(), map[string]string{"allow_other": ""}, mc.Options)
	assert.NotNil(t.T(), mc.ErrorLogger)
	assert.Nil(t.T(), mc.DebugLogger)
}

func (t *SessionTest) TestDebugLibOption() {
	s := t.start(nil, []string{"debug"})

	assert.True(t.T(), s.LibOptions().Debug)
	assert.NotNil(t.T(), t.mount.config.DebugLogger)
}

func (t *SessionTest) TestLibOptionDefaults() {
	s := t.start(nil, []string{"max_threads=3"})

	o := s.LibOptions()
	assert.Equal(t.T(), int64(3), o.MaxThreads)
	assert.Equal(t.T(), time.Second, o.AttrTimeout)
	assert.Equal(t.T(), time.Second, o.EntryTimeout)
	assert.Equal(t.T(), syscall.ENOENT, o.DefaultErrno)
}

////////////////////////////////////////////////////////////////////////
// Loops
////////////////////////////////////////////////////////////////////////

func (t *SessionTest) TestLoopServesOps() {
	s := t.start(nil, nil)
	done := t.loop(s, false)
	mkdir := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "d", Mode: os.ModeDir | 0755}

	t.send(mkdir)
	r := t.nextReply()

	assert.NoError(t.T(), r.err)
	assert.NotZero(t.T(), mkdir.Entry.Child)
	assert.Equal(t.T(), Looping, s.State())

	t.send(lookUp("missing"))
	assert.Equal(t.T(), syscall.ENOENT, t.nextReply().err)

	require.NoError(t.T(), s.RequestExit())
	assert.Equal(t.T(), Exiting, s.State())
	t.send(lookUp("d"))
	assert.NoError(t.T(), t.loopResult(done))
	assert.Equal(t.T(), Mounted, s.State())
}

func (t *SessionTest) TestHeldOpServedByNextLoop() {
	s := t.start(nil, nil)
	done := t.loop(s, false)
	t.send(lookUp("warmup"))
	t.nextReply()
	require.NoError(t.T(), s.RequestExit())
	held := lookUp("later")
	t.send(held)
	require.NoError(t.T(), t.loopResult(done))

	t.loop(s, true)

	r := t.nextReply()
	assert.Same(t.T(), held, r.op)
	assert.Equal(t.T(), syscall.ENOENT, r.err)
}

func (t *SessionTest) TestDefaultErrno() {
	t.handler = &failingHandler{}
	s := t.start(nil, []string{"default_errno=EIO"})
	t.loop(s, true)

	t.send(lookUp("x"))

	assert.Equal(t.T(), syscall.EIO, t.nextReply().err)
}

func (t *SessionTest) TestUnclassifiedFailureUsesEnoent() {
	t.handler = &failingHandler{}
	s := t.start(nil, nil)
	t.loop(s, false)

	t.send(lookUp("x"))

	assert.Equal(t.T(), syscall.ENOENT, t.nextReply().err)
}

func (t *SessionTest) TestExternalUnmountEndsLoop() {
	s := t.start(nil, nil)
	done := t.loop(s, true)

	t.externalUnmount()

	assert.NoError(t.T(), t.loopResult(done))
	select {
	case <-s.server.Done():
	case <-time.After(waitTimeout):
		t.FailNow("server did not stop")
	}
	require.NoError(t.T(), s.Unmount())
	assert.Equal(t.T(), 0, t.unmountCalls)
}

////////////////////////////////////////////////////////////////////////
// Invalidate
////////////////////////////////////////////////////////////////////////

func (t *SessionTest) TestInvalidateUnknownPath() {
	s := t.start(nil, nil)

	err := s.Invalidate("/never/looked/up")

	assert.Equal(t.T(), syscall.ENOENT, err)
}

////////////////////////////////////////////////////////////////////////
// Unmount
////////////////////////////////////////////////////////////////////////

func (t *SessionTest) TestUnmountWhileLooping() {
	s := t.start(nil, nil)
	done := t.loop(s, false)
	t.send(lookUp("warmup"))
	t.nextReply()

	require.NoError(t.T(), s.Unmount())

	assert.NoError(t.T(), t.loopResult(done))
	assert.Equal(t.T(), Unmounted, s.State())
	assert.Equal(t.T(), 1, t.unmountCalls)
	assert.Nil(t.T(), Active())
	_, ok := Lookup(s.ID())
	assert.False(t.T(), ok)
}

func (t *SessionTest) TestUnmountedSession() {
	s := t.start(nil, nil)
	require.NoError(t.T(), s.Unmount())

	_, err := s.MountName()
	assert.ErrorIs(t.T(), err, ErrNotMounted)
	assert.ErrorIs(t.T(), s.Loop(t.ctx), ErrNotActive)
	assert.ErrorIs(t.T(), s.LoopMT(t.ctx), ErrNotActive)
	assert.ErrorIs(t.T(), s.RequestExit(), ErrNotActive)
	assert.ErrorIs(t.T(), s.Invalidate("/"), ErrNotActive)
	assert.ErrorIs(t.T(), s.Unmount(), ErrNotActive)
}

func (t *SessionTest) TestUnmountBusy() {
	s := t.start(nil, nil)
	t.unmountErr = syscall.EBUSY

	err := s.Unmount()

	assert.ErrorIs(t.T(), err, syscall.EBUSY)
	assert.Equal(t.T(), Mounted, s.State())
	assert.Same(t.T(), s, Active())
}

func (t *SessionTest) TestStartAfterUnmount() {
	s := t.start(nil, nil)
	require.NoError(t.T(), s.Unmount())

	s2 := t.start(nil, nil)

	assert.NotEqual(t.T(), s.ID(), s2.ID())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "mounted", Mounted.String())
	assert.Equal(t, "looping", Looping.String())
	assert.Equal(t, "exiting", Exiting.String())
	assert.Equal(t, "unmounted", Unmounted.String())
	assert.Equal(t, "State(9)", State(9).String())
}
