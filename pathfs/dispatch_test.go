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
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/pathfuse/pathfuse/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type outcome int

const (
	succeed outcome = iota
	classified
	unclassified
	panicking
)

// outcomeHandler answers every operation according to its outcome.
type outcomeHandler struct {
	outcome outcome
}

func (h *outcomeHandler) result() error {
	switch h.outcome {
	case classified:
		return syscall.EACCES
	case unclassified:
		return errors.New("backend unavailable")
	case panicking:
		panic("handler bug")
	}
	return nil
}

func (h *outcomeHandler) GetAttr(ctx context.Context, rc RequestContext, path string) (*Attributes, error) {
	return &Attributes{Mode: 0644, Size: 3}, h.result()
}

func (h *outcomeHandler) Readlink(ctx context.Context, rc RequestContext, path string) (string, error) {
	return "/target", h.result()
}

func (h *outcomeHandler) Mknod(ctx context.Context, rc RequestContext, path string, mode os.FileMode, rdev uint32) error {
	return h.result()
}

func (h *outcomeHandler) Mkdir(ctx context.Context, rc RequestContext, path string, mode os.FileMode) error {
	return h.result()
}

func (h *outcomeHandler) Unlink(ctx context.Context, rc RequestContext, path string) error {
	return h.result()
}

func (h *outcomeHandler) Rmdir(ctx context.Context, rc RequestContext, path string) error {
	return h.result()
}

func (h *outcomeHandler) Symlink(ctx context.Context, rc RequestContext, target string, path string) error {
	return h.result()
}

func (h *outcomeHandler) Rename(ctx context.Context, rc RequestContext, from string, to string) error {
	return h.result()
}

func (h *outcomeHandler) Link(ctx context.Context, rc RequestContext, from string, to string) error {
	return h.result()
}

func (h *outcomeHandler) Chmod(ctx context.Context, rc RequestContext, path string, mode os.FileMode) error {
	return h.result()
}

func (h *outcomeHandler) Chown(ctx context.Context, rc RequestContext, path string, uid int, gid int) error {
	return h.result()
}

func (h *outcomeHandler) Truncate(ctx context.Context, rc RequestContext, path string, size int64) error {
	return h.result()
}

func (h *outcomeHandler) Utime(ctx context.Context, rc RequestContext, path string, atime int64, mtime int64) error {
	return h.result()
}

func (h *outcomeHandler) Utimens(ctx context.Context, rc RequestContext, path string, atime int64, mtime int64) error {
	return h.result()
}

func (h *outcomeHandler) Open(ctx context.Context, rc RequestContext, path string, flags uint32) (HandleID, error) {
	return 11, h.result()
}

func (h *outcomeHandler) Read(ctx context.Context, rc RequestContext, path string, fh HandleID, size int, offset int64) ([]byte, error) {
	return []byte("abcdefgh"), h.result()
}

func (h *outcomeHandler) Write(ctx context.Context, rc RequestContext, path string, fh HandleID, data []byte, offset int64) (int, error) {
	return len(data), h.result()
}

func (h *outcomeHandler) Flush(ctx context.Context, rc RequestContext, path string, fh HandleID) error {
	return h.result()
}

func (h *outcomeHandler) Release(ctx context.Context, rc RequestContext, path string, fh HandleID) error {
	return h.result()
}

func (h *outcomeHandler) SetXattr(ctx context.Context, rc RequestContext, path string, name string, value []byte, flags uint32) error {
	return h.result()
}

func (h *outcomeHandler) GetXattr(ctx context.Context, rc RequestContext, path string, name string) ([]byte, error) {
	return []byte("value"), h.result()
}

func (h *outcomeHandler) ListXattr(ctx context.Context, rc RequestContext, path string) ([]string, error) {
	return []string{"user.a"}, h.result()
}

func (h *outcomeHandler) RemoveXattr(ctx context.Context, rc RequestContext, path string, name string) error {
	return h.result()
}

func (h *outcomeHandler) OpenDir(ctx context.Context, rc RequestContext, path string) (HandleID, error) {
	return 12, h.result()
}

func (h *outcomeHandler) ReadDir(ctx context.Context, rc RequestContext, path string, fh HandleID, filler *DirFiller, offset int64) error {
	filler.Add("child", nil, 0)
	return h.result()
}

func (h *outcomeHandler) ReleaseDir(ctx context.Context, rc RequestContext, path string, fh HandleID) error {
	return h.result()
}

func (h *outcomeHandler) FsyncDir(ctx context.Context, rc RequestContext, path string, fh HandleID, dataOnly bool) error {
	return h.result()
}

// calls invokes every supported operation once and returns its error.
func calls(ctx context.Context, rc RequestContext) map[OpKind]func(d *Dispatcher) error {
	return map[OpKind]func(d *Dispatcher) error{
		OpGetAttr:  func(d *Dispatcher) error { _, err := d.GetAttr(ctx, rc, "/f"); return err },
		OpReadlink: func(d *Dispatcher) error { _, err := d.Readlink(ctx, rc, "/l"); return err },
		OpMknod:    func(d *Dispatcher) error { return d.Mknod(ctx, rc, "/n", 0644, 0) },
		OpMkdir:    func(d *Dispatcher) error { return d.Mkdir(ctx, rc, "/d", 0755) },
		OpUnlink:   func(d *Dispatcher) error { return d.Unlink(ctx, rc, "/f") },
		OpRmdir:    func(d *Dispatcher) error { return d.Rmdir(ctx, rc, "/d") },
		OpSymlink:  func(d *Dispatcher) error { return d.Symlink(ctx, rc, "/f", "/l") },
		OpRename:   func(d *Dispatcher) error { return d.Rename(ctx, rc, "/f", "/g") },
		OpLink:     func(d *Dispatcher) error { return d.Link(ctx, rc, "/f", "/h") },
		OpChmod:    func(d *Dispatcher) error { return d.Chmod(ctx, rc, "/f", 0600) },
		OpChown:    func(d *Dispatcher) error { return d.Chown(ctx, rc, "/f", 1000, -1) },
		OpTruncate: func(d *Dispatcher) error { return d.Truncate(ctx, rc, "/f", 1<<40) },
		OpUtime:    func(d *Dispatcher) error { return d.Utime(ctx, rc, "/f", 1, 2) },
		OpOpen:     func(d *Dispatcher) error { _, err := d.Open(ctx, rc, "/f", 0); return err },
		OpRead:     func(d *Dispatcher) error { _, err := d.Read(ctx, rc, "/f", 11, 4, 1<<33); return err },
		OpWrite:    func(d *Dispatcher) error { _, err := d.Write(ctx, rc, "/f", 11, []byte("xy"), 0); return err },
		OpFlush:    func(d *Dispatcher) error { return d.Flush(ctx, rc, "/f", 11) },
		OpRelease:  func(d *Dispatcher) error { return d.Release(ctx, rc, "/f", 11) },
		OpSetXattr: func(d *Dispatcher) error { return d.SetXattr(ctx, rc, "/f", "user.a", []byte("v"), 0) },
		OpGetXattr: func(d *Dispatcher) error { _, err := d.GetXattr(ctx, rc, "/f", "user.a", nil); return err },
		OpListXattr: func(d *Dispatcher) error {
			_, err := d.ListXattr(ctx, rc, "/f", nil)
			return err
		},
		OpRemoveXattr: func(d *Dispatcher) error { return d.RemoveXattr(ctx, rc, "/f", "user.a") },
		OpOpenDir:     func(d *Dispatcher) error { _, err := d.OpenDir(ctx, rc, "/d"); return err },
		OpReadDir: func(d *Dispatcher) error {
			return d.ReadDir(ctx, rc, "/d", 12, NewDirFiller(4), 0)
		},
		OpReleaseDir: func(d *Dispatcher) error { return d.ReleaseDir(ctx, rc, "/d", 12) },
		OpFsyncDir:   func(d *Dispatcher) error { return d.FsyncDir(ctx, rc, "/d", 12, false) },
		OpUtimens:    func(d *Dispatcher) error { return d.Utimens(ctx, rc, "/f", 1, 2) },
	}
}

// recordingMetrics counts the handler metrics reported by a Dispatcher.
type recordingMetrics struct {
	metrics.MetricHandle
	mu           sync.Mutex
	panics       map[string]int64
	unclassified map[string]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		MetricHandle: metrics.NewNoopMetrics(),
		panics:       make(map[string]int64),
		unclassified: make(map[string]int64),
	}
}

func (m *recordingMetrics) HandlerPanicCount(inc int64, handlerOp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics[handlerOp] += inc
}

func (m *recordingMetrics) HandlerUnclassifiedErrorCount(inc int64, handlerOp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unclassified[handlerOp] += inc
}

type DispatcherTest struct {
	suite.Suite
	ctx   context.Context
	rc    RequestContext
	calls map[OpKind]func(d *Dispatcher) error
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherTest))
}

func (t *DispatcherTest) SetupTest() {
	t.ctx = context.Background()
	t.rc = RequestContext{Uid: 1000, Gid: 1000, Pid: 42}
	t.calls = calls(t.ctx, t.rc)
}

func (t *DispatcherTest) TestEverySupportedKindIsCovered() {
	d := NewDispatcher(&outcomeHandler{})

	for _, k := range AllOpKinds() {
		_, ok := t.calls[k]
		assert.Equal(t.T(), d.Supported(k), ok, "kind %s", k)
	}
}

func (t *DispatcherTest) TestSuccess() {
	d := NewDispatcher(&outcomeHandler{outcome: succeed})

	for k, call := range t.calls {
		assert.NoError(t.T(), call(d), "kind %s", k)
	}
}

func (t *DispatcherTest) TestClassifiedFailurePropagatesVerbatim() {
	d := NewDispatcher(&outcomeHandler{outcome: classified})

	for k, call := range t.calls {
		assert.Equal(t.T(), syscall.EACCES, call(d), "kind %s", k)
	}
}

func (t *DispatcherTest) TestUnclassifiedFailureGivesDefault() {
	m := newRecordingMetrics()
	d := NewDispatcher(&outcomeHandler{outcome: unclassified}, WithMetricHandle(m))

	for k, call := range t.calls {
		assert.Equal(t.T(), syscall.ENOENT, call(d), "kind %s", k)
		assert.Equal(t.T(), int64(1), m.unclassified[k.String()], "kind %s", k)
	}
	assert.Empty(t.T(), m.panics)
}

func (t *DispatcherTest) TestPanicGivesDefault() {
	m := newRecordingMetrics()
	d := NewDispatcher(&outcomeHandler{outcome: panicking}, WithMetricHandle(m))

	for k, call := range t.calls {
		var err error
		require.NotPanics(t.T(), func() { err = call(d) }, "kind %s", k)
		assert.Equal(t.T(), syscall.ENOENT, err, "kind %s", k)
		assert.Equal(t.T(), int64(1), m.panics[k.String()], "kind %s", k)
	}
	assert.Empty(t.T(), m.unclassified)
}

func (t *DispatcherTest) TestConfiguredDefaultErrno() {
	d := NewDispatcher(&outcomeHandler{outcome: unclassified},
		WithDefaultErrno(syscall.EIO),
		WithOpDefaultErrno(OpGetXattr, syscall.ENODATA))

	for k, call := range t.calls {
		expected := syscall.EIO
		if k == OpGetXattr {
			expected = syscall.ENODATA
		}
		assert.Equal(t.T(), expected, call(d), "kind %s", k)
	}
	assert.Equal(t.T(), syscall.ENODATA, d.DefaultErrno(OpGetXattr))
	assert.Equal(t.T(), syscall.EIO, d.DefaultErrno(OpRead))
}

func (t *DispatcherTest) TestInvalidPathNeverReachesHandler() {
	h := &countingHandler{}
	d := NewDispatcher(h)

	_, err := d.GetAttr(t.ctx, t.rc, "/bad\x00path")
	assert.Equal(t.T(), syscall.EINVAL, err)
	err = d.Rename(t.ctx, t.rc, "/ok", "/\xff")
	assert.Equal(t.T(), syscall.EINVAL, err)
	err = d.SetXattr(t.ctx, t.rc, "/ok", "user.\x00", nil, 0)
	assert.Equal(t.T(), syscall.EINVAL, err)

	assert.Equal(t.T(), 0, h.calls)
}

func (t *DispatcherTest) TestRejectsNegativeArguments() {
	d := NewDispatcher(&outcomeHandler{})

	assert.Equal(t.T(), syscall.EINVAL, d.Truncate(t.ctx, t.rc, "/f", -1))
	assert.Equal(t.T(), syscall.EINVAL, d.Chown(t.ctx, t.rc, "/f", -2, 0))
	_, err := d.Read(t.ctx, t.rc, "/f", 1, 4, -1)
	assert.Equal(t.T(), syscall.EINVAL, err)
	_, err = d.Write(t.ctx, t.rc, "/f", 1, nil, -1)
	assert.Equal(t.T(), syscall.EINVAL, err)
	assert.Equal(t.T(), syscall.EINVAL, d.ReadDir(t.ctx, t.rc, "/d", 1, nil, 0))
}

func (t *DispatcherTest) TestGetAttrNilAttributesGivesDefault() {
	d := NewDispatcher(&nilAttrsHandler{})

	_, err := d.GetAttr(t.ctx, t.rc, "/f")

	assert.Equal(t.T(), syscall.ENOENT, err)
}

func (t *DispatcherTest) TestReadClipsToCapacity() {
	d := NewDispatcher(&outcomeHandler{})

	data, err := d.Read(t.ctx, t.rc, "/f", 11, 4, 0)

	require.NoError(t.T(), err)
	assert.Equal(t.T(), []byte("abcd"), data)
}

func (t *DispatcherTest) TestReadShorterThanCapacity() {
	d := NewDispatcher(&outcomeHandler{})

	data, err := d.Read(t.ctx, t.rc, "/f", 11, 64, 0)

	require.NoError(t.T(), err)
	assert.Equal(t.T(), []byte("abcdefgh"), data)
}

func (t *DispatcherTest) TestHandlesPassThroughUnchanged() {
	h := &memoHandler{}
	d := NewDispatcher(h)

	fh, err := d.Open(t.ctx, t.rc, "/f", uint32(os.O_RDWR))
	require.NoError(t.T(), err)
	_, err = d.Read(t.ctx, t.rc, "/f", fh, 1, 0)
	require.NoError(t.T(), err)
	require.NoError(t.T(), d.Flush(t.ctx, t.rc, "/f", fh))
	require.NoError(t.T(), d.Release(t.ctx, t.rc, "/f", fh))

	assert.Equal(t.T(), HandleID(0xfeedface), fh)
	assert.Equal(t.T(), []HandleID{0xfeedface, 0xfeedface, 0xfeedface}, h.seenHandles)
	assert.Equal(t.T(), uint32(os.O_RDWR), h.openFlags)
}

func (t *DispatcherTest) TestWriteWithEmbeddedZeroCopiesEverything() {
	h := &memoHandler{}
	d := NewDispatcher(h)
	payload := []byte{'a', 'b', 'c', 'd', 'e', 0, 'g', 'h', 'i', 'j'}

	n, err := d.Write(t.ctx, t.rc, "/f", 1, payload, 0)
	payload[0] = 'z'

	require.NoError(t.T(), err)
	assert.Equal(t.T(), 10, n)
	assert.Equal(t.T(), []byte{'a', 'b', 'c', 'd', 'e', 0, 'g', 'h', 'i', 'j'}, h.written)
}

func (t *DispatcherTest) TestWriteOverReportedCountIsIOError() {
	h := &memoHandler{writeCount: 99}
	d := NewDispatcher(h)

	_, err := d.Write(t.ctx, t.rc, "/f", 1, []byte("abc"), 0)

	assert.Equal(t.T(), syscall.EIO, err)
}

func (t *DispatcherTest) TestUtimensRoundTripKeepsNanoseconds() {
	h := &memoHandler{}
	d := NewDispatcher(h)
	ts := time.Unix(1, 500_000_000)

	require.NoError(t.T(), d.Utimens(t.ctx, t.rc, "/f", TimeToNanos(ts), TimeToNanos(ts)))
	attrs, err := d.GetAttr(t.ctx, t.rc, "/f")

	require.NoError(t.T(), err)
	assert.Equal(t.T(), 500_000_000, NanosToTime(attrs.Mtime).Nanosecond())
	assert.Equal(t.T(), int64(1), NanosToTime(attrs.Atime).Unix())
	assert.True(t.T(), ts.Equal(NanosToTime(attrs.Atime)))
}

func (t *DispatcherTest) TestGetXattrSizeProtocol() {
	value := []byte("0123456789")
	h := &memoHandler{xattr: value}
	d := NewDispatcher(h)
	l := len(value)

	n, err := d.GetXattr(t.ctx, t.rc, "/f", "user.k", nil)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), l, n)

	dst := make([]byte, l)
	n, err = d.GetXattr(t.ctx, t.rc, "/f", "user.k", dst)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), l, n)
	assert.Equal(t.T(), value, dst)

	_, err = d.GetXattr(t.ctx, t.rc, "/f", "user.k", make([]byte, l-1))
	assert.Equal(t.T(), syscall.ERANGE, err)
}

func (t *DispatcherTest) TestListXattrSizeProtocol() {
	h := &memoHandler{names: []string{"user.a", "user.b"}}
	d := NewDispatcher(h)
	encoded := []byte("user.a\x00user.b\x00")
	l := len(encoded)

	n, err := d.ListXattr(t.ctx, t.rc, "/f", nil)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), l, n)

	dst := make([]byte, l)
	n, err = d.ListXattr(t.ctx, t.rc, "/f", dst)
	require.NoError(t.T(), err)
	assert.Equal(t.T(), l, n)
	assert.Equal(t.T(), encoded, dst)

	_, err = d.ListXattr(t.ctx, t.rc, "/f", make([]byte, l-1))
	assert.Equal(t.T(), syscall.ERANGE, err)
}

func (t *DispatcherTest) TestReadDirTenEntriesCapacityThree() {
	h := &memoHandler{children: 10}
	d := NewDispatcher(h)
	filler := NewDirFiller(3)

	err := d.ReadDir(t.ctx, t.rc, "/d", 1, filler, 0)

	require.NoError(t.T(), err)
	assert.Equal(t.T(), 3, filler.Len())
	assert.True(t.T(), filler.Full())
	assert.Equal(t.T(), FillerClosed, filler.State())
	assert.Equal(t.T(), 3, h.addsBeforeFull)
}

func (t *DispatcherTest) TestReadDirResumesFromOffset() {
	h := &memoHandler{children: 5}
	d := NewDispatcher(h)
	filler := NewDirFiller(10)

	err := d.ReadDir(t.ctx, t.rc, "/d", 1, filler, 3)

	require.NoError(t.T(), err)
	assert.Equal(t.T(), []string{"c3", "c4"}, names(filler.Entries()))
	assert.Equal(t.T(), int64(4), filler.Entries()[0].Offset)
}

func (t *DispatcherTest) TestReadDirClosesFillerOnError() {
	d := NewDispatcher(&outcomeHandler{outcome: classified})
	filler := NewDirFiller(3)

	err := d.ReadDir(t.ctx, t.rc, "/d", 1, filler, 0)

	assert.Equal(t.T(), syscall.EACCES, err)
	assert.Equal(t.T(), FillerClosed, filler.State())
}

func (t *DispatcherTest) TestReadlinkInvalidTarget() {
	d := NewDispatcher(&memoHandler{link: "bad\x00target"})

	_, err := d.Readlink(t.ctx, t.rc, "/l")

	assert.Equal(t.T(), syscall.EINVAL, err)
}

func (t *DispatcherTest) TestNotImplementedHandler() {
	d := NewDispatcher(&NotImplementedHandler{})

	for k, call := range t.calls {
		assert.Equal(t.T(), syscall.ENOSYS, call(d), "kind %s", k)
	}
}

func (t *DispatcherTest) TestConcurrentDispatchKeepsPerCallState() {
	h := &echoHandler{}
	d := NewDispatcher(h)
	const rounds = 200
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)

	for i := range rounds {
		for _, p := range []struct {
			path string
			pid  uint32
		}{{"/left", 1}, {"/right", 2}} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rc := RequestContext{Uid: uint32(i), Pid: p.pid}
				filler := NewDirFiller(8)
				if err := d.ReadDir(t.ctx, rc, p.path, 0, filler, 0); err != nil {
					errs <- err
					return
				}
				want := []string{fmt.Sprintf("%s-%d-%d-0", p.path[1:], p.pid, i), fmt.Sprintf("%s-%d-%d-1", p.path[1:], p.pid, i)}
				if got := names(filler.Entries()); !assert.ObjectsAreEqual(want, got) {
					errs <- fmt.Errorf("got %v, want %v", got, want)
				}
			}()
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.T().Error(err)
	}
}

func TestExhaustive(t *testing.T) {
	d := NewDispatcher(&NotImplementedHandler{})
	seen := make(map[string]bool)
	var supported, unsupported int

	for _, k := range AllOpKinds() {
		name := k.String()
		require.NotEmpty(t, opNames[k], "kind %d has no name", int(k))
		require.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
		if d.Supported(k) {
			supported++
		} else {
			unsupported++
			assert.Equal(t, syscall.ENOSYS, d.Unsupported(k), "kind %s", name)
		}
	}

	assert.Equal(t, 27, supported)
	assert.Equal(t, 14, unsupported)
	for _, name := range []string{"statfs", "fsync", "init", "destroy", "access", "create", "ftruncate", "fgetattr", "lock", "bmap", "ioctl", "poll", "fallocate", "syncfs"} {
		assert.True(t, seen[name], name)
	}
	assert.False(t, d.Supported(numOpKinds))
	assert.False(t, d.Supported(-1))
	assert.Equal(t, "OpKind(99)", OpKind(99).String())
}

type countingHandler struct {
	NotImplementedHandler
	calls int
}

func (h *countingHandler) GetAttr(ctx context.Context, rc RequestContext, path string) (*Attributes, error) {
	h.calls++
	return &Attributes{}, nil
}

func (h *countingHandler) Rename(ctx context.Context, rc RequestContext, from string, to string) error {
	h.calls++
	return nil
}

func (h *countingHandler) SetXattr(ctx context.Context, rc RequestContext, path string, name string, value []byte, flags uint32) error {
	h.calls++
	return nil
}

type nilAttrsHandler struct {
	NotImplementedHandler
}

func (h *nilAttrsHandler) GetAttr(ctx context.Context, rc RequestContext, path string) (*Attributes, error) {
	return nil, nil
}

// memoHandler remembers what it was given.
type memoHandler struct {
	NotImplementedHandler
	atime, mtime   int64
	written        []byte
	writeCount     int
	openFlags      uint32
	seenHandles    []HandleID
	xattr          []byte
	names          []string
	children       int
	addsBeforeFull int
	link           string
}

func (h *memoHandler) GetAttr(ctx context.Context, rc RequestContext, path string) (*Attributes, error) {
	return &Attributes{Mode: 0644, Atime: h.atime, Mtime: h.mtime}, nil
}

func (h *memoHandler) Utimens(ctx context.Context, rc RequestContext, path string, atime int64, mtime int64) error {
	h.atime, h.mtime = atime, mtime
	return nil
}

func (h *memoHandler) Open(ctx context.Context, rc RequestContext, path string, flags uint32) (HandleID, error) {
	h.openFlags = flags
	return 0xfeedface, nil
}

func (h *memoHandler) Read(ctx context.Context, rc RequestContext, path string, fh HandleID, size int, offset int64) ([]byte, error) {
	h.seenHandles = append(h.seenHandles, fh)
	return []byte("x"), nil
}

func (h *memoHandler) Write(ctx context.Context, rc RequestContext, path string, fh HandleID, data []byte, offset int64) (int, error) {
	h.written = data
	if h.writeCount != 0 {
		return h.writeCount, nil
	}
	return len(data), nil
}

func (h *memoHandler) Flush(ctx context.Context, rc RequestContext, path string, fh HandleID) error {
	h.seenHandles = append(h.seenHandles, fh)
	return nil
}

func (h *memoHandler) Release(ctx context.Context, rc RequestContext, path string, fh HandleID) error {
	h.seenHandles = append(h.seenHandles, fh)
	return nil
}

func (h *memoHandler) GetXattr(ctx context.Context, rc RequestContext, path string, name string) ([]byte, error) {
	return h.xattr, nil
}

func (h *memoHandler) ListXattr(ctx context.Context, rc RequestContext, path string) ([]string, error) {
	return h.names, nil
}

func (h *memoHandler) Readlink(ctx context.Context, rc RequestContext, path string) (string, error) {
	return h.link, nil
}

func (h *memoHandler) ReadDir(ctx context.Context, rc RequestContext, path string, fh HandleID, filler *DirFiller, offset int64) error {
	for i := range h.children {
		if filler.Add(fmt.Sprintf("c%d", i), nil, 0) {
			return nil
		}
		h.addsBeforeFull++
	}
	return nil
}

// echoHandler lists two entries derived from the path and request context.
type echoHandler struct {
	NotImplementedHandler
}

func (h *echoHandler) ReadDir(ctx context.Context, rc RequestContext, path string, fh HandleID, filler *DirFiller, offset int64) error {
	for i := range 2 {
		time.Sleep(time.Microsecond)
		filler.Add(fmt.Sprintf("%s-%d-%d-%d", path[1:], rc.Pid, rc.Uid, i), nil, 0)
	}
	return nil
}
