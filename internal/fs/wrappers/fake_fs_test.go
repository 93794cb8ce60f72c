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

package wrappers

import (
	"context"
	"sync"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
)

// fakeFS answers LookUpInode and GetInodeAttributes with err.
type fakeFS struct {
	fuseutil.NotImplementedFileSystem
	err       error
	destroyed bool
}

func (fs *fakeFS) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	return fs.err
}

func (fs *fakeFS) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	return fs.err
}

func (fs *fakeFS) Destroy() {
	fs.destroyed = true
}

type opsErrorKey struct {
	category string
	op       string
}

type fakeMetrics struct {
	mu        sync.Mutex
	opsCount  map[string]int64
	opsErrors map[opsErrorKey]int64
	latencies map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		opsCount:  make(map[string]int64),
		opsErrors: make(map[opsErrorKey]int64),
		latencies: make(map[string]int),
	}
}

func (m *fakeMetrics) FsOpsCount(inc int64, fsOp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opsCount[fsOp] += inc
}

func (m *fakeMetrics) FsOpsErrorCount(inc int64, fsErrorCategory string, fsOp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opsErrors[opsErrorKey{fsErrorCategory, fsOp}] += inc
}

func (m *fakeMetrics) FsOpsLatency(ctx context.Context, duration time.Duration, fsOp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[fsOp]++
}

func (m *fakeMetrics) HandlerPanicCount(inc int64, handlerOp string) {}

func (m *fakeMetrics) HandlerUnclassifiedErrorCount(inc int64, handlerOp string) {}
