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
	"fmt"
	"sync"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/syncutil"
	"github.com/pathfuse/pathfuse/pathfs"
)

// handleEntry is what a kernel handle ID stands for.
type handleEntry struct {
	inode fuseops.InodeID

	// The handler's own handle, passed back unchanged.
	fh pathfs.HandleID

	dir bool

	// Set for directory handles.
	listing *dirListing
}

// dirListing is the listing of a directory handle, taken by the readdir at
// offset 0 and served to the later readdirs of the same handle. Entries
// removed or added in between do not shift the offsets the kernel holds.
type dirListing struct {
	mu sync.Mutex

	// GUARDED_BY(mu)
	taken bool

	// GUARDED_BY(mu)
	entries []pathfs.DirEntry
}

// after returns the index of the entry following the one with cookie off.
//
// LOCKS_REQUIRED(l.mu)
func (l *dirListing) after(off int64) int {
	if off == 0 {
		return 0
	}
	for i, e := range l.entries {
		if e.Offset == off {
			return i + 1
		}
	}
	return len(l.entries)
}

// handleTable hands out kernel handle IDs for handler handles.
type handleTable struct {
	mu syncutil.InvariantMutex

	// INVARIANT: next > id for every key of entries
	//
	// GUARDED_BY(mu)
	next fuseops.HandleID

	// GUARDED_BY(mu)
	entries map[fuseops.HandleID]handleEntry
}

func newHandleTable() *handleTable {
	t := &handleTable{
		next:    1,
		entries: make(map[fuseops.HandleID]handleEntry),
	}
	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)
	return t
}

// LOCKS_REQUIRED(t.mu)
func (t *handleTable) checkInvariants() {
	for id := range t.entries {
		if id >= t.next {
			panic(fmt.Sprintf("handle %d not below next %d", id, t.next))
		}
	}
}

// LOCKS_EXCLUDED(t.mu)
func (t *handleTable) Add(e handleEntry) fuseops.HandleID {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.next
	t.next++
	t.entries[id] = e
	return id
}

// Get returns the entry for id, or EBADF.
//
// LOCKS_EXCLUDED(t.mu)
func (t *handleTable) Get(id fuseops.HandleID) (handleEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return handleEntry{}, syscall.EBADF
	}
	return e, nil
}

// Remove drops id and returns what it stood for, or EBADF.
//
// LOCKS_EXCLUDED(t.mu)
func (t *handleTable) Remove(id fuseops.HandleID) (handleEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return handleEntry{}, syscall.EBADF
	}
	delete(t.entries, id)
	return e, nil
}

// LOCKS_EXCLUDED(t.mu)
func (t *handleTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}
