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
	"path"
	"strings"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/pathfuse/pathfuse/internal/locker"
)

// inodeRecord ties a kernel inode ID to the path it was looked up by.
type inodeRecord struct {
	id fuseops.InodeID

	// The path the handler knows the inode by. Kept after unlink so that
	// handles opened before the unlink still address the same path.
	path string

	// The kernel's lookup count. The root is never forgotten.
	lookups uint64

	// False once the path has been unlinked or renamed over.
	attached bool
}

// inodeTable maps the kernel's inode IDs to handler paths.
type inodeTable struct {
	mu locker.RWLocker

	// INVARIANT: nextID > id for every record
	// INVARIANT: byID[fuseops.RootInodeID].path == "/"
	//
	// GUARDED_BY(mu)
	nextID fuseops.InodeID

	// GUARDED_BY(mu)
	byID map[fuseops.InodeID]*inodeRecord

	// INVARIANT: for each p, r in byPath: r.path == p && r.attached
	// INVARIANT: for each p, r in byPath: byID[r.id] == r
	//
	// GUARDED_BY(mu)
	byPath map[string]*inodeRecord
}

func newInodeTable() *inodeTable {
	root := &inodeRecord{
		id:       fuseops.RootInodeID,
		path:     "/",
		lookups:  1,
		attached: true,
	}
	t := &inodeTable{
		nextID: fuseops.RootInodeID + 1,
		byID:   map[fuseops.InodeID]*inodeRecord{root.id: root},
		byPath: map[string]*inodeRecord{root.path: root},
	}
	t.mu = locker.NewRW("inodeTable", t.checkInvariants)
	return t
}

// LOCKS_REQUIRED(t.mu)
func (t *inodeTable) checkInvariants() {
	root, ok := t.byID[fuseops.RootInodeID]
	if !ok || root.path != "/" {
		panic("root inode missing")
	}
	for id, r := range t.byID {
		if r.id != id {
			panic(fmt.Sprintf("inode %d recorded under %d", r.id, id))
		}
		if id >= t.nextID {
			panic(fmt.Sprintf("inode %d not below nextID %d", id, t.nextID))
		}
	}
	for p, r := range t.byPath {
		if r.path != p || !r.attached {
			panic(fmt.Sprintf("path %q maps to record for %q", p, r.path))
		}
		if t.byID[r.id] != r {
			panic(fmt.Sprintf("path %q maps to unknown inode %d", p, r.id))
		}
	}
}

// Path returns the path of a known inode.
//
// LOCKS_EXCLUDED(t.mu)
func (t *inodeTable) Path(id fuseops.InodeID) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.byID[id]
	if !ok {
		return "", syscall.ENOENT
	}
	return r.path, nil
}

// ChildPath returns the path of name inside the directory with the given
// inode.
//
// LOCKS_EXCLUDED(t.mu)
func (t *inodeTable) ChildPath(parent fuseops.InodeID, name string) (string, error) {
	dir, err := t.Path(parent)
	if err != nil {
		return "", err
	}
	return childPath(dir, name), nil
}

// Find returns the inode currently attached to p, if the kernel has looked it
// up.
//
// LOCKS_EXCLUDED(t.mu)
func (t *inodeTable) Find(p string) (fuseops.InodeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.byPath[p]
	if !ok {
		return 0, false
	}
	return r.id, true
}

// LookUp returns the inode for p, allocating one if needed, and increments
// its lookup count.
//
// LOCKS_EXCLUDED(t.mu)
func (t *inodeTable) LookUp(p string) fuseops.InodeID {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.byPath[p]
	if !ok {
		r = &inodeRecord{id: t.nextID, path: p, attached: true}
		t.nextID++
		t.byID[r.id] = r
		t.byPath[p] = r
	}
	r.lookups++
	return r.id
}

// Forget decrements the lookup count of id by n and drops the record when it
// reaches zero.
//
// LOCKS_EXCLUDED(t.mu)
func (t *inodeTable) Forget(id fuseops.InodeID, n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.byID[id]
	if !ok || id == fuseops.RootInodeID {
		return
	}
	if n >= r.lookups {
		r.lookups = 0
	} else {
		r.lookups -= n
	}
	if r.lookups > 0 {
		return
	}
	delete(t.byID, id)
	if r.attached {
		delete(t.byPath, r.path)
	}
}

// Detach unlinks p from its inode. The inode keeps its last path until the
// kernel forgets it.
//
// LOCKS_EXCLUDED(t.mu)
func (t *inodeTable) Detach(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.detachLocked(p)
}

// LOCKS_REQUIRED(t.mu)
func (t *inodeTable) detachLocked(p string) {
	r, ok := t.byPath[p]
	if !ok || r.id == fuseops.RootInodeID {
		return
	}
	delete(t.byPath, p)
	r.attached = false
}

// Rename moves the inode at from, and every inode below it, to to. An inode
// attached at to is detached first.
//
// LOCKS_EXCLUDED(t.mu)
func (t *inodeTable) Rename(from, to string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if from == to {
		return
	}
	t.detachLocked(to)

	prefix := from + "/"
	var moved []*inodeRecord
	for p, r := range t.byPath {
		if p == from || strings.HasPrefix(p, prefix) {
			delete(t.byPath, p)
			moved = append(moved, r)
		}
	}
	for _, r := range moved {
		r.path = to + strings.TrimPrefix(r.path, from)
		if old, ok := t.byPath[r.path]; ok {
			old.attached = false
		}
		t.byPath[r.path] = r
	}
}

func childPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

func splitPath(p string) (dir, name string) {
	dir, name = path.Split(p)
	if dir != "/" {
		dir = strings.TrimSuffix(dir, "/")
	}
	return dir, name
}
