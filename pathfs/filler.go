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
	"fmt"
)

// FillerState is the life cycle of a DirFiller.
type FillerState int

const (
	// FillerOpen accepts entries and has none yet.
	FillerOpen FillerState = iota
	// FillerFilling has accepted at least one entry.
	FillerFilling
	// FillerFull rejected an entry for lack of room. Later adds are rejected.
	FillerFull
	// FillerClosed is terminal; the readdir call has returned.
	FillerClosed
)

func (s FillerState) String() string {
	switch s {
	case FillerOpen:
		return "Open"
	case FillerFilling:
		return "Filling"
	case FillerFull:
		return "Full"
	case FillerClosed:
		return "Closed"
	}
	return fmt.Sprintf("FillerState(%d)", int(s))
}

// DirEntry is one accepted directory entry. Offset is the cookie the kernel
// passes back to resume the listing after this entry.
type DirEntry struct {
	Name   string
	Attrs  *Attributes
	Offset int64
}

// DirFiller is the sink handed to Handler.ReadDir. It is created per call and
// must not be retained by the handler after ReadDir returns.
//
// An entry added with nextOffset 0 is numbered by the filler (1, 2, ...) and
// entries numbered at or below the requested start offset are skipped, so a
// handler may always list the whole directory. A non-zero nextOffset is used
// as given.
type DirFiller struct {
	state    FillerState
	full     bool
	capacity int
	accept   func(DirEntry) bool
	start    int64
	seq      int64
	entries  []DirEntry
}

// NewDirFiller returns a filler that retains at most capacity entries.
func NewDirFiller(capacity int) *DirFiller {
	if capacity < 0 {
		capacity = 0
	}
	return &DirFiller{capacity: capacity}
}

// NewFuncFiller returns a filler that hands each entry to accept, which
// reports false when it has no room left. Entries are not retained.
func NewFuncFiller(accept func(DirEntry) bool) *DirFiller {
	return &DirFiller{accept: accept}
}

// Add offers one entry. It returns true when the filler is full, in which
// case the entry was not accepted and the handler should stop emitting.
// Names that cannot cross the kernel boundary are dropped.
func (f *DirFiller) Add(name string, attrs *Attributes, nextOffset int64) (full bool) {
	if f.state == FillerFull || f.state == FillerClosed {
		return true
	}

	off := nextOffset
	if off == 0 {
		f.seq++
		off = f.seq
		if off <= f.start {
			return false
		}
	}
	if name == "" || checkPath(name) != nil {
		return false
	}

	e := DirEntry{Name: name, Offset: off}
	if attrs != nil {
		a := *attrs
		e.Attrs = &a
	}

	if f.accept != nil {
		if !f.accept(e) {
			f.markFull()
			return true
		}
	} else {
		if len(f.entries) >= f.capacity {
			f.markFull()
			return true
		}
		f.entries = append(f.entries, e)
	}
	f.state = FillerFilling
	return false
}

func (f *DirFiller) markFull() {
	f.state = FillerFull
	f.full = true
}

// Full reports whether an entry was rejected for lack of room.
func (f *DirFiller) Full() bool {
	return f.full
}

// State returns the current life-cycle state.
func (f *DirFiller) State() FillerState {
	return f.state
}

// Len returns the number of retained entries.
func (f *DirFiller) Len() int {
	return len(f.entries)
}

// Entries returns the retained entries in the order they were added.
func (f *DirFiller) Entries() []DirEntry {
	return f.entries
}

// Close moves the filler to FillerClosed. Later adds are rejected.
func (f *DirFiller) Close() {
	f.state = FillerClosed
}

// setStart records the offset the listing resumes from. It only has effect
// before the first add.
func (f *DirFiller) setStart(offset int64) {
	if f.state == FillerOpen && f.seq == 0 && offset > 0 {
		f.start = offset
	}
}
