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

package memfs

import (
	"os"
	"sort"

	"github.com/google/btree"
	"github.com/pathfuse/pathfuse/pathfs"
)

const btreeDegree = 8

type child struct {
	name string
	node *node
}

func lessChild(a, b child) bool {
	return a.name < b.name
}

// node is one inode. Hard links share a node.
type node struct {
	attrs pathfs.Attributes

	// Regular files only.
	contents []byte

	// Symlinks only.
	target string

	// Directories only. Ordered by name so listings are stable across
	// calls.
	children *btree.BTreeG[child]

	xattrs map[string][]byte
}

func newNode(attrs pathfs.Attributes) *node {
	n := &node{
		attrs:  attrs,
		xattrs: make(map[string][]byte),
	}
	if attrs.Mode.IsDir() {
		n.children = btree.NewG(btreeDegree, lessChild)
	}
	return n
}

func (n *node) isDir() bool {
	return n.attrs.Mode.IsDir()
}

func (n *node) isSymlink() bool {
	return n.attrs.Mode&os.ModeSymlink != 0
}

func (n *node) lookUp(name string) (*node, bool) {
	c, ok := n.children.Get(child{name: name})
	if !ok {
		return nil, false
	}
	return c.node, true
}

func (n *node) addChild(name string, c *node) {
	n.children.ReplaceOrInsert(child{name: name, node: c})
	if c.isDir() {
		n.attrs.Nlink++
	}
}

func (n *node) removeChild(name string) {
	c, ok := n.children.Delete(child{name: name})
	if ok && c.node.isDir() {
		n.attrs.Nlink--
	}
}

func (n *node) xattrNames() []string {
	names := make([]string, 0, len(n.xattrs))
	for name := range n.xattrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
