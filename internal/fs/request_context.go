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
	"github.com/jacobsa/fuse/fuseops"
	"github.com/pathfuse/pathfuse/pathfs"
	"github.com/prometheus/procfs"
)

// procRoot is replaced in tests.
var procRoot = procfs.DefaultMountPoint

// requestContext captures the caller of an op. The kernel reports the uid
// and pid of the caller but not its gid, which is read from procfs.
func requestContext(oc fuseops.OpContext) pathfs.RequestContext {
	rc := pathfs.RequestContext{
		Uid: oc.Uid,
		Pid: oc.Pid,
	}
	if oc.Pid != 0 {
		if gid, ok := fsGid(oc.Pid); ok {
			rc.Gid = gid
		}
	}
	return rc
}

// fsGid returns the filesystem gid of pid, the fourth gid in
// /proc/<pid>/status.
func fsGid(pid uint32) (uint32, bool) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return 0, false
	}
	p, err := fs.Proc(int(pid))
	if err != nil {
		return 0, false
	}
	status, err := p.NewStatus()
	if err != nil {
		return 0, false
	}
	return uint32(status.GIDs[3]), true
}
