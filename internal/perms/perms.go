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

// System permissions-related code.
package perms

import (
	"fmt"
	"os"
)

// MyUserAndGroup returns the UID and GID of this process.
func MyUserAndGroup() (uid, gid uint32, err error) {
	signedUID := os.Getuid()
	signedGID := os.Getgid()

	// Getuid and Getgid return -1 on windows.
	if signedUID < 0 || signedGID < 0 {
		err = fmt.Errorf("failed to get uid/gid. UID = %d, GID = %d", signedUID, signedGID)
		return
	}

	uid = uint32(signedUID)
	gid = uint32(signedGID)
	return
}

// Owner returns the IDs that should own the root of a mounted file system:
// uidOverride and gidOverride when non-negative, else those of this process.
func Owner(uidOverride, gidOverride int64) (uid, gid uint32, err error) {
	uid, gid, err = MyUserAndGroup()
	if err != nil {
		return 0, 0, fmt.Errorf("MyUserAndGroup: %w", err)
	}
	if uidOverride >= 0 {
		uid = uint32(uidOverride)
	}
	if gidOverride >= 0 {
		gid = uint32(gidOverride)
	}
	return uid, gid, nil
}
