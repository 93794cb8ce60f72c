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
	"bytes"
	"syscall"
)

// fitXattr implements the two-phase size protocol of getxattr and
// listxattr. An empty dst is a size query: the length of value is returned
// and nothing is copied. Otherwise value is copied in full, or ERANGE is
// returned when it does not fit.
func fitXattr(value []byte, dst []byte) (int, error) {
	if len(dst) == 0 {
		return len(value), nil
	}
	if len(value) > len(dst) {
		return 0, syscall.ERANGE
	}
	return copy(dst, value), nil
}

// encodeXattrNames lays out names the way listxattr(2) returns them: each
// name followed by a NUL byte.
func encodeXattrNames(names []string) ([]byte, error) {
	var buf bytes.Buffer
	for _, n := range names {
		if n == "" || checkPath(n) != nil {
			return nil, syscall.EINVAL
		}
		buf.WriteString(n)
		buf.WriteByte(0)
	}
	return buf.Bytes(), nil
}
