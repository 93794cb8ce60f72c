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
	"strings"
	"syscall"
	"time"
	"unicode/utf8"
)

// checkPath rejects text that cannot cross the handler boundary: invalid
// UTF-8 or an embedded NUL.
func checkPath(p string) error {
	if !utf8.ValidString(p) || strings.IndexByte(p, 0) >= 0 {
		return syscall.EINVAL
	}
	return nil
}

func checkPaths(paths ...string) error {
	for _, p := range paths {
		if err := checkPath(p); err != nil {
			return err
		}
	}
	return nil
}

// copyPayload returns an exact-length copy of b, zero bytes included.
func copyPayload(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// clip truncates b to at most size bytes without copying.
func clip(b []byte, size int) []byte {
	if size < 0 {
		size = 0
	}
	if len(b) > size {
		return b[:size]
	}
	return b
}

// TimeToNanos converts t to nanoseconds since the Unix epoch. The zero time
// maps to 0.
func TimeToNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// NanosToTime is the inverse of TimeToNanos.
func NanosToTime(ns int64) time.Time {
	return time.Unix(0, ns)
}
