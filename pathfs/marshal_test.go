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
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckPath(t *testing.T) {
	assert.NoError(t, checkPath("/dir/file.txt"))
	assert.NoError(t, checkPath("/répertoire/ファイル"))
	assert.Equal(t, syscall.EINVAL, checkPath("/a\x00b"))
	assert.Equal(t, syscall.EINVAL, checkPath("/\xff\xfe"))
	assert.Equal(t, syscall.EINVAL, checkPaths("/ok", "/bad\x00"))
}

func TestCopyPayloadKeepsZeroBytes(t *testing.T) {
	in := []byte{1, 2, 3, 4, 0, 6, 7, 8, 9, 10}

	out := copyPayload(in)
	in[0] = 42

	assert.Len(t, out, 10)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 6, 7, 8, 9, 10}, out)
}

func TestClip(t *testing.T) {
	b := []byte("0123456789")

	assert.Equal(t, []byte("0123"), clip(b, 4))
	assert.Equal(t, b, clip(b, 10))
	assert.Equal(t, b, clip(b, 64))
	assert.Empty(t, clip(b, 0))
	assert.Empty(t, clip(b, -1))
}

func TestTimeNanosRoundTrip(t *testing.T) {
	ts := time.Unix(1, 500_000_000)

	ns := TimeToNanos(ts)

	assert.Equal(t, int64(1_500_000_000), ns)
	assert.True(t, ts.Equal(NanosToTime(ns)))
	assert.Equal(t, 500_000_000, NanosToTime(ns).Nanosecond())
}

func TestTimeToNanos_ZeroTime(t *testing.T) {
	assert.Equal(t, int64(0), TimeToNanos(time.Time{}))
}

func TestTimeToNanos_LargeSeconds(t *testing.T) {
	ts := time.Date(2200, 1, 1, 0, 0, 0, 123, time.UTC)

	assert.True(t, ts.Equal(NanosToTime(TimeToNanos(ts))))
}
