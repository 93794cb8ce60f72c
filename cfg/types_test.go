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

package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOctalMarshalling(t *testing.T) {
	o := Octal(0765)

	out, err := yaml.Marshal(&o)

	if assert.NoError(t, err) {
		assert.Equal(t, "\"765\"\n", string(out))
	}
}

func TestOctalUnmarshalling(t *testing.T) {
	t.Parallel()
	tests := []struct {
		str      string
		expected Octal
		wantErr  bool
	}{
		{
			str:      "753",
			expected: 0753,
		},
		{
			str:      "0644",
			expected: 0644,
		},
		{
			str:     "945",
			wantErr: true,
		},
		{
			str:     "abc",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.str, func(t *testing.T) {
			t.Parallel()
			var o Octal

			err := o.UnmarshalText([]byte(tc.str))

			if tc.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, o)
			}
		})
	}
}

func TestLogSeverityUnmarshalling(t *testing.T) {
	t.Parallel()
	tests := []struct {
		str      string
		expected LogSeverity
		wantErr  bool
	}{
		{str: "trace", expected: TraceLogSeverity},
		{str: "Debug", expected: DebugLogSeverity},
		{str: "INFO", expected: InfoLogSeverity},
		{str: "warning", expected: WarningLogSeverity},
		{str: "error", expected: ErrorLogSeverity},
		{str: "off", expected: OffLogSeverity},
		{str: "verbose", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.str, func(t *testing.T) {
			t.Parallel()
			var l LogSeverity

			err := l.UnmarshalText([]byte(tc.str))

			if tc.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, l)
			}
		})
	}
}

func TestLogSeverityRank(t *testing.T) {
	assert.Less(t, TraceLogSeverity.Rank(), DebugLogSeverity.Rank())
	assert.Less(t, WarningLogSeverity.Rank(), OffLogSeverity.Rank())
	assert.Equal(t, -1, LogSeverity("LOUD").Rank())
}

func TestStringify(t *testing.T) {
	c := validConfig()
	c.AppName = "demo"

	str, err := Stringify(c)

	require.NoError(t, err)
	assert.Contains(t, str, "app-name: demo")
	assert.Contains(t, str, "dir-mode: \"755\"")
	assert.Contains(t, str, "default-errno: ENOENT")
}
