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
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke_RunsOnce(t *testing.T) {
	calls := 0

	v, err := invoke(OpGetAttr, func() (int, error) {
		calls++
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)
}

func TestInvoke_PassesErrorThrough(t *testing.T) {
	_, err := invoke(OpOpen, func() (HandleID, error) {
		return 3, syscall.EACCES
	})

	assert.Equal(t, syscall.EACCES, err)
}

func TestInvoke_RecoversPanic(t *testing.T) {
	calls := 0

	v, err := invoke(OpRead, func() ([]byte, error) {
		calls++
		panic("index out of range")
	})

	assert.Nil(t, v)
	var pe *HandlerPanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, OpRead, pe.Op)
	assert.Equal(t, "index out of range", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, 1, calls)
}

func TestInvokeErr(t *testing.T) {
	assert.NoError(t, invokeErr(OpFlush, func() error { return nil }))
	assert.Equal(t, syscall.EBADF, invokeErr(OpFlush, func() error { return syscall.EBADF }))

	err := invokeErr(OpFlush, func() error { panic(errors.New("nil map")) })
	var pe *HandlerPanicError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, OpFlush, pe.Op)
}
