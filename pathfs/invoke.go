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
	"runtime/debug"

	"github.com/pathfuse/pathfuse/internal/logger"
)

// invoke runs fn exactly once. A panic is recovered and returned as a
// *HandlerPanicError with the zero result.
func invoke[T any](op OpKind, fn func() (T, error)) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			stack := debug.Stack()
			logger.Errorf("pathfs: %s handler panicked: %v\n%s", op, r, stack)
			res, err = zero, &HandlerPanicError{Op: op, Value: r, Stack: stack}
		}
	}()
	return fn()
}

func invokeErr(op OpKind, fn func() error) error {
	_, err := invoke(op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
