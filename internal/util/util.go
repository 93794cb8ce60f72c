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

package util

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// PATHFUSE_PARENT_PROCESS_DIR carries the working directory of the foreground
// process into the daemon so that relative paths keep their meaning.
const PATHFUSE_PARENT_PROCESS_DIR = "pathfuse-parent-process-dir"

// GetResolvedPath turns filePath into an absolute path.
//
//  1. Absolute paths and the empty string are returned unchanged.
//  2. Paths starting with ~/ are resolved against the home directory.
//  3. Other relative paths are resolved against PATHFUSE_PARENT_PROCESS_DIR
//     when set (daemon), else against the current directory.
func GetResolvedPath(filePath string) (resolvedPath string, err error) {
	if filePath == "" || path.IsAbs(filePath) {
		resolvedPath = filePath
		return
	}

	if strings.HasPrefix(filePath, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("fetch home dir: %w", err)
		}
		return filepath.Join(homeDir, filePath[2:]), nil
	}

	parentProcessDir, _ := os.LookupEnv(PATHFUSE_PARENT_PROCESS_DIR)
	parentProcessDir = strings.TrimSpace(parentProcessDir)
	if parentProcessDir == "" {
		return filepath.Abs(filePath)
	}
	return filepath.Join(parentProcessDir, filePath), nil
}
