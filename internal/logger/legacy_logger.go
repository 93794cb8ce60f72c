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

package logger

import (
	"log"
	"log/slog"
)

// NewLegacyLogger creates a *log.Logger writing through the default logger
// factory at the given level. It exists for jacobsa/fuse, whose MountConfig
// takes *log.Logger for its error and debug output. Prefer Infof(), Warnf(),
// Errorf() and friends everywhere else.
func NewLegacyLogger(level slog.Level, prefix string) *log.Logger {
	var programLevel = new(slog.LevelVar)
	logger := slog.NewLogLogger(defaultLoggerFactory.handler(programLevel, prefix), level)
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
	return logger
}
