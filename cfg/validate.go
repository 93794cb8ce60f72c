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
	"fmt"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	MaxThreadsInvalidValueError = "the value of max-threads can't be less than 1"
	TimeoutNegativeValueError   = "the value of attr-timeout and entry-timeout can't be negative"
	UnknownDefaultErrnoError    = "the value of default-errno must name an errno, e.g. ENOENT or EIO"
	UnsupportedLogFormatError   = "the value of log-format must be one of [text, json]"
	UnsupportedTracingModeError = "the value of experimental-tracing-mode must be empty or stdout"
	PrometheusPortInvalidValue  = "the value of prometheus-port must be between 0 and 65535"
	DirModeOutOfRangeValueError = "the value of dir-mode must be at most 0777"
	UidGidOutOfRangeValueError  = "the value of uid and gid must be -1 or a valid id"
	maxPortNumber               = 65535
	maxPermissionBits           = 0777
	maxUserOrGroupID            = 1<<32 - 1
)

// maxErrno bounds the errno values scanned for names.
const maxErrno = 4096

var errnoByName = sync.OnceValue(func() map[string]syscall.Errno {
	m := make(map[string]syscall.Errno)
	for e := syscall.Errno(1); e < maxErrno; e++ {
		if name := unix.ErrnoName(e); name != "" {
			if _, ok := m[name]; !ok {
				m[name] = e
			}
		}
	}
	return m
})

// ParseErrno converts an errno name such as "ENOENT" into its value. It
// returns 0 when the name is unknown.
func ParseErrno(name string) syscall.Errno {
	return errnoByName()[strings.ToUpper(strings.TrimSpace(name))]
}

func isValidLogRotateConfig(config *LogRotateLoggingConfig) error {
	if config.MaxFileSizeMb <= 0 {
		return fmt.Errorf("max-file-size-mb should be atleast 1")
	}
	if config.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (to retain all backup files) or a positive value")
	}
	return nil
}

func isValidLoggingConfig(config *LoggingConfig) error {
	switch config.Format {
	case "", TextLogFormat, JSONLogFormat:
	default:
		return fmt.Errorf(UnsupportedLogFormatError)
	}
	return isValidLogRotateConfig(&config.LogRotate)
}

func isValidIDOwner(id int64) bool {
	return id == -1 || (id >= 0 && id <= maxUserOrGroupID)
}

func isValidFileSystemConfig(config *FileSystemConfig) error {
	if config.MaxThreads < 1 {
		return fmt.Errorf(MaxThreadsInvalidValueError)
	}
	if config.AttrTimeout < 0 || config.EntryTimeout < 0 {
		return fmt.Errorf(TimeoutNegativeValueError)
	}
	if config.DefaultErrno != "" && ParseErrno(config.DefaultErrno) == 0 {
		return fmt.Errorf(UnknownDefaultErrnoError)
	}
	if config.DirMode < 0 || config.DirMode > maxPermissionBits {
		return fmt.Errorf(DirModeOutOfRangeValueError)
	}
	if !isValidIDOwner(config.Uid) || !isValidIDOwner(config.Gid) {
		return fmt.Errorf(UidGidOutOfRangeValueError)
	}
	return nil
}

func isValidMonitoringConfig(metrics *MetricsConfig, monitoring *MonitoringConfig) error {
	if metrics.PrometheusPort < 0 || metrics.PrometheusPort > maxPortNumber {
		return fmt.Errorf(PrometheusPortInvalidValue)
	}
	switch monitoring.ExperimentalTracingMode {
	case "", TracingModeStdout:
	default:
		return fmt.Errorf(UnsupportedTracingModeError)
	}
	return nil
}

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	var err error

	if err = isValidLoggingConfig(&config.Logging); err != nil {
		return fmt.Errorf("error parsing logging config: %w", err)
	}

	if err = isValidFileSystemConfig(&config.FileSystem); err != nil {
		return fmt.Errorf("error parsing file-system config: %w", err)
	}

	if err = isValidMonitoringConfig(&config.Metrics, &config.Monitoring); err != nil {
		return fmt.Errorf("error parsing monitoring config: %w", err)
	}

	return nil
}
